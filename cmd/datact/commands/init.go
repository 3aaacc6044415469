package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koustreak/DatAct/internal/action"
)

// NewInitCommand creates the init command.
func NewInitCommand(flags *globalFlags) *cobra.Command {
	var script string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the tables of the schema descriptor",
		Long:  "Open the database, create every table the descriptor declares (or run --script instead) and close it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, flags, true)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.handler.Perform(action.Open|action.Init|action.Close, s.db, script); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Initialized %s (%d tables)\n", s.db.Path, s.db.TableCount())
			return nil
		},
	}

	cmd.Flags().StringVar(&script, "script", "", "script to run instead of the generated CREATE TABLE statements")
	return cmd
}
