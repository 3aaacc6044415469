package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/koustreak/DatAct/internal/action"
)

// NewExecCommand creates the exec command.
func NewExecCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec [script|-]",
		Short: "Run a script verbatim",
		Long:  "Open the database, run the script to completion and close it. A script of - is read from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script := args[0]
			if script == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read script: %w", err)
				}
				script = string(data)
			}

			s, err := openSession(cmd, flags, true)
			if err != nil {
				return err
			}
			defer s.Close()

			return s.handler.Perform(action.Open|action.Exec|action.Close, s.db, script)
		},
	}
	return cmd
}
