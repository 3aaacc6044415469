package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/koustreak/DatAct/internal/action"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query script",
		Short: "Run an ad-hoc SELECT and print every row as a JSON line",
		Long: `Run a verbatim query and print its rows keyed by result label. Unlike read,
the columns need not exist in the schema descriptor.

Example:
  datact query -s shop.yaml "SELECT grade, COUNT(*) AS n FROM widgets GROUP BY grade;"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, flags, true)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.handler.Perform(action.Open, s.db, ""); err != nil {
				return err
			}
			rows, err := s.handler.Query(s.db, args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, row := range rows {
				if err := enc.Encode(row); err != nil {
					return err
				}
			}
			return s.handler.Perform(action.Close, s.db, "")
		},
	}
	return cmd
}
