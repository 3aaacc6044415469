package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/koustreak/DatAct/internal/action"
	"github.com/koustreak/DatAct/internal/errs"
)

// NewReadCommand creates the read command.
func NewReadCommand(flags *globalFlags) *cobra.Command {
	sel := &selectionFlags{}
	var (
		keyIndex int
		distinct bool
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read rows and print them as JSON lines",
		Long: `Generate a SELECT, step through its rows and print each one.

Examples:
  datact read -s shop.yaml --fields '*'
  datact read -s shop.yaml --fields name --set id=7
  datact read -s shop.yaml --fields name --key "w.name = %" --set name=bolt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, flags, true)
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.db.Apply(sel.selection())
			if err != nil {
				return err
			}

			code := (action.Open | action.Read | action.Step).WithKey(keyIndex)
			if distinct {
				code |= action.Distinct
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for n := 0; limit <= 0 || n < limit; n++ {
				err := s.handler.Perform(code, s.db, sel.key)
				if errs.IsNoData(err) {
					break
				}
				if err != nil && !errs.IsDuplicateOpen(err) {
					return err
				}
				if err := enc.Encode(t.Row()); err != nil {
					return err
				}
				code = action.Step
			}

			return s.handler.Perform(action.Finalize|action.Close, s.db, "")
		},
	}

	sel.register(cmd)
	cmd.Flags().IntVar(&keyIndex, "key-index", 0, "canned key to use, 0 to 6")
	cmd.Flags().BoolVar(&distinct, "distinct", false, "SELECT DISTINCT")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many rows, 0 for all")
	return cmd
}
