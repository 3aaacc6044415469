package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/koustreak/DatAct/internal/action"
	"github.com/koustreak/DatAct/internal/dispatch"
	"github.com/koustreak/DatAct/internal/errs"
)

type performResult struct {
	Action string            `json:"action"`
	Status int               `json:"status"`
	State  string            `json:"state"`
	Row    map[string]string `json:"row,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// NewPerformCommand creates the perform command.
func NewPerformCommand(flags *globalFlags) *cobra.Command {
	sel := &selectionFlags{}

	cmd := &cobra.Command{
		Use:   "perform action...",
		Short: "Perform a sequence of raw action codes",
		Long: `Perform each action code in turn on one handler and print the outcome
as a JSON line. The database is opened before the first action when the first
action does not open it, and everything is closed at the end. --key is passed
to every action as its ad-hoc key or script.

Examples:
  datact perform -s shop.yaml --fields '*' --set name=bolt write
  datact perform -s shop.yaml --fields name --set id=1 "read|step" step step
  datact perform -s shop.yaml --fields id --key "SELECT COUNT(*) AS id FROM widgets;" "prepare|count"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codes := make([]action.Code, len(args))
			for i, a := range args {
				code, err := action.Parse(a)
				if err != nil {
					return err
				}
				codes[i] = code
			}
			if !codes[0].Has(action.Open) {
				codes[0] |= action.Open
			}

			s, err := openSession(cmd, flags, true)
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.db.Apply(sel.selection())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, code := range codes {
				err := s.handler.Perform(code, s.db, sel.key)
				res := performResult{
					Action: code.String(),
					Status: dispatch.Status(err),
					State:  s.handler.State(s.db).String(),
				}
				switch {
				case err == nil && (code.Has(action.Step) || code.Has(action.Count)):
					res.Row = t.Row()
				case err != nil && !errs.IsDuplicateOpen(err) && !errs.IsNoData(err):
					res.Error = err.Error()
				}
				if err := enc.Encode(res); err != nil {
					return err
				}
				if res.Status == dispatch.StatusError {
					return err
				}
			}
			return nil
		},
	}

	sel.register(cmd)
	return cmd
}
