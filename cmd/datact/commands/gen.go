package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koustreak/DatAct/internal/action"
)

// NewGenCommand creates the gen command.
func NewGenCommand(flags *globalFlags) *cobra.Command {
	sel := &selectionFlags{}
	var create bool

	cmd := &cobra.Command{
		Use:   "gen [action]",
		Short: "Print the SQL an action would run",
		Long: `Generate the statement for an action code without touching a database.

Examples:
  datact gen read --fields name --set id=7 -s shop.yaml
  datact gen "update|key1" --fields name --set name=nut,id=3 -s shop.yaml
  datact gen --create -s shop.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, flags, false)
			if err != nil {
				return err
			}

			if create {
				script, err := s.gen.CreateTables(s.db)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), script)
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("gen needs an action, or --create")
			}

			code, err := action.Parse(args[0])
			if err != nil {
				return err
			}
			if _, err := s.db.Apply(sel.selection()); err != nil {
				return err
			}
			sql, err := s.gen.Generate(code, s.db, sel.key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sql)
			return nil
		},
	}

	sel.register(cmd)
	cmd.Flags().BoolVar(&create, "create", false, "print CREATE TABLE statements for every table")
	return cmd
}
