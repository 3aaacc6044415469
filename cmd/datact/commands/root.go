// Package commands implements the datact CLI commands.
package commands

import (
	"github.com/spf13/cobra"
)

// globalFlags are shared by every command.
type globalFlags struct {
	config   string
	schema   string
	engine   string
	dsn      string
	logLevel string
}

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "datact",
		Short:         "Run action codes against SQL databases",
		Long:          "datact turns action codes and a schema descriptor into SQL and runs them against SQLite, MySQL or PostgreSQL",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "config file (YAML)")
	pf.StringVarP(&flags.schema, "schema", "s", "", "schema descriptor file or s3:// URL")
	pf.StringVar(&flags.engine, "engine", "", "database engine: sqlite, mysql or postgres")
	pf.StringVar(&flags.dsn, "dsn", "", "server connection string for mysql and postgres")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(NewGenCommand(flags))
	root.AddCommand(NewInitCommand(flags))
	root.AddCommand(NewExecCommand(flags))
	root.AddCommand(NewReadCommand(flags))
	root.AddCommand(NewQueryCommand(flags))
	root.AddCommand(NewPerformCommand(flags))
	root.AddCommand(NewBackupCommand(flags))
	root.AddCommand(NewServeCommand(flags))

	return root
}
