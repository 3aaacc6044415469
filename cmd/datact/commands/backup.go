package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/koustreak/DatAct/internal/database"
	"github.com/koustreak/DatAct/internal/filestore"
	"github.com/koustreak/DatAct/internal/filestore/minio"
	"github.com/koustreak/DatAct/internal/logger"
)

// NewBackupCommand creates the backup command.
func NewBackupCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup s3://bucket/key",
		Short: "Upload the SQLite database file to object storage",
		Long: `Copy the database file named by the descriptor's path to object storage.
Only SQLite databases are files; the bucket is created when missing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := filestore.ParseURL(args[0])
			if err != nil {
				return err
			}

			s, err := openSession(cmd, flags, false)
			if err != nil {
				return err
			}
			if s.cfg.Database.Driver != database.DriverSQLite {
				return fmt.Errorf("backup needs the sqlite engine, not %s", s.cfg.Database.Driver)
			}
			if _, err := os.Stat(s.db.Path); err != nil {
				return fmt.Errorf("database file: %w", err)
			}

			store, err := minio.New(cmd.Context(), &s.cfg.Storage)
			if err != nil {
				return err
			}
			defer store.Close()

			info, err := store.PutFile(cmd.Context(), loc.Bucket, loc.Key, s.db.Path)
			if err != nil {
				return err
			}
			s.log.Info("backup uploaded", logger.Fields{"path": s.db.Path, "object": loc.String(), "size": info.Size})
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Uploaded %s to %s (%d bytes)\n", s.db.Path, loc, info.Size)
			return nil
		},
	}
	return cmd
}
