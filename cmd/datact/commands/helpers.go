package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koustreak/DatAct/internal/config"
	"github.com/koustreak/DatAct/internal/database"
	"github.com/koustreak/DatAct/internal/database/mysql"
	"github.com/koustreak/DatAct/internal/database/postgres"
	"github.com/koustreak/DatAct/internal/database/sqlite"
	"github.com/koustreak/DatAct/internal/dispatch"
	"github.com/koustreak/DatAct/internal/filestore"
	"github.com/koustreak/DatAct/internal/filestore/minio"
	"github.com/koustreak/DatAct/internal/logger"
	"github.com/koustreak/DatAct/internal/schema"
	"github.com/koustreak/DatAct/internal/sqlgen"
)

// loadConfig reads the config file and lets explicit flags win over it.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	return config.Load(flags.config, func(cfg *config.Config) {
		if flags.engine != "" {
			cfg.Database.Driver = database.Driver(flags.engine)
		}
		if flags.dsn != "" {
			cfg.Database.DSN = flags.dsn
		}
		if flags.schema != "" {
			cfg.Schema = flags.schema
		}
		if flags.logLevel != "" {
			cfg.Log.Level = flags.logLevel
		}
	})
}

// loadSchema reads the descriptor from a file or from object storage.
func loadSchema(ctx context.Context, cfg *config.Config) (*schema.Database, error) {
	if cfg.Schema == "" {
		return nil, fmt.Errorf("no schema descriptor: use --schema or set schema in the config file")
	}
	if !filestore.IsURL(cfg.Schema) {
		return schema.Load(cfg.Schema)
	}

	loc, err := filestore.ParseURL(cfg.Schema)
	if err != nil {
		return nil, err
	}
	store, err := minio.New(ctx, &cfg.Storage)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	data, err := filestore.ReadAll(ctx, store, loc)
	if err != nil {
		return nil, err
	}
	return schema.Parse(data)
}

// newEngine builds the engine named by cfg and returns a func releasing it.
func newEngine(cfg *config.Config) (database.Engine, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Database.Driver {
	case database.DriverSQLite:
		return sqlite.New(&cfg.Database), noop, nil
	case database.DriverMySQL:
		eng := mysql.New(&cfg.Database)
		return eng, eng.Close, nil
	case database.DriverPostgres:
		eng := postgres.New(&cfg.Database)
		return eng, func() error { eng.Close(); return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown engine %q", cfg.Database.Driver)
	}
}

// session is everything a command needs to perform actions.
type session struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *schema.Database
	gen     *sqlgen.Generator
	handler *dispatch.Handler
	release func() error
}

// openSession loads config and schema. withEngine also builds the engine
// and a Handler; gen-only commands leave it false.
func openSession(cmd *cobra.Command, flags *globalFlags, withEngine bool) (*session, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	log := logger.New(&cfg.Log)

	db, err := loadSchema(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	dialect := sqlgen.DialectFor(string(cfg.Database.Driver))
	s := &session{
		cfg:     cfg,
		log:     log,
		db:      db,
		gen:     sqlgen.New(sqlgen.WithCapacity(cfg.ScriptCapacity), sqlgen.WithDialect(dialect)),
		release: func() error { return nil },
	}
	if !withEngine {
		return s, nil
	}

	eng, release, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	s.release = release
	s.handler = dispatch.New(eng,
		dispatch.WithLogger(log),
		dispatch.WithDialect(dialect),
		dispatch.WithScriptCapacity(cfg.ScriptCapacity),
		dispatch.WithPoolCapacity(cfg.Handles),
	)
	return s, nil
}

// Close closes every open database and releases the engine.
func (s *session) Close() error {
	var first error
	if s.handler != nil {
		first = s.handler.CloseAll()
	}
	if err := s.release(); err != nil && first == nil {
		first = err
	}
	return first
}

// selectionFlags name the table, columns and values of one action.
type selectionFlags struct {
	table  string
	fields []string
	values map[string]string
	key    string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.table, "table", "t", "", "table name or alias (default the first table)")
	cmd.Flags().StringSliceVarP(&f.fields, "fields", "f", nil, "columns to use, or * for all")
	cmd.Flags().StringToStringVar(&f.values, "set", nil, "column values, e.g. --set id=7,name=bolt")
	cmd.Flags().StringVarP(&f.key, "key", "k", "", "ad-hoc key template overriding the canned key, e.g. \"w.id = %\"")
}

func (f *selectionFlags) selection() schema.Selection {
	return schema.Selection{Table: f.table, Fields: f.fields, Values: f.values}
}
