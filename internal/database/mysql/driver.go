// Package mysql provides the MySQL engine: the generic database/sql
// engine wired to go-sql-driver/mysql with MySQL DSN handling and error
// classification.
package mysql

import (
	_ "github.com/go-sql-driver/mysql" // register "mysql" driver

	"github.com/koustreak/DatAct/internal/database"
	"github.com/koustreak/DatAct/internal/database/sqldb"
)

// New returns an engine whose Open path names the database to use on the
// server described by cfg.DSN.
func New(cfg *database.Config) *sqldb.Engine {
	return sqldb.New("mysql", cfg,
		sqldb.WithDSN(func(path string) (string, error) { return buildDSN(cfg, path) }),
		sqldb.WithErrorMapper(mapError),
	)
}
