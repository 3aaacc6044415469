package sqldb

import (
	"database/sql"

	"github.com/koustreak/DatAct/internal/errs"
)

// pool returns the shared *sql.DB for dsn, opening it on first use.
func (e *Engine) pool(dsn string) (*sql.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if db, ok := e.pools[dsn]; ok {
		return db, nil
	}

	db, err := sql.Open(e.driverName, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	// Pool settings
	if e.cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(e.cfg.MaxConns))
	}
	if e.cfg.MinConns > 0 {
		db.SetMaxIdleConns(int(e.cfg.MinConns))
	}
	db.SetConnMaxLifetime(e.cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(e.cfg.MaxConnIdleTime)

	e.pools[dsn] = db
	return db, nil
}
