package mysql

import (
	gomysql "github.com/go-sql-driver/mysql"

	"github.com/koustreak/DatAct/internal/database"
)

const defaultAddr = "127.0.0.1:3306"

// buildDSN combines the server DSN with the database name.
// An empty name keeps the database named in the DSN.
func buildDSN(cfg *database.Config, name string) (string, error) {
	mc, err := gomysql.ParseDSN(cfg.DSN)
	if err != nil {
		return "", err
	}
	if mc.Addr == "" {
		mc.Net, mc.Addr = "tcp", defaultAddr
	}
	if name != "" {
		mc.DBName = name
	}
	// init scripts carry several statements
	mc.MultiStatements = true
	if cfg.ConnectTimeout > 0 {
		mc.Timeout = cfg.ConnectTimeout
	}
	return mc.FormatDSN(), nil
}
