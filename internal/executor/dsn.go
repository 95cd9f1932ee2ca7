package executor

import (
	"fmt"
	"net/url"

	"github.com/hugo-lorenzo-mato/askdb/internal/config"
)

// driverName maps a normalized dialect to its database/sql driver.
func driverName(dialect string) string {
	switch dialect {
	case config.DialectMySQL:
		return "mysql"
	case config.DialectSQLite:
		return "sqlite"
	default:
		return "pgx"
	}
}

// buildDSN assembles a connection string from the configured fields.
// An explicit database.dsn always wins.
func buildDSN(cfg *config.Config) string {
	db := cfg.Database
	if db.DSN != "" {
		return db.DSN
	}

	switch cfg.Dialect() {
	case config.DialectMySQL:
		// user:pass@tcp(host:port)/dbname
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			db.User, db.Password, db.Host, db.Port, db.Database)
	case config.DialectSQLite:
		if db.Database == "" {
			return "file::memory:?cache=shared"
		}
		return db.Database
	default:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(db.User, db.Password),
			Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
			Path:   "/" + db.Database,
		}
		q := u.Query()
		if db.Schema != "" && db.Schema != "public" {
			q.Set("search_path", db.Schema)
		}
		u.RawQuery = q.Encode()
		return u.String()
	}
}
