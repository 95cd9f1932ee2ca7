package config

import "strings"

// Config holds all application configuration. It is resolved once at
// startup and read-only afterwards; changing it requires a restart.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Query    QueryConfig    `mapstructure:"query"`
	AI       AIConfig       `mapstructure:"ai"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	EnableCORS bool   `mapstructure:"enable_cors"`
}

// DatabaseConfig configures the backing store connection.
type DatabaseConfig struct {
	// Dialect selects the SQL dialect: postgres, mysql or sqlite.
	// Aliases (pg, postgresql, mariadb, sqlite3) are normalized.
	Dialect string `mapstructure:"dialect"`

	// Backend selects the execution strategy: "sql" runs validated
	// statements directly; "rest" parses a restricted SELECT grammar
	// and translates it into PostgREST-style HTTP calls.
	Backend string `mapstructure:"backend"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Schema   string `mapstructure:"schema"`

	// DSN overrides the individual connection fields when set.
	DSN string `mapstructure:"dsn"`

	// REST backend endpoint and key.
	RestURL string `mapstructure:"rest_url"`
	RestKey string `mapstructure:"rest_key"`

	MaxOpenConns int `mapstructure:"max_open_conns"`
}

// QueryConfig configures query safety limits.
type QueryConfig struct {
	// AllowedTables is the comma-separated table allow-list. The
	// target table is auto-appended when absent.
	AllowedTables string `mapstructure:"allowed_tables"`
	TargetTable   string `mapstructure:"target_table"`

	// MaxRows caps the primary result set. Raw string so a bad value
	// falls back to the default instead of failing startup.
	MaxRows string `mapstructure:"max_rows"`
}

// AIConfig configures the generation capability endpoint.
type AIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Endpoint    string  `mapstructure:"endpoint"`
	Model       string  `mapstructure:"model"`
	Timeout     string  `mapstructure:"timeout"`
	Temperature float64 `mapstructure:"temperature"`
}

// DefaultMaxRows is used when query.max_rows is unset or unparseable.
const DefaultMaxRows = 200

// Dialect constants.
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

// Backend constants.
const (
	BackendSQL  = "sql"
	BackendREST = "rest"
)

var dialectAliases = map[string]string{
	"pg":         DialectPostgres,
	"postgres":   DialectPostgres,
	"postgresql": DialectPostgres,
	"mysql":      DialectMySQL,
	"mariadb":    DialectMySQL,
	"sqlite":     DialectSQLite,
	"sqlite3":    DialectSQLite,
}

// NormalizeDialect maps dialect aliases to their canonical name.
// Unknown values default to postgres.
func NormalizeDialect(dialect string) string {
	if d, ok := dialectAliases[strings.ToLower(strings.TrimSpace(dialect))]; ok {
		return d
	}
	return DialectPostgres
}

// AllowedTables returns the parsed allow-list with the target table
// appended when missing. Order is preserved; matching is
// case-insensitive.
func (c *Config) AllowedTables() []string {
	var tables []string
	seen := map[string]bool{}
	for _, t := range strings.Split(c.Query.AllowedTables, ",") {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		tables = append(tables, t)
	}
	if target := strings.TrimSpace(c.Query.TargetTable); target != "" && !seen[strings.ToLower(target)] {
		tables = append(tables, target)
	}
	return tables
}

// TableAllowed reports whether a table is in the allow-list,
// case-insensitively.
func (c *Config) TableAllowed(table string) bool {
	for _, t := range c.AllowedTables() {
		if strings.EqualFold(t, table) {
			return true
		}
	}
	return false
}

// MaxRows returns the row cap, falling back to DefaultMaxRows when the
// configured value is missing or unparseable.
func (c *Config) MaxRows() int {
	return parseMaxRows(c.Query.MaxRows)
}

// Dialect returns the normalized database dialect.
func (c *Config) Dialect() string {
	return NormalizeDialect(c.Database.Dialect)
}
