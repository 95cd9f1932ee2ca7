package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Defaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigFile("").Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DialectPostgres, cfg.Dialect())
	assert.Equal(t, BackendSQL, cfg.Database.Backend)
	assert.Equal(t, "public", cfg.Database.Schema)
	assert.Equal(t, DefaultMaxRows, cfg.MaxRows())
}

func TestConfig_AllowedTables(t *testing.T) {
	cfg := &Config{}
	cfg.Query.AllowedTables = "users, orders ,, users"
	cfg.Query.TargetTable = "events"

	tables := cfg.AllowedTables()
	assert.Equal(t, []string{"users", "orders", "events"}, tables)

	// Target already present (case-insensitive) is not duplicated.
	cfg.Query.TargetTable = "USERS"
	assert.Equal(t, []string{"users", "orders"}, cfg.AllowedTables())

	assert.True(t, cfg.TableAllowed("Orders"))
	assert.False(t, cfg.TableAllowed("secrets"))
}

func TestConfig_MaxRowsFallback(t *testing.T) {
	cfg := &Config{}

	cfg.Query.MaxRows = "50"
	assert.Equal(t, 50, cfg.MaxRows())

	cfg.Query.MaxRows = "not-a-number"
	assert.Equal(t, DefaultMaxRows, cfg.MaxRows())

	cfg.Query.MaxRows = "-1"
	assert.Equal(t, DefaultMaxRows, cfg.MaxRows())

	cfg.Query.MaxRows = "0"
	assert.Equal(t, 0, cfg.MaxRows())
}

func TestNormalizeDialect(t *testing.T) {
	cases := map[string]string{
		"pg":         DialectPostgres,
		"PostgreSQL": DialectPostgres,
		"mariadb":    DialectMySQL,
		"mysql":      DialectMySQL,
		"sqlite3":    DialectSQLite,
		"":           DialectPostgres,
		"oracle":     DialectPostgres,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeDialect(in), "dialect %q", in)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Backend = "graphql"
	cfg.Server.Port = 70000
	cfg.AI.Timeout = "soon"

	err := Validate(cfg)
	require.Error(t, err)
	verrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, verrs, 3)

	cfg = &Config{}
	cfg.Database.Backend = BackendREST
	err = Validate(cfg)
	require.Error(t, err, "rest backend requires rest_url")

	cfg.Database.RestURL = "http://localhost:3000"
	assert.NoError(t, Validate(cfg))
}
