package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/askdb/internal/config"
	"github.com/hugo-lorenzo-mato/askdb/internal/gateway"
	"github.com/hugo-lorenzo-mato/askdb/internal/logging"
	"github.com/hugo-lorenzo-mato/askdb/internal/schema"
)

func newTestExecutor(t *testing.T, maxRows int) *Executor {
	t.Helper()

	db, err := sqlx.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	db.MustExec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)`)
	for i := 1; i <= 5; i++ {
		db.MustExec(`INSERT INTO users (name, age) VALUES (?, ?)`, fmt.Sprintf("user%d", i), 20+i)
	}

	return NewWithDB(db, gateway.New(), logging.NewNop(), maxRows)
}

func TestExecute_Select(t *testing.T) {
	e := newTestExecutor(t, 200)

	res := e.Execute(context.Background(), "SELECT name FROM users ORDER BY id LIMIT 3")
	require.True(t, res.OK(), "unexpected error: %s", res.ErrorMessage)
	require.Len(t, res.ResultSets, 1)

	primary := res.Primary()
	assert.Equal(t, []string{"name"}, primary.Columns)
	assert.Equal(t, 3, primary.RowCount)
	assert.Len(t, primary.Rows, primary.RowCount)
	assert.Equal(t, "user1", primary.Rows[0][0])
	assert.False(t, primary.Sampled)
}

func TestExecute_MultiStatementOrder(t *testing.T) {
	e := newTestExecutor(t, 200)

	res := e.Execute(context.Background(),
		"SELECT COUNT(*) AS n FROM users; SELECT name FROM users WHERE id = 1")
	require.True(t, res.OK())
	require.Len(t, res.ResultSets, 2)

	assert.Equal(t, []string{"n"}, res.ResultSets[0].Columns)
	assert.Equal(t, []string{"name"}, res.ResultSets[1].Columns)
	assert.Equal(t, res.ResultSets[0], res.Primary())
}

func TestExecute_RowCapAndSampledFlag(t *testing.T) {
	e := newTestExecutor(t, 2)

	res := e.Execute(context.Background(), "SELECT id FROM users ORDER BY id")
	require.True(t, res.OK())

	primary := res.Primary()
	assert.Len(t, primary.Rows, 2)
	assert.Equal(t, 2, primary.RowCount)
	assert.True(t, primary.Sampled, "cap below backend total must set sampled")
}

func TestExecute_RejectsMutationsWithoutTouchingDatabase(t *testing.T) {
	e := newTestExecutor(t, 200)

	res := e.Execute(context.Background(), "DELETE FROM users")
	require.False(t, res.OK())
	assert.Contains(t, res.ErrorMessage, "read-only")

	// The table is untouched.
	check := e.Execute(context.Background(), "SELECT COUNT(*) FROM users")
	require.True(t, check.OK())
	assert.EqualValues(t, 5, check.Primary().Rows[0][0])
}

func TestExecute_RejectsWholeBatch(t *testing.T) {
	e := newTestExecutor(t, 200)

	res := e.Execute(context.Background(), "SELECT id FROM users; DROP TABLE users;")
	require.False(t, res.OK())

	check := e.Execute(context.Background(), "SELECT COUNT(*) FROM users")
	require.True(t, check.OK(), "table must still exist")
}

func TestExecute_SanitizesDriverErrors(t *testing.T) {
	e := newTestExecutor(t, 200)

	res := e.Execute(context.Background(), "SELECT nope FROM missing_table")
	require.False(t, res.OK())
	assert.Equal(t, "query failed", res.ErrorMessage)
	assert.NotContains(t, strings.ToLower(res.ErrorMessage), "missing_table",
		"driver error text must not leak")
}

func TestExecute_Idempotent(t *testing.T) {
	e := newTestExecutor(t, 200)

	first := e.Execute(context.Background(), "SELECT id, name FROM users ORDER BY id")
	second := e.Execute(context.Background(), "SELECT id, name FROM users ORDER BY id")
	require.True(t, first.OK())
	require.True(t, second.OK())
	assert.Equal(t, first.ResultSets, second.ResultSets)
}

func TestExecute_NormalizesMarkdownFences(t *testing.T) {
	e := newTestExecutor(t, 200)

	res := e.Execute(context.Background(), "```sql\nSELECT name FROM users WHERE id = 2\n```")
	require.True(t, res.OK())
	assert.Equal(t, "user2", res.Primary().Rows[0][0])
	assert.Equal(t, "SELECT name FROM users WHERE id = 2", res.SQL)
}

func TestExecute_ResultSetInvariant(t *testing.T) {
	e := newTestExecutor(t, 200)

	res := e.Execute(context.Background(), "SELECT id, name, age FROM users")
	require.True(t, res.OK())
	for _, set := range res.ResultSets {
		assert.Equal(t, set.RowCount, len(set.Rows))
		for _, row := range set.Rows {
			assert.Len(t, row, len(set.Columns))
		}
	}
}

func TestExecute_ConcurrentQueries(t *testing.T) {
	e := newTestExecutor(t, 200)

	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := e.Execute(context.Background(), "SELECT id, name FROM users ORDER BY id")
			if !res.OK() {
				errs <- res.ErrorMessage
				return
			}
			if got := res.Primary().RowCount; got != 5 {
				errs <- fmt.Sprintf("unexpected row count %d", got)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Errorf("concurrent query failed: %s", msg)
	}
}

func TestReconnect_SchemaInspectorFollowsPool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconnect.db")

	seed, err := sqlx.Open("sqlite", path)
	require.NoError(t, err)
	seed.MustExec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`)
	seed.MustExec(`INSERT INTO users (name) VALUES ('ada')`)
	require.NoError(t, seed.Close())

	cfg := &config.Config{}
	cfg.Database.Dialect = "sqlite"
	cfg.Database.Database = path
	cfg.Query.AllowedTables = "users"

	e, err := Open(cfg, gateway.New(), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	insp := schema.NewCatalogInspector(e.DB, cfg, logging.NewNop())

	before, err := insp.Inspect(context.Background())
	require.NoError(t, err)
	require.Contains(t, before, "users")

	// The recovery path closes the pool the inspector was wired
	// against and swaps in a fresh one.
	require.NoError(t, e.reconnect(context.Background()))

	res := e.Execute(context.Background(), "SELECT name FROM users")
	require.True(t, res.OK(), "executor must keep working after its own reconnect")

	after, err := insp.Inspect(context.Background())
	require.NoError(t, err, "inspector must resolve the replaced pool")
	assert.Contains(t, after, "users")
}

func TestDriverName(t *testing.T) {
	assert.Equal(t, "pgx", driverName(config.DialectPostgres))
	assert.Equal(t, "mysql", driverName(config.DialectMySQL))
	assert.Equal(t, "sqlite", driverName(config.DialectSQLite))
}

func TestBuildDSN(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Dialect = "mysql"
	cfg.Database.User = "app"
	cfg.Database.Password = "pw"
	cfg.Database.Host = "db"
	cfg.Database.Port = 3306
	cfg.Database.Database = "shop"
	assert.Equal(t, "app:pw@tcp(db:3306)/shop?parseTime=true", buildDSN(cfg))

	cfg.Database.DSN = "postgres://x:y@z/custom"
	assert.Equal(t, "postgres://x:y@z/custom", buildDSN(cfg), "explicit dsn wins")
}
