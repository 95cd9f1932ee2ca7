// Package executor runs validated SQL against the backing store. Every
// submission passes through the safety gateway first; driver errors are
// sanitized before they reach the caller.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"

	// Database drivers, selected by dialect at open time.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/hugo-lorenzo-mato/askdb/internal/config"
	"github.com/hugo-lorenzo-mato/askdb/internal/core"
	"github.com/hugo-lorenzo-mato/askdb/internal/gateway"
	"github.com/hugo-lorenzo-mato/askdb/internal/logging"
)

// Executor validates and executes SQL statements. Safe for concurrent
// use: the underlying *sql.DB is a pool, and reconnect bookkeeping is
// mutex-protected.
type Executor struct {
	gateway *gateway.Gateway
	logger  *logging.Logger
	maxRows int
	driver  string
	dsn     string

	mu sync.Mutex
	db *sqlx.DB
}

// Open connects to the configured database and returns an Executor.
func Open(cfg *config.Config, gw *gateway.Gateway, logger *logging.Logger) (*Executor, error) {
	e := &Executor{
		gateway: gw,
		logger:  logger,
		maxRows: cfg.MaxRows(),
		driver:  driverName(cfg.Dialect()),
		dsn:     buildDSN(cfg),
	}

	db, err := sqlx.Open(e.driver, e.dsn)
	if err != nil {
		return nil, core.ErrExecution(core.CodeConnectFailed, "database unavailable").WithCause(err)
	}
	if cfg.Dialect() == config.DialectSQLite {
		// modernc's driver is happiest with a single writer; reads
		// share the same in-process handle.
		db.SetMaxOpenConns(1)
	} else if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	e.db = db
	return e, nil
}

// NewWithDB wraps an existing connection, used by tests and callers
// that manage the pool lifecycle themselves.
func NewWithDB(db *sqlx.DB, gw *gateway.Gateway, logger *logging.Logger, maxRows int) *Executor {
	return &Executor{gateway: gw, logger: logger, maxRows: maxRows, db: db}
}

// Close releases the connection pool.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}

// MaxRows returns the configured row cap.
func (e *Executor) MaxRows() int { return e.maxRows }

// DB exposes the pool for the schema inspector.
func (e *Executor) DB() *sqlx.DB {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.db
}

// Execute validates sql and runs each statement in order within one
// session. The returned result is always non-nil; failures carry a
// sanitized message only. One transparent reconnect and batch retry is
// performed on a stale connection before an error surfaces.
func (e *Executor) Execute(ctx context.Context, rawSQL string) *core.SQLExecutionResult {
	normalized := gateway.Normalize(rawSQL)

	statements, err := e.gateway.ValidateAndSplit(rawSQL)
	if err != nil {
		e.logger.Warn("sql rejected", "error", err.Error())
		return &core.SQLExecutionResult{
			Status:       core.ExecError,
			SQL:          normalized,
			ErrorMessage: core.UserMessage(err),
		}
	}

	sets, err := e.runBatch(ctx, statements)
	if err != nil && isConnectionError(err) {
		e.logger.Warn("stale connection, reconnecting", "error", err.Error())
		if rerr := e.reconnect(ctx); rerr == nil {
			sets, err = e.runBatch(ctx, statements)
		}
	}
	if err != nil {
		// Keep the driver detail for logs only.
		e.logger.Error("query failed", "error", err.Error(), "sql", normalized)
		return &core.SQLExecutionResult{
			Status:       core.ExecError,
			SQL:          normalized,
			ErrorMessage: "query failed",
		}
	}

	if len(sets) == 0 {
		sets = []core.ResultSet{{Statement: normalized, Columns: []string{}, Rows: [][]any{}}}
	}
	return &core.SQLExecutionResult{
		Status:     core.ExecSuccess,
		SQL:        normalized,
		ResultSets: sets,
	}
}

// runBatch executes all statements on a single connection so session
// state (e.g. search_path) holds across the batch.
func (e *Executor) runBatch(ctx context.Context, statements []string) ([]core.ResultSet, error) {
	db := e.DB()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	conn, err := db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	sets := make([]core.ResultSet, 0, len(statements))
	for _, stmt := range statements {
		set, err := e.runStatement(ctx, conn, stmt)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func (e *Executor) runStatement(ctx context.Context, conn *sqlx.Conn, stmt string) (core.ResultSet, error) {
	rows, err := conn.QueryContext(ctx, stmt)
	if err != nil {
		return core.ResultSet{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return core.ResultSet{}, err
	}

	set := core.ResultSet{
		Statement: stmt,
		Columns:   columns,
		Rows:      [][]any{},
	}

	// Metadata-only statements report no columns on some backends.
	if len(columns) == 0 {
		set.Columns = []string{}
		return set, rows.Err()
	}

	total := 0
	for rows.Next() {
		total++
		if e.maxRows >= 0 && len(set.Rows) >= e.maxRows {
			// Keep counting so Sampled reflects the backend total.
			continue
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return core.ResultSet{}, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		set.Rows = append(set.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return core.ResultSet{}, err
	}

	set.RowCount = len(set.Rows)
	set.Sampled = total > len(set.Rows)
	return set, nil
}

// reconnect replaces the pool after a liveness failure. Exactly one
// reconnect per Execute call; concurrent callers share the fresh pool.
func (e *Executor) reconnect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dsn == "" {
		// Injected pools (tests) have no DSN to reopen from.
		return e.db.PingContext(ctx)
	}

	old := e.db
	db, err := sqlx.Open(e.driver, e.dsn)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	e.db = db
	if old != nil {
		old.Close()
	}
	return nil
}

// isConnectionError classifies failures that a reconnect might cure.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range []string{"bad connection", "broken pipe", "connection refused", "connection reset", "closed network"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
