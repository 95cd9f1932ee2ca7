package restquery

import (
	"context"

	"github.com/hugo-lorenzo-mato/askdb/internal/config"
	"github.com/hugo-lorenzo-mato/askdb/internal/core"
	"github.com/hugo-lorenzo-mato/askdb/internal/gateway"
	"github.com/hugo-lorenzo-mato/askdb/internal/logging"
)

// Executor implements core.SQLExecutor by parsing a restricted SELECT
// grammar and translating it into REST calls. The table allow-list is
// enforced after parsing, before any network call.
type Executor struct {
	client *Client
	cfg    *config.Config
	logger *logging.Logger
}

// NewExecutor creates the REST-backend executor.
func NewExecutor(client *Client, cfg *config.Config, logger *logging.Logger) *Executor {
	return &Executor{client: client, cfg: cfg, logger: logger}
}

// Execute validates, parses and runs one restricted SELECT.
func (e *Executor) Execute(ctx context.Context, rawSQL string) *core.SQLExecutionResult {
	sql := gateway.Normalize(rawSQL)

	fail := func(err error) *core.SQLExecutionResult {
		e.logger.Warn("rest query rejected", "error", err.Error())
		return &core.SQLExecutionResult{
			Status:       core.ExecError,
			SQL:          sql,
			ErrorMessage: core.UserMessage(err),
		}
	}

	q, err := Parse(sql)
	if err != nil {
		return fail(err)
	}

	if !e.cfg.TableAllowed(q.Table) {
		return fail(core.ErrSafety(core.CodeTableNotAllowed,
			"Table '"+q.Table+"' is not allowed."))
	}

	limit := q.Limit
	maxRows := e.cfg.MaxRows()
	if limit == 0 || limit > maxRows {
		limit = maxRows
	}

	// Fetch one row past the cap so truncation is observed rather
	// than guessed from a full page.
	rows, err := e.client.Fetch(ctx, q, limit+1)
	if err != nil {
		e.logger.Error("rest query failed", "error", err.Error(), "table", q.Table)
		return &core.SQLExecutionResult{
			Status:       core.ExecError,
			SQL:          sql,
			ErrorMessage: "query failed",
		}
	}

	sampled := len(rows) > limit
	if sampled {
		rows = rows[:limit]
	}

	set := core.ResultSet{
		Statement: sql,
		Columns:   q.Columns,
		Rows:      make([][]any, 0, len(rows)),
	}
	for _, row := range rows {
		values := make([]any, len(q.Columns))
		for i, col := range q.Columns {
			values[i] = row[col]
		}
		set.Rows = append(set.Rows, values)
	}
	set.RowCount = len(set.Rows)
	set.Sampled = sampled

	return &core.SQLExecutionResult{
		Status:     core.ExecSuccess,
		SQL:        sql,
		ResultSets: []core.ResultSet{set},
	}
}
