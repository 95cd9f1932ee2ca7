package workflow

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/askdb/internal/config"
	"github.com/hugo-lorenzo-mato/askdb/internal/core"
	"github.com/hugo-lorenzo-mato/askdb/internal/logging"
)

// executorFunc adapts a stateless function to core.SQLExecutor for
// tests that run requests in parallel.
type executorFunc func(context.Context, string) *core.SQLExecutionResult

func (f executorFunc) Execute(ctx context.Context, sql string) *core.SQLExecutionResult {
	return f(ctx, sql)
}

type fakeExecutor struct {
	fn    func(sql string) *core.SQLExecutionResult
	calls int
}

func (f *fakeExecutor) Execute(_ context.Context, sql string) *core.SQLExecutionResult {
	f.calls++
	return f.fn(sql)
}

type fakeInspector struct {
	schemas core.TableSchema
	err     error
}

func (f *fakeInspector) Inspect(_ context.Context, _ ...string) (core.TableSchema, error) {
	return f.schemas, f.err
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Database.Dialect = "sqlite"
	cfg.Query.AllowedTables = "users"
	cfg.Query.MaxRows = "200"
	return cfg
}

func testSchemas() core.TableSchema {
	return core.TableSchema{"users": {{Name: "id", Type: "INTEGER"}, {Name: "name", Type: "TEXT"}}}
}

func successResult(sql string) *core.SQLExecutionResult {
	return &core.SQLExecutionResult{
		Status: core.ExecSuccess,
		SQL:    sql,
		ResultSets: []core.ResultSet{{
			Statement: sql,
			Columns:   []string{"id", "name"},
			Rows:      [][]any{{int64(1), "ann"}},
			RowCount:  1,
		}},
	}
}

// scriptedGenerator answers each generation kind from a fixed script,
// recording per-kind call counts and the refinements seen.
type scriptedGenerator struct {
	sql         []string
	chart       []string
	answer      []string
	sqlCalls    int
	chartCalls  int
	answerCalls int
	refinements []string
}

func (g *scriptedGenerator) Generate(_ context.Context, req core.GenerationRequest) (string, error) {
	pick := func(script []string, call int) string {
		if call < len(script) {
			return script[call]
		}
		return script[len(script)-1]
	}
	switch req.Kind {
	case core.GenerateSQL:
		if req.Refinement != "" {
			g.refinements = append(g.refinements, req.Refinement)
		}
		out := pick(g.sql, g.sqlCalls)
		g.sqlCalls++
		return out, nil
	case core.GenerateChartSpec:
		out := pick(g.chart, g.chartCalls)
		g.chartCalls++
		return out, nil
	default:
		out := pick(g.answer, g.answerCalls)
		g.answerCalls++
		return out, nil
	}
}

func TestAsk_HappyPath(t *testing.T) {
	gen := &scriptedGenerator{
		sql:    []string{"SELECT id, name FROM users"},
		chart:  []string{`{"type":"bar","x":"name","y":"id","title":"users"}`},
		answer: []string{"There is one user, ann."},
	}
	exec := &fakeExecutor{fn: successResult}
	o := New(gen, exec, &fakeInspector{schemas: testSchemas()}, testConfig(), logging.NewNop())

	resp, err := o.Ask(context.Background(), "who are the users?")
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, "There is one user, ann.", resp.Answer)
	assert.Equal(t, "bar", resp.PlotConfig.Type())
	assert.Equal(t, "SELECT id, name FROM users", resp.SQL)
	assert.Equal(t, 1, gen.sqlCalls)
	assert.Equal(t, 1, exec.calls)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	o := New(&scriptedGenerator{}, &fakeExecutor{}, &fakeInspector{}, testConfig(), logging.NewNop())

	_, err := o.Ask(context.Background(), "   ")
	var domainErr *core.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, core.CodeEmptyQuestion, domainErr.Code)
}

func TestAsk_ChartRetryRerunsSQL(t *testing.T) {
	gen := &scriptedGenerator{
		sql: []string{"SELECT name FROM users", "SELECT name, count(*) FROM users"},
		chart: []string{
			`{"retry":"group results so counts can be plotted"}`,
			`{"type":"bar","x":"name","y":"count"}`,
		},
		answer: []string{"done"},
	}
	exec := &fakeExecutor{fn: successResult}
	o := New(gen, exec, &fakeInspector{schemas: testSchemas()}, testConfig(), logging.NewNop())

	resp, err := o.Ask(context.Background(), "counts per user?")
	require.NoError(t, err)

	assert.Equal(t, 2, gen.sqlCalls, "chart retry must rerun the SQL stage")
	require.Len(t, gen.refinements, 1)
	assert.Equal(t, "group results so counts can be plotted", gen.refinements[0])
	assert.Equal(t, "bar", resp.PlotConfig.Type())
	assert.Equal(t, "SELECT name, count(*) FROM users", resp.SQL)
}

func TestAsk_AttemptCeilingStopsRetries(t *testing.T) {
	gen := &scriptedGenerator{
		sql:    []string{"SELECT name FROM users"},
		chart:  []string{`{"retry":"still not plottable"}`},
		answer: []string{"best effort answer"},
	}
	exec := &fakeExecutor{fn: successResult}
	o := New(gen, exec, &fakeInspector{schemas: testSchemas()}, testConfig(), logging.NewNop())

	resp, err := o.Ask(context.Background(), "plot something impossible")
	require.NoError(t, err)

	assert.Equal(t, core.MaxSQLAttempts, gen.sqlCalls,
		"SQL stage must run exactly the ceiling, no more")
	assert.Equal(t, "best effort answer", resp.Answer)
	assert.Equal(t, "none", resp.PlotConfig.Type(), "forced chart stage degrades to no chart")
	assert.NotEmpty(t, resp.SQL)
}

func TestAsk_ExecutionFailuresDegradeToDefaults(t *testing.T) {
	gen := &scriptedGenerator{
		sql:    []string{"SELECT nope FROM users"},
		chart:  []string{`{"type":"bar"}`},
		answer: []string{"unused"},
	}
	exec := &fakeExecutor{fn: func(sql string) *core.SQLExecutionResult {
		return &core.SQLExecutionResult{Status: core.ExecError, SQL: sql, ErrorMessage: "query failed"}
	}}
	o := New(gen, exec, &fakeInspector{schemas: testSchemas()}, testConfig(), logging.NewNop())

	resp, err := o.Ask(context.Background(), "broken question")
	require.NoError(t, err)

	assert.Equal(t, core.MaxSQLAttempts, exec.calls)
	assert.Equal(t, "No answer available.", resp.Answer)
	assert.Equal(t, "none", resp.PlotConfig.Type())
	assert.Equal(t, "plot_config unavailable", resp.PlotConfig["reason"])
	// The failure message refines each regenerated attempt.
	assert.Len(t, gen.refinements, core.MaxSQLAttempts-1)
	assert.Equal(t, "query failed", gen.refinements[0])
}

func TestAsk_SchemaFailureIsTerminal(t *testing.T) {
	gen := &scriptedGenerator{sql: []string{"unused"}}
	exec := &fakeExecutor{fn: successResult}
	inspector := &fakeInspector{err: core.ErrConfig("query.allowed_tables must not be empty")}
	o := New(gen, exec, inspector, testConfig(), logging.NewNop())

	resp, err := o.Ask(context.Background(), "anything")
	require.NoError(t, err)

	assert.Equal(t, "query.allowed_tables must not be empty", resp.Answer)
	assert.Equal(t, "none", resp.PlotConfig.Type())
	assert.Equal(t, "error", resp.PlotConfig["reason"])
	assert.Empty(t, resp.SQL)
	assert.Zero(t, exec.calls, "no SQL may run without schemas")
}

func TestAsk_CapabilityFailureAtInterpretDegrades(t *testing.T) {
	gen := core.GeneratorFunc(func(_ context.Context, req core.GenerationRequest) (string, error) {
		switch req.Kind {
		case core.GenerateSQL:
			return "SELECT id FROM users", nil
		case core.GenerateChartSpec:
			return `{"type":"line","x":"id","y":"id"}`, nil
		default:
			return "", core.ErrCapability("generation timed out")
		}
	})
	exec := &fakeExecutor{fn: successResult}
	o := New(gen, exec, &fakeInspector{schemas: testSchemas()}, testConfig(), logging.NewNop())

	resp, err := o.Ask(context.Background(), "who?")
	require.NoError(t, err)

	assert.Equal(t, "No answer available.", resp.Answer)
	assert.Equal(t, "line", resp.PlotConfig.Type(), "chart survives an interpret failure")
	assert.Equal(t, 1, exec.calls, "capability failure downstream must not rerun SQL")
}

func TestAsk_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(&scriptedGenerator{}, &fakeExecutor{}, &fakeInspector{}, testConfig(), logging.NewNop())
	_, err := o.Ask(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChartStage_MissingResultNeedsRetry(t *testing.T) {
	o := New(&scriptedGenerator{}, &fakeExecutor{}, &fakeInspector{}, testConfig(), logging.NewNop())
	state := core.NewWorkflowState("req", "q")

	status := o.runChartStage(context.Background(), state, logging.NewNop(), false)
	require.True(t, status.IsNeedsRetry())
	assert.NotEmpty(t, status.Refinement)

	forcedStatus := o.runChartStage(context.Background(), state, logging.NewNop(), true)
	assert.True(t, forcedStatus.IsSuccess(), "forced mode never emits NeedsRetry")
}

func TestOutputStage_ReportsDefaults(t *testing.T) {
	o := New(&scriptedGenerator{}, &fakeExecutor{}, &fakeInspector{}, testConfig(), logging.NewNop())
	state := core.NewWorkflowState("req", "q")

	status := o.runOutputStage(state, logging.NewNop())
	require.True(t, status.IsSuccess())
	assert.Contains(t, status.Message, "answer")
	assert.Contains(t, status.Message, "plot_config")
	assert.Contains(t, status.Message, "sql")
	require.NotNil(t, state.FinalResponse)
	assert.Equal(t, "No answer available.", state.FinalResponse.Answer)
}

func TestAsk_ConcurrentRequestsAreIsolated(t *testing.T) {
	gen := core.GeneratorFunc(func(_ context.Context, req core.GenerationRequest) (string, error) {
		switch req.Kind {
		case core.GenerateSQL:
			return "SELECT id, name FROM users WHERE name = '" + req.Question + "'", nil
		case core.GenerateChartSpec:
			return `{"type":"bar","x":"name","y":"id","title":"` + req.Question + `"}`, nil
		default:
			return "answer for " + req.Question, nil
		}
	})
	exec := executorFunc(func(_ context.Context, sql string) *core.SQLExecutionResult {
		return successResult(sql)
	})
	o := New(gen, exec, &fakeInspector{schemas: testSchemas()}, testConfig(), logging.NewNop())

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		question := fmt.Sprintf("question %d", i)
		g.Go(func() error {
			resp, err := o.Ask(context.Background(), question)
			if err != nil {
				return err
			}
			if !strings.Contains(resp.SQL, question) {
				return fmt.Errorf("sql %q does not carry %q", resp.SQL, question)
			}
			if resp.Answer != "answer for "+question {
				return fmt.Errorf("answer %q belongs to another request", resp.Answer)
			}
			if title, _ := resp.PlotConfig["title"].(string); title != question {
				return fmt.Errorf("plot title %q belongs to another request", title)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestFormatResult(t *testing.T) {
	res := successResult("SELECT id, name FROM users")
	out := FormatResult(res, 20, true)
	assert.Contains(t, out, `"row_count":1`)
	assert.Contains(t, out, `"sample_size":1`)
	assert.Contains(t, out, `"ann"`)

	var rows [][]any
	for i := 0; i < 30; i++ {
		rows = append(rows, []any{i})
	}
	big := &core.SQLExecutionResult{
		Status: core.ExecSuccess,
		SQL:    "SELECT n FROM numbers",
		ResultSets: []core.ResultSet{{
			Statement: "SELECT n FROM numbers",
			Columns:   []string{"n"},
			Rows:      rows,
			RowCount:  30,
		}},
	}
	capped := FormatResult(big, 20, false)
	assert.Contains(t, capped, `"row_count":30`)
	assert.Contains(t, capped, `"sample_size":20`)

	assert.Equal(t, "{}", FormatResult(nil, 20, false))
	if !strings.Contains(out, `"sql":"SELECT id, name FROM users"`) {
		t.Fatalf("formatted result missing sql: %s", out)
	}
}
