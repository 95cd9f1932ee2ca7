package core

// ResultSet holds one statement's columns and rows from execution.
// RowCount equals len(Rows) whenever the statement returned rows; for
// statements without a row-returning result it reflects the driver's
// affected-row count, which is always 0 for read-only statements.
type ResultSet struct {
	Statement string   `json:"sql"`
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`

	// Sampled is true when Rows holds fewer rows than the backend
	// reported in total (the max_rows cap was hit).
	Sampled bool `json:"sampled,omitempty"`
}

// ExecStatus is the outcome of an execution request.
type ExecStatus string

const (
	ExecSuccess ExecStatus = "success"
	ExecError   ExecStatus = "error"
)

// SQLExecutionResult is the executor's response for one SQL submission.
// ResultSets is never empty on success; the first element is the primary
// result consumed by downstream stages.
type SQLExecutionResult struct {
	Status       ExecStatus  `json:"status"`
	SQL          string      `json:"sql"`
	ResultSets   []ResultSet `json:"result_sets,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// Primary returns the designated primary result set, or an empty set if
// none exists.
func (r *SQLExecutionResult) Primary() ResultSet {
	if len(r.ResultSets) == 0 {
		return ResultSet{}
	}
	return r.ResultSets[0]
}

// OK reports whether the execution succeeded.
func (r *SQLExecutionResult) OK() bool {
	return r != nil && r.Status == ExecSuccess
}

// Column describes one column of an inspected table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableSchema maps allow-listed table names to their ordered columns.
type TableSchema map[string][]Column

// PlotConfig is a chart specification. Type is required; the remaining
// shape is chart-type specific and passed through to the caller.
type PlotConfig map[string]any

// Type returns the chart type, or empty string when absent.
func (p PlotConfig) Type() string {
	t, _ := p["type"].(string)
	return t
}

// NonePlot builds the defaulted "no chart" specification.
func NonePlot(reason string) PlotConfig {
	return PlotConfig{"type": "none", "reason": reason}
}

// FinalResponse is the structured response returned at the process
// boundary.
type FinalResponse struct {
	Answer     string     `json:"answer"`
	PlotConfig PlotConfig `json:"plot_config"`
	SQL        string     `json:"sql"`
}
