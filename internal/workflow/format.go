package workflow

import (
	"encoding/json"

	"github.com/hugo-lorenzo-mato/askdb/internal/core"
)

// promptSampleRows bounds how many rows per result set are embedded in
// chart generation prompts. The interpret stage sends all rows because
// the executor already capped them at max_rows.
const promptSampleRows = 20

type formattedSet struct {
	SQL        string   `json:"sql"`
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	RowCount   int      `json:"row_count"`
	SampleSize int      `json:"sample_size"`
}

type formattedResult struct {
	SQL        string         `json:"sql"`
	ResultSets []formattedSet `json:"result_sets"`
}

// FormatResult renders an execution result as compact JSON for prompt
// embedding. includeAllRows skips the per-set sample cap.
func FormatResult(res *core.SQLExecutionResult, maxRows int, includeAllRows bool) string {
	if res == nil {
		return "{}"
	}

	out := formattedResult{SQL: res.SQL}
	for _, set := range res.ResultSets {
		rows := set.Rows
		if !includeAllRows && len(rows) > maxRows {
			rows = rows[:maxRows]
		}
		if rows == nil {
			rows = [][]any{}
		}
		columns := set.Columns
		if columns == nil {
			columns = []string{}
		}
		out.ResultSets = append(out.ResultSets, formattedSet{
			SQL:        set.Statement,
			Columns:    columns,
			Rows:       rows,
			RowCount:   set.RowCount,
			SampleSize: len(rows),
		})
	}
	if out.ResultSets == nil {
		out.ResultSets = []formattedSet{}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "{}"
	}
	return string(data)
}
