package core

// RetryRequest records a downstream stage's request to rerun the SQL
// stage, with the refinement reason and the stage that asked for it.
type RetryRequest struct {
	Reason string `json:"reason"`
	Source string `json:"source"`
}

// WorkflowState is the per-request scratchpad shared by all stages.
// It is owned by exactly one in-flight request; stages run sequentially,
// so no locking is needed. Fields are named rather than string-keyed so a
// rerun of the SQL stage cannot forget to clear a derived value.
type WorkflowState struct {
	RequestID string
	Question  string

	// Populated by schema inspection.
	TableSchemas  TableSchema
	AllowedTables []string

	// Populated by the SQL stage.
	GeneratedSQL string
	SQLResult    *SQLExecutionResult

	// Populated by downstream stages.
	PlotConfig    PlotConfig
	Answer        string
	FinalResponse *FinalResponse

	// Per-stage status records.
	SQLStatus       *StatusPayload
	ChartStatus     *StatusPayload
	InterpretStatus *StatusPayload
	OutputStatus    *StatusPayload

	// RetryRequest is set by the generation capability when a stage's
	// output asks for a fresh SQL attempt. Consumed with TakeRetryRequest.
	RetryRequest *RetryRequest

	// SQLAttempts counts SQL stage executions across the whole request,
	// including reruns requested by the chart and interpret stages.
	SQLAttempts int

	// LastError holds the most recent internal diagnostic, kept for
	// logging and for the terminal failure message. Never exposed raw
	// when it originates from a database driver.
	LastError string
}

// NewWorkflowState creates the scratchpad for one request.
func NewWorkflowState(requestID, question string) *WorkflowState {
	return &WorkflowState{RequestID: requestID, Question: question}
}

// ClearDownstream removes every value derived from a prior SQL run:
// the result set, generated SQL, chart spec, answer, final response, and
// all per-stage status records. Called before each SQL stage execution.
func (s *WorkflowState) ClearDownstream() {
	s.GeneratedSQL = ""
	s.SQLResult = nil
	s.PlotConfig = nil
	s.Answer = ""
	s.FinalResponse = nil
	s.SQLStatus = nil
	s.ChartStatus = nil
	s.InterpretStatus = nil
	s.OutputStatus = nil
	s.RetryRequest = nil
}

// HasSQLResult reports whether a successful SQL result is available.
func (s *WorkflowState) HasSQLResult() bool {
	return s.SQLResult.OK()
}

// SQLText returns the SQL associated with the current result, falling
// back to the generated text when the result carries none.
func (s *WorkflowState) SQLText() string {
	if s.SQLResult != nil && s.SQLResult.SQL != "" {
		return s.SQLResult.SQL
	}
	return s.GeneratedSQL
}

// TakeRetryRequest returns and clears the pending retry request, if any.
func (s *WorkflowState) TakeRetryRequest() *RetryRequest {
	r := s.RetryRequest
	s.RetryRequest = nil
	return r
}

// RequestRetry records a retry request. Empty reasons are ignored so a
// capability cannot force a rerun without saying why.
func (s *WorkflowState) RequestRetry(reason, source string) bool {
	if reason == "" {
		return false
	}
	if source == "" {
		source = "unknown"
	}
	s.RetryRequest = &RetryRequest{Reason: reason, Source: source}
	return true
}

// AttemptsExhausted reports whether the SQL attempt ceiling was reached.
func (s *WorkflowState) AttemptsExhausted() bool {
	return s.SQLAttempts >= MaxSQLAttempts
}
