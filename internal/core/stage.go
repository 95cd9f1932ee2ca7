package core

import "fmt"

// Stage represents a step in the question-answering workflow.
type Stage string

const (
	// StageInit is the entry state before any work has been done.
	StageInit Stage = "init"

	// StageSQL generates and executes SQL for the user's question.
	// It is the only stage that may run more than once per request.
	StageSQL Stage = "sql"

	// StageChart produces a chart specification over the SQL result.
	StageChart Stage = "chart"

	// StageInterpret produces the textual answer from the SQL result.
	StageInterpret Stage = "interpret"

	// StageOutput assembles the final response from workflow state.
	// It always runs exactly once and never fails.
	StageOutput Stage = "output"

	// StageDone is the terminal state for a completed request.
	StageDone Stage = "done"

	// StageFailed is the terminal state for an aborted request.
	StageFailed Stage = "failed"
)

// MaxSQLAttempts is the ceiling on SQL stage executions per request.
// Once reached, downstream stages must proceed with whatever exists.
const MaxSQLAttempts = 4

// NextStage returns the stage following the given stage on the happy path.
// Returns empty string for terminal stages.
func NextStage(s Stage) Stage {
	switch s {
	case StageInit:
		return StageSQL
	case StageSQL:
		return StageChart
	case StageChart:
		return StageInterpret
	case StageInterpret:
		return StageOutput
	case StageOutput:
		return StageDone
	default:
		return ""
	}
}

// Terminal reports whether the stage ends the workflow.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// ValidStage checks if a stage string is valid.
func ValidStage(s Stage) bool {
	switch s {
	case StageInit, StageSQL, StageChart, StageInterpret, StageOutput, StageDone, StageFailed:
		return true
	default:
		return false
	}
}

// ParseStage converts a string to a Stage with validation.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if !ValidStage(st) {
		return "", fmt.Errorf("invalid stage: %s", s)
	}
	return st, nil
}

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}
