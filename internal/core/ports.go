package core

import "context"

// =============================================================================
// Generation Capability Port
// =============================================================================

// GenerationKind tells the capability what kind of artifact to produce.
type GenerationKind string

const (
	GenerateSQL       GenerationKind = "sql"
	GenerateChartSpec GenerationKind = "chart_spec"
	GenerateAnswer    GenerationKind = "answer"
)

// GenerationRequest is the structured input to the external language
// model collaborator.
type GenerationRequest struct {
	Kind       GenerationKind
	Question   string
	Refinement string

	// Schemas and Dialect are set for SQL generation.
	Schemas TableSchema
	Dialect string

	// SQL and Result are set for chart and answer generation.
	SQL    string
	Result string
}

// Generator is the abstract generation capability. Implementations must
// bound Generate with a timeout; a timeout or malformed output surfaces
// as a capability error. The core assumes nothing else about behavior.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req GenerationRequest) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	return f(ctx, req)
}

// =============================================================================
// Database Ports
// =============================================================================

// SQLExecutor validates and runs SQL against the backing store. The
// returned result is always non-nil; failures are reported in Status
// with a sanitized message.
type SQLExecutor interface {
	Execute(ctx context.Context, sql string) *SQLExecutionResult
}

// SchemaInspector fetches column metadata for allow-listed tables.
// With no arguments it inspects the configured allow-list.
type SchemaInspector interface {
	Inspect(ctx context.Context, tables ...string) (TableSchema, error)
}
