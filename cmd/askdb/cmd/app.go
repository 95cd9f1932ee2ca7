package cmd

import (
	"github.com/hugo-lorenzo-mato/askdb/internal/config"
	"github.com/hugo-lorenzo-mato/askdb/internal/core"
	"github.com/hugo-lorenzo-mato/askdb/internal/executor"
	"github.com/hugo-lorenzo-mato/askdb/internal/gateway"
	"github.com/hugo-lorenzo-mato/askdb/internal/genai"
	"github.com/hugo-lorenzo-mato/askdb/internal/logging"
	"github.com/hugo-lorenzo-mato/askdb/internal/restquery"
	"github.com/hugo-lorenzo-mato/askdb/internal/schema"
	"github.com/hugo-lorenzo-mato/askdb/internal/workflow"
)

// backend bundles the storage-facing collaborators for one process.
type backend struct {
	executor  core.SQLExecutor
	inspector core.SchemaInspector
	close     func() error
}

// openBackend wires the executor and schema inspector for the
// configured backend: direct SQL through a driver, or the restricted
// REST query translation.
func openBackend(cfg *config.Config, logger *logging.Logger) (*backend, error) {
	if cfg.Database.Backend == config.BackendREST {
		client := restquery.NewClient(cfg.Database.RestURL, cfg.Database.RestKey)
		return &backend{
			executor:  restquery.NewExecutor(client, cfg, logger),
			inspector: schema.NewSampleInspector(client, cfg),
			close:     func() error { return nil },
		}, nil
	}

	exec, err := executor.Open(cfg, gateway.NewForDialect(cfg.Dialect()), logger)
	if err != nil {
		return nil, err
	}
	return &backend{
		executor:  exec,
		inspector: schema.NewCatalogInspector(exec.DB, cfg, logger),
		close:     exec.Close,
	}, nil
}

// newOrchestrator builds the workflow orchestrator over a backend.
func newOrchestrator(cfg *config.Config, b *backend, logger *logging.Logger) *workflow.Orchestrator {
	generator := genai.New(cfg, logger)
	return workflow.New(generator, b.executor, b.inspector, cfg, logger)
}
