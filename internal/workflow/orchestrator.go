package workflow

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/askdb/internal/config"
	"github.com/hugo-lorenzo-mato/askdb/internal/core"
	"github.com/hugo-lorenzo-mato/askdb/internal/logging"
)

// Orchestrator drives one question through the staged workflow:
// Init -> SqlStage -> ChartStage -> InterpretStage -> OutputStage -> Done,
// with an error path to Failed. Each request owns its WorkflowState;
// the orchestrator itself is stateless and safe for concurrent use.
type Orchestrator struct {
	generator core.Generator
	executor  core.SQLExecutor
	inspector core.SchemaInspector
	cfg       *config.Config
	logger    *logging.Logger
}

// New wires the orchestrator from its collaborators.
func New(generator core.Generator, executor core.SQLExecutor, inspector core.SchemaInspector, cfg *config.Config, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		generator: generator,
		executor:  executor,
		inspector: inspector,
		cfg:       cfg,
		logger:    logger,
	}
}

// Ask answers one natural-language question. The returned response is
// always well-formed, including on the Failed path. The only error
// returns are an empty question and context cancellation.
func (o *Orchestrator) Ask(ctx context.Context, question string) (*core.FinalResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, core.ErrValidation(core.CodeEmptyQuestion, "Question must not be empty.")
	}

	state := core.NewWorkflowState(uuid.NewString(), question)
	log := o.logger.WithRequest(state.RequestID)
	log.Info("workflow started", "question", question)

	stage := core.StageInit
	refinement := ""
	failure := ""

	for !stage.Terminal() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch stage {
		case core.StageInit:
			stage = core.StageSQL

		case core.StageSQL:
			status, fatal := o.runSQLStage(ctx, state, refinement, log)
			state.SQLStatus = &status
			if status.IsError() {
				if fatal {
					failure = status.Message
					stage = core.StageFailed
					continue
				}
				// A failed attempt still counts toward the ceiling;
				// the failure message refines the next generation.
				// At the ceiling the workflow pushes on so the
				// output stage can assemble a defaulted response.
				if !state.AttemptsExhausted() {
					refinement = status.Message
					continue
				}
			}
			refinement = ""
			stage = core.StageChart

		case core.StageChart:
			forced := state.AttemptsExhausted()
			status := o.runChartStage(ctx, state, log, forced)
			state.ChartStatus = &status
			next, retryWith := o.resolve(state, status, forced, core.StageInterpret, log)
			if retryWith != "" {
				refinement = retryWith
			}
			if status.IsError() {
				failure = status.Message
			}
			stage = next

		case core.StageInterpret:
			forced := state.AttemptsExhausted()
			status := o.runInterpretStage(ctx, state, log, forced)
			state.InterpretStatus = &status
			next, retryWith := o.resolve(state, status, forced, core.StageOutput, log)
			if retryWith != "" {
				refinement = retryWith
			}
			if status.IsError() {
				failure = status.Message
			}
			stage = next

		case core.StageOutput:
			status := o.runOutputStage(state, log)
			state.OutputStatus = &status
			stage = core.StageDone
		}
	}

	if stage == core.StageFailed {
		log.Warn("workflow failed", "attempts", state.SQLAttempts, "error", failure)
		return failedResponse(failure), nil
	}

	log.Info("workflow done", "attempts", state.SQLAttempts)
	return state.FinalResponse, nil
}

// resolve maps a downstream stage's status onto the next stage,
// honoring retry requests only below the attempt ceiling. The second
// return is the refinement to carry into a SQL rerun.
func (o *Orchestrator) resolve(state *core.WorkflowState, status core.StatusPayload, forced bool, next core.Stage, log *logging.Logger) (core.Stage, string) {
	if status.IsError() {
		return core.StageFailed, ""
	}

	if status.IsNeedsRetry() {
		if !forced {
			return core.StageSQL, status.Refinement
		}
		// Forced stages never emit NeedsRetry, but guard anyway.
		return next, ""
	}

	if retry := state.TakeRetryRequest(); retry != nil {
		if !state.AttemptsExhausted() {
			log.Info("sql rerun requested", "source", retry.Source, "reason", retry.Reason)
			return core.StageSQL, retry.Reason
		}
		log.Warn("sql rerun denied at attempt ceiling", "source", retry.Source)
	}
	return next, ""
}

func failedResponse(message string) *core.FinalResponse {
	if message == "" {
		message = "The request could not be completed."
	}
	return &core.FinalResponse{
		Answer:     message,
		PlotConfig: core.NonePlot("error"),
		SQL:        "",
	}
}
