package workflow

import (
	"context"
	"strings"

	"github.com/hugo-lorenzo-mato/askdb/internal/core"
	"github.com/hugo-lorenzo-mato/askdb/internal/genai"
	"github.com/hugo-lorenzo-mato/askdb/internal/logging"
)

// runSQLStage clears downstream state, loads schemas, asks the
// generation capability for SQL and executes it. The attempt counter is
// incremented unconditionally so failed attempts count toward the
// ceiling. The second return is true only for precondition failures
// (schema inspection, configuration) that no rerun can fix; generation
// and execution failures are left to the orchestrator's retry policy.
func (o *Orchestrator) runSQLStage(ctx context.Context, state *core.WorkflowState, refinement string, log *logging.Logger) (core.StatusPayload, bool) {
	state.ClearDownstream()
	state.SQLAttempts++
	log = log.WithStage(core.StageSQL.String()).With("attempt", state.SQLAttempts)

	if len(state.TableSchemas) == 0 {
		schemas, err := o.inspector.Inspect(ctx)
		if err != nil {
			state.LastError = err.Error()
			log.Error("schema inspection failed", "error", err.Error())
			return core.ErrorStatus(core.UserMessage(err)), true
		}
		state.TableSchemas = schemas
		state.AllowedTables = o.cfg.AllowedTables()
	}

	generated, err := o.generator.Generate(ctx, core.GenerationRequest{
		Kind:       core.GenerateSQL,
		Question:   state.Question,
		Refinement: refinement,
		Schemas:    state.TableSchemas,
		Dialect:    o.cfg.Dialect(),
	})
	if err != nil {
		state.LastError = err.Error()
		log.Error("sql generation failed", "error", err.Error())
		return core.ErrorStatus(core.UserMessage(err)), false
	}
	state.GeneratedSQL = strings.TrimSpace(generated)

	result := o.executor.Execute(ctx, state.GeneratedSQL)
	state.SQLResult = result
	if !result.OK() {
		state.LastError = result.ErrorMessage
		log.Warn("sql execution failed", "error", result.ErrorMessage)
		return core.ErrorStatus(result.ErrorMessage), false
	}

	log.Info("sql task completed",
		"result_sets", len(result.ResultSets), "rows", result.Primary().RowCount)
	return core.Success("SQL task completed."), false
}

// runChartStage produces a chart specification over the SQL result.
// In forced mode (attempt ceiling reached) it never emits NeedsRetry
// and degrades to a missing chart instead, leaving the default to the
// output stage.
func (o *Orchestrator) runChartStage(ctx context.Context, state *core.WorkflowState, log *logging.Logger, forced bool) core.StatusPayload {
	log = log.WithStage(core.StageChart.String())

	if !state.HasSQLResult() {
		if forced {
			log.Warn("proceeding without sql result")
			return core.Success("Proceeding without a SQL result.")
		}
		return core.NeedsRetry("SQL result missing or failed.",
			"Rerun SQL with correct table/filters so plotting can proceed.")
	}

	raw, err := o.generator.Generate(ctx, core.GenerationRequest{
		Kind:     core.GenerateChartSpec,
		Question: state.Question,
		SQL:      state.SQLText(),
		Result:   FormatResult(state.SQLResult, promptSampleRows, false),
	})
	if err != nil {
		state.LastError = err.Error()
		log.Warn("chart generation failed, continuing without a chart", "error", err.Error())
		return core.Success("Chart generation failed; continuing without a chart.")
	}

	spec, retryReason, err := genai.ParseChartSpec(raw)
	if err != nil {
		state.LastError = err.Error()
		log.Warn("chart spec invalid, continuing without a chart", "error", err.Error())
		return core.Success("Chart configuration invalid; continuing without a chart.")
	}

	if retryReason != "" {
		if forced {
			log.Warn("retry requested at attempt ceiling, ignoring", "reason", retryReason)
			return core.Success("Proceeding without a chart.")
		}
		state.RequestRetry(retryReason, core.StageChart.String())
		return core.Success("Chart generation requested a SQL rerun.")
	}

	state.PlotConfig = spec
	log.Info("chart config saved", "type", spec.Type())
	return core.Success("Plot config saved.")
}

// runInterpretStage produces the textual answer from the SQL result.
// Shares the chart stage's precondition and forced-mode behavior.
func (o *Orchestrator) runInterpretStage(ctx context.Context, state *core.WorkflowState, log *logging.Logger, forced bool) core.StatusPayload {
	log = log.WithStage(core.StageInterpret.String())

	if !state.HasSQLResult() {
		if forced {
			log.Warn("proceeding without sql result")
			return core.Success("Proceeding without a SQL result.")
		}
		return core.NeedsRetry("SQL result missing or failed.",
			"Rerun SQL with correct table/filters so analysis can proceed.")
	}

	answer, err := o.generator.Generate(ctx, core.GenerationRequest{
		Kind:     core.GenerateAnswer,
		Question: state.Question,
		SQL:      state.SQLText(),
		Result:   FormatResult(state.SQLResult, promptSampleRows, true),
	})
	if err != nil {
		state.LastError = err.Error()
		log.Warn("answer generation failed, continuing without an answer", "error", err.Error())
		return core.Success("Answer generation failed; continuing without an answer.")
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		state.LastError = "answer generation returned empty output"
		return core.Success("Answer empty; continuing without an answer.")
	}

	state.Answer = answer
	log.Info("answer saved", "length", len(answer))
	return core.Success("Answer saved.")
}

// runOutputStage assembles the final response from workflow state. It
// always succeeds; missing fields are substituted with defaults and the
// status message reports which ones were.
func (o *Orchestrator) runOutputStage(state *core.WorkflowState, log *logging.Logger) core.StatusPayload {
	log = log.WithStage(core.StageOutput.String())

	var missing []string

	answer := state.Answer
	if answer == "" {
		answer = "No answer available."
		missing = append(missing, "answer")
	}

	plot := state.PlotConfig
	if plot == nil {
		plot = core.NonePlot("plot_config unavailable")
		missing = append(missing, "plot_config")
	}

	sql := state.SQLText()
	if sql == "" {
		missing = append(missing, "sql")
	}

	state.FinalResponse = &core.FinalResponse{
		Answer:     answer,
		PlotConfig: plot,
		SQL:        sql,
	}

	message := "Output assembled."
	if len(missing) > 0 {
		message = "Output assembled with defaults (missing: " + strings.Join(missing, ", ") + ")."
	}
	log.Info("output assembled", "defaults", strings.Join(missing, ","))
	return core.Success(message)
}
