package genai

import (
	"encoding/json"
	"strings"

	"github.com/hugo-lorenzo-mato/askdb/internal/core"
)

const sqlSystemPrompt = `You generate read-only SQL for the tables described below.

Rules:
- Produce exactly one statement, no trailing semicolon, no explanation.
- Only SELECT/WITH/SHOW/DESCRIBE/EXPLAIN are allowed. Never mutate data.
- Use only the tables and columns listed in the schema JSON.
- Return raw SQL text without markdown fences.`

const chartSystemPrompt = `You generate a JSON plot configuration from a SQL query and its result.

Rules:
- Return JSON only, no markdown fences, no explanation.
- The object must contain a "type" key: one of "bar", "line", "pie", "scatter" or "none".
- For type "none" include a "reason" key.
- Include "x", "y" and "title" keys when the type plots data.
- If the SQL result cannot support the user's question, return
  {"retry": "<what the SQL should do differently>"} instead.`

const answerSystemPrompt = `You are a result interpretation agent.

Input you will receive:
- User question
- SQL query
- Query result (columns + rows + row_count)

Provide a clear, concise answer. If rows are empty, explain and suggest how to refine the query. If useful, compute simple aggregates manually from the rows.`

// buildMessages turns a generation request into a system and user prompt
// pair for the chat completion API.
func buildMessages(req core.GenerationRequest) (system, user string) {
	switch req.Kind {
	case core.GenerateSQL:
		var b strings.Builder
		b.WriteString(sqlSystemPrompt)
		b.WriteString("\n\nDialect rules:\n")
		b.WriteString(DialectRules(req.Dialect))
		b.WriteString("\n\nAllowed table schemas (JSON):\n")
		b.WriteString(formatSchemas(req.Schemas))
		return b.String(), questionBlock(req)

	case core.GenerateChartSpec:
		return chartSystemPrompt, questionBlock(req) +
			"\nSQL query: " + req.SQL +
			"\nSQL result (JSON):\n" + req.Result

	case core.GenerateAnswer:
		return answerSystemPrompt, questionBlock(req) +
			"\nSQL query: " + req.SQL +
			"\nSQL result (JSON; use result_sets if present):\n" + req.Result

	default:
		return "", questionBlock(req)
	}
}

func questionBlock(req core.GenerationRequest) string {
	var b strings.Builder
	b.WriteString("User question: ")
	b.WriteString(req.Question)
	if req.Refinement != "" {
		b.WriteString("\nRefinement: ")
		b.WriteString(req.Refinement)
	}
	return b.String()
}

func formatSchemas(schemas core.TableSchema) string {
	if len(schemas) == 0 {
		return "{}"
	}
	data, err := json.Marshal(schemas)
	if err != nil {
		return "{}"
	}
	return string(data)
}
