package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/askdb/internal/config"
	"github.com/hugo-lorenzo-mato/askdb/internal/core"
	"github.com/hugo-lorenzo-mato/askdb/internal/logging"
)

func TestDialectRules(t *testing.T) {
	assert.Contains(t, DialectRules("postgres"), "ILIKE")
	assert.Contains(t, DialectRules("mysql"), "backticks")
	assert.Contains(t, DialectRules("sqlite3"), "LIKE (not ILIKE)")
	// Unknown dialects fall back to postgres.
	assert.Contains(t, DialectRules("oracle"), "ILIKE")
}

func TestBuildMessages_SQL(t *testing.T) {
	system, user := buildMessages(core.GenerationRequest{
		Kind:       core.GenerateSQL,
		Question:   "how many users signed up?",
		Refinement: "use the created_at column",
		Dialect:    "mysql",
		Schemas: core.TableSchema{
			"users": {{Name: "id", Type: "bigint"}, {Name: "created_at", Type: "datetime"}},
		},
	})

	assert.Contains(t, system, "read-only SQL")
	assert.Contains(t, system, "backticks")
	assert.Contains(t, system, `"created_at"`)
	assert.Contains(t, user, "how many users signed up?")
	assert.Contains(t, user, "Refinement: use the created_at column")
}

func TestBuildMessages_Answer(t *testing.T) {
	system, user := buildMessages(core.GenerationRequest{
		Kind:     core.GenerateAnswer,
		Question: "top customer?",
		SQL:      "SELECT name FROM customers LIMIT 1",
		Result:   `{"columns":["name"],"rows":[["acme"]],"row_count":1}`,
	})

	assert.Contains(t, system, "result interpretation")
	assert.Contains(t, user, "SELECT name FROM customers LIMIT 1")
	assert.Contains(t, user, `"acme"`)
}

func TestParseChartSpec(t *testing.T) {
	t.Run("valid spec", func(t *testing.T) {
		cfg, retry, err := ParseChartSpec("```json\n{\"type\":\"bar\",\"x\":\"name\",\"y\":\"total\"}\n```")
		require.NoError(t, err)
		assert.Empty(t, retry)
		assert.Equal(t, "bar", cfg.Type())
	})

	t.Run("retry request", func(t *testing.T) {
		cfg, retry, err := ParseChartSpec(`{"retry":"group results by month"}`)
		require.NoError(t, err)
		assert.Nil(t, cfg)
		assert.Equal(t, "group results by month", retry)
	})

	t.Run("missing type", func(t *testing.T) {
		_, _, err := ParseChartSpec(`{"x":"name"}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "type")
	})

	t.Run("invalid json", func(t *testing.T) {
		_, _, err := ParseChartSpec("not json at all")
		var domainErr *core.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, core.CodeCapabilityFailed, domainErr.Code)
	})
}

func TestGenerator_Generate(t *testing.T) {
	var gotModel string
	var gotMessages []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel = req.Model
		for _, m := range req.Messages {
			gotMessages = append(gotMessages, map[string]string{"role": m.Role, "content": m.Content})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "SELECT count(*) FROM users"}},
			},
		})
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.AI.APIKey = "test-key"
	cfg.AI.Endpoint = srv.URL + "/v1"
	cfg.AI.Model = "test-model"
	cfg.AI.Timeout = "5s"

	g := New(cfg, logging.NewNop())
	out, err := g.Generate(context.Background(), core.GenerationRequest{
		Kind:     core.GenerateSQL,
		Question: "how many users?",
		Dialect:  "postgres",
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT count(*) FROM users", out)
	assert.Equal(t, "test-model", gotModel)
	require.Len(t, gotMessages, 2)
	assert.Equal(t, "system", gotMessages[0]["role"])
	assert.Contains(t, gotMessages[1]["content"], "how many users?")
}

func TestGenerator_EmptyChoicesIsCapabilityError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.AI.APIKey = "test-key"
	cfg.AI.Endpoint = srv.URL + "/v1"
	cfg.AI.Timeout = "5s"

	g := New(cfg, logging.NewNop())
	_, err := g.Generate(context.Background(), core.GenerationRequest{
		Kind:     core.GenerateAnswer,
		Question: "anything",
	})
	var domainErr *core.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, core.ErrCatCapability, domainErr.Category)
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 900)
	assert.Len(t, truncate(long, 800), 800+len("...(truncated)"))
	assert.Equal(t, "short", truncate("short", 800))
}
