package genai

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hugo-lorenzo-mato/askdb/internal/config"
	"github.com/hugo-lorenzo-mato/askdb/internal/core"
	"github.com/hugo-lorenzo-mato/askdb/internal/logging"
)

const defaultModel = "gpt-4o-mini"

// logTruncateLimit bounds prompt/completion text written to the log.
const logTruncateLimit = 800

// Generator implements core.Generator against an OpenAI-compatible chat
// completion endpoint. Every call is bounded by the configured timeout;
// timeouts and transport failures surface as capability errors so the
// workflow can retry or fail cleanly.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      *logging.Logger
}

// New builds a Generator from configuration. An empty endpoint uses the
// default OpenAI base URL.
func New(cfg *config.Config, logger *logging.Logger) *Generator {
	clientConfig := openai.DefaultConfig(cfg.AI.APIKey)
	if cfg.AI.Endpoint != "" {
		clientConfig.BaseURL = cfg.AI.Endpoint
	}

	model := cfg.AI.Model
	if model == "" {
		model = defaultModel
	}

	return &Generator{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: float32(cfg.AI.Temperature),
		timeout:     cfg.AITimeout(),
		logger:      logger,
	}
}

// Generate implements core.Generator.
func (g *Generator) Generate(ctx context.Context, req core.GenerationRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	system, user := buildMessages(req)
	g.logger.Debug("generation input",
		"kind", string(req.Kind), "prompt", truncate(user, logTruncateLimit))

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", core.ErrCapability("generation timed out").WithCause(err)
		}
		return "", core.ErrCapability("generation request failed").WithCause(err)
	}
	if len(resp.Choices) == 0 {
		return "", core.ErrCapability("generation returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", core.ErrCapability("generation returned empty output")
	}

	g.logger.Debug("generation output",
		"kind", string(req.Kind), "content", truncate(content, logTruncateLimit))
	return content, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "...(truncated)"
}
