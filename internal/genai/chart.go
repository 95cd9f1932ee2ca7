package genai

import (
	"encoding/json"
	"strings"

	"github.com/hugo-lorenzo-mato/askdb/internal/core"
	"github.com/hugo-lorenzo-mato/askdb/internal/gateway"
)

// ParseChartSpec decodes the chart generation output. It returns either
// a validated plot configuration or, when the model asked for different
// SQL via a {"retry": "..."} object, the retry reason.
func ParseChartSpec(raw string) (core.PlotConfig, string, error) {
	cleaned := strings.TrimSpace(gateway.Normalize(raw))
	if cleaned == "" {
		return nil, "", core.ErrCapability("chart generation returned empty output")
	}

	var spec map[string]any
	if err := json.Unmarshal([]byte(cleaned), &spec); err != nil {
		return nil, "", core.ErrCapability("chart generation returned invalid JSON").WithCause(err)
	}

	if retry, ok := spec["retry"].(string); ok && strings.TrimSpace(retry) != "" {
		return nil, strings.TrimSpace(retry), nil
	}

	cfg := core.PlotConfig(spec)
	if cfg.Type() == "" {
		return nil, "", core.ErrCapability("chart configuration missing 'type'")
	}
	return cfg, "", nil
}
