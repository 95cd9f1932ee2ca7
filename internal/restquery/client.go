package restquery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a PostgREST-style table endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a REST query client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// opSuffix maps SQL comparison operators to PostgREST filter names.
var opSuffix = map[string]string{
	"=":     "eq",
	"!=":    "neq",
	"<>":    "neq",
	">":     "gt",
	">=":    "gte",
	"<":     "lt",
	"<=":    "lte",
	"like":  "like",
	"ilike": "ilike",
}

// Fetch executes a parsed query and returns the decoded rows.
func (c *Client) Fetch(ctx context.Context, q *Query, limit int) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("select", strings.Join(q.Columns, ","))
	for _, f := range q.Filters {
		suffix, ok := opSuffix[f.Op]
		if !ok {
			return nil, fmt.Errorf("unsupported operator %q", f.Op)
		}
		params.Add(f.Column, suffix+"."+formatValue(f.Value))
	}
	if q.OrderBy != nil {
		dir := "asc"
		if q.OrderBy.Desc {
			dir = "desc"
		}
		params.Set("order", q.OrderBy.Column+"."+dir)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	return c.get(ctx, q.Table, params)
}

// SampleRow fetches one row for schema inference. Implements
// schema.RowSampler.
func (c *Client) SampleRow(ctx context.Context, table string) (map[string]any, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("limit", "1")

	rows, err := c.get(ctx, table, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (c *Client) get(ctx context.Context, table string, params url.Values) ([]map[string]any, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(table) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rest backend returned %d", resp.StatusCode)
	}

	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decoding rest response: %w", err)
	}
	return rows, nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
