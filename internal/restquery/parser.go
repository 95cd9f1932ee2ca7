// Package restquery implements the strict execution backend: a small
// SELECT-only grammar parsed into calls against a PostgREST-style HTTP
// query builder. No raw SQL ever leaves the process on this path.
package restquery

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hugo-lorenzo-mato/askdb/internal/core"
	"github.com/hugo-lorenzo-mato/askdb/internal/gateway"
)

// Filter is one WHERE comparison. Op is lowercased.
type Filter struct {
	Column string
	Op     string
	Value  any
}

// Order is the first ORDER BY key.
type Order struct {
	Column string
	Desc   bool
}

// Query is the parsed form of one restricted SELECT statement.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	OrderBy *Order
	Limit   int // 0 means unset
}

var (
	selectPattern = regexp.MustCompile(`(?is)^select\s+(.+?)\s+from\s+([a-zA-Z0-9_."]+)(.*)$`)
	limitPattern  = regexp.MustCompile(`(?is)\s+limit\s+(\d+)\s*$`)
	orderPattern  = regexp.MustCompile(`(?is)\s+order\s+by\s+(.+)$`)
	wherePattern  = regexp.MustCompile(`(?is)\s+where\s+(.+)$`)
	condPattern   = regexp.MustCompile(`(?is)^([a-zA-Z0-9_."]+)\s*(=|!=|<>|>=|<=|>|<|ilike|like)\s*(.+)$`)
	unsupported   = regexp.MustCompile(`(?i)\bjoin\b|\bunion\b|\bgroup\b|\bhaving\b`)
	forbidden     = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|truncate|grant|revoke)\b`)
	lineComment   = regexp.MustCompile(`(?m)--.*?$`)
	andSplit      = regexp.MustCompile(`(?i)\s+and\s+`)
)

// Parse validates and parses one restricted SELECT statement. It
// rejects multiple statements, non-SELECT input, SELECT *, joins,
// unions, grouping, table aliases and non-AND WHERE chains.
func Parse(sql string) (*Query, error) {
	if !singleStatement(sql) {
		return nil, core.ErrSafety(core.CodeMultiStatement, "Multiple SQL statements are not allowed.")
	}
	if !readOnly(sql) {
		return nil, core.ErrSafety(core.CodeIllegalStatement, "Only SELECT/CTE queries are allowed.")
	}

	cleaned := strings.TrimSpace(strings.TrimSuffix(collapseSpace(sql), ";"))
	if unsupported.MatchString(cleaned) {
		return nil, core.ErrValidation(core.CodeUnsupportedSQL,
			"Only simple SELECT queries (no JOIN/UNION/GROUP BY) are supported.")
	}

	m := selectPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return nil, core.ErrValidation(core.CodeUnsupportedSQL, "Unsupported SQL. Use SELECT ... FROM <table>.")
	}
	selectClause := strings.TrimSpace(m[1])
	table := strings.Trim(strings.TrimSpace(m[2]), `"`)
	rest := m[3]

	if strings.ContainsAny(table, " \t") {
		return nil, core.ErrValidation(core.CodeUnsupportedSQL,
			"Table aliases are not supported. Use a single table name.")
	}

	q := &Query{Table: table}

	if lm := limitPattern.FindStringSubmatchIndex(rest); lm != nil {
		n, _ := strconv.Atoi(rest[lm[2]:lm[3]])
		q.Limit = n
		rest = rest[:lm[0]]
	}

	if om := orderPattern.FindStringSubmatchIndex(rest); om != nil {
		q.OrderBy = parseOrder(rest[om[2]:om[3]])
		rest = rest[:om[0]]
	}

	if wm := wherePattern.FindStringSubmatchIndex(rest); wm != nil {
		filters, err := parseFilters(rest[wm[2]:wm[3]])
		if err != nil {
			return nil, err
		}
		q.Filters = filters
		rest = rest[:wm[0]]
	}

	// Anything left between the table name and WHERE/ORDER/LIMIT is an
	// alias or trailing junk the grammar does not support.
	if strings.TrimSpace(rest) != "" {
		return nil, core.ErrValidation(core.CodeUnsupportedSQL,
			"Table aliases are not supported. Use a single table name.")
	}

	if selectClause == "*" {
		return nil, core.ErrSafety(core.CodeUnsupportedSQL, "SELECT * is not allowed.")
	}
	for _, col := range strings.Split(selectClause, ",") {
		col = strings.Trim(strings.TrimSpace(col), `"`)
		if col != "" {
			q.Columns = append(q.Columns, col)
		}
	}
	if len(q.Columns) == 0 {
		return nil, core.ErrValidation(core.CodeUnsupportedSQL, "No columns selected.")
	}
	return q, nil
}

// singleStatement counts statements with the quote-aware scanner so a
// semicolon inside a string literal does not look like a second
// statement.
func singleStatement(sql string) bool {
	return len(gateway.SplitStatements(sql)) == 1
}

func readOnly(sql string) bool {
	normalized := strings.TrimSpace(lineComment.ReplaceAllString(sql, ""))
	lower := strings.ToLower(normalized)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return false
	}
	return !forbidden.MatchString(normalized)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func parseOrder(clause string) *Order {
	first := strings.TrimSpace(strings.Split(clause, ",")[0])
	parts := strings.Fields(first)
	if len(parts) == 0 {
		return nil
	}
	return &Order{
		Column: strings.Trim(parts[0], `"`),
		Desc:   len(parts) > 1 && strings.EqualFold(parts[1], "desc"),
	}
}

func parseFilters(clause string) ([]Filter, error) {
	var filters []Filter
	for _, cond := range andSplit.Split(clause, -1) {
		cond = strings.TrimSpace(cond)
		m := condPattern.FindStringSubmatch(cond)
		if m == nil {
			return nil, core.ErrValidation(core.CodeUnsupportedSQL,
				"Unsupported WHERE clause. Use simple ANDed comparisons.")
		}
		rawValue := strings.TrimSpace(m[3])
		if !strings.HasPrefix(rawValue, "'") && !strings.HasPrefix(rawValue, `"`) &&
			strings.ContainsAny(rawValue, " \t") {
			return nil, core.ErrValidation(core.CodeUnsupportedSQL,
				"Unsupported WHERE clause. Use simple ANDed comparisons.")
		}
		filters = append(filters, Filter{
			Column: strings.Trim(strings.TrimSpace(m[1]), `"`),
			Op:     strings.ToLower(m[2]),
			Value:  parseValue(rawValue),
		})
	}
	return filters, nil
}

// parseValue interprets a SQL literal: quoted strings, booleans, null,
// integers and floats; anything else passes through as text.
func parseValue(raw string) any {
	v := strings.TrimSpace(raw)
	switch strings.ToLower(v) {
	case "null", "none":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if len(v) >= 2 {
		if (v[0] == '\'' && v[len(v)-1] == '\'') || (v[0] == '"' && v[len(v)-1] == '"') {
			inner := v[1 : len(v)-1]
			return strings.ReplaceAll(inner, "''", "'")
		}
	}
	if strings.Contains(v, ".") {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return v
}
