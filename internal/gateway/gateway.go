// Package gateway implements the SQL safety gateway: it normalizes raw
// SQL text, strips comments, enforces a read-only keyword policy, and
// splits the input into individual statements. No query reaches the
// database without passing through here.
package gateway

import (
	"regexp"
	"strings"

	"github.com/hugo-lorenzo-mato/askdb/internal/core"
)

// Blocked statement keywords. Matched as whole words anywhere in the
// comment-stripped text, regardless of position. This is defense in
// depth on top of the allowed statement-start check.
var blockedKeywords = []string{
	"DELETE", "INSERT", "UPDATE", "DROP", "TRUNCATE", "ALTER", "CREATE",
	"GRANT", "REVOKE", "EXEC", "EXECUTE", "CALL", "RENAME", "REPLACE",
	"MERGE", "LOAD",
}

// Blocked two-word forms (MySQL file-write escapes).
var blockedPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bINTO\s+OUTFILE\b`),
	regexp.MustCompile(`(?i)\bINTO\s+DUMPFILE\b`),
}

var blockedWordPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(blockedKeywords, "|") + `)\b`)

// Statements must begin with one of these keywords.
var allowedStartPattern = regexp.MustCompile(`(?i)^(SELECT|WITH|SHOW|DESCRIBE|DESC|EXPLAIN)\b`)

// Gateway validates and splits SQL text.
type Gateway struct {
	// backslashEscapes controls whether a backslash escapes the next
	// character inside single-quoted literals. True matches MySQL's
	// default; false matches standard-conforming strings (postgres,
	// sqlite), where '\' is a literal backslash.
	backslashEscapes bool
}

// New creates a Gateway with standard-conforming string rules.
func New() *Gateway {
	return &Gateway{}
}

// NewForDialect creates a Gateway whose string-literal scanning matches
// the given dialect.
func NewForDialect(dialect string) *Gateway {
	return &Gateway{backslashEscapes: dialect == "mysql"}
}

// ValidateAndSplit checks that raw SQL is read-only and returns it split
// into individual statements in source order. Any violation rejects the
// whole batch.
func (g *Gateway) ValidateAndSplit(raw string) ([]string, error) {
	sql := Normalize(raw)
	if sql == "" {
		return nil, core.ErrValidation(core.CodeEmptySQL, "SQL cannot be empty.")
	}

	cleaned := strings.TrimSpace(stripComments(sql, g.backslashEscapes))
	if cleaned == "" {
		return nil, core.ErrValidation(core.CodeEmptySQL, "SQL is empty after removing comments.")
	}

	if kw := findBlockedKeyword(cleaned); kw != "" {
		return nil, core.ErrSafety(core.CodeBlockedKeyword,
			"Only read-only SQL queries are allowed (found "+kw+").")
	}

	statements := splitStatements(cleaned, g.backslashEscapes)
	if len(statements) == 0 {
		return nil, core.ErrValidation(core.CodeEmptySQL, "SQL contains no statements.")
	}

	for _, stmt := range statements {
		if !allowedStartPattern.MatchString(stmt) {
			return nil, core.ErrSafety(core.CodeIllegalStatement,
				"Only SELECT, WITH, SHOW, DESCRIBE and EXPLAIN statements are allowed.")
		}
	}
	return statements, nil
}

// Normalize strips surrounding whitespace and Markdown code fences.
// Language-model output routinely wraps SQL in ```sql fences or a
// single layer of backticks.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop a fence language tag like "sql".
		if idx := strings.IndexAny(s, "\r\n"); idx >= 0 {
			first := strings.TrimSpace(s[:idx])
			if first != "" && !strings.ContainsAny(first, " \t;") && len(first) <= 12 {
				s = s[idx:]
			}
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	// A single layer of stray backticks around the whole query.
	s = strings.TrimSpace(strings.Trim(s, "`"))
	return s
}

func findBlockedKeyword(cleaned string) string {
	if m := blockedWordPattern.FindString(cleaned); m != "" {
		return strings.ToUpper(m)
	}
	for _, p := range blockedPhrases {
		if m := p.FindString(cleaned); m != "" {
			return strings.ToUpper(regexp.MustCompile(`\s+`).ReplaceAllString(m, " "))
		}
	}
	return ""
}

// stripComments removes line (-- and #) and block (/* */) comments
// without touching string literals or quoted identifiers. Keywords
// smuggled inside comments must not evade detection, and keywords
// mentioned in comments must not cause false rejection.
func stripComments(sql string, backslashEscapes bool) string {
	var b strings.Builder
	b.Grow(len(sql))

	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := scanQuoted(sql, i, backslashEscapes)
			b.WriteString(sql[i:end])
			i = end
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			i = scanLineComment(sql, i)
			b.WriteByte(' ')
		case c == '#':
			i = scanLineComment(sql, i)
			b.WriteByte(' ')
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			i = scanBlockComment(sql, i)
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// SplitStatements splits sql on semicolons outside string literals,
// quoted identifiers and comments, using standard-conforming string
// rules. Exposed for callers that need statement counting without the
// full read-only policy.
func SplitStatements(sql string) []string {
	return splitStatements(sql, false)
}

// splitStatements splits on semicolons outside string literals, quoted
// identifiers and comments. Input is already comment-stripped but the
// scanner tolerates comments anyway.
func splitStatements(sql string, backslashEscapes bool) []string {
	var statements []string
	start := 0

	flush := func(end int) {
		if stmt := strings.TrimSpace(sql[start:end]); stmt != "" {
			statements = append(statements, stmt)
		}
	}

	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			i = scanQuoted(sql, i, backslashEscapes)
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			i = scanLineComment(sql, i)
		case c == '#':
			i = scanLineComment(sql, i)
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			i = scanBlockComment(sql, i)
		case c == ';':
			flush(i)
			i++
			start = i
		default:
			i++
		}
	}
	flush(len(sql))
	return statements
}

// scanQuoted returns the index just past a quoted region starting at i.
// Doubling the quote character escapes it, per SQL convention. A
// backslash escape inside single quotes is honored only when the
// dialect asks for it; under standard-conforming rules a backslash is
// an ordinary character, so 'ends in \' terminates at the quote.
func scanQuoted(sql string, i int, backslashEscapes bool) int {
	quote := sql[i]
	for j := i + 1; j < len(sql); j++ {
		switch sql[j] {
		case '\\':
			if backslashEscapes && quote == '\'' {
				j++ // skip escaped char
			}
		case quote:
			if j+1 < len(sql) && sql[j+1] == quote {
				j++ // doubled quote, stay inside
				continue
			}
			return j + 1
		}
	}
	return len(sql) // unterminated; consume the rest
}

func scanLineComment(sql string, i int) int {
	for j := i; j < len(sql); j++ {
		if sql[j] == '\n' {
			return j + 1
		}
	}
	return len(sql)
}

func scanBlockComment(sql string, i int) int {
	for j := i + 2; j+1 < len(sql); j++ {
		if sql[j] == '*' && sql[j+1] == '/' {
			return j + 2
		}
	}
	return len(sql)
}
