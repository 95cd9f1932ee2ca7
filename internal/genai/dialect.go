package genai

import "github.com/hugo-lorenzo-mato/askdb/internal/config"

var dialectRules = map[string]string{
	config.DialectPostgres: "- Identifier quoting: use double quotes when needed.\n" +
		"- Case-insensitive match: use ILIKE (not LIKE).\n" +
		"- Row limit: use LIMIT <n> (do not use TOP/FETCH).\n" +
		"- String literals must use single quotes.",
	config.DialectMySQL: "- Identifier quoting: use backticks when needed.\n" +
		"- Case-insensitive match: use LIKE (not ILIKE).\n" +
		"- Row limit: use LIMIT <n> (do not use TOP/FETCH).\n" +
		"- String literals must use single quotes.",
	config.DialectSQLite: "- Identifier quoting: use double quotes when needed.\n" +
		"- Case-insensitive match: use LIKE (not ILIKE).\n" +
		"- Row limit: use LIMIT <n> (do not use TOP/FETCH).\n" +
		"- String literals must use single quotes.",
}

// DialectRules returns prompt-ready syntax rules for the given dialect.
// Unknown dialects fall back to postgres rules.
func DialectRules(dialect string) string {
	if rules, ok := dialectRules[config.NormalizeDialect(dialect)]; ok {
		return rules
	}
	return dialectRules[config.DialectPostgres]
}
