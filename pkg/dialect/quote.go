package dialect

import "strings"

// QuoteDouble quotes an identifier with double quotes (Snowflake, Postgres).
func QuoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteBacktick quotes an identifier with backticks (MySQL).
func QuoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteBracket quotes an identifier with square brackets (SQL Server).
func QuoteBracket(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// QuoteSingle quotes a string literal with single quotes, doubling any
// embedded quote. All four dialects accept this form.
func QuoteSingle(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// CaseDivide is the NULL-safe division guard shared by all dialects:
// a zero divisor yields NULL instead of a runtime error.
func CaseDivide(numerator, denominator string) string {
	return "CASE WHEN " + denominator + " = 0 THEN NULL ELSE " + numerator + " / " + denominator + " END"
}
