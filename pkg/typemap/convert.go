package typemap

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ruslano69/dbsync/pkg/adapters"
)

// Converter rewrites a CREATE TABLE statement from one dialect to another.
type Converter interface {
	ConvertCreateTable(ctx context.Context, ddl string, from, to adapters.Engine) string
}

// PatternConverter is the table and pattern based Converter. It handles
// the DDL the adapters produce and may mis-rewrite unusual statements.
type PatternConverter struct{}

var _ Converter = PatternConverter{}

func (PatternConverter) ConvertCreateTable(ctx context.Context, ddl string, from, to adapters.Engine) string {
	return ConvertCreateTableSQL(ctx, ddl, from, to, QuoteChar(from), QuoteChar(to))
}

// QuoteChar returns the identifier quote of an engine.
func QuoteChar(e adapters.Engine) string {
	if e == adapters.PostgreSQL {
		return `"`
	}
	return "`"
}

// ConvertCreateTableSQL translates ddl in three passes: MySQL-only clauses
// are removed when leaving MySQL, identifier quotes and type tokens are
// rewritten, then pair-specific syntax rewrites are applied.
func ConvertCreateTableSQL(ctx context.Context, ddl string, from, to adapters.Engine, sourceQuote, targetQuote string) string {
	if from == to {
		return ddl
	}

	result := ddl
	if from == adapters.MySQL {
		result = applyRules(result, mysqlClauseRules)
	}

	w := &walker{
		ctx:         ctx,
		from:        from,
		to:          to,
		sourceQuote: sourceQuote,
		targetQuote: targetQuote,
	}
	if from == adapters.SQLite {
		// SQLite also accepts standard double-quoted identifiers.
		w.extraQuotes = `"`
	}
	result = w.convert(result)

	return applyRules(result, syntaxRules[Pair{From: from, To: to}])
}

type rule struct {
	re   *regexp.Regexp
	repl string
}

func applyRules(s string, rules []rule) string {
	for _, r := range rules {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return s
}

// mysqlClauseRules strip table options, column attributes and secondary
// index definitions that only MySQL understands.
var mysqlClauseRules = []rule{
	{regexp.MustCompile(`(?i)\s*ENGINE\s*=\s*\w+`), ""},
	{regexp.MustCompile(`(?i)\s*DEFAULT\s+CHARSET\s*=\s*\w+`), ""},
	{regexp.MustCompile(`(?i)\s*(?:DEFAULT\s+)?CHARACTER\s+SET\s*=?\s*\w+`), ""},
	{regexp.MustCompile(`(?i)\s*(?:DEFAULT\s+)?COLLATE\s*=?\s*\w+`), ""},
	{regexp.MustCompile(`(?i)\s*AUTO_INCREMENT\s*=\s*\d+`), ""},
	{regexp.MustCompile(`(?i)\s*ROW_FORMAT\s*=\s*\w+`), ""},
	{regexp.MustCompile(`(?i)\s*COMMENT\s*=?\s*'(?:[^']|'')*'`), ""},
	{regexp.MustCompile(`(?i)\s+ON\s+UPDATE\s+CURRENT_TIMESTAMP(?:\(\d*\))?`), ""},
	{regexp.MustCompile(`(?i)\s+(?:UNSIGNED|ZEROFILL)\b`), ""},
	{regexp.MustCompile("(?i),\\s*(?:FULLTEXT\\s+|SPATIAL\\s+)?(?:KEY|INDEX)\\s+(?:`[^`]*`\\s*)?\\((?:[^()]|\\([^()]*\\))*\\)(?:\\s*USING\\s+\\w+)?"), ""},
	{regexp.MustCompile("(?i)\\bUNIQUE\\s+(?:KEY|INDEX)\\s+(?:`[^`]*`\\s*)?\\("), "UNIQUE ("},
	{regexp.MustCompile(`(?i)\s+USING\s+(?:BTREE|HASH)\b`), ""},
}

// syntaxRules are applied after type mapping.
var syntaxRules = map[Pair][]rule{
	{adapters.MySQL, adapters.SQLite}: {
		{regexp.MustCompile(`(?i)\s+AUTO_INCREMENT\b`), ""},
	},
	{adapters.MySQL, adapters.PostgreSQL}: {
		{regexp.MustCompile(`(?i)\bBIGINT\b([^,()]*?)\s+AUTO_INCREMENT\b`), "BIGSERIAL$1"},
		{regexp.MustCompile(`(?i)\bSMALLINT\b([^,()]*?)\s+AUTO_INCREMENT\b`), "SMALLSERIAL$1"},
		{regexp.MustCompile(`(?i)\bINTEGER\b([^,()]*?)\s+AUTO_INCREMENT\b`), "SERIAL$1"},
		{regexp.MustCompile(`(?i)\s+AUTO_INCREMENT\b`), ""},
	},
	{adapters.SQLite, adapters.MySQL}: {
		{regexp.MustCompile(`(?i)\bAUTOINCREMENT\b`), "AUTO_INCREMENT"},
	},
	{adapters.SQLite, adapters.PostgreSQL}: {
		{regexp.MustCompile(`(?i)\bINTEGER(\s+PRIMARY\s+KEY)\s+AUTOINCREMENT\b`), "SERIAL$1"},
		{regexp.MustCompile(`(?i)\s+AUTOINCREMENT\b`), ""},
	},
	{adapters.PostgreSQL, adapters.MySQL}: {
		{regexp.MustCompile(`(?i)\bBIGSERIAL\b`), "BIGINT AUTO_INCREMENT"},
		{regexp.MustCompile(`(?i)\bSMALLSERIAL\b`), "SMALLINT AUTO_INCREMENT"},
		{regexp.MustCompile(`(?i)\bSERIAL\b`), "INT AUTO_INCREMENT"},
	},
}

// modifierRequired lists source types only recognised with a value list,
// so that e.g. ON DELETE SET NULL is left alone.
var modifierRequired = map[string]bool{
	"SET":  true,
	"ENUM": true,
}

// walker rewrites identifier quotes and type tokens while copying string
// literals and quoted identifiers through untouched.
type walker struct {
	ctx         context.Context
	from, to    adapters.Engine
	sourceQuote string
	targetQuote string
	extraQuotes string
}

func (w *walker) isSourceQuote(c byte) bool {
	return (w.sourceQuote != "" && c == w.sourceQuote[0]) || strings.IndexByte(w.extraQuotes, c) >= 0
}

func (w *walker) convert(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	// the first word of each column definition is a name, not a type
	depth := 0
	colName := false

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\'':
			end := closing(s, i, '\'')
			b.WriteString(s[i:end])
			i = end

		case w.isSourceQuote(c):
			colName = false
			end := closing(s, i, c)
			inner := s[i+1 : end]
			if end > i+1 && s[end-1] == c {
				inner = s[i+1 : end-1]
			}
			inner = strings.ReplaceAll(inner, string(c)+string(c), string(c))
			q := w.targetQuote
			b.WriteString(q + strings.ReplaceAll(inner, q, q+q) + q)
			i = end

		case isLetter(c) && (i == 0 || !isWordByte(s[i-1])):
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			word := s[i:j]
			if colName || !isAlpha(word) {
				colName = false
				b.WriteString(word)
				i = j
				continue
			}

			suffix := ""
			if j < len(s) && s[j] == '(' {
				suffix = s[j:matchParen(s, j)]
			}

			if suffix == "" && modifierRequired[strings.ToUpper(word)] {
				b.WriteString(word)
				i = j
				continue
			}

			mapped, ok := lookup(word+suffix, w.from, w.to)
			if !ok {
				// unknown word; a following list (e.g. columns after a
				// table name) is scanned by the main loop
				zerolog.Ctx(w.ctx).Debug().Str("token", word).Msg("token kept")
				b.WriteString(word)
				i = j
				continue
			}
			b.WriteString(mapped)
			i = j + len(suffix)

		default:
			switch c {
			case '(':
				depth++
				colName = depth == 1
			case ')':
				depth--
				colName = false
			case ',':
				colName = depth == 1
			default:
				if isWordByte(c) {
					colName = false
				}
			}
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// closing returns the index just past the quote that closes the quoted
// run starting at open. Doubled quotes are treated as escapes.
func closing(s string, open int, q byte) int {
	for i := open + 1; i < len(s); i++ {
		if s[i] != q {
			continue
		}
		if i+1 < len(s) && s[i+1] == q {
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}

// matchParen returns the index just past the ')' matching the '(' at open,
// skipping quoted runs. An unbalanced list yields len(s).
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		case '\'', '"', '`':
			i = closing(s, i, s[i]) - 1
		}
	}
	return len(s)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordByte(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_' || c == '$'
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isLetter(s[i]) {
			return false
		}
	}
	return true
}
