package migration

import (
	"fmt"
	"strings"

	"github.com/ruslano69/dbsync/pkg/adapters"
)

// Splitter turns a SQL script into statements. Lines are scanned one at
// a time: lines starting with "--" or "#" are dropped, and a statement
// ends at a line whose trimmed text ends with the delimiter. Text left
// over at the end of the script becomes the last statement.
//
// The zero value reproduces the historical behaviour: the first
// DELIMITER line switches statement splitting off for the rest of the
// script, so everything after it becomes a single statement.
// With HonorDelimiter set, "DELIMITER x" changes the delimiter to x,
// statements ending in a custom delimiter have it removed, and
// "DELIMITER ;" restores normal splitting.
type Splitter struct {
	HonorDelimiter bool
}

// SplitStatements splits script with the zero Splitter.
func SplitStatements(script string) []string {
	stmts, _ := Splitter{}.Split(script)
	return stmts
}

// Split returns the statements of script in order. Only the
// HonorDelimiter mode can fail, on a DELIMITER line without a delimiter.
func (s Splitter) Split(script string) ([]string, error) {
	script = strings.TrimPrefix(script, "\ufeff")

	var (
		stmts     []string
		current   strings.Builder
		delimiter = ";"
		suspended bool
		lineNo    int
	)

	flush := func(text string) {
		if text = strings.TrimSpace(text); text != "" {
			stmts = append(stmts, text)
		}
		current.Reset()
	}

	for rest := script; rest != ""; {
		var line string
		line, rest, _ = strings.Cut(rest, "\n")
		line = strings.TrimSuffix(line, "\r")
		lineNo++

		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") || strings.HasPrefix(stripped, "#") {
			continue
		}

		if !s.HonorDelimiter && strings.HasPrefix(strings.ToUpper(stripped), "DELIMITER") {
			suspended = true
			continue
		}
		if s.HonorDelimiter && isDelimiterLine(stripped) {
			d := strings.TrimSpace(stripped[len("DELIMITER"):])
			if d == "" {
				return nil, fmt.Errorf("%w: line %d: DELIMITER without a delimiter", adapters.ErrScriptParse, lineNo)
			}
			flush(current.String())
			delimiter = d
			continue
		}

		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)

		if suspended || !strings.HasSuffix(stripped, delimiter) {
			continue
		}
		text := current.String()
		if delimiter != ";" {
			text = strings.TrimSuffix(strings.TrimRight(text, " \t"), delimiter)
		}
		flush(text)
	}

	flush(current.String())
	return stmts, nil
}

func isDelimiterLine(stripped string) bool {
	const kw = "DELIMITER"
	if len(stripped) < len(kw) || !strings.EqualFold(stripped[:len(kw)], kw) {
		return false
	}
	return len(stripped) == len(kw) || stripped[len(kw)] == ' ' || stripped[len(kw)] == '\t'
}
