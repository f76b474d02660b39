// Package typemap translates column types and CREATE TABLE statements
// between the MySQL, SQLite and PostgreSQL dialects. Translation is
// table driven and best effort: unknown types pass through unchanged.
package typemap

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ruslano69/dbsync/pkg/adapters"
)

// SplitType splits "VARCHAR(255)" into "VARCHAR" and "(255)".
func SplitType(raw string) (base, suffix string) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '('); i >= 0 {
		return strings.TrimSpace(raw[:i]), raw[i:]
	}
	return raw, ""
}

// MapType translates one type token from one engine's dialect to another's.
// Identical engines and unmapped base types return raw unchanged; the
// latter is logged at warn level.
func MapType(ctx context.Context, raw string, from, to adapters.Engine) string {
	mapped, ok := lookup(raw, from, to)
	if !ok && from != to {
		base, _ := SplitType(raw)
		zerolog.Ctx(ctx).Warn().
			Str("type", raw).
			Str("base", strings.ToUpper(base)).
			Str("from", string(from)).
			Str("to", string(to)).
			Msg("no type mapping, keeping original")
	}
	return mapped
}

// lookup is MapType without logging. It reports whether a mapping was applied.
func lookup(raw string, from, to adapters.Engine) (string, bool) {
	if from == to {
		return raw, true
	}
	table, ok := tables[Pair{From: from, To: to}]
	if !ok {
		return raw, false
	}

	base, suffix := SplitType(raw)
	target, ok := table[strings.ToUpper(base)]
	if !ok {
		return raw, false
	}

	if suffix == "" {
		if bare, ok := bareTargets[Pair{From: from, To: to}][target]; ok {
			return bare, true
		}
		return target, true
	}
	// value lists such as ENUM('a','b') do not survive a type change
	if dropsLength(to, target) || strings.Contains(suffix, "'") {
		return target, true
	}
	if strings.EqualFold(target, base) {
		return raw, true
	}
	return target + suffix, true
}
