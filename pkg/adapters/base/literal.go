package base

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is used for datetime literals. Fractional seconds are
// omitted when zero.
const TimestampLayout = "2006-01-02 15:04:05.999999"

// LiteralStyle captures the per-engine differences in literal rendering.
type LiteralStyle struct {
	// EscapeBackslash doubles backslashes inside string literals (MySQL).
	EscapeBackslash bool
	// Blob renders byte sequences. Nil means X'..'.
	Blob func([]byte) string
}

// FormatValue renders v with the default style.
func FormatValue(v any) string {
	return LiteralStyle{}.Format(v)
}

// Format renders v as a SQL literal for script generation.
func (s LiteralStyle) Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case time.Time:
		return "'" + x.Format(TimestampLayout) + "'"
	case []byte:
		if s.Blob != nil {
			return s.Blob(x)
		}
		return "X'" + hex.EncodeToString(x) + "'"
	case string:
		return s.quote(x)
	case fmt.Stringer:
		return s.quote(x.String())
	default:
		return s.quote(fmt.Sprint(x))
	}
}

func (s LiteralStyle) quote(str string) string {
	if s.EscapeBackslash {
		str = strings.ReplaceAll(str, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(str, "'", "''") + "'"
}

func formatFloat(f float64, bits int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "'" + strconv.FormatFloat(f, 'g', -1, bits) + "'"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}
