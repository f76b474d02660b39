package base

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeValue converts a database/sql scanned value into one of the
// Row value types. dbType is the driver's DatabaseTypeName for the column.
func NormalizeValue(dbType string, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		t := strings.ToUpper(dbType)
		if isBinaryType(t) {
			return x
		}
		s := string(x)
		switch {
		case isIntegerType(t):
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
		case isFloatType(t):
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
		return s
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return strconv.FormatUint(x, 10)
		}
		return int64(x)
	case float32:
		return float64(x)
	}
	return v
}

func isBinaryType(t string) bool {
	return strings.Contains(t, "BLOB") || strings.Contains(t, "BINARY") ||
		strings.Contains(t, "BYTEA") || strings.HasPrefix(t, "BIT") ||
		strings.Contains(t, "GEOMETRY")
}

func isIntegerType(t string) bool {
	return strings.Contains(t, "INT") || t == "YEAR"
}

func isFloatType(t string) bool {
	return strings.Contains(t, "FLOAT") || strings.Contains(t, "DOUBLE") || strings.Contains(t, "REAL")
}
