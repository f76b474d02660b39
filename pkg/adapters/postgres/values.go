package postgres

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// NormalizeValue converts pgx decoded values into Row value types.
// Numerics, UUIDs, JSON documents and other rich types become strings.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case nil, int64, float64, bool, string, []byte, time.Time:
		return v
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	case [16]byte:
		return fmt.Sprintf("%x-%x-%x-%x-%x", x[0:4], x[4:6], x[6:8], x[8:10], x[10:16])
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return fmt.Sprint(x)
		}
		if _, same := dv.(driver.Valuer); same {
			return fmt.Sprint(dv)
		}
		return NormalizeValue(dv)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
