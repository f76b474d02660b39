package base

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"null", nil, "NULL"},
		{"int64", int64(42), "42"},
		{"negative int", -7, "-7"},
		{"uint", uint32(9), "9"},
		{"float", 3.5, "3.5"},
		{"whole float", 30.0, "30"},
		{"nan", math.NaN(), "'NaN'"},
		{"bool", true, "TRUE"},
		{"timestamp", ts, "'2024-03-09 14:05:07'"},
		{"timestamp with micros", ts.Add(1500 * time.Microsecond), "'2024-03-09 14:05:07.0015'"},
		{"bytes", []byte{0xde, 0xad, 0x01}, "X'dead01'"},
		{"string", "Alice", "'Alice'"},
		{"embedded quote", "O'Brien", "'O''Brien'"},
		{"backslash kept", `C:\tmp`, `'C:\tmp'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in))
		})
	}
}

func TestLiteralStyle_EscapeBackslash(t *testing.T) {
	s := LiteralStyle{EscapeBackslash: true}
	assert.Equal(t, `'C:\\tmp\\it''s'`, s.Format(`C:\tmp\it's`))
}

func TestLiteralStyle_Blob(t *testing.T) {
	s := LiteralStyle{Blob: func(b []byte) string { return "<" + string(b) + ">" }}
	assert.Equal(t, "<ab>", s.Format([]byte("ab")))
}
