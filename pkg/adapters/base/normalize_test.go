package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name   string
		dbType string
		in     any
		want   any
	}{
		{"nil", "TEXT", nil, nil},
		{"varchar bytes", "VARCHAR", []byte("Bob"), "Bob"},
		{"decimal stays text", "DECIMAL", []byte("10.50"), "10.50"},
		{"int text protocol", "INT", []byte("25"), int64(25)},
		{"unsigned bigint", "UNSIGNED BIGINT", []byte("7"), int64(7)},
		{"double text protocol", "DOUBLE", []byte("2.5"), 2.5},
		{"blob kept", "BLOB", []byte{1, 2}, []byte{1, 2}},
		{"varbinary kept", "VARBINARY", []byte{3}, []byte{3}},
		{"int32 widened", "INTEGER", int32(5), int64(5)},
		{"float32 widened", "REAL", float32(1.5), 1.5},
		{"string passthrough", "TEXT", "x", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeValue(tt.dbType, tt.in))
		})
	}
}
