package typemap

import "github.com/ruslano69/dbsync/pkg/adapters"

// Pair is a (source, target) engine combination.
type Pair struct {
	From adapters.Engine
	To   adapters.Engine
}

// tables maps an engine pair to UPPERCASE source base type -> target base type.
var tables = map[Pair]map[string]string{
	{adapters.MySQL, adapters.SQLite}: {
		"TINYINT":   "INTEGER",
		"SMALLINT":  "INTEGER",
		"MEDIUMINT": "INTEGER",
		"INT":       "INTEGER",
		"INTEGER":   "INTEGER",
		"BIGINT":    "INTEGER",

		"FLOAT":   "REAL",
		"DOUBLE":  "REAL",
		"DECIMAL": "REAL",
		"NUMERIC": "REAL",

		"CHAR":       "TEXT",
		"VARCHAR":    "TEXT",
		"TINYTEXT":   "TEXT",
		"TEXT":       "TEXT",
		"MEDIUMTEXT": "TEXT",
		"LONGTEXT":   "TEXT",

		"TINYBLOB":   "BLOB",
		"BLOB":       "BLOB",
		"MEDIUMBLOB": "BLOB",
		"LONGBLOB":   "BLOB",
		"BINARY":     "BLOB",
		"VARBINARY":  "BLOB",

		"DATE":      "TEXT",
		"TIME":      "TEXT",
		"DATETIME":  "TEXT",
		"TIMESTAMP": "TEXT",
		"YEAR":      "INTEGER",

		"BOOL":    "INTEGER",
		"BOOLEAN": "INTEGER",

		"ENUM": "TEXT",
		"SET":  "TEXT",
		"JSON": "TEXT",
	},
	{adapters.MySQL, adapters.PostgreSQL}: {
		"TINYINT":   "SMALLINT",
		"SMALLINT":  "SMALLINT",
		"MEDIUMINT": "INTEGER",
		"INT":       "INTEGER",
		"INTEGER":   "INTEGER",
		"BIGINT":    "BIGINT",

		"FLOAT":   "REAL",
		"DOUBLE":  "DOUBLE PRECISION",
		"DECIMAL": "NUMERIC",
		"NUMERIC": "NUMERIC",

		"CHAR":       "CHARACTER",
		"VARCHAR":    "VARCHAR",
		"TINYTEXT":   "TEXT",
		"TEXT":       "TEXT",
		"MEDIUMTEXT": "TEXT",
		"LONGTEXT":   "TEXT",

		"TINYBLOB":   "BYTEA",
		"BLOB":       "BYTEA",
		"MEDIUMBLOB": "BYTEA",
		"LONGBLOB":   "BYTEA",
		"BINARY":     "BYTEA",
		"VARBINARY":  "BYTEA",

		"DATE":      "DATE",
		"TIME":      "TIME",
		"DATETIME":  "TIMESTAMP",
		"TIMESTAMP": "TIMESTAMP",
		"YEAR":      "INTEGER",

		"BOOL":    "BOOLEAN",
		"BOOLEAN": "BOOLEAN",

		"ENUM": "VARCHAR",
		"SET":  "TEXT",
		"JSON": "JSONB",
	},
	{adapters.SQLite, adapters.MySQL}: {
		"INTEGER":  "INT",
		"REAL":     "DOUBLE",
		"TEXT":     "TEXT",
		"BLOB":     "BLOB",
		"NUMERIC":  "DECIMAL",
		"DATETIME": "DATETIME",
	},
	{adapters.SQLite, adapters.PostgreSQL}: {
		"INTEGER":  "INTEGER",
		"REAL":     "DOUBLE PRECISION",
		"TEXT":     "TEXT",
		"BLOB":     "BYTEA",
		"NUMERIC":  "NUMERIC",
		"DATETIME": "TIMESTAMP",
	},
	{adapters.PostgreSQL, adapters.MySQL}: {
		"SMALLINT":         "SMALLINT",
		"INTEGER":          "INT",
		"BIGINT":           "BIGINT",
		"DECIMAL":          "DECIMAL",
		"NUMERIC":          "DECIMAL",
		"REAL":             "DOUBLE",
		"DOUBLE PRECISION": "DOUBLE",
		"CHARACTER":        "CHAR",
		"VARCHAR":          "VARCHAR",
		"TEXT":             "TEXT",
		"BYTEA":            "BLOB",
		"DATE":             "DATE",
		"TIME":             "TIME",
		"TIMESTAMP":        "DATETIME",
		"TIMESTAMPTZ":      "DATETIME",
		"BOOLEAN":          "TINYINT",
		"JSONB":            "JSON",
		"JSON":             "JSON",
		"UUID":             "CHAR(36)",
	},
	{adapters.PostgreSQL, adapters.SQLite}: {
		"SMALLINT":         "INTEGER",
		"INTEGER":          "INTEGER",
		"BIGINT":           "INTEGER",
		"SMALLSERIAL":      "INTEGER",
		"SERIAL":           "INTEGER",
		"BIGSERIAL":        "INTEGER",
		"DECIMAL":          "REAL",
		"NUMERIC":          "REAL",
		"REAL":             "REAL",
		"DOUBLE PRECISION": "REAL",
		"CHARACTER":        "TEXT",
		"VARCHAR":          "TEXT",
		"TEXT":             "TEXT",
		"BYTEA":            "BLOB",
		"DATE":             "TEXT",
		"TIME":             "TEXT",
		"TIMESTAMP":        "TEXT",
		"TIMESTAMPTZ":      "TEXT",
		"BOOLEAN":          "INTEGER",
		"JSONB":            "TEXT",
		"JSON":             "TEXT",
		"UUID":             "TEXT",
	},
}

// noLength holds target base types that never carry a length modifier.
var noLength = map[string]bool{
	"TEXT":      true,
	"BLOB":      true,
	"BYTEA":     true,
	"DATE":      true,
	"TIME":      true,
	"DATETIME":  true,
	"TIMESTAMP": true,
	"BOOLEAN":   true,
	"JSON":      true,
	"JSONB":     true,
}

// noLengthByTarget extends noLength for engines that reject display
// widths on numeric types. SQLite accepts and ignores them.
var noLengthByTarget = map[adapters.Engine]map[string]bool{
	adapters.PostgreSQL: {
		"SMALLINT":         true,
		"INTEGER":          true,
		"BIGINT":           true,
		"REAL":             true,
		"DOUBLE PRECISION": true,
	},
}

// bareTargets replaces a target type that is invalid without a length.
var bareTargets = map[Pair]map[string]string{
	{adapters.PostgreSQL, adapters.MySQL}: {
		"VARCHAR": "TEXT",
	},
}

// Table returns the mapping for p. It reports false for identical
// engines and for unknown pairs.
func Table(p Pair) (map[string]string, bool) {
	t, ok := tables[p]
	return t, ok
}

func dropsLength(to adapters.Engine, base string) bool {
	return noLength[base] || noLengthByTarget[to][base]
}
