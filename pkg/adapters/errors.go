package adapters

import "errors"

// Error kinds. Adapters and the migration layer wrap these with fmt.Errorf
// so callers can classify failures with errors.Is.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrConnection        = errors.New("connection error")
	ErrSchema            = errors.New("schema error")
	ErrData              = errors.New("data error")
	ErrScriptParse       = errors.New("script parse error")
	ErrUnsupportedEngine = errors.New("unsupported database type")
	ErrNotConnected      = errors.New("adapter not connected")
)
