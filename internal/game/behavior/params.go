package behavior

import (
	"fmt"
	"strconv"
)

// Params are free-form per-action parameters from behavior data.
type Params map[string]any

// String returns the string at key or def.
func (p Params) String(key, def string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case nil:
		return def
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the integer at key or def. Floats are truncated; numeric strings are parsed.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
