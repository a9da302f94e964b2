package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/amodeus4/emailagent/internal/tools/batch"
)

// Params are the decoded arguments of a call. Numbers arrive as float64
// from JSON.
type Params map[string]any

// present reports whether name was given a non-empty value.
func (p Params) present(name string) bool {
	v, ok := p[name]
	if !ok || v == nil {
		return false
	}
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v) != ""
	case []any:
		return len(v) > 0
	case []string:
		return len(v) > 0
	}
	return true
}

func (p Params) missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if !p.present(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// String returns a trimmed string parameter, or "" when absent.
func (p Params) String(name string) (string, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", invalidParam(name, "must be a string")
	}
	return strings.TrimSpace(s), nil
}

// Int returns an integer parameter, def when absent. Numeric strings are
// accepted since models sometimes quote numbers.
func (p Params) Int(name string, def int) (int, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return def, nil
	}

	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, invalidParam(name, "must be an integer")
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, invalidParam(name, "must be an integer")
		}
		return i, nil
	default:
		return 0, invalidParam(name, "must be a number")
	}

	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, invalidParam(name, "must be an integer")
	}
	return int(f), nil
}

// Limit returns a positive result count, def when absent, capped at max.
func (p Params) Limit(name string, def, max int) (int, error) {
	n, err := p.Int(name, def)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, invalidParam(name, fmt.Sprintf("must be between 1 and %d", max))
	}
	if n > max {
		n = max
	}
	return n, nil
}

// Strings returns a string list parameter given as one string or an array.
// Absent means nil.
func (p Params) Strings(name string) ([]string, error) {
	if !p.present(name) {
		return nil, nil
	}
	list, err := batch.ParseStringOrArray(p[name], name)
	if err != nil {
		return nil, invalidParam(name, err.Error())
	}
	return list, nil
}

// OptionalBool returns a boolean parameter, nil when absent. "true" and
// "false" strings are accepted.
func (p Params) OptionalBool(name string) (*bool, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch b := v.(type) {
	case bool:
		return &b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return nil, invalidParam(name, "must be true or false")
		}
		return &parsed, nil
	default:
		return nil, invalidParam(name, "must be a boolean")
	}
}
