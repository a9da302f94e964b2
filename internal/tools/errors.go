package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownTool means no tool is registered under the requested name.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrBadParams means required parameters are missing or malformed.
	ErrBadParams = errors.New("bad parameters")

	// ErrTimeout means the tool did not finish within its bounded wait.
	ErrTimeout = errors.New("tool timed out")

	// ErrUpstream means the store or mailbox behind the tool failed.
	ErrUpstream = errors.New("upstream failure")
)

// Failure kinds reported in audit records.
const (
	KindUnknownTool = "unknown_tool"
	KindBadParams   = "bad_params"
	KindTimeout     = "timeout"
	KindUpstream    = "upstream"
	KindCancelled   = "cancelled"
	KindInternal    = "internal"
)

// ParamsError lists the offending parameters of one call.
type ParamsError struct {
	Tool    string
	Missing []string
	// Invalid maps a parameter name to what is wrong with it.
	Invalid map[string]string
}

func (e *ParamsError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	names := make([]string, 0, len(e.Invalid))
	for name := range e.Invalid {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, name+": "+e.Invalid[name])
	}
	return fmt.Sprintf("bad parameters for %s: %s", e.Tool, strings.Join(parts, "; "))
}

func (e *ParamsError) Unwrap() error {
	return ErrBadParams
}

// Params returns every offending parameter name, sorted.
func (e *ParamsError) Params() []string {
	names := append([]string(nil), e.Missing...)
	for name := range e.Invalid {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func invalidParam(name, reason string) *ParamsError {
	return &ParamsError{Invalid: map[string]string{name: reason}}
}

// Kind classifies err for audit records and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownTool):
		return KindUnknownTool
	case errors.Is(err, ErrBadParams):
		return KindBadParams
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	case errors.Is(err, context.Canceled):
		return KindCancelled
	default:
		return KindInternal
	}
}

func upstream(tool string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, tool, err)
}
