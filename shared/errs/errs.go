// Package errs defines the error kinds shared by every Forge component.
// Kinds are sentinels; wrap them with E so callers can classify failures
// with errors.Is while keeping the underlying cause reachable.
package errs

import (
	"errors"
	"strings"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrMissingTemplate    = errors.New("missing template")
	ErrUnknownModel       = errors.New("unknown model")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrSpawnFailed        = errors.New("spawn failed")
	ErrGenerationFailed   = errors.New("generation failed")
	ErrNoSolutionMarker   = errors.New("no solution marker")
	ErrQueueFull          = errors.New("queue full")
	ErrIO                 = errors.New("i/o failure")
	ErrNotImplemented     = errors.New("not implemented")
)

var kinds = []error{
	ErrInvalidArgument,
	ErrMissingTemplate,
	ErrUnknownModel,
	ErrBackendUnavailable,
	ErrSpawnFailed,
	ErrGenerationFailed,
	ErrNoSolutionMarker,
	ErrQueueFull,
	ErrIO,
	ErrNotImplemented,
}

// Error is a classified failure of a single operation.
type Error struct {
	Op   string // e.g. "binary.generate", "prompt.save"
	Kind error  // one of the Err* sentinels
	Err  error  // underlying cause, may be nil
}

// E builds a classified error. err may be nil.
func E(op string, kind error, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Msg builds a classified error whose cause is a plain message.
func Msg(op string, kind error, msg string) *Error {
	return &Error{Op: op, Kind: kind, Err: errors.New(msg)}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the kind sentinel err was classified with, or nil.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != nil {
		return e.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
