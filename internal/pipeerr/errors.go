// Package pipeerr defines the single error kind returned by the LeapML
// pipeline stages.
//
// Every public stage operation wraps whatever went wrong underneath in an
// *Error carrying the operation name, a coarse Kind and the source location
// where the wrap happened. The original cause stays reachable through
// errors.Is and errors.As.
package pipeerr

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// Kind classifies a pipeline failure.
type Kind string

// Failure kinds.
const (
	KindIO     Kind = "io"
	KindData   Kind = "data"
	KindConfig Kind = "config"
	KindModel  Kind = "model"
)

// Sentinel causes used across stages.
var (
	ErrMissingColumn   = errors.New("missing column")
	ErrSchemaMismatch  = errors.New("schema mismatch")
	ErrNotFitted       = errors.New("not fitted")
	ErrUnknownCategory = errors.New("unknown category")
	ErrEmptyGrid       = errors.New("empty parameter grid")
	ErrMissingGrid     = errors.New("no parameter grid for candidate")
	ErrNoBestModel     = errors.New("no best model found")
)

// Error is a processing failure with its original cause attached.
type Error struct {
	Op     string // operation that failed, e.g. "transform.Run"
	Kind   Kind
	Caller string // file:line of the wrap site
	Err    error
}

func (e *Error) Error() string {
	if e.Caller == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Caller, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns err wrapped as an *Error, or nil when err is nil.
//
// An err that is already an *Error for the same op is returned unchanged so
// retried wraps at one boundary do not stack.
func Wrap(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) && pe.Op == op {
		return err
	}
	return &Error{Op: op, Kind: kind, Caller: caller(2), Err: err}
}

// Errorf builds a new *Error from a format string. %w verbs are honored.
func Errorf(op string, kind Kind, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Caller: caller(2), Err: fmt.Errorf(format, args...)}
}

// KindOf reports the Kind of the outermost *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
