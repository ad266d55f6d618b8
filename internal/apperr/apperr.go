// Package apperr defines the closed set of error kinds the trading engine
// produces, and the critical/non-critical classification the scheduler uses to
// decide whether to keep running.
package apperr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the category of an engine error.
type Kind string

const (
	// KindData: a missing or unexpected analytics field. Skips the item or pass.
	KindData Kind = "data"
	// KindNetwork: a marketplace call failed. Retried on the next cycle.
	KindNetwork Kind = "network"
	// KindLock: a shared-state snapshot could not be acquired. Always critical.
	KindLock Kind = "lock"
	// KindIO: a local file could not be read. Retried on the next tick.
	KindIO Kind = "io"
)

// Error carries structured context for a failed engine step.
type Error struct {
	Kind     Kind
	Op       string // e.g. "wfm.CreateOrder", "analytics.Analyze"
	Item     string // item url_name, empty when not item specific
	Status   int    // HTTP status for network errors, 0 otherwise
	Critical bool
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error in %s", e.Kind, e.Op)
	if e.Item != "" {
		msg += fmt.Sprintf(" [%s]", e.Item)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Format supports %+v, which prints the wrapped error with its stack trace.
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') && e.Err != nil {
			fmt.Fprintf(s, "%s\n%+v", e.Error(), e.Err)
			return
		}
		fallthrough
	case 's':
		fmt.Fprint(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

func newError(kind Kind, op, item string, err error) *Error {
	if err == nil {
		err = errors.New(string(kind) + " failure")
	} else if _, ok := err.(interface{ StackTrace() errors.StackTrace }); !ok {
		err = errors.WithStack(err)
	}
	return &Error{Kind: kind, Op: op, Item: item, Err: err}
}

// Data wraps err as a data error.
func Data(op, item string, err error) *Error {
	return newError(KindData, op, item, err)
}

// Dataf builds a data error from a format string.
func Dataf(op, item, format string, args ...any) *Error {
	return newError(KindData, op, item, errors.Errorf(format, args...))
}

// Network wraps err as a network error. 401 and 403 mean the session is no
// longer valid, which violates the engine's own-state assumptions.
func Network(op, item string, status int, err error) *Error {
	e := newError(KindNetwork, op, item, err)
	e.Status = status
	e.Critical = status == 401 || status == 403
	return e
}

// Lock builds a lock error. Lock errors are always critical.
func Lock(op string, err error) *Error {
	e := newError(KindLock, op, "", err)
	e.Critical = true
	return e
}

// IO wraps err as an io error.
func IO(op string, err error) *Error {
	return newError(KindIO, op, "", err)
}

// MarkCritical flags err as critical. Non-engine errors are wrapped as data
// errors first.
func MarkCritical(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		e.Critical = true
		return e
	}
	e = newError(KindData, "unknown", "", err)
	e.Critical = true
	return e
}

// IsCritical reports whether err, or anything it wraps, is critical.
func IsCritical(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Critical || e.Kind == KindLock
	}
	return false
}

// KindOf returns the kind of err, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is an engine error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
