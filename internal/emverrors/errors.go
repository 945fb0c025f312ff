// Package emverrors defines the tagged error kinds that propagate out of
// the element/branch/replay/workspace layers.
package emverrors

import (
	"errors"
	"fmt"
)

// Kind tags an Error with one of the error categories from the engine's
// error-handling design. Never used for normal control flow.
type Kind int

const (
	// KindUnknown is the zero value; a well-formed Error never carries it.
	KindUnknown Kind = iota
	KindBranching
	KindNoSuchRevision
	KindBadID
	KindBadFormat
	KindMergeConflicts
	KindTreeCycle
	KindNameClash
	KindRootReparent
	KindBadParent
	KindIncorrectParams
	KindCancelled
	KindIO
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindBranching:
		return "Branching"
	case KindNoSuchRevision:
		return "NoSuchRevision"
	case KindBadID:
		return "BadId"
	case KindBadFormat:
		return "BadFormat"
	case KindMergeConflicts:
		return "MergeConflicts"
	case KindTreeCycle:
		return "TreeCycle"
	case KindNameClash:
		return "NameClash"
	case KindRootReparent:
		return "RootReparent"
	case KindBadParent:
		return "BadParent"
	case KindIncorrectParams:
		return "IncorrectParams"
	case KindCancelled:
		return "Cancelled"
	case KindIO:
		return "IO"
	case KindTransport:
		return "Transport"
	default:
		return "Unknown"
	}
}

// Error is the engine's single error type. Op names the command or
// operation that failed; Err is the wrapped cause, if any.
type Error struct {
	Kind Kind
	Op   string
	Arg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Arg != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Arg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, emverrors.New(KindBadParent, "", "")).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New builds an Error with no wrapped cause.
func New(kind Kind, op, arg string) *Error {
	return &Error{Kind: kind, Op: op, Arg: arg}
}

// Wrap builds an Error around an existing cause.
func Wrap(kind Kind, op, arg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Arg: arg, Err: err}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, else
// KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
