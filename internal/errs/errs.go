// Package errs implements the §7 error taxonomy as a thin classification
// layer over the sentinel/struct errors each collaborator already
// returns (scanner.ErrRootUnavailable, scanner.CancelReason,
// node.ErrInvariantViolation, ...): a Kind() method any of them can be
// tagged with via Wrap, so cmd/duscape can map an error to an exit code
// with one errors.As call instead of a chain of type switches.
package errs

import "errors"

// Kind is one of the §7 error-handling taxonomy's propagating cases.
// EntryAccessDenied/EntryTransient/OverflowedNotifications never reach
// here: they are absorbed into the tree (flags, denied_dirs counters) or
// the watcher's own refresh path, per §7's propagation rule.
type Kind int

const (
	KindOther Kind = iota
	KindRootUnavailable
	KindCancelled
	KindInvariantViolation
)

// Error pairs an underlying error with its taxonomy Kind.
type Error struct {
	kind Kind
	err  error
}

func (e *Error) Error() string { return e.err.Error() }
func (e *Error) Unwrap() error { return e.err }
func (e *Error) Kind() Kind    { return e.kind }

// Wrap tags err with kind, or returns nil if err is nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, err: err}
}

// KindOf classifies err by unwrapping to the first *Error in its chain,
// or KindOther if none is found.
func KindOf(err error) Kind {
	if err == nil {
		return KindOther
	}
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindOther
}
