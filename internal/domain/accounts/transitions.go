package accounts

import "fmt"

// transitions is the single source of truth for account status changes.
// Keys are the current status, values the statuses it may move to.
var transitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected, StatusSuspended},
	StatusApproved:  {StatusRejected, StatusSuspended},
	StatusRejected:  {StatusApproved},
	StatusSuspended: {StatusApproved},
}

// CanTransition reports whether an account in status from may be moved to
// status to. Self transitions are never allowed and nothing returns to PENDING.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns a copy of the statuses reachable from from.
func AllowedTransitions(from Status) []Status {
	next := transitions[from]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ValidateTransition returns a *TransitionError when the change is not allowed.
func ValidateTransition(from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}
