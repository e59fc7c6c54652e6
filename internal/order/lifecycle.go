// Package order defines the order status state machine.
package order

import "fmt"

// Status is an order lifecycle state.
type Status string

const (
	StatusOrdered   Status = "ORDERED"
	StatusOnShip    Status = "ON_SHIP"
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
)

// transitions is the explicit table of permitted moves. COMPLETED and
// CANCELED are terminal. Strict ordering is enforced: an order cannot jump
// from ORDERED straight to COMPLETED.
var transitions = map[Status][]Status{
	StatusOrdered: {StatusOnShip, StatusCanceled},
	StatusOnShip:  {StatusCompleted, StatusCanceled},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOrdered, StatusOnShip, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// CanTransition reports whether moving from one status to another is allowed.
// A same-status update (e.g. attaching a tracking code while ON_SHIP) is
// permitted as long as the state is not terminal.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return !from.Terminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanCancel reports whether cancellation is permitted from s: allowed from
// ORDERED and ON_SHIP, rejected once the order is COMPLETED or CANCELED.
func CanCancel(s Status) bool {
	return CanTransition(s, StatusCanceled)
}

// TransitionError reports a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal order status transition from %s to %s", e.From, e.To)
}

// Transition validates and applies a status change, returning the new status.
func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return from, &TransitionError{From: from, To: to}
	}
	return to, nil
}
