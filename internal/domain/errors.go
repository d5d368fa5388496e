package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrSeatUnavailable    = errors.New("seat unavailable")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrPromoNotApplicable = errors.New("promo code not applicable")
	ErrNotCancellable     = errors.New("booking is not cancellable")
)

// TransitionError reports a status change attempted from a state that does not allow it.
// It matches ErrInvalidTransition with errors.Is.
type TransitionError struct {
	Entity string
	Op     string
	From   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s from status %q", e.Entity, e.Op, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
