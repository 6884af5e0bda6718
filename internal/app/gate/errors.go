package gate

import (
	"errors"
	"fmt"

	"campcal/internal/app/middleware"
)

var (
	ErrNotPermitted   = middleware.ErrNotPermitted
	ErrNothingPending = errors.New("gate: no change awaiting confirmation")
	ErrWrongPath      = errors.New("gate: confirmation path does not match the pending change")
	ErrBusy           = errors.New("gate: a change is already being committed")
	ErrPendingOpen    = errors.New("gate: confirm or cancel the pending change first")
	ErrSuperseded     = errors.New("gate: interaction was superseded")
)

type Reason string

const (
	ReasonCheckedIn   Reason = "checked_in"
	ReasonNotMovable  Reason = "not_movable"
	ReasonSiteLocked  Reason = "site_locked"
	ReasonConflict    Reason = "conflict"
	ReasonBlackout    Reason = "blackout"
	ReasonUnavailable Reason = "unavailable"
	ReasonNoSelection Reason = "no_selection"
)

// BlockedError refuses an interaction before any request is issued.
type BlockedError struct {
	Reason  Reason
	Message string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("gate: blocked (%s): %s", e.Reason, e.Message)
}

func blocked(reason Reason, msg string) *BlockedError {
	return &BlockedError{Reason: reason, Message: msg}
}

// MutationError wraps a change request the data layer rejected or never
// received. The calendar keeps its last committed state.
type MutationError struct {
	Op  string
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("gate: %s failed: %v", e.Op, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// Retryable is false for refusals that repeating the request cannot fix.
func (e *MutationError) Retryable() bool {
	var blockedErr *BlockedError
	var validation *middleware.ValidationError
	switch {
	case errors.As(e.Err, &blockedErr), errors.As(e.Err, &validation):
		return false
	case errors.Is(e.Err, ErrNotPermitted):
		return false
	default:
		return true
	}
}
