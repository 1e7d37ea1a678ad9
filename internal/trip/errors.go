package trip

import (
	"errors"
	"fmt"
)

var (
	// Lookup failures.
	ErrTripNotFound    = errors.New("trip not found")
	ErrRequestNotFound = errors.New("join request not found")

	// Authorization failures.
	ErrNotOrganizer = errors.New("only the organizer can perform this action")

	// Admission rejections, in the order the membership engine checks them.
	ErrTripNotJoinable    = errors.New("trip is not accepting join requests")
	ErrTripFull           = errors.New("trip is at maximum capacity")
	ErrSelfJoin           = errors.New("you cannot join your own trip")
	ErrAlreadyParticipant = errors.New("you are already a participant in this trip")
	ErrDuplicateRequest   = errors.New("you already have a pending join request for this trip")
	ErrRequestNotPending  = errors.New("join request has already been processed")

	// Leave rejections.
	ErrNotParticipant       = errors.New("you are not a participant in this trip")
	ErrOrganizerCannotLeave = errors.New("organizer cannot leave their own trip")
	ErrTripInJourney        = errors.New("cannot leave a trip while it is in journey")

	// Review rejections.
	ErrTripNotEnded    = errors.New("can only review completed trips")
	ErrOrganizerReview = errors.New("organizers cannot review their own trips")
	ErrAlreadyReviewed = errors.New("you have already reviewed this trip")

	// ErrStateConflict reports that a concurrent mutation invalidated the
	// preconditions this operation was checked against. Safe to retry.
	ErrStateConflict = errors.New("trip was modified concurrently, please retry")
)

// ValidationError reports malformed input with field-level detail. It is
// returned before any mutation is applied.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
