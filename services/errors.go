package services

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy for the review engines. Every rejected operation names the
// exact field, comment or transition that was wrong; controllers map these
// onto HTTP statuses.
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSlotOccupied      = errors.New("reviewer slot already occupied")
	ErrCommentRequired   = errors.New("comment is required")
	ErrUnknownRequest    = errors.New("unknown document request")
	ErrValidationFailed  = errors.New("form validation failed")
)

// InvalidTransitionError reports a status change not permitted from the
// entity's current state. State-machine violations reject before any write.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %s: cannot move from %q to %q", e.Entity, e.ID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// SlotOccupiedError reports an assignment collision on a reviewer slot.
type SlotOccupiedError struct {
	ProtocolID string
	Slot       string
	ReviewerID string
}

func (e *SlotOccupiedError) Error() string {
	return fmt.Sprintf("protocol %s: slot %q is already held by reviewer %s", e.ProtocolID, e.Slot, e.ReviewerID)
}

func (e *SlotOccupiedError) Unwrap() error {
	return ErrSlotOccupied
}

// CommentRequiredError reports a review action missing its mandatory
// comment or reason.
type CommentRequiredError struct {
	Entity string
	ID     string
	Action string
}

func (e *CommentRequiredError) Error() string {
	return fmt.Sprintf("%s %s: %s requires a non-empty comment", e.Entity, e.ID, e.Action)
}

func (e *CommentRequiredError) Unwrap() error {
	return ErrCommentRequired
}

// ValidationError reports the required form fields missing from a
// submission. Nothing is written when validation fails.
type ValidationError struct {
	FormType string
	Missing  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("form %s: missing required fields: %s", e.FormType, strings.Join(e.Missing, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
