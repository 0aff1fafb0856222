package models

import (
	"protocol-review-api/store"
	"time"
)

// Assessment form statuses. A form that has never been written is
// not-started; autosave creates it as draft. returned re-enters draft on the
// next autosave; approved is immutable.
const (
	FormNotStarted = "not-started"
	FormDraft      = "draft"
	FormSubmitted  = "submitted"
	FormApproved   = "approved"
	FormReturned   = "returned"
)

// AssessmentForm is one reviewer's structured response for one protocol and
// one form template. Forms are keyed under the assignment, so a reassigned
// slot starts with fresh forms while the superseded reviewer's forms remain
// intact.
type AssessmentForm struct {
	FormType        string         `json:"form_type"`
	ProtocolID      string         `json:"protocol_id"`
	AssignmentID    string         `json:"assignment_id"`
	ReviewerID      string         `json:"reviewer_id"`
	Status          string         `json:"status"`
	FormData        map[string]any `json:"form_data"`
	LastSavedAt     time.Time      `json:"last_saved_at"`
	SubmittedAt     *time.Time     `json:"submitted_at,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	Rev             int64          `json:"rev"`
}

// FormFromRecord validates and decodes an assessment form record.
func FormFromRecord(protocolID, assignmentID string, r *store.Record) (*AssessmentForm, error) {
	d := newDocReader("assessment form", r)
	f := &AssessmentForm{
		FormType:        r.ID,
		ProtocolID:      protocolID,
		AssignmentID:    assignmentID,
		ReviewerID:      d.requiredStr("reviewerId"),
		Status:          d.enum("status", FormDraft, FormSubmitted, FormApproved, FormReturned),
		FormData:        d.mapVal("formData"),
		LastSavedAt:     d.timeAt("lastSavedAt"),
		SubmittedAt:     d.timePtr("submittedAt"),
		RejectionReason: d.str("rejectionReason"),
		Rev:             r.Rev,
	}
	if d.err != nil {
		return nil, d.err
	}
	if f.FormData == nil {
		f.FormData = map[string]any{}
	}
	return f, nil
}

// Data encodes the form as a store document.
func (f *AssessmentForm) Data() map[string]any {
	data := map[string]any{
		"reviewerId":  f.ReviewerID,
		"status":      f.Status,
		"formData":    f.FormData,
		"lastSavedAt": f.LastSavedAt,
	}
	if f.SubmittedAt != nil {
		data["submittedAt"] = timeOrNil(f.SubmittedAt)
	}
	if f.RejectionReason != "" {
		data["rejectionReason"] = f.RejectionReason
	}
	return data
}
