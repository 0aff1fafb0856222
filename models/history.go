package models

import (
	"protocol-review-api/store"
	"time"
)

// ReassignmentHistory is the immutable audit record written when a
// chairperson replaces the reviewer in a slot. Entries are append-only and
// never updated after creation.
type ReassignmentHistory struct {
	ID               string    `json:"id"`
	ProtocolID       string    `json:"protocol_id"`
	Slot             string    `json:"slot"`
	OldReviewerID    string    `json:"old_reviewer_id"`
	OldReviewerName  string    `json:"old_reviewer_name"`
	OldReviewerEmail string    `json:"old_reviewer_email"`
	NewReviewerID    string    `json:"new_reviewer_id"`
	NewReviewerName  string    `json:"new_reviewer_name"`
	NewReviewerEmail string    `json:"new_reviewer_email"`
	OriginalDeadline time.Time `json:"original_deadline"`
	NewDeadline      time.Time `json:"new_deadline"`
	ReassignedAt     time.Time `json:"reassigned_at"`
	ReassignedBy     string    `json:"reassigned_by"`
	Reason           string    `json:"reason"`
	DaysOverdue      int       `json:"days_overdue"`
}

// ReassignmentFromRecord validates and decodes a history record.
func ReassignmentFromRecord(protocolID string, r *store.Record) (*ReassignmentHistory, error) {
	d := newDocReader("reassignment", r)
	h := &ReassignmentHistory{
		ID:               r.ID,
		ProtocolID:       protocolID,
		Slot:             d.requiredStr("slot"),
		OldReviewerID:    d.requiredStr("oldReviewerId"),
		OldReviewerName:  d.str("oldReviewerName"),
		OldReviewerEmail: d.str("oldReviewerEmail"),
		NewReviewerID:    d.requiredStr("newReviewerId"),
		NewReviewerName:  d.str("newReviewerName"),
		NewReviewerEmail: d.str("newReviewerEmail"),
		OriginalDeadline: d.timeAt("originalDeadline"),
		NewDeadline:      d.timeAt("newDeadline"),
		ReassignedAt:     d.timeAt("reassignedAt"),
		ReassignedBy:     d.str("reassignedBy"),
		Reason:           d.str("reason"),
		DaysOverdue:      d.intVal("daysOverdue"),
	}
	if d.err != nil {
		return nil, d.err
	}
	return h, nil
}

// Data encodes the history entry as a store document.
func (h *ReassignmentHistory) Data() map[string]any {
	return map[string]any{
		"slot":             h.Slot,
		"oldReviewerId":    h.OldReviewerID,
		"oldReviewerName":  h.OldReviewerName,
		"oldReviewerEmail": h.OldReviewerEmail,
		"newReviewerId":    h.NewReviewerID,
		"newReviewerName":  h.NewReviewerName,
		"newReviewerEmail": h.NewReviewerEmail,
		"originalDeadline": h.OriginalDeadline,
		"newDeadline":      h.NewDeadline,
		"reassignedAt":     h.ReassignedAt,
		"reassignedBy":     h.ReassignedBy,
		"reason":           h.Reason,
		"daysOverdue":      h.DaysOverdue,
	}
}
