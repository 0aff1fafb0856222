package models

import (
	"protocol-review-api/store"
	"time"
)

// Assignment statuses. pending → completed → approved, or pending →
// superseded when the chairperson reassigns the slot. superseded and
// approved are terminal.
const (
	AssignmentPending    = "pending"
	AssignmentCompleted  = "completed"
	AssignmentApproved   = "approved"
	AssignmentSuperseded = "superseded"
)

// Reviewer decisions recorded when an assignment completes.
const (
	DecisionApprove           = "approve"
	DecisionRevisionsRequired = "revisions-required"
	DecisionDisapprove        = "disapprove"
)

// ReviewerAssignment is one reviewer's stake in one protocol. At most one
// non-superseded assignment exists per (protocol, slot).
type ReviewerAssignment struct {
	ID            string     `json:"id"`
	ProtocolID    string     `json:"protocol_id"`
	Slot          string     `json:"slot"`
	ReviewerID    string     `json:"reviewer_id"`
	ReviewerName  string     `json:"reviewer_name"`
	ReviewerEmail string     `json:"reviewer_email"`
	Status        string     `json:"status"`
	FormType      string     `json:"form_type"`
	AssignedAt    time.Time  `json:"assigned_at"`
	Deadline      time.Time  `json:"deadline"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Decision      string     `json:"decision,omitempty"`
	Comments      string     `json:"comments,omitempty"`
	Rev           int64      `json:"rev"`
}

// Active reports whether the assignment currently occupies its slot.
func (a *ReviewerAssignment) Active() bool {
	return a.Status != AssignmentSuperseded
}

// AssignmentFromRecord validates and decodes an assignment record.
func AssignmentFromRecord(protocolID string, r *store.Record) (*ReviewerAssignment, error) {
	d := newDocReader("assignment", r)
	a := &ReviewerAssignment{
		ID:            r.ID,
		ProtocolID:    protocolID,
		Slot:          d.requiredStr("slot"),
		ReviewerID:    d.requiredStr("reviewerId"),
		ReviewerName:  d.str("reviewerName"),
		ReviewerEmail: d.str("reviewerEmail"),
		Status:        d.enum("status", AssignmentPending, AssignmentCompleted, AssignmentApproved, AssignmentSuperseded),
		FormType:      d.str("formType"),
		AssignedAt:    d.timeAt("assignedAt"),
		Deadline:      d.timeAt("deadline"),
		CompletedAt:   d.timePtr("completedAt"),
		Decision:      d.str("decision"),
		Comments:      d.str("comments"),
		Rev:           r.Rev,
	}
	if d.err != nil {
		return nil, d.err
	}
	return a, nil
}

// Data encodes the assignment as a store document.
func (a *ReviewerAssignment) Data() map[string]any {
	data := map[string]any{
		"slot":          a.Slot,
		"reviewerId":    a.ReviewerID,
		"reviewerName":  a.ReviewerName,
		"reviewerEmail": a.ReviewerEmail,
		"status":        a.Status,
		"formType":      a.FormType,
		"assignedAt":    a.AssignedAt,
		"deadline":      a.Deadline,
	}
	if a.CompletedAt != nil {
		data["completedAt"] = timeOrNil(a.CompletedAt)
	}
	if a.Decision != "" {
		data["decision"] = a.Decision
	}
	if a.Comments != "" {
		data["comments"] = a.Comments
	}
	return data
}
