package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"protocol-review-api/models"
	"protocol-review-api/store"
)

// AssignmentService creates and tracks per-reviewer assignments with
// deadlines, and replaces reviewers who missed theirs. Deadlines are
// advisory: overdue is computed when someone reads or acts, never pushed by
// a scheduler.
type AssignmentService struct {
	store    store.Store
	notifier *NotificationService
	now      func() time.Time
}

func NewAssignmentService(s store.Store, notifier *NotificationService) *AssignmentService {
	return &AssignmentService{store: s, notifier: notifier, now: time.Now}
}

// AssignInput names the reviewer, the slot they fill, and their deadline.
type AssignInput struct {
	Slot          string    `json:"slot"`
	ReviewerID    string    `json:"reviewer_id"`
	ReviewerName  string    `json:"reviewer_name"`
	ReviewerEmail string    `json:"reviewer_email"`
	FormType      string    `json:"form_type"`
	Deadline      time.Time `json:"deadline"`
}

// AssignResult carries the assignment plus the non-fatal outcome of the
// notification send.
type AssignResult struct {
	Assignment   *models.ReviewerAssignment `json:"assignment"`
	Notification NotificationResult         `json:"notification"`
}

// Assign puts a reviewer into a slot. It fails with SlotOccupied when an
// active (non-superseded) assignment already holds the slot. The reviewer
// notification is sent afterwards; a delivery failure is reported in the
// result and never undoes the assignment.
func (s *AssignmentService) Assign(ctx context.Context, actor Actor, protocolID string, in AssignInput) (*AssignResult, error) {
	if strings.TrimSpace(in.Slot) == "" || strings.TrimSpace(in.ReviewerID) == "" {
		return nil, fmt.Errorf("slot and reviewer_id are required")
	}

	protocolRec, err := s.store.Get(ctx, store.ProtocolPath(protocolID))
	if err != nil {
		return nil, err
	}
	protocol, err := models.ProtocolFromRecord(protocolRec)
	if err != nil {
		return nil, err
	}

	existing, err := s.ListForProtocol(ctx, protocolID)
	if err != nil {
		return nil, err
	}
	for _, a := range existing {
		if a.Slot == in.Slot && a.Active() {
			return nil, &SlotOccupiedError{ProtocolID: protocolID, Slot: in.Slot, ReviewerID: a.ReviewerID}
		}
	}

	a := &models.ReviewerAssignment{
		ID:            uuid.NewString(),
		ProtocolID:    protocolID,
		Slot:          in.Slot,
		ReviewerID:    in.ReviewerID,
		ReviewerName:  in.ReviewerName,
		ReviewerEmail: in.ReviewerEmail,
		Status:        models.AssignmentPending,
		FormType:      in.FormType,
		AssignedAt:    s.now(),
		Deadline:      in.Deadline,
	}
	rec, err := s.store.Write(ctx, store.AssignmentPath(protocolID, a.ID), a.Data(), store.Replace)
	if err != nil {
		return nil, err
	}
	stored, err := models.AssignmentFromRecord(protocolID, rec)
	if err != nil {
		return nil, err
	}

	result := &AssignResult{Assignment: stored}
	if s.notifier != nil {
		result.Notification = s.notifier.ReviewerAssigned(ctx, stored, protocol)
	}
	return result, nil
}

// GetByID loads one assignment.
func (s *AssignmentService) GetByID(ctx context.Context, protocolID, assignmentID string) (*models.ReviewerAssignment, error) {
	rec, err := s.store.Get(ctx, store.AssignmentPath(protocolID, assignmentID))
	if err != nil {
		return nil, err
	}
	return models.AssignmentFromRecord(protocolID, rec)
}

// ListForProtocol returns every assignment on the protocol, superseded ones
// included, ordered by assignment time.
func (s *AssignmentService) ListForProtocol(ctx context.Context, protocolID string) ([]*models.ReviewerAssignment, error) {
	recs, err := s.store.List(ctx, store.Query{
		Collection: "assignments",
		ProtocolID: protocolID,
		OrderBy:    "assignedAt",
	})
	if err != nil {
		return nil, err
	}
	out := make([]*models.ReviewerAssignment, 0, len(recs))
	for i := range recs {
		a, err := models.AssignmentFromRecord(protocolID, &recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Complete records the reviewer's decision. Legal only while the assignment
// is pending.
func (s *AssignmentService) Complete(ctx context.Context, actor Actor, protocolID, assignmentID, decision, comments string) (*models.ReviewerAssignment, error) {
	a, err := s.GetByID(ctx, protocolID, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.AssignmentPending {
		return nil, &InvalidTransitionError{Entity: "assignment", ID: assignmentID, From: a.Status, To: models.AssignmentCompleted}
	}
	switch decision {
	case models.DecisionApprove, models.DecisionRevisionsRequired, models.DecisionDisapprove:
	default:
		return nil, fmt.Errorf("unknown reviewer decision %q", decision)
	}

	update := map[string]any{
		"status":      models.AssignmentCompleted,
		"completedAt": s.now(),
		"decision":    decision,
		"comments":    comments,
	}
	rec, err := s.store.Write(ctx, store.AssignmentPath(protocolID, assignmentID), update, store.Merge, store.WithKnownRev(a.Rev))
	if err != nil {
		return nil, err
	}
	return models.AssignmentFromRecord(protocolID, rec)
}

// ReassignInput names the replacement reviewer and the chairperson's reason.
type ReassignInput struct {
	NewReviewerID    string    `json:"new_reviewer_id"`
	NewReviewerName  string    `json:"new_reviewer_name"`
	NewReviewerEmail string    `json:"new_reviewer_email"`
	NewDeadline      time.Time `json:"new_deadline"`
	Reason           string    `json:"reason"`
}

// ReassignResult carries the superseded assignment, its replacement, the
// audit record, and the notification outcome.
type ReassignResult struct {
	Superseded   *models.ReviewerAssignment  `json:"superseded"`
	Assignment   *models.ReviewerAssignment  `json:"assignment"`
	History      *models.ReassignmentHistory `json:"history"`
	Notification NotificationResult          `json:"notification"`
}

// Reassign replaces the reviewer in a slot: the old assignment becomes
// superseded, a new pending assignment takes the slot, and one immutable
// history record is appended — all in a single atomic batch, so no observer
// ever sees two active assignments in a slot or a history row without its
// pair.
func (s *AssignmentService) Reassign(ctx context.Context, actor Actor, protocolID, assignmentID string, in ReassignInput) (*ReassignResult, error) {
	if strings.TrimSpace(in.NewReviewerID) == "" {
		return nil, fmt.Errorf("new_reviewer_id is required")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, &CommentRequiredError{Entity: "assignment", ID: assignmentID, Action: "reassign"}
	}

	old, err := s.GetByID(ctx, protocolID, assignmentID)
	if err != nil {
		return nil, err
	}
	if old.Status != models.AssignmentPending {
		return nil, &InvalidTransitionError{Entity: "assignment", ID: assignmentID, From: old.Status, To: models.AssignmentSuperseded}
	}

	now := s.now()
	replacement := &models.ReviewerAssignment{
		ID:            uuid.NewString(),
		ProtocolID:    protocolID,
		Slot:          old.Slot,
		ReviewerID:    in.NewReviewerID,
		ReviewerName:  in.NewReviewerName,
		ReviewerEmail: in.NewReviewerEmail,
		Status:        models.AssignmentPending,
		FormType:      old.FormType,
		AssignedAt:    now,
		Deadline:      in.NewDeadline,
	}
	history := &models.ReassignmentHistory{
		ID:               uuid.NewString(),
		ProtocolID:       protocolID,
		Slot:             old.Slot,
		OldReviewerID:    old.ReviewerID,
		OldReviewerName:  old.ReviewerName,
		OldReviewerEmail: old.ReviewerEmail,
		NewReviewerID:    in.NewReviewerID,
		NewReviewerName:  in.NewReviewerName,
		NewReviewerEmail: in.NewReviewerEmail,
		OriginalDeadline: old.Deadline,
		NewDeadline:      in.NewDeadline,
		ReassignedAt:     now,
		ReassignedBy:     actor.ID,
		Reason:           in.Reason,
		DaysOverdue:      DaysOverdue(old.Deadline, now),
	}

	recs, err := s.store.Apply(ctx,
		store.WriteOp{Path: store.AssignmentPath(protocolID, assignmentID), Data: map[string]any{"status": models.AssignmentSuperseded}, Mode: store.Merge},
		store.WriteOp{Path: store.AssignmentPath(protocolID, replacement.ID), Data: replacement.Data(), Mode: store.Replace},
		store.WriteOp{Path: store.HistoryPath(protocolID, history.ID), Data: history.Data(), Mode: store.Replace},
	)
	if err != nil {
		return nil, err
	}

	superseded, err := models.AssignmentFromRecord(protocolID, &recs[0])
	if err != nil {
		return nil, err
	}
	created, err := models.AssignmentFromRecord(protocolID, &recs[1])
	if err != nil {
		return nil, err
	}

	result := &ReassignResult{Superseded: superseded, Assignment: created, History: history}
	if s.notifier != nil {
		if protocolRec, err := s.store.Get(ctx, store.ProtocolPath(protocolID)); err == nil {
			if protocol, err := models.ProtocolFromRecord(protocolRec); err == nil {
				result.Notification = s.notifier.ReviewerAssigned(ctx, created, protocol)
			}
		}
	}
	return result, nil
}

// HistoryForProtocol returns the reassignment audit trail, oldest first.
func (s *AssignmentService) HistoryForProtocol(ctx context.Context, protocolID string) ([]*models.ReassignmentHistory, error) {
	recs, err := s.store.List(ctx, store.Query{
		Collection: "history",
		ProtocolID: protocolID,
		OrderBy:    "reassignedAt",
	})
	if err != nil {
		return nil, err
	}
	out := make([]*models.ReassignmentHistory, 0, len(recs))
	for i := range recs {
		h, err := models.ReassignmentFromRecord(protocolID, &recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// DaysOverdue counts whole days past the deadline, never negative.
func DaysOverdue(deadline, now time.Time) int {
	if deadline.IsZero() || !now.After(deadline) {
		return 0
	}
	return int(now.Sub(deadline) / (24 * time.Hour))
}
