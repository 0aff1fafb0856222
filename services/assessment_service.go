package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"protocol-review-api/models"
	"protocol-review-api/store"
)

// AssessmentService runs the draft/submit/approve/return lifecycle of
// reviewer assessment forms. Forms are keyed under their assignment, so a
// reassignment leaves the superseded reviewer's forms untouched.
type AssessmentService struct {
	store     store.Store
	templates map[string]FormTemplate
	now       func() time.Time
}

func NewAssessmentService(s store.Store) *AssessmentService {
	return &AssessmentService{store: s, templates: defaultTemplates(), now: time.Now}
}

// Get loads one form. A form that was never written reads as not-started.
func (s *AssessmentService) Get(ctx context.Context, protocolID, assignmentID, formType string) (*models.AssessmentForm, error) {
	rec, err := s.store.Get(ctx, store.FormPath(protocolID, assignmentID, formType))
	if errors.Is(err, store.ErrNotFound) {
		return &models.AssessmentForm{
			FormType:     formType,
			ProtocolID:   protocolID,
			AssignmentID: assignmentID,
			Status:       models.FormNotStarted,
			FormData:     map[string]any{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return models.FormFromRecord(protocolID, assignmentID, rec)
}

// Autosave merges partial form data into the form without changing its
// submission state. A form that does not exist yet is created as draft; a
// returned form re-enters draft on its first save. Autosave on a submitted
// form still merges silently — that mirrors the shipped behavior, and it
// means a submitted assessment can drift without re-triggering review.
// Flagged to product owners as a possible consistency gap.
func (s *AssessmentService) Autosave(ctx context.Context, actor Actor, protocolID, assignmentID, formType string, formData map[string]any) (*models.AssessmentForm, error) {
	assignment, err := s.assignment(ctx, protocolID, assignmentID)
	if err != nil {
		return nil, err
	}

	form, err := s.Get(ctx, protocolID, assignmentID, formType)
	if err != nil {
		return nil, err
	}

	switch form.Status {
	case models.FormNotStarted:
		form.Status = models.FormDraft
		form.ReviewerID = assignment.ReviewerID
	case models.FormReturned:
		form.Status = models.FormDraft
	case models.FormDraft, models.FormSubmitted:
		// status unchanged
	case models.FormApproved:
		return nil, &InvalidTransitionError{Entity: "assessment form", ID: formType, From: form.Status, To: models.FormDraft}
	}

	for k, v := range formData {
		form.FormData[k] = v
	}
	form.LastSavedAt = s.now()

	rec, err := s.store.Write(ctx, store.FormPath(protocolID, assignmentID, formType), form.Data(), store.Replace, store.WithKnownRev(form.Rev))
	if err != nil {
		return nil, err
	}
	return models.FormFromRecord(protocolID, assignmentID, rec)
}

// Submit validates the form against its template and, in one atomic batch,
// marks it submitted and completes the linked assignment with the reviewer's
// recommendation. A validation failure reports every missing field and
// writes nothing.
func (s *AssessmentService) Submit(ctx context.Context, actor Actor, protocolID, assignmentID, formType string, formData map[string]any) (*models.AssessmentForm, error) {
	assignment, err := s.assignment(ctx, protocolID, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.Status != models.AssignmentPending {
		return nil, &InvalidTransitionError{Entity: "assignment", ID: assignmentID, From: assignment.Status, To: models.AssignmentCompleted}
	}

	form, err := s.Get(ctx, protocolID, assignmentID, formType)
	if err != nil {
		return nil, err
	}
	switch form.Status {
	case models.FormNotStarted, models.FormDraft, models.FormReturned:
	default:
		return nil, &InvalidTransitionError{Entity: "assessment form", ID: formType, From: form.Status, To: models.FormSubmitted}
	}

	template, ok := s.templates[formType]
	if !ok {
		return nil, fmt.Errorf("unknown form type %q", formType)
	}
	if missing := template.MissingFields(formData); len(missing) > 0 {
		return nil, &ValidationError{FormType: formType, Missing: missing}
	}

	decision, _ := formData["recommendation"].(string)
	switch decision {
	case models.DecisionApprove, models.DecisionRevisionsRequired, models.DecisionDisapprove:
	default:
		return nil, &ValidationError{FormType: formType, Missing: []string{"recommendation"}}
	}
	comments, _ := formData["comments"].(string)

	now := s.now()
	form.ReviewerID = assignment.ReviewerID
	form.Status = models.FormSubmitted
	form.FormData = formData
	form.LastSavedAt = now
	form.SubmittedAt = &now
	form.RejectionReason = ""

	assignment.Status = models.AssignmentCompleted
	assignment.CompletedAt = &now
	assignment.Decision = decision
	assignment.Comments = comments

	recs, err := s.store.Apply(ctx,
		store.WriteOp{Path: store.FormPath(protocolID, assignmentID, formType), Data: form.Data(), Mode: store.Replace},
		store.WriteOp{Path: store.AssignmentPath(protocolID, assignmentID), Data: assignment.Data(), Mode: store.Replace},
	)
	if err != nil {
		return nil, err
	}
	return models.FormFromRecord(protocolID, assignmentID, &recs[0])
}

// Approve freezes a submitted form. The linked assignment moves to its
// approved terminal state in the same batch. An approved form rejects every
// later edit.
func (s *AssessmentService) Approve(ctx context.Context, actor Actor, protocolID, assignmentID, formType string) (*models.AssessmentForm, error) {
	assignment, err := s.assignment(ctx, protocolID, assignmentID)
	if err != nil {
		return nil, err
	}
	form, err := s.Get(ctx, protocolID, assignmentID, formType)
	if err != nil {
		return nil, err
	}
	if form.Status != models.FormSubmitted {
		return nil, &InvalidTransitionError{Entity: "assessment form", ID: formType, From: form.Status, To: models.FormApproved}
	}

	form.Status = models.FormApproved
	assignment.Status = models.AssignmentApproved

	recs, err := s.store.Apply(ctx,
		store.WriteOp{Path: store.FormPath(protocolID, assignmentID, formType), Data: form.Data(), Mode: store.Replace},
		store.WriteOp{Path: store.AssignmentPath(protocolID, assignmentID), Data: assignment.Data(), Mode: store.Replace},
	)
	if err != nil {
		return nil, err
	}
	return models.FormFromRecord(protocolID, assignmentID, &recs[0])
}

// Return sends a submitted form back to its reviewer with a reason. The
// linked assignment re-opens to pending so the reviewer can resubmit.
func (s *AssessmentService) Return(ctx context.Context, actor Actor, protocolID, assignmentID, formType, reason string) (*models.AssessmentForm, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, &CommentRequiredError{Entity: "assessment form", ID: formType, Action: "return"}
	}

	assignment, err := s.assignment(ctx, protocolID, assignmentID)
	if err != nil {
		return nil, err
	}
	form, err := s.Get(ctx, protocolID, assignmentID, formType)
	if err != nil {
		return nil, err
	}
	if form.Status != models.FormSubmitted {
		return nil, &InvalidTransitionError{Entity: "assessment form", ID: formType, From: form.Status, To: models.FormReturned}
	}

	form.Status = models.FormReturned
	form.RejectionReason = reason

	assignment.Status = models.AssignmentPending
	assignment.CompletedAt = nil
	assignment.Decision = ""
	assignment.Comments = fmt.Sprintf("returned by %s: %s", actor.ID, reason)

	recs, err := s.store.Apply(ctx,
		store.WriteOp{Path: store.FormPath(protocolID, assignmentID, formType), Data: form.Data(), Mode: store.Replace},
		store.WriteOp{Path: store.AssignmentPath(protocolID, assignmentID), Data: assignment.Data(), Mode: store.Replace},
	)
	if err != nil {
		return nil, err
	}
	return models.FormFromRecord(protocolID, assignmentID, &recs[0])
}

// Templates exposes the registered form templates for the UI.
func (s *AssessmentService) Templates() []FormTemplate {
	out := make([]FormTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	return out
}

func (s *AssessmentService) assignment(ctx context.Context, protocolID, assignmentID string) (*models.ReviewerAssignment, error) {
	rec, err := s.store.Get(ctx, store.AssignmentPath(protocolID, assignmentID))
	if err != nil {
		return nil, err
	}
	return models.AssignmentFromRecord(protocolID, rec)
}
