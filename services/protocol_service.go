package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"protocol-review-api/models"
	"protocol-review-api/store"
)

// protocolTransitions lists the permitted forward edges. Everything else,
// including backward moves and repeats, is rejected.
var protocolTransitions = map[string][]string{
	models.ProtocolPending:  {models.ProtocolAccepted, models.ProtocolDisapproved},
	models.ProtocolAccepted: {models.ProtocolApproved, models.ProtocolDisapproved},
	models.ProtocolApproved: {models.ProtocolArchived, models.ProtocolDisapproved},
}

// ProtocolService owns the protocol's top-level status and its decision
// records.
type ProtocolService struct {
	store store.Store
	now   func() time.Time
}

func NewProtocolService(s store.Store) *ProtocolService {
	return &ProtocolService{store: s, now: time.Now}
}

// CreateProtocolInput is what a proponent supplies for a new submission.
type CreateProtocolInput struct {
	Title     string `json:"title"`
	Expedited bool   `json:"expedited"`
}

// Create registers a new protocol in pending with a temporary code. The
// permanent code is assigned later, once, when the chairperson accepts it.
func (s *ProtocolService) Create(ctx context.Context, actor Actor, in CreateProtocolInput) (*models.Protocol, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("protocol title is required")
	}

	now := s.now()
	p := &models.Protocol{
		ID:        uuid.NewString(),
		Status:    models.ProtocolPending,
		TempCode:  fmt.Sprintf("TMP-%d-%s", now.Year(), strings.ToUpper(uuid.NewString()[:6])),
		Title:     title,
		OwnerID:   actor.ID,
		OwnerName: actor.Name,
		Expedited: in.Expedited,
		CreatedAt: now,
	}

	rec, err := s.store.Write(ctx, store.ProtocolPath(p.ID), p.Data(), store.Replace)
	if err != nil {
		return nil, err
	}
	return models.ProtocolFromRecord(rec)
}

// GetByID loads one protocol.
func (s *ProtocolService) GetByID(ctx context.Context, protocolID string) (*models.Protocol, error) {
	rec, err := s.store.Get(ctx, store.ProtocolPath(protocolID))
	if err != nil {
		return nil, err
	}
	return models.ProtocolFromRecord(rec)
}

// List returns protocols visible to the actor: proponents see their own,
// reviewers and chairpersons see all, optionally filtered by status.
func (s *ProtocolService) List(ctx context.Context, actor Actor, statuses []string) ([]*models.Protocol, error) {
	q := store.Query{
		Collection: "protocols",
		Statuses:   statuses,
		OrderBy:    "createdAt",
		Descending: true,
	}
	if actor.Role == models.RoleProponent {
		q.OwnerID = actor.ID
	}
	recs, err := s.store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Protocol, 0, len(recs))
	for i := range recs {
		p, err := models.ProtocolFromRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// AdvanceStatus moves a protocol along one permitted edge. On
// pending → accepted, a permanent code is assigned once and never
// regenerated.
func (s *ProtocolService) AdvanceStatus(ctx context.Context, actor Actor, protocolID, target string) (*models.Protocol, error) {
	p, err := s.GetByID(ctx, protocolID)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(p.Status, target) {
		return nil, &InvalidTransitionError{Entity: "protocol", ID: protocolID, From: p.Status, To: target}
	}

	update := map[string]any{"status": target}
	if p.Status == models.ProtocolPending && target == models.ProtocolAccepted && p.PermanentCode == "" {
		code, err := s.nextPermanentCode(ctx, p)
		if err != nil {
			return nil, err
		}
		update["permanentCode"] = code
	}

	rec, err := s.store.Write(ctx, store.ProtocolPath(protocolID), update, store.Merge, store.WithKnownRev(p.Rev))
	if err != nil {
		return nil, err
	}
	return models.ProtocolFromRecord(rec)
}

func transitionAllowed(from, to string) bool {
	for _, t := range protocolTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// nextPermanentCode builds the code deterministically from the acceptance
// year, the 1-based sequence among that year's already-accepted protocols,
// the expedited/full review flag and the investigator's initials:
// e.g. 2026-014-E-JS.
func (s *ProtocolService) nextPermanentCode(ctx context.Context, p *models.Protocol) (string, error) {
	recs, err := s.store.List(ctx, store.Query{Collection: "protocols"})
	if err != nil {
		return "", err
	}

	year := s.now().Year()
	prefix := fmt.Sprintf("%d-", year)
	seq := 1
	for i := range recs {
		other, err := models.ProtocolFromRecord(&recs[i])
		if err != nil {
			return "", err
		}
		if other.ID != p.ID && strings.HasPrefix(other.PermanentCode, prefix) {
			seq++
		}
	}

	flag := "F"
	if p.Expedited {
		flag = "E"
	}
	return fmt.Sprintf("%d-%03d-%s-%s", year, seq, flag, initials(p.OwnerName)), nil
}

func initials(name string) string {
	var b strings.Builder
	count := 0
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		if r == utf8.RuneError {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		count++
		if count >= 2 {
			break
		}
	}
	if count == 0 {
		return "XX"
	}
	return b.String()
}

// DecisionInput is the chairperson's ruling payload.
type DecisionInput struct {
	DecisionType string   `json:"decision_type"`
	Rationale    string   `json:"rationale"`
	MeetingRef   string   `json:"meeting_ref"`
	DocumentIDs  []string `json:"document_ids"`
}

// RecordDecision writes the Decision record and the denormalized summary on
// the protocol in one atomic batch: either the ruling exists in full and the
// protocol shows it, or neither happened. Disapproving rulings also move the
// protocol to disapproved; approving rulings move an accepted protocol to
// approved.
func (s *ProtocolService) RecordDecision(ctx context.Context, actor Actor, protocolID string, in DecisionInput) (*models.Decision, error) {
	p, err := s.GetByID(ctx, protocolID)
	if err != nil {
		return nil, err
	}

	dec := &models.Decision{
		ID:           uuid.NewString(),
		ProtocolID:   protocolID,
		DecisionType: in.DecisionType,
		DecisionDate: s.now(),
		DecisionBy:   actor.ID,
		Rationale:    in.Rationale,
		MeetingRef:   in.MeetingRef,
		DocumentIDs:  in.DocumentIDs,
	}
	switch in.DecisionType {
	case models.DecisionTypeApproved, models.DecisionTypeMinorRevisions,
		models.DecisionTypeMajorDeferred, models.DecisionTypeDisapproved,
		models.DecisionTypeDeferred:
	default:
		return nil, fmt.Errorf("unknown decision type %q", in.DecisionType)
	}

	summary := dec.Summary()
	protocolUpdate := map[string]any{
		"decisionSummary": map[string]any{
			"type": summary.Type,
			"date": summary.Date,
			"by":   summary.By,
		},
	}
	if next, ok := statusAfterDecision(p.Status, in.DecisionType); ok {
		protocolUpdate["status"] = next
	}

	_, err = s.store.Apply(ctx,
		store.WriteOp{Path: store.DecisionPath(protocolID, dec.ID), Data: dec.Data(), Mode: store.Replace},
		store.WriteOp{Path: store.ProtocolPath(protocolID), Data: protocolUpdate, Mode: store.Merge},
	)
	if err != nil {
		return nil, err
	}
	return dec, nil
}

// statusAfterDecision maps a ruling onto the protocol status change it
// implies, when that change is a legal edge.
func statusAfterDecision(current, decisionType string) (string, bool) {
	switch decisionType {
	case models.DecisionTypeDisapproved:
		if transitionAllowed(current, models.ProtocolDisapproved) {
			return models.ProtocolDisapproved, true
		}
	case models.DecisionTypeApproved, models.DecisionTypeMinorRevisions:
		if transitionAllowed(current, models.ProtocolApproved) {
			return models.ProtocolApproved, true
		}
	}
	return "", false
}

// Decisions lists every ruling recorded for a protocol, newest first.
func (s *ProtocolService) Decisions(ctx context.Context, protocolID string) ([]*models.Decision, error) {
	recs, err := s.store.List(ctx, store.Query{
		Collection: "decisions",
		ProtocolID: protocolID,
		OrderBy:    "decisionDate",
		Descending: true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Decision, 0, len(recs))
	for i := range recs {
		d, err := models.DecisionFromRecord(protocolID, &recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// HasActiveReviewers reports whether at least one assignment is pending or
// completed. Approved assignments are terminal and no longer count as
// active review work.
func (s *ProtocolService) HasActiveReviewers(ctx context.Context, protocolID string) (bool, error) {
	recs, err := s.store.List(ctx, store.Query{
		Collection: "assignments",
		ProtocolID: protocolID,
		Statuses:   []string{models.AssignmentPending, models.AssignmentCompleted},
	})
	if err != nil {
		return false, err
	}
	return len(recs) > 0, nil
}
