package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"protocol-review-api/models"
	"protocol-review-api/store"
)

var (
	proponent = Actor{ID: "u1", Name: "Jane Smith", Email: "jane@example.edu", Role: models.RoleProponent}
	reviewer  = Actor{ID: "r1", Name: "Alan Reed", Email: "alan@example.edu", Role: models.RoleReviewer}
	chair     = Actor{ID: "c1", Name: "Carol Huang", Email: "carol@example.edu", Role: models.RoleChairperson}
)

func newProtocolService(t *testing.T) (*ProtocolService, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	svc := NewProtocolService(s)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return svc, s
}

func mustCreateProtocol(t *testing.T, svc *ProtocolService, actor Actor, title string, expedited bool) *models.Protocol {
	t.Helper()
	p, err := svc.Create(context.Background(), actor, CreateProtocolInput{Title: title, Expedited: expedited})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return p
}

func TestProtocolLifecycle(t *testing.T) {
	svc, _ := newProtocolService(t)
	ctx := context.Background()

	p := mustCreateProtocol(t, svc, proponent, "Trial of Compound X", false)
	if p.Status != models.ProtocolPending {
		t.Fatalf("new protocol status = %q, want pending", p.Status)
	}
	if !strings.HasPrefix(p.TempCode, "TMP-2026-") {
		t.Fatalf("unexpected temp code %q", p.TempCode)
	}
	if p.PermanentCode != "" {
		t.Fatalf("permanent code must not exist before acceptance")
	}

	p, err := svc.AdvanceStatus(ctx, chair, p.ID, models.ProtocolAccepted)
	if err != nil {
		t.Fatalf("advance to accepted: %v", err)
	}
	if p.Status != models.ProtocolAccepted {
		t.Fatalf("status = %q, want accepted", p.Status)
	}
	codePattern := regexp.MustCompile(`^2026-\d{3}-[EF]-[A-Z]{1,2}$`)
	if !codePattern.MatchString(p.PermanentCode) {
		t.Fatalf("permanent code %q does not match expected shape", p.PermanentCode)
	}
	firstCode := p.PermanentCode

	p, err = svc.AdvanceStatus(ctx, chair, p.ID, models.ProtocolApproved)
	if err != nil {
		t.Fatalf("advance to approved: %v", err)
	}
	if p.PermanentCode != firstCode {
		t.Fatalf("permanent code changed on later transition: %q -> %q", firstCode, p.PermanentCode)
	}

	p, err = svc.AdvanceStatus(ctx, chair, p.ID, models.ProtocolArchived)
	if err != nil {
		t.Fatalf("advance to archived: %v", err)
	}
	if p.Status != models.ProtocolArchived {
		t.Fatalf("status = %q, want archived", p.Status)
	}
}

func TestAdvanceStatusRejectsIllegalEdges(t *testing.T) {
	svc, _ := newProtocolService(t)
	ctx := context.Background()

	p := mustCreateProtocol(t, svc, proponent, "Trial", false)

	cases := []string{models.ProtocolApproved, models.ProtocolArchived, models.ProtocolPending}
	for _, target := range cases {
		_, err := svc.AdvanceStatus(ctx, chair, p.ID, target)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("pending -> %s: expected ErrInvalidTransition, got %v", target, err)
		}
		var ite *InvalidTransitionError
		if !errors.As(err, &ite) || ite.From != models.ProtocolPending || ite.To != target {
			t.Fatalf("pending -> %s: error missing states: %v", target, err)
		}
	}

	// Rejected transitions must not touch the record.
	got, err := svc.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.ProtocolPending || got.Rev != p.Rev {
		t.Fatalf("rejected transition modified protocol: %+v", got)
	}
}

func TestPermanentCodeSequencing(t *testing.T) {
	svc, _ := newProtocolService(t)
	ctx := context.Background()

	first := mustCreateProtocol(t, svc, proponent, "First Trial", false)
	second := mustCreateProtocol(t, svc, Actor{ID: "u2", Name: "Bob Ng", Role: models.RoleProponent}, "Second Trial", true)

	first, err := svc.AdvanceStatus(ctx, chair, first.ID, models.ProtocolAccepted)
	if err != nil {
		t.Fatalf("accept first: %v", err)
	}
	if first.PermanentCode != "2026-001-F-JS" {
		t.Fatalf("first code = %q, want 2026-001-F-JS", first.PermanentCode)
	}

	second, err = svc.AdvanceStatus(ctx, chair, second.ID, models.ProtocolAccepted)
	if err != nil {
		t.Fatalf("accept second: %v", err)
	}
	if second.PermanentCode != "2026-002-E-BN" {
		t.Fatalf("second code = %q, want 2026-002-E-BN", second.PermanentCode)
	}
}

func TestPermanentCodeInitials(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Jane Smith", "JS"},
		{"Plato", "P"},
		{"jan de vries", "JD"},
		{"Ångström Ärlig", "ÅÄ"},
		{"สมชาย ใจดี", "สใ"},
		{"", "XX"},
		{"   ", "XX"},
	}
	for _, c := range cases {
		got := initials(c.name)
		if got != c.want {
			t.Errorf("initials(%q) = %q, want %q", c.name, got, c.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("initials(%q) produced invalid UTF-8 %q", c.name, got)
		}
	}
}

func TestListScopesProponentsToOwnProtocols(t *testing.T) {
	svc, _ := newProtocolService(t)
	ctx := context.Background()

	mine := mustCreateProtocol(t, svc, proponent, "Mine", false)
	mustCreateProtocol(t, svc, Actor{ID: "u2", Name: "Bob Ng", Role: models.RoleProponent}, "Theirs", false)

	got, err := svc.List(ctx, proponent, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != mine.ID {
		t.Fatalf("proponent sees wrong protocols: %+v", got)
	}

	all, err := svc.List(ctx, chair, nil)
	if err != nil {
		t.Fatalf("List as chair: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("chairperson should see all protocols, got %d", len(all))
	}
}

func TestRecordDecisionWritesAtomically(t *testing.T) {
	svc, _ := newProtocolService(t)
	ctx := context.Background()

	p := mustCreateProtocol(t, svc, proponent, "Trial", false)
	if _, err := svc.AdvanceStatus(ctx, chair, p.ID, models.ProtocolAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}

	dec, err := svc.RecordDecision(ctx, chair, p.ID, DecisionInput{
		DecisionType: models.DecisionTypeApproved,
		Rationale:    "unanimous",
		MeetingRef:   "2026-03",
	})
	if err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}
	if dec.DecisionBy != chair.ID {
		t.Fatalf("decision recorded for wrong actor: %q", dec.DecisionBy)
	}

	got, err := svc.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.ProtocolApproved {
		t.Fatalf("approving decision did not advance the protocol: %q", got.Status)
	}
	if got.DecisionSummary == nil || got.DecisionSummary.Type != models.DecisionTypeApproved || got.DecisionSummary.By != chair.ID {
		t.Fatalf("decision summary missing or wrong: %+v", got.DecisionSummary)
	}

	decisions, err := svc.Decisions(ctx, p.ID)
	if err != nil {
		t.Fatalf("Decisions: %v", err)
	}
	if len(decisions) != 1 || decisions[0].ID != dec.ID {
		t.Fatalf("unexpected decision list: %+v", decisions)
	}
}

func TestRecordDecisionRejectsUnknownType(t *testing.T) {
	svc, _ := newProtocolService(t)
	ctx := context.Background()

	p := mustCreateProtocol(t, svc, proponent, "Trial", false)
	if _, err := svc.RecordDecision(ctx, chair, p.ID, DecisionInput{DecisionType: "maybe"}); err == nil {
		t.Fatalf("expected error for unknown decision type")
	}

	decisions, err := svc.Decisions(ctx, p.ID)
	if err != nil {
		t.Fatalf("Decisions: %v", err)
	}
	if len(decisions) != 0 {
		t.Fatalf("rejected decision was persisted: %+v", decisions)
	}
}

func TestDisapprovingDecisionMovesProtocol(t *testing.T) {
	svc, _ := newProtocolService(t)
	ctx := context.Background()

	p := mustCreateProtocol(t, svc, proponent, "Trial", false)
	if _, err := svc.RecordDecision(ctx, chair, p.ID, DecisionInput{DecisionType: models.DecisionTypeDisapproved}); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}

	got, err := svc.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.ProtocolDisapproved {
		t.Fatalf("status = %q, want disapproved", got.Status)
	}
}

func TestHasActiveReviewers(t *testing.T) {
	svc, s := newProtocolService(t)
	ctx := context.Background()

	p := mustCreateProtocol(t, svc, proponent, "Trial", false)

	active, err := svc.HasActiveReviewers(ctx, p.ID)
	if err != nil {
		t.Fatalf("HasActiveReviewers: %v", err)
	}
	if active {
		t.Fatalf("protocol with no assignments reported active reviewers")
	}

	if _, err := s.Write(ctx, store.AssignmentPath(p.ID, "A1"), map[string]any{
		"status": models.AssignmentPending, "slot": "primary", "reviewerId": reviewer.ID,
	}, store.Replace); err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
	if active, err = svc.HasActiveReviewers(ctx, p.ID); err != nil || !active {
		t.Fatalf("pending assignment should count as active: active=%v err=%v", active, err)
	}

	if _, err := s.Write(ctx, store.AssignmentPath(p.ID, "A1"), map[string]any{"status": models.AssignmentApproved}, store.Merge); err != nil {
		t.Fatalf("approve assignment: %v", err)
	}
	if active, err = svc.HasActiveReviewers(ctx, p.ID); err != nil || active {
		t.Fatalf("approved assignment should not count as active: active=%v err=%v", active, err)
	}
}
