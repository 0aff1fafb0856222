package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"protocol-review-api/models"
	"protocol-review-api/store"
)

func newDocumentFixture(t *testing.T) (*DocumentService, *models.Protocol) {
	t.Helper()
	s := store.NewMemoryStore()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	protocols := NewProtocolService(s)
	protocols.now = func() time.Time { return now }

	documents := NewDocumentService(s)
	documents.now = func() time.Time { return now }

	p, err := protocols.Create(context.Background(), proponent, CreateProtocolInput{Title: "Trial"})
	if err != nil {
		t.Fatalf("create protocol: %v", err)
	}
	return documents, p
}

func TestDocumentRevisionRoundTrip(t *testing.T) {
	svc, p := newDocumentFixture(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, proponent, p.ID, DocumentMeta{
		Title:            "Consent Form",
		Category:         "consent",
		OriginalFilename: "consent.pdf",
		StoragePath:      "/uploads/P1/consent.pdf",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if doc.Status != models.DocumentPending || doc.Version != 1 {
		t.Fatalf("new document wrong: status=%q version=%d", doc.Status, doc.Version)
	}

	doc, err = svc.Review(ctx, chair, p.ID, doc.ID, models.DocumentRevise, "section 3 needs detail")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if doc.Status != models.DocumentRevise || doc.RequestID == "" {
		t.Fatalf("revise did not mint a request id: %+v", doc)
	}
	requestID := doc.RequestID

	doc, err = svc.Fulfill(ctx, proponent, p.ID, requestID, FileMeta{
		OriginalFilename: "consent-v2.pdf",
		StoragePath:      "/uploads/P1/consent-v2.pdf",
	})
	if err != nil {
		t.Fatalf("Fulfill: %v", err)
	}
	if doc.Version != 2 {
		t.Fatalf("version = %d, want 2", doc.Version)
	}
	if doc.Status != models.DocumentPending {
		t.Fatalf("fulfilled document should return to pending, got %q", doc.Status)
	}
	if doc.Comment != "" {
		t.Fatalf("fulfill should clear the review comment, got %q", doc.Comment)
	}
	if doc.RequestID != "" {
		t.Fatalf("fulfill should consume the request id, got %q", doc.RequestID)
	}
	if doc.OriginalFilename != "consent-v2.pdf" {
		t.Fatalf("new file meta not stored: %q", doc.OriginalFilename)
	}
	if len(doc.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(doc.History))
	}
	if doc.History[0].Status != models.DocumentRevise || doc.History[1].Status != models.DocumentPending {
		t.Fatalf("history out of order: %+v", doc.History)
	}

	// Same logical document throughout.
	all, err := svc.ListForProtocol(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListForProtocol: %v", err)
	}
	if len(all) != 1 || all[0].ID != doc.ID {
		t.Fatalf("revision created a second document: %+v", all)
	}

	doc, err = svc.Review(ctx, chair, p.ID, doc.ID, models.DocumentAccepted, "")
	if err != nil {
		t.Fatalf("final review: %v", err)
	}
	if doc.Status != models.DocumentAccepted || doc.Version != 2 {
		t.Fatalf("final state wrong: status=%q version=%d", doc.Status, doc.Version)
	}
}

func TestReviewDemandsCommentForRevisionRequests(t *testing.T) {
	svc, p := newDocumentFixture(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, proponent, p.ID, DocumentMeta{Title: "Protocol Body"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, status := range []string{models.DocumentRework, models.DocumentRevise} {
		_, err := svc.Review(ctx, chair, p.ID, doc.ID, status, "   ")
		if !errors.Is(err, ErrCommentRequired) {
			t.Fatalf("%s without comment: expected ErrCommentRequired, got %v", status, err)
		}
	}

	got, err := svc.GetByID(ctx, p.ID, doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.DocumentPending || len(got.History) != 0 {
		t.Fatalf("rejected review modified document: %+v", got)
	}
}

func TestReviewOnlyPendingDocuments(t *testing.T) {
	svc, p := newDocumentFixture(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, proponent, p.ID, DocumentMeta{Title: "Protocol Body"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Review(ctx, chair, p.ID, doc.ID, models.DocumentAccepted, ""); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := svc.Review(ctx, chair, p.ID, doc.ID, models.DocumentRejected, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRejectedDocumentKeepsVersion(t *testing.T) {
	svc, p := newDocumentFixture(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, proponent, p.ID, DocumentMeta{Title: "Budget"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	doc, err = svc.Review(ctx, chair, p.ID, doc.ID, models.DocumentRejected, "")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if doc.Version != 1 || doc.RequestID != "" {
		t.Fatalf("rejection should not mint a request or bump version: %+v", doc)
	}
}

func TestFulfillUnknownRequest(t *testing.T) {
	svc, p := newDocumentFixture(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, proponent, p.ID, DocumentMeta{Title: "Consent Form"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Fulfill(ctx, proponent, p.ID, "no-such-request", FileMeta{OriginalFilename: "x.pdf"})
	if !errors.Is(err, ErrUnknownRequest) {
		t.Fatalf("expected ErrUnknownRequest, got %v", err)
	}

	got, err := svc.GetByID(ctx, p.ID, doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Version != 1 || got.Status != models.DocumentPending {
		t.Fatalf("failed fulfill modified document: %+v", got)
	}
}

func TestFulfillConsumesRequestID(t *testing.T) {
	svc, p := newDocumentFixture(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, proponent, p.ID, DocumentMeta{Title: "Consent Form"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	doc, err = svc.Review(ctx, chair, p.ID, doc.ID, models.DocumentRework, "wrong template")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	requestID := doc.RequestID

	if _, err := svc.Fulfill(ctx, proponent, p.ID, requestID, FileMeta{OriginalFilename: "v2.pdf"}); err != nil {
		t.Fatalf("Fulfill: %v", err)
	}

	_, err = svc.Fulfill(ctx, proponent, p.ID, requestID, FileMeta{OriginalFilename: "v3.pdf"})
	if !errors.Is(err, ErrUnknownRequest) {
		t.Fatalf("replaying a fulfilled request: expected ErrUnknownRequest, got %v", err)
	}

	got, err := svc.GetByID(ctx, p.ID, doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("replay bumped version to %d", got.Version)
	}
}

func TestCreateRequiresExistingProtocol(t *testing.T) {
	svc, _ := newDocumentFixture(t)
	_, err := svc.Create(context.Background(), proponent, "nope", DocumentMeta{Title: "Consent"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
