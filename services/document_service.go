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

// DocumentService runs the per-document revision workflow: upload, review,
// revision request, re-upload.
type DocumentService struct {
	store store.Store
	now   func() time.Time
}

func NewDocumentService(s store.Store) *DocumentService {
	return &DocumentService{store: s, now: time.Now}
}

// DocumentMeta describes an uploaded artifact.
type DocumentMeta struct {
	Title            string `json:"title"`
	Category         string `json:"category"`
	OriginalFilename string `json:"original_filename"`
	StoragePath      string `json:"storage_path"`
}

// Create establishes a new logical document at version 1, status pending.
func (s *DocumentService) Create(ctx context.Context, actor Actor, protocolID string, meta DocumentMeta) (*models.DocumentRecord, error) {
	if strings.TrimSpace(meta.Title) == "" {
		return nil, fmt.Errorf("document title is required")
	}
	if _, err := s.store.Get(ctx, store.ProtocolPath(protocolID)); err != nil {
		return nil, err
	}

	doc := &models.DocumentRecord{
		ID:               uuid.NewString(),
		ProtocolID:       protocolID,
		Title:            meta.Title,
		Category:         meta.Category,
		Status:           models.DocumentPending,
		Version:          1,
		StoragePath:      meta.StoragePath,
		OriginalFilename: meta.OriginalFilename,
		OwnerID:          actor.ID,
		UploadedAt:       s.now(),
	}
	rec, err := s.store.Write(ctx, store.DocumentPath(protocolID, doc.ID), doc.Data(), store.Replace)
	if err != nil {
		return nil, err
	}
	return models.DocumentFromRecord(protocolID, rec)
}

// GetByID loads one document.
func (s *DocumentService) GetByID(ctx context.Context, protocolID, documentID string) (*models.DocumentRecord, error) {
	rec, err := s.store.Get(ctx, store.DocumentPath(protocolID, documentID))
	if err != nil {
		return nil, err
	}
	return models.DocumentFromRecord(protocolID, rec)
}

// ListForProtocol returns the protocol's documents ordered by upload time.
func (s *DocumentService) ListForProtocol(ctx context.Context, protocolID string) ([]*models.DocumentRecord, error) {
	recs, err := s.store.List(ctx, store.Query{
		Collection: "documents",
		ProtocolID: protocolID,
		OrderBy:    "uploadedAt",
	})
	if err != nil {
		return nil, err
	}
	out := make([]*models.DocumentRecord, 0, len(recs))
	for i := range recs {
		doc, err := models.DocumentFromRecord(protocolID, &recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Review transitions a pending document to accepted, rejected, rework or
// revise. rework and revise demand a non-empty comment and mint the request
// id a re-upload must quote. The review lands in the document's history.
func (s *DocumentService) Review(ctx context.Context, actor Actor, protocolID, documentID, newStatus, comment string) (*models.DocumentRecord, error) {
	doc, err := s.GetByID(ctx, protocolID, documentID)
	if err != nil {
		return nil, err
	}

	switch newStatus {
	case models.DocumentAccepted, models.DocumentRejected, models.DocumentRework, models.DocumentRevise:
	default:
		return nil, fmt.Errorf("unknown document status %q", newStatus)
	}
	if doc.Status != models.DocumentPending {
		return nil, &InvalidTransitionError{Entity: "document", ID: documentID, From: doc.Status, To: newStatus}
	}

	needsComment := newStatus == models.DocumentRework || newStatus == models.DocumentRevise
	if needsComment && strings.TrimSpace(comment) == "" {
		return nil, &CommentRequiredError{Entity: "document", ID: documentID, Action: newStatus}
	}

	doc.Status = newStatus
	doc.Comment = comment
	if needsComment {
		doc.RequestID = uuid.NewString()
	}
	doc.History = append(doc.History, models.ReviewEntry{
		Status:     newStatus,
		Comment:    comment,
		Version:    doc.Version,
		By:         actor.ID,
		RecordedAt: s.now(),
	})

	rec, err := s.store.Write(ctx, store.DocumentPath(protocolID, documentID), doc.Data(), store.Replace, store.WithKnownRev(doc.Rev))
	if err != nil {
		return nil, err
	}
	return models.DocumentFromRecord(protocolID, rec)
}

// FileMeta is the replacement artifact for a fulfilled request.
type FileMeta struct {
	OriginalFilename string `json:"original_filename"`
	StoragePath      string `json:"storage_path"`
}

// Fulfill resolves a revision request: the same logical document gets the
// new file, its version goes up by one, and its status returns to pending
// for re-review. The request id is consumed, so the same id cannot bump the
// version a second time. Prior review history stays. An unknown request id
// fails without creating anything.
func (s *DocumentService) Fulfill(ctx context.Context, actor Actor, protocolID, requestID string, meta FileMeta) (*models.DocumentRecord, error) {
	recs, err := s.store.List(ctx, store.Query{
		Collection: "documents",
		ProtocolID: protocolID,
		RequestID:  requestID,
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRequest, requestID)
	}

	doc, err := models.DocumentFromRecord(protocolID, &recs[0])
	if err != nil {
		return nil, err
	}

	doc.Version++
	doc.Status = models.DocumentPending
	doc.RequestID = ""
	doc.StoragePath = meta.StoragePath
	doc.OriginalFilename = meta.OriginalFilename
	doc.Comment = ""
	doc.UploadedAt = s.now()
	doc.History = append(doc.History, models.ReviewEntry{
		Status:     models.DocumentPending,
		Comment:    "revision uploaded",
		Version:    doc.Version,
		By:         actor.ID,
		RecordedAt: doc.UploadedAt,
	})

	rec, err := s.store.Write(ctx, store.DocumentPath(protocolID, doc.ID), doc.Data(), store.Replace, store.WithKnownRev(doc.Rev))
	if err != nil {
		return nil, err
	}
	return models.DocumentFromRecord(protocolID, rec)
}
