package models

import (
	"protocol-review-api/store"
	"time"
)

// Document statuses. rework and revise both open a revision request; a
// fulfilled request returns the document to pending at the next version.
const (
	DocumentPending  = "pending"
	DocumentAccepted = "accepted"
	DocumentRejected = "rejected"
	DocumentRework   = "rework"
	DocumentRevise   = "revise"
)

// DocumentRecord is one logical document. Its identity survives revisions;
// each re-upload against its request bumps Version instead of creating a new
// record.
type DocumentRecord struct {
	ID               string        `json:"id"`
	ProtocolID       string        `json:"protocol_id"`
	Title            string        `json:"title"`
	Category         string        `json:"category"`
	Status           string        `json:"status"`
	Version          int           `json:"version"`
	StoragePath      string        `json:"storage_path"`
	OriginalFilename string        `json:"original_filename"`
	Comment          string        `json:"comment,omitempty"`
	RequestID        string        `json:"request_id,omitempty"`
	OwnerID          string        `json:"owner_id"`
	UploadedAt       time.Time     `json:"uploaded_at"`
	History          []ReviewEntry `json:"history,omitempty"`
	Rev              int64         `json:"rev"`
}

// ReviewEntry is one historical review or revision event on a document.
// Entries are append-only; fulfilling a request never removes them.
type ReviewEntry struct {
	Status     string    `json:"status"`
	Comment    string    `json:"comment,omitempty"`
	Version    int       `json:"version"`
	By         string    `json:"by"`
	RecordedAt time.Time `json:"recorded_at"`
}

// DocumentFromRecord validates and decodes a document record.
func DocumentFromRecord(protocolID string, r *store.Record) (*DocumentRecord, error) {
	d := newDocReader("document", r)
	doc := &DocumentRecord{
		ID:               r.ID,
		ProtocolID:       protocolID,
		Title:            d.requiredStr("title"),
		Category:         d.str("category"),
		Status:           d.enum("status", DocumentPending, DocumentAccepted, DocumentRejected, DocumentRework, DocumentRevise),
		Version:          d.intVal("version"),
		StoragePath:      d.str("storagePath"),
		OriginalFilename: d.str("originalFilename"),
		Comment:          d.str("comment"),
		RequestID:        d.str("requestId"),
		OwnerID:          d.str("ownerId"),
		UploadedAt:       d.timeAt("uploadedAt"),
		Rev:              r.Rev,
	}
	for _, raw := range d.listVal("history") {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		e := &docReader{entity: "document", id: r.ID, data: entry}
		doc.History = append(doc.History, ReviewEntry{
			Status:     e.str("status"),
			Comment:    e.str("comment"),
			Version:    e.intVal("version"),
			By:         e.str("by"),
			RecordedAt: e.timeAt("recordedAt"),
		})
		if e.err != nil && d.err == nil {
			d.err = e.err
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return doc, nil
}

// Data encodes the document as a store document.
func (doc *DocumentRecord) Data() map[string]any {
	data := map[string]any{
		"title":            doc.Title,
		"category":         doc.Category,
		"status":           doc.Status,
		"version":          doc.Version,
		"storagePath":      doc.StoragePath,
		"originalFilename": doc.OriginalFilename,
		"ownerId":          doc.OwnerID,
		"uploadedAt":       doc.UploadedAt,
	}
	if doc.Comment != "" {
		data["comment"] = doc.Comment
	}
	if doc.RequestID != "" {
		data["requestId"] = doc.RequestID
	}
	if len(doc.History) > 0 {
		history := make([]any, 0, len(doc.History))
		for _, e := range doc.History {
			history = append(history, map[string]any{
				"status":     e.Status,
				"comment":    e.Comment,
				"version":    e.Version,
				"by":         e.By,
				"recordedAt": e.RecordedAt,
			})
		}
		data["history"] = history
	}
	return data
}
