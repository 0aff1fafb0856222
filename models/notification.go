package models

import (
	"protocol-review-api/store"
	"time"
)

// Notification is the in-app copy of an outbound notification, stored under
// the recipient user.
type Notification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Type       string    `json:"type"` // info|success|warning|error
	ProtocolID string    `json:"protocol_id,omitempty"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

// NotificationFromRecord decodes a notification record.
func NotificationFromRecord(userID string, r *store.Record) (*Notification, error) {
	d := newDocReader("notification", r)
	n := &Notification{
		ID:         r.ID,
		UserID:     userID,
		Title:      d.requiredStr("title"),
		Message:    d.str("message"),
		Type:       d.str("type"),
		ProtocolID: d.str("protocolId"),
		Read:       d.boolVal("read"),
		CreatedAt:  d.timeAt("createdAt"),
	}
	if d.err != nil {
		return nil, d.err
	}
	return n, nil
}

// Data encodes the notification as a store document.
func (n *Notification) Data() map[string]any {
	return map[string]any{
		"title":      n.Title,
		"message":    n.Message,
		"type":       n.Type,
		"protocolId": n.ProtocolID,
		"read":       n.Read,
		"createdAt":  n.CreatedAt,
	}
}
