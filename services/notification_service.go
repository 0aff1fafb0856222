package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"protocol-review-api/config"
	"protocol-review-api/models"
	"protocol-review-api/store"
)

// NotificationResult is the non-fatal outcome of a notification send. A
// failed delivery is reported here and logged; it never rolls back the
// workflow step that triggered it.
type NotificationResult struct {
	Delivered bool   `json:"delivered"`
	Reason    string `json:"reason,omitempty"`
}

// NotificationService delivers reviewer-assignment notifications by email
// and mirrors them as in-app notification records.
type NotificationService struct {
	store   store.Store
	send    func(to []string, subject, html string) error
	baseURL string
	now     func() time.Time
}

func NewNotificationService(s store.Store) *NotificationService {
	baseURL := os.Getenv("APP_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	return &NotificationService{
		store:   s,
		send:    config.SendMail,
		baseURL: baseURL,
		now:     time.Now,
	}
}

// ReviewerAssigned notifies a reviewer of their new assignment: reviewer
// name, protocol code and title, the deadline when one is set, and a deep
// link into the review screen.
func (n *NotificationService) ReviewerAssigned(ctx context.Context, a *models.ReviewerAssignment, p *models.Protocol) NotificationResult {
	code := p.PermanentCode
	if code == "" {
		code = p.TempCode
	}
	link := fmt.Sprintf("%s/protocols/%s", n.baseURL, p.ID)

	deadlineLine := ""
	if !a.Deadline.IsZero() {
		deadlineLine = fmt.Sprintf("<p>Review deadline: <strong>%s</strong></p>", a.Deadline.Format("2 January 2006"))
	}
	subject := fmt.Sprintf("Protocol %s assigned for your review", code)
	html := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>You have been assigned as <strong>%s</strong> for protocol <strong>%s</strong>: %s.</p>
		%s
		<p><a href="%s">Open the protocol</a></p>
	`, a.ReviewerName, a.Slot, code, p.Title, deadlineLine, link)

	n.record(ctx, a, p, subject)

	if err := n.send([]string{a.ReviewerEmail}, subject, html); err != nil {
		log.Printf("Warning: assignment notification to %s failed: %v", a.ReviewerEmail, err)
		return NotificationResult{Delivered: false, Reason: err.Error()}
	}
	return NotificationResult{Delivered: true}
}

// record mirrors the notification in-app. Best effort: a store failure is
// logged and otherwise ignored.
func (n *NotificationService) record(ctx context.Context, a *models.ReviewerAssignment, p *models.Protocol, title string) {
	notif := &models.Notification{
		ID:         uuid.NewString(),
		UserID:     a.ReviewerID,
		Title:      title,
		Message:    fmt.Sprintf("You are %s for %q", a.Slot, p.Title),
		Type:       "info",
		ProtocolID: p.ID,
		CreatedAt:  n.now(),
	}
	if _, err := n.store.Write(ctx, store.NotificationPath(a.ReviewerID, notif.ID), notif.Data(), store.Replace); err != nil {
		log.Printf("Warning: failed to record in-app notification for user %s: %v", a.ReviewerID, err)
	}
}

// ListForUser returns the user's in-app notifications, newest first.
func (n *NotificationService) ListForUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	recs, err := n.store.List(ctx, store.Query{
		Collection: "notifications",
		OwnerID:    userID,
		OrderBy:    "createdAt",
		Descending: true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Notification, 0, len(recs))
	for i := range recs {
		notif, err := models.NotificationFromRecord(userID, &recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, notif)
	}
	return out, nil
}
