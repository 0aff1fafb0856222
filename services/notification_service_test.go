package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"protocol-review-api/models"
	"protocol-review-api/store"
)

func newNotificationFixture(send func(to []string, subject, html string) error) (*NotificationService, *store.MemoryStore) {
	s := store.NewMemoryStore()
	return &NotificationService{
		store:   s,
		send:    send,
		baseURL: "http://review.example.edu",
		now:     func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) },
	}, s
}

func testAssignmentAndProtocol() (*models.ReviewerAssignment, *models.Protocol) {
	a := &models.ReviewerAssignment{
		ID:            "A1",
		ProtocolID:    "P1",
		Slot:          "primary",
		ReviewerID:    "r1",
		ReviewerName:  "Alan Reed",
		ReviewerEmail: "alan@example.edu",
		Status:        models.AssignmentPending,
		Deadline:      time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC),
	}
	p := &models.Protocol{
		ID:            "P1",
		Title:         "Trial of Compound X",
		TempCode:      "TMP-2026-ABCDEF",
		PermanentCode: "2026-001-F-JS",
		Status:        models.ProtocolAccepted,
	}
	return a, p
}

func TestReviewerAssignedSendsEmailAndRecordsInApp(t *testing.T) {
	var gotTo []string
	var gotSubject, gotHTML string
	svc, _ := newNotificationFixture(func(to []string, subject, html string) error {
		gotTo, gotSubject, gotHTML = to, subject, html
		return nil
	})

	a, p := testAssignmentAndProtocol()
	result := svc.ReviewerAssigned(context.Background(), a, p)
	if !result.Delivered {
		t.Fatalf("expected delivery, got %+v", result)
	}
	if len(gotTo) != 1 || gotTo[0] != "alan@example.edu" {
		t.Fatalf("sent to %v", gotTo)
	}
	if !strings.Contains(gotSubject, "2026-001-F-JS") {
		t.Fatalf("subject should carry the permanent code: %q", gotSubject)
	}
	for _, want := range []string{"Alan Reed", "primary", "Trial of Compound X", "24 March 2026", "http://review.example.edu/protocols/P1"} {
		if !strings.Contains(gotHTML, want) {
			t.Fatalf("email body missing %q", want)
		}
	}

	notifs, err := svc.ListForUser(context.Background(), "r1")
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(notifs) != 1 || notifs[0].ProtocolID != "P1" {
		t.Fatalf("in-app notification not recorded: %+v", notifs)
	}
}

func TestReviewerAssignedFallsBackToTempCode(t *testing.T) {
	var gotSubject string
	svc, _ := newNotificationFixture(func(to []string, subject, html string) error {
		gotSubject = subject
		return nil
	})

	a, p := testAssignmentAndProtocol()
	p.PermanentCode = ""
	svc.ReviewerAssigned(context.Background(), a, p)
	if !strings.Contains(gotSubject, "TMP-2026-ABCDEF") {
		t.Fatalf("subject should fall back to the temp code: %q", gotSubject)
	}
}

func TestReviewerAssignedFailureIsNonFatal(t *testing.T) {
	svc, _ := newNotificationFixture(func(to []string, subject, html string) error {
		return fmt.Errorf("smtp timeout")
	})

	a, p := testAssignmentAndProtocol()
	result := svc.ReviewerAssigned(context.Background(), a, p)
	if result.Delivered {
		t.Fatalf("expected failed delivery")
	}
	if !strings.Contains(result.Reason, "smtp timeout") {
		t.Fatalf("reason = %q", result.Reason)
	}

	// The in-app record still exists even though the email failed.
	notifs, err := svc.ListForUser(context.Background(), "r1")
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(notifs) != 1 {
		t.Fatalf("expected in-app record despite send failure, got %d", len(notifs))
	}
}
