package models

import (
	"time"

	"protocol-review-api/store"
)

// Protocol statuses. Transitions only move forward along
// pending → accepted → approved → archived, with disapproved reachable from
// every non-terminal state.
const (
	ProtocolPending     = "pending"
	ProtocolAccepted    = "accepted"
	ProtocolApproved    = "approved"
	ProtocolArchived    = "archived"
	ProtocolDisapproved = "disapproved"
)

// Protocol is one research submission under ethics review.
type Protocol struct {
	ID              string           `json:"id"`
	Status          string           `json:"status"`
	TempCode        string           `json:"temp_code"`
	PermanentCode   string           `json:"permanent_code,omitempty"`
	Title           string           `json:"title"`
	OwnerID         string           `json:"owner_id"`
	OwnerName       string           `json:"owner_name"`
	Expedited       bool             `json:"expedited"`
	CreatedAt       time.Time        `json:"created_at"`
	DecisionSummary *DecisionSummary `json:"decision_summary,omitempty"`
	Rev             int64            `json:"rev"`
}

// DecisionSummary is the denormalized copy of the latest Decision kept on the
// protocol for list views.
type DecisionSummary struct {
	Type string    `json:"type"`
	Date time.Time `json:"date"`
	By   string    `json:"by"`
}

// ProtocolFromRecord validates and decodes a protocol document.
func ProtocolFromRecord(r *store.Record) (*Protocol, error) {
	d := newDocReader("protocol", r)
	p := &Protocol{
		ID:            r.ID,
		Status:        d.enum("status", ProtocolPending, ProtocolAccepted, ProtocolApproved, ProtocolArchived, ProtocolDisapproved),
		TempCode:      d.str("tempCode"),
		PermanentCode: d.str("permanentCode"),
		Title:         d.requiredStr("title"),
		OwnerID:       d.requiredStr("ownerId"),
		OwnerName:     d.str("ownerName"),
		Expedited:     d.boolVal("expedited"),
		CreatedAt:     d.timeAt("createdAt"),
		Rev:           r.Rev,
	}
	if summary := d.mapVal("decisionSummary"); summary != nil {
		s := &docReader{entity: "protocol", id: r.ID, data: summary}
		p.DecisionSummary = &DecisionSummary{
			Type: s.str("type"),
			Date: s.timeAt("date"),
			By:   s.str("by"),
		}
		if s.err != nil && d.err == nil {
			d.err = s.err
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return p, nil
}

// Data encodes the protocol as a store document.
func (p *Protocol) Data() map[string]any {
	data := map[string]any{
		"status":    p.Status,
		"tempCode":  p.TempCode,
		"title":     p.Title,
		"ownerId":   p.OwnerID,
		"ownerName": p.OwnerName,
		"expedited": p.Expedited,
		"createdAt": p.CreatedAt,
	}
	if p.PermanentCode != "" {
		data["permanentCode"] = p.PermanentCode
	}
	if p.DecisionSummary != nil {
		data["decisionSummary"] = map[string]any{
			"type": p.DecisionSummary.Type,
			"date": p.DecisionSummary.Date,
			"by":   p.DecisionSummary.By,
		}
	}
	return data
}
