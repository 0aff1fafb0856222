package models

import (
	"protocol-review-api/store"
	"time"
)

// Decision types the chairperson can record.
const (
	DecisionTypeApproved       = "approved"
	DecisionTypeMinorRevisions = "approved_minor_revisions"
	DecisionTypeMajorDeferred  = "major_revisions_deferred"
	DecisionTypeDisapproved    = "disapproved"
	DecisionTypeDeferred       = "deferred"
)

// Decision is one formal ruling on a protocol. Every ruling is a new record;
// the newest is the current one and prior rulings keep their audit value.
type Decision struct {
	ID           string    `json:"id"`
	ProtocolID   string    `json:"protocol_id"`
	DecisionType string    `json:"decision_type"`
	DecisionDate time.Time `json:"decision_date"`
	DecisionBy   string    `json:"decision_by"`
	Rationale    string    `json:"rationale,omitempty"`
	MeetingRef   string    `json:"meeting_ref,omitempty"`
	DocumentIDs  []string  `json:"document_ids,omitempty"`
}

// DecisionFromRecord validates and decodes a decision record.
func DecisionFromRecord(protocolID string, r *store.Record) (*Decision, error) {
	d := newDocReader("decision", r)
	dec := &Decision{
		ID:           r.ID,
		ProtocolID:   protocolID,
		DecisionType: d.enum("decisionType", DecisionTypeApproved, DecisionTypeMinorRevisions, DecisionTypeMajorDeferred, DecisionTypeDisapproved, DecisionTypeDeferred),
		DecisionDate: d.timeAt("decisionDate"),
		DecisionBy:   d.requiredStr("decisionBy"),
		Rationale:    d.str("rationale"),
		MeetingRef:   d.str("meetingRef"),
	}
	for _, raw := range d.listVal("documentIds") {
		if id, ok := raw.(string); ok {
			dec.DocumentIDs = append(dec.DocumentIDs, id)
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return dec, nil
}

// Data encodes the decision as a store document.
func (dec *Decision) Data() map[string]any {
	data := map[string]any{
		"decisionType": dec.DecisionType,
		"decisionDate": dec.DecisionDate,
		"decisionBy":   dec.DecisionBy,
	}
	if dec.Rationale != "" {
		data["rationale"] = dec.Rationale
	}
	if dec.MeetingRef != "" {
		data["meetingRef"] = dec.MeetingRef
	}
	if len(dec.DocumentIDs) > 0 {
		ids := make([]any, 0, len(dec.DocumentIDs))
		for _, id := range dec.DocumentIDs {
			ids = append(ids, id)
		}
		data["documentIds"] = ids
	}
	return data
}

// Summary returns the denormalized copy kept on the protocol record.
func (dec *Decision) Summary() *DecisionSummary {
	return &DecisionSummary{
		Type: dec.DecisionType,
		Date: dec.DecisionDate,
		By:   dec.DecisionBy,
	}
}
