// Package event defines the canonical referral event shape and the batch
// parser that is the single validation point for ingested payloads.
package event

import "encoding/json"

// Type discriminates the event payload variant.
type Type string

const (
	TypeStatusUpdate         Type = "STATUS_UPDATE"
	TypeAppointmentSet       Type = "APPOINTMENT_SET"
	TypeAppointmentCancelled Type = "APPOINTMENT_CANCELLED"
)

// Valid reports whether the type is one of the known variants.
func (t Type) Valid() bool {
	switch t {
	case TypeStatusUpdate, TypeAppointmentSet, TypeAppointmentCancelled:
		return true
	}
	return false
}

// Status is a referral lifecycle status.
type Status string

const (
	StatusCreated      Status = "CREATED"
	StatusSent         Status = "SENT"
	StatusAcknowledged Status = "ACKNOWLEDGED"
	StatusScheduled    Status = "SCHEDULED"
	StatusCompleted    Status = "COMPLETED"
	StatusCancelled    Status = "CANCELLED"
)

// Valid reports whether the status is one of the known lifecycle values.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusSent, StatusAcknowledged, StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status ends the referral lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Event is an immutable record describing one mutation to a referral.
// Events are uniquely identified by (referral_id, seq); seq orders events
// within a single referral only.
type Event struct {
	ReferralID string  `json:"referral_id"`
	Seq        int64   `json:"seq"`
	Type       Type    `json:"type"`
	Payload    Payload `json:"payload"`
}

// Payload carries the variant fields of an event. Unknown fields are
// preserved across decode/encode so raw events round-trip untouched, but
// the reconciliation engine ignores them.
type Payload struct {
	Status    Status `json:"-"`
	ApptID    string `json:"-"`
	StartTime string `json:"-"`

	extra map[string]json.RawMessage
}

// payload field names on the wire.
const (
	fieldStatus    = "status"
	fieldApptID    = "appt_id"
	fieldStartTime = "start_time"
)

// UnmarshalJSON decodes the known payload fields and retains the rest.
func (p *Payload) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if raw, ok := fields[fieldStatus]; ok {
		if err := json.Unmarshal(raw, &p.Status); err != nil {
			return err
		}
		delete(fields, fieldStatus)
	}
	if raw, ok := fields[fieldApptID]; ok {
		if err := json.Unmarshal(raw, &p.ApptID); err != nil {
			return err
		}
		delete(fields, fieldApptID)
	}
	if raw, ok := fields[fieldStartTime]; ok {
		if err := json.Unmarshal(raw, &p.StartTime); err != nil {
			return err
		}
		delete(fields, fieldStartTime)
	}

	if len(fields) > 0 {
		p.extra = fields
	}
	return nil
}

// MarshalJSON re-emits the known fields alongside any preserved ones.
// Go serializes map keys in sorted order, so output is deterministic.
func (p Payload) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.extra)+3)
	for k, v := range p.extra {
		out[k] = v
	}
	if p.Status != "" {
		out[fieldStatus] = mustRaw(string(p.Status))
	}
	if p.ApptID != "" {
		out[fieldApptID] = mustRaw(p.ApptID)
	}
	if p.StartTime != "" {
		out[fieldStartTime] = mustRaw(p.StartTime)
	}
	return json.Marshal(out)
}

func mustRaw(s string) json.RawMessage {
	raw, _ := json.Marshal(s)
	return raw
}
