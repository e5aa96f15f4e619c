package event

import (
	"encoding/json"
	"fmt"
	"time"

	"referral_backend/platform/apperr"
)

// ParseBatch decodes an upload body into validated events. Both observed
// request shapes are accepted: a bare JSON array of event objects, or an
// object wrapping the array as {"events": [...]}.
//
// Any invalid event rejects the whole batch with a validation error.
func ParseBatch(body []byte) ([]Event, error) {
	var rawEvents []json.RawMessage
	if err := json.Unmarshal(body, &rawEvents); err != nil {
		var envelope struct {
			Events []json.RawMessage `json:"events"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil || envelope.Events == nil {
			return nil, apperr.Validation(`request body must be an event array or {"events": [...]}`)
		}
		rawEvents = envelope.Events
	}

	events := make([]Event, 0, len(rawEvents))
	for i, raw := range rawEvents {
		ev, err := parseOne(raw)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("event %d: %s", i, err))
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseOne(raw json.RawMessage) (Event, error) {
	var wire struct {
		ReferralID *string          `json:"referral_id"`
		Seq        *int64           `json:"seq"`
		Type       Type             `json:"type"`
		Payload    *json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Event{}, fmt.Errorf("malformed event object")
	}

	if wire.ReferralID == nil || *wire.ReferralID == "" {
		return Event{}, fmt.Errorf("referral_id is required")
	}
	if wire.Seq == nil {
		return Event{}, fmt.Errorf("seq is required")
	}
	if *wire.Seq < 0 {
		return Event{}, fmt.Errorf("seq must be non-negative")
	}
	if !wire.Type.Valid() {
		return Event{}, fmt.Errorf("unknown type %q", wire.Type)
	}
	if wire.Payload == nil {
		return Event{}, fmt.Errorf("payload is required")
	}

	var payload Payload
	if err := json.Unmarshal(*wire.Payload, &payload); err != nil {
		return Event{}, fmt.Errorf("malformed payload")
	}

	if err := validatePayload(wire.Type, payload); err != nil {
		return Event{}, err
	}

	return Event{
		ReferralID: *wire.ReferralID,
		Seq:        *wire.Seq,
		Type:       wire.Type,
		Payload:    payload,
	}, nil
}

func validatePayload(t Type, p Payload) error {
	switch t {
	case TypeStatusUpdate:
		if !p.Status.Valid() {
			return fmt.Errorf("unknown status %q", p.Status)
		}
	case TypeAppointmentSet:
		if p.ApptID == "" {
			return fmt.Errorf("appt_id is required")
		}
		if _, err := time.Parse(time.RFC3339, p.StartTime); err != nil {
			return fmt.Errorf("start_time must be an RFC 3339 timestamp")
		}
	case TypeAppointmentCancelled:
		if p.ApptID == "" {
			return fmt.Errorf("appt_id is required")
		}
	}
	return nil
}
