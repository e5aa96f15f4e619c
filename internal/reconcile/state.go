package reconcile

import "referral_backend/internal/event"

// Appointment is a scheduled appointment owned by a referral.
type Appointment struct {
	ApptID    string `json:"appt_id"`
	StartTime string `json:"start_time"`
}

// Metrics are the per-referral data-quality counters.
type Metrics struct {
	Duplicates        int `json:"duplicates"`
	SeqGaps           int `json:"seqGaps"`
	TerminalOverrides int `json:"terminalOverrides"`
	Reschedules       int `json:"reschedules"`
	CancelledAppts    int `json:"cancelledAppts"`
}

// Total is the weighted anomaly score used by the data-quality ranking.
func (m Metrics) Total() int {
	return m.Duplicates + m.SeqGaps + 2*m.TerminalOverrides
}

// ReferralState is the reconciled view of one referral. A nil value in
// Appointments is the cancelled marker, distinct from "never seen".
type ReferralState struct {
	ReferralID        string                  `json:"referral_id"`
	Status            event.Status            `json:"status"`
	ActiveAppointment *Appointment            `json:"active_appointment"`
	Appointments      map[string]*Appointment `json:"appointments"`
	Metrics           Metrics                 `json:"metrics"`
	Events            []event.Event           `json:"events,omitempty"`
}

// Terminal reports whether the referral reached a terminal status.
func (s *ReferralState) Terminal() bool {
	return s.Status.Terminal()
}

// Map is the reconciliation output keyed by referral id.
type Map map[string]*ReferralState
