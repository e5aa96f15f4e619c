// Package reconcile rebuilds the authoritative state of each referral from
// an unordered multiset of events. The engine is a pure function: the same
// input multiset always yields the same output, regardless of arrival order.
package reconcile

import (
	"sort"
	"time"

	"referral_backend/internal/event"
)

// Reconcile groups events by referral, deduplicates them by seq (first
// occurrence wins), replays the retained events in ascending seq order and
// derives each referral's current status, appointment book and
// data-quality counters.
func Reconcile(events []event.Event) Map {
	grouped := map[string]*reducer{}

	for _, ev := range events {
		r, ok := grouped[ev.ReferralID]
		if !ok {
			r = newReducer(ev.ReferralID)
			grouped[ev.ReferralID] = r
		}
		r.observe(ev)
	}

	out := make(Map, len(grouped))
	for id, r := range grouped {
		out[id] = r.finalize()
	}
	return out
}

// reducer owns the reconciliation state of a single referral. No state is
// shared across referrals.
type reducer struct {
	state    *ReferralState
	bySeq    map[int64]event.Event
	terminal bool
}

func newReducer(referralID string) *reducer {
	return &reducer{
		state: &ReferralState{
			ReferralID:   referralID,
			Status:       event.StatusCreated,
			Appointments: map[string]*Appointment{},
		},
		bySeq: map[int64]event.Event{},
	}
}

// observe records a raw event, dropping duplicates by seq.
func (r *reducer) observe(ev event.Event) {
	if _, seen := r.bySeq[ev.Seq]; seen {
		r.state.Metrics.Duplicates++
		return
	}
	r.bySeq[ev.Seq] = ev
}

// finalize sorts the retained events, counts interior sequence gaps,
// replays the events and selects the active appointment.
func (r *reducer) finalize() *ReferralState {
	seqs := make([]int64, 0, len(r.bySeq))
	for seq := range r.bySeq {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	r.state.Events = make([]event.Event, 0, len(seqs))
	for i, seq := range seqs {
		if i > 0 {
			if gap := seq - seqs[i-1] - 1; gap > 0 {
				r.state.Metrics.SeqGaps += int(gap)
			}
		}
		r.state.Events = append(r.state.Events, r.bySeq[seq])
	}

	for _, ev := range r.state.Events {
		r.apply(ev)
	}

	r.state.ActiveAppointment = r.selectActive()
	return r.state
}

func (r *reducer) apply(ev event.Event) {
	switch ev.Type {
	case event.TypeStatusUpdate:
		r.applyStatus(ev.Payload.Status)
	case event.TypeAppointmentSet:
		r.applyAppointmentSet(ev.Payload.ApptID, ev.Payload.StartTime)
	case event.TypeAppointmentCancelled:
		r.applyAppointmentCancelled(ev.Payload.ApptID)
	}
}

// applyStatus implements the status machine: any status rewrites a
// non-terminal one; terminal referrals accept only terminal overrides.
func (r *reducer) applyStatus(s event.Status) {
	if !r.terminal {
		r.state.Status = s
		if s.Terminal() {
			r.terminal = true
		}
		return
	}
	if s.Terminal() {
		r.state.Status = s
		r.state.Metrics.TerminalOverrides++
	}
}

func (r *reducer) applyAppointmentSet(apptID, startTime string) {
	existing, seen := r.state.Appointments[apptID]
	if seen && existing != nil && existing.StartTime != startTime {
		r.state.Metrics.Reschedules++
	}
	r.state.Appointments[apptID] = &Appointment{ApptID: apptID, StartTime: startTime}
}

func (r *reducer) applyAppointmentCancelled(apptID string) {
	if existing, seen := r.state.Appointments[apptID]; seen && existing != nil {
		r.state.Appointments[apptID] = nil
		r.state.Metrics.CancelledAppts++
	}
}

// selectActive picks the earliest non-cancelled appointment by start time,
// ties broken by ascending appt id. Terminal referrals have none.
func (r *reducer) selectActive() *Appointment {
	if r.terminal {
		return nil
	}

	var active *Appointment
	for _, appt := range r.state.Appointments {
		if appt == nil {
			continue
		}
		if active == nil || startsBefore(appt, active) {
			active = appt
		}
	}
	if active == nil {
		return nil
	}
	copied := *active
	return &copied
}

func startsBefore(a, b *Appointment) bool {
	ta, errA := time.Parse(time.RFC3339, a.StartTime)
	tb, errB := time.Parse(time.RFC3339, b.StartTime)
	if errA == nil && errB == nil && !ta.Equal(tb) {
		return ta.Before(tb)
	}
	if a.StartTime != b.StartTime {
		return a.StartTime < b.StartTime
	}
	return a.ApptID < b.ApptID
}
