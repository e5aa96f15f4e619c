package reconcile

import (
	"reflect"
	"testing"

	"referral_backend/internal/event"
)

func statusEvent(referralID string, seq int64, status event.Status) event.Event {
	return event.Event{
		ReferralID: referralID,
		Seq:        seq,
		Type:       event.TypeStatusUpdate,
		Payload:    event.Payload{Status: status},
	}
}

func apptSetEvent(referralID string, seq int64, apptID, startTime string) event.Event {
	return event.Event{
		ReferralID: referralID,
		Seq:        seq,
		Type:       event.TypeAppointmentSet,
		Payload:    event.Payload{ApptID: apptID, StartTime: startTime},
	}
}

func apptCancelEvent(referralID string, seq int64, apptID string) event.Event {
	return event.Event{
		ReferralID: referralID,
		Seq:        seq,
		Type:       event.TypeAppointmentCancelled,
		Payload:    event.Payload{ApptID: apptID},
	}
}

func mustGet(t *testing.T, m Map, id string) *ReferralState {
	t.Helper()
	state, ok := m[id]
	if !ok {
		t.Fatalf("expected referral %q in reconciled map", id)
	}
	return state
}

func TestReconcileHappyPath(t *testing.T) {
	events := []event.Event{
		statusEvent("R1", 1, event.StatusSent),
		apptSetEvent("R1", 2, "A", "2025-02-01T10:00:00Z"),
		statusEvent("R1", 3, event.StatusScheduled),
		statusEvent("R1", 4, event.StatusCompleted),
	}

	state := mustGet(t, Reconcile(events), "R1")

	if state.Status != event.StatusCompleted {
		t.Fatalf("expected status=%q, got %q", event.StatusCompleted, state.Status)
	}
	if state.ActiveAppointment != nil {
		t.Fatalf("expected no active appointment on terminal referral, got %+v", state.ActiveAppointment)
	}
	appt := state.Appointments["A"]
	if appt == nil || appt.StartTime != "2025-02-01T10:00:00Z" {
		t.Fatalf("expected appointment A at 2025-02-01T10:00:00Z, got %+v", appt)
	}
	if state.Metrics != (Metrics{}) {
		t.Fatalf("expected zero metrics, got %+v", state.Metrics)
	}
}

func TestReconcileDuplicatesAndGaps(t *testing.T) {
	events := []event.Event{
		statusEvent("R2", 1, event.StatusSent),
		statusEvent("R2", 1, event.StatusSent),
		statusEvent("R2", 3, event.StatusAcknowledged),
	}

	state := mustGet(t, Reconcile(events), "R2")

	if state.Status != event.StatusAcknowledged {
		t.Fatalf("expected status=%q, got %q", event.StatusAcknowledged, state.Status)
	}
	if state.Metrics.Duplicates != 1 {
		t.Fatalf("expected duplicates=1, got %d", state.Metrics.Duplicates)
	}
	if state.Metrics.SeqGaps != 1 {
		t.Fatalf("expected seqGaps=1, got %d", state.Metrics.SeqGaps)
	}
	if state.ActiveAppointment != nil {
		t.Fatalf("expected no active appointment, got %+v", state.ActiveAppointment)
	}
}

func TestReconcileRescheduleThenCancelOutOfOrder(t *testing.T) {
	events := []event.Event{
		apptSetEvent("R3", 3, "A", "2025-03-02T09:00:00Z"),
		statusEvent("R3", 1, event.StatusScheduled),
		apptSetEvent("R3", 2, "A", "2025-03-01T09:00:00Z"),
		apptCancelEvent("R3", 4, "A"),
	}

	state := mustGet(t, Reconcile(events), "R3")

	if state.Status != event.StatusScheduled {
		t.Fatalf("expected status=%q, got %q", event.StatusScheduled, state.Status)
	}
	appt, seen := state.Appointments["A"]
	if !seen || appt != nil {
		t.Fatalf("expected appointment A cancelled, got seen=%v value=%+v", seen, appt)
	}
	if state.ActiveAppointment != nil {
		t.Fatalf("expected no active appointment, got %+v", state.ActiveAppointment)
	}
	if state.Metrics.Reschedules != 1 {
		t.Fatalf("expected reschedules=1, got %d", state.Metrics.Reschedules)
	}
	if state.Metrics.CancelledAppts != 1 {
		t.Fatalf("expected cancelledAppts=1, got %d", state.Metrics.CancelledAppts)
	}
}

func TestReconcileEarliestAppointmentActive(t *testing.T) {
	events := []event.Event{
		statusEvent("R4", 1, event.StatusScheduled),
		apptSetEvent("R4", 2, "B", "2025-05-10T09:00:00Z"),
		apptSetEvent("R4", 3, "A", "2025-05-05T09:00:00Z"),
	}

	state := mustGet(t, Reconcile(events), "R4")

	if state.Status != event.StatusScheduled {
		t.Fatalf("expected status=%q, got %q", event.StatusScheduled, state.Status)
	}
	if state.ActiveAppointment == nil {
		t.Fatalf("expected an active appointment")
	}
	if state.ActiveAppointment.ApptID != "A" || state.ActiveAppointment.StartTime != "2025-05-05T09:00:00Z" {
		t.Fatalf("expected appointment A active, got %+v", state.ActiveAppointment)
	}
}

func TestReconcileActiveAppointmentTiebreakByApptID(t *testing.T) {
	events := []event.Event{
		apptSetEvent("R", 1, "B", "2025-05-05T09:00:00Z"),
		apptSetEvent("R", 2, "A", "2025-05-05T09:00:00Z"),
	}

	state := mustGet(t, Reconcile(events), "R")

	if state.ActiveAppointment == nil || state.ActiveAppointment.ApptID != "A" {
		t.Fatalf("expected tiebreak to select A, got %+v", state.ActiveAppointment)
	}
}

func TestReconcileTerminalAbsorption(t *testing.T) {
	events := []event.Event{
		statusEvent("R5", 1, event.StatusCancelled),
		statusEvent("R5", 2, event.StatusSent),
		statusEvent("R5", 3, event.StatusCompleted),
	}

	state := mustGet(t, Reconcile(events), "R5")

	if state.Status != event.StatusCompleted {
		t.Fatalf("expected status=%q, got %q", event.StatusCompleted, state.Status)
	}
	if state.Metrics.TerminalOverrides != 1 {
		t.Fatalf("expected terminalOverrides=1, got %d", state.Metrics.TerminalOverrides)
	}
	if state.ActiveAppointment != nil {
		t.Fatalf("expected no active appointment, got %+v", state.ActiveAppointment)
	}
}

func TestReconcileTerminalSuppressesActiveAppointment(t *testing.T) {
	events := []event.Event{
		apptSetEvent("R", 1, "A", "2025-06-01T09:00:00Z"),
		statusEvent("R", 2, event.StatusCompleted),
	}

	state := mustGet(t, Reconcile(events), "R")

	if state.ActiveAppointment != nil {
		t.Fatalf("expected no active appointment on terminal referral, got %+v", state.ActiveAppointment)
	}
	if appt := state.Appointments["A"]; appt == nil {
		t.Fatalf("expected appointment A retained in the book")
	}
}

func TestReconcileResurrectedAppointmentDoesNotCountReschedule(t *testing.T) {
	events := []event.Event{
		apptSetEvent("R", 1, "A", "2025-06-01T09:00:00Z"),
		apptCancelEvent("R", 2, "A"),
		apptSetEvent("R", 3, "A", "2025-07-01T09:00:00Z"),
	}

	state := mustGet(t, Reconcile(events), "R")

	if state.Metrics.Reschedules != 0 {
		t.Fatalf("expected reschedules=0 after resurrection, got %d", state.Metrics.Reschedules)
	}
	if state.Metrics.CancelledAppts != 1 {
		t.Fatalf("expected cancelledAppts=1, got %d", state.Metrics.CancelledAppts)
	}
	appt := state.Appointments["A"]
	if appt == nil || appt.StartTime != "2025-07-01T09:00:00Z" {
		t.Fatalf("expected appointment A resurrected at new time, got %+v", appt)
	}
	if state.ActiveAppointment == nil || state.ActiveAppointment.ApptID != "A" {
		t.Fatalf("expected resurrected appointment active, got %+v", state.ActiveAppointment)
	}
}

func TestReconcileCancelUnknownAppointmentIgnored(t *testing.T) {
	events := []event.Event{
		apptCancelEvent("R", 1, "ghost"),
		apptCancelEvent("R", 2, "ghost"),
	}

	state := mustGet(t, Reconcile(events), "R")

	if state.Metrics.CancelledAppts != 0 {
		t.Fatalf("expected cancelledAppts=0, got %d", state.Metrics.CancelledAppts)
	}
	if _, seen := state.Appointments["ghost"]; seen {
		t.Fatalf("expected unknown appointment to stay unseen")
	}
}

func TestReconcileDefaultStatusCreated(t *testing.T) {
	events := []event.Event{
		apptSetEvent("R", 7, "A", "2025-06-01T09:00:00Z"),
	}

	state := mustGet(t, Reconcile(events), "R")

	if state.Status != event.StatusCreated {
		t.Fatalf("expected default status CREATED, got %q", state.Status)
	}
}

func TestReconcilePermutationInvariance(t *testing.T) {
	base := []event.Event{
		statusEvent("P1", 1, event.StatusSent),
		apptSetEvent("P1", 2, "A", "2025-02-01T10:00:00Z"),
		apptSetEvent("P1", 4, "B", "2025-01-15T10:00:00Z"),
		apptCancelEvent("P1", 5, "B"),
		statusEvent("P1", 9, event.StatusCompleted),
		statusEvent("P2", 1, event.StatusCancelled),
		statusEvent("P2", 2, event.StatusCompleted),
		statusEvent("P2", 2, event.StatusCompleted),
	}

	want := Reconcile(base)

	permutations := [][]event.Event{
		reversed(base),
		rotated(base, 3),
		rotated(reversed(base), 5),
	}
	for i, perm := range permutations {
		got := Reconcile(perm)
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("permutation %d: reconciled output differs\nwant %+v\ngot  %+v", i, want, got)
		}
	}
}

func TestReconcileDuplicateIdempotence(t *testing.T) {
	base := []event.Event{
		statusEvent("D", 1, event.StatusSent),
		apptSetEvent("D", 2, "A", "2025-02-01T10:00:00Z"),
		statusEvent("D", 4, event.StatusScheduled),
	}
	doubled := append(append([]event.Event{}, base...), base...)

	single := mustGet(t, Reconcile(base), "D")
	double := mustGet(t, Reconcile(doubled), "D")

	if !reflect.DeepEqual(single.Events, double.Events) {
		t.Fatalf("expected identical retained events")
	}
	if single.Status != double.Status {
		t.Fatalf("expected identical status, got %q vs %q", single.Status, double.Status)
	}
	if !reflect.DeepEqual(single.Appointments, double.Appointments) {
		t.Fatalf("expected identical appointments")
	}
	if !reflect.DeepEqual(single.ActiveAppointment, double.ActiveAppointment) {
		t.Fatalf("expected identical active appointment")
	}
	if double.Metrics.Duplicates != single.Metrics.Duplicates+len(base) {
		t.Fatalf("expected duplicates to grow by %d, got %d", len(base), double.Metrics.Duplicates)
	}
	if double.Metrics.SeqGaps != single.Metrics.SeqGaps {
		t.Fatalf("expected identical seqGaps, got %d vs %d", single.Metrics.SeqGaps, double.Metrics.SeqGaps)
	}
}

func TestReconcileGapAccounting(t *testing.T) {
	cases := []struct {
		name string
		seqs []int64
		want int
	}{
		{"contiguous", []int64{1, 2, 3, 4}, 0},
		{"single gap", []int64{1, 3}, 1},
		{"wide gap", []int64{0, 10}, 9},
		{"several gaps", []int64{2, 5, 6, 9}, 4},
		{"leading offset not counted", []int64{100, 101}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events := make([]event.Event, 0, len(tc.seqs))
			for _, seq := range tc.seqs {
				events = append(events, statusEvent("G", seq, event.StatusSent))
			}

			state := mustGet(t, Reconcile(events), "G")
			if state.Metrics.SeqGaps != tc.want {
				t.Fatalf("expected seqGaps=%d, got %d", tc.want, state.Metrics.SeqGaps)
			}

			// For strictly increasing duplicate-free input: last-first-(len-1).
			first, last := tc.seqs[0], tc.seqs[len(tc.seqs)-1]
			if expected := int(last - first - int64(len(tc.seqs)-1)); state.Metrics.SeqGaps != expected {
				t.Fatalf("gap identity violated: expected %d, got %d", expected, state.Metrics.SeqGaps)
			}
		})
	}
}

func TestReconcileRetainedEventsStrictlyAscending(t *testing.T) {
	events := []event.Event{
		statusEvent("S", 5, event.StatusSent),
		statusEvent("S", 1, event.StatusCreated),
		statusEvent("S", 3, event.StatusAcknowledged),
		statusEvent("S", 3, event.StatusSent),
	}

	state := mustGet(t, Reconcile(events), "S")

	for i := 1; i < len(state.Events); i++ {
		if state.Events[i].Seq <= state.Events[i-1].Seq {
			t.Fatalf("events not strictly ascending at index %d: %d then %d", i, state.Events[i-1].Seq, state.Events[i].Seq)
		}
	}
	if state.Metrics.Duplicates != 1 {
		t.Fatalf("expected duplicates=1, got %d", state.Metrics.Duplicates)
	}
}

func TestReconcileFirstOccurrenceWinsOnDuplicateSeq(t *testing.T) {
	events := []event.Event{
		statusEvent("F", 1, event.StatusSent),
		statusEvent("F", 1, event.StatusAcknowledged),
	}

	state := mustGet(t, Reconcile(events), "F")

	if state.Status != event.StatusSent {
		t.Fatalf("expected first occurrence to win, got status %q", state.Status)
	}
}

func reversed(events []event.Event) []event.Event {
	out := make([]event.Event, len(events))
	for i, ev := range events {
		out[len(events)-1-i] = ev
	}
	return out
}

func rotated(events []event.Event, by int) []event.Event {
	out := make([]event.Event, 0, len(events))
	out = append(out, events[by%len(events):]...)
	out = append(out, events[:by%len(events)]...)
	return out
}
