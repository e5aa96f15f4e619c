// Package metrics derives aggregate and data-quality summaries from a
// reconciled referral map. Both summarizers are pure functions.
package metrics

import (
	"sort"

	"referral_backend/internal/event"
	"referral_backend/internal/reconcile"
)

// Aggregate is the status breakdown over a reconciled map.
type Aggregate struct {
	Total         int `json:"total"`
	Completed     int `json:"completed"`
	Cancelled     int `json:"cancelled"`
	InProgress    int `json:"inProgress"`
	Scheduled     int `json:"scheduled"`
	NoAppointment int `json:"noAppointment"`
}

// Summarize counts referrals by lifecycle outcome. In-progress referrals
// split by whether an active appointment exists.
func Summarize(m reconcile.Map) Aggregate {
	agg := Aggregate{Total: len(m)}
	for _, state := range m {
		switch {
		case state.Status == event.StatusCompleted:
			agg.Completed++
		case state.Status == event.StatusCancelled:
			agg.Cancelled++
		default:
			agg.InProgress++
			if state.ActiveAppointment != nil {
				agg.Scheduled++
			} else {
				agg.NoAppointment++
			}
		}
	}
	return agg
}

// QualityEntry is one referral's anomaly score in the quality ranking.
type QualityEntry struct {
	ReferralID string            `json:"referral_id"`
	Score      int               `json:"score"`
	Metrics    reconcile.Metrics `json:"metrics"`
}

// QualityReport sums the per-referral counters and ranks the referrals
// with the worst feed anomalies.
type QualityReport struct {
	Totals reconcile.Metrics `json:"totals"`
	Worst  []QualityEntry    `json:"worst"`
}

const qualityRankSize = 10

// Quality builds the data-quality summary: summed counters plus the top
// referrals by score = duplicates + seqGaps + 2*terminalOverrides, ranked
// descending with ascending referral id as tiebreaker. Referrals with a
// zero score are excluded from the ranking.
func Quality(m reconcile.Map) QualityReport {
	report := QualityReport{Worst: []QualityEntry{}}

	for id, state := range m {
		report.Totals.Duplicates += state.Metrics.Duplicates
		report.Totals.SeqGaps += state.Metrics.SeqGaps
		report.Totals.TerminalOverrides += state.Metrics.TerminalOverrides
		report.Totals.Reschedules += state.Metrics.Reschedules
		report.Totals.CancelledAppts += state.Metrics.CancelledAppts

		if score := state.Metrics.Total(); score > 0 {
			report.Worst = append(report.Worst, QualityEntry{
				ReferralID: id,
				Score:      score,
				Metrics:    state.Metrics,
			})
		}
	}

	sort.Slice(report.Worst, func(i, j int) bool {
		if report.Worst[i].Score != report.Worst[j].Score {
			return report.Worst[i].Score > report.Worst[j].Score
		}
		return report.Worst[i].ReferralID < report.Worst[j].ReferralID
	})

	if len(report.Worst) > qualityRankSize {
		report.Worst = report.Worst[:qualityRankSize]
	}
	return report
}
