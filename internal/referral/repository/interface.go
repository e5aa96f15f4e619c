package repository

import (
	"context"
	"errors"
	"time"

	"referral_backend/internal/event"
	"referral_backend/internal/metrics"
	"referral_backend/internal/reconcile"
)

// ErrNotFound is returned when a keyed read matches no document.
var ErrNotFound = errors.New("not found")

// UploadEnvelope is the persisted metadata of one ingest invocation.
type UploadEnvelope struct {
	UploadID   string    `json:"uploadId"`
	UploadedBy string    `json:"uploadedBy"`
	Events     int       `json:"events"`
	Referrals  int       `json:"referrals"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// MetricsSnapshot is the aggregate + quality document stored per upload.
type MetricsSnapshot struct {
	UploadID  string                `json:"uploadId"`
	Aggregate metrics.Aggregate     `json:"aggregate"`
	Quality   metrics.QualityReport `json:"quality"`
}

// BatchWriter accumulates set-document operations for one upload and
// commits them in bounded chunks. Writers are single-use.
type BatchWriter interface {
	SetUpload(envelope UploadEnvelope)
	SetMetrics(snapshot MetricsSnapshot)
	SetEvent(uploadID string, importedAt time.Time, ev event.Event)
	SetReferral(state *reconcile.ReferralState)
	// Commit flushes all enqueued chunks, awaiting every chunk before
	// returning. Any chunk error is surfaced; readers may observe a
	// partially committed upload, which a retry repairs.
	Commit(ctx context.Context) error
}

// Store is the document-store capability consumed by the referral service.
type Store interface {
	NewBatch() BatchWriter
	GetReferral(ctx context.Context, referralID string) (*reconcile.ReferralState, error)
	ListReferrals(ctx context.Context, limit int) ([]*reconcile.ReferralState, error)
	GetEvents(ctx context.Context, referralID string) ([]event.Event, error)
	LatestMetrics(ctx context.Context) (*MetricsSnapshot, error)
}
