// Package service orchestrates referral ingest and reads: parse the batch,
// reconcile it, persist the upload documents, and serve reconciled state.
package service

import (
	"context"
	"errors"
	"time"

	"referral_backend/internal/event"
	"referral_backend/internal/metrics"
	"referral_backend/internal/reconcile"
	"referral_backend/internal/referral/repository"
	"referral_backend/internal/referral/transport"
	"referral_backend/platform/apperr"
	"referral_backend/platform/logger"

	"github.com/google/uuid"
)

// listCap bounds GET /referrals responses.
const listCap = 100

// Service implements referral ingest and read operations.
type Service struct {
	store repository.Store
	log   *logger.Logger
}

// New creates a new referral service.
func New(store repository.Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// Ingest parses and reconciles one event batch, then persists the upload
// envelope, the metrics snapshot, every retained event and a full
// overwrite of each touched referral read-model. All writes are issued
// before the response returns.
func (s *Service) Ingest(ctx context.Context, uploadedBy string, body []byte) (*transport.UploadResponse, error) {
	events, err := event.ParseBatch(body)
	if err != nil {
		return nil, err
	}

	reconciled := reconcile.Reconcile(events)
	aggregate := metrics.Summarize(reconciled)
	quality := metrics.Quality(reconciled)

	uploadID := uuid.NewString()
	importedAt := time.Now().UTC()

	batch := s.store.NewBatch()
	batch.SetUpload(repository.UploadEnvelope{
		UploadID:   uploadID,
		UploadedBy: uploadedBy,
		Events:     len(events),
		Referrals:  len(reconciled),
		ReceivedAt: importedAt,
	})
	batch.SetMetrics(repository.MetricsSnapshot{
		UploadID:  uploadID,
		Aggregate: aggregate,
		Quality:   quality,
	})
	for _, state := range reconciled {
		batch.SetReferral(state)
		for _, ev := range state.Events {
			batch.SetEvent(uploadID, importedAt, ev)
		}
	}

	if err := batch.Commit(ctx); err != nil {
		s.log.DatabaseError("ingest commit", err)
		return nil, apperr.Wrap(apperr.KindInternal, "failed to persist upload", err)
	}

	s.log.UploadProcessed(uploadID, len(events), len(reconciled))

	return &transport.UploadResponse{
		UploadID:  uploadID,
		Processed: len(events),
		Referrals: len(reconciled),
		Metrics:   aggregate,
	}, nil
}

// Get returns one referral read-model with its raw event timeline in
// ascending seq order.
func (s *Service) Get(ctx context.Context, referralID string) (*reconcile.ReferralState, error) {
	state, err := s.store.GetReferral(ctx, referralID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("referral not found")
	}
	if err != nil {
		s.log.DatabaseError("get referral", err)
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load referral", err)
	}

	events, err := s.store.GetEvents(ctx, referralID)
	if err != nil {
		s.log.DatabaseError("get referral events", err)
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load referral events", err)
	}
	state.Events = events
	return state, nil
}

// List returns reconciled read-models capped at the list limit. Event
// timelines are omitted from list responses.
func (s *Service) List(ctx context.Context) (*transport.ListReferralsResponse, error) {
	states, err := s.store.ListReferrals(ctx, listCap)
	if err != nil {
		s.log.DatabaseError("list referrals", err)
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list referrals", err)
	}

	for _, state := range states {
		state.Events = nil
	}
	return &transport.ListReferralsResponse{Referrals: states}, nil
}

// LatestMetrics returns the most recent aggregate-metrics snapshot.
func (s *Service) LatestMetrics(ctx context.Context) (*transport.MetricsResponse, error) {
	snapshot, err := s.store.LatestMetrics(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("no metrics recorded yet")
	}
	if err != nil {
		s.log.DatabaseError("latest metrics", err)
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load metrics", err)
	}

	return &transport.MetricsResponse{
		UploadID:  snapshot.UploadID,
		Aggregate: snapshot.Aggregate,
		Quality:   snapshot.Quality,
	}, nil
}
