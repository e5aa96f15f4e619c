package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"referral_backend/internal/event"
	"referral_backend/internal/reconcile"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// chunkSize bounds the number of operations committed per batch round trip.
const chunkSize = 400

// Repository is the Postgres-backed document store. Reconciled referral
// read-models and per-upload documents are stored as JSONB; raw events are
// keyed by (referral_id, seq) and overwritten on re-ingest, which is safe
// because events are immutable content.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new referral repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

// NewBatch starts an empty batch writer for one upload.
func (r *Repository) NewBatch() BatchWriter {
	return &pgBatchWriter{pool: r.pool}
}

// GetReferral loads one reconciled read-model.
func (r *Repository) GetReferral(ctx context.Context, referralID string) (*reconcile.ReferralState, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `
		SELECT doc FROM referrals WHERE referral_id = $1
	`, referralID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var state reconcile.ReferralState
	if err := json.Unmarshal(doc, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ListReferrals loads up to limit read-models ordered by referral id.
func (r *Repository) ListReferrals(ctx context.Context, limit int) ([]*reconcile.ReferralState, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doc FROM referrals ORDER BY referral_id LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := []*reconcile.ReferralState{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var state reconcile.ReferralState
		if err := json.Unmarshal(doc, &state); err != nil {
			return nil, err
		}
		states = append(states, &state)
	}
	return states, rows.Err()
}

// GetEvents loads the raw events of one referral in ascending seq order.
func (r *Repository) GetEvents(ctx context.Context, referralID string) ([]event.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doc FROM referral_events WHERE referral_id = $1 ORDER BY seq ASC
	`, referralID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []event.Event{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var ev event.Event
		if err := json.Unmarshal(doc, &ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// LatestMetrics loads the most recently written metrics snapshot.
func (r *Repository) LatestMetrics(ctx context.Context) (*MetricsSnapshot, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `
		SELECT doc FROM upload_metrics ORDER BY created_at DESC, upload_id DESC LIMIT 1
	`).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var snapshot MetricsSnapshot
	if err := json.Unmarshal(doc, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// op is one set-document statement queued in a batch.
type op struct {
	sql  string
	args []any
}

// pgBatchWriter queues set operations and rotates them into chunks of at
// most chunkSize before commit. Chunks run concurrently; Commit awaits
// them all and surfaces the first error.
type pgBatchWriter struct {
	pool    *pgxpool.Pool
	pending []op
	err     error
}

func (w *pgBatchWriter) enqueueJSON(sql string, doc any, extra ...any) {
	if w.err != nil {
		return
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		w.err = err
		return
	}
	args := append([]any{}, extra...)
	args = append(args, encoded)
	w.pending = append(w.pending, op{sql: sql, args: args})
}

// SetUpload queues the upload envelope document.
func (w *pgBatchWriter) SetUpload(envelope UploadEnvelope) {
	w.enqueueJSON(`
		INSERT INTO uploads (id, doc, created_at)
		VALUES ($1, $3, $2)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
	`, envelope, envelope.UploadID, envelope.ReceivedAt)
}

// SetMetrics queues the aggregate-metrics snapshot document.
func (w *pgBatchWriter) SetMetrics(snapshot MetricsSnapshot) {
	w.enqueueJSON(`
		INSERT INTO upload_metrics (upload_id, doc, created_at)
		VALUES ($1, $3, $2)
		ON CONFLICT (upload_id) DO UPDATE SET doc = EXCLUDED.doc
	`, snapshot, snapshot.UploadID, time.Now().UTC())
}

// SetEvent queues one retained raw event keyed by (referral_id, seq).
func (w *pgBatchWriter) SetEvent(uploadID string, importedAt time.Time, ev event.Event) {
	w.enqueueJSON(`
		INSERT INTO referral_events (referral_id, seq, upload_id, imported_at, doc)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (referral_id, seq) DO UPDATE
		SET doc = EXCLUDED.doc, upload_id = EXCLUDED.upload_id, imported_at = EXCLUDED.imported_at
	`, ev, ev.ReferralID, ev.Seq, uploadID, importedAt)
}

// SetReferral queues a full overwrite of one reconciled read-model.
func (w *pgBatchWriter) SetReferral(state *reconcile.ReferralState) {
	w.enqueueJSON(`
		INSERT INTO referrals (referral_id, doc, updated_at)
		VALUES ($1, $3, $2)
		ON CONFLICT (referral_id) DO UPDATE
		SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at
	`, state, state.ReferralID, time.Now().UTC())
}

// Commit flushes every queued chunk and waits for all of them.
func (w *pgBatchWriter) Commit(ctx context.Context) error {
	if w.err != nil {
		return w.err
	}

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(w.pending); start += chunkSize {
		end := start + chunkSize
		if end > len(w.pending) {
			end = len(w.pending)
		}
		chunk := w.pending[start:end]

		g.Go(func() error {
			batch := &pgx.Batch{}
			for _, o := range chunk {
				batch.Queue(o.sql, o.args...)
			}
			return w.pool.SendBatch(ctx, batch).Close()
		})
	}

	err := g.Wait()
	w.pending = nil
	return err
}
