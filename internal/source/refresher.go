package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/TimurManjosov/configship/internal/models"
	"github.com/TimurManjosov/configship/internal/snapshot"
	"github.com/TimurManjosov/configship/internal/telemetry"
)

// Refresher drives a Source into a snapshot store: fetch, decode, build,
// replace. A payload that fails validation is reported and the store keeps
// serving the last-known-good snapshot. Refreshes are serialized by
// construction: one Refresher, one loop.
type Refresher struct {
	source        Source
	store         *snapshot.Store
	logger        *slog.Logger
	environmentID string
	collectionID  string
	interval      time.Duration
	instanceID    string
	version       uint64
}

// NewRefresher wires a source to a store. interval controls the poll ticker
// in Run; Refresh can be called directly for one-shot loading.
func NewRefresher(src Source, store *snapshot.Store, environmentID, collectionID string, interval time.Duration, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	instanceID := uuid.NewString()
	return &Refresher{
		source:        src,
		store:         store,
		logger:        logger.With("refresher", instanceID),
		environmentID: environmentID,
		collectionID:  collectionID,
		interval:      interval,
		instanceID:    instanceID,
	}
}

// Refresh performs one fetch-decode-build-replace cycle. ErrNotModified from
// the source is a successful no-op. Any other failure leaves the currently
// served snapshot untouched.
func (r *Refresher) Refresh(ctx context.Context) error {
	payload, err := r.source.Fetch(ctx)
	if err != nil {
		if errors.Is(err, ErrNotModified) {
			return nil
		}
		telemetry.SnapshotReplacements.WithLabelValues("fetch_error").Inc()
		return fmt.Errorf("fetch configuration: %w", err)
	}

	cfg, err := models.DecodeBytes(payload.Body)
	if err != nil {
		telemetry.SnapshotReplacements.WithLabelValues("decode_error").Inc()
		r.logger.Warn("configuration payload rejected", "error", err)
		return err
	}

	r.version++
	snap, err := snapshot.Build(cfg, r.environmentID, r.collectionID, r.version)
	if err != nil {
		r.version--
		telemetry.SnapshotReplacements.WithLabelValues("invalid").Inc()
		r.logger.Warn("snapshot rejected, keeping last-known-good", "error", err)
		return err
	}

	if err := r.store.Replace(snap); err != nil {
		telemetry.SnapshotReplacements.WithLabelValues("stale").Inc()
		return err
	}

	telemetry.SnapshotReplacements.WithLabelValues("installed").Inc()
	telemetry.SnapshotEntities.WithLabelValues("features").Set(float64(len(snap.Features)))
	telemetry.SnapshotEntities.WithLabelValues("properties").Set(float64(len(snap.Properties)))
	telemetry.SnapshotEntities.WithLabelValues("segments").Set(float64(len(snap.Segments)))
	r.logger.Info("snapshot installed",
		"etag", snap.ETag,
		"version", snap.Version,
		"features", len(snap.Features),
		"properties", len(snap.Properties),
		"segments", len(snap.Segments),
	)
	return nil
}

// Run loads an initial snapshot and then refreshes on every poll tick and on
// every watch hint until ctx is cancelled. The initial load must succeed;
// later failures are logged and retried on the next trigger.
func (r *Refresher) Run(ctx context.Context) error {
	if err := r.Refresh(ctx); err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}

	var hints <-chan struct{}
	if w, ok := r.source.(Watcher); ok {
		ch, err := w.Watch(ctx)
		if err != nil {
			r.logger.Warn("watch unavailable, falling back to polling", "error", err)
		} else {
			hints = ch
		}
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Warn("refresh failed", "error", err)
			}
		case _, ok := <-hints:
			if !ok {
				hints = nil
				continue
			}
			if err := r.Refresh(ctx); err != nil {
				r.logger.Warn("refresh failed", "error", err)
			}
		}
	}
}
