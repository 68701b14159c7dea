package model

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/faizdevx/CrashNet/internal/domain"
	"github.com/faizdevx/CrashNet/internal/metrics"
)

// Store owns the mutable (normalizer, classifier) pair. Train and
// Reset replace or mutate both under the write lock as one
// transition; Infer takes the read lock, so concurrent readers never
// observe a normalizer paired with a stale classifier.
//
// A background cadence snapshots the state to disk. A crash between a
// train call and the next snapshot loses that update; that window is
// accepted.
type Store struct {
	mu   sync.RWMutex
	norm *Normalizer
	clf  *Classifier

	path     string
	interval time.Duration
	log      *zap.Logger
}

func NewStore(path string, interval time.Duration, log *zap.Logger) (*Store, error) {
	s := &Store{
		path:     path,
		interval: interval,
		log:      log,
	}

	snap, err := loadSnapshot(path)
	switch {
	case err == nil:
		s.norm = snap.Normalizer
		s.clf = snap.Classifier
		log.Info("model snapshot loaded",
			zap.String("path", path),
			zap.Uint64("updates", s.clf.Updates))
	case os.IsNotExist(err):
		log.Info("no model snapshot found, seeding fresh state", zap.String("path", path))
		s.norm = NewSeededNormalizer()
		s.clf = NewSeededClassifier()
	default:
		return nil, fmt.Errorf("failed to load model snapshot: %w", err)
	}

	return s, nil
}

// Infer classifies one feature vector against the current state.
// Never fails: the state is seeded at construction.
func (s *Store) Infer(x domain.FeatureVector) domain.Classification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score := s.clf.Decision(s.norm.Transform(x))
	return domain.Classification{Accident: score > 0, Score: score}
}

// Train applies one incremental update. The normalizer observation
// and the classifier step happen under one critical section, so the
// pair is updated together or not at all.
func (s *Store) Train(e *domain.TrainingExample) error {
	if err := e.Validate(); err != nil {
		return err
	}

	x := e.Features()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.norm.Observe(x)
	s.clf.Fit(s.norm.Transform(x), e.Label)
	return nil
}

// Reset replaces the state with a freshly seeded pair and snapshots
// it immediately, so a restart after reset does not resurrect the old
// model.
func (s *Store) Reset() {
	s.mu.Lock()
	s.norm = NewSeededNormalizer()
	s.clf = NewSeededClassifier()
	s.mu.Unlock()

	if err := s.Snapshot(); err != nil {
		metrics.SnapshotFailures.Add(1)
		s.log.Warn("snapshot after reset failed", zap.Error(err))
	}
}

// Snapshot persists the current state. It holds the read lock only,
// which still excludes train/reset for the duration of the copy.
func (s *Store) Snapshot() error {
	s.mu.RLock()
	snap := snapshot{Normalizer: s.norm.clone(), Classifier: s.clf.clone()}
	s.mu.RUnlock()

	return writeSnapshot(s.path, &snap)
}

// Loaded reports whether a durable snapshot exists on disk.
func (s *Store) Loaded() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Run drives the persistence cadence until ctx is cancelled, then
// takes a final snapshot. Failures are logged and retried on the next
// tick; they never interrupt inference or training.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Snapshot(); err != nil {
				metrics.SnapshotFailures.Add(1)
				s.log.Warn("periodic snapshot failed", zap.Error(err))
			}

		case <-ctx.Done():
			if err := s.Snapshot(); err != nil {
				metrics.SnapshotFailures.Add(1)
				s.log.Warn("final snapshot failed", zap.Error(err))
			}
			return
		}
	}
}
