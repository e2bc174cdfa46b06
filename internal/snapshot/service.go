package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mtlprog/tokenfolio/internal/domain"
)

// Tracker is the state owner being snapshotted.
type Tracker interface {
	Snapshot() domain.State
	Restore(state domain.State)
}

// Service exports tracker state to a Repository and restores it after a restart.
type Service struct {
	tracker Tracker
	repo    Repository
	now     func() time.Time
}

// NewService creates a new snapshot Service.
func NewService(tracker Tracker, repo Repository) *Service {
	return &Service{tracker: tracker, repo: repo, now: time.Now}
}

// Save exports the current tracker state and stores it.
func (s *Service) Save(ctx context.Context) (Snapshot, error) {
	state := s.tracker.Snapshot()

	data, err := json.Marshal(state)
	if err != nil {
		return Snapshot{}, fmt.Errorf("marshaling tracker state: %w", err)
	}

	snap := Snapshot{
		ID:        uuid.NewString(),
		TakenAt:   state.TakenAt,
		Data:      data,
		CreatedAt: s.now(),
	}
	if err := s.repo.Save(ctx, snap); err != nil {
		return Snapshot{}, fmt.Errorf("saving snapshot: %w", err)
	}

	return snap, nil
}

// Restore loads the most recent snapshot into the tracker. An empty repository
// leaves the tracker untouched and is not an error.
func (s *Service) Restore(ctx context.Context) error {
	snap, err := s.repo.GetLatest(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			slog.Info("no snapshot to restore, starting empty")
			return nil
		}
		return fmt.Errorf("loading latest snapshot: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(snap.Data, &state); err != nil {
		return fmt.Errorf("decoding snapshot %s: %w", snap.ID, err)
	}

	s.tracker.Restore(state)
	slog.Info("restored snapshot",
		"id", snap.ID, "takenAt", snap.TakenAt,
		"tokens", len(state.Prices), "users", len(state.Balances))
	return nil
}

// GetLatest retrieves the most recent snapshot.
func (s *Service) GetLatest(ctx context.Context) (*Snapshot, error) {
	return s.repo.GetLatest(ctx)
}

// List retrieves recent snapshots, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Snapshot, error) {
	return s.repo.List(ctx, limit)
}
