package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/vadiminshakov/gowal"
)

const (
	defaultWALDir    = "./wal/snapshots"
	walSegmentLimit  = 1000
	walMaxSegments   = 100
	walKeyPrefix     = "tracker_snapshot_"
	walSegmentPrefix = "snapshot_"
)

// WALStore implements Repository on top of an append-only write-ahead log.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens (or creates) a WAL-backed snapshot store in dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultWALDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot WAL dir: %w", err)
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           walSegmentPrefix,
		SegmentThreshold: walSegmentLimit,
		MaxSegments:      walMaxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening snapshot WAL: %w", err)
	}

	return &WALStore{wal: wal}, nil
}

func (s *WALStore) Save(_ context.Context, snap Snapshot) error {
	if s == nil || s.wal == nil {
		return errors.New("snapshot WAL is not initialized")
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.wal.Write(s.wal.CurrentIndex()+1, walKeyPrefix+snap.ID, payload); err != nil {
		return fmt.Errorf("writing snapshot to WAL: %w", err)
	}
	return nil
}

func (s *WALStore) GetLatest(ctx context.Context) (*Snapshot, error) {
	snaps, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrNotFound
	}
	return &snaps[0], nil
}

// List walks the log backwards from the newest record.
func (s *WALStore) List(_ context.Context, limit int) ([]Snapshot, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("snapshot WAL is not initialized")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var snaps []Snapshot
	for idx := s.wal.CurrentIndex(); idx > 0 && len(snaps) < limit; idx-- {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, walKeyPrefix) {
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			return nil, fmt.Errorf("decoding snapshot at index %d: %w", idx, err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("snapshot WAL is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
