package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/tokenfolio/internal/snapshot"
)

// finalSaveTimeout bounds the snapshot written after the context is cancelled.
const finalSaveTimeout = 10 * time.Second

// SnapshotSaver persists the current tracker state.
type SnapshotSaver interface {
	Save(ctx context.Context) (snapshot.Snapshot, error)
}

// AfterSaveHook is called after each successful snapshot save.
type AfterSaveHook interface {
	Export(ctx context.Context) error
}

// SnapshotWorker periodically saves tracker snapshots.
type SnapshotWorker struct {
	saver    SnapshotSaver
	interval time.Duration
	hook     AfterSaveHook // optional
}

// NewSnapshotWorker creates a new SnapshotWorker with an optional post-save hook.
func NewSnapshotWorker(saver SnapshotSaver, interval time.Duration, hook AfterSaveHook) *SnapshotWorker {
	return &SnapshotWorker{
		saver:    saver,
		interval: interval,
		hook:     hook,
	}
}

func (w *SnapshotWorker) save(ctx context.Context) {
	snap, err := w.saver.Save(ctx)
	if err != nil {
		slog.Error("SnapshotWorker: save failed", "error", err)
		return
	}
	slog.Info("SnapshotWorker: snapshot saved", "id", snap.ID)

	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx); err != nil {
		slog.Error("SnapshotWorker: export hook failed", "error", err)
	} else {
		slog.Info("SnapshotWorker: export hook completed")
	}
}

// Run saves every interval and once more after the context is cancelled.
// It blocks until that final save completes.
func (w *SnapshotWorker) Run(ctx context.Context) {
	slog.Info("SnapshotWorker: starting", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("SnapshotWorker: saving final snapshot")
			finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalSaveTimeout)
			w.save(finalCtx)
			cancel()
			return
		case <-ticker.C:
			w.save(ctx)
		}
	}
}
