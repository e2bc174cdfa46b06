package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mtlprog/tokenfolio/internal/snapshot"
)

type mockSnapshotSaver struct {
	callCount   atomic.Int32
	err         error
	lastCtxDone atomic.Bool
}

func (m *mockSnapshotSaver) Save(ctx context.Context) (snapshot.Snapshot, error) {
	m.callCount.Add(1)
	m.lastCtxDone.Store(ctx.Err() != nil)
	if m.err != nil {
		return snapshot.Snapshot{}, m.err
	}
	return snapshot.Snapshot{ID: "snap"}, nil
}

type mockHook struct {
	callCount atomic.Int32
}

func (m *mockHook) Export(_ context.Context) error {
	m.callCount.Add(1)
	return nil
}

func TestSnapshotWorkerSavesPeriodically(t *testing.T) {
	saver := &mockSnapshotSaver{}
	hook := &mockHook{}
	w := NewSnapshotWorker(saver, 20*time.Millisecond, hook)

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := saver.callCount.Load(); got < 2 {
		t.Errorf("save count = %d, want >= 2", got)
	}
	if hook.callCount.Load() != saver.callCount.Load() {
		t.Errorf("hook count = %d, save count = %d", hook.callCount.Load(), saver.callCount.Load())
	}
}

func TestSnapshotWorkerFinalSaveOnShutdown(t *testing.T) {
	saver := &mockSnapshotSaver{}
	w := NewSnapshotWorker(saver, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w.Run(ctx)

	if got := saver.callCount.Load(); got != 1 {
		t.Fatalf("save count = %d, want 1", got)
	}
	if saver.lastCtxDone.Load() {
		t.Error("final save received a cancelled context")
	}
}

func TestSnapshotWorkerSkipsHookOnError(t *testing.T) {
	saver := &mockSnapshotSaver{err: errors.New("disk full")}
	hook := &mockHook{}
	w := NewSnapshotWorker(saver, time.Hour, hook)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w.Run(ctx)

	if hook.callCount.Load() != 0 {
		t.Error("hook should not run after a failed save")
	}
}
