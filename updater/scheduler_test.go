package updater

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iedon/gitpages/config"
	"github.com/iedon/gitpages/gitutil"
	"github.com/iedon/gitpages/page"
)

type stubSyncer struct {
	mu    sync.Mutex
	calls int
	snap  *page.Snapshot
	err   error
}

func (s *stubSyncer) Sync(ctx context.Context, p *page.Page) (*page.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.snap, s.err
}

func (s *stubSyncer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// blockingSyncer parks inside Sync until released.
type blockingSyncer struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (s *blockingSyncer) Sync(ctx context.Context, p *page.Page) (*page.Snapshot, error) {
	s.calls.Add(1)
	s.started <- struct{}{}
	<-s.release
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPages(t *testing.T, prefixes ...string) *page.Set {
	t.Helper()
	cfgs := make([]config.PageConfig, 0, len(prefixes))
	for _, prefix := range prefixes {
		cfgs = append(cfgs, config.PageConfig{Repo: "https://git.example.com/r.git", Prefix: prefix})
	}
	set, err := page.NewSet(cfgs)
	require.NoError(t, err)
	return set
}

func TestRequestSyncPublishesSnapshot(t *testing.T) {
	pages := testPages(t, "/")
	p := pages.All()[0]

	snap := page.NewSnapshot("c1", []gitutil.File{{Path: "a.txt", Hash: "a1", Data: []byte("a")}})
	syncer := &stubSyncer{snap: snap}
	sched := New(pages, syncer, testLogger(), 0, time.Second)

	require.NoError(t, sched.RequestSync(context.Background(), p))
	assert.Same(t, snap, p.Snapshot())
	assert.Equal(t, 1, syncer.callCount())
}

func TestRequestSyncFailureRetainsSnapshot(t *testing.T) {
	pages := testPages(t, "/")
	p := pages.All()[0]

	good := page.NewSnapshot("c1", []gitutil.File{{Path: "a.txt", Hash: "a1", Data: []byte("a")}})
	syncer := &stubSyncer{snap: good}
	sched := New(pages, syncer, testLogger(), 0, time.Second)
	require.NoError(t, sched.RequestSync(context.Background(), p))

	syncer.mu.Lock()
	syncer.snap = nil
	syncer.err = errors.New("remote unreachable")
	syncer.mu.Unlock()

	err := sched.RequestSync(context.Background(), p)
	require.Error(t, err)
	assert.Same(t, good, p.Snapshot(), "failed sync must not touch the published snapshot")

	_, lastErr := p.LastSync()
	assert.Error(t, lastErr)
}

func TestRequestSyncOverlapSuppression(t *testing.T) {
	pages := testPages(t, "/")
	p := pages.All()[0]

	syncer := &blockingSyncer{started: make(chan struct{}), release: make(chan struct{})}
	sched := New(pages, syncer, testLogger(), 0, time.Second)

	done := make(chan error, 1)
	go func() {
		done <- sched.RequestSync(context.Background(), p)
	}()
	<-syncer.started

	// While the first sync runs every further trigger is a no-op.
	assert.ErrorIs(t, sched.RequestSync(context.Background(), p), ErrSyncInProgress)
	assert.ErrorIs(t, sched.RequestSync(context.Background(), p), ErrSyncInProgress)

	close(syncer.release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), syncer.calls.Load(), "exactly one adapter invocation")

	// The slot is free again afterwards.
	go func() {
		done <- sched.RequestSync(context.Background(), p)
	}()
	<-syncer.started
	require.NoError(t, <-done)
}

func TestSyncAllCoversEveryPage(t *testing.T) {
	pages := testPages(t, "/a/", "/b/", "/c/")
	syncer := &stubSyncer{}
	sched := New(pages, syncer, testLogger(), 0, time.Second)

	sched.SyncAll(context.Background())
	assert.Equal(t, 3, syncer.callCount())

	for _, p := range pages.All() {
		when, err := p.LastSync()
		assert.NoError(t, err)
		assert.False(t, when.IsZero())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	pages := testPages(t, "/")
	syncer := &stubSyncer{}
	sched := New(pages, syncer, testLogger(), time.Hour, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(stopped)
	}()

	// Run performs one startup pass before waiting on the ticker.
	require.Eventually(t, func() bool { return syncer.callCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
