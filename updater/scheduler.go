package updater

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/iedon/gitpages/page"
)

// ErrSyncInProgress is returned by RequestSync when another sync for the
// same page is already running. Callers treat it as success: the running
// sync covers the request.
var ErrSyncInProgress = errors.New("sync already in progress")

// Syncer produces a fresh snapshot for a page, or nil when the published
// content is already current.
type Syncer interface {
	Sync(ctx context.Context, p *page.Page) (*page.Snapshot, error)
}

// Scheduler reconciles the two update triggers, the global interval
// ticker and per-page webhooks, into one serialized sync path per page.
type Scheduler struct {
	pages    *page.Set
	syncer   Syncer
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// New constructs a scheduler. interval drives the background ticker,
// timeout bounds webhook-triggered syncs.
func New(pages *page.Set, syncer Syncer, logger *slog.Logger, interval, timeout time.Duration) *Scheduler {
	return &Scheduler{
		pages:    pages,
		syncer:   syncer,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
	}
}

// Timeout returns the budget for a synchronous, webhook-triggered sync.
func (s *Scheduler) Timeout() time.Duration {
	return s.timeout
}

// Run syncs all pages once, then again on every interval tick until the
// context is cancelled. Sync failures are logged, never fatal: a page
// keeps serving its last good snapshot.
func (s *Scheduler) Run(ctx context.Context) {
	s.SyncAll(ctx)
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncAll(ctx)
		}
	}
}

// SyncAll requests a sync for every page, in parallel across pages, and
// waits for all of them to finish.
func (s *Scheduler) SyncAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, p := range s.pages.All() {
		wg.Add(1)
		go func(p *page.Page) {
			defer wg.Done()
			_ = s.RequestSync(ctx, p)
		}(p)
	}
	wg.Wait()
}

// RequestSync is the single entry point both triggers share. The per-page
// in-progress flag makes it idempotent under concurrency: exactly one
// caller runs the sync, everyone else gets ErrSyncInProgress.
func (s *Scheduler) RequestSync(ctx context.Context, p *page.Page) error {
	if !p.TryBeginSync() {
		return ErrSyncInProgress
	}

	start := time.Now()
	snap, err := s.syncer.Sync(ctx, p)
	p.EndSync(snap, err)
	duration := time.Since(start)

	if err != nil {
		s.logger.Warn("sync failed", "page", p.Prefix(), "error", err, "duration", duration)
		return err
	}
	if snap == nil {
		s.logger.Debug("sync unchanged", "page", p.Prefix(), "duration", duration)
		return nil
	}
	s.logger.Info("sync completed",
		"page", p.Prefix(),
		"commit", snap.CommitHash(),
		"files", snap.Len(),
		"bytes", snap.TotalBytes(),
		"duration", duration,
	)
	return nil
}
