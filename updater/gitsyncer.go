package updater

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/iedon/gitpages/gitutil"
	"github.com/iedon/gitpages/page"
)

// ErrEmptyCheckout indicates a sync produced no files, which would wipe
// the page. The previous snapshot is kept instead.
var ErrEmptyCheckout = errors.New("checkout contains no files")

// GitSyncer is the production Syncer: one gitutil.Repository per page,
// working under a shared temp directory.
type GitSyncer struct {
	tempDir string

	mu    sync.Mutex
	repos map[string]*gitutil.Repository
}

// NewGitSyncer creates a syncer keeping its transient clones under tempDir.
func NewGitSyncer(tempDir string) *GitSyncer {
	return &GitSyncer{
		tempDir: tempDir,
		repos:   make(map[string]*gitutil.Repository),
	}
}

// Sync pulls the page's repository and builds a snapshot. Returns nil
// when the remote commit matches the published snapshot, so unchanged
// content is never rebuilt.
func (g *GitSyncer) Sync(ctx context.Context, p *page.Page) (*page.Snapshot, error) {
	checkout, err := g.repoFor(p).Sync(ctx)
	if err != nil {
		return nil, err
	}
	if current := p.Snapshot(); current.CommitHash() == checkout.CommitHash {
		return nil, nil
	}
	if len(checkout.Files) == 0 {
		return nil, ErrEmptyCheckout
	}
	return page.NewSnapshot(checkout.CommitHash, checkout.Files), nil
}

func (g *GitSyncer) repoFor(p *page.Page) *gitutil.Repository {
	g.mu.Lock()
	defer g.mu.Unlock()

	cfg := p.Config()
	repo, ok := g.repos[cfg.Prefix]
	if !ok {
		dir := filepath.Join(g.tempDir, cfg.WorkdirName())
		repo = gitutil.NewRepository(cfg.Repo, cfg.Ref, cfg.Subfolder, dir, cfg.MaxBytes)
		g.repos[cfg.Prefix] = repo
	}
	return repo
}
