package page

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iedon/gitpages/config"
)

// Index file names probed for a folder request, in order.
var indexNames = [...]string{
	"index.html",
	"index.htm",
	"default.html",
	"default.htm",
	"home.html",
	"home.htm",
}

// Page owns one configured page: its immutable configuration, the
// currently published snapshot and the sync bookkeeping around it.
//
// Request handlers only ever touch the snapshot pointer, so serving is
// wait-free and completely decoupled from sync activity: a reader sees
// either the full previous snapshot or the full next one.
type Page struct {
	cfg  config.PageConfig
	snap atomic.Pointer[Snapshot]

	syncing atomic.Bool

	mu       sync.Mutex
	lastSync time.Time
	lastErr  error
}

// New creates a page serving the empty snapshot until its first
// successful sync.
func New(cfg config.PageConfig) *Page {
	p := &Page{cfg: cfg}
	p.snap.Store(emptySnapshot)
	return p
}

// Config returns the page configuration.
func (p *Page) Config() config.PageConfig {
	return p.cfg
}

// Prefix returns the URL prefix the page is mounted on.
func (p *Page) Prefix() string {
	return p.cfg.Prefix
}

// Snapshot returns the currently published snapshot. Never nil and never
// partially updated.
func (p *Page) Snapshot() *Snapshot {
	return p.snap.Load()
}

// TryBeginSync claims the per-page sync slot. It returns false when a
// sync is already running; at most one sync per page is ever in flight
// no matter how many triggers fire.
func (p *Page) TryBeginSync() bool {
	return p.syncing.CompareAndSwap(false, true)
}

// EndSync publishes the outcome of a sync started with TryBeginSync.
// A non-nil snapshot with a nil error replaces the published snapshot in
// one atomic swap. A nil snapshot with a nil error records success
// without replacing anything (content unchanged). On error the previous
// snapshot stays untouched and only the diagnostics are updated.
func (p *Page) EndSync(snap *Snapshot, err error) {
	if err == nil && snap != nil {
		p.snap.Store(snap)
	}
	p.mu.Lock()
	p.lastSync = time.Now()
	p.lastErr = err
	p.mu.Unlock()
	p.syncing.Store(false)
}

// LastSync reports when the last sync attempt finished and how it went.
func (p *Page) LastSync() (time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSync, p.lastErr
}

// Find resolves a request path relative to the page prefix against the
// current snapshot. Folder requests (trailing slash or the page root)
// probe the auto-index names first when enabled.
func (p *Page) Find(rel string) (*File, bool) {
	snap := p.Snapshot()
	if p.cfg.AutoIndex && isFolder(rel) {
		for _, name := range indexNames {
			if f := snap.File(rel + name); f != nil {
				return f, true
			}
		}
	}
	if f := snap.File(rel); f != nil {
		return f, true
	}
	return nil, false
}

func isFolder(rel string) bool {
	return rel == "" || strings.HasSuffix(rel, "/")
}
