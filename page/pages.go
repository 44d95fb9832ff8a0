package page

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/iedon/gitpages/config"
)

// ErrNoPages indicates the configuration resolved to an empty page list.
var ErrNoPages = errors.New("no pages configured")

// Set is the routing table: an immutable collection of all configured
// pages, built once at startup.
type Set struct {
	pages []*Page
}

// NewSet builds the page set from resolved configuration. Prefix
// uniqueness is already guaranteed by config validation.
func NewSet(cfgs []config.PageConfig) (*Set, error) {
	if len(cfgs) == 0 {
		return nil, ErrNoPages
	}
	s := &Set{pages: make([]*Page, 0, len(cfgs))}
	for _, cfg := range cfgs {
		s.pages = append(s.pages, New(cfg))
	}
	return s, nil
}

// Find returns the page whose prefix is the longest match for the request
// path, together with the path relative to that prefix.
func (s *Set) Find(requestPath string) (*Page, string, bool) {
	var best *Page
	for _, p := range s.pages {
		if !strings.HasPrefix(requestPath, p.Prefix()) {
			continue
		}
		if best == nil || len(p.Prefix()) > len(best.Prefix()) {
			best = p
		}
	}
	if best == nil {
		return nil, "", false
	}
	return best, strings.TrimPrefix(requestPath, best.Prefix()), true
}

// All returns every page in configuration order.
func (s *Set) All() []*Page {
	return s.pages
}

// Log writes the resolved page table at startup.
func (s *Set) Log(logger *slog.Logger) {
	logger.Info("configured pages", "count", len(s.pages))
	for i, p := range s.pages {
		cfg := p.Config()
		logger.Info("page",
			"index", i,
			"prefix", cfg.Prefix,
			"repo", cfg.Repo,
			"ref", cfg.Ref,
			"subfolder", cfg.Subfolder,
			"autoIndex", cfg.AutoIndex,
			"autoList", cfg.AutoList,
			"maxBytes", cfg.MaxBytes,
			"updateHook", cfg.UpdateSecret != "",
		)
	}
}
