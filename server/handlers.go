package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/iedon/gitpages/page"
	"github.com/iedon/gitpages/updater"
)

// handleRequest resolves every incoming request: page by longest prefix,
// then update hook, file, directory listing, 404, in that order.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reqPath := sanitizeRequestPath(r.URL.Path)
	pg, rel, ok := s.pages.Find(reqPath)
	if !ok {
		http.NotFound(w, r)
		return
	}

	// The update hook exists only for pages with a configured secret. A
	// wrong secret falls through to the normal lookup so the response is
	// indistinguishable from any other missing path.
	if secret := pg.Config().UpdateSecret; secret != "" {
		if candidate, ok := strings.CutPrefix(rel, "update/"); ok &&
			subtle.ConstantTimeCompare([]byte(candidate), []byte(secret)) == 1 {
			s.handleUpdate(w, r, pg)
			return
		}
	}

	if file, ok := pg.Find(rel); ok {
		s.serveFile(w, r, file)
		return
	}

	if pg.Config().AutoList && (rel == "" || strings.HasSuffix(rel, "/")) {
		if body, ok := pg.ListFolder(reqPath, rel); ok {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			if r.Method == http.MethodHead {
				return
			}
			_, _ = w.Write(body)
			return
		}
	}

	http.NotFound(w, r)
}

// serveFile writes a snapshot entry with cache validation. The ETag is
// the git blob hash, so identical content yields identical ETags across
// pages and syncs.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, file *page.File) {
	w.Header().Set("ETag", `"`+file.Hash+`"`)
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, file.Hash) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", file.MediaType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(file.Data)
}

// handleUpdate runs a synchronous sync for the page, bounded by the
// configured timeout. A sync already in flight covers the request.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, pg *page.Page) {
	ctx := r.Context()
	if timeout := s.sched.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := s.sched.RequestSync(ctx, pg)
	switch {
	case errors.Is(err, updater.ErrSyncInProgress):
		writeJSON(w, http.StatusOK, map[string]string{"status": "in progress"})
	case err != nil:
		writeError(w, http.StatusInternalServerError, "update failed")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

// etagMatches reports whether an If-None-Match header value matches the
// given blob hash. Quoted, bare and weak forms are accepted.
func etagMatches(header, hash string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		candidate = strings.TrimPrefix(candidate, "W/")
		candidate = strings.Trim(candidate, `"`)
		if candidate == hash {
			return true
		}
	}
	return false
}

// sanitizeRequestPath cleans the request path while preserving the
// trailing slash, which is significant for index and listing resolution.
func sanitizeRequestPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	trailing := strings.HasSuffix(p, "/")
	clean := path.Clean(p)
	if clean == "/" || clean == "." {
		return "/"
	}
	if trailing {
		clean += "/"
	}
	return clean
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": message})
}
