package page

import (
	"golang.org/x/text/unicode/norm"

	"github.com/iedon/gitpages/gitutil"
)

// File is one served file: raw bytes plus the metadata needed to answer
// an HTTP request without touching anything else.
type File struct {
	Data      []byte
	Hash      string
	Size      int64
	MediaType string
}

// Snapshot is the complete, immutable set of files served for a page. It
// is built once per successful sync and then only ever read; a page swaps
// whole snapshots, never entries.
type Snapshot struct {
	commitHash string
	files      map[string]*File
	totalBytes int64
}

var emptySnapshot = &Snapshot{files: map[string]*File{}}

// NewSnapshot builds a snapshot from a git checkout. Keys are the
// slash-separated paths relative to the page root, NFC-normalized so
// content committed from NFD filesystems still matches request URLs.
func NewSnapshot(commitHash string, files []gitutil.File) *Snapshot {
	s := &Snapshot{
		commitHash: commitHash,
		files:      make(map[string]*File, len(files)),
	}
	for i := range files {
		f := &files[i]
		size := int64(len(f.Data))
		s.files[normalizePath(f.Path)] = &File{
			Data:      f.Data,
			Hash:      f.Hash,
			Size:      size,
			MediaType: mediaTypeFromPath(f.Path),
		}
		s.totalBytes += size
	}
	return s
}

// File returns the entry for a relative path, or nil.
func (s *Snapshot) File(rel string) *File {
	return s.files[normalizePath(rel)]
}

// CommitHash returns the commit this snapshot was built from. Empty for
// the snapshot served before the first successful sync.
func (s *Snapshot) CommitHash() string {
	return s.commitHash
}

// Len returns the number of files in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.files)
}

// TotalBytes returns the summed content size of all files.
func (s *Snapshot) TotalBytes() int64 {
	return s.totalBytes
}

func normalizePath(p string) string {
	return norm.NFC.String(p)
}
