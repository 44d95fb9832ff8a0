package gitutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrTooLarge indicates the checkout exceeds the configured byte limit.
var ErrTooLarge = errors.New("checkout exceeds configured byte limit")

// ErrRefNotFound indicates the configured ref does not exist in the remote.
var ErrRefNotFound = errors.New("git ref not found")

// Repository reads the content of one remote repository+ref+subfolder
// through a transient bare clone. It never serves from disk: the clone is
// only a transfer area, content is handed out as in-memory checkouts.
type Repository struct {
	URL       string
	Ref       string
	Subfolder string
	MaxBytes  int64
	Dir       string

	// Depth limits history transfer. Defaults to 1 (shallow).
	Depth int

	mu sync.Mutex
}

// File is one regular file read from a commit tree.
type File struct {
	Path string
	Hash string
	Data []byte
}

// Checkout is the complete content of one commit, scoped to the subfolder.
type Checkout struct {
	CommitHash string
	Files      []File
}

// NewRepository constructs an adapter for one page. No network activity
// happens until the first Sync.
func NewRepository(url, ref, subfolder, dir string, maxBytes int64) *Repository {
	return &Repository{
		URL:       url,
		Ref:       ref,
		Subfolder: subfolder,
		MaxBytes:  maxBytes,
		Dir:       dir,
		Depth:     1,
	}
}

// Sync brings the local clone up to date with the remote ref and returns
// the full file content behind the resolved commit. The first call clones
// shallowly, later calls fetch. Errors never leave partial results: the
// caller either gets a complete checkout or nothing.
func (r *Repository) Sync(ctx context.Context) (*Checkout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	repo, err := git.PlainOpen(r.Dir)
	if err != nil {
		if !errors.Is(err, git.ErrRepositoryNotExists) {
			// Unreadable or corrupt working area, start over.
			_ = os.RemoveAll(r.Dir)
		}
		repo, err = r.clone(ctx)
		if err != nil {
			return nil, err
		}
	} else if err := r.fetch(ctx, repo); err != nil {
		return nil, err
	}

	commit, err := r.resolveCommit(repo)
	if err != nil {
		return nil, err
	}

	return r.collect(commit)
}

func (r *Repository) clone(ctx context.Context) (*git.Repository, error) {
	// A named ref may be a branch or a tag; try both, branch first.
	refNames := []plumbing.ReferenceName{""}
	if r.Ref != "" {
		refNames = []plumbing.ReferenceName{
			plumbing.NewBranchReferenceName(r.Ref),
			plumbing.NewTagReferenceName(r.Ref),
		}
	}

	var lastErr error
	for _, name := range refNames {
		opts := &git.CloneOptions{
			URL:          r.URL,
			RemoteName:   git.DefaultRemoteName,
			Depth:        r.Depth,
			SingleBranch: true,
			Tags:         git.NoTags,
		}
		if name != "" {
			opts.ReferenceName = name
		}
		repo, err := git.PlainCloneContext(ctx, r.Dir, true, opts)
		if err == nil {
			return repo, nil
		}
		lastErr = err
		// A failed clone may leave a partial directory behind.
		_ = os.RemoveAll(r.Dir)
	}

	if r.Ref != "" && isMissingRef(lastErr) {
		return nil, fmt.Errorf("%w: %s", ErrRefNotFound, r.Ref)
	}
	return nil, fmt.Errorf("clone %s: %w", r.URL, lastErr)
}

func (r *Repository) fetch(ctx context.Context, repo *git.Repository) error {
	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: git.DefaultRemoteName,
		Depth:      r.Depth,
		Force:      true,
		Tags:       git.NoTags,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch %s: %w", r.URL, err)
	}
	return nil
}

// resolveCommit finds the commit behind the configured ref, or the
// remote default branch when no ref is set. Remote-tracking refs are
// consulted first: fetch only advances those, the local refs written by
// the initial clone never move again.
func (r *Repository) resolveCommit(repo *git.Repository) (*object.Commit, error) {
	name := r.Ref
	if name == "" {
		head, err := repo.Reference(plumbing.HEAD, false)
		if err != nil {
			return nil, fmt.Errorf("resolve HEAD: %w", err)
		}
		if head.Type() != plumbing.SymbolicReference {
			commit, err := repo.CommitObject(head.Hash())
			if err != nil {
				return nil, fmt.Errorf("read HEAD commit: %w", err)
			}
			return commit, nil
		}
		name = head.Target().Short()
	}

	for _, refName := range []plumbing.ReferenceName{
		plumbing.NewRemoteReferenceName(git.DefaultRemoteName, name),
		plumbing.NewBranchReferenceName(name),
		plumbing.NewTagReferenceName(name),
	} {
		ref, err := repo.Reference(refName, true)
		if err != nil {
			continue
		}
		if commit, err := repo.CommitObject(ref.Hash()); err == nil {
			return commit, nil
		}
		// Annotated tags need one more hop.
		if tag, err := repo.TagObject(ref.Hash()); err == nil {
			if commit, err := tag.Commit(); err == nil {
				return commit, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRefNotFound, name)
}

// collect walks the commit tree under the configured subfolder and reads
// every blob. The byte budget is checked while walking so an oversized
// checkout aborts before any content is returned.
func (r *Repository) collect(commit *object.Commit) (*Checkout, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read commit tree: %w", err)
	}

	if sub := strings.Trim(path.Clean("/"+r.Subfolder), "/"); sub != "" {
		tree, err = tree.Tree(sub)
		if err != nil {
			return nil, fmt.Errorf("subfolder %s: %w", sub, err)
		}
	}

	var files []File
	var total int64
	err = tree.Files().ForEach(func(f *object.File) error {
		if r.MaxBytes > 0 {
			total += f.Size
			if total > r.MaxBytes {
				return ErrTooLarge
			}
		}
		content, err := f.Contents()
		if err != nil {
			return fmt.Errorf("read blob %s: %w", f.Name, err)
		}
		files = append(files, File{
			Path: f.Name,
			Hash: f.Hash.String(),
			Data: []byte(content),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, fmt.Errorf("%w (limit %d bytes)", ErrTooLarge, r.MaxBytes)
		}
		return nil, fmt.Errorf("walk tree: %w", err)
	}

	return &Checkout{CommitHash: commit.Hash.String(), Files: files}, nil
}

func isMissingRef(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "reference not found") ||
		strings.Contains(msg, "couldn't find remote ref")
}
