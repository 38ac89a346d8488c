// Package loader discovers content documents under a root directory and reads
// them as docmodel.Document values.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"

	"git.home.luguber.info/inful/pagebuilder/internal/docmodel"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
)

// DraftsDir is skipped during discovery unless drafts are included.
const DraftsDir = "_drafts"

// ErrRootNotDir is returned when the content root is missing or not a directory.
var ErrRootNotDir = errors.New("content root is not a directory")

// Config selects which files are content documents.
type Config struct {
	// Root is the content directory on disk. Ignored by NewFS.
	Root string
	// Dirs restricts discovery to these slash-separated subdirectories of
	// Root. Empty means the whole tree.
	Dirs []string
	// Extensions lists accepted file extensions including the dot. Empty
	// means ".md".
	Extensions    []string
	IncludeDrafts bool
}

func (c Config) extensions() []string {
	if len(c.Extensions) == 0 {
		return []string{".md"}
	}
	out := make([]string, 0, len(c.Extensions))
	for _, ext := range c.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// Loader reads documents from a file system.
type Loader struct {
	fsys fs.FS
	cfg  Config
}

// New returns a loader over cfg.Root on disk.
func New(cfg Config) *Loader {
	return &Loader{fsys: os.DirFS(cfg.Root), cfg: cfg}
}

// NewFS returns a loader over fsys.
func NewFS(fsys fs.FS, cfg Config) *Loader {
	return &Loader{fsys: fsys, cfg: cfg}
}

// Discover lists matching documents as slash-separated paths relative to the
// root, sorted lexicographically. Hidden files and directories are skipped,
// as is `_drafts` unless drafts are included. A subdirectory that cannot be
// read is logged and skipped.
func (l *Loader) Discover(ctx context.Context) ([]string, error) {
	paths, unreadable, err := l.discover(ctx)
	for _, e := range unreadable {
		slog.Warn("Skipping unreadable directory", logfields.Error(e))
	}
	return paths, err
}

// discover walks the configured directories. Unreadable subdirectories are
// returned as LoadErrors, in walk order, instead of failing the walk.
func (l *Loader) discover(ctx context.Context) ([]string, []error, error) {
	roots := l.cfg.Dirs
	if len(roots) == 0 {
		roots = []string{"."}
	}

	exts := l.cfg.extensions()
	seen := make(map[string]struct{})
	var paths []string
	var unreadable []error

	for _, root := range roots {
		root = path.Clean(strings.Trim(root, "/"))
		if root == "" {
			root = "."
		}
		info, err := fs.Stat(l.fsys, root)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && root != "." {
				slog.Warn("Content directory not found", logfields.Path(root))
				continue
			}
			return nil, nil, ferrors.FileSystemError(fmt.Sprintf("stat content root %q", root)).
				WithCause(err).
				WithPath(root).
				Build()
		}
		if !info.IsDir() {
			return nil, nil, ferrors.WrapError(ErrRootNotDir, ferrors.CategoryConfig, "invalid content directory").
				WithPath(root).
				Fatal().
				Build()
		}

		err = fs.WalkDir(l.fsys, root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if p == root || d == nil || !d.IsDir() {
					return err
				}
				unreadable = append(unreadable, ferrors.LoadError("read directory").
					WithCause(err).
					WithPath(p).
					Build())
				return fs.SkipDir
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if p != root && l.skip(d) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !slices.Contains(exts, strings.ToLower(path.Ext(p))) {
				return nil
			}
			if _, dup := seen[p]; !dup {
				seen[p] = struct{}{}
				paths = append(paths, p)
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, nil, err
			}
			return nil, nil, ferrors.FileSystemError(fmt.Sprintf("walk content directory %q", root)).
				WithCause(err).
				WithPath(root).
				Build()
		}
	}

	slices.Sort(paths)
	slog.Debug("Discovered documents", logfields.Count(len(paths)))
	return paths, unreadable, nil
}

func (l *Loader) skip(d fs.DirEntry) bool {
	name := d.Name()
	if strings.HasPrefix(name, ".") {
		return true
	}
	return d.IsDir() && name == DraftsDir && !l.cfg.IncludeDrafts
}

// Load reads one document. Failures are LoadError values carrying the path.
func (l *Loader) Load(ctx context.Context, p string) (docmodel.Document, error) {
	if err := ctx.Err(); err != nil {
		return docmodel.Document{}, err
	}
	data, err := fs.ReadFile(l.fsys, p)
	if err != nil {
		return docmodel.Document{}, ferrors.LoadError("read document").
			WithCause(err).
			WithPath(p).
			Build()
	}
	return docmodel.NewDocument(p, data), nil
}

// Documents discovers and lazily reads documents in path order. An unreadable
// file or subdirectory yields its LoadError and the sequence continues. A
// discovery failure or context cancellation yields one error and ends the
// sequence.
func (l *Loader) Documents(ctx context.Context) iter.Seq2[docmodel.Document, error] {
	return func(yield func(docmodel.Document, error) bool) {
		paths, unreadable, err := l.discover(ctx)
		if err != nil {
			yield(docmodel.Document{}, err)
			return
		}
		for _, e := range unreadable {
			if !yield(docmodel.Document{}, e) {
				return
			}
		}
		for _, p := range paths {
			if err := ctx.Err(); err != nil {
				yield(docmodel.Document{}, err)
				return
			}
			if !yield(l.Load(ctx, p)) {
				return
			}
		}
	}
}
