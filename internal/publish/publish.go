// Package publish writes a rendered batch to disk as a static site: one
// index.html per page plus a manifest.json describing the build.
package publish

import (
	"bytes"
	"context"
	"crypto/sha256"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/manifest"
	"git.home.luguber.info/inful/pagebuilder/internal/observability"
	"git.home.luguber.info/inful/pagebuilder/internal/page"
	"git.home.luguber.info/inful/pagebuilder/internal/pipeline"
	"git.home.luguber.info/inful/pagebuilder/internal/posts"
)

//go:embed layout.html.tmpl
var defaultLayout string

// IndexFile is the file written for every page.
const IndexFile = "index.html"

// Writer publishes reports into an output directory.
type Writer struct {
	outDir     string
	layout     *template.Template
	layoutHash string
	now        func() time.Time
}

// Option configures a Writer.
type Option func(*writerConfig)

type writerConfig struct {
	layout string
	now    func() time.Time
}

// WithLayout replaces the built-in page layout with an html/template source.
func WithLayout(src string) Option {
	return func(c *writerConfig) { c.layout = src }
}

// WithClock sets the clock used for manifest timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *writerConfig) { c.now = now }
}

// NewWriter returns a Writer targeting outDir.
func NewWriter(outDir string, opts ...Option) (*Writer, error) {
	if strings.TrimSpace(outDir) == "" {
		return nil, ferrors.ConfigError("output directory is required").Build()
	}
	cfg := writerConfig{layout: defaultLayout, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	tmpl, err := template.New("page").Parse(cfg.layout)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid page layout").Build()
	}
	sum := sha256.Sum256([]byte(cfg.layout))

	return &Writer{
		outDir:     outDir,
		layout:     tmpl,
		layoutHash: fmt.Sprintf("%x", sum),
		now:        cfg.now,
	}, nil
}

// Result lists what a Publish call did, by slug.
type Result struct {
	Written   []string
	Unchanged []string
	Removed   []string
	Manifest  *manifest.BuildManifest
}

// Publish writes every page of report and the build manifest.
//
// A page whose fingerprint equals the one recorded in the previous manifest,
// and whose output file still exists, is left untouched. Changing the layout
// invalidates every page. Outputs of pages that disappeared since the
// previous build are removed.
func (w *Writer) Publish(ctx context.Context, report *pipeline.Report) (*Result, error) {
	if report == nil {
		return nil, ferrors.ValidationError("report is required").Build()
	}
	ctx = observability.WithStage(observability.WithBuildID(ctx, report.BuildID), "publish")

	manifestPath := filepath.Join(w.outDir, manifest.FileName)
	prev, err := manifest.Load(manifestPath)
	if err != nil {
		// A corrupt manifest only costs a full rewrite.
		observability.WarnContext(ctx, "Ignoring unreadable manifest", logfields.Path(manifestPath), logfields.Error(err))
		prev = nil
	}
	var prevFingerprints map[string]string
	if prev != nil && prev.LayoutHash == w.layoutHash {
		prevFingerprints = prev.Fingerprints()
	}

	if err := os.MkdirAll(w.outDir, 0o750); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryPublish, "create output directory").
			WithPath(w.outDir).Build()
	}

	res := &Result{}
	m := &manifest.BuildManifest{
		ID:         report.BuildID,
		Timestamp:  w.now().UTC(),
		Status:     string(report.Outcome()),
		Duration:   report.Duration.Milliseconds(),
		LayoutHash: w.layoutHash,
		Pages:      make([]manifest.PageEntry, 0, len(report.Pages)),
	}

	current := make(map[string]struct{}, len(report.Pages))
	for _, p := range report.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, dup := current[p.Slug]; dup {
			return nil, ferrors.PublishError(fmt.Sprintf("duplicate slug %q", p.Slug)).
				WithPath(p.Path).Build()
		}
		rel := outputPath(p.Slug)
		current[p.Slug] = struct{}{}
		m.Pages = append(m.Pages, pageEntry(p, rel))

		full, err := safeJoin(w.outDir, rel)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryPublish, "invalid output path").
				WithPath(p.Path).Build()
		}
		if fp, ok := prevFingerprints[p.Slug]; ok && fp == p.Fingerprint && fileExists(full) {
			res.Unchanged = append(res.Unchanged, p.Slug)
			continue
		}
		if err := w.writePage(full, p); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryPublish, "write page").
				WithPath(p.Path).Build()
		}
		observability.DebugContext(ctx, "Wrote page", logfields.Path(p.Path), logfields.Slug(p.Slug))
		res.Written = append(res.Written, p.Slug)
	}

	if prev != nil {
		for _, old := range prev.Pages {
			if _, ok := current[old.Slug]; ok {
				continue
			}
			if err := w.removePage(old.Slug); err != nil {
				return nil, ferrors.WrapError(err, ferrors.CategoryPublish, "remove stale page").
					WithPath(old.Path).Build()
			}
			res.Removed = append(res.Removed, old.Slug)
		}
	}

	for _, e := range report.Errors {
		m.Errors = append(m.Errors, manifest.ErrorEntry{
			Path:     e.Path(),
			Category: string(e.Category()),
			Kind:     e.Kind(),
			Line:     e.Line(),
			Message:  e.Error(),
		})
	}
	for _, wn := range report.Warnings {
		m.Warnings = append(m.Warnings, manifest.WarningEntry{Path: wn.Path, Kind: wn.Kind, Message: wn.Message})
	}

	data, err := m.ToJSON()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "encode manifest").Build()
	}
	if err := os.WriteFile(manifestPath, append(data, '\n'), 0o644); err != nil { //nolint:gosec // site output is world-readable
		return nil, ferrors.WrapError(err, ferrors.CategoryPublish, "write manifest").
			WithPath(manifestPath).Build()
	}
	res.Manifest = m

	observability.InfoContext(ctx, "Published site",
		logfields.Output(w.outDir),
		logfields.Count(len(res.Written)),
		slog.Int("unchanged", len(res.Unchanged)),
		slog.Int("removed", len(res.Removed)))
	return res, nil
}

type pageData struct {
	Title      string
	Icon       string
	Date       string
	Tags       []string
	Categories []string
	Content    template.HTML
}

func (w *Writer) writePage(full string, p *page.Page) error {
	data := pageData{
		Title:      p.Title,
		Icon:       p.Icon,
		Date:       formatDate(p.Date),
		Tags:       p.Tags.Values(),
		Categories: p.Categories.Values(),
		// The renderer has already applied the HTML policy.
		Content: template.HTML(p.HTML), //nolint:gosec // policy-checked markdown output
	}

	var buf bytes.Buffer
	if err := w.layout.Execute(&buf, data); err != nil {
		return fmt.Errorf("execute layout: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("create page directory: %w", err)
	}
	if err := os.WriteFile(full, buf.Bytes(), 0o644); err != nil { //nolint:gosec // site output is world-readable
		return fmt.Errorf("write %s: %w", full, err)
	}
	return nil
}

// removePage deletes a stale index.html and its directory when that leaves
// it empty.
func (w *Writer) removePage(slug string) error {
	full, err := safeJoin(w.outDir, outputPath(slug))
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if slug == "" {
		return nil
	}
	// Fails harmlessly when the directory still holds nested pages.
	_ = os.Remove(filepath.Dir(full))
	return nil
}

func pageEntry(p *page.Page, rel string) manifest.PageEntry {
	return manifest.PageEntry{
		Path:        p.Path,
		Slug:        p.Slug,
		Title:       p.Title,
		Order:       p.Order,
		Date:        formatDate(p.Date),
		Tags:        p.Tags.Values(),
		Categories:  p.Categories.Values(),
		Fingerprint: p.Fingerprint,
		Output:      rel,
		Links:       linkDestinations(p),
	}
}

func linkDestinations(p *page.Page) []string {
	if len(p.Links) == 0 {
		return nil
	}
	out := make([]string, 0, len(p.Links))
	for _, l := range p.Links {
		out = append(out, l.Destination)
	}
	return out
}

// outputPath maps a slug to its slash-separated output path. The root slug
// publishes to the site index.
func outputPath(slug string) string {
	if slug == "" {
		return IndexFile
	}
	return path.Join(slug, IndexFile)
}

func safeJoin(root, rel string) (string, error) {
	cleanRel := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleanRel) || strings.HasPrefix(cleanRel, "..") {
		return "", fmt.Errorf("output path %q must be relative", rel)
	}
	full := filepath.Join(root, cleanRel)
	r, err := filepath.Rel(root, full)
	if err != nil || strings.HasPrefix(r, "..") {
		return "", fmt.Errorf("output path %q escapes output directory", rel)
	}
	return full, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(posts.DateLayout)
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
