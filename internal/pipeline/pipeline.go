// Package pipeline renders a batch of documents: Loader → front matter
// parser → Renderer, in a bounded worker pool with per-document failures
// collected into a Report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"git.home.luguber.info/inful/pagebuilder/internal/docmodel"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/loader"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/observability"
	"git.home.luguber.info/inful/pagebuilder/internal/page"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Stage names used for logging and metrics.
const (
	StageLoad   = "load"
	StageParse  = "parse"
	StageRender = "render"
)

// Pipeline runs batches. It may be reused; each Run is independent.
type Pipeline struct {
	loader        *loader.Loader
	renderer      *Renderer
	recorder      metrics.Recorder
	bus           *Bus
	workers       int
	includeDrafts bool
	newBuildID    func() string
}

// Option configures pipeline behavior.
type Option func(*Pipeline)

// WithWorkers bounds the number of documents processed concurrently.
// Values below 1 mean runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		p.workers = n
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithBus publishes pipeline events on b.
func WithBus(b *Bus) Option {
	return func(p *Pipeline) {
		p.bus = b
	}
}

// WithDrafts keeps pages whose front matter sets `draft: true`.
func WithDrafts(include bool) Option {
	return func(p *Pipeline) {
		p.includeDrafts = include
	}
}

// WithBuildIDFunc overrides build id generation.
func WithBuildIDFunc(fn func() string) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.newBuildID = fn
		}
	}
}

// New creates a pipeline reading from l and rendering with r.
func New(l *loader.Loader, r *Renderer, options ...Option) *Pipeline {
	p := &Pipeline{
		loader:     l,
		renderer:   r,
		recorder:   metrics.NoopRecorder{},
		newBuildID: uuid.NewString,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.workers < 1 {
		p.workers = runtime.NumCPU()
	}
	return p
}

// Run processes every discovered document. Per-document load, parse and
// render failures are collected into the report and never stop other
// documents. A discovery failure or cancellation of ctx aborts the batch and
// returns a nil report.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{BuildID: p.newBuildID()}
	ctx = observability.WithBuildID(ctx, report.BuildID)

	observability.InfoContext(ctx, "Build started", logfields.Workers(p.workers))
	p.recorder.SetWorkers(p.workers)
	p.publish(ctx, BuildStarted{BuildID: report.BuildID})

	var mu sync.Mutex
	collect := func(pg *page.Page, err error) {
		mu.Lock()
		defer mu.Unlock()
		report.Documents++
		switch {
		case err != nil:
			report.Errors = append(report.Errors, classify(err))
		case pg == nil:
			report.Skipped++
		default:
			report.Pages = append(report.Pages, pg)
			for _, id := range pg.UnusedFootnotes {
				report.Warnings = append(report.Warnings, Warning{
					Path:    pg.Path,
					Kind:    WarningUnusedFootnote,
					Message: fmt.Sprintf("footnote [^%s] is defined but never referenced", id),
				})
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var abort error
	loadStart := time.Now()
	for doc, err := range p.loader.Documents(gctx) {
		if err != nil {
			if isDocumentError(err) {
				p.observe(gctx, StageLoad, loadStart, err)
				collect(nil, err)
				loadStart = time.Now()
				continue
			}
			abort = err
			break
		}
		p.observe(gctx, StageLoad, loadStart, nil)

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pg, err := p.process(gctx, doc)
			collect(pg, err)
			return nil
		})
		loadStart = time.Now()
	}

	waitErr := g.Wait()
	if abort == nil {
		abort = waitErr
	}
	if abort == nil {
		abort = ctx.Err()
	}
	if abort != nil {
		return nil, p.aborted(ctx, abort, start)
	}

	report.dropDuplicateSlugs()
	report.sort()
	report.Duration = time.Since(start)

	p.recorder.ObserveBuildDuration(report.Duration)
	p.recorder.SetPagesRendered(len(report.Pages))
	p.recorder.IncBuildOutcome(report.Outcome())
	for _, e := range report.Errors {
		p.recorder.IncDocumentError(errorKind(e))
	}

	for _, pg := range report.Pages {
		p.publish(ctx, PageRendered{BuildID: report.BuildID, Page: pg})
	}
	for _, e := range report.Errors {
		p.publish(ctx, DocumentFailed{BuildID: report.BuildID, Err: e})
	}
	p.publish(ctx, BuildCompleted{Report: report})

	observability.InfoContext(ctx, "Build finished",
		logfields.Count(len(report.Pages)),
		slog.Int("errors", len(report.Errors)),
		slog.Int("warnings", len(report.Warnings)),
		logfields.DurationMS(float64(report.Duration.Microseconds())/1000))
	return report, nil
}

// process parses and renders one document. A nil page with a nil error means
// the document is a draft that was left out.
func (p *Pipeline) process(ctx context.Context, doc docmodel.Document) (*page.Page, error) {
	ctx = observability.WithPath(ctx, doc.Path())

	t := time.Now()
	parsed, err := docmodel.Parse(doc)
	p.observe(ctx, StageParse, t, err)
	if err != nil {
		return nil, err
	}

	t = time.Now()
	pg, err := p.renderer.RenderDoc(parsed)
	p.observe(ctx, StageRender, t, err)
	if err != nil {
		return nil, err
	}

	if pg.Draft && !p.includeDrafts {
		observability.DebugContext(ctx, "Skipping draft")
		return nil, nil
	}
	observability.DebugContext(ctx, "Rendered page", logfields.Slug(pg.Slug))
	return pg, nil
}

func (p *Pipeline) observe(ctx context.Context, stage string, start time.Time, err error) {
	p.recorder.ObserveStageDuration(stage, time.Since(start))
	if err == nil {
		p.recorder.IncStageResult(stage, metrics.ResultSuccess)
		return
	}
	p.recorder.IncStageResult(stage, metrics.ResultFailed)
	observability.WarnContext(observability.WithStage(ctx, stage), "Document failed", logfields.Error(err))
}

func (p *Pipeline) aborted(ctx context.Context, err error, start time.Time) error {
	p.recorder.ObserveBuildDuration(time.Since(start))
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		p.recorder.IncBuildOutcome(metrics.BuildOutcomeCanceled)
		observability.WarnContext(ctx, "Build canceled")
		return ferrors.WrapError(err, ferrors.CategoryCanceled, "build canceled").Fatal().Build()
	}
	p.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
	observability.ErrorContext(ctx, "Build aborted", logfields.Error(err))
	if _, ok := ferrors.AsClassified(err); ok {
		return err
	}
	return ferrors.InternalError("build aborted").WithCause(err).Build()
}

func (p *Pipeline) publish(ctx context.Context, e Event) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(e); err != nil {
		observability.WarnContext(ctx, "Event handler failed", slog.String("event", e.Name()), logfields.Error(err))
	}
}

func isDocumentError(err error) bool {
	ce, ok := ferrors.AsClassified(err)
	return ok && ce.IsDocumentScoped()
}

// classify makes sure every collected error is a ClassifiedError.
func classify(err error) *ferrors.ClassifiedError {
	if ce, ok := ferrors.AsClassified(err); ok {
		return ce
	}
	return ferrors.InternalError("unexpected document failure").WithCause(err).Build()
}

func errorKind(e *ferrors.ClassifiedError) string {
	if k := e.Kind(); k != "" {
		return k
	}
	return string(e.Category())
}
