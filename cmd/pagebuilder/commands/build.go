package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/pagebuilder/internal/build"
	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/pipeline"
	"git.home.luguber.info/inful/pagebuilder/internal/watch"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output  string `short:"o" help:"Override build.output"`
	Workers int    `short:"w" help:"Override build.workers"`
	Drafts  bool   `help:"Include drafts"`
	Watch   bool   `help:"Rebuild when content changes"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	b.apply(cfg)

	ctx, cancel := interruptContext()
	defer cancel()

	r := newRunner(cfg)
	if !b.Watch {
		return r.run(ctx, g.out(), build.Request{Config: cfg})
	}

	if err := r.run(ctx, g.out(), build.Request{Config: cfg}); err != nil {
		slog.Warn("Initial build failed; watching for changes", logfields.Error(err))
	}
	ignore := []string{cfg.Build.Output}
	if cfg.Metrics.Textfile != "" {
		ignore = append(ignore, cfg.Metrics.Textfile)
	}
	w, err := watch.New(cfg.Content.Root, watch.WithIgnore(ignore...))
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	slog.Info("Watching for changes", logfields.Path(cfg.Content.Root))
	return w.Run(ctx, func(ctx context.Context) {
		if err := r.run(ctx, g.out(), build.Request{Config: cfg}); err != nil {
			slog.Warn("Rebuild failed", logfields.Error(err))
		}
	})
}

func (b *BuildCmd) apply(cfg *config.Config) {
	if b.Output != "" {
		cfg.Build.Output = b.Output
	}
	if b.Workers > 0 {
		cfg.Build.Workers = b.Workers
	}
	if b.Drafts {
		cfg.Content.IncludeDrafts = true
	}
}

// runner wires a build service to the configured metrics and logging.
type runner struct {
	cfg      *config.Config
	service  *build.Service
	recorder *metrics.PrometheusRecorder
}

func newRunner(cfg *config.Config) *runner {
	r := &runner{cfg: cfg}

	bus := pipeline.NewBus()
	bus.Subscribe(pipeline.EventDocumentFailed, logDocumentFailed)

	r.service = build.NewService().WithBus(bus)
	if cfg.Metrics.Textfile != "" {
		r.recorder = metrics.NewPrometheusRecorder(nil)
		r.service.WithRecorder(r.recorder)
	}
	return r
}

// run performs one build, prints its summary and writes the metrics
// textfile. The returned error covers aborted builds and failed documents.
func (r *runner) run(ctx context.Context, out io.Writer, req build.Request) error {
	res, err := r.service.Run(ctx, req)
	r.writeMetrics()
	if err != nil {
		return err
	}
	printSummary(out, res)
	return res.Err()
}

func (r *runner) writeMetrics() {
	if r.recorder == nil {
		return
	}
	path := r.cfg.Metrics.Textfile
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		slog.Warn("Failed to create metrics directory", logfields.Path(path), logfields.Error(err))
		return
	}
	if err := r.recorder.WriteTextfile(path); err != nil {
		slog.Warn("Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
	}
}

func logDocumentFailed(e pipeline.Event) error {
	failed, ok := e.(pipeline.DocumentFailed)
	if !ok {
		return nil
	}
	attrs := []any{
		logfields.BuildID(failed.BuildID),
		logfields.Path(failed.Err.Path()),
		logfields.Kind(failed.Err.Kind()),
	}
	if line := failed.Err.Line(); line > 0 {
		attrs = append(attrs, logfields.Line(line))
	}
	slog.Error(failed.Err.Message(), attrs...)
	return nil
}

func printSummary(out io.Writer, res *build.Result) {
	report := res.Report
	_, _ = fmt.Fprintf(out, "Build %s: %d page(s), %d error(s), %d warning(s), %d draft(s) skipped in %s\n",
		res.Status, len(report.Pages), len(report.Errors), len(report.Warnings), report.Skipped, res.Duration.Round(time.Millisecond))
	if p := res.Published; p != nil {
		_, _ = fmt.Fprintf(out, "Published to %s: %d written, %d unchanged, %d removed\n",
			res.OutputPath, len(p.Written), len(p.Unchanged), len(p.Removed))
	}
}
