package build

import (
	"context"
	"fmt"
	"os"
	"time"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/loader"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/observability"
	"git.home.luguber.info/inful/pagebuilder/internal/pipeline"
	"git.home.luguber.info/inful/pagebuilder/internal/publish"
)

// StagePublish is the metrics stage name for writing the site.
const StagePublish = "publish"

// Request contains all inputs required to execute a build.
type Request struct {
	Config *config.Config
	// DryRun renders and reports without writing the site.
	DryRun bool
}

// Result contains the outcome of a build execution.
type Result struct {
	Status Status
	// Report is nil when the batch was aborted.
	Report    *pipeline.Report
	Published *publish.Result

	OutputPath string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

// Err returns a classified error when any document failed, nil otherwise.
func (r *Result) Err() error {
	if r.Report == nil || !r.Report.Failed() {
		return nil
	}
	first := r.Report.Errors[0]
	return ferrors.NewError(first.Category(), fmt.Sprintf("%d document(s) failed", len(r.Report.Errors))).
		UserAction().
		WithCause(first).
		Build()
}

// Status represents the outcome of a build execution.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// IsSuccess reports whether every document built.
func (s Status) IsSuccess() bool { return s == StatusSuccess }

// Service executes builds.
type Service struct {
	recorder metrics.Recorder
	bus      *pipeline.Bus
	buildID  func() string
}

// NewService creates a Service with a no-op recorder and no event bus.
func NewService() *Service {
	return &Service{recorder: metrics.NoopRecorder{}}
}

// WithRecorder sets the metrics recorder.
func (s *Service) WithRecorder(r metrics.Recorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithBus publishes pipeline events on b.
func (s *Service) WithBus(b *pipeline.Bus) *Service {
	s.bus = b
	return s
}

// WithBuildIDFunc overrides build id generation (for testing).
func (s *Service) WithBuildIDFunc(fn func() string) *Service {
	s.buildID = fn
	return s
}

// Run renders every document and, unless DryRun is set, publishes the
// result. Per-document failures leave the returned error nil; inspect
// Result.Status or Result.Err. A non-nil error means the build was aborted.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	result := &Result{StartTime: start}
	finish := func(status Status) *Result {
		result.Status = status
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(start)
		return result
	}

	cfg := req.Config
	if cfg == nil {
		return finish(StatusFailed), ferrors.ConfigError("config required").Build()
	}
	result.OutputPath = cfg.Build.Output

	opts := []pipeline.Option{
		pipeline.WithWorkers(cfg.Build.Workers),
		pipeline.WithRecorder(s.recorder),
		pipeline.WithBus(s.bus),
		pipeline.WithDrafts(cfg.Content.IncludeDrafts),
		pipeline.WithBuildIDFunc(s.buildID),
	}
	p := pipeline.New(loader.New(cfg.LoaderConfig()), pipeline.NewRenderer(cfg.MarkdownOptions()), opts...)

	report, err := p.Run(ctx)
	if err != nil {
		if ferrors.HasCategory(err, ferrors.CategoryCanceled) {
			return finish(StatusCanceled), err
		}
		return finish(StatusFailed), err
	}
	result.Report = report
	ctx = observability.WithBuildID(ctx, report.BuildID)

	if !req.DryRun {
		published, err := s.publish(ctx, cfg, report)
		if err != nil {
			return finish(StatusFailed), err
		}
		result.Published = published
	}

	if report.Failed() {
		return finish(StatusFailed), nil
	}
	return finish(StatusSuccess), nil
}

func (s *Service) publish(ctx context.Context, cfg *config.Config, report *pipeline.Report) (*publish.Result, error) {
	ctx = observability.WithStage(ctx, StagePublish)
	t := time.Now()

	res, err := writeSite(ctx, cfg, report)
	s.recorder.ObserveStageDuration(StagePublish, time.Since(t))
	if err != nil {
		s.recorder.IncStageResult(StagePublish, metrics.ResultFailed)
		observability.ErrorContext(ctx, "Publish failed", logfields.Output(cfg.Build.Output), logfields.Error(err))
		return nil, err
	}
	s.recorder.IncStageResult(StagePublish, metrics.ResultSuccess)
	return res, nil
}

func writeSite(ctx context.Context, cfg *config.Config, report *pipeline.Report) (*publish.Result, error) {
	var opts []publish.Option
	if cfg.Build.Layout != "" {
		layout, err := os.ReadFile(cfg.Build.Layout)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "read layout").
				WithPath(cfg.Build.Layout).Build()
		}
		opts = append(opts, publish.WithLayout(string(layout)))
	}

	w, err := publish.NewWriter(cfg.Build.Output, opts...)
	if err != nil {
		return nil, err
	}
	return w.Publish(ctx, report)
}
