package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// BuildOutcomeLabel is the final status of a batch build.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeWarning  BuildOutcomeLabel = "warning"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for build, stage and document metrics.
// Implementations must be safe for concurrent use; stage hooks are called from
// pipeline workers.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	IncDocumentError(kind string)
	SetPagesRendered(n int)
	SetWorkers(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) IncDocumentError(string)                    {}
func (NoopRecorder) SetPagesRendered(int)                       {}
func (NoopRecorder) SetWorkers(int)                             {}
