package pipeline

import (
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/page"
)

// Event is a domain event published by the pipeline and consumed by handlers.
type Event interface{ Name() string }

// Event names used in the pipeline.
const (
	EventBuildStarted   = "BuildStarted"
	EventPageRendered   = "PageRendered"
	EventDocumentFailed = "DocumentFailed"
	EventBuildCompleted = "BuildCompleted"
)

type BuildStarted struct {
	BuildID string
}

func (BuildStarted) Name() string { return EventBuildStarted }

type PageRendered struct {
	BuildID string
	Page    *page.Page
}

func (PageRendered) Name() string { return EventPageRendered }

type DocumentFailed struct {
	BuildID string
	Err     *ferrors.ClassifiedError
}

func (DocumentFailed) Name() string { return EventDocumentFailed }

// BuildCompleted carries the final report of a successful or partially failed
// batch. It is not published when the batch is aborted.
type BuildCompleted struct {
	Report *Report
}

func (BuildCompleted) Name() string { return EventBuildCompleted }
