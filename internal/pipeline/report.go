package pipeline

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/page"
)

// WarningUnusedFootnote is the kind of warning emitted for footnote
// definitions that nothing references.
const WarningUnusedFootnote = "unused_footnote"

// Warning is a non-fatal finding about a rendered page.
type Warning struct {
	Path    string
	Kind    string
	Message string
}

// Report is the result of one batch: the rendered pages and every
// per-document error. Deciding whether an error fails the build is up to the
// caller.
type Report struct {
	BuildID   string
	Pages     []*page.Page
	Errors    []*ferrors.ClassifiedError
	Warnings  []Warning
	Documents int
	// Skipped counts drafts left out of the batch.
	Skipped  int
	Duration time.Duration
}

// Failed reports whether any document failed.
func (r *Report) Failed() bool { return len(r.Errors) > 0 }

// Outcome summarizes the report for metrics.
func (r *Report) Outcome() metrics.BuildOutcomeLabel {
	switch {
	case r.Failed():
		return metrics.BuildOutcomeFailed
	case len(r.Warnings) > 0:
		return metrics.BuildOutcomeWarning
	default:
		return metrics.BuildOutcomeSuccess
	}
}

// dropDuplicateSlugs keeps, for every slug, the page with the smallest path
// and records the other pages claiming it as errors.
func (r *Report) dropDuplicateSlugs() {
	slices.SortFunc(r.Pages, func(a, b *page.Page) int { return cmp.Compare(a.Path, b.Path) })
	owner := make(map[string]string, len(r.Pages))
	kept := r.Pages[:0]
	for _, p := range r.Pages {
		if first, taken := owner[p.Slug]; taken {
			r.Errors = append(r.Errors, ferrors.RenderError(fmt.Sprintf("slug %q is already used by %s", p.Slug, first)).
				WithPath(p.Path).
				WithKind(KindDuplicateSlug).
				Build())
			continue
		}
		owner[p.Slug] = p.Path
		kept = append(kept, p)
	}
	r.Pages = kept
}

// sort puts pages in page.Sort order and errors and warnings in path order.
func (r *Report) sort() {
	page.Sort(r.Pages)
	slices.SortStableFunc(r.Errors, func(a, b *ferrors.ClassifiedError) int {
		return cmp.Or(cmp.Compare(a.Path(), b.Path()), cmp.Compare(a.Kind(), b.Kind()))
	})
	slices.SortStableFunc(r.Warnings, func(a, b Warning) int {
		return cmp.Or(cmp.Compare(a.Path, b.Path), cmp.Compare(a.Message, b.Message))
	})
}
