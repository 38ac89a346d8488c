package pipeline

import (
	"context"
	"io/fs"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/pagebuilder/internal/loader"
	"git.home.luguber.info/inful/pagebuilder/internal/markdown"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/page"
	"github.com/stretchr/testify/require"
)

type recordingRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	stages   map[string]map[metrics.ResultLabel]int
	outcomes []metrics.BuildOutcomeLabel
	docErrs  map[string]int
	pages    int
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{
		stages:  map[string]map[metrics.ResultLabel]int{},
		docErrs: map[string]int{},
	}
}

func (r *recordingRecorder) IncStageResult(stage string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stages[stage] == nil {
		r.stages[stage] = map[metrics.ResultLabel]int{}
	}
	r.stages[stage][result]++
}

func (r *recordingRecorder) IncBuildOutcome(o metrics.BuildOutcomeLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recordingRecorder) IncDocumentError(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docErrs[kind]++
}

func (r *recordingRecorder) SetPagesRendered(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = n
}

func siteFS() fstest.MapFS {
	return fstest.MapFS{
		"about.md":                         {Data: []byte(aboutPage)},
		"_posts/2020-01-05-rust-vs-cpp.md": {Data: []byte(formattingPost)},
		"_posts/2020-02-02-dangling.md":    {Data: []byte("Cites[^missing].\n")},
		"broken.md":                        {Data: []byte("---\ntitle: never closed\n")},
		"wip.md":                           {Data: []byte("---\ndraft: true\n---\nlater\n")},
	}
}

func pageAt(r *Report, path string) (*page.Page, bool) {
	for _, p := range r.Pages {
		if p.Path == path {
			return p, true
		}
	}
	return nil, false
}

func newTestPipeline(fsys fstest.MapFS, opts ...Option) *Pipeline {
	opts = append([]Option{WithBuildIDFunc(func() string { return "build-test" })}, opts...)
	return New(loader.NewFS(fsys, loader.Config{}), NewRenderer(markdown.Options{}), opts...)
}

func TestRun_CollectsPagesAndErrors(t *testing.T) {
	rec := newRecordingRecorder()
	report, err := newTestPipeline(siteFS(), WithWorkers(3), WithRecorder(rec)).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, "build-test", report.BuildID)
	require.Equal(t, 5, report.Documents)
	require.Equal(t, 1, report.Skipped)
	require.True(t, report.Failed())
	require.Equal(t, metrics.BuildOutcomeFailed, report.Outcome())
	require.True(t, report.Duration > 0)

	require.Len(t, report.Pages, 2)
	require.Equal(t, "about.md", report.Pages[0].Path)
	require.Equal(t, "_posts/2020-01-05-rust-vs-cpp.md", report.Pages[1].Path)

	require.Len(t, report.Errors, 2)
	require.Equal(t, "_posts/2020-02-02-dangling.md", report.Errors[0].Path())
	require.Equal(t, KindDanglingFootnote, report.Errors[0].Kind())
	require.Equal(t, "broken.md", report.Errors[1].Path())
	require.Equal(t, ferrors.CategoryParse, report.Errors[1].Category())
	require.ErrorIs(t, report.Errors[1], frontmatter.ErrMalformedFrontMatter)

	require.Equal(t, []Warning{{
		Path:    "_posts/2020-01-05-rust-vs-cpp.md",
		Kind:    WarningUnusedFootnote,
		Message: "footnote [^spare] is defined but never referenced",
	}}, report.Warnings)

	_, ok := pageAt(report, "about.md")
	require.True(t, ok)

	require.Equal(t, []metrics.BuildOutcomeLabel{metrics.BuildOutcomeFailed}, rec.outcomes)
	require.Equal(t, 2, rec.pages)
	require.Equal(t, 1, rec.docErrs[KindDanglingFootnote])
	require.Equal(t, 1, rec.docErrs["malformed_front_matter"])
	require.Equal(t, 1, rec.stages[StageParse][metrics.ResultFailed])
	require.Equal(t, 1, rec.stages[StageRender][metrics.ResultFailed])
}

func TestRun_IncludeDrafts(t *testing.T) {
	report, err := newTestPipeline(siteFS(), WithDrafts(true)).Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.Skipped)
	_, ok := pageAt(report, "wip.md")
	require.True(t, ok)
}

func TestRun_DeterministicAcrossWorkerCounts(t *testing.T) {
	single, err := newTestPipeline(siteFS(), WithWorkers(1)).Run(context.Background())
	require.NoError(t, err)
	many, err := newTestPipeline(siteFS(), WithWorkers(16)).Run(context.Background())
	require.NoError(t, err)

	paths := func(r *Report) []string {
		var out []string
		for _, p := range r.Pages {
			out = append(out, p.Path+"#"+p.Fingerprint)
		}
		for _, e := range r.Errors {
			out = append(out, e.Error())
		}
		return out
	}
	require.Equal(t, paths(single), paths(many))
}

func TestRun_PublishesEvents(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	seen := map[string]int{}
	var completed *Report
	for _, name := range []string{EventBuildStarted, EventPageRendered, EventDocumentFailed} {
		bus.Subscribe(name, func(e Event) error {
			mu.Lock()
			defer mu.Unlock()
			seen[e.Name()]++
			return nil
		})
	}
	bus.Subscribe(EventBuildCompleted, func(e Event) error {
		completed = e.(BuildCompleted).Report
		return nil
	})

	report, err := newTestPipeline(siteFS(), WithBus(bus)).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, seen[EventBuildStarted])
	require.Equal(t, 2, seen[EventPageRendered])
	require.Equal(t, 2, seen[EventDocumentFailed])
	require.Same(t, report, completed)
}

func TestRun_CleanBuild(t *testing.T) {
	fsys := fstest.MapFS{"about.md": {Data: []byte(aboutPage)}}
	report, err := newTestPipeline(fsys).Run(context.Background())
	require.NoError(t, err)
	require.False(t, report.Failed())
	require.Equal(t, metrics.BuildOutcomeSuccess, report.Outcome())
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := newRecordingRecorder()
	report, err := newTestPipeline(siteFS(), WithRecorder(rec)).Run(ctx)
	require.Nil(t, report)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryCanceled))
	require.Equal(t, []metrics.BuildOutcomeLabel{metrics.BuildOutcomeCanceled}, rec.outcomes)
}

func TestRun_DiscoveryFailureAborts(t *testing.T) {
	l := loader.NewFS(siteFS(), loader.Config{Dirs: []string{"about.md"}})
	report, err := New(l, NewRenderer(markdown.Options{})).Run(context.Background())
	require.Nil(t, report)
	require.ErrorIs(t, err, loader.ErrRootNotDir)
}

func TestRun_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := newTestPipeline(siteFS()).Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_DuplicateSlugKeepsFirstPath(t *testing.T) {
	fsys := fstest.MapFS{
		"about.md":       {Data: []byte("---\ntitle: First\n---\nfirst\n")},
		"about/index.md": {Data: []byte("---\ntitle: Second\n---\nsecond\n")},
		"About.md":       {Data: []byte("third\n")},
		"other.md":       {Data: []byte("other\n")},
	}
	rec := newRecordingRecorder()
	report, err := newTestPipeline(fsys, WithRecorder(rec)).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Pages, 2)
	first, ok := pageAt(report, "About.md")
	require.True(t, ok)
	require.Equal(t, "about", first.Slug)
	_, ok = pageAt(report, "other.md")
	require.True(t, ok)

	require.Len(t, report.Errors, 2)
	for _, e := range report.Errors {
		require.Equal(t, KindDuplicateSlug, e.Kind())
		require.Equal(t, ferrors.CategoryRender, e.Category())
		require.Contains(t, e.Error(), "About.md")
	}
	require.Equal(t, "about.md", report.Errors[0].Path())
	require.Equal(t, "about/index.md", report.Errors[1].Path())
	require.Equal(t, 2, rec.docErrs[KindDuplicateSlug])
	require.Equal(t, 2, rec.pages)
}

type unreadableDirFS struct {
	fs.FS
	dir string
}

func (f unreadableDirFS) Open(name string) (fs.File, error) {
	if name == f.dir {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return f.FS.Open(name)
}

func TestRun_UnreadableDirectoryIsDocumentError(t *testing.T) {
	fsys := unreadableDirFS{FS: siteFS(), dir: "_posts"}
	l := loader.NewFS(fsys, loader.Config{})
	report, err := New(l, NewRenderer(markdown.Options{}), WithBuildIDFunc(func() string { return "b" })).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Pages, 1)
	require.Equal(t, "about.md", report.Pages[0].Path)

	var loadErrs []string
	for _, e := range report.Errors {
		if e.Category() == ferrors.CategoryLoad {
			loadErrs = append(loadErrs, e.Path())
		}
	}
	require.Equal(t, []string{"_posts"}, loadErrs)
	require.ErrorIs(t, report.Errors[0], fs.ErrPermission)
}
