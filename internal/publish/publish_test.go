package publish

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/manifest"
	"git.home.luguber.info/inful/pagebuilder/internal/markdown"
	"git.home.luguber.info/inful/pagebuilder/internal/page"
	"git.home.luguber.info/inful/pagebuilder/internal/pipeline"
)

var fixedClock = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }

func intPtr(n int) *int { return &n }

func testReport() *pipeline.Report {
	return &pipeline.Report{
		BuildID: "build-1",
		Pages: []*page.Page{
			{
				Path:        "index.md",
				Slug:        "",
				Title:       "Home",
				Order:       intPtr(1),
				HTML:        "<p>Welcome</p>\n",
				Fingerprint: "fp-home",
			},
			{
				Path:        "_posts/2020-01-05-rust-vs-cpp.md",
				Slug:        "posts/rust-vs-cpp",
				Title:       "Rust vs C++ Formatting",
				Tags:        page.NewSet("rust", "cpp"),
				Date:        time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC),
				HTML:        "<p>Formatting <strong>matters</strong></p>\n",
				Links:       []markdown.Link{{Kind: markdown.LinkKindInline, Destination: "https://fmt.dev"}},
				Fingerprint: "fp-post",
			},
		},
		Errors: []*ferrors.ClassifiedError{
			ferrors.RenderError("dangling footnote").
				WithPath("broken.md").
				WithKind("dangling_footnote").
				WithContext(ferrors.ContextLine, 6).
				Build(),
		},
		Warnings: []pipeline.Warning{
			{Path: "about.md", Kind: pipeline.WarningUnusedFootnote, Message: "footnote [^2] is never referenced"},
		},
		Duration: 1500 * time.Millisecond,
	}
}

func newTestWriter(t *testing.T, out string, opts ...Option) *Writer {
	t.Helper()
	w, err := NewWriter(out, append([]Option{WithClock(fixedClock)}, opts...)...)
	require.NoError(t, err)
	return w
}

func TestNewWriter_Validation(t *testing.T) {
	_, err := NewWriter("")
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))

	_, err = NewWriter(t.TempDir(), WithLayout("{{ .Title "))
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestPublish_WritesPagesAndManifest(t *testing.T) {
	out := t.TempDir()
	w := newTestWriter(t, out)

	res, err := w.Publish(context.Background(), testReport())
	require.NoError(t, err)
	require.Equal(t, []string{"", "posts/rust-vs-cpp"}, res.Written)
	require.Empty(t, res.Unchanged)

	home, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(home), "<title>Home</title>")
	require.Contains(t, string(home), "<p>Welcome</p>")

	post, err := os.ReadFile(filepath.Join(out, "posts", "rust-vs-cpp", "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(post), "<p>Formatting <strong>matters</strong></p>")
	require.Contains(t, string(post), `<time datetime="2020-01-05">2020-01-05</time>`)
	require.Contains(t, string(post), "<li>cpp</li><li>rust</li>")
	require.Contains(t, string(post), "Rust vs C&#43;&#43; Formatting")

	m, err := manifest.Load(filepath.Join(out, manifest.FileName))
	require.NoError(t, err)
	require.Equal(t, "build-1", m.ID)
	require.Equal(t, fixedClock(), m.Timestamp)
	require.Equal(t, "failed", m.Status)
	require.Equal(t, int64(1500), m.Duration)
	require.Len(t, m.Pages, 2)
	require.Equal(t, "index.html", m.Pages[0].Output)
	require.Equal(t, []string{"cpp", "rust"}, m.Pages[1].Tags)
	require.Equal(t, "2020-01-05", m.Pages[1].Date)
	require.Equal(t, []string{"https://fmt.dev"}, m.Pages[1].Links)
	require.Empty(t, m.Pages[0].Links)
	require.Len(t, m.Errors, 1)
	require.Equal(t, "broken.md", m.Errors[0].Path)
	require.Equal(t, "render", m.Errors[0].Category)
	require.Equal(t, "dangling_footnote", m.Errors[0].Kind)
	require.Equal(t, 6, m.Errors[0].Line)
	require.Len(t, m.Warnings, 1)
}

func TestPublish_SkipsUnchangedPages(t *testing.T) {
	out := t.TempDir()
	w := newTestWriter(t, out)
	ctx := context.Background()

	_, err := w.Publish(ctx, testReport())
	require.NoError(t, err)

	report := testReport()
	report.Pages[1].Fingerprint = "fp-post-2"
	report.Pages[1].HTML = "<p>Updated</p>\n"

	res, err := w.Publish(ctx, report)
	require.NoError(t, err)
	require.Equal(t, []string{""}, res.Unchanged)
	require.Equal(t, []string{"posts/rust-vs-cpp"}, res.Written)

	post, err := os.ReadFile(filepath.Join(out, "posts", "rust-vs-cpp", "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(post), "<p>Updated</p>")
}

func TestPublish_RewritesMissingOutput(t *testing.T) {
	out := t.TempDir()
	w := newTestWriter(t, out)
	ctx := context.Background()

	_, err := w.Publish(ctx, testReport())
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(out, "index.html")))

	res, err := w.Publish(ctx, testReport())
	require.NoError(t, err)
	require.Equal(t, []string{""}, res.Written)
	require.Equal(t, []string{"posts/rust-vs-cpp"}, res.Unchanged)
}

func TestPublish_LayoutChangeRewritesEverything(t *testing.T) {
	out := t.TempDir()
	ctx := context.Background()

	_, err := newTestWriter(t, out).Publish(ctx, testReport())
	require.NoError(t, err)

	w := newTestWriter(t, out, WithLayout(`<main>{{ .Content }}</main>`))
	res, err := w.Publish(ctx, testReport())
	require.NoError(t, err)
	require.Len(t, res.Written, 2)
	require.Empty(t, res.Unchanged)

	home, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	require.Equal(t, "<main><p>Welcome</p>\n</main>", string(home))
}

func TestPublish_RemovesStalePages(t *testing.T) {
	out := t.TempDir()
	w := newTestWriter(t, out)
	ctx := context.Background()

	_, err := w.Publish(ctx, testReport())
	require.NoError(t, err)

	report := testReport()
	report.Pages = report.Pages[:1]
	res, err := w.Publish(ctx, report)
	require.NoError(t, err)
	require.Equal(t, []string{"posts/rust-vs-cpp"}, res.Removed)
	require.NoFileExists(t, filepath.Join(out, "posts", "rust-vs-cpp", "index.html"))
	require.NoDirExists(t, filepath.Join(out, "posts", "rust-vs-cpp"))
}

func TestPublish_CorruptManifestForcesRewrite(t *testing.T) {
	out := t.TempDir()
	w := newTestWriter(t, out)
	ctx := context.Background()

	_, err := w.Publish(ctx, testReport())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(out, manifest.FileName), []byte("{"), 0o600))

	res, err := w.Publish(ctx, testReport())
	require.NoError(t, err)
	require.Len(t, res.Written, 2)
}

func TestPublish_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestWriter(t, t.TempDir()).Publish(ctx, testReport())
	require.ErrorIs(t, err, context.Canceled)
}

func TestPublish_DuplicateSlugIsRejected(t *testing.T) {
	out := t.TempDir()
	report := testReport()
	report.Pages = append(report.Pages, &page.Page{Path: "posts/rust-vs-cpp.md", Slug: "posts/rust-vs-cpp", Fingerprint: "fp-other"})

	_, err := newTestWriter(t, out).Publish(context.Background(), report)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryPublish))
	require.Contains(t, err.Error(), "posts/rust-vs-cpp.md")

	_, statErr := os.Stat(filepath.Join(out, manifest.FileName))
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestPublish_NilReport(t *testing.T) {
	_, err := newTestWriter(t, t.TempDir()).Publish(context.Background(), nil)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func TestSafeJoin(t *testing.T) {
	root := t.TempDir()

	full, err := safeJoin(root, "a/b/index.html")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "a", "b", "index.html"), full)

	_, err = safeJoin(root, "../escape/index.html")
	require.Error(t, err)

	_, err = safeJoin(root, "/abs/index.html")
	require.Error(t, err)
}
