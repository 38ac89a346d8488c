package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/manifest"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/pipeline"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Content.Root = filepath.Join(dir, "content")
	cfg.Build.Output = filepath.Join(dir, "public")
	cfg.Build.Workers = 2

	writeFile(t, cfg.Content.Root, "about.md", "---\ntitle: About\norder: 1\n---\n# About us\n\nHello.\n")
	writeFile(t, cfg.Content.Root, "_posts/2020-01-05-hello-world.md", "---\ntags: [intro]\n---\n# Hello World\n\nFirst post.\n")
	return cfg
}

func staticID() string { return "build-test" }

func TestServiceRun_PublishesSite(t *testing.T) {
	cfg := testConfig(t)
	rec := metrics.NewPrometheusRecorder(nil)

	svc := NewService().WithRecorder(rec).WithBuildIDFunc(staticID)
	res, err := svc.Run(context.Background(), Request{Config: cfg})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status)
	require.NoError(t, res.Err())
	require.Equal(t, cfg.Build.Output, res.OutputPath)
	require.Len(t, res.Report.Pages, 2)
	require.ElementsMatch(t, []string{"about", "posts/hello-world"}, res.Published.Written)

	require.FileExists(t, filepath.Join(cfg.Build.Output, "about", "index.html"))
	require.FileExists(t, filepath.Join(cfg.Build.Output, "posts", "hello-world", "index.html"))

	m, err := manifest.Load(filepath.Join(cfg.Build.Output, manifest.FileName))
	require.NoError(t, err)
	require.Equal(t, "build-test", m.ID)
	require.Equal(t, "success", m.Status)

	// A second build with unchanged content rewrites nothing.
	res, err = svc.Run(context.Background(), Request{Config: cfg})
	require.NoError(t, err)
	require.Empty(t, res.Published.Written)
	require.Len(t, res.Published.Unchanged, 2)
}

func TestServiceRun_DryRun(t *testing.T) {
	cfg := testConfig(t)

	res, err := NewService().Run(context.Background(), Request{Config: cfg, DryRun: true})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status)
	require.Nil(t, res.Published)
	require.NoDirExists(t, cfg.Build.Output)
}

func TestServiceRun_DocumentFailures(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.Content.Root, "broken.md", "Text with a dangling note.[^missing]\n")

	bus := pipeline.NewBus()
	var failed []string
	bus.Subscribe(pipeline.EventDocumentFailed, func(e pipeline.Event) error {
		failed = append(failed, e.(pipeline.DocumentFailed).Err.Path())
		return nil
	})

	res, err := NewService().WithBus(bus).Run(context.Background(), Request{Config: cfg})
	require.NoError(t, err)
	require.Equal(t, StatusFailed, res.Status)
	require.False(t, res.Status.IsSuccess())
	require.Equal(t, []string{"broken.md"}, failed)

	buildErr := res.Err()
	require.Error(t, buildErr)
	require.True(t, ferrors.HasCategory(buildErr, ferrors.CategoryRender))
	require.Equal(t, 3, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(buildErr))

	// Healthy pages are still published.
	require.Len(t, res.Published.Written, 2)
	m, err := manifest.Load(filepath.Join(cfg.Build.Output, manifest.FileName))
	require.NoError(t, err)
	require.Len(t, m.Errors, 1)
	require.Equal(t, "dangling_footnote", m.Errors[0].Kind)
}

func TestServiceRun_CustomLayout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Build.Layout = filepath.Join(t.TempDir(), "layout.html")
	require.NoError(t, os.WriteFile(cfg.Build.Layout, []byte(`<section>{{ .Title }}</section>`), 0o600))

	_, err := NewService().Run(context.Background(), Request{Config: cfg})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(cfg.Build.Output, "about", "index.html"))
	require.NoError(t, err)
	require.Equal(t, "<section>About</section>", string(data))
}

func TestServiceRun_MissingLayout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Build.Layout = filepath.Join(t.TempDir(), "missing.html")

	res, err := NewService().Run(context.Background(), Request{Config: cfg})
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	require.Equal(t, StatusFailed, res.Status)
}

func TestServiceRun_Canceled(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewService().Run(ctx, Request{Config: cfg})
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryCanceled))
	require.Equal(t, StatusCanceled, res.Status)
	require.Nil(t, res.Report)
}

func TestServiceRun_NilConfig(t *testing.T) {
	res, err := NewService().Run(context.Background(), Request{})
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	require.Equal(t, StatusFailed, res.Status)
}
