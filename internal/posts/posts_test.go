package posts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"git.home.luguber.info/inful/pagebuilder/internal/frontmatter"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	name, ok := ParseName("_posts/2020-01-05-rust-vs-cpp-formatting.md")
	require.True(t, ok)
	require.Equal(t, "_posts", name.Dir)
	require.Equal(t, time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC), name.Date)
	require.Equal(t, "rust-vs-cpp-formatting", name.Title)
	require.Equal(t, ".md", name.Ext)
	require.Equal(t, "_posts/2020-01-05-rust-vs-cpp-formatting.md", name.Path())

	for _, p := range []string{
		"about.md",
		"_posts/rust-vs-cpp.md",
		"_posts/2020-13-40-bad-date.md",
		"_posts/2020-01-05.md",
	} {
		_, ok := ParseName(p)
		require.False(t, ok, p)
	}
}

func TestRoll_RenamesAndRedates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), Dir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	src := filepath.Join(dir, "2020-01-05-rust-vs-cpp.md")
	require.NoError(t, os.WriteFile(src, []byte("---\ntitle: Rust vs C++\ndate: 2020-01-05\ntags:\n  - rust\n---\nBody text.\n"), 0o600))

	now := time.Date(2024, 3, 1, 15, 4, 5, 0, time.Local)
	target, err := Roll(src, now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "2024-03-01-rust-vs-cpp.md"), target)

	_, err = os.Stat(src)
	require.ErrorIs(t, err, os.ErrNotExist)

	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	fm, body, err := frontmatter.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "Body text.\n", string(body))
	require.Equal(t, []string{"title", "date", "tags"}, fm.Keys())
	date, _ := fm.Get("date")
	require.Equal(t, frontmatter.String("2024-03-01"), date)
}

func TestRoll_WithoutDateKeyKeepsBytes(t *testing.T) {
	dir := t.TempDir()
	content := []byte("# Just a post\n")
	src := filepath.Join(dir, "2021-06-30-note.md")
	require.NoError(t, os.WriteFile(src, content, 0o600))

	target, err := Roll(src, time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, content, raw)
}

func TestRoll_Refusals(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := Roll(filepath.Join(dir, "about.md"), now)
	require.ErrorIs(t, err, ErrNotDated)

	src := filepath.Join(dir, "2020-01-05-post.md")
	require.NoError(t, os.WriteFile(src, []byte("old\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-03-01-post.md"), []byte("new\n"), 0o600))
	_, err = Roll(src, now)
	require.ErrorIs(t, err, ErrTargetExists)
	_, err = os.Stat(src)
	require.NoError(t, err)

	today := filepath.Join(dir, "2024-03-01-post.md")
	same, err := Roll(today, now)
	require.NoError(t, err)
	require.Equal(t, today, same)
}
