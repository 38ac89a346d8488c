package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func sample() *BuildManifest {
	return &BuildManifest{
		ID:         "build-123",
		Timestamp:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Status:     "failed",
		Duration:   42,
		LayoutHash: "layout-1",
		Pages: []PageEntry{
			{Path: "about.md", Slug: "about", Title: "About", Order: intPtr(4), Fingerprint: "fp-about", Output: "about/index.html"},
			{Path: "_posts/2020-01-05-rust-vs-cpp.md", Slug: "posts/rust-vs-cpp", Title: "Rust vs C++ Formatting", Date: "2020-01-05", Tags: []string{"cpp", "rust"}, Fingerprint: "fp-post", Output: "posts/rust-vs-cpp/index.html"},
		},
		Errors: []ErrorEntry{
			{Path: "broken.md", Category: "parse", Kind: "malformed_front_matter", Message: "front matter is not closed"},
		},
	}
}

func TestManifestSerialization(t *testing.T) {
	m := sample()

	data, err := m.ToJSON()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	restored, err := FromJSON(data)
	require.NoError(t, err)
	require.Equal(t, m, restored)
}

func TestFromJSON_Invalid(t *testing.T) {
	_, err := FromJSON([]byte("{not json"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	m, err := Load(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.Nil(t, m)

	data, err := sample().ToJSON()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), data, 0o600))

	m, err = Load(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.Equal(t, map[string]string{"about": "fp-about", "posts/rust-vs-cpp": "fp-post"}, m.Fingerprints())
}

func TestManifestHash(t *testing.T) {
	a := sample()
	b := sample()
	b.ID = "another-build"
	b.Timestamp = b.Timestamp.Add(time.Hour)
	b.Pages[0], b.Pages[1] = b.Pages[1], b.Pages[0]

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	require.Equal(t, ha, hb, "hash ignores ids, timestamps and page order")

	b.Pages[0].Fingerprint = "changed"
	hc, err := b.Hash()
	require.NoError(t, err)
	require.NotEqual(t, ha, hc)
}
