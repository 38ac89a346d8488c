package manifest

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"
)

// FileName is the manifest's file name inside the output directory.
const FileName = "manifest.json"

// BuildManifest is the record of one published build: which pages were
// written, from which sources and fingerprints, and which documents failed.
type BuildManifest struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Status     string         `json:"status"`
	Duration   int64          `json:"duration_ms"`
	LayoutHash string         `json:"layout_hash"`
	Pages      []PageEntry    `json:"pages"`
	Errors     []ErrorEntry   `json:"errors,omitempty"`
	Warnings   []WarningEntry `json:"warnings,omitempty"`
}

// PageEntry describes one published page.
type PageEntry struct {
	Path        string   `json:"path"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Order       *int     `json:"order,omitempty"`
	Date        string   `json:"date,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Fingerprint string   `json:"fingerprint"`
	Output      string   `json:"output"`
	// Links are the page's outgoing link and image destinations.
	Links       []string `json:"links,omitempty"`
}

// ErrorEntry is a per-document failure.
type ErrorEntry struct {
	Path     string `json:"path"`
	Category string `json:"category"`
	Kind     string `json:"kind,omitempty"`
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message"`
}

type WarningEntry struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ToJSON serializes the manifest to JSON.
func (m *BuildManifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// FromJSON deserializes a manifest from JSON.
func FromJSON(data []byte) (*BuildManifest, error) {
	var m BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Load reads a manifest file. A missing file yields (nil, nil).
func Load(path string) (*BuildManifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // no previous build
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return FromJSON(data)
}

// Fingerprints maps page slugs to their fingerprints.
func (m *BuildManifest) Fingerprints() map[string]string {
	out := make(map[string]string, len(m.Pages))
	for _, p := range m.Pages {
		out[p.Slug] = p.Fingerprint
	}
	return out
}

// Hash computes a deterministic hash over the published content: the layout
// and every page's slug and fingerprint. Two builds with the same hash
// produced identical output.
func (m *BuildManifest) Hash() (string, error) {
	type entry struct {
		Slug        string `json:"slug"`
		Fingerprint string `json:"fingerprint"`
	}
	entries := make([]entry, 0, len(m.Pages))
	for _, p := range m.Pages {
		entries = append(entries, entry{Slug: p.Slug, Fingerprint: p.Fingerprint})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		switch {
		case a.Slug < b.Slug:
			return -1
		case a.Slug > b.Slug:
			return 1
		}
		return 0
	})

	hashInput := struct {
		LayoutHash string  `json:"layout_hash"`
		Pages      []entry `json:"pages"`
	}{
		LayoutHash: m.LayoutHash,
		Pages:      entries,
	}

	data, err := json.Marshal(hashInput)
	if err != nil {
		return "", fmt.Errorf("marshal hash input: %w", err)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum), nil
}
