package docmodel

import (
	"os"
	"strings"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/frontmatter"
)

// KindMalformedFrontMatter is the error kind recorded on front matter failures.
const KindMalformedFrontMatter = "malformed_front_matter"

// Document is a raw input unit: a slash-separated path identifying the
// document and its full file contents. It is never mutated once loaded.
type Document struct {
	path    string
	rawText []byte
}

// NewDocument creates a Document; rawText is copied.
func NewDocument(path string, rawText []byte) Document {
	return Document{path: path, rawText: append([]byte(nil), rawText...)}
}

// Path returns the document identifier.
func (d Document) Path() string { return d.path }

// RawText returns a copy of the full file contents.
func (d Document) RawText() []byte { return append([]byte(nil), d.rawText...) }

// Size returns the length of the raw text in bytes.
func (d Document) Size() int { return len(d.rawText) }

// ParsedDoc represents a document split into decoded front matter and body.
type ParsedDoc struct {
	path  string
	fmRaw []byte
	fm    frontmatter.FrontMatter
	body  []byte
	hadFM bool
	style frontmatter.Style
}

// Parse splits and decodes a Document.
//
// Failures are classified parse errors carrying the document path; the
// frontmatter sentinel stays reachable through errors.Is.
func Parse(doc Document) (*ParsedDoc, error) {
	fmRaw, body, had, style, err := frontmatter.Split(doc.rawText)
	if err != nil {
		return nil, parseError(doc.path, "front matter is not closed", err)
	}

	var fm frontmatter.FrontMatter
	if had {
		fm, err = frontmatter.Decode(fmRaw)
		if err != nil {
			return nil, parseError(doc.path, "front matter is not a key-value mapping", err)
		}
	}

	var fmCopy []byte
	if had {
		fmCopy = append([]byte{}, fmRaw...)
	}

	return &ParsedDoc{
		path:  doc.path,
		fmRaw: fmCopy,
		fm:    fm,
		body:  append([]byte{}, body...),
		hadFM: had,
		style: style,
	}, nil
}

func parseError(path, message string, cause error) error {
	return errors.ParseError(message).
		WithPath(path).
		WithKind(KindMalformedFrontMatter).
		WithCause(cause).
		Build()
}

// ParseOSFile reads a file from the local filesystem and parses it.
func ParseOSFile(path string) (*ParsedDoc, error) {
	// #nosec G304 -- path is provided by the CLI user.
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.LoadError("failed to read document").
			WithPath(path).
			WithCause(err).
			Build()
	}
	return Parse(NewDocument(path, content))
}

// Path returns the document identifier.
func (d *ParsedDoc) Path() string { return d.path }

// HadFrontmatter reports whether the original document contained a front matter block.
func (d *ParsedDoc) HadFrontmatter() bool {
	return d.hadFM
}

// FrontMatter returns a copy of the decoded front matter.
func (d *ParsedDoc) FrontMatter() frontmatter.FrontMatter {
	return d.fm.Clone()
}

// FrontmatterRaw returns the raw front matter bytes (without delimiters).
//
// If the document had no frontmatter, FrontmatterRaw returns nil.
func (d *ParsedDoc) FrontmatterRaw() []byte {
	if !d.hadFM {
		return nil
	}
	return append([]byte{}, d.fmRaw...)
}

// Body returns the Markdown body bytes (frontmatter removed).
func (d *ParsedDoc) Body() []byte {
	return append([]byte{}, d.body...)
}

// Style returns the detected formatting style from frontmatter splitting.
func (d *ParsedDoc) Style() frontmatter.Style {
	return d.style
}

// Bytes re-joins frontmatter and body into full document bytes.
func (d *ParsedDoc) Bytes() []byte {
	return frontmatter.Join(d.fmRaw, d.body, d.hadFM, d.style)
}

// LineOffset returns the offset that translates 1-based body line numbers
// into file line numbers: fileLine = LineOffset() + bodyLine.
func (d *ParsedDoc) LineOffset() int {
	if !d.hadFM {
		return 0
	}
	// opening and closing delimiter lines plus the block itself
	return 2 + strings.Count(string(d.fmRaw), "\n")
}
