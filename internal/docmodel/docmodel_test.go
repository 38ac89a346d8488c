package docmodel

import (
	"testing"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/frontmatter"
	"github.com/stretchr/testify/require"
)

func TestParse_NoFrontmatter_RoundTrip(t *testing.T) {
	content := []byte("# Hello\n\nBody\n")

	doc, err := Parse(NewDocument("hello.md", content))
	require.NoError(t, err)
	require.False(t, doc.HadFrontmatter())
	require.Nil(t, doc.FrontmatterRaw())
	require.Zero(t, doc.FrontMatter().Len())
	require.Equal(t, content, doc.Body())
	require.Equal(t, content, doc.Bytes())
	require.Equal(t, 0, doc.LineOffset())
}

func TestParse_EmptyFrontmatter_RoundTrip(t *testing.T) {
	content := []byte("---\n---\n# Hi\n")

	doc, err := Parse(NewDocument("hi.md", content))
	require.NoError(t, err)
	require.True(t, doc.HadFrontmatter())
	require.Equal(t, []byte{}, doc.FrontmatterRaw())
	require.Equal(t, []byte("# Hi\n"), doc.Body())
	require.Equal(t, content, doc.Bytes())
	require.Equal(t, 2, doc.LineOffset())
}

func TestParse_DecodesFrontMatter(t *testing.T) {
	content := []byte("---\nicon: user\norder: 4\ntitle: About\n---\n# About\n")

	doc, err := Parse(NewDocument("pages/about.md", content))
	require.NoError(t, err)

	fm := doc.FrontMatter()
	require.Equal(t, []string{"icon", "order", "title"}, fm.Keys())
	order, _ := fm.Get("order")
	require.Equal(t, frontmatter.Int(4), order)
	require.Equal(t, 5, doc.LineOffset())
	require.Equal(t, "pages/about.md", doc.Path())
}

func TestParse_MissingClosingDelimiter_ReturnsClassifiedParseError(t *testing.T) {
	content := []byte("---\nkey: value\n# body\n")

	_, err := Parse(NewDocument("broken.md", content))
	require.Error(t, err)
	require.ErrorIs(t, err, frontmatter.ErrMalformedFrontMatter)

	classified, ok := errors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, errors.CategoryParse, classified.Category())
	require.Equal(t, "broken.md", classified.Path())
	require.Equal(t, KindMalformedFrontMatter, classified.Kind())
}

func TestParse_UndecodableLine_ReturnsParseError(t *testing.T) {
	_, err := Parse(NewDocument("bad.md", []byte("---\ntitle: a\nnot a pair\n---\nbody\n")))
	require.ErrorIs(t, err, frontmatter.ErrMalformedFrontMatter)
	require.True(t, errors.HasCategory(err, errors.CategoryParse))
}

func TestParse_CapturesStyle(t *testing.T) {
	content := []byte("---\r\nkey: value\r\n---\r\n# body\r\n")

	doc, err := Parse(NewDocument("crlf.md", content))
	require.NoError(t, err)
	style := doc.Style()
	require.Equal(t, "\r\n", style.Newline)
	require.True(t, style.HasTrailingNewline)
	require.Equal(t, content, doc.Bytes())
}

func TestDocument_DoesNotExposeMutableBytes(t *testing.T) {
	raw := []byte("# Hello\n")
	doc := NewDocument("x.md", raw)
	raw[0] = 'X'
	require.Equal(t, byte('#'), doc.RawText()[0])

	buf := doc.RawText()
	buf[0] = 'Y'
	require.Equal(t, byte('#'), doc.RawText()[0])

	parsed, err := Parse(doc)
	require.NoError(t, err)
	body := parsed.Body()
	body[0] = 'Z'
	require.Equal(t, byte('#'), parsed.Body()[0])
}
