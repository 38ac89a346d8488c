package pipeline

import (
	"errors"

	"git.home.luguber.info/inful/pagebuilder/internal/docmodel"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/pagebuilder/internal/markdown"
	"git.home.luguber.info/inful/pagebuilder/internal/page"
)

// Render failure kinds, recorded in the error context under "kind".
const (
	KindDanglingFootnote      = "dangling_footnote"
	KindDisallowedHTML        = "disallowed_html"
	KindUnterminatedCodeFence = "unterminated_code_fence"
	KindInvalidMetadata       = "invalid_metadata"
	KindInvalidPath           = "invalid_path"
	KindDuplicateSlug         = "duplicate_slug"
)

// Renderer turns a parsed document into a Page. It holds no mutable state and
// is safe for concurrent use.
type Renderer struct {
	engine *markdown.Engine
}

func NewRenderer(opts markdown.Options) *Renderer {
	return &Renderer{engine: markdown.NewEngine(opts)}
}

// RenderDoc renders a parsed document. Line numbers in errors refer to the
// source file, front matter included.
func (r *Renderer) RenderDoc(doc *docmodel.ParsedDoc) (*page.Page, error) {
	return r.render(doc.Path(), doc.FrontMatter(), doc.Body(), doc.LineOffset())
}

// Render renders body with the decoded front matter fm. Line numbers in
// errors are relative to body.
func (r *Renderer) Render(path string, fm frontmatter.FrontMatter, body []byte) (*page.Page, error) {
	return r.render(path, fm, body, 0)
}

func (r *Renderer) render(path string, fm frontmatter.FrontMatter, body []byte, lineOffset int) (*page.Page, error) {
	analysis, err := markdown.Scan(body)
	if err != nil {
		return nil, renderError(path, KindUnterminatedCodeFence, "unterminated code fence", err, lineOffset)
	}

	footnotes, err := markdown.ResolveFootnotes(analysis)
	if err != nil {
		return nil, renderError(path, KindDanglingFootnote, "dangling footnote reference", err, lineOffset)
	}

	res, err := r.engine.Convert(body)
	if err != nil {
		if errors.Is(err, markdown.ErrDisallowedHTML) {
			return nil, renderError(path, KindDisallowedHTML, "disallowed raw HTML", err, lineOffset)
		}
		return nil, ferrors.InternalError("markdown conversion failed").WithCause(err).WithPath(path).Build()
	}

	meta, err := page.DecodeMetadata(fm)
	if err != nil {
		return nil, renderError(path, KindInvalidMetadata, "invalid front matter metadata", err, 0)
	}

	slug, err := page.SlugFromPath(path)
	if err != nil {
		return nil, renderError(path, KindInvalidPath, "cannot derive slug", err, 0)
	}

	fingerprint, err := page.Fingerprint(fm, body)
	if err != nil {
		return nil, ferrors.InternalError("fingerprint failed").WithCause(err).WithPath(path).Build()
	}

	unused := make([]string, 0, len(footnotes.Unused))
	for _, def := range footnotes.Unused {
		unused = append(unused, def.ID)
	}

	return &page.Page{
		Path:            path,
		Slug:            slug,
		Title:           page.ResolveTitle(meta.Title, res.Title, path),
		Order:           meta.Order,
		Icon:            meta.Icon,
		Tags:            meta.Tags,
		Categories:      meta.Categories,
		Date:            page.ResolveDate(meta.Date, path),
		Draft:           meta.Draft,
		FrontMatter:     fm.Clone(),
		HTML:            string(res.HTML),
		CodeLanguages:   analysis.Languages(),
		Footnotes:       footnotes.Numbered,
		UnusedFootnotes: unused,
		Links:           res.Links,
		Fingerprint:     fingerprint,
	}, nil
}

func renderError(path, kind, message string, err error, lineOffset int) error {
	b := ferrors.RenderError(message).
		WithCause(err).
		WithPath(path).
		WithKind(kind)
	var pos *markdown.PositionError
	if errors.As(err, &pos) {
		b = b.WithContext(ferrors.ContextLine, pos.Line+lineOffset)
	}
	return b.Build()
}
