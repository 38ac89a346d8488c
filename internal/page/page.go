// Package page defines the rendered Page record and the rules that derive its
// typed metadata, slug and ordering from a document.
package page

import (
	"time"

	"git.home.luguber.info/inful/pagebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/pagebuilder/internal/markdown"
)

// Page is the rendered, metadata-annotated output for one document. Pages
// are built once by the renderer and not modified afterwards.
type Page struct {
	Path  string
	Slug  string
	Title string
	// Order is nil when the document declares no order; such pages sort last.
	Order      *int
	Icon       string
	Tags       Set
	Categories Set
	Date       time.Time
	Draft      bool

	FrontMatter frontmatter.FrontMatter
	HTML        string

	CodeLanguages   []string
	Footnotes       []markdown.Footnote
	UnusedFootnotes []string
	Links           []markdown.Link

	Fingerprint string
}

// HasOrder reports whether the page declares an order.
func (p *Page) HasOrder() bool { return p.Order != nil }

// OrderValue returns the declared order, or 0.
func (p *Page) OrderValue() int {
	if p.Order == nil {
		return 0
	}
	return *p.Order
}
