package markdown

import (
	"bytes"
	"sort"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Options controls how Markdown is parsed and rendered.
type Options struct {
	// Policy governs raw HTML passthrough. Nil means DefaultHTMLPolicy.
	Policy *HTMLPolicy
}

func (o Options) policy() *HTMLPolicy {
	if o.Policy == nil {
		return DefaultHTMLPolicy()
	}
	return o.Policy
}

// LinkKind says how a destination appeared in the body.
type LinkKind string

const (
	LinkKindInline              LinkKind = "inline"
	LinkKindImage               LinkKind = "image"
	LinkKindAuto                LinkKind = "auto"
	LinkKindReferenceDefinition LinkKind = "reference_definition"
)

// Link is a destination found while converting a body. Line is the first
// line of the enclosing block, 0 for reference definitions.
type Link struct {
	Kind        LinkKind
	Destination string
	Line        int
}

// Result is the output of Engine.Convert.
type Result struct {
	HTML  []byte
	Links []Link
	// Title is the text of the first level-1 heading, if any.
	Title string
}

// Engine converts Markdown bodies to HTML. It holds no per-call state and is
// safe for concurrent use.
type Engine struct {
	opts Options
}

func NewEngine(opts Options) *Engine {
	opts.Policy = opts.policy()
	return &Engine{opts: opts}
}

func (e *Engine) Policy() *HTMLPolicy { return e.opts.Policy }

func (e *Engine) newMarkdown() goldmark.Markdown {
	rendererOpts := []renderer.Option{}
	if e.opts.Policy.Mode() == PolicyEscape {
		rendererOpts = append(rendererOpts, renderer.WithNodeRenderers(
			util.Prioritized(&escapingHTMLRenderer{}, 100),
		))
	} else {
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOpts...),
	)
}

// Convert parses body, enforces the HTML policy on raw HTML nodes and link
// destinations, and renders HTML. Policy failures are *PositionError values
// wrapping a *Violation.
func (e *Engine) Convert(body []byte) (*Result, error) {
	md := e.newMarkdown()
	ctx := parser.NewContext()
	root := md.Parser().Parse(text.NewReader(body), parser.WithContext(ctx))

	res := &Result{}
	policy := e.opts.Policy
	err := gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.RawHTML:
			if node.Segments.Len() == 0 {
				return gmast.WalkContinue, nil
			}
			var buf bytes.Buffer
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				buf.Write(seg.Value(body))
			}
			if err := policy.CheckFragment(buf.String()); err != nil {
				return gmast.WalkStop, &PositionError{Line: lineAt(body, node.Segments.At(0).Start), Err: err}
			}
		case *gmast.HTMLBlock:
			var buf bytes.Buffer
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(body))
			}
			if node.HasClosure() {
				buf.Write(node.ClosureLine.Value(body))
			}
			if err := policy.CheckFragment(buf.String()); err != nil {
				line := 1
				if lines.Len() > 0 {
					line = lineAt(body, lines.At(0).Start)
				}
				return gmast.WalkStop, &PositionError{Line: line, Err: err}
			}
		case *gmast.Heading:
			if node.Level == 1 && res.Title == "" {
				res.Title = nodeText(node, body)
			}
		}
		if link, ok := linkOf(n, body); ok {
			link.Line = blockLine(n, body)
			if err := policy.CheckURL(link.Destination); err != nil {
				return gmast.WalkStop, &PositionError{Line: link.Line, Err: err}
			}
			res.Links = append(res.Links, link)
		}
		return gmast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	for _, link := range referenceDefinitions(ctx) {
		if err := policy.CheckURL(link.Destination); err != nil {
			return nil, &PositionError{Line: 1, Err: err}
		}
		res.Links = append(res.Links, link)
	}

	var out bytes.Buffer
	if err := md.Renderer().Render(&out, body, root); err != nil {
		return nil, err
	}
	res.HTML = out.Bytes()
	return res, nil
}

func linkOf(n gmast.Node, source []byte) (Link, bool) {
	switch node := n.(type) {
	case *gmast.AutoLink:
		return Link{Kind: LinkKindAuto, Destination: string(node.URL(source))}, true
	case *gmast.Image:
		return Link{Kind: LinkKindImage, Destination: string(node.Destination)}, true
	case *gmast.Link:
		// Goldmark resolves reference-style links to a Link node with a Destination.
		return Link{Kind: LinkKindInline, Destination: string(node.Destination)}, true
	}
	return Link{}, false
}

// Reference definitions are stored in the parse context (not represented as AST nodes).
func referenceDefinitions(ctx parser.Context) []Link {
	refs := ctx.References()
	sort.Slice(refs, func(i, j int) bool {
		return string(refs[i].Label()) < string(refs[j].Label())
	})
	links := make([]Link, 0, len(refs))
	for _, ref := range refs {
		links = append(links, Link{Kind: LinkKindReferenceDefinition, Destination: string(ref.Destination())})
	}
	return links
}

func nodeText(n gmast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *gmast.String:
			buf.Write(t.Value)
		}
		return gmast.WalkContinue, nil
	})
	return string(bytes.TrimSpace(buf.Bytes()))
}

// blockLine finds the line of the nearest enclosing block with line info.
func blockLine(n gmast.Node, source []byte) int {
	for p := n; p != nil; p = p.Parent() {
		if p.Type() == gmast.TypeBlock && p.Lines().Len() > 0 {
			return lineAt(source, p.Lines().At(0).Start)
		}
	}
	return 1
}

func lineAt(source []byte, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}
	return bytes.Count(source[:offset], []byte("\n")) + 1
}

// escapingHTMLRenderer replaces the default raw HTML renderers so that
// passthrough HTML is shown as text.
type escapingHTMLRenderer struct{}

func (r *escapingHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(gmast.KindRawHTML, r.renderRawHTML)
	reg.Register(gmast.KindHTMLBlock, r.renderHTMLBlock)
}

func (r *escapingHTMLRenderer) renderRawHTML(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkSkipChildren, nil
	}
	n := node.(*gmast.RawHTML)
	for i := 0; i < n.Segments.Len(); i++ {
		seg := n.Segments.At(i)
		_, _ = w.Write(util.EscapeHTML(seg.Value(source)))
	}
	return gmast.WalkSkipChildren, nil
}

func (r *escapingHTMLRenderer) renderHTMLBlock(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	n := node.(*gmast.HTMLBlock)
	if entering {
		_, _ = w.WriteString("<p>")
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			_, _ = w.Write(util.EscapeHTML(seg.Value(source)))
		}
		return gmast.WalkContinue, nil
	}
	if n.HasClosure() {
		_, _ = w.Write(util.EscapeHTML(n.ClosureLine.Value(source)))
	}
	_, _ = w.WriteString("</p>\n")
	return gmast.WalkContinue, nil
}
