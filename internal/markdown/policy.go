package markdown

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ErrDisallowedHTML is returned when raw HTML in a body violates the policy.
var ErrDisallowedHTML = errors.New("disallowed raw HTML")

// PolicyMode selects how raw HTML passthrough is handled.
type PolicyMode string

const (
	// PolicyAllowList passes raw HTML through after checking it against the
	// disallowed tag, attribute and URL rules.
	PolicyAllowList PolicyMode = "allow-list"
	// PolicyEscape renders every raw HTML fragment as escaped text.
	PolicyEscape PolicyMode = "escape"
)

// DefaultDisallowedTags are the script-bearing or document-level elements that
// are never passed through.
var DefaultDisallowedTags = []string{
	"script", "iframe", "object", "embed", "style",
	"link", "meta", "base", "frame", "frameset",
	// SVG animation can rewrite href after the fragment is checked.
	"animate", "set", "animatemotion", "animatetransform",
}

var urlAttributes = map[string]struct{}{
	"href":       {},
	"src":        {},
	"action":     {},
	"formaction": {},
	"xlink:href": {},
	"background": {},
	"poster":     {},
	"cite":       {},
	"data":       {},
}

var safeDataImagePrefixes = []string{
	"data:image/png",
	"data:image/gif",
	"data:image/jpeg",
	"data:image/webp",
}

// Violation describes why a fragment or URL was rejected.
type Violation struct {
	Tag    string
	Attr   string
	Value  string
	Reason string
}

func (v *Violation) Error() string {
	switch {
	case v.Attr != "":
		return fmt.Sprintf("%s: <%s %s=%q>: %s", ErrDisallowedHTML, v.Tag, v.Attr, v.Value, v.Reason)
	case v.Tag != "":
		return fmt.Sprintf("%s: <%s>: %s", ErrDisallowedHTML, v.Tag, v.Reason)
	default:
		return fmt.Sprintf("%s: %q: %s", ErrDisallowedHTML, v.Value, v.Reason)
	}
}

func (v *Violation) Unwrap() error { return ErrDisallowedHTML }

// HTMLPolicy decides which raw HTML may pass through to rendered pages.
// It is immutable after construction and safe for concurrent use.
type HTMLPolicy struct {
	mode       PolicyMode
	disallowed map[string]struct{}
}

// NewHTMLPolicy builds a policy. Extra tags are added to DefaultDisallowedTags.
func NewHTMLPolicy(mode PolicyMode, extraDisallowed ...string) *HTMLPolicy {
	if mode != PolicyEscape {
		mode = PolicyAllowList
	}
	p := &HTMLPolicy{mode: mode, disallowed: make(map[string]struct{})}
	for _, tag := range DefaultDisallowedTags {
		p.disallowed[tag] = struct{}{}
	}
	for _, tag := range extraDisallowed {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			p.disallowed[tag] = struct{}{}
		}
	}
	return p
}

// DefaultHTMLPolicy is the allow-list policy with the default tag set.
func DefaultHTMLPolicy() *HTMLPolicy {
	return NewHTMLPolicy(PolicyAllowList)
}

func (p *HTMLPolicy) Mode() PolicyMode { return p.mode }

// Disallows reports whether tag is rejected.
func (p *HTMLPolicy) Disallows(tag string) bool {
	_, ok := p.disallowed[strings.ToLower(tag)]
	return ok
}

// CheckFragment tokenizes a raw HTML fragment and returns a *Violation for the
// first disallowed tag, event-handler attribute or dangerous URL. In escape
// mode nothing is passed through, so every fragment is accepted.
func (p *HTMLPolicy) CheckFragment(fragment string) error {
	if p.mode == PolicyEscape {
		return nil
	}
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return nil
			}
			return z.Err()
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			tok := z.Token()
			if p.Disallows(tok.Data) {
				return &Violation{Tag: tok.Data, Reason: "element is not allowed"}
			}
			if tt == html.EndTagToken {
				continue
			}
			if v := animatedURLViolation(tok); v != nil {
				return v
			}
			for _, attr := range tok.Attr {
				key := strings.ToLower(attr.Key)
				if strings.HasPrefix(key, "on") {
					return &Violation{Tag: tok.Data, Attr: attr.Key, Value: attr.Val, Reason: "event handler attributes are not allowed"}
				}
				if _, ok := urlAttributes[key]; ok && IsDangerousURL(attr.Val) {
					return &Violation{Tag: tok.Data, Attr: attr.Key, Value: attr.Val, Reason: "URL scheme is not allowed"}
				}
			}
		}
	}
}

// animatedURLViolation checks the values an element animates a URL attribute
// to, for animation attributes on elements outside the disallowed set.
func animatedURLViolation(tok html.Token) *Violation {
	target := ""
	for _, attr := range tok.Attr {
		if strings.EqualFold(attr.Key, "attributename") {
			target = strings.ToLower(strings.TrimSpace(attr.Val))
		}
	}
	if _, ok := urlAttributes[target]; !ok {
		return nil
	}
	for _, attr := range tok.Attr {
		switch strings.ToLower(attr.Key) {
		case "values", "to", "from", "by":
			for _, v := range strings.Split(attr.Val, ";") {
				if IsDangerousURL(v) {
					return &Violation{Tag: tok.Data, Attr: attr.Key, Value: attr.Val, Reason: "animated URL scheme is not allowed"}
				}
			}
		}
	}
	return nil
}

// CheckURL rejects link and image destinations with a script-capable scheme.
func (p *HTMLPolicy) CheckURL(u string) error {
	if IsDangerousURL(u) {
		return &Violation{Value: u, Reason: "URL scheme is not allowed"}
	}
	return nil
}

// IsDangerousURL reports whether u uses the javascript:, vbscript: or file:
// scheme, or is a data: URL other than a raster image.
func IsDangerousURL(u string) bool {
	normalized := strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return -1
		}
		return r
	}, u)
	normalized = strings.ToLower(normalized)

	switch {
	case strings.HasPrefix(normalized, "javascript:"),
		strings.HasPrefix(normalized, "vbscript:"),
		strings.HasPrefix(normalized, "file:"):
		return true
	case strings.HasPrefix(normalized, "data:"):
		for _, prefix := range safeDataImagePrefixes {
			if strings.HasPrefix(normalized, prefix) {
				return false
			}
		}
		return true
	}
	return false
}
