package markdown

import (
	"errors"
	"fmt"
)

// ErrDanglingFootnote is returned when a footnote reference has no definition.
var ErrDanglingFootnote = errors.New("dangling footnote reference")

// Footnote is a referenced, defined footnote and the number it renders with.
type Footnote struct {
	ID     string
	Number int
	// RefLine is the body line of the first reference.
	RefLine int
	DefLine int
}

// Footnotes is the resolved footnote table of one body.
type Footnotes struct {
	Numbered []Footnote
	// Unused holds definitions that nothing references. They are permitted
	// and reported as warnings.
	Unused []FootnoteDef
}

// ResolveFootnotes numbers footnotes in order of first reference. A reference
// without a definition fails with ErrDanglingFootnote wrapped in a
// *PositionError pointing at the reference.
func ResolveFootnotes(a *Analysis) (*Footnotes, error) {
	defs := make(map[string]FootnoteDef, len(a.FootnoteDefs))
	for _, def := range a.FootnoteDefs {
		if _, dup := defs[def.ID]; !dup {
			defs[def.ID] = def
		}
	}

	out := &Footnotes{}
	numbered := make(map[string]struct{})
	for _, ref := range a.FootnoteRefs {
		if _, done := numbered[ref.ID]; done {
			continue
		}
		def, ok := defs[ref.ID]
		if !ok {
			return nil, &PositionError{
				Line: ref.Line,
				Err:  fmt.Errorf("%w: [^%s]", ErrDanglingFootnote, ref.ID),
			}
		}
		numbered[ref.ID] = struct{}{}
		out.Numbered = append(out.Numbered, Footnote{
			ID:      ref.ID,
			Number:  len(out.Numbered) + 1,
			RefLine: ref.Line,
			DefLine: def.Line,
		})
	}

	seen := make(map[string]struct{})
	for _, def := range a.FootnoteDefs {
		if _, used := numbered[def.ID]; used {
			continue
		}
		if _, dup := seen[def.ID]; dup {
			continue
		}
		seen[def.ID] = struct{}{}
		out.Unused = append(out.Unused, def)
	}
	return out, nil
}
