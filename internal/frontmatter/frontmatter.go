package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMalformedFrontMatter indicates the document opened a front matter block
// that is not closed, or whose contents are not a key-value mapping.
var ErrMalformedFrontMatter = errors.New("malformed front matter")

const delimiter = "---"

// Style captures formatting details needed for stable rewriting.
//
// It intentionally focuses on newline/trailing newline shape and does not
// attempt to preserve original YAML formatting.
type Style struct {
	Newline            string
	HasTrailingNewline bool
}

// Split separates the `---` delimited front matter block from the Markdown body.
//
// If the document does not start with a line consisting solely of `---`, had
// is false and body is the full input. The block is everything strictly
// between the first two delimiter lines.
func Split(content []byte) (frontmatter []byte, body []byte, had bool, style Style, err error) {
	style = detectStyle(content)

	first, next := readLine(content, 0)
	if first != delimiter {
		return nil, content, false, style, nil
	}

	blockStart := next
	for pos := blockStart; pos < len(content); {
		line, after := readLine(content, pos)
		if line == delimiter {
			return content[blockStart:pos], content[after:], true, style, nil
		}
		pos = after
	}

	return nil, nil, false, style, fmt.Errorf("%w: opening %q has no closing delimiter", ErrMalformedFrontMatter, delimiter)
}

// readLine returns the line starting at pos without its line ending, and the
// offset just past that line ending.
func readLine(content []byte, pos int) (string, int) {
	idx := bytes.IndexByte(content[pos:], '\n')
	if idx < 0 {
		return strings.TrimSuffix(string(content[pos:]), "\r"), len(content)
	}
	return strings.TrimSuffix(string(content[pos:pos+idx]), "\r"), pos + idx + 1
}

// Join reassembles a document from raw frontmatter and body.
//
// If had is false, Join returns body as-is.
func Join(frontmatter []byte, body []byte, had bool, style Style) []byte {
	if !had {
		return body
	}

	nl := style.Newline
	if nl == "" {
		nl = "\n"
	}

	delim := []byte(delimiter + nl)
	out := make([]byte, 0, 2*len(delim)+len(frontmatter)+len(body))
	out = append(out, delim...)
	out = append(out, frontmatter...)
	out = append(out, delim...)
	out = append(out, body...)
	return out
}

// Parse splits rawText and decodes its front matter block.
//
// A document without a leading delimiter yields an empty FrontMatter and the
// input unchanged as body.
func Parse(rawText []byte) (FrontMatter, []byte, error) {
	block, body, had, _, err := Split(rawText)
	if err != nil {
		return FrontMatter{}, nil, err
	}
	if !had {
		return FrontMatter{}, body, nil
	}
	fm, err := Decode(block)
	if err != nil {
		return FrontMatter{}, nil, err
	}
	return fm, body, nil
}

// Decode decodes a front matter block (without delimiters).
//
// Keys must be scalars and unique. Strings, integers, booleans and lists of
// scalars map to their typed variants; every other value is kept as KindRaw.
func Decode(block []byte) (FrontMatter, error) {
	var fm FrontMatter
	if len(bytes.TrimSpace(block)) == 0 {
		return fm, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return fm, fmt.Errorf("%w: %w", ErrMalformedFrontMatter, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		// comments only
		return fm, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return fm, nil
	}
	if root.Kind != yaml.MappingNode {
		return fm, fmt.Errorf("%w: line %d: expected key: value pairs", ErrMalformedFrontMatter, root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode || keyNode.Value == "" {
			return FrontMatter{}, fmt.Errorf("%w: line %d: key must be a non-empty scalar", ErrMalformedFrontMatter, keyNode.Line)
		}
		if fm.Has(keyNode.Value) {
			return FrontMatter{}, fmt.Errorf("%w: line %d: duplicate key %q", ErrMalformedFrontMatter, keyNode.Line, keyNode.Value)
		}
		value, err := valueFromNode(valueNode)
		if err != nil {
			return FrontMatter{}, fmt.Errorf("%w: line %d: key %q: %w", ErrMalformedFrontMatter, valueNode.Line, keyNode.Value, err)
		}
		fm.Set(keyNode.Value, value)
	}
	return fm, nil
}

func valueFromNode(n *yaml.Node) (Value, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		return valueFromNode(n.Alias)
	}

	switch n.Kind {
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return Raw("null"), nil
		case "!!str":
			return String(n.Value), nil
		case "!!int":
			var i int64
			if err := n.Decode(&i); err == nil {
				return Int(i), nil
			}
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err == nil {
				return Bool(b), nil
			}
		}
	case yaml.SequenceNode:
		if items, ok := scalarItems(n); ok {
			return List(items...), nil
		}
	}

	text, err := yaml.Marshal(n)
	if err != nil {
		return Value{}, err
	}
	return Raw(string(text)), nil
}

func scalarItems(seq *yaml.Node) ([]string, bool) {
	items := make([]string, 0, len(seq.Content))
	for _, item := range seq.Content {
		if item.Kind != yaml.ScalarNode || item.ShortTag() == "!!null" {
			return nil, false
		}
		items = append(items, item.Value)
	}
	return items, true
}

func detectStyle(content []byte) Style {
	newline := "\n"
	if idx := bytes.IndexByte(content, '\n'); idx > 0 && content[idx-1] == '\r' {
		newline = "\r\n"
	}

	return Style{
		Newline:            newline,
		HasTrailingNewline: len(content) > 0 && content[len(content)-1] == '\n',
	}
}
