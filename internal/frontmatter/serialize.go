package frontmatter

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Encode serializes fm into YAML bytes (without delimiters), keeping key order.
//
// Decode(Encode(fm)) yields a mapping equal to fm. Newlines follow style
// (defaults to \n). An empty mapping encodes to an empty slice.
func Encode(fm FrontMatter, style Style) ([]byte, error) {
	if fm.Len() == 0 {
		return []byte{}, nil
	}

	nl := style.Newline
	if nl == "" {
		nl = "\n"
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range fm.keys {
		valNode, err := nodeFromValue(fm.values[key])
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", key, err)
		}
		root.Content = append(root.Content, strNode(key), valNode)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	out := buf.Bytes()
	if nl != "\n" {
		out = bytes.ReplaceAll(out, []byte("\n"), []byte(nl))
	}
	return out, nil
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func nodeFromValue(v Value) (*yaml.Node, error) {
	switch v.kind {
	case KindString:
		return strNode(v.str), nil
	case KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v.num, 10)}, nil
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.flag)}, nil
	case KindList:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range v.list {
			seq.Content = append(seq.Content, strNode(item))
		}
		return seq, nil
	case KindRaw:
		var doc yaml.Node
		if err := yaml.Unmarshal([]byte(v.str), &doc); err != nil {
			return nil, err
		}
		if len(doc.Content) == 0 {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
		}
		return doc.Content[0], nil
	default:
		return nil, fmt.Errorf("unknown value kind %v", v.kind)
	}
}
