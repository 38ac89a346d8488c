package markdown

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnterminatedCodeFence indicates a fenced code block that is still open at
// the end of the body.
var ErrUnterminatedCodeFence = errors.New("unterminated code fence")

// State is the block-level state of the line scanner.
type State int

const (
	StateParagraph State = iota
	StateHeading
	StateListItem
	StateCodeFence
	StateBlockQuote
	StateFootnoteDef
)

func (s State) String() string {
	switch s {
	case StateParagraph:
		return "paragraph"
	case StateHeading:
		return "heading"
	case StateListItem:
		return "list_item"
	case StateCodeFence:
		return "code_fence"
	case StateBlockQuote:
		return "block_quote"
	case StateFootnoteDef:
		return "footnote_def"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FootnoteRef is a `[^id]` marker found outside code.
type FootnoteRef struct {
	ID   string
	Line int
}

// FootnoteDef is a `[^id]: text` definition.
type FootnoteDef struct {
	ID   string
	Line int
}

// CodeBlock is a fenced or indented code block and its declared language
// (may be empty).
type CodeBlock struct {
	Language string
	Indented bool
	Line     int
	EndLine  int
}

// Heading is an ATX heading.
type Heading struct {
	Level int
	Text  string
	Line  int
}

// Analysis is what the scanner learned about a body. Line numbers are 1-based
// and relative to the body.
type Analysis struct {
	FootnoteRefs []FootnoteRef
	FootnoteDefs []FootnoteDef
	CodeBlocks   []CodeBlock
	Headings     []Heading
}

// Languages returns the distinct declared code block languages in order of
// first appearance.
func (a *Analysis) Languages() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, cb := range a.CodeBlocks {
		if cb.Language == "" {
			continue
		}
		if _, ok := seen[cb.Language]; ok {
			continue
		}
		seen[cb.Language] = struct{}{}
		out = append(out, cb.Language)
	}
	return out
}

var (
	footnoteDefRe = regexp.MustCompile(`^\[\^([^\]\s]+)\]:[ \t]?(.*)$`)
	footnoteRefRe = regexp.MustCompile(`\[\^([^\]\s]+)\]`)
	headingRe     = regexp.MustCompile(`^(#{1,6})(?:[ \t]+(.*?))?(?:[ \t]+#+)?[ \t]*$`)
	listMarkerRe  = regexp.MustCompile(`^(?:[-*+]|\d{1,9}[.)])(?:[ \t]+|$)`)
)

// fence is the open code block. A zero char marks an indented code block.
type fence struct {
	char   byte
	length int
	block  int // index into Analysis.CodeBlocks
	// base is the content column of the enclosing list item or footnote
	// definition, depth the blockquote nesting the block was opened in.
	base  int
	depth int
}

func (f fence) indented() bool { return f.char == 0 }

// Scanner is a line-oriented state machine over a Markdown body.
//
// Inside StateCodeFence lines are skipped verbatim until the block ends; no
// inline pattern is ever applied to them. Indented code blocks share that
// state. Block boundaries follow CommonMark as rendered by goldmark: a fence
// also ends when its blockquote or list item ends, and footnote definitions
// continue on lines indented by four columns.
type Scanner struct {
	state State
	fence fence
	line  int

	// container is StateListItem or StateFootnoteDef while base > 0.
	container State
	base      int
	blank     bool // previous line was blank
	para      bool // a paragraph is open and takes continuation lines

	analysis Analysis
}

// NewScanner returns a scanner in StateParagraph.
func NewScanner() *Scanner {
	return &Scanner{state: StateParagraph, blank: true}
}

// State returns the current state.
func (s *Scanner) State() State { return s.state }

// Scan runs a fresh scanner over body.
func Scan(body []byte) (*Analysis, error) {
	s := NewScanner()
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), len(body)+1)
	for sc.Scan() {
		s.Step(strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return s.Finish()
}

// Step feeds the next line (without line ending).
func (s *Scanner) Step(line string) {
	s.line++
	indent, content, depth := splitLine(line)
	blank := strings.TrimSpace(content) == ""
	defer func() { s.blank = blank }()

	if s.state == StateCodeFence && s.continueCode(indent, content, depth, blank) {
		return
	}

	if blank {
		s.para = false
		s.state = s.outer()
		return
	}

	if s.base > 0 && indent < s.base {
		if s.blank || !s.para || startsBlock(content, depth) {
			s.base = 0
			s.state = StateParagraph
		} else {
			// lazy continuation of the open paragraph
			s.scanInline(content)
			return
		}
	}
	rel := indent - s.base

	if rel >= 4 {
		if !s.para {
			s.openCode(fence{}, "", depth)
			return
		}
		s.scanInline(content)
		return
	}

	if f, lang, ok := opensFence(content); ok {
		s.openCode(f, lang, depth)
		return
	}

	switch {
	case footnoteDefRe.MatchString(content):
		m := footnoteDefRe.FindStringSubmatch(content)
		s.analysis.FootnoteDefs = append(s.analysis.FootnoteDefs, FootnoteDef{ID: m[1], Line: s.line})
		s.base += 4
		s.container = StateFootnoteDef
		s.state = StateFootnoteDef
		s.para = strings.TrimSpace(m[2]) != ""
		s.scanInline(m[2])
	case depth > 0:
		s.state = StateBlockQuote
		s.para = true
		s.scanInline(content)
	case headingRe.MatchString(content):
		m := headingRe.FindStringSubmatch(content)
		s.analysis.Headings = append(s.analysis.Headings, Heading{Level: len(m[1]), Text: strings.TrimSpace(m[2]), Line: s.line})
		s.state = StateHeading
		s.para = false
		s.scanInline(m[2])
	case listMarkerRe.MatchString(content):
		s.openListItem(indent, content, depth)
	default:
		s.state = s.outer()
		s.para = true
		s.scanInline(content)
	}
}

// Finish ends the scan and returns the analysis.
func (s *Scanner) Finish() (*Analysis, error) {
	if s.state == StateCodeFence && !s.fence.indented() {
		open := s.analysis.CodeBlocks[s.fence.block].Line
		return nil, &PositionError{Line: open, Err: ErrUnterminatedCodeFence}
	}
	out := s.analysis
	return &out, nil
}

// outer is the state of a line that opens no block of its own.
func (s *Scanner) outer() State {
	if s.base > 0 {
		return s.container
	}
	return StateParagraph
}

func (s *Scanner) openListItem(indent int, content string, depth int) {
	loc := listMarkerRe.FindStringIndex(content)
	rest := content[loc[1]:]
	width := loc[1]
	if rest == "" {
		width = len(strings.TrimRight(content[:loc[1]], " \t")) + 1
	}
	s.base = indent + width
	s.container = StateListItem
	s.state = StateListItem
	s.para = false
	if f, lang, ok := opensFence(rest); ok {
		s.openCode(f, lang, depth)
		return
	}
	if rest != "" {
		s.para = true
		s.scanInline(rest)
	}
}

func (s *Scanner) openCode(f fence, lang string, depth int) {
	s.analysis.CodeBlocks = append(s.analysis.CodeBlocks, CodeBlock{
		Language: lang,
		Indented: f.indented(),
		Line:     s.line,
		EndLine:  s.line,
	})
	f.block = len(s.analysis.CodeBlocks) - 1
	f.base = s.base
	f.depth = depth
	s.fence = f
	s.state = StateCodeFence
	s.para = false
}

// continueCode consumes a line inside the open code block and reports whether
// the line belonged to it. A line that ends the block without closing it (it
// leaves the enclosing container, or dedents an indented block) is left for
// normal processing.
func (s *Scanner) continueCode(indent int, content string, depth int, blank bool) bool {
	f := s.fence
	block := &s.analysis.CodeBlocks[f.block]

	if depth < f.depth || (!blank && indent < f.base) {
		s.state = s.outer()
		return false
	}
	if f.indented() {
		if blank {
			return true
		}
		if indent-f.base >= 4 {
			block.EndLine = s.line
			return true
		}
		s.state = s.outer()
		return false
	}

	if !blank {
		block.EndLine = s.line
	}
	if indent-f.base <= 3 && closesFence(content, f) {
		s.state = s.outer()
	}
	return true
}

// startsBlock reports whether content opens a block that interrupts a
// paragraph.
func startsBlock(content string, depth int) bool {
	if depth > 0 {
		return true
	}
	if _, _, ok := opensFence(content); ok {
		return true
	}
	return footnoteDefRe.MatchString(content) ||
		headingRe.MatchString(content) ||
		listMarkerRe.MatchString(content)
}

// splitLine strips blockquote markers and returns the indentation, in
// columns, of what remains along with the quote depth.
func splitLine(line string) (int, string, int) {
	i, col, depth := 0, 0, 0
	for {
		start := col
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			if line[i] == '\t' {
				col += 4 - col%4
			} else {
				col++
			}
			i++
		}
		if i < len(line) && line[i] == '>' && col-start < 4 {
			depth++
			i++
			col++
			if i < len(line) && line[i] == ' ' {
				i++
				col++
			}
			continue
		}
		return col - start, line[i:], depth
	}
}

func opensFence(content string) (fence, string, bool) {
	if len(content) < 3 || (content[0] != '`' && content[0] != '~') {
		return fence{}, "", false
	}
	char := content[0]
	n := 0
	for n < len(content) && content[n] == char {
		n++
	}
	if n < 3 {
		return fence{}, "", false
	}
	info := strings.TrimSpace(content[n:])
	if char == '`' && strings.Contains(info, "`") {
		return fence{}, "", false
	}
	lang := info
	if i := strings.IndexAny(lang, " \t{"); i >= 0 {
		lang = lang[:i]
	}
	return fence{char: char, length: n}, lang, true
}

func closesFence(content string, f fence) bool {
	n := 0
	for n < len(content) && content[n] == f.char {
		n++
	}
	return n >= f.length && strings.TrimSpace(content[n:]) == ""
}

// scanInline records footnote references in text, ignoring code spans,
// HTML comments and backslash-escaped brackets.
func (s *Scanner) scanInline(text string) {
	text = stripInlineCode(text)
	for _, m := range footnoteRefRe.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > 0 && text[m[0]-1] == '\\' {
			continue
		}
		s.analysis.FootnoteRefs = append(s.analysis.FootnoteRefs, FootnoteRef{ID: text[m[2]:m[3]], Line: s.line})
	}
}

// stripInlineCode blanks out code spans and HTML comments on a single line.
func stripInlineCode(text string) string {
	var b strings.Builder
	for i := 0; i < len(text); {
		if strings.HasPrefix(text[i:], "<!--") {
			if end := strings.Index(text[i+4:], "-->"); end >= 0 {
				i += 4 + end + 3
				continue
			}
		}
		if text[i] != '`' {
			b.WriteByte(text[i])
			i++
			continue
		}
		run := 0
		for i+run < len(text) && text[i+run] == '`' {
			run++
		}
		if end := findBacktickRun(text, i+run, run); end >= 0 {
			i = end + run
			b.WriteByte(' ')
			continue
		}
		b.WriteString(text[i : i+run])
		i += run
	}
	return b.String()
}

func findBacktickRun(text string, from, length int) int {
	for i := from; i < len(text); {
		if text[i] != '`' {
			i++
			continue
		}
		run := 0
		for i+run < len(text) && text[i+run] == '`' {
			run++
		}
		if run == length {
			return i
		}
		i += run
	}
	return -1
}

// PositionError attaches a 1-based body line to a Markdown failure.
type PositionError struct {
	Line int
	Err  error
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *PositionError) Unwrap() error { return e.Err }
