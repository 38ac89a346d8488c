package page

import (
	"errors"
	"fmt"
	"math"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/pagebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/pagebuilder/internal/posts"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalidMetadata is returned when a known front matter key holds a value
// of the wrong shape.
var ErrInvalidMetadata = errors.New("invalid metadata")

// Well-known front matter keys.
const (
	KeyTitle      = "title"
	KeyOrder      = "order"
	KeyIcon       = "icon"
	KeyTags       = "tags"
	KeyCategory   = "category"
	KeyCategories = "categories"
	KeyDate       = "date"
	KeyDraft      = "draft"
)

// Metadata is the typed view over the well-known front matter keys. Unknown
// keys stay in the FrontMatter untouched.
type Metadata struct {
	Title      string
	Order      *int
	Icon       string
	Tags       Set
	Categories Set
	Date       time.Time
	Draft      bool
}

// DecodeMetadata reads the well-known keys. Absent keys take their zero
// defaults; a present key with the wrong shape fails with ErrInvalidMetadata.
func DecodeMetadata(fm frontmatter.FrontMatter) (Metadata, error) {
	var md Metadata
	var err error

	if v, ok := fm.Get(KeyTitle); ok {
		if md.Title, err = scalarString(KeyTitle, v); err != nil {
			return Metadata{}, err
		}
	}
	if v, ok := fm.Get(KeyIcon); ok {
		if md.Icon, err = scalarString(KeyIcon, v); err != nil {
			return Metadata{}, err
		}
	}
	if v, ok := fm.Get(KeyOrder); ok {
		if md.Order, err = decodeOrder(v); err != nil {
			return Metadata{}, err
		}
	}
	if md.Tags, err = decodeSet(fm, KeyTags); err != nil {
		return Metadata{}, err
	}
	if md.Categories, err = decodeSet(fm, KeyCategory, KeyCategories); err != nil {
		return Metadata{}, err
	}
	if v, ok := fm.Get(KeyDate); ok {
		if md.Date, err = decodeDate(v); err != nil {
			return Metadata{}, err
		}
	}
	if v, ok := fm.Get(KeyDraft); ok {
		b, isBool := v.AsBool()
		if !isBool {
			return Metadata{}, invalid(KeyDraft, "boolean", v)
		}
		md.Draft = b
	}
	return md, nil
}

func invalid(key, want string, v frontmatter.Value) error {
	return fmt.Errorf("%w: %s: expected %s, got %s", ErrInvalidMetadata, key, want, v.Kind())
}

func scalarString(key string, v frontmatter.Value) (string, error) {
	switch v.Kind() {
	case frontmatter.KindString:
		s, _ := v.AsString()
		return s, nil
	case frontmatter.KindInt:
		n, _ := v.AsInt()
		return strconv.FormatInt(n, 10), nil
	default:
		return "", invalid(key, "string", v)
	}
}

func decodeOrder(v frontmatter.Value) (*int, error) {
	var n int64
	switch v.Kind() {
	case frontmatter.KindInt:
		n, _ = v.AsInt()
	case frontmatter.KindString:
		s, _ := v.AsString()
		parsed, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %q is not an integer", ErrInvalidMetadata, KeyOrder, s)
		}
		n = parsed
	default:
		return nil, invalid(KeyOrder, "integer", v)
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return nil, fmt.Errorf("%w: %s: %d out of range", ErrInvalidMetadata, KeyOrder, n)
	}
	order := int(n)
	return &order, nil
}

func decodeSet(fm frontmatter.FrontMatter, keys ...string) (Set, error) {
	var values []string
	for _, key := range keys {
		v, ok := fm.Get(key)
		if !ok {
			continue
		}
		switch v.Kind() {
		case frontmatter.KindList:
			items, _ := v.AsList()
			values = append(values, items...)
		case frontmatter.KindString:
			s, _ := v.AsString()
			values = append(values, s)
		default:
			return Set{}, invalid(key, "string or list of strings", v)
		}
	}
	return NewSet(values...), nil
}

func decodeDate(v frontmatter.Value) (time.Time, error) {
	var s string
	switch v.Kind() {
	case frontmatter.KindString:
		s, _ = v.AsString()
	case frontmatter.KindRaw:
		// unquoted YAML timestamps are kept as raw text
		s, _ = v.RawYAML()
	default:
		return time.Time{}, invalid(KeyDate, "date", v)
	}
	s = strings.TrimSpace(s)
	for _, layout := range []string{posts.DateLayout, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s: %q is not YYYY-MM-DD or RFC 3339", ErrInvalidMetadata, KeyDate, s)
}

// ResolveTitle returns declared when set, else heading, else a title made
// from the file name.
func ResolveTitle(declared, heading, p string) string {
	if t := strings.TrimSpace(declared); t != "" {
		return t
	}
	if t := strings.TrimSpace(heading); t != "" {
		return t
	}
	return TitleFromPath(p)
}

// TitleFromPath title-cases the file name of p, using the directory name for
// index and README files.
func TitleFromPath(p string) string {
	p = filepath.ToSlash(p)
	stem := strings.TrimSuffix(path.Base(p), path.Ext(p))
	if name, ok := posts.ParseName(p); ok {
		stem = name.Title
	}
	if strings.EqualFold(stem, "index") || strings.EqualFold(stem, "readme") {
		if dir := path.Base(path.Dir(p)); dir != "." && dir != "/" {
			stem = dir
		}
	}
	stem = strings.Trim(stem, "_.")
	words := strings.FieldsFunc(stem, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// ResolveDate returns declared when set, else the date of a dated post name.
func ResolveDate(declared time.Time, p string) time.Time {
	if !declared.IsZero() {
		return declared
	}
	if name, ok := posts.ParseName(p); ok {
		return name.Date
	}
	return time.Time{}
}
