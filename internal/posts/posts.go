// Package posts handles dated post file names of the form
// `_posts/YYYY-MM-DD-title.md`.
package posts

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"git.home.luguber.info/inful/pagebuilder/internal/docmodel"
	"git.home.luguber.info/inful/pagebuilder/internal/frontmatter"
)

// DateLayout is the date format used in post names and the `date` key.
const DateLayout = "2006-01-02"

// Dir is the conventional directory for dated posts.
const Dir = "_posts"

var (
	ErrNotDated     = errors.New("post name is not dated")
	ErrTargetExists = errors.New("target post already exists")
)

var datedName = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)$`)

// Name is a parsed dated post file name.
type Name struct {
	Dir   string
	Date  time.Time
	Title string
	Ext   string
}

// ParseName parses the base name of p. ok is false when the name does not
// start with a valid YYYY-MM-DD- prefix.
func ParseName(p string) (Name, bool) {
	p = filepath.ToSlash(p)
	dir, base := path.Split(p)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	m := datedName.FindStringSubmatch(stem)
	if m == nil {
		return Name{}, false
	}
	date, err := time.Parse(DateLayout, m[1])
	if err != nil {
		return Name{}, false
	}
	return Name{
		Dir:   strings.TrimSuffix(dir, "/"),
		Date:  date,
		Title: m[2],
		Ext:   ext,
	}, true
}

// Base returns the file name for n.
func (n Name) Base() string {
	return n.Date.Format(DateLayout) + "-" + n.Title + n.Ext
}

// Path returns the slash-separated path for n.
func (n Name) Path() string {
	return path.Join(n.Dir, n.Base())
}

// WithDate returns n dated at t (the time of day is dropped).
func (n Name) WithDate(t time.Time) Name {
	n.Date = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return n
}

// Roll renames the dated post at p so it carries now's date, keeping the
// title part. A `date` key in the post's front matter is rewritten to match.
// It returns the new path; when the post is already dated today nothing
// changes.
func Roll(p string, now time.Time) (string, error) {
	name, ok := ParseName(p)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotDated, p)
	}
	rolled := name.WithDate(now)
	target := filepath.Join(filepath.Dir(p), rolled.Base())
	if rolled.Date.Equal(name.Date) {
		return p, nil
	}

	if _, err := os.Stat(target); err == nil {
		return "", fmt.Errorf("%w: %s", ErrTargetExists, target)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	doc, err := docmodel.ParseOSFile(p)
	if err != nil {
		return "", err
	}
	content, err := redate(doc, rolled.Date)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(p)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(target, content, info.Mode().Perm()); err != nil {
		return "", err
	}
	if err := os.Remove(p); err != nil {
		_ = os.Remove(target)
		return "", err
	}
	return target, nil
}

func redate(doc *docmodel.ParsedDoc, date time.Time) ([]byte, error) {
	fm := doc.FrontMatter()
	if !fm.Has("date") {
		return doc.Bytes(), nil
	}
	fm.Set("date", frontmatter.String(date.Format(DateLayout)))
	block, err := frontmatter.Encode(fm, doc.Style())
	if err != nil {
		return nil, err
	}
	return frontmatter.Join(block, doc.Body(), true, doc.Style()), nil
}
