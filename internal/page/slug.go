package page

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/pagebuilder/internal/posts"
	"github.com/goliatone/go-slug"
)

// SlugFromPath derives a stable, URL-safe slug from a content path.
//
// Directory segments are kept, the extension and a dated post prefix are
// dropped, and each segment is normalized. `index` and `README` collapse to
// their directory, so a root index has the empty slug.
func SlugFromPath(p string) (string, error) {
	p = filepath.ToSlash(p)
	dir, base := path.Split(p)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if name, ok := posts.ParseName(p); ok {
		stem = name.Title
	}
	if strings.EqualFold(stem, "index") || strings.EqualFold(stem, "readme") {
		stem = ""
	}

	segments := strings.Split(strings.Trim(dir, "/"), "/")
	segments = append(segments, stem)

	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimLeft(seg, "_.")
		if seg == "" {
			continue
		}
		normalized, err := slug.Normalize(seg)
		if err != nil {
			return "", fmt.Errorf("slug for %q: %w", p, err)
		}
		if normalized != "" {
			out = append(out, normalized)
		}
	}
	return strings.Join(out, "/"), nil
}
