package page

import (
	"strings"

	"git.home.luguber.info/inful/pagebuilder/internal/frontmatter"
	"github.com/inful/mdfp"
)

// Fingerprint computes the canonical content fingerprint of a document.
//
// The canonical form:
//   - excludes the fingerprint key itself
//   - serializes front matter in source order with LF newlines
//   - trims a single trailing newline from the serialized YAML before hashing
func Fingerprint(fm frontmatter.FrontMatter, body []byte) (string, error) {
	forHash := fm.Clone()
	forHash.Delete(mdfp.FingerprintField)

	frontmatterForHash := ""
	if forHash.Len() > 0 {
		serialized, err := frontmatter.Encode(forHash, frontmatter.Style{Newline: "\n"})
		if err != nil {
			return "", err
		}
		frontmatterForHash = strings.TrimSuffix(string(serialized), "\n")
	}

	return mdfp.CalculateFingerprintFromParts(frontmatterForHash, string(body)), nil
}
