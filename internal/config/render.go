package config

import (
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/normalization"
	"git.home.luguber.info/inful/pagebuilder/internal/markdown"
)

// HTMLPolicy selects how raw HTML in Markdown is treated.
type HTMLPolicy string

const (
	// HTMLPolicyAllowList renders raw HTML and fails documents that use a
	// disallowed tag, attribute or URL.
	HTMLPolicyAllowList HTMLPolicy = HTMLPolicy(markdown.PolicyAllowList)
	// HTMLPolicyEscape renders all raw HTML as text.
	HTMLPolicyEscape HTMLPolicy = HTMLPolicy(markdown.PolicyEscape)
)

var htmlPolicyNormalizer = normalization.NewEnumNormalizer("html policy", map[string]HTMLPolicy{
	"allow-list": HTMLPolicyAllowList,
	"allowlist":  HTMLPolicyAllowList,
	"escape":     HTMLPolicyEscape,
}, HTMLPolicyAllowList)

// PolicyMode converts the configured value for the markdown package.
func (p HTMLPolicy) PolicyMode() markdown.PolicyMode {
	return markdown.PolicyMode(p)
}
