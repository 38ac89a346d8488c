package markdown

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTMLPolicy_CheckFragment(t *testing.T) {
	p := DefaultHTMLPolicy()

	tests := []struct {
		name     string
		fragment string
		wantErr  bool
	}{
		{"inline span", `<span class="note">`, false},
		{"closing tag", `</span>`, false},
		{"kbd", `<kbd>Ctrl</kbd>`, false},
		{"comment", `<!-- draft -->`, false},
		{"details block", "<details>\n<summary>More</summary>\n</details>\n", false},
		{"safe link", `<a href="https://example.com">`, false},
		{"data image", `<img src="data:image/png;base64,AAAA">`, false},
		{"script", `<script>alert(1)</script>`, true},
		{"uppercase script", `<SCRIPT src="x.js">`, true},
		{"iframe", `<iframe src="https://example.com"></iframe>`, true},
		{"style", `<style>body{}</style>`, true},
		{"meta", `<meta http-equiv="refresh" content="0">`, true},
		{"event handler", `<img src="x.png" onerror="alert(1)">`, true},
		{"javascript href", `<a href="javascript:alert(1)">`, true},
		{"obfuscated javascript href", `<a href=" JaVa&#x09;Script:alert(1)">`, true},
		{"vbscript", `<a href="vbscript:msgbox">`, true},
		{"data html", `<a href="data:text/html,<b>x</b>">`, true},
		{"svg animate href", `<svg><a><animate attributeName="href" values="javascript:alert(1)"/><text x="20" y="20">Click</text></a></svg>`, true},
		{"svg set href", `<svg><set attributeName="href" to="javascript:alert(1)"/></svg>`, true},
		{"svg animateMotion", `<svg><animateMotion dur="1s" path="M0,0 L10,10"/></svg>`, true},
		{"svg animateTransform", `<svg><animateTransform attributeName="transform" type="rotate"/></svg>`, true},
		{"static svg", `<svg width="10" height="10"><circle cx="5" cy="5" r="4"/></svg>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.CheckFragment(tt.fragment)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.ErrorIs(t, err, ErrDisallowedHTML)
			var v *Violation
			require.True(t, errors.As(err, &v))
		})
	}
}

func TestHTMLPolicy_AnimatedURLAttribute(t *testing.T) {
	p := DefaultHTMLPolicy()

	err := p.CheckFragment(`<discard attributeName="xlink:href" values="https://fmt.dev; javascript:alert(1)">`)
	var v *Violation
	require.True(t, errors.As(err, &v))
	require.Equal(t, "values", v.Attr)
	require.Equal(t, "animated URL scheme is not allowed", v.Reason)

	require.ErrorIs(t, p.CheckFragment(`<discard attributeName="HREF" from="vbscript:x">`), ErrDisallowedHTML)
	require.NoError(t, p.CheckFragment(`<discard attributeName="href" values="https://fmt.dev;/posts/">`))
	require.NoError(t, p.CheckFragment(`<discard attributeName="opacity" values="javascript:0;1">`))
}

func TestHTMLPolicy_ExtraTagsAndEscapeMode(t *testing.T) {
	p := NewHTMLPolicy(PolicyAllowList, " Form ", "")
	require.True(t, p.Disallows("form"))
	require.True(t, p.Disallows("SCRIPT"))
	require.False(t, p.Disallows("span"))
	require.ErrorIs(t, p.CheckFragment(`<form action="/x">`), ErrDisallowedHTML)

	esc := NewHTMLPolicy(PolicyEscape)
	require.Equal(t, PolicyEscape, esc.Mode())
	require.NoError(t, esc.CheckFragment(`<script>alert(1)</script>`))
	require.ErrorIs(t, esc.CheckURL("javascript:alert(1)"), ErrDisallowedHTML)

	require.Equal(t, PolicyAllowList, NewHTMLPolicy("bogus").Mode())
}

func TestIsDangerousURL(t *testing.T) {
	require.False(t, IsDangerousURL("https://fmt.dev"))
	require.False(t, IsDangerousURL("/posts/rust-vs-cpp/"))
	require.False(t, IsDangerousURL("#fn:1"))
	require.True(t, IsDangerousURL("javascript:void(0)"))
	require.True(t, IsDangerousURL("\tjavascript:void(0)"))
	require.True(t, IsDangerousURL("file:///etc/passwd"))
}
