// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "https://mirror.example"

func mustParse(t *testing.T, html string) *Page {
	t.Helper()
	p, err := Parse([]byte(html), base)
	require.NoError(t, err)
	return p
}

func TestHexIdentifier(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		marker string
		wantID string
		wantOK bool
	}{
		{
			"md5 path marker",
			`<a href="/md5/0123456789abcdef0123456789abcdef">Book</a>`,
			"/md5/", "0123456789abcdef0123456789abcdef", true,
		},
		{
			"md5 query marker",
			`<a href="book/index.php?md5=ABCDEF0123456789ABCDEF0123456789">dl</a>`,
			"md5=", "abcdef0123456789abcdef0123456789", true,
		},
		{
			"first of several wins",
			`<a href="/md5/aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa">1</a>
			 <a href="/md5/bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb">2</a>`,
			"/md5/", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", true,
		},
		{
			// U+212A lowercases to a shorter byte sequence; the id after
			// the marker must still come out aligned.
			"multibyte rune before marker",
			"<a href=\"/K/md5/0123456789abcdef0123456789abcdef\">x</a>",
			"/md5/", "0123456789abcdef0123456789abcdef", true,
		},
		{
			"too short is skipped",
			`<a href="/md5/abc123">nope</a>`,
			"/md5/", "", false,
		},
		{
			"non-hex is skipped",
			`<a href="/md5/zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz">nope</a>`,
			"/md5/", "", false,
		},
		{
			"marker absent",
			`<a href="/other/0123456789abcdef0123456789abcdef">x</a>`,
			"/md5/", "", false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustParse(t, tt.html)
			id, ok := p.HexIdentifier(tt.marker)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestHrefContaining(t *testing.T) {
	p := mustParse(t, `
		<a href="/about">About</a>
		<a href="/get.php?md5=x">Download</a>
		<a href="/get.php?md5=y">Other</a>`)

	got, ok := p.HrefContaining("get.php")
	require.True(t, ok)
	assert.Equal(t, base+"/get.php?md5=x", got)

	_, ok = p.HrefContaining("cloudflare")
	assert.False(t, ok)
}

func TestHrefWithExtension(t *testing.T) {
	p := mustParse(t, `
		<a href="/covers/book.jpg">cover</a>
		<a href="/files/book.EPUB">epub</a>
		<a href="/files/book.pdf">pdf</a>`)

	got, ok := p.HrefWithExtension("epub", "pdf")
	require.True(t, ok)
	assert.Equal(t, base+"/files/book.EPUB", got)
}

func TestLinkWithText(t *testing.T) {
	p := mustParse(t, `
		<a href="/fast">Fast Partner Server</a>
		<a href="/slow">Slow download</a>
		<h2><a href="/get">GET</a></h2>`)

	got, ok := p.LinkWithText("slow download")
	require.True(t, ok)
	assert.Equal(t, base+"/slow", got)

	got, ok = p.LinkWithText("get")
	require.True(t, ok)
	assert.Equal(t, base+"/get", got)
}

func TestAbsoluteResolution(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"relative path", `<a href="book/index.php">x</a>`, base + "/book/index.php"},
		{"rooted path", `<a href="/book/index.php">x</a>`, base + "/book/index.php"},
		{"absolute passes through", `<a href="https://other.example/f.pdf">x</a>`, "https://other.example/f.pdf"},
		{"protocol relative", `<a href="//cdn.example/f.pdf">x</a>`, "https://cdn.example/f.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustParse(t, tt.html)
			got, ok := p.HrefContaining("")
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
