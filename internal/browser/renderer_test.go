package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyasagar/journey/internal/history"
)

func TestRenderBasicHTML(t *testing.T) {
	page := Render(`<html><head><title>Test Page</title></head><body>
<p>Hello world. This is a <strong>bold</strong> and <em>italic</em> test.</p>
<p>Here is a <a href="/docs">link to docs</a> and <a href="#help">help</a>.</p>
<ul>
<li>Item one</li>
<li>Item two<ul><li>Nested</li></ul></li>
</ul>
<pre>go run ./cmd/journey</pre>
<blockquote><p>This is a quote</p></blockquote>
</body></html>`, 80)

	require.Len(t, page.Links, 2)
	assert.Equal(t, Link{Index: 1, Text: "link to docs", URL: "/docs"}, page.Links[0])
	assert.Equal(t, "#help", page.Links[1].URL)
	assert.Equal(t, "Test Page", page.Title)
	assert.NotEmpty(t, page.Content)

	assert.Contains(t, page.Markdown, "# Test Page")
	assert.Contains(t, page.Markdown, "**bold**")
	assert.Contains(t, page.Markdown, "- Item two\n  - Nested")
	assert.Contains(t, page.Markdown, "> This is a quote")
}

func TestRenderWithTable(t *testing.T) {
	page := Render(`<table>
<tr><th>Name</th><th>Value</th></tr>
<tr><td>Foo</td><td>Bar</td></tr>
</table>`, 80)

	assert.Contains(t, page.Markdown, "| Name | Value |")
	assert.Contains(t, page.Markdown, "| Foo | Bar |")
}

func TestRenderEmpty(t *testing.T) {
	page := Render("", 80)
	require.NotNil(t, page)
	assert.Empty(t, page.Links)
}

func TestPagesShowState(t *testing.T) {
	pages, err := NewPages(4)
	require.NoError(t, err)

	s := history.State{Time: 42, Title: "Documentation", Session: "run-1", Fields: map[string]any{"scroll": 3}}
	page := pages.Render("/docs#intro", s, 80)

	assert.Equal(t, "Documentation", page.Title)
	assert.Contains(t, page.Markdown, "## intro")
	assert.Contains(t, page.Markdown, "| time | 42 |")
	assert.Contains(t, page.Markdown, "| session | run-1 |")
	assert.Contains(t, page.Markdown, "| scroll | 3 |")
	assert.NotEmpty(t, page.Links)
}

func TestPagesCache(t *testing.T) {
	pages, err := NewPages(2)
	require.NoError(t, err)

	s := history.State{Time: 1}
	first := pages.Render("/", s, 80)
	assert.Same(t, first, pages.Render("/", s, 80))

	// A retitled state is a different page.
	s.Title = "Renamed"
	renamed := pages.Render("/", s, 80)
	assert.NotSame(t, first, renamed)
	assert.Equal(t, "Renamed", renamed.Title)

	pages.Render("/docs", s, 80)
	assert.Equal(t, 2, pages.Len())
}

func TestPagesOrphanAndUnknownPath(t *testing.T) {
	pages, err := NewPages(0)
	require.NoError(t, err)

	page := pages.Render("/nowhere", history.State{Time: 7}, 80)
	assert.Equal(t, "Not found", page.Title)
	assert.Contains(t, page.Markdown, "(orphan)")
	assert.Empty(t, TitleFor("/nowhere"))
	assert.Equal(t, "Home", TitleFor("#help"))
}

func TestRenderListItems(t *testing.T) {
	page := Render(`<ol><li>first</li><li><a href="/b">second</a></li></ol>
<ul><li>loose</li></ul>`, 80)

	assert.Contains(t, page.Markdown, "1. first")
	assert.Contains(t, page.Markdown, "2. second `/b` **[1]**")
	assert.Contains(t, page.Markdown, "- loose")
	require.Len(t, page.Links, 1)
}

func TestPagesHomeLinksAreNumbered(t *testing.T) {
	pages, err := NewPages(4)
	require.NoError(t, err)

	page := pages.Render("/", history.State{Time: 1}, 80)
	require.Len(t, page.Links, 4)
	assert.Equal(t, Link{Index: 1, Text: "Documentation", URL: "/docs"}, page.Links[0])
	assert.Equal(t, "#help", page.Links[3].URL)
}
