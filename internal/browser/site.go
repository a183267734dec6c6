package browser

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/vidyasagar/journey/internal/history"
)

// site holds the built-in pages, keyed by pathname.
var site = map[string]struct{ title, body string }{
	"/": {
		title: "Home",
		body: `<p>Every page you open here lands in the session history. Move
<em>back</em> and <em>forward</em>, edit the location by hand, or restart and
watch old entries come back as orphans.</p>
<ul>
<li><a href="/docs">Documentation</a></li>
<li><a href="/notes/1">First note</a></li>
<li><a href="/notes/2">Second note</a></li>
<li><a href="#help">Keys</a></li>
</ul>`,
	},
	"/docs": {
		title: "Documentation",
		body: `<h2>Chain</h2>
<p>The chain is the ordered list of states this run knows about. Each state
carries a <code>time</code>, a <code>title</code> and a <code>session</code>.</p>
<ul>
<li><a href="#intro">Introduction</a></li>
<li><a href="#orphans">Orphans</a></li>
<li><a href="/">Home</a></li>
</ul>`,
	},
	"/notes/1": {
		title: "First note",
		body: `<blockquote><p>Pushing from the middle of the chain discards the
entries after it.</p></blockquote>
<p><a href="/notes/2">Next note</a></p>`,
	},
	"/notes/2": {
		title: "Second note",
		body: `<p>States with an unknown session are reported once, then adopted.</p>
<p><a href="/notes/1">Previous note</a> <a href="/">Home</a></p>`,
	},
}

var helpBody = `<h2>Keys</h2>
<ul>
<li><code>o</code> open a path (push)</li>
<li><code>e</code> edit the location by hand</li>
<li><code>t</code> retitle the current entry (set)</li>
<li><code>h</code> / <code>l</code> back / forward</li>
<li><code>f</code> follow a numbered link</li>
<li><code>H</code> chain panel, <code>R</code> restart, <code>q</code> quit</li>
</ul>`

// pageHTML builds the document shown for path in state s.
func pageHTML(path string, s history.State) string {
	loc := ParseLocation(path)

	title := "Not found"
	body := `<p>Nothing lives at this path. <a href="/">Home</a></p>`
	if page, ok := site[loc.Path]; ok {
		title, body = page.title, page.body
	}
	if loc.Fragment == "#help" {
		body = helpBody
	} else if loc.Fragment != "" {
		body = fmt.Sprintf("<h2>%s</h2>\n", html.EscapeString(strings.TrimPrefix(loc.Fragment, "#"))) + body
	}
	if s.Title != "" && s.Title != title {
		title = s.Title
	}

	var sb strings.Builder
	sb.WriteString("<html><head><title>" + html.EscapeString(title) + "</title></head><body>\n")
	sb.WriteString(body)
	sb.WriteString("\n<hr>\n")
	sb.WriteString(stateTable(path, s))
	sb.WriteString("\n</body></html>")
	return sb.String()
}

func stateTable(path string, s history.State) string {
	session := string(s.Session)
	if session == "" {
		session = "(orphan)"
	}

	rows := [][2]string{
		{"path", path},
		{"time", fmt.Sprint(s.Time)},
		{"title", s.Title},
		{"session", session},
	}
	keys := make([]string, 0, len(s.Fields))
	for k := range s.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, [2]string{k, fmt.Sprint(s.Fields[k])})
	}

	var sb strings.Builder
	sb.WriteString("<table><tr><th>state</th><th>value</th></tr>")
	for _, r := range rows {
		sb.WriteString("<tr><td>" + html.EscapeString(r[0]) + "</td><td>" + html.EscapeString(r[1]) + "</td></tr>")
	}
	sb.WriteString("</table>")
	return sb.String()
}

// TitleFor returns the built-in title for path, or "" when the path has no
// page.
func TitleFor(path string) string {
	if page, ok := site[ParseLocation(path).Path]; ok {
		return page.title
	}
	return ""
}
