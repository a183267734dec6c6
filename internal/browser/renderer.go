package browser

import (
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/glamour"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vidyasagar/journey/internal/history"
)

// Cached glamour renderer to avoid recreation on every render call.
var (
	cachedRenderer      *glamour.TermRenderer
	cachedRendererWidth int
	rendererMu          sync.Mutex
)

// Link represents a hyperlink found in the page content.
type Link struct {
	Index int
	Text  string
	URL   string
}

// RenderedPage holds the final terminal-ready output.
type RenderedPage struct {
	Title    string
	Markdown string
	Content  string // styled terminal text
	Links    []Link
}

// Pages renders site pages for navigation states and caches the output.
type Pages struct {
	cache *lru.Cache[string, *RenderedPage]
}

// NewPages creates a renderer caching up to size pages.
func NewPages(size int) (*Pages, error) {
	if size <= 0 {
		size = 50
	}
	cache, err := lru.New[string, *RenderedPage](size)
	if err != nil {
		return nil, fmt.Errorf("creating page cache: %w", err)
	}
	return &Pages{cache: cache}, nil
}

// Render returns the page for path as it looks in state s.
func (p *Pages) Render(path string, s history.State, width int) *RenderedPage {
	if width <= 0 {
		width = 80
	}
	key := fmt.Sprintf("%s|%d|%s|%s|%d", path, s.Time, s.Title, s.Session, width)
	if page, ok := p.cache.Get(key); ok {
		return page
	}
	page := Render(pageHTML(path, s), width)
	p.cache.Add(key, page)
	return page
}

// Len returns the number of cached pages.
func (p *Pages) Len() int {
	return p.cache.Len()
}

// Render converts an HTML document into styled terminal text.
func Render(html string, width int) *RenderedPage {
	contentWidth := width - 4
	if contentWidth > 100 {
		contentWidth = 100
	}
	if contentWidth < 20 {
		contentWidth = 20
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return &RenderedPage{Content: html}
	}

	conv := &mdConverter{}
	var md strings.Builder

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title != "" {
		md.WriteString("# " + title + "\n\n")
	}

	doc.Find("body").Children().Each(func(i int, s *goquery.Selection) {
		md.WriteString(conv.convertNode(s, 0))
	})

	rendered, glamErr := renderWithGlamour(md.String(), contentWidth)
	if glamErr != nil {
		// Fallback: use the raw markdown.
		rendered = md.String()
	}

	return &RenderedPage{
		Title:    title,
		Markdown: md.String(),
		Content:  rendered,
		Links:    conv.links,
	}
}

// renderWithGlamour uses glamour to render markdown into styled terminal output.
// Uses a cached renderer to avoid expensive recreation on every call.
func renderWithGlamour(markdown string, width int) (string, error) {
	rendererMu.Lock()
	defer rendererMu.Unlock()

	if cachedRenderer == nil || cachedRendererWidth != width {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", err
		}
		cachedRenderer = renderer
		cachedRendererWidth = width
	}

	return cachedRenderer.Render(markdown)
}

// mdConverter converts goquery HTML nodes to markdown.
type mdConverter struct {
	linkIndex int
	links     []Link
}

func (c *mdConverter) convertNode(s *goquery.Selection, depth int) string {
	var sb strings.Builder

	switch tag := goquery.NodeName(s); tag {
	case "h1", "h2", "h3":
		text := strings.TrimSpace(s.Text())
		if text != "" {
			sb.WriteString(strings.Repeat("#", int(tag[1]-'0')) + " " + text + "\n\n")
		}
	case "p":
		var p strings.Builder
		c.convertInlineChildren(s, &p)
		if text := strings.TrimSpace(p.String()); text != "" {
			sb.WriteString(text + "\n\n")
		}
	case "ul":
		sb.WriteString(c.convertList(s, false, depth))
	case "ol":
		sb.WriteString(c.convertList(s, true, depth))
	case "blockquote":
		s.Children().Each(func(i int, child *goquery.Selection) {
			content := c.convertNode(child, 0)
			for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
				sb.WriteString("> " + line + "\n")
			}
		})
		sb.WriteString("\n")
	case "pre":
		sb.WriteString("```\n" + s.Text() + "\n```\n\n")
	case "table":
		sb.WriteString(c.convertTable(s))
	case "hr":
		sb.WriteString("\n---\n\n")
	case "div", "section", "main", "header", "footer":
		s.Children().Each(func(i int, child *goquery.Selection) {
			sb.WriteString(c.convertNode(child, depth))
		})
	default:
		if text := strings.TrimSpace(s.Text()); text != "" {
			sb.WriteString(text + "\n\n")
		}
	}

	return sb.String()
}

func (c *mdConverter) convertInlineChildren(s *goquery.Selection, sb *strings.Builder) {
	s.Contents().Each(func(i int, child *goquery.Selection) {
		c.convertInline(child, sb)
	})
}

func (c *mdConverter) convertInline(s *goquery.Selection, sb *strings.Builder) {
	switch goquery.NodeName(s) {
	case "#text":
		sb.WriteString(s.Text())
	case "a":
		sb.WriteString(c.convertLink(s))
	case "strong", "b":
		sb.WriteString("**")
		c.convertInlineChildren(s, sb)
		sb.WriteString("**")
	case "em", "i":
		sb.WriteString("*")
		c.convertInlineChildren(s, sb)
		sb.WriteString("*")
	case "code":
		sb.WriteString("`" + s.Text() + "`")
	default:
		c.convertInlineChildren(s, sb)
	}
}

func (c *mdConverter) convertLink(s *goquery.Selection) string {
	href, exists := s.Attr("href")
	text := strings.TrimSpace(s.Text())
	if text == "" {
		text = href
	}
	if !exists || href == "" {
		return text
	}

	c.linkIndex++
	c.links = append(c.links, Link{
		Index: c.linkIndex,
		Text:  text,
		URL:   href,
	})
	return fmt.Sprintf("%s `%s` **[%d]**", text, href, c.linkIndex)
}

func (c *mdConverter) convertList(s *goquery.Selection, ordered bool, depth int) string {
	var sb strings.Builder
	indent := strings.Repeat("  ", depth)

	s.ChildrenFiltered("li").Each(func(i int, li *goquery.Selection) {
		prefix := indent + "- "
		if ordered {
			prefix = fmt.Sprintf("%s%d. ", indent, i+1)
		}

		var item strings.Builder
		li.Contents().Not("ul, ol").Each(func(j int, child *goquery.Selection) {
			c.convertInline(child, &item)
		})
		sb.WriteString(prefix + strings.TrimSpace(item.String()) + "\n")

		li.ChildrenFiltered("ul, ol").Each(func(j int, child *goquery.Selection) {
			sb.WriteString(c.convertList(child, goquery.NodeName(child) == "ol", depth+1))
		})
	})

	return sb.String() + "\n"
}

func (c *mdConverter) convertTable(s *goquery.Selection) string {
	var rows [][]string
	s.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var row []string
		tr.Find("th, td").Each(func(j int, td *goquery.Selection) {
			row = append(row, strings.TrimSpace(td.Text()))
		})
		rows = append(rows, row)
	})
	if len(rows) == 0 || len(rows[0]) == 0 {
		return ""
	}

	var sb strings.Builder
	cols := len(rows[0])
	sb.WriteString("| " + strings.Join(rows[0], " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", cols) + "\n")
	for _, row := range rows[1:] {
		for len(row) < cols {
			row = append(row, "")
		}
		sb.WriteString("| " + strings.Join(row[:cols], " | ") + " |\n")
	}
	sb.WriteString("\n")
	return sb.String()
}
