package research

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

const maxPageBytes = 2 << 20

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"svg":      true,
	"template": true,
	"iframe":   true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "li": true,
	"br": true, "tr": true, "header": true, "footer": true, "main": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// fetchPage downloads url and reduces it to a title and visible text.
func (c *Client) fetchPage(ctx context.Context, url string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "MarketSauceAgent/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.plain.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Page{}, fmt.Errorf("fetch %s: %w: http status %d", url, ErrUpstream, resp.StatusCode)
	}
	return ParseHTML(url, io.LimitReader(resp.Body, maxPageBytes))
}

// ParseHTML extracts the document title and visible text as markdown.
func ParseHTML(url string, r io.Reader) (Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}

	var title string
	var lines []string
	var current strings.Builder
	flush := func() {
		if line := strings.Join(strings.Fields(current.String()), " "); line != "" {
			lines = append(lines, line)
		}
		current.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skippedElements[n.Data] {
				return
			}
			if n.Data == "title" && title == "" && n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
				return
			}
			if blockElements[n.Data] {
				flush()
			}
		}
		if n.Type == html.TextNode {
			current.WriteString(n.Data)
			current.WriteByte(' ')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			flush()
		}
	}
	walk(doc)
	flush()

	var md strings.Builder
	if title != "" {
		md.WriteString("# ")
		md.WriteString(title)
		md.WriteString("\n\n")
	}
	md.WriteString(strings.Join(lines, "\n\n"))
	return Page{URL: url, Title: title, Markdown: strings.TrimSpace(md.String())}, nil
}
