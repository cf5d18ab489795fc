// Package trending reads the GitHub Trending daily page.
package trending

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/joelkehle/trend-digest/internal/analysis"
)

const (
	DefaultURL = "https://github.com/trending?since=daily"
	githubBase = "https://github.com"
	TopN       = 10

	// Unknown fills fields the page did not provide.
	Unknown = analysis.UnknownLanguage
)

type Item struct {
	Repo  string `json:"repo"`
	URL   string `json:"url"`
	Desc  string `json:"desc"`
	Lang  string `json:"lang"`
	Stars string `json:"stars"`
	Forks string `json:"forks"`
	Today string `json:"today"`
}

var starsTodayRe = regexp.MustCompile(`(?i)([\d,]+\s+stars?\s+today)`)

// Parse returns up to TopN ranked items in page order. Rows without a repo
// link are skipped.
func Parse(r io.Reader) ([]Item, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse trending html: %w", err)
	}
	rows := findAll(doc, func(n *html.Node) bool {
		return isElement(n, "article") && hasClasses(n, "Box-row")
	})
	if len(rows) > TopN {
		rows = rows[:TopN]
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		if it, ok := parseRow(row); ok {
			items = append(items, it)
		}
	}
	return items, nil
}

func ParseString(s string) ([]Item, error) {
	return Parse(strings.NewReader(s))
}

func parseRow(row *html.Node) (Item, bool) {
	var link *html.Node
	if h2 := findFirst(row, func(n *html.Node) bool { return isElement(n, "h2") }); h2 != nil {
		link = findFirst(h2, func(n *html.Node) bool { return isElement(n, "a") })
	}
	if link == nil {
		return Item{}, false
	}

	it := Item{
		Repo:  repoName(text(link)),
		URL:   githubBase + attr(link, "href"),
		Lang:  Unknown,
		Stars: Unknown,
		Forks: Unknown,
		Today: Unknown,
	}
	if p := findFirst(row, func(n *html.Node) bool { return isElement(n, "p") }); p != nil {
		it.Desc = text(p)
	}
	if lang := findFirst(row, func(n *html.Node) bool { return attr(n, "itemprop") == "programmingLanguage" }); lang != nil {
		it.Lang = text(lang)
	}
	if a := findFirst(row, hrefSuffix("/stargazers")); a != nil {
		it.Stars = text(a)
	}
	if a := findFirst(row, hrefSuffix("/forks")); a != nil {
		it.Forks = text(a)
	}
	if span := findFirst(row, func(n *html.Node) bool {
		return isElement(n, "span") && hasClasses(n, "d-inline-block", "float-sm-right")
	}); span != nil {
		it.Today = text(span)
	}
	if it.Today == Unknown {
		if m := starsTodayRe.FindStringSubmatch(text(row)); m != nil {
			it.Today = analysis.Clean(m[1])
		}
	}
	return it, true
}

func repoName(s string) string {
	s = strings.ReplaceAll(s, " / ", "/")
	s = strings.ReplaceAll(s, " /", "/")
	return strings.ReplaceAll(s, "/ ", "/")
}

func hrefSuffix(suffix string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return isElement(n, "a") && strings.HasSuffix(attr(n, "href"), suffix)
	}
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	if n.Type != html.ElementNode {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClasses(n *html.Node, want ...string) bool {
	have := strings.Fields(attr(n, "class"))
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		for c := n.FirstChild; c != nil && found == nil; c = c.NextSibling {
			if match(c) {
				found = c
				return
			}
			traverse(c)
		}
	}
	traverse(root)
	return found
}

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(root)
	return out
}

// text joins the element's text nodes with single spaces.
func text(n *html.Node) string {
	var parts []string
	var traverse func(*html.Node)
	traverse = func(node *html.Node) {
		if node.Type == html.TextNode {
			if t := strings.TrimSpace(node.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(n)
	return analysis.Clean(strings.Join(parts, " "))
}
