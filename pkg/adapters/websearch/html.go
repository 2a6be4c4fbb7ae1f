package websearch

import (
	"io"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" && slices.Contains(strings.Fields(a.Val), class) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// parseResults reads a DuckDuckGo HTML results page.
func parseResults(r io.Reader) ([]Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var results []Result
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || !hasClass(n, "result") {
			return true
		}
		var res Result
		walk(n, func(c *html.Node) bool {
			if c.Type != html.ElementNode {
				return true
			}
			switch {
			case c.DataAtom == atom.A && hasClass(c, "result__a"):
				res.Title = textOf(c)
				res.URL = resolveLink(attr(c, "href"))
			case hasClass(c, "result__snippet"):
				res.Snippet = textOf(c)
			}
			return true
		})
		if res.URL != "" {
			results = append(results, res)
		}
		return false
	})
	return results, nil
}

// resolveLink unwraps DuckDuckGo redirect links.
func resolveLink(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

var skipped = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Nav: true, atom.Header: true, atom.Footer: true, atom.Aside: true,
}

// extractText returns the readable text of the first article, main or body element.
func extractText(r io.Reader, limit int) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var root *html.Node
	for _, want := range []atom.Atom{atom.Article, atom.Main, atom.Body} {
		walk(doc, func(n *html.Node) bool {
			if root != nil {
				return false
			}
			if n.Type == html.ElementNode && n.DataAtom == want {
				root = n
				return false
			}
			return true
		})
		if root != nil {
			break
		}
	}
	if root == nil {
		return "", nil
	}

	text := textOf(root)
	if r := []rune(text); len(r) > limit {
		text = string(r[:limit])
	}
	return text, nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && skipped[c.DataAtom] {
			return false
		}
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
		return true
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
