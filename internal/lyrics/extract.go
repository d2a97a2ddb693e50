package lyrics

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Anchor is a link found on a page.
type Anchor struct {
	Href string
	Text string
}

var lrcFileName = regexp.MustCompile(`(?i)\.lrc\b`)

// TitleAnchors returns, in document order, every <a> element that carries an
// href and whose class list contains "title".
func TitleAnchors(doc *html.Node) []Anchor {
	var anchors []Anchor
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != atom.A {
			return true
		}
		href, ok := attr(n, "href")
		if !ok || !hasClass(n, "title") {
			return true
		}
		anchors = append(anchors, Anchor{Href: href, Text: textContent(n)})
		return true
	})
	return anchors
}

// LRCFileLink finds the first text node naming a .lrc file and returns the
// href of its nearest enclosing element that has one.
func LRCFileLink(doc *html.Node) (string, bool) {
	var link string
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.TextNode || !lrcFileName.MatchString(n.Data) {
			return true
		}
		for p := n.Parent; p != nil; p = p.Parent {
			if p.Type != html.ElementNode {
				continue
			}
			if href, ok := attr(p, "href"); ok && href != "" {
				link = href
				return false
			}
		}
		return true
	})
	return link, link != ""
}

// ClickHereLink returns the href of the first <a> element whose visible text
// reads "click here", ignoring case and surrounding whitespace.
func ClickHereLink(doc *html.Node) (string, bool) {
	var link string
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != atom.A {
			return true
		}
		href, ok := attr(n, "href")
		if ok && href != "" && strings.EqualFold(textContent(n), "click here") {
			link = href
			return false
		}
		return true
	})
	return link, link != ""
}

// walk visits n and its descendants depth-first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	classes, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(classes) {
		if c == class {
			return true
		}
	}
	return false
}

// textContent returns the element's text with whitespace runs collapsed.
func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			sb.WriteByte(' ')
		}
		return true
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}
