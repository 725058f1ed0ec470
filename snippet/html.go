package snippet

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/lingomark/lingomark"
)

// blockTags are the elements treated as context boundaries when locating a
// selection in page HTML.
var blockTags = map[string]bool{
	"p":          true,
	"li":         true,
	"blockquote": true,
	"td":         true,
	"th":         true,
	"dd":         true,
	"dt":         true,
	"figcaption": true,
	"caption":    true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
	"div":        true,
	"article":    true,
	"section":    true,
	"main":       true,
}

// FromHTML locates the selection's nearest block element in the given page
// HTML and returns the sentence window around it. Script, style, and other
// non-content subtrees are skipped, as are elements marked
// data-no-translate. Returns "" when the selection cannot be located.
func FromHTML(content, selection string) (string, error) {
	sel := normalizeSpace(selection)
	if sel == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parsing page html: %w", err)
	}

	var best string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if skipNode(n) {
			return
		}

		if n.Type == html.ElementNode && blockTags[strings.ToLower(n.Data)] {
			text := normalizeSpace(visibleText(n))
			if strings.Contains(text, sel) {
				// The deepest containing block has the shortest text.
				if best == "" || len(text) < len(best) {
					best = text
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	doc.Each(func(i int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			walk(n)
		}
	})

	if best == "" {
		// No block matched; fall back to the whole visible document.
		doc.Each(func(i int, s *goquery.Selection) {
			for _, n := range s.Nodes {
				full := normalizeSpace(visibleText(n))
				if strings.Contains(full, sel) && (best == "" || len(full) < len(best)) {
					best = full
				}
			}
		})
	}
	if best == "" {
		return "", nil
	}

	return Sentence(best, sel), nil
}

func skipNode(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if lingomark.IgnoredTags[strings.ToLower(n.Data)] {
		return true
	}
	for _, attr := range n.Attr {
		if attr.Key == "data-no-translate" {
			return true
		}
	}
	return false
}

// visibleText flattens the visible text of a subtree, skipping ignored
// elements.
func visibleText(n *html.Node) string {
	if skipNode(n) {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}

	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(visibleText(c))
		b.WriteString(" ")
	}
	return b.String()
}

// normalizeSpace collapses whitespace runs to single spaces so selections
// match across HTML formatting.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
