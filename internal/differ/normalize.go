package differ

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true, "img": true,
	"input": true, "link": true, "meta": true, "source": true, "track": true, "wbr": true,
}

// ignoredElements carry no layout-relevant markup
var ignoredElements = map[string]bool{"script": true, "noscript": true, "template": true}

// NormalizeMarkup renders an HTML fragment one tag or text run per line, with
// sorted attributes, sorted class lists and collapsed whitespace, so that a
// line diff only reports structural or textual changes. With a non-empty
// selector only the first matching element is rendered.
func NormalizeMarkup(fragment, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("failed to parse markup: %w", err)
	}

	var sel *goquery.Selection
	if selector != "" {
		sel = doc.Find(selector).First()
		if sel.Length() == 0 {
			return "", fmt.Errorf("no element matches %q in markup", selector)
		}
	} else {
		sel = doc.Find("body").Contents()
	}

	var b strings.Builder
	sel.Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			writeNode(&b, n, 0)
		}
	})
	return b.String(), nil
}

func writeNode(b *strings.Builder, n *xhtml.Node, depth int) {
	indent := strings.Repeat("  ", depth)

	switch n.Type {
	case xhtml.TextNode:
		text := strings.Join(strings.Fields(n.Data), " ")
		if text != "" {
			b.WriteString(indent + html.EscapeString(text) + "\n")
		}
	case xhtml.ElementNode:
		if ignoredElements[n.Data] {
			return
		}
		b.WriteString(indent + openTag(n) + "\n")
		if voidElements[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(b, c, depth+1)
		}
		b.WriteString(indent + "</" + n.Data + ">\n")
	case xhtml.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(b, c, depth)
		}
	}
}

func openTag(n *xhtml.Node) string {
	attrs := make([]string, 0, len(n.Attr))
	for _, a := range n.Attr {
		val := a.Val
		if a.Key == "class" {
			classes := strings.Fields(val)
			sort.Strings(classes)
			val = strings.Join(classes, " ")
		} else if a.Key == "style" {
			val = strings.Join(strings.Fields(val), " ")
		}
		attrs = append(attrs, fmt.Sprintf(`%s="%s"`, a.Key, html.EscapeString(val)))
	}
	sort.Strings(attrs)

	if len(attrs) == 0 {
		return "<" + n.Data + ">"
	}
	return "<" + n.Data + " " + strings.Join(attrs, " ") + ">"
}
