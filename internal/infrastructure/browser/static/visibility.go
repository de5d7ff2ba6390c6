package static

import (
	"strings"

	"golang.org/x/net/html"
)

var hiddenTags = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"template": true,
	"noscript": true,
	"title":    true,
	"meta":     true,
	"link":     true,
}

// visible approximates display state from markup alone: the element and all
// of its ancestors must be free of hidden attributes and inline styles.
// Stylesheet rules are not evaluated.
func visible(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if hiddenSelf(n) {
			return false
		}
	}
	return true
}

func hiddenSelf(n *html.Node) bool {
	if hiddenTags[n.Data] {
		return true
	}
	if _, ok := attr(n, "hidden"); ok {
		return true
	}
	if n.Data == "input" {
		if t, _ := attr(n, "type"); strings.EqualFold(t, "hidden") {
			return true
		}
	}
	style, _ := attr(n, "style")
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(val))
		switch {
		case prop == "display" && val == "none":
			return true
		case prop == "visibility" && (val == "hidden" || val == "collapse"):
			return true
		}
	}
	return false
}

// renderedText returns the whitespace-collapsed text of the visible subtree.
// Elements under a hidden ancestor have no text.
func renderedText(n *html.Node) string {
	if !visible(n) {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		case html.ElementNode:
			if hiddenSelf(n) {
				return
			}
			if n.Data == "br" {
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
