// Package htmlclean shrinks page markup before it is handed to a language
// model.
package htmlclean

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

const truncatedMarker = "\n<!-- truncated -->"

type Config struct {
	TagsToRemove  []string
	AttrsToRemove []string
	// KeepAttrs overrides the data-, aria- and on* prefix rules.
	KeepAttrs     []string
	MaxOutputSize int
}

var DefaultConfig = Config{
	TagsToRemove: []string{
		"script", "style", "noscript", "svg", "iframe",
		"link", "meta", "head", "title", "template",
	},
	AttrsToRemove: []string{
		"style", "srcset", "sizes", "loading", "decoding", "fetchpriority", "tabindex",
	},
	KeepAttrs:     []string{"aria-label", "data-testid"},
	MaxOutputSize: 60_000,
}

// Clean parses rawHTML, strips comments, noise tags and noisy attributes and
// renders what is left of <body>. Fragments are parsed into a synthetic body.
func Clean(rawHTML string, cfg *Config) (string, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	body := findBody(doc)
	if body == nil {
		return "", fmt.Errorf("no body in html")
	}

	for c := body.FirstChild; c != nil; {
		next := c.NextSibling
		cleanNode(c, cfg)
		c = next
	}
	body.Attr = nil

	var sb strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
	}

	return truncate(collapseBlankLines(sb.String()), cfg.MaxOutputSize), nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func cleanNode(n *html.Node, cfg *Config) {
	switch n.Type {
	case html.CommentNode:
		n.Parent.RemoveChild(n)
		return
	case html.ElementNode:
	default:
		return
	}

	if isOneOf(n.Data, cfg.TagsToRemove...) {
		n.Parent.RemoveChild(n)
		return
	}

	kept := n.Attr[:0]
	for _, attr := range n.Attr {
		if !shouldRemoveAttr(attr.Key, cfg) {
			kept = append(kept, attr)
		}
	}
	n.Attr = kept

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		cleanNode(c, cfg)
		c = next
	}
}

func shouldRemoveAttr(key string, cfg *Config) bool {
	if isOneOf(key, cfg.KeepAttrs...) {
		return false
	}
	if isOneOf(key, cfg.AttrsToRemove...) {
		return true
	}
	return strings.HasPrefix(key, "data-") ||
		strings.HasPrefix(key, "aria-") ||
		strings.HasPrefix(key, "on")
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, strings.TrimRight(l, " \t"))
	}
	return strings.Join(out, "\n")
}

func truncate(s string, maxSize int) string {
	if maxSize <= 0 || len(s) <= maxSize {
		return s
	}
	return s[:maxSize] + truncatedMarker
}

func isOneOf(s string, candidates ...string) bool {
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}
