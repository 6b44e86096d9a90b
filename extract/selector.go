package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// CompileSelector compiles a CSS selector into a matcher goquery accepts.
func CompileSelector(selector string) (cascadia.Selector, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("extract: invalid selector %q: %w", selector, err)
	}
	return sel, nil
}

// parseDocument parses rawHTML into a goquery document.
func parseDocument(rawHTML string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// HasMatch reports whether rawHTML contains at least one element matching
// selector.
func HasMatch(rawHTML, selector string) (bool, error) {
	sel, err := CompileSelector(selector)
	if err != nil {
		return false, err
	}
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return false, fmt.Errorf("extract: parse html: %w", err)
	}
	return cascadia.Query(root, sel) != nil, nil
}

// outerHTML renders the first node of s, including the node itself.
func outerHTML(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, s.Get(0)); err != nil {
		return ""
	}
	return buf.String()
}
