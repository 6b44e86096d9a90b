package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/prayertimes/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Placeholders is the set of labels that mark a "choose ..." entry of a
// select control. Labels are matched trimmed and lower-cased, so
// "Избери град" and " SELECT TOWN " both match.
type Placeholders struct {
	labels map[string]struct{}
}

// NewPlaceholders builds a placeholder set from display labels.
func NewPlaceholders(labels ...string) Placeholders {
	p := Placeholders{labels: make(map[string]struct{}, len(labels))}
	for _, l := range labels {
		p.labels[foldLabel(l)] = struct{}{}
	}
	return p
}

// Match reports whether text is one of the placeholder labels.
func (p Placeholders) Match(text string) bool {
	_, ok := p.labels[foldLabel(text)]
	return ok
}

// foldLabel trims, NFC-normalizes and lower-cases a label. A new Caser is
// built per call since Casers keep state.
func foldLabel(s string) string {
	return cases.Lower(language.Und).String(norm.NFC.String(strings.TrimSpace(s)))
}

// ParseOptions reads the options of the first select element matching
// selector, in document order. Text is whitespace-trimmed. An option
// without a value attribute uses its text, as browsers do.
func ParseOptions(rawHTML, selector string) ([]models.Option, error) {
	sel, err := CompileSelector(selector)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(rawHTML)
	if err != nil {
		return nil, err
	}

	options := []models.Option{}
	doc.FindMatcher(sel).First().Find("option").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		value, ok := s.Attr("value")
		if !ok {
			value = text
		}
		options = append(options, models.Option{Value: value, Text: text})
	})
	return options, nil
}

// FilterOptions drops placeholder entries and keeps source order.
func FilterOptions(options []models.Option, placeholders Placeholders) []models.Option {
	kept := make([]models.Option, 0, len(options))
	for _, o := range options {
		if placeholders.Match(o.Text) {
			continue
		}
		kept = append(kept, o)
	}
	return kept
}
