package scraper

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// formSubmission is what a browser would send when the form is submitted.
type formSubmission struct {
	Method string
	Action string
	Values url.Values
}

// serializeForm builds the submission of form as it stands, with
// overrides (field name → value) replacing the current value of named
// select controls. base resolves a relative action; an empty action
// submits to base itself.
//
// Successful controls follow the HTML form rules: named, not disabled;
// checkboxes and radios only when checked; submit, button, reset, file and
// image inputs never.
func serializeForm(form *goquery.Selection, base *url.URL, overrides map[string]string) (*formSubmission, error) {
	method := strings.ToUpper(strings.TrimSpace(form.AttrOr("method", http.MethodGet)))
	if method != http.MethodPost {
		method = http.MethodGet
	}

	action := base
	if raw := strings.TrimSpace(form.AttrOr("action", "")); raw != "" {
		ref, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("scraper: form action %q: %w", raw, err)
		}
		action = base.ResolveReference(ref)
	}

	values := url.Values{}
	form.Find("input, select, textarea").Each(func(_ int, field *goquery.Selection) {
		name, ok := field.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, disabled := field.Attr("disabled"); disabled {
			return
		}

		switch goquery.NodeName(field) {
		case "select":
			if v, ok := overrides[name]; ok {
				values.Add(name, v)
				return
			}
			if v, ok := selectedValue(field); ok {
				values.Add(name, v)
			}
		case "textarea":
			values.Add(name, field.Text())
		default:
			typ := strings.ToLower(field.AttrOr("type", "text"))
			switch typ {
			case "submit", "button", "reset", "file", "image":
				return
			case "checkbox", "radio":
				if _, checked := field.Attr("checked"); !checked {
					return
				}
				values.Add(name, field.AttrOr("value", "on"))
			default:
				values.Add(name, field.AttrOr("value", ""))
			}
		}
	})

	return &formSubmission{Method: method, Action: action.String(), Values: values}, nil
}

// selectedValue is the value a browser submits for a single select: the
// last option marked selected, else the first option. A select with no
// options submits nothing.
func selectedValue(sel *goquery.Selection) (string, bool) {
	options := sel.Find("option")
	if options.Length() == 0 {
		return "", false
	}
	chosen := options.Filter("[selected]").Last()
	if chosen.Length() == 0 {
		chosen = options.First()
	}
	return optionValue(chosen), true
}

func optionValue(opt *goquery.Selection) string {
	if v, ok := opt.Attr("value"); ok {
		return v
	}
	return strings.TrimSpace(opt.Text())
}
