package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/use-agent/prayertimes/config"
	"github.com/use-agent/prayertimes/extract"
	"github.com/use-agent/prayertimes/models"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
)

// maxBody caps a fetched page.
const maxBody = 10 << 20

// FormDriver drives the form page without a browser: a selection is kept
// locally and WaitTable submits the enclosing form the way a browser
// would, replacing the current document with the response.
//
// It only works when the site renders the table server side.
type FormDriver struct {
	cfg    config.ScraperConfig
	client *resty.Client

	html    string
	pageURL *url.URL

	// overrides holds the chosen value per select name; it survives
	// submissions so every request carries the full selection.
	overrides map[string]string
	pending   string
}

// NewFormDriver builds a driver with a Chrome TLS fingerprint and a cookie
// jar, so a session cookie set by the first page is sent back on submit.
func NewFormDriver(cfg config.ScraperConfig, proxy string) (*FormDriver, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("scraper: cookie jar: %w", err)
	}

	client := resty.New().
		SetTransport(newChromeTransport(proxy)).
		SetCookieJar(jar).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetHeader("User-Agent", chromeUA).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if cfg.AcceptLanguage != "" {
		client.SetHeader("Accept-Language", cfg.AcceptLanguage)
	}

	return &FormDriver{
		cfg:       cfg,
		client:    client,
		overrides: make(map[string]string),
	}, nil
}

// Open fetches the form page.
func (d *FormDriver) Open(ctx context.Context) error {
	slog.Info("opening form page", "url", d.cfg.URL, "backend", config.BackendHTTP)
	return d.fetch(ctx, http.MethodGet, d.cfg.URL, nil, d.cfg.NavigationTimeout)
}

// Options reads the options of the select matching selector.
func (d *FormDriver) Options(ctx context.Context, selector string) ([]models.Option, error) {
	return extract.ParseOptions(d.html, selector)
}

// Select checks that the select matching selector offers value and
// records it for the next submission.
func (d *FormDriver) Select(ctx context.Context, selector, value string) error {
	field, err := d.findSelect(selector)
	if err != nil {
		return err
	}
	name := field.AttrOr("name", "")
	if name == "" {
		return models.NewScrapeError(models.ErrCodeSelection,
			fmt.Sprintf("select %q has no name and cannot be submitted", selector), nil)
	}

	found := false
	field.Find("option").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		found = optionValue(opt) == value
		return !found
	})
	if !found {
		return models.NewScrapeError(models.ErrCodeSelection,
			fmt.Sprintf("select %q has no option %q", selector, value), nil)
	}

	d.overrides[name] = value
	d.pending = selector
	return nil
}

// WaitTable submits the form of the last selected control, if any, and
// fails when the resulting page has no element matching selector.
func (d *FormDriver) WaitTable(ctx context.Context, selector string) error {
	if d.pending != "" {
		if err := d.submit(ctx, d.pending); err != nil {
			return err
		}
		d.pending = ""
	}

	ok, err := extract.HasMatch(d.html, selector)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewScrapeError(models.ErrCodeTimeout,
			fmt.Sprintf("no element matching %q after submit", selector), nil)
	}
	return nil
}

// HTML returns the current document.
func (d *FormDriver) HTML(ctx context.Context) (string, error) {
	return d.html, nil
}

// Close drops idle connections.
func (d *FormDriver) Close() error {
	d.client.GetClient().CloseIdleConnections()
	return nil
}

func (d *FormDriver) submit(ctx context.Context, selector string) error {
	field, err := d.findSelect(selector)
	if err != nil {
		return err
	}
	form := field.Closest("form")
	if form.Length() == 0 {
		return models.NewScrapeError(models.ErrCodeSelection,
			fmt.Sprintf("select %q is not inside a form", selector), nil)
	}

	base := d.pageURL
	if base == nil {
		if base, err = url.Parse(d.cfg.URL); err != nil {
			return models.NewScrapeError(models.ErrCodeNavigation, "bad page url", err)
		}
	}
	sub, err := serializeForm(form, base, d.overrides)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeSelection, "cannot build form submission", err)
	}
	slog.Debug("submitting form", "method", sub.Method, "action", sub.Action, "fields", sub.Values.Encode())
	return d.fetch(ctx, sub.Method, sub.Action, sub.Values, d.cfg.WaitTimeout)
}

func (d *FormDriver) findSelect(selector string) (*goquery.Selection, error) {
	sel, err := extract.CompileSelector(selector)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "bad selector", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(d.html))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "parse page", err)
	}
	field := doc.FindMatcher(sel).First()
	if field.Length() == 0 {
		return nil, models.NewScrapeError(models.ErrCodeSelection,
			fmt.Sprintf("select %q not found", selector), nil)
	}
	return field, nil
}

// fetch performs one request and makes its response the current document.
// GET submissions replace the query of target, as browsers do.
func (d *FormDriver) fetch(ctx context.Context, method, target string, values url.Values, timeout time.Duration) error {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	req := d.client.R().SetContext(ctx)
	var (
		resp *resty.Response
		err  error
	)
	switch method {
	case http.MethodPost:
		resp, err = req.SetFormDataFromValues(values).Post(target)
	default:
		if values != nil {
			u, perr := url.Parse(target)
			if perr != nil {
				return models.NewScrapeError(models.ErrCodeNavigation, "bad form action", perr)
			}
			u.RawQuery = values.Encode()
			target = u.String()
		}
		resp, err = req.Get(target)
	}
	if err != nil {
		return categorizeError(err, fmt.Sprintf("%s %s failed", method, target))
	}
	if resp.StatusCode() >= 400 {
		return models.NewScrapeError(models.ErrCodeNavigation,
			fmt.Sprintf("HTTP %d for %s", resp.StatusCode(), target), nil)
	}

	body, err := decodeBody(resp.Body(), resp.Header().Get("Content-Type"))
	if err != nil {
		return models.NewScrapeError(models.ErrCodeNavigation, "cannot decode response body", err)
	}

	d.html = body
	d.pageURL = resp.RawResponse.Request.URL
	return nil
}

// decodeBody converts body to UTF-8 using the declared or sniffed charset.
func decodeBody(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(io.LimitReader(r, maxBody))
	if err != nil {
		return "", err
	}
	return string(out), nil
}
