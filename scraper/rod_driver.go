package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/prayertimes/config"
	"github.com/use-agent/prayertimes/extract"
	"github.com/use-agent/prayertimes/models"
	"github.com/ysmood/gson"
)

// RodDriver drives the form page in a real browser tab. The page's own
// scripts react to every selection, so whatever the site does on change
// (form submit or in-place update) happens as it would for a visitor.
type RodDriver struct {
	browser *Browser
	scraper config.ScraperConfig

	page   *rod.Page
	router *rod.HijackRouter
}

// NewRodDriver binds a driver to b. The tab is opened by Open.
func NewRodDriver(b *Browser, cfg config.ScraperConfig) *RodDriver {
	return &RodDriver{browser: b, scraper: cfg}
}

// Open creates the tab and loads the form page.
//
// Lifecycle:
//
//  1. Acquire page           – a fresh tab on the shared browser
//  2. Stealth injection      – before navigation, or it does not apply
//  3. Extra headers          – Accept-Language for the Bulgarian page
//  4. Hijack mount           – block heavy resources and trackers
//  5. Navigate + WaitLoad    – bounded by the navigation timeout
func (d *RodDriver) Open(ctx context.Context) error {
	// ── 1. Acquire page ───────────────────────────────────────────────
	page, err := d.browser.newPage()
	if err != nil {
		return err
	}
	d.page = page

	// ── 2. Stealth injection ──────────────────────────────────────────
	if d.browser.cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// ── 3. Extra headers ──────────────────────────────────────────────
	if d.scraper.AcceptLanguage != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{"Accept-Language": d.scraper.AcceptLanguage}),
		}.Call(page)
	}

	// ── 4. Mount hijack router ────────────────────────────────────────
	d.router = setupHijack(page, d.browser.cfg.BlockedResourceTypes, d.browser.cfg.BlockTrackers)

	// ── 5. Navigate ───────────────────────────────────────────────────
	navCtx, cancel := withTimeout(ctx, d.scraper.NavigationTimeout)
	defer cancel()
	p := page.Context(navCtx)

	slog.Info("opening form page", "url", d.scraper.URL)
	if err := p.Navigate(d.scraper.URL); err != nil {
		return categorizeError(err, "navigation to form page failed")
	}
	if err := p.WaitLoad(); err != nil {
		return categorizeError(err, "form page did not finish loading")
	}
	return nil
}

// Options reads the options of the select matching selector from the
// rendered page.
func (d *RodDriver) Options(ctx context.Context, selector string) ([]models.Option, error) {
	rawHTML, err := d.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return extract.ParseOptions(rawHTML, selector)
}

// Select picks the option whose value attribute equals value, or whose
// text does when it has no value attribute. Rod fires the input and
// change events the page listens to.
func (d *RodDriver) Select(ctx context.Context, selector, value string) error {
	if d.page == nil {
		return models.NewScrapeError(models.ErrCodeSelection, "page not open", nil)
	}
	selCtx, cancel := withTimeout(ctx, d.scraper.WaitTimeout)
	defer cancel()
	p := d.page.Context(selCtx)

	el, err := p.Element(selector)
	if err != nil {
		return selectionError(err, fmt.Sprintf("select %q not found", selector))
	}
	optionSel := fmt.Sprintf(`option[value="%s"]`, cssString(value))
	err = el.Select([]string{optionSel}, true, rod.SelectorTypeCSSSector)
	if err == nil {
		return nil
	}
	if textErr := el.Select([]string{optionTextPattern(value)}, true, rod.SelectorTypeRegex); textErr == nil {
		return nil
	}
	return selectionError(err, fmt.Sprintf("cannot select %s in %q", optionSel, selector))
}

// optionTextPattern matches an option whose trimmed text is exactly v.
func optionTextPattern(v string) string {
	return `^\s*` + regexp.QuoteMeta(v) + `\s*$`
}

// WaitTable blocks until an element matching selector exists. The DOM is
// first given a chance to settle so a table from before the selection is
// not mistaken for the new one.
func (d *RodDriver) WaitTable(ctx context.Context, selector string) error {
	if d.page == nil {
		return models.NewScrapeError(models.ErrCodeTimeout, "page not open", nil)
	}
	waitCtx, cancel := withTimeout(ctx, d.scraper.WaitTimeout)
	defer cancel()
	p := d.page.Context(waitCtx)

	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", err,
		)
	}
	if err := p.WaitElementsMoreThan(selector, 0); err != nil {
		return categorizeError(err, fmt.Sprintf("waiting for %q", selector))
	}
	return nil
}

// HTML returns the rendered markup of the tab.
func (d *RodDriver) HTML(ctx context.Context) (string, error) {
	if d.page == nil {
		return "", models.NewScrapeError(models.ErrCodeBrowserCrash, "page not open", nil)
	}
	rawHTML, err := d.page.Context(ctx).HTML()
	if err != nil {
		return "", categorizeError(err, "failed to extract page HTML")
	}
	return rawHTML, nil
}

// Close stops the hijack router and closes the tab. The browser itself
// is closed by its owner.
func (d *RodDriver) Close() error {
	if d.router != nil {
		_ = d.router.Stop()
		d.router = nil
	}
	if d.page == nil {
		return nil
	}
	err := d.page.Close()
	d.page = nil
	return err
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// withTimeout bounds ctx by d; a non-positive d leaves it unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// cssString escapes s for use inside a double-quoted CSS string.
func cssString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `).Replace(s)
}
