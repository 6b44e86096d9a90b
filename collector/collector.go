package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/use-agent/prayertimes/extract"
	"github.com/use-agent/prayertimes/models"
	"github.com/use-agent/prayertimes/simhash"
	"golang.org/x/time/rate"
)

// Driver is the page-automation contract the collector relies on. A driver
// owns a single page: every call acts on the same document, and calls are
// never made concurrently.
type Driver interface {
	// Open loads the form page.
	Open(ctx context.Context) error

	// Options lists the option elements of the select matching selector.
	Options(ctx context.Context, selector string) ([]models.Option, error)

	// Select picks the option with the given value in the select matching
	// selector, firing the page's change handling.
	Select(ctx context.Context, selector, value string) error

	// WaitTable blocks until an element matching selector is present in
	// the page state produced by the last selection.
	WaitTable(ctx context.Context, selector string) error

	// HTML returns the current rendered markup.
	HTML(ctx context.Context) (string, error)

	// Close releases the page.
	Close() error
}

// Config describes the form page and the run.
type Config struct {
	Year int

	CitySelect    string
	MonthSelect   string
	TableSelector string

	CityPlaceholders  []string
	MonthPlaceholders []string
	DayLabels         []string
}

// Collector walks every (city, month) pair of the form page and gathers
// the resulting tables into an Aggregate. It keeps no state between runs.
type Collector struct {
	cfg       Config
	extractor *extract.TableExtractor
	cityPH    extract.Placeholders
	monthPH   extract.Placeholders
	limiter   *rate.Limiter
	snapshots *extract.Snapshotter
}

// Option configures a Collector.
type Option func(*Collector)

// WithLimiter paces selections; each Select waits for a token first.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Collector) { c.limiter = l }
}

// WithSnapshotter stores a Markdown copy of every extracted table.
func WithSnapshotter(s *extract.Snapshotter) Option {
	return func(c *Collector) { c.snapshots = s }
}

// New validates cfg and builds a Collector.
func New(cfg Config, opts ...Option) (*Collector, error) {
	extractor, err := extract.NewTableExtractor(cfg.TableSelector, cfg.DayLabels)
	if err != nil {
		return nil, err
	}
	c := &Collector{
		cfg:       cfg,
		extractor: extractor,
		cityPH:    extract.NewPlaceholders(cfg.CityPlaceholders...),
		monthPH:   extract.NewPlaceholders(cfg.MonthPlaceholders...),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Discover reads the city and month options of the loaded page, without
// placeholder entries.
func (c *Collector) Discover(ctx context.Context, d Driver) (cities, months []models.Option, err error) {
	rawCities, err := d.Options(ctx, c.cfg.CitySelect)
	if err != nil {
		return nil, nil, fmt.Errorf("collector: list cities: %w", err)
	}
	rawMonths, err := d.Options(ctx, c.cfg.MonthSelect)
	if err != nil {
		return nil, nil, fmt.Errorf("collector: list months: %w", err)
	}
	return extract.FilterOptions(rawCities, c.cityPH), extract.FilterOptions(rawMonths, c.monthPH), nil
}

// Collect opens the page, discovers the options and scrapes every
// (city, month) pair in source order. Any driver failure aborts the run;
// a missing table or a malformed row only skips that table or row.
func (c *Collector) Collect(ctx context.Context, d Driver) (*models.Aggregate, error) {
	if err := d.Open(ctx); err != nil {
		return nil, err
	}

	cities, months, err := c.Discover(ctx, d)
	if err != nil {
		return nil, err
	}
	slog.Info("options discovered", "cities", len(cities), "months", len(months))

	agg := models.NewAggregate()
	for _, city := range cities {
		slog.Info("processing city", "city", city.Text, "value", city.Value)

		times, err := c.collectCity(ctx, d, city, months)
		if err != nil {
			return nil, err
		}
		agg.Merge(city.Text, times)
	}
	return agg, nil
}

// unchangedBits is the largest fingerprint distance at which two month
// tables count as the same table.
const unchangedBits = 3

// collectCity scrapes all months of one city.
func (c *Collector) collectCity(ctx context.Context, d Driver, city models.Option, months []models.Option) (*models.CityTimes, error) {
	times := models.NewCityTimes()
	var prev uint64

	for _, month := range months {
		page, err := c.collectMonth(ctx, d, city, month)
		if err != nil {
			return nil, err
		}
		if page.fingerprint != 0 && prev != 0 && simhash.Similar(prev, page.fingerprint, unchangedBits) {
			slog.Warn("table unchanged after month selection",
				"city", city.Text, "month", month.Text)
		}
		prev = page.fingerprint

		page.times.Each(func(date string, rec *models.Record) {
			times.Put(date, rec)
		})
	}
	return times, nil
}

// monthPage is what one (city, month) pass yields.
type monthPage struct {
	times       *models.CityTimes
	fingerprint uint64
}

// collectMonth selects city then month, waits for the table after each
// selection and converts the table into dated records. The city is
// selected again for every month so the table always belongs to it, even
// if the page resets the city on a month change.
func (c *Collector) collectMonth(ctx context.Context, d Driver, city, month models.Option) (*monthPage, error) {
	if err := c.selectAndWait(ctx, d, c.cfg.CitySelect, city.Value); err != nil {
		return nil, err
	}
	if err := c.selectAndWait(ctx, d, c.cfg.MonthSelect, month.Value); err != nil {
		return nil, err
	}

	rawHTML, err := d.HTML(ctx)
	if err != nil {
		return nil, err
	}
	table, err := c.extractor.Extract(rawHTML)
	if err != nil {
		return nil, err
	}

	page := &monthPage{times: models.NewCityTimes()}
	if !table.Found {
		slog.Debug("table missing, skipping", "city", city.Text, "month", month.Text)
		return page, nil
	}
	page.fingerprint = simhash.Table(table.Cells)

	if c.snapshots != nil {
		if path, err := c.snapshots.Write(city, month, table.HTML); err != nil {
			slog.Warn("snapshot failed", "city", city.Text, "month", month.Text, "error", err)
		} else {
			slog.Debug("snapshot written", "path", path)
		}
	}

	for _, day := range table.Days {
		key, err := models.DateKey(c.cfg.Year, month.Value, day.Day)
		if err != nil {
			return nil, err
		}
		c.checkCalendar(city, month, day.Day)
		page.times.Put(key, day.Record)
	}

	slog.Debug("month collected",
		"city", city.Text,
		"month", month.Text,
		"records", len(table.Days),
		"malformed", table.Malformed,
		"missingDay", table.MissingDay,
	)
	return page, nil
}

func (c *Collector) selectAndWait(ctx context.Context, d Driver, selector, value string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.NewScrapeError(models.ErrCodeTimeout, "throttle wait interrupted", err)
		}
	}
	if err := d.Select(ctx, selector, value); err != nil {
		return err
	}
	return d.WaitTable(ctx, c.cfg.TableSelector)
}

// checkCalendar logs days past the end of the month. Such records are
// kept: the key is still produced as the site printed it.
func (c *Collector) checkCalendar(city, month models.Option, day string) {
	m, errM := strconv.Atoi(strings.TrimSpace(month.Value))
	dd, errD := strconv.Atoi(strings.TrimSpace(day))
	if errM != nil || errD != nil {
		return
	}
	if limit := models.DaysIn(c.cfg.Year, m); limit > 0 && (dd < 1 || dd > limit) {
		slog.Warn("day outside month",
			"city", city.Text, "month", month.Value, "day", dd, "daysInMonth", limit)
	}
}
