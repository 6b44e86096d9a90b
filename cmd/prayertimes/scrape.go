package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/use-agent/prayertimes/collector"
	"github.com/use-agent/prayertimes/config"
	"github.com/use-agent/prayertimes/extract"
	"github.com/use-agent/prayertimes/models"
	"github.com/use-agent/prayertimes/output"
	"github.com/use-agent/prayertimes/scraper"
	"github.com/use-agent/prayertimes/webhook"
	"golang.org/x/time/rate"
)

var scrapeFlags struct {
	output  string
	format  string
	backend string
	year    int
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--output <file>] [--format json|yaml|sqlite] [--backend browser|http]",
	Short: "Scrapes every city and month and writes the aggregate.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)
		applyScrapeFlags(cmd, cfg)

		_, err := runScrape(cmd.Context(), cfg)
		return err
	},
}

func init() {
	for _, c := range []*cobra.Command{scrapeCmd, rootCmd} {
		f := c.Flags()
		f.StringVarP(&scrapeFlags.output, "output", "o", "", "file to write (default from PRAYER_OUTPUT)")
		f.StringVar(&scrapeFlags.format, "format", "", "output format: json, yaml or sqlite (default from the file extension)")
		f.StringVar(&scrapeFlags.backend, "backend", "", "page driver: browser or http")
		f.IntVar(&scrapeFlags.year, "year", 0, "year of the date keys")
	}
	rootCmd.AddCommand(scrapeCmd)
}

// applyScrapeFlags lets explicit flags win over the environment.
func applyScrapeFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("output") {
		cfg.Output.Path = scrapeFlags.output
		if !f.Changed("format") {
			cfg.Output.Format = output.FormatOf(scrapeFlags.output)
		}
	}
	if f.Changed("format") {
		cfg.Output.Format = scrapeFlags.format
	}
	if f.Changed("backend") {
		cfg.Scraper.Backend = scrapeFlags.backend
	}
	if f.Changed("year") {
		cfg.Scraper.Year = scrapeFlags.year
		// The default file name carries the year.
		if !f.Changed("output") && os.Getenv("PRAYER_OUTPUT") == "" {
			cfg.Output.Path = config.DefaultOutputPath(scrapeFlags.year)
		}
	}
}

// runScrape runs the whole pipeline once. Nothing is written when the
// collection fails.
func runScrape(ctx context.Context, cfg *config.Config) (*models.RunSummary, error) {
	// ── 1. Validate configuration ───────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "invalid configuration", err)
	}
	slog.Info("prayertimes scrape starting",
		"url", cfg.Scraper.URL,
		"year", cfg.Scraper.Year,
		"backend", cfg.Scraper.Backend,
		"output", cfg.Output.Path,
		"format", cfg.Output.Format,
	)

	// ── 2. Build the collector ──────────────────────────────────────
	var opts []collector.Option
	if cfg.Scraper.SelectInterval > 0 {
		opts = append(opts, collector.WithLimiter(rate.NewLimiter(rate.Every(cfg.Scraper.SelectInterval), 1)))
	}
	if cfg.Scraper.SnapshotDir != "" {
		snap, err := extract.NewSnapshotter(cfg.Scraper.SnapshotDir)
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeOutput, "snapshot directory", err)
		}
		opts = append(opts, collector.WithSnapshotter(snap))
	}
	col, err := collector.New(collector.Config{
		Year:              cfg.Scraper.Year,
		CitySelect:        cfg.Scraper.CitySelect,
		MonthSelect:       cfg.Scraper.MonthSelect,
		TableSelector:     cfg.Scraper.TableSelector,
		CityPlaceholders:  cfg.Scraper.CityPlaceholders,
		MonthPlaceholders: cfg.Scraper.MonthPlaceholders,
		DayLabels:         cfg.Scraper.DayLabels,
	}, opts...)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "invalid table selector", err)
	}

	// ── 3. Open the page driver ─────────────────────────────────────
	driver, release, err := newDriver(cfg)
	if err != nil {
		return nil, err
	}
	defer release()

	// ── 4. Collect every (city, month) table ────────────────────────
	start := time.Now()
	agg, err := col.Collect(ctx, driver)
	if err != nil {
		slog.Error("scrape failed", "error", err, "code", models.CodeOf(err))
		return nil, err
	}

	// ── 5. Persist ──────────────────────────────────────────────────
	if err := output.Write(ctx, cfg.Output.Path, cfg.Output.Format, agg); err != nil {
		return nil, err
	}

	summary := &models.RunSummary{
		Cities:  agg.Len(),
		Records: agg.Records(),
		Output:  cfg.Output.Path,
		Format:  cfg.Output.Format,
		Year:    cfg.Scraper.Year,
	}
	slog.Info("prayer times saved",
		"path", summary.Output,
		"cities", summary.Cities,
		"records", summary.Records,
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)

	// ── 6. Notify ───────────────────────────────────────────────────
	if cfg.Webhook.URL != "" {
		ev := webhook.NewEvent(webhook.EventScrapeCompleted, uuid.NewString(), summary)
		if err := webhook.New(cfg.Webhook.URL, cfg.Webhook.Secret).Notify(ctx, ev); err != nil {
			// The file is already written; a lost notification does not fail the run.
			slog.Warn("webhook delivery failed", "url", cfg.Webhook.URL, "error", err)
		}
	}

	return summary, nil
}

// newDriver builds the configured backend. release closes the driver and,
// for the browser backend, the browser process.
func newDriver(cfg *config.Config) (collector.Driver, func(), error) {
	switch cfg.Scraper.Backend {
	case config.BackendHTTP:
		d, err := scraper.NewFormDriver(cfg.Scraper, cfg.Browser.Proxy)
		if err != nil {
			return nil, nil, models.NewScrapeError(models.ErrCodeInternal, "failed to build http driver", err)
		}
		return d, func() { closeDriver(d) }, nil

	default:
		b, err := scraper.Launch(cfg.Browser)
		if err != nil {
			return nil, nil, err
		}
		d := scraper.NewRodDriver(b, cfg.Scraper)
		return d, func() {
			closeDriver(d)
			b.Close()
		}, nil
	}
}

func closeDriver(d collector.Driver) {
	if err := d.Close(); err != nil {
		slog.Warn("driver close failed", "error", err)
	}
}
