package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/use-agent/prayertimes/models"
	"github.com/use-agent/prayertimes/output"
)

var showFlags struct {
	file     string
	format   string
	city     string
	month    int
	markdown bool
}

var showCmd = &cobra.Command{
	Use:   "show --city <name> [--month <1-12>] [--markdown]",
	Short: "Prints the prayer times of one city as a table.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)

		path := cfg.Output.Path
		if showFlags.file != "" {
			path = showFlags.file
		}
		format := showFlags.format
		if format == "" {
			format = output.FormatOf(path)
		}
		if showFlags.month < 0 || showFlags.month > 12 {
			return models.NewScrapeError(models.ErrCodeInvalidInput, fmt.Sprintf("month %d out of range", showFlags.month), nil)
		}

		agg, err := output.Load(cmd.Context(), path, format)
		if err != nil {
			return err
		}
		times, ok := agg.City(showFlags.city)
		if !ok {
			return models.NewScrapeError(models.ErrCodeNotFound, fmt.Sprintf("city %q not found in %s", showFlags.city, path), nil)
		}

		renderCity(cmd.OutOrStdout(), showFlags.city, times, showFlags.month, showFlags.markdown)
		return nil
	},
}

func init() {
	f := showCmd.Flags()
	f.StringVarP(&showFlags.file, "file", "f", "", "file to read (default from PRAYER_OUTPUT)")
	f.StringVar(&showFlags.format, "format", "", "file format: json, yaml or sqlite (default from the file extension)")
	f.StringVarP(&showFlags.city, "city", "c", "", "city name as shown on the site")
	f.IntVarP(&showFlags.month, "month", "m", 0, "only this month (1-12)")
	f.BoolVar(&showFlags.markdown, "markdown", false, "render as a Markdown table")
	_ = showCmd.MarkFlagRequired("city")
	rootCmd.AddCommand(showCmd)
}

// renderCity writes one row per date. Columns are the union of the record
// headers in first-seen order; month 0 keeps every date.
func renderCity(w io.Writer, city string, times *models.CityTimes, month int, markdown bool) {
	var (
		headers []string
		seen    = make(map[string]bool)
		dates   []string
	)
	times.Each(func(date string, rec *models.Record) {
		if month != 0 && !inMonth(date, month) {
			return
		}
		dates = append(dates, date)
		for _, h := range rec.Headers() {
			if !seen[h] {
				seen[h] = true
				headers = append(headers, h)
			}
		}
	})

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(city)

	header := table.Row{"Date"}
	for _, h := range headers {
		header = append(header, h)
	}
	t.AppendHeader(header)

	for _, date := range dates {
		rec, _ := times.Get(date)
		row := table.Row{date}
		for _, h := range headers {
			v, _ := rec.Get(h)
			row = append(row, v)
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d days", len(dates))})

	if markdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}

// inMonth reports whether a YYYY-MM-DD key falls in month.
func inMonth(date string, month int) bool {
	parts := strings.Split(date, "-")
	return len(parts) == 3 && parts[1] == fmt.Sprintf("%02d", month)
}
