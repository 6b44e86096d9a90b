package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/use-agent/prayertimes/models"
)

// Snapshotter writes every scraped table as a Markdown file, one per
// city and month, so a run can be checked against the site by eye.
type Snapshotter struct {
	dir  string
	conv *converter.Converter
}

// NewSnapshotter creates dir when missing.
func NewSnapshotter(dir string) (*Snapshotter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create %s: %w", dir, err)
	}
	return &Snapshotter{
		dir: dir,
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorAligned),
				),
			),
		),
	}, nil
}

// Write converts tableHTML and stores it as <city>-<month>.md, replacing
// an earlier snapshot of the same pair. It returns the written path.
func (s *Snapshotter) Write(city, month models.Option, tableHTML string) (string, error) {
	md, err := s.conv.ConvertString(tableHTML)
	if err != nil {
		return "", fmt.Errorf("snapshot: convert table: %w", err)
	}

	name := fmt.Sprintf("%s-%s.md", safeName(city.Value), safeName(month.Value))
	path := filepath.Join(s.dir, name)
	body := fmt.Sprintf("# %s / %s\n\n%s\n", city.Text, month.Text, md)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	return path, nil
}

// safeName keeps letters, digits, '-' and '_' so option values can be
// used as file names.
func safeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == '_':
			return r
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			return r
		case r > 127:
			return r
		default:
			return '_'
		}
	}, s)
	if s == "" {
		return "_"
	}
	return s
}
