// Package output persists an Aggregate and reads it back. Every sink
// replaces the previous content of its target.
package output

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/use-agent/prayertimes/config"
	"github.com/use-agent/prayertimes/models"
)

// Write stores agg at path in the given format.
func Write(ctx context.Context, path, format string, agg *models.Aggregate) error {
	var err error
	switch format {
	case config.FormatJSON:
		err = WriteJSON(path, agg)
	case config.FormatYAML:
		err = WriteYAML(path, agg)
	case config.FormatSQLite:
		err = WriteSQLite(ctx, path, agg)
	default:
		return models.NewScrapeError(models.ErrCodeInvalidInput, fmt.Sprintf("unknown output format %q", format), nil)
	}
	if err != nil {
		return models.NewScrapeError(models.ErrCodeOutput, fmt.Sprintf("writing %s", path), err)
	}
	return nil
}

// Load reads an Aggregate written by Write.
func Load(ctx context.Context, path, format string) (*models.Aggregate, error) {
	var (
		agg *models.Aggregate
		err error
	)
	switch format {
	case config.FormatJSON:
		agg, err = LoadJSON(path)
	case config.FormatYAML:
		agg, err = LoadYAML(path)
	case config.FormatSQLite:
		agg, err = LoadSQLite(ctx, path)
	default:
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, fmt.Sprintf("unknown output format %q", format), nil)
	}
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeOutput, fmt.Sprintf("reading %s", path), err)
	}
	return agg, nil
}

// FormatOf guesses the format of path from its extension, falling back
// to JSON.
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return config.FormatYAML
	case ".db", ".sqlite", ".sqlite3":
		return config.FormatSQLite
	default:
		return config.FormatJSON
	}
}
