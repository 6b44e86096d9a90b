package scraper

import (
	"context"
	"errors"

	"github.com/use-agent/prayertimes/models"
)

// categorizeError wraps raw errors into typed ScrapeErrors so callers can
// tell a timeout from a broken page.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "run canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}

// selectionError is categorizeError for selection steps: anything other
// than a deadline is a selection failure.
func selectionError(err error, msg string) *models.ScrapeError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return categorizeError(err, msg)
	}
	return models.NewScrapeError(models.ErrCodeSelection, msg, err)
}
