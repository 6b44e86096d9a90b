package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateKey builds the YYYY-MM-DD key for a record. month is the month
// option's value and day the row's day cell; both must parse as integers.
func DateKey(year int, month, day string) (string, error) {
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil {
		return "", NewScrapeError(ErrCodeInvalidInput, fmt.Sprintf("month value %q is not a number", month), err)
	}
	d, err := strconv.Atoi(strings.TrimSpace(day))
	if err != nil {
		return "", NewScrapeError(ErrCodeInvalidInput, fmt.Sprintf("day value %q is not a number", day), err)
	}
	return fmt.Sprintf("%d-%02d-%02d", year, m, d), nil
}

// DaysIn returns the number of days in month of year, or 0 when month is
// outside 1..12.
func DaysIn(year, month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
