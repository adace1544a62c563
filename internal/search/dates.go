package search

import (
	"strconv"
	"strings"
	"time"
)

// dateFormats returns the accepted date layouts, most specific first. The
// locale decides how slash-separated numeric dates read: en-* locales use
// month/day/year, everything else day/month/year.
func dateFormats(locale string) []string {
	numeric := "02/01/2006"
	if strings.HasPrefix(strings.ToLower(locale), "en") {
		numeric = "01/02/2006"
	}
	return []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"2006/01/02",
		numeric,
		"20060102",
		"2006",
	}
}

// parseDate attempts to read value as a date in the configured time zone,
// truncated to the configured resolution.
func parseDate(value string, s Settings) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	loc := s.Location()
	for _, layout := range dateFormats(s.Locale) {
		t, err := time.ParseInLocation(layout, value, loc)
		if err != nil {
			continue
		}
		return truncateToResolution(t, s.DateResolution), true
	}
	return time.Time{}, false
}

// truncateToResolution drops the sub-resolution components of t.
func truncateToResolution(t time.Time, res DateResolution) time.Time {
	loc := t.Location()
	switch res {
	case ResolutionYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, loc)
	case ResolutionMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	case ResolutionDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	case ResolutionHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
	case ResolutionMinute:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
	}
}

func parseFloat(v string) (float64, error) {
	return strconv.ParseFloat(v, 64)
}
