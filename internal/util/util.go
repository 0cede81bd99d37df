package util

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

var relativeDatePattern = regexp.MustCompile(`^(\d+)([dwmyh])$`)

func SlugifyTitle(title string, maxLength int) string {
	s := slug.Make(title)
	if len(s) > maxLength {
		s = strings.TrimRight(s[:maxLength], "-")
	}
	return s
}

// ShortGUID is a stable eight character digest of a GUID. Feed GUIDs are
// often whole URLs, too long and too unsafe for a file name.
func ShortGUID(guid string) string {
	sum := sha1.Sum([]byte(guid))
	return hex.EncodeToString(sum[:])[:8]
}

func SafeFilename(title, guid string, maxLength int) string {
	base := SlugifyTitle(title, maxLength-9) // Reserve space for the GUID suffix
	if base == "" {
		base = "article"
	}
	return base + "-" + ShortGUID(guid)
}

func DedupeStrings(slice []string) []string {
	seen := make(map[string]bool)
	var result []string

	for _, item := range slice {
		item = strings.TrimSpace(item)
		if item != "" && !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}

	return result
}

// ParseRelativeDate parses relative date expressions like "1d", "1w", "today", "yesterday"
func ParseRelativeDate(dateStr string) (time.Time, error) {
	return parseRelativeDate(dateStr, time.Now().UTC())
}

func parseRelativeDate(dateStr string, now time.Time) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}

	dateStr = strings.ToLower(strings.TrimSpace(dateStr))

	switch dateStr {
	case "today":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	case "yesterday":
		yesterday := now.AddDate(0, 0, -1)
		return time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	if matches := relativeDatePattern.FindStringSubmatch(dateStr); len(matches) == 3 {
		amount, err := strconv.Atoi(matches[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid number: %s", matches[1])
		}

		unit := matches[2]
		var targetTime time.Time

		switch unit {
		case "h":
			targetTime = now.Add(-time.Duration(amount) * time.Hour)
		case "d":
			targetTime = now.AddDate(0, 0, -amount)
		case "w":
			targetTime = now.AddDate(0, 0, -amount*7)
		case "m":
			targetTime = now.AddDate(0, -amount, 0)
		case "y":
			targetTime = now.AddDate(-amount, 0, 0)
		}

		// Anything coarser than hours starts at midnight
		if unit != "h" {
			targetTime = time.Date(targetTime.Year(), targetTime.Month(), targetTime.Day(), 0, 0, 0, 0, time.UTC)
		}

		return targetTime, nil
	}

	if t, err := time.Parse("2006-01-02", dateStr); err == nil {
		return t.UTC(), nil
	}

	// dateStr was lower-cased above, so put the RFC 3339 separators back
	if t, err := time.Parse(time.RFC3339, strings.ToUpper(dateStr)); err == nil {
		return t.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// FormatDateRange turns --since/--until flag values into query bounds.
// An until date covers its whole day.
func FormatDateRange(since, until string) (sinceTime, untilTime *time.Time, err error) {
	if since != "" {
		t, err := ParseRelativeDate(since)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid since date: %w", err)
		}
		sinceTime = &t
	}

	if until != "" {
		t, err := ParseRelativeDate(until)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid until date: %w", err)
		}
		endOfDay := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, time.UTC)
		untilTime = &endOfDay
	}

	return sinceTime, untilTime, nil
}
