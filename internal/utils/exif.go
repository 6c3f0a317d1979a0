package utils

import (
	"bytes"
	"fmt"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Extracts GPS coordinates and capture timestamp from photo EXIF data.
// The coordinates are only suggestions for the submission form; the caller
// still validates them against the region boundary.
func ExtractData(imageData []byte) (lat, lng float64, takenAt string, err error) {
	reader := bytes.NewReader(imageData)

	x, err := exif.Decode(reader)
	if err != nil {
		return 0, 0, "", fmt.Errorf("failed to decode EXIF: %w", err)
	}

	// Try to get GPS latitude/longitude
	lat, lng, err = x.LatLong()
	if err != nil {
		return 0, 0, "", fmt.Errorf("no GPS data found: %w", err)
	}

	// Get dateTime timestamp
	dt, err := x.DateTime()
	if err == nil {
		takenAt = dt.Format("2006-01-02T15:04:05Z07:00")
	}

	var lastErr error = err
	if takenAt == "" {
		// Try DateTimeOriginal
		dateTag, getErr := x.Get(exif.DateTimeOriginal)
		if getErr != nil {
			lastErr = getErr
		} else {
			dateStr, strErr := dateTag.StringVal()
			if strErr != nil {
				lastErr = strErr
			} else {
				// EXIF DateTimeOriginal is typically "2006:01:02 15:04:05"
				// Parse it and format consistently
				t, parseErr := time.Parse("2006:01:02 15:04:05", dateStr)
				if parseErr != nil {
					lastErr = parseErr
				} else {
					takenAt = t.Format("2006-01-02T15:04:05Z07:00")
				}
			}
		}
	}

	if takenAt == "" {
		return 0, 0, "", fmt.Errorf("failed to parse timestamp: %w", lastErr)
	}

	return lat, lng, takenAt, nil
}

// FormatTimestamp converts various timestamp formats to a human-readable format
// Supports both ISO 8601 (2006-01-02T15:04:05Z) and EXIF format (2006:01:02 15:04:05)
// Returns format: "Wednesday, 15 January 2025, 14:30"
func FormatTimestamp(timestamp string) (string, error) {
	var t time.Time
	var err error

	// Try multiple timestamp formats in order of likelihood
	formats := []string{
		time.RFC3339,          // "2006-01-02T15:04:05Z07:00" (with timezone)
		"2006:01:02 15:04:05", // EXIF format
		"2006-01-02T15:04:05", // ISO 8601 without timezone
		"2006-01-02",          // Planting date fields carry bare dates
	}

	for _, format := range formats {
		t, err = time.Parse(format, timestamp)
		if err == nil {
			break
		}
	}

	if err != nil {
		return "", fmt.Errorf("failed to parse timestamp %q: %w", timestamp, err)
	}

	// Format as: "Wednesday, 15 January 2025, 14:30"
	weekday := t.Weekday().String()
	day := t.Day()
	month := t.Month().String()
	year := t.Year()
	hour := fmt.Sprintf("%02d", t.Hour())
	minute := fmt.Sprintf("%02d", t.Minute())

	return fmt.Sprintf("%s, %d %s %d, %s:%s", weekday, day, month, year, hour, minute), nil
}

// FormatMillis renders an epoch-millisecond timestamp for display.
func FormatMillis(millis int64) string {
	if millis == 0 {
		return ""
	}
	return time.UnixMilli(millis).Format("2006-01-02 15:04")
}
