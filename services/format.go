package services

import (
	"strconv"
	"strings"
	"time"
)

// reportDateLayout is how every date is printed on a certificate.
const reportDateLayout = "02/01/2006"

// acceptedDateLayouts lists the date forms the backend endpoints are known to send.
var acceptedDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
}

// FormatReportDate formats a backend date as DD/MM/YYYY. Blank input gives the
// placeholder; text in an unknown layout is returned unchanged.
func FormatReportDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Placeholder
	}
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(reportDateLayout)
		}
	}
	return raw
}

// formatAmount prints a quantity without trailing zeros ("2", "2.5").
func formatAmount(qty float64) string {
	return strconv.FormatFloat(qty, 'f', -1, 64)
}

// sanitizeFilename removes characters that are unsafe for filenames.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, ":", "-")
	return s
}
