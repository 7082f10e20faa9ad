package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Analytics report types accepted by the API.
var allowedReportTypes = map[string]bool{
	"performance":  true,
	"holdings":     true,
	"dividends":    true,
	"allocation":   true,
	"history":      true,
	"benchmark":    true,
	"tax":          true,
	"bank_summary": true,
}

// ValidateReportType rejects unsupported analytics report types before any
// computation runs.
func ValidateReportType(reportType string) error {
	if !allowedReportTypes[strings.ToLower(strings.TrimSpace(reportType))] {
		return fmt.Errorf("unsupported report type %q", reportType)
	}
	return nil
}

// ValidateYear parses a caller-supplied year and rejects values outside a
// plausible filing range.
func ValidateYear(yearStr string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(yearStr))
	if err != nil {
		return 0, fmt.Errorf("year must be numeric, got %q", yearStr)
	}
	if year < 1900 || year > time.Now().Year()+1 {
		return 0, fmt.Errorf("year %d is out of range", year)
	}
	return year, nil
}

// ValidateID parses a caller-supplied numeric identifier.
func ValidateID(idStr, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, idStr)
	}
	return id, nil
}

// SanitizeSymbol normalizes a ticker symbol for lookups.
func SanitizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
