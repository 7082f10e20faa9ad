package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/entropy80/investment-app-sub002/src/config"
	"github.com/entropy80/investment-app-sub002/src/logger"
	"github.com/entropy80/investment-app-sub002/src/models"
	"github.com/entropy80/investment-app-sub002/src/processors"
	"github.com/entropy80/investment-app-sub002/src/security/validation"
	"github.com/entropy80/investment-app-sub002/src/services"
	"github.com/entropy80/investment-app-sub002/src/utils"
)

type AnalyticsHandler struct {
	analyticsService services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// timeRange reads the optional from/to query parameters. The default window
// is the trailing year ending today.
func timeRange(r *http.Request) (time.Time, time.Time, error) {
	to := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed := utils.ParseDate(raw)
		if parsed.IsZero() {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date %q", raw)
		}
		to = parsed
	}
	from := to.AddDate(-1, 0, 0)
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed := utils.ParseDate(raw)
		if parsed.IsZero() {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date %q", raw)
		}
		from = parsed
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("from %s must precede to %s", utils.FormatDate(from), utils.FormatDate(to))
	}
	return from, to, nil
}

func yearOrCurrent(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return time.Now().Year(), nil
	}
	return validation.ValidateYear(raw)
}

// HandleAnalytics dispatches on the type query parameter and wraps every
// result in the common envelope. Validation runs before any computation.
func (h *AnalyticsHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r)
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	reportType := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type")))
	if err := validation.ValidateReportType(reportType); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	portfolioID, err := validation.ValidateID(r.URL.Query().Get("portfolioId"), "portfolioId")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var data any
	switch reportType {
	case "performance":
		from, to, rangeErr := timeRange(r)
		if rangeErr != nil {
			utils.SendJSONError(w, rangeErr.Error(), http.StatusBadRequest)
			return
		}
		data, err = h.analyticsService.CalculatePerformanceMetrics(r.Context(), portfolioID, userID, from, to)

	case "holdings":
		data, err = h.analyticsService.CalculateHoldingPerformance(r.Context(), portfolioID, userID)

	case "allocation":
		data, err = h.analyticsService.CalculateAllocation(r.Context(), portfolioID, userID)

	case "dividends":
		year, yearErr := yearOrCurrent(r)
		if yearErr != nil {
			utils.SendJSONError(w, yearErr.Error(), http.StatusBadRequest)
			return
		}
		data, err = h.analyticsService.CalculateDividendSummary(r.Context(), portfolioID, userID, year)

	case "history":
		from, to, rangeErr := timeRange(r)
		if rangeErr != nil {
			utils.SendJSONError(w, rangeErr.Error(), http.StatusBadRequest)
			return
		}
		data, err = h.analyticsService.GetReturnHistory(r.Context(), portfolioID, userID, from, to)

	case "benchmark":
		from, to, rangeErr := timeRange(r)
		if rangeErr != nil {
			utils.SendJSONError(w, rangeErr.Error(), http.StatusBadRequest)
			return
		}
		benchmark := validation.SanitizeSymbol(r.URL.Query().Get("benchmark"))
		if benchmark == "" && config.Cfg != nil {
			benchmark = config.Cfg.BenchmarkSymbol
		}
		if benchmark == "" {
			utils.SendJSONError(w, "benchmark symbol is required", http.StatusBadRequest)
			return
		}
		data, err = h.analyticsService.CompareToBenchmark(r.Context(), portfolioID, userID, from, to, benchmark)

	case "tax":
		year, yearErr := yearOrCurrent(r)
		if yearErr != nil {
			utils.SendJSONError(w, yearErr.Error(), http.StatusBadRequest)
			return
		}
		data, err = h.analyticsService.CalculateRealizedGains(r.Context(), portfolioID, userID, year)

	case "bank_summary":
		data, err = h.analyticsService.GetBankSummary(r.Context(), portfolioID, userID)
	}

	if err != nil {
		var denied *services.AccessDeniedError
		switch {
		case errors.Is(err, services.ErrPortfolioNotFound):
			utils.SendJSONError(w, "Portfolio not found", http.StatusNotFound)
		case errors.As(err, &denied):
			utils.SendJSONError(w, fmt.Sprintf("%s analytics require the %s tier", reportType, denied.RequiredTier), http.StatusForbidden)
		case errors.Is(err, processors.ErrOversell):
			logger.L.Error("analytics aborted on inconsistent ledger",
				"type", reportType, "portfolioID", portfolioID, "error", err)
			utils.SendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			logger.L.Error("analytics calculation failed",
				"type", reportType, "portfolioID", portfolioID, "error", err)
			utils.SendJSONError(w, "Failed to calculate analytics", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.AnalyticsEnvelope{Type: reportType, Data: data})
}
