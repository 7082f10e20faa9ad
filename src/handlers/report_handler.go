package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/entropy80/investment-app-sub002/src/logger"
	"github.com/entropy80/investment-app-sub002/src/models"
	"github.com/entropy80/investment-app-sub002/src/processors"
	"github.com/entropy80/investment-app-sub002/src/security/validation"
	"github.com/entropy80/investment-app-sub002/src/services"
	"github.com/entropy80/investment-app-sub002/src/utils"
)

type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) taxReportFromRequest(w http.ResponseWriter, r *http.Request) (*models.TaxReport, bool) {
	userID, ok := GetUserIDFromContext(r)
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return nil, false
	}

	portfolioID, err := validation.ValidateID(r.URL.Query().Get("portfolioId"), "portfolioId")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	year, err := validation.ValidateYear(r.URL.Query().Get("year"))
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	opts := services.TaxReportOptions{
		Year:             year,
		IncludeZeroGains: r.URL.Query().Get("includeZeroGains") == "true",
	}
	report, err := h.reportService.GenerateTaxReport(r.Context(), portfolioID, userID, opts)
	if err != nil {
		var denied *services.AccessDeniedError
		switch {
		case errors.Is(err, services.ErrPortfolioNotFound):
			utils.SendJSONError(w, "Portfolio not found", http.StatusNotFound)
		case errors.As(err, &denied):
			utils.SendJSONError(w, fmt.Sprintf("Tax reports require the %s tier", denied.RequiredTier), http.StatusForbidden)
		case errors.Is(err, processors.ErrOversell):
			// Ledger inconsistency. Retrying cannot fix it, so the caller
			// gets the full symbol/account/date context, not a generic 500.
			logger.L.Error("tax report aborted on inconsistent ledger", "portfolioID", portfolioID, "year", year, "error", err)
			utils.SendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			logger.L.Error("tax report generation failed", "portfolioID", portfolioID, "year", year, "error", err)
			utils.SendJSONError(w, "Failed to generate tax report", http.StatusInternalServerError)
		}
		return nil, false
	}
	return report, true
}

// HandleTaxReport serves the annual capital-gains report as JSON.
func (h *ReportHandler) HandleTaxReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.taxReportFromRequest(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// HandleTaxReportCSV serves the same report as a Form 8949 style CSV
// download.
func (h *ReportHandler) HandleTaxReportCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := h.taxReportFromRequest(w, r)
	if !ok {
		return
	}

	csvData, err := h.reportService.GenerateForm8949CSV(report)
	if err != nil {
		logger.L.Error("csv export failed", "year", report.Year, "error", err)
		utils.SendJSONError(w, "Failed to export tax report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tax-report-%d.csv"`, report.Year))
	w.Write([]byte(csvData))
}
