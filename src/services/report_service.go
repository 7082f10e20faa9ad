package services

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/entropy80/investment-app-sub002/src/logger"
	"github.com/entropy80/investment-app-sub002/src/model"
	"github.com/entropy80/investment-app-sub002/src/models"
	"github.com/entropy80/investment-app-sub002/src/processors"
	"github.com/entropy80/investment-app-sub002/src/security"
	"github.com/entropy80/investment-app-sub002/src/storage"
	"github.com/entropy80/investment-app-sub002/src/utils"
)

type reportServiceImpl struct {
	db     *sql.DB
	store  storage.LedgerStore
	lots   processors.LotProcessor
	access security.AccessService
}

func NewReportService(db *sql.DB, store storage.LedgerStore, access security.AccessService) ReportService {
	return &reportServiceImpl{
		db:     db,
		store:  store,
		lots:   processors.NewLotProcessor(),
		access: access,
	}
}

// GenerateTaxReport replays the portfolio's ledger through the lot state
// machine and keeps the realized gains whose disposal falls in the requested
// year. The report is recomputed from the ledger on every call.
func (s *reportServiceImpl) GenerateTaxReport(ctx context.Context, portfolioID, userID int64, opts TaxReportOptions) (*models.TaxReport, error) {
	portfolio, err := model.GetPortfolioForUser(s.db, portfolioID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPortfolioNotFound
		}
		return nil, fmt.Errorf("loading portfolio %d: %w", portfolioID, err)
	}

	decision, err := s.access.ValidateAccess(userID, security.FeatureTaxReport)
	if err != nil {
		return nil, fmt.Errorf("checking tax report access for user %d: %w", userID, err)
	}
	if !decision.Allowed {
		return nil, &AccessDeniedError{
			Feature:      security.FeatureTaxReport,
			Tier:         decision.Tier,
			RequiredTier: decision.RequiredTier,
		}
	}

	gains, err := s.realizedGainsForYear(ctx, portfolioID, opts.Year, opts.IncludeZeroGains)
	if err != nil {
		return nil, err
	}

	report := &models.TaxReport{
		PortfolioName: portfolio.Name,
		Year:          opts.Year,
	}
	for _, gain := range gains {
		if gain.HoldingPeriod == models.HoldingShortTerm {
			report.ShortTermGains = append(report.ShortTermGains, gain)
			report.Totals.ShortTerm += gain.Gain
		} else {
			report.LongTermGains = append(report.LongTermGains, gain)
			report.Totals.LongTerm += gain.Gain
		}
	}
	report.Totals.ShortTerm = utils.RoundCurrency(report.Totals.ShortTerm)
	report.Totals.LongTerm = utils.RoundCurrency(report.Totals.LongTerm)
	report.Totals.Net = utils.RoundCurrency(report.Totals.ShortTerm + report.Totals.LongTerm)

	logger.L.Info("tax report generated",
		"portfolioID", portfolioID,
		"year", opts.Year,
		"shortTermRecords", len(report.ShortTermGains),
		"longTermRecords", len(report.LongTermGains))
	return report, nil
}

// realizedGainsForYear replays each account's ledger independently; lots
// never cross account boundaries.
func (s *reportServiceImpl) realizedGainsForYear(ctx context.Context, portfolioID int64, year int, includeZero bool) ([]models.RealizedGainRecord, error) {
	accountIDs, err := model.ListAccountIDs(s.db, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts for portfolio %d: %w", portfolioID, err)
	}

	var gains []models.RealizedGainRecord
	for _, accountID := range accountIDs {
		entries, err := s.store.ListByAccount(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("loading ledger for account %d: %w", accountID, err)
		}
		result, err := s.lots.Replay(entries)
		if err != nil {
			return nil, fmt.Errorf("replaying ledger for account %d: %w", accountID, err)
		}
		for _, gain := range result.RealizedGains {
			if gain.DisposedDate.Year() != year {
				continue
			}
			if gain.Gain == 0 && !includeZero {
				continue
			}
			gains = append(gains, gain)
		}
	}

	sort.SliceStable(gains, func(i, j int) bool {
		if !gains[i].DisposedDate.Equal(gains[j].DisposedDate) {
			return gains[i].DisposedDate.Before(gains[j].DisposedDate)
		}
		if gains[i].Symbol != gains[j].Symbol {
			return gains[i].Symbol < gains[j].Symbol
		}
		return gains[i].AcquiredDate.Before(gains[j].AcquiredDate)
	})
	return gains, nil
}

var csvHeader = []string{"Description", "Acquired", "Disposed", "Proceeds", "Cost Basis", "Gain/Loss", "Term"}

// GenerateForm8949CSV renders one row per realized gain record, short-term
// rows first, in the report's order.
func (s *reportServiceImpl) GenerateForm8949CSV(report *models.TaxReport) (string, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("writing csv header: %w", err)
	}
	for _, gain := range report.ShortTermGains {
		if err := w.Write(csvRow(gain, "Short-term")); err != nil {
			return "", fmt.Errorf("writing csv row: %w", err)
		}
	}
	for _, gain := range report.LongTermGains {
		if err := w.Write(csvRow(gain, "Long-term")); err != nil {
			return "", fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing csv: %w", err)
	}
	return buf.String(), nil
}

func csvRow(gain models.RealizedGainRecord, term string) []string {
	description := fmt.Sprintf("%s %s", strconv.FormatFloat(gain.QuantityClosed, 'f', -1, 64), gain.Symbol)
	return []string{
		description,
		utils.FormatDate(gain.AcquiredDate),
		utils.FormatDate(gain.DisposedDate),
		utils.FormatCurrency(gain.Proceeds),
		utils.FormatCurrency(gain.CostBasis),
		utils.FormatCurrency(gain.Gain),
		term,
	}
}
