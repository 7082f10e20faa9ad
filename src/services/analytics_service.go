package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/entropy80/investment-app-sub002/src/logger"
	"github.com/entropy80/investment-app-sub002/src/model"
	"github.com/entropy80/investment-app-sub002/src/models"
	"github.com/entropy80/investment-app-sub002/src/processors"
	"github.com/entropy80/investment-app-sub002/src/security"
	"github.com/entropy80/investment-app-sub002/src/storage"
	"github.com/entropy80/investment-app-sub002/src/utils"
)

// priceLookback is how far before a valuation window the history request
// reaches, so an as-of price exists for the window's start boundary.
const priceLookback = 30 * 24 * time.Hour

type analyticsServiceImpl struct {
	db        *sql.DB
	store     storage.LedgerStore
	prices    PriceService
	access    security.AccessService
	lots      processors.LotProcessor
	dividends processors.DividendProcessor
	cash      processors.CashMovementProcessor
}

func NewAnalyticsService(db *sql.DB, store storage.LedgerStore, prices PriceService, access security.AccessService) AnalyticsService {
	return &analyticsServiceImpl{
		db:        db,
		store:     store,
		prices:    prices,
		access:    access,
		lots:      processors.NewLotProcessor(),
		dividends: processors.NewDividendProcessor(),
		cash:      processors.NewCashMovementProcessor(),
	}
}

// portfolioEntries verifies ownership and loads the portfolio's full ledger,
// date ascending. The missing and not-owned cases collapse into
// ErrPortfolioNotFound.
func (s *analyticsServiceImpl) portfolioEntries(ctx context.Context, portfolioID, userID int64) ([]models.LedgerEntry, error) {
	if _, err := model.GetPortfolioForUser(s.db, portfolioID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPortfolioNotFound
		}
		return nil, fmt.Errorf("loading portfolio %d: %w", portfolioID, err)
	}
	entries, err := s.store.ListByPortfolio(ctx, portfolioID, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("loading ledger for portfolio %d: %w", portfolioID, err)
	}
	return entries, nil
}

// priceHistories fetches the oracle series for every symbol the ledger has
// touched. Oracle failures degrade to missing coverage rather than aborting
// the calculation.
func (s *analyticsServiceImpl) priceHistories(ctx context.Context, entries []models.LedgerEntry, from, to time.Time) map[string][]models.PricePoint {
	histories := make(map[string][]models.PricePoint)
	for _, symbol := range ledgerSymbols(entries) {
		points, err := s.prices.PriceHistory(ctx, symbol, from.Add(-priceLookback), to)
		if err != nil {
			logger.L.Warn("price history unavailable, valuing without it",
				"symbol", symbol, "error", err)
			continue
		}
		if len(points) > 0 {
			histories[symbol] = points
		}
	}
	return histories
}

func ledgerSymbols(entries []models.LedgerEntry) []string {
	seen := make(map[string]struct{})
	var symbols []string
	for _, entry := range entries {
		if entry.Symbol == "" {
			continue
		}
		if _, ok := seen[entry.Symbol]; ok {
			continue
		}
		seen[entry.Symbol] = struct{}{}
		symbols = append(symbols, entry.Symbol)
	}
	return symbols
}

func (s *analyticsServiceImpl) CalculatePerformanceMetrics(ctx context.Context, portfolioID, userID int64, from, to time.Time) (*models.PerformanceMetrics, error) {
	entries, err := s.portfolioEntries(ctx, portfolioID, userID)
	if err != nil {
		return nil, err
	}
	histories := s.priceHistories(ctx, entries, from, to)
	metrics := processors.CalculatePerformanceMetrics(entries, histories, from, to)
	return &metrics, nil
}

func (s *analyticsServiceImpl) CalculateHoldingPerformance(ctx context.Context, portfolioID, userID int64) ([]models.HoldingPerformance, error) {
	entries, err := s.portfolioEntries(ctx, portfolioID, userID)
	if err != nil {
		return nil, err
	}
	result, err := s.lots.Replay(entries)
	if err != nil {
		return nil, fmt.Errorf("replaying ledger for portfolio %d: %w", portfolioID, err)
	}

	openLots := result.OpenLots()
	latest := make(map[string]float64)
	for _, symbol := range lotSymbols(openLots) {
		price, found, err := s.prices.LatestPrice(ctx, symbol)
		if err != nil {
			logger.L.Warn("latest price unavailable, falling back to cost basis",
				"symbol", symbol, "error", err)
			continue
		}
		if found {
			latest[symbol] = price
		}
	}
	return processors.HoldingPerformances(openLots, latest), nil
}

func lotSymbols(lots []models.AcquisitionLot) []string {
	seen := make(map[string]struct{})
	var symbols []string
	for _, lot := range lots {
		if _, ok := seen[lot.Symbol]; ok {
			continue
		}
		seen[lot.Symbol] = struct{}{}
		symbols = append(symbols, lot.Symbol)
	}
	return symbols
}

func (s *analyticsServiceImpl) CalculateAllocation(ctx context.Context, portfolioID, userID int64) ([]models.AllocationSlice, error) {
	entries, err := s.portfolioEntries(ctx, portfolioID, userID)
	if err != nil {
		return nil, err
	}
	holdings, err := s.CalculateHoldingPerformance(ctx, portfolioID, userID)
	if err != nil {
		return nil, err
	}

	assetClasses := make(map[string]string)
	symbols := make([]string, 0, len(holdings))
	for _, holding := range holdings {
		symbols = append(symbols, holding.Symbol)
	}
	if len(symbols) > 0 {
		securities, err := model.GetSecuritiesBySymbols(s.db, symbols)
		if err != nil {
			return nil, fmt.Errorf("loading asset classes: %w", err)
		}
		for symbol, info := range securities {
			assetClasses[symbol] = info.AssetClass
		}
	}

	cashBalance := processors.CashBalance(entries, time.Now())
	return processors.CalculateAllocation(holdings, assetClasses, cashBalance), nil
}

func (s *analyticsServiceImpl) CalculateDividendSummary(ctx context.Context, portfolioID, userID int64, year int) (processors.DividendSummary, error) {
	entries, err := s.portfolioEntries(ctx, portfolioID, userID)
	if err != nil {
		return nil, err
	}
	return s.dividends.SummarizeYear(entries, year), nil
}

func (s *analyticsServiceImpl) CompareToBenchmark(ctx context.Context, portfolioID, userID int64, from, to time.Time, benchmark string) (*models.BenchmarkComparison, error) {
	decision, err := s.access.ValidateAccess(userID, security.FeatureBenchmarkComparison)
	if err != nil {
		return nil, fmt.Errorf("checking benchmark access for user %d: %w", userID, err)
	}
	if !decision.Allowed {
		return nil, &AccessDeniedError{
			Feature:      security.FeatureBenchmarkComparison,
			Tier:         decision.Tier,
			RequiredTier: decision.RequiredTier,
		}
	}

	metrics, err := s.CalculatePerformanceMetrics(ctx, portfolioID, userID, from, to)
	if err != nil {
		return nil, err
	}
	benchHistory, err := s.prices.PriceHistory(ctx, benchmark, from.Add(-priceLookback), to)
	if err != nil {
		logger.L.Warn("benchmark history unavailable, comparison will be partial",
			"benchmark", benchmark, "error", err)
	}
	return processors.CompareToBenchmark(metrics.SubPeriods, benchHistory, benchmark), nil
}

func (s *analyticsServiceImpl) CalculateRealizedGains(ctx context.Context, portfolioID, userID int64, year int) (*RealizedGainsSummary, error) {
	if _, err := model.GetPortfolioForUser(s.db, portfolioID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPortfolioNotFound
		}
		return nil, fmt.Errorf("loading portfolio %d: %w", portfolioID, err)
	}
	accountIDs, err := model.ListAccountIDs(s.db, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts for portfolio %d: %w", portfolioID, err)
	}

	summary := &RealizedGainsSummary{Year: year}
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
			summary.Records = append(summary.Records, gain)
			if gain.HoldingPeriod == models.HoldingShortTerm {
				summary.ShortTerm += gain.Gain
			} else {
				summary.LongTerm += gain.Gain
			}
		}
	}
	summary.ShortTerm = utils.RoundCurrency(summary.ShortTerm)
	summary.LongTerm = utils.RoundCurrency(summary.LongTerm)
	summary.Net = utils.RoundCurrency(summary.ShortTerm + summary.LongTerm)
	return summary, nil
}

func (s *analyticsServiceImpl) GetReturnHistory(ctx context.Context, portfolioID, userID int64, from, to time.Time) ([]models.PeriodReturn, error) {
	metrics, err := s.CalculatePerformanceMetrics(ctx, portfolioID, userID, from, to)
	if err != nil {
		return nil, err
	}
	return metrics.SubPeriods, nil
}

func (s *analyticsServiceImpl) GetBankSummary(ctx context.Context, portfolioID, userID int64) (*models.BankSummary, error) {
	entries, err := s.portfolioEntries(ctx, portfolioID, userID)
	if err != nil {
		return nil, err
	}
	summary := s.cash.Summarize(entries)
	return &summary, nil
}
