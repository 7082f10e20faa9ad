package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entropy80/investment-app-sub002/src/models"
	"github.com/entropy80/investment-app-sub002/src/processors"
)

// ErrPortfolioNotFound covers both a missing portfolio and one owned by a
// different user; the two are deliberately indistinguishable to the caller.
var ErrPortfolioNotFound = errors.New("portfolio not found")

// ErrBatchTooLarge rejects oversized import batches before any lookups run.
var ErrBatchTooLarge = errors.New("import batch too large")

// ErrAccessDenied marks a report gated behind a higher subscription tier.
var ErrAccessDenied = errors.New("access denied")

// AccessDeniedError carries the tier the caller would need. Unwraps to
// ErrAccessDenied.
type AccessDeniedError struct {
	Feature      string
	Tier         string
	RequiredTier string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("feature %q requires tier %q (current tier %q)", e.Feature, e.RequiredTier, e.Tier)
}

func (e *AccessDeniedError) Unwrap() error { return ErrAccessDenied }

// ImportService is the deduplication gate between normalized transactions
// and the persisted ledger.
type ImportService interface {
	// Resolve decides whether tx duplicates an existing ledger entry of the
	// account. Pure decision function; no side effects.
	Resolve(ctx context.Context, tx models.NormalizedTransaction, accountID int64) (models.DuplicateCheck, error)

	// FindExisting bulk-resolves the externalId branch for a whole batch,
	// returning a map from externalId to the existing ledger entry id. An
	// empty map is not an error; callers fall back to per-row Resolve for
	// composite-key matching.
	FindExisting(ctx context.Context, txs []models.NormalizedTransaction, accountID int64) (map[string]int64, error)

	// ImportBatch runs the gate end to end and persists the non-duplicates.
	// Re-importing the same batch is idempotent.
	ImportBatch(ctx context.Context, accountID int64, txs []models.NormalizedTransaction) (*models.ImportSummary, error)
}

// TaxReportOptions selects the reporting year and whether records with zero
// gain are kept.
type TaxReportOptions struct {
	Year             int
	IncludeZeroGains bool
}

// ReportService builds the annual capital-gains report and its CSV form.
type ReportService interface {
	GenerateTaxReport(ctx context.Context, portfolioID, userID int64, opts TaxReportOptions) (*models.TaxReport, error)
	GenerateForm8949CSV(report *models.TaxReport) (string, error)
}

// PriceService is the external price oracle. Coverage may be partial;
// callers degrade rather than abort.
type PriceService interface {
	// LatestPrice returns the current price for a symbol. The bool is false
	// when the oracle has no coverage for the symbol.
	LatestPrice(ctx context.Context, symbol string) (float64, bool, error)

	// PriceHistory returns date-ascending observations within [from, to].
	// Missing coverage yields a shorter (possibly empty) series, not an error.
	PriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error)
}

// RealizedGainsSummary is the raw annual realized-gain aggregate, without
// the report formatting.
type RealizedGainsSummary struct {
	Year      int                         `json:"year"`
	ShortTerm float64                     `json:"shortTerm"`
	LongTerm  float64                     `json:"longTerm"`
	Net       float64                     `json:"net"`
	Records   []models.RealizedGainRecord `json:"records"`
}

// AnalyticsService computes portfolio analytics from the deduplicated ledger
// plus external price snapshots. Every method is read-only and recomputes
// from the ledger; there is no derived-state cache to invalidate.
type AnalyticsService interface {
	CalculatePerformanceMetrics(ctx context.Context, portfolioID, userID int64, from, to time.Time) (*models.PerformanceMetrics, error)
	CalculateHoldingPerformance(ctx context.Context, portfolioID, userID int64) ([]models.HoldingPerformance, error)
	CalculateAllocation(ctx context.Context, portfolioID, userID int64) ([]models.AllocationSlice, error)
	CalculateDividendSummary(ctx context.Context, portfolioID, userID int64, year int) (processors.DividendSummary, error)
	CompareToBenchmark(ctx context.Context, portfolioID, userID int64, from, to time.Time, benchmark string) (*models.BenchmarkComparison, error)
	CalculateRealizedGains(ctx context.Context, portfolioID, userID int64, year int) (*RealizedGainsSummary, error)
	GetReturnHistory(ctx context.Context, portfolioID, userID int64, from, to time.Time) ([]models.PeriodReturn, error)
	GetBankSummary(ctx context.Context, portfolioID, userID int64) (*models.BankSummary, error)
}
