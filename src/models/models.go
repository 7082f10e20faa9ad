package models

import "time"

// Transaction types emitted by the upstream normalization layer.
const (
	TypeBuy        = "BUY"
	TypeSell       = "SELL"
	TypeDividend   = "DIVIDEND"
	TypeDeposit    = "DEPOSIT"
	TypeWithdrawal = "WITHDRAWAL"
	TypeFee        = "FEE"
	TypeTransfer   = "TRANSFER"
)

// Holding period classifications for realized gains.
const (
	HoldingShortTerm = "SHORT_TERM"
	HoldingLongTerm  = "LONG_TERM"
)

// NormalizedTransaction is the immutable input to the deduplication gate.
// Upstream statement parsing has already resolved currency and classification.
// Symbol is empty for pure cash/bank movements, Quantity is zero when the
// source carried no unit count, ExternalID is empty when the feed supplied
// no stable identifier.
type NormalizedTransaction struct {
	Date       time.Time `json:"date"`
	Type       string    `json:"type"`
	Symbol     string    `json:"symbol,omitempty"`
	Quantity   float64   `json:"quantity,omitempty"`
	Amount     float64   `json:"amount"`
	ExternalID string    `json:"externalId,omitempty"`
	AccountID  int64     `json:"accountId"`
}

// HasSymbol reports whether the transaction is a security trade rather than
// a bank movement.
func (t NormalizedTransaction) HasSymbol() bool { return t.Symbol != "" }

// HasQuantity reports whether the source supplied a unit count.
func (t NormalizedTransaction) HasQuantity() bool { return t.Quantity != 0 }

// HasExternalID reports whether the source feed supplied a stable id.
func (t NormalizedTransaction) HasExternalID() bool { return t.ExternalID != "" }

// LedgerEntry is a persisted transaction. Entries are owned exclusively by
// their account and never mutated after creation.
type LedgerEntry struct {
	ID         int64     `json:"id"`
	AccountID  int64     `json:"accountId"`
	Date       time.Time `json:"date"`
	Type       string    `json:"type"`
	Symbol     string    `json:"symbol,omitempty"`
	Quantity   float64   `json:"quantity,omitempty"`
	Amount     float64   `json:"amount"`
	ExternalID string    `json:"externalId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AcquisitionLot is a discrete quantity of a security acquired at one cost
// basis. Fully consumed lots are retained for audit with RemainingQuantity 0.
type AcquisitionLot struct {
	Symbol            string    `json:"symbol"`
	AccountID         int64     `json:"accountId"`
	OpenedDate        time.Time `json:"openedDate"`
	OriginalQuantity  float64   `json:"originalQuantity"`
	RemainingQuantity float64   `json:"remainingQuantity"`
	UnitCost          float64   `json:"unitCost"`
}

// RealizedGainRecord is produced once per lot-consumption event. A single
// sale may close multiple lots and therefore produce multiple records.
type RealizedGainRecord struct {
	Symbol         string    `json:"symbol"`
	QuantityClosed float64   `json:"quantityClosed"`
	Proceeds       float64   `json:"proceeds"`
	CostBasis      float64   `json:"costBasis"`
	AcquiredDate   time.Time `json:"acquiredDate"`
	DisposedDate   time.Time `json:"disposedDate"`
	HoldingPeriod  string    `json:"holdingPeriod"`
	Gain           float64   `json:"gain"`
}

// ClassifyHoldingPeriod returns SHORT_TERM when the disposal happened less
// than one year after acquisition, LONG_TERM otherwise.
func ClassifyHoldingPeriod(acquired, disposed time.Time) string {
	if disposed.Before(acquired.AddDate(1, 0, 0)) {
		return HoldingShortTerm
	}
	return HoldingLongTerm
}

// DuplicateCheck is the duplicate resolver's decision for one transaction.
type DuplicateCheck struct {
	IsDuplicate bool   `json:"isDuplicate"`
	ExistingID  int64  `json:"existingId,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// ImportSummary describes the outcome of one import batch.
type ImportSummary struct {
	BatchID           string `json:"batchId"`
	Imported          int    `json:"imported"`
	DuplicatesSkipped int    `json:"duplicatesSkipped"`
}

// TaxReport aggregates one calendar year of realized gains for a portfolio.
type TaxReport struct {
	PortfolioName  string               `json:"portfolioName"`
	Year           int                  `json:"year"`
	ShortTermGains []RealizedGainRecord `json:"shortTermGains"`
	LongTermGains  []RealizedGainRecord `json:"longTermGains"`
	Totals         TaxReportTotals      `json:"totals"`
}

type TaxReportTotals struct {
	ShortTerm float64 `json:"shortTerm"`
	LongTerm  float64 `json:"longTerm"`
	Net       float64 `json:"net"`
}

// PerformanceMetrics is the Performance Engine's time-weighted return result.
type PerformanceMetrics struct {
	StartDate          time.Time      `json:"startDate"`
	EndDate            time.Time      `json:"endDate"`
	TimeWeightedReturn float64        `json:"timeWeightedReturn"` // percentage
	Annualized         bool           `json:"annualized"`
	SubPeriods         []PeriodReturn `json:"subPeriods"`
}

// PeriodReturn is one sub-period of a time-weighted return computation,
// bounded by external cash flows.
type PeriodReturn struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Return float64   `json:"return"` // decimal, not percentage
	Flow   float64   `json:"flow"`   // external flow at the period end boundary
	Priced bool      `json:"priced"` // false when price data was missing
}

// HoldingPerformance is the per-holding unrealized position view. Cost basis
// is drawn from currently-open lots, not average cost.
type HoldingPerformance struct {
	Symbol         string  `json:"symbol"`
	Quantity       float64 `json:"quantity"`
	CostBasis      float64 `json:"costBasis"`
	CurrentValue   float64 `json:"currentValue"`
	UnrealizedGain float64 `json:"unrealizedGain"`
	Priced         bool    `json:"priced"`
}

// AllocationSlice is one asset-class bucket of the current portfolio value.
type AllocationSlice struct {
	AssetClass string  `json:"assetClass"`
	Value      float64 `json:"value"`
	Percent    float64 `json:"percent"`
}

// BenchmarkComparison aligns the portfolio return series with a benchmark
// index on shared period boundaries. Partial is true when benchmark coverage
// was missing for some sub-period.
type BenchmarkComparison struct {
	Benchmark      string            `json:"benchmark"`
	Periods        []BenchmarkPeriod `json:"periods"`
	PortfolioTotal float64           `json:"portfolioTotal"` // percentage
	BenchmarkTotal float64           `json:"benchmarkTotal"` // percentage over covered periods
	Relative       float64           `json:"relative"`       // percentage points
	Partial        bool              `json:"partial"`
}

type BenchmarkPeriod struct {
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	PortfolioReturn  float64   `json:"portfolioReturn"`  // decimal
	BenchmarkReturn  float64   `json:"benchmarkReturn"`  // decimal
	BenchmarkMissing bool      `json:"benchmarkMissing"`
}

// CashMovement represents a cash deposit or withdrawal.
type CashMovement struct {
	Date   time.Time `json:"date"`
	Type   string    `json:"type"` // "deposit" or "withdrawal"
	Amount float64   `json:"amount"`
}

// BankSummary aggregates the account's pure cash movements.
type BankSummary struct {
	TotalDeposits    float64        `json:"totalDeposits"`
	TotalWithdrawals float64        `json:"totalWithdrawals"`
	Net              float64        `json:"net"`
	Movements        []CashMovement `json:"movements"`
}

// PricePoint is one observation from the external price oracle.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// AnalyticsEnvelope is the wire shape of every analytics response.
type AnalyticsEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
