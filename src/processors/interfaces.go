package processors

import (
	"github.com/entropy80/investment-app-sub002/src/models"
)

// ReplayResult is the outcome of replaying a deduplicated ledger through the
// lot state machine. Lots holds every acquisition lot ever opened, including
// fully consumed ones (RemainingQuantity == 0), for audit.
type ReplayResult struct {
	Lots          []models.AcquisitionLot
	RealizedGains []models.RealizedGainRecord
}

// OpenLots returns the lots that still carry unconsumed quantity.
func (r *ReplayResult) OpenLots() []models.AcquisitionLot {
	var open []models.AcquisitionLot
	for _, lot := range r.Lots {
		if lot.RemainingQuantity > QuantityEpsilon {
			open = append(open, lot)
		}
	}
	return open
}

// LotProcessor replays ledger entries into acquisition lots and realized
// gain records.
type LotProcessor interface {
	// Replay consumes entries in the given order. Callers must supply them
	// date ascending with insertion-order tie-break. The replay is pure: it
	// never mutates persisted state and is safe to run concurrently.
	Replay(entries []models.LedgerEntry) (*ReplayResult, error)
}

// DividendSummary groups dividend amounts by month ("2006-01") and symbol.
type DividendSummary map[string]map[string]float64

// DividendProcessor aggregates dividend ledger entries.
type DividendProcessor interface {
	SummarizeYear(entries []models.LedgerEntry, year int) DividendSummary
}

// CashMovementProcessor extracts deposits and withdrawals from the ledger.
type CashMovementProcessor interface {
	Process(entries []models.LedgerEntry) []models.CashMovement
	Summarize(entries []models.LedgerEntry) models.BankSummary
}
