package processors

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/entropy80/investment-app-sub002/src/models"
	"github.com/entropy80/investment-app-sub002/src/utils"
)

// ErrOversell marks a disposal that exceeds the open lot quantity for its
// symbol/account. It indicates a data problem in the ledger and is never
// retried or clamped.
var ErrOversell = errors.New("disposal exceeds open lot quantity")

// OversellError carries the context needed to locate the inconsistent ledger
// data. It unwraps to ErrOversell.
type OversellError struct {
	Symbol    string
	AccountID int64
	Date      time.Time
	Missing   float64
}

func (e *OversellError) Error() string {
	return fmt.Sprintf("ledger inconsistency: sale of %s in account %d on %s exceeds open lots by %g units",
		e.Symbol, e.AccountID, e.Date.Format("2006-01-02"), e.Missing)
}

func (e *OversellError) Unwrap() error { return ErrOversell }

type lotProcessorImpl struct{}

// NewLotProcessor creates a new instance of LotProcessor.
func NewLotProcessor() LotProcessor {
	return &lotProcessorImpl{}
}

// lotState tracks the open lot queue for one (account, symbol) pair during
// a replay. queue holds indexes into ReplayResult.Lots so consumed lots stay
// visible in the output.
type lotState struct {
	queue []int
}

func lotKey(accountID int64, symbol string) string {
	return fmt.Sprintf("%d|%s", accountID, symbol)
}

// Replay walks the ledger in order and applies the lot state machine:
// BUY-class entries open a lot, SELL entries consume the oldest open lots
// first, everything else leaves lot state untouched.
func (p *lotProcessorImpl) Replay(entries []models.LedgerEntry) (*ReplayResult, error) {
	result := &ReplayResult{}
	states := make(map[string]*lotState)

	stateFor := func(accountID int64, symbol string) *lotState {
		key := lotKey(accountID, symbol)
		st, ok := states[key]
		if !ok {
			st = &lotState{}
			states[key] = st
		}
		return st
	}

	for _, entry := range entries {
		if !isLotRelevant(entry) {
			continue
		}

		switch entry.Type {
		case models.TypeBuy:
			qty := entry.Quantity
			if qty <= 0 {
				continue
			}
			st := stateFor(entry.AccountID, entry.Symbol)
			result.Lots = append(result.Lots, models.AcquisitionLot{
				Symbol:            entry.Symbol,
				AccountID:         entry.AccountID,
				OpenedDate:        entry.Date,
				OriginalQuantity:  qty,
				RemainingQuantity: qty,
				UnitCost:          math.Abs(entry.Amount) / qty,
			})
			st.queue = append(st.queue, len(result.Lots)-1)

		case models.TypeSell:
			saleQty := entry.Quantity
			if saleQty <= 0 {
				continue
			}
			st := stateFor(entry.AccountID, entry.Symbol)
			gains, err := p.consume(result, st, entry, saleQty)
			if err != nil {
				return nil, err
			}
			result.RealizedGains = append(result.RealizedGains, gains...)
		}
	}

	return result, nil
}

// consume closes quantity against the FIFO queue, emitting one realized gain
// record per lot touched. Proceeds are apportioned pro-rata by quantity
// closed over total sale quantity.
func (p *lotProcessorImpl) consume(result *ReplayResult, st *lotState, sale models.LedgerEntry, saleQty float64) ([]models.RealizedGainRecord, error) {
	proceeds := math.Abs(sale.Amount)
	remaining := saleQty
	var gains []models.RealizedGainRecord

	for remaining > QuantityEpsilon && len(st.queue) > 0 {
		lot := &result.Lots[st.queue[0]]
		matched := utils.MinFloat(remaining, lot.RemainingQuantity)

		// Round to cents per record so pro-rata apportionment noise never
		// leaks into gain comparisons or report totals.
		costBasis := utils.RoundCurrency(lot.UnitCost * matched)
		lotProceeds := utils.RoundCurrency(proceeds * (matched / saleQty))

		gains = append(gains, models.RealizedGainRecord{
			Symbol:         sale.Symbol,
			QuantityClosed: matched,
			Proceeds:       lotProceeds,
			CostBasis:      costBasis,
			AcquiredDate:   lot.OpenedDate,
			DisposedDate:   sale.Date,
			HoldingPeriod:  models.ClassifyHoldingPeriod(lot.OpenedDate, sale.Date),
			Gain:           utils.RoundCurrency(lotProceeds - costBasis),
		})

		remaining -= matched
		lot.RemainingQuantity -= matched

		if lot.RemainingQuantity <= QuantityEpsilon {
			lot.RemainingQuantity = 0
			st.queue = st.queue[1:]
		}
	}

	if remaining > QuantityEpsilon {
		return nil, &OversellError{
			Symbol:    sale.Symbol,
			AccountID: sale.AccountID,
			Date:      sale.Date,
			Missing:   remaining,
		}
	}

	return gains, nil
}

// isLotRelevant filters out entries that never affect lot state: bank
// movements, transfers, and non-trade security entries (dividends, fees).
func isLotRelevant(entry models.LedgerEntry) bool {
	if entry.Symbol == "" {
		return false
	}
	switch entry.Type {
	case models.TypeBuy, models.TypeSell:
		return true
	}
	return false
}
