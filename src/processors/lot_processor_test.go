package processors

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/entropy80/investment-app-sub002/src/models"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func approxEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestReplay_SingleLotFullSale(t *testing.T) {
	// Buy 10 AAPL for $100, sell all 10 for $150.
	entries := []models.LedgerEntry{
		{AccountID: 1, Date: day(2024, 1, 10), Type: models.TypeBuy, Symbol: "AAPL", Quantity: 10, Amount: -100},
		{AccountID: 1, Date: day(2024, 3, 10), Type: models.TypeSell, Symbol: "AAPL", Quantity: 10, Amount: 150},
	}

	result, err := NewLotProcessor().Replay(entries)
	if err != nil {
		t.Fatalf("Replay returned error: %v", err)
	}
	if len(result.RealizedGains) != 1 {
		t.Fatalf("got %d realized gains, want 1", len(result.RealizedGains))
	}
	gain := result.RealizedGains[0]
	if !approxEqual(gain.Gain, 50, 1e-9) {
		t.Errorf("gain = %v, want 50", gain.Gain)
	}
	if !approxEqual(gain.CostBasis, 100, 1e-9) {
		t.Errorf("cost basis = %v, want 100", gain.CostBasis)
	}
	if len(result.OpenLots()) != 0 {
		t.Errorf("expected no open lots, got %d", len(result.OpenLots()))
	}
	// The consumed lot stays in the audit trail with zero remaining.
	if len(result.Lots) != 1 || result.Lots[0].RemainingQuantity != 0 {
		t.Errorf("consumed lot should remain with zero quantity, got %+v", result.Lots)
	}
}

func TestReplay_FIFOMultiLotSale(t *testing.T) {
	// Buy 10 @ $10/unit, then 10 @ $20/unit. Selling 15 @ $25/unit must
	// consume the whole first lot and 5 units of the second.
	entries := []models.LedgerEntry{
		{AccountID: 1, Date: day(2024, 1, 10), Type: models.TypeBuy, Symbol: "VTI", Quantity: 10, Amount: -100},
		{AccountID: 1, Date: day(2024, 2, 10), Type: models.TypeBuy, Symbol: "VTI", Quantity: 10, Amount: -200},
		{AccountID: 1, Date: day(2024, 3, 10), Type: models.TypeSell, Symbol: "VTI", Quantity: 15, Amount: 375},
	}

	result, err := NewLotProcessor().Replay(entries)
	if err != nil {
		t.Fatalf("Replay returned error: %v", err)
	}
	if len(result.RealizedGains) != 2 {
		t.Fatalf("got %d realized gains, want 2 (one per lot touched)", len(result.RealizedGains))
	}

	first := result.RealizedGains[0]
	if first.QuantityClosed != 10 || !first.AcquiredDate.Equal(day(2024, 1, 10)) {
		t.Errorf("first record should close the oldest lot fully, got %+v", first)
	}
	// Proceeds apportioned pro-rata: 375 * 10/15 = 250 against cost 100.
	if !approxEqual(first.Gain, 150, 1e-9) {
		t.Errorf("first gain = %v, want 150", first.Gain)
	}

	second := result.RealizedGains[1]
	if second.QuantityClosed != 5 || !second.AcquiredDate.Equal(day(2024, 2, 10)) {
		t.Errorf("second record should partially close the newer lot, got %+v", second)
	}
	// 375 * 5/15 = 125 against cost 5 * 20 = 100.
	if !approxEqual(second.Gain, 25, 1e-9) {
		t.Errorf("second gain = %v, want 25", second.Gain)
	}

	open := result.OpenLots()
	if len(open) != 1 {
		t.Fatalf("got %d open lots, want 1", len(open))
	}
	if !approxEqual(open[0].RemainingQuantity, 5, 1e-9) {
		t.Errorf("remaining quantity = %v, want 5", open[0].RemainingQuantity)
	}
}

func TestReplay_Oversell(t *testing.T) {
	entries := []models.LedgerEntry{
		{AccountID: 1, Date: day(2024, 1, 10), Type: models.TypeBuy, Symbol: "AAPL", Quantity: 5, Amount: -50},
		{AccountID: 1, Date: day(2024, 2, 10), Type: models.TypeSell, Symbol: "AAPL", Quantity: 10, Amount: 150},
	}

	result, err := NewLotProcessor().Replay(entries)
	if result != nil {
		t.Error("oversell must not produce a partial result")
	}
	if !errors.Is(err, ErrOversell) {
		t.Fatalf("error = %v, want ErrOversell", err)
	}

	var oversell *OversellError
	if !errors.As(err, &oversell) {
		t.Fatal("error should carry oversell context")
	}
	if oversell.Symbol != "AAPL" || !approxEqual(oversell.Missing, 5, 1e-9) {
		t.Errorf("oversell context = %+v, want AAPL missing 5", oversell)
	}
}

func TestReplay_SellWithNoLots(t *testing.T) {
	entries := []models.LedgerEntry{
		{AccountID: 1, Date: day(2024, 2, 10), Type: models.TypeSell, Symbol: "MSFT", Quantity: 1, Amount: 400},
	}
	_, err := NewLotProcessor().Replay(entries)
	if !errors.Is(err, ErrOversell) {
		t.Fatalf("selling with no open lots should oversell, got %v", err)
	}
}

func TestReplay_NonTradeEntriesIgnored(t *testing.T) {
	// Dividends, fees, transfers, and cash movements leave lot state alone.
	entries := []models.LedgerEntry{
		{AccountID: 1, Date: day(2024, 1, 5), Type: models.TypeDeposit, Amount: 1000},
		{AccountID: 1, Date: day(2024, 1, 10), Type: models.TypeBuy, Symbol: "AAPL", Quantity: 10, Amount: -100},
		{AccountID: 1, Date: day(2024, 2, 1), Type: models.TypeDividend, Symbol: "AAPL", Amount: 5},
		{AccountID: 1, Date: day(2024, 2, 2), Type: models.TypeFee, Symbol: "AAPL", Amount: -1},
		{AccountID: 1, Date: day(2024, 2, 3), Type: models.TypeTransfer, Symbol: "AAPL", Quantity: 50, Amount: 0},
		{AccountID: 1, Date: day(2024, 3, 10), Type: models.TypeSell, Symbol: "AAPL", Quantity: 10, Amount: 150},
	}

	result, err := NewLotProcessor().Replay(entries)
	if err != nil {
		t.Fatalf("Replay returned error: %v", err)
	}
	if len(result.Lots) != 1 {
		t.Errorf("only the BUY should open a lot, got %d lots", len(result.Lots))
	}
	if len(result.OpenLots()) != 0 {
		t.Errorf("sale should have consumed the only lot")
	}
}

func TestReplay_LotsDoNotCrossAccounts(t *testing.T) {
	entries := []models.LedgerEntry{
		{AccountID: 1, Date: day(2024, 1, 10), Type: models.TypeBuy, Symbol: "AAPL", Quantity: 10, Amount: -100},
		{AccountID: 2, Date: day(2024, 2, 10), Type: models.TypeSell, Symbol: "AAPL", Quantity: 10, Amount: 150},
	}
	_, err := NewLotProcessor().Replay(entries)
	if !errors.Is(err, ErrOversell) {
		t.Fatalf("lots in account 1 must not satisfy a sale in account 2, got %v", err)
	}
}

func TestReplay_FractionalResidualClosesLot(t *testing.T) {
	// A residual below the quantity epsilon counts as fully consumed.
	entries := []models.LedgerEntry{
		{AccountID: 1, Date: day(2024, 1, 10), Type: models.TypeBuy, Symbol: "VT", Quantity: 1.00005, Amount: -100},
		{AccountID: 1, Date: day(2024, 2, 10), Type: models.TypeSell, Symbol: "VT", Quantity: 1.0, Amount: 110},
	}

	result, err := NewLotProcessor().Replay(entries)
	if err != nil {
		t.Fatalf("Replay returned error: %v", err)
	}
	if len(result.OpenLots()) != 0 {
		t.Errorf("sub-epsilon residual should close the lot, got %+v", result.OpenLots())
	}
}

func TestReplay_HoldingPeriodBoundary(t *testing.T) {
	buy := models.LedgerEntry{AccountID: 1, Date: day(2024, 1, 15), Type: models.TypeBuy, Symbol: "AAPL", Quantity: 10, Amount: -1000}

	cases := []struct {
		name     string
		disposed time.Time
		want     string
	}{
		{"day before anniversary", day(2025, 1, 14), models.HoldingShortTerm},
		{"on anniversary", day(2025, 1, 15), models.HoldingLongTerm},
		{"well past anniversary", day(2025, 6, 1), models.HoldingLongTerm},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entries := []models.LedgerEntry{
				buy,
				{AccountID: 1, Date: tc.disposed, Type: models.TypeSell, Symbol: "AAPL", Quantity: 10, Amount: 1500},
			}
			result, err := NewLotProcessor().Replay(entries)
			if err != nil {
				t.Fatalf("Replay returned error: %v", err)
			}
			if got := result.RealizedGains[0].HoldingPeriod; got != tc.want {
				t.Errorf("holding period = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestReplay_RebuyAfterFullSale(t *testing.T) {
	entries := []models.LedgerEntry{
		{AccountID: 1, Date: day(2024, 1, 10), Type: models.TypeBuy, Symbol: "NVDA", Quantity: 10, Amount: -1000},
		{AccountID: 1, Date: day(2024, 2, 10), Type: models.TypeSell, Symbol: "NVDA", Quantity: 10, Amount: 1200},
		{AccountID: 1, Date: day(2024, 3, 10), Type: models.TypeBuy, Symbol: "NVDA", Quantity: 5, Amount: -650},
	}

	result, err := NewLotProcessor().Replay(entries)
	if err != nil {
		t.Fatalf("Replay returned error: %v", err)
	}
	open := result.OpenLots()
	if len(open) != 1 || !approxEqual(open[0].UnitCost, 130, 1e-9) {
		t.Errorf("rebuy should open a fresh lot at the new cost, got %+v", open)
	}
}
