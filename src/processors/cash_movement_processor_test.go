package processors

import (
	"testing"

	"github.com/entropy80/investment-app-sub002/src/models"
)

func TestCashMovements_Summarize(t *testing.T) {
	entries := []models.LedgerEntry{
		{Date: day(2024, 1, 2), Type: models.TypeDeposit, Amount: 1000},
		{Date: day(2024, 2, 2), Type: models.TypeDeposit, Amount: 500},
		{Date: day(2024, 3, 2), Type: models.TypeWithdrawal, Amount: -300},
		{Date: day(2024, 3, 3), Type: models.TypeBuy, Symbol: "AAPL", Quantity: 1, Amount: -150},
		{Date: day(2024, 3, 4), Type: models.TypeDividend, Symbol: "AAPL", Amount: 2},
	}

	summary := NewCashMovementProcessor().Summarize(entries)

	if summary.TotalDeposits != 1500 {
		t.Errorf("deposits = %v, want 1500", summary.TotalDeposits)
	}
	if summary.TotalWithdrawals != -300 {
		t.Errorf("withdrawals = %v, want -300", summary.TotalWithdrawals)
	}
	if summary.Net != 1200 {
		t.Errorf("net = %v, want 1200", summary.Net)
	}
	if len(summary.Movements) != 3 {
		t.Errorf("got %d movements, want 3", len(summary.Movements))
	}
}

func TestCashMovements_EmptyLedger(t *testing.T) {
	summary := NewCashMovementProcessor().Summarize(nil)
	if summary.Movements == nil {
		t.Error("movements should be an empty slice, not nil")
	}
	if summary.Net != 0 {
		t.Errorf("net = %v, want 0", summary.Net)
	}
}
