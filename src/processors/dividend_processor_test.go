package processors

import (
	"testing"

	"github.com/entropy80/investment-app-sub002/src/models"
)

func TestSummarizeYear_GroupsByMonthAndSymbol(t *testing.T) {
	entries := []models.LedgerEntry{
		{Date: day(2024, 1, 15), Type: models.TypeDividend, Symbol: "AAPL", Amount: 10.004},
		{Date: day(2024, 1, 20), Type: models.TypeDividend, Symbol: "AAPL", Amount: 5.003},
		{Date: day(2024, 1, 25), Type: models.TypeDividend, Symbol: "VTI", Amount: 7.50},
		{Date: day(2024, 6, 10), Type: models.TypeDividend, Symbol: "AAPL", Amount: 12.00},
		{Date: day(2023, 12, 31), Type: models.TypeDividend, Symbol: "AAPL", Amount: 99.00},
		{Date: day(2024, 1, 15), Type: models.TypeBuy, Symbol: "AAPL", Quantity: 1, Amount: -100},
	}

	summary := NewDividendProcessor().SummarizeYear(entries, 2024)

	if len(summary) != 2 {
		t.Fatalf("got %d months, want 2", len(summary))
	}
	// Same month and symbol aggregate, rounded once at the end.
	if got := summary["2024-01"]["AAPL"]; got != 15.01 {
		t.Errorf("2024-01 AAPL = %v, want 15.01", got)
	}
	if got := summary["2024-01"]["VTI"]; got != 7.50 {
		t.Errorf("2024-01 VTI = %v, want 7.50", got)
	}
	if got := summary["2024-06"]["AAPL"]; got != 12.00 {
		t.Errorf("2024-06 AAPL = %v, want 12.00", got)
	}
	if _, ok := summary["2023-12"]; ok {
		t.Error("entries outside the requested year must be excluded")
	}
}

func TestSummarizeYear_SymbollessDividends(t *testing.T) {
	entries := []models.LedgerEntry{
		{Date: day(2024, 3, 1), Type: models.TypeDividend, Amount: 4.00},
	}
	summary := NewDividendProcessor().SummarizeYear(entries, 2024)
	if got := summary["2024-03"]["UNSPECIFIED"]; got != 4.00 {
		t.Errorf("symbolless dividend = %v, want 4.00 under UNSPECIFIED", got)
	}
}
