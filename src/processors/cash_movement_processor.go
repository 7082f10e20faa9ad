package processors

import (
	"github.com/entropy80/investment-app-sub002/src/models"
	"github.com/entropy80/investment-app-sub002/src/utils"
)

// cashMovementProcessor implements the CashMovementProcessor interface.
type cashMovementProcessor struct{}

// NewCashMovementProcessor creates a new instance of CashMovementProcessor.
func NewCashMovementProcessor() CashMovementProcessor {
	return &cashMovementProcessor{}
}

// Process identifies cash deposits and withdrawals from the ledger.
func (p *cashMovementProcessor) Process(entries []models.LedgerEntry) []models.CashMovement {
	var movements []models.CashMovement

	for _, entry := range entries {
		switch entry.Type {
		case models.TypeDeposit:
			movements = append(movements, models.CashMovement{
				Date:   entry.Date,
				Type:   "deposit",
				Amount: entry.Amount,
			})
		case models.TypeWithdrawal:
			movements = append(movements, models.CashMovement{
				Date:   entry.Date,
				Type:   "withdrawal",
				Amount: entry.Amount,
			})
		}
	}

	return movements
}

// Summarize aggregates the movements into a bank summary.
func (p *cashMovementProcessor) Summarize(entries []models.LedgerEntry) models.BankSummary {
	movements := p.Process(entries)

	summary := models.BankSummary{Movements: movements}
	if summary.Movements == nil {
		summary.Movements = []models.CashMovement{}
	}
	for _, m := range movements {
		if m.Type == "deposit" {
			summary.TotalDeposits += m.Amount
		} else {
			summary.TotalWithdrawals += m.Amount
		}
	}
	summary.TotalDeposits = utils.RoundCurrency(summary.TotalDeposits)
	summary.TotalWithdrawals = utils.RoundCurrency(summary.TotalWithdrawals)
	summary.Net = utils.RoundCurrency(summary.TotalDeposits + summary.TotalWithdrawals)
	return summary
}
