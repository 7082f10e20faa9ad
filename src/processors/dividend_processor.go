package processors

import (
	"github.com/entropy80/investment-app-sub002/src/models"
	"github.com/entropy80/investment-app-sub002/src/utils"
)

// dividendProcessorImpl implements the DividendProcessor interface.
type dividendProcessorImpl struct{}

// NewDividendProcessor creates a new instance of DividendProcessor.
func NewDividendProcessor() DividendProcessor {
	return &dividendProcessorImpl{}
}

// SummarizeYear groups DIVIDEND entries of the requested calendar year by
// month and symbol. Entries without a symbol are bucketed under "UNSPECIFIED"
// (some feeds report pooled fund distributions without an instrument).
func (p *dividendProcessorImpl) SummarizeYear(entries []models.LedgerEntry, year int) DividendSummary {
	result := make(DividendSummary)

	for _, entry := range entries {
		if entry.Type != models.TypeDividend {
			continue
		}
		if entry.Date.Year() != year {
			continue
		}

		month := entry.Date.Format("2006-01")
		symbol := entry.Symbol
		if symbol == "" {
			symbol = "UNSPECIFIED"
		}

		if _, ok := result[month]; !ok {
			result[month] = make(map[string]float64)
		}
		result[month][symbol] += entry.Amount
	}

	// Round aggregated amounts once at the end to keep floating point noise
	// out of the report.
	for month, symbols := range result {
		for symbol, amount := range symbols {
			result[month][symbol] = utils.RoundCurrency(amount)
		}
	}

	return result
}
