package processors

import (
	"math"
	"sort"
	"time"

	"github.com/entropy80/investment-app-sub002/src/models"
	"github.com/entropy80/investment-app-sub002/src/utils"
)

// PriceAsOf returns the most recent price observation on or before target.
// Points must be date ascending. The second return is false when the series
// has no coverage that early.
func PriceAsOf(points []models.PricePoint, target time.Time) (float64, bool) {
	for i := len(points) - 1; i >= 0; i-- {
		if !points[i].Date.After(target) {
			return points[i].Price, true
		}
	}
	return 0, false
}

// CashBalance sums the signed amounts of every entry dated on or before asOf.
func CashBalance(entries []models.LedgerEntry, asOf time.Time) float64 {
	var cash float64
	for _, e := range entries {
		if e.Date.After(asOf) {
			continue
		}
		cash += e.Amount
	}
	return cash
}

// portfolioValue computes cash plus the market value of all positions held
// at the end of the asOf day. The second return is false when a held symbol
// has no price coverage, in which case the value excludes that position.
func portfolioValue(entries []models.LedgerEntry, prices map[string][]models.PricePoint, asOf time.Time) (float64, bool) {
	positions := make(map[string]float64)
	var cash float64
	for _, e := range entries {
		if e.Date.After(asOf) {
			continue
		}
		cash += e.Amount
		if e.Symbol == "" {
			continue
		}
		switch e.Type {
		case models.TypeBuy:
			positions[e.Symbol] += e.Quantity
		case models.TypeSell:
			positions[e.Symbol] -= e.Quantity
		}
	}

	value := cash
	priced := true
	for symbol, qty := range positions {
		if math.Abs(qty) <= QuantityEpsilon {
			continue
		}
		price, ok := PriceAsOf(prices[symbol], asOf)
		if !ok {
			priced = false
			continue
		}
		value += qty * price
	}
	return value, priced
}

// isExternalFlow reports whether the entry moves money across the portfolio
// boundary. Flows distort simple holding-period returns, so the TWR splits
// its sub-periods at each flow date.
func isExternalFlow(entry models.LedgerEntry) bool {
	switch entry.Type {
	case models.TypeDeposit, models.TypeWithdrawal, models.TypeTransfer:
		return true
	}
	return false
}

// CalculatePerformanceMetrics computes the time-weighted return over
// [start, end] by chaining sub-period returns at each external cash-flow
// boundary. Flows are valued end-of-day: a sub-period return is
// (V(end) - flow(end)) / V(start) - 1, so money arriving at a boundary never
// counts as growth. Sub-periods that cannot be valued (missing prices, empty
// starting value) are flagged unpriced and excluded from the chain rather
// than aborting the computation.
//
// The result is a percentage, annualized when the window is at least a year.
func CalculatePerformanceMetrics(entries []models.LedgerEntry, prices map[string][]models.PricePoint, start, end time.Time) models.PerformanceMetrics {
	start = truncateDay(start)
	end = truncateDay(end)

	// Collect unique flow days strictly inside the window.
	flowTotals := make(map[time.Time]float64)
	for _, e := range entries {
		if !isExternalFlow(e) {
			continue
		}
		day := truncateDay(e.Date)
		if day.After(start) && !day.After(end) {
			flowTotals[day] += e.Amount
		}
	}

	boundaries := []time.Time{start}
	for day := range flowTotals {
		if !day.Equal(end) {
			boundaries = append(boundaries, day)
		}
	}
	boundaries = append(boundaries, end)
	sort.Slice(boundaries, func(i, j int) bool { return boundaries[i].Before(boundaries[j]) })

	metrics := models.PerformanceMetrics{StartDate: start, EndDate: end}
	chained := 1.0

	for i := 1; i < len(boundaries); i++ {
		b0, b1 := boundaries[i-1], boundaries[i]
		if b0.Equal(b1) {
			continue
		}

		v0, ok0 := portfolioValue(entries, prices, b0)
		v1, ok1 := portfolioValue(entries, prices, b1)
		flow := flowTotals[b1]

		period := models.PeriodReturn{Start: b0, End: b1, Flow: flow}
		if ok0 && ok1 && v0 > 0 {
			period.Return = (v1-flow)/v0 - 1
			period.Priced = true
			chained *= 1 + period.Return
		}
		metrics.SubPeriods = append(metrics.SubPeriods, period)
	}

	cumulative := chained - 1
	days := end.Sub(start).Hours() / 24
	if days >= 365 {
		metrics.Annualized = true
		base := 1 + cumulative
		if base > 0 {
			cumulative = math.Pow(base, 365/days) - 1
		}
	}
	metrics.TimeWeightedReturn = cumulative * 100
	return metrics
}

// HoldingPerformances computes per-symbol unrealized gains from open lots.
// Cost basis comes from the lots themselves, never from an average. Symbols
// without an oracle price fall back to cost basis and are flagged unpriced.
func HoldingPerformances(openLots []models.AcquisitionLot, latestPrices map[string]float64) []models.HoldingPerformance {
	bySymbol := make(map[string]*models.HoldingPerformance)
	for _, lot := range openLots {
		h, ok := bySymbol[lot.Symbol]
		if !ok {
			h = &models.HoldingPerformance{Symbol: lot.Symbol}
			bySymbol[lot.Symbol] = h
		}
		h.Quantity += lot.RemainingQuantity
		h.CostBasis += lot.UnitCost * lot.RemainingQuantity
	}

	symbols := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	holdings := make([]models.HoldingPerformance, 0, len(symbols))
	for _, symbol := range symbols {
		h := *bySymbol[symbol]
		if price, ok := latestPrices[symbol]; ok {
			h.CurrentValue = h.Quantity * price
			h.UnrealizedGain = h.CurrentValue - h.CostBasis
			h.Priced = true
		} else {
			h.CurrentValue = h.CostBasis
		}
		holdings = append(holdings, h)
	}
	return holdings
}

// CalculateAllocation groups current value by asset class, adding a CASH
// bucket for the cash balance, and normalizes to percentages that sum to
// exactly 100. The last bucket absorbs rounding drift.
func CalculateAllocation(holdings []models.HoldingPerformance, assetClasses map[string]string, cashBalance float64) []models.AllocationSlice {
	values := make(map[string]float64)
	for _, h := range holdings {
		class, ok := assetClasses[h.Symbol]
		if !ok {
			class = "EQUITY"
		}
		values[class] += h.CurrentValue
	}
	if cashBalance > 0 {
		values["CASH"] += cashBalance
	}

	var total float64
	classes := make([]string, 0, len(values))
	for class, v := range values {
		classes = append(classes, class)
		total += v
	}
	if total <= 0 {
		return []models.AllocationSlice{}
	}
	sort.Strings(classes)

	slices := make([]models.AllocationSlice, 0, len(classes))
	var assigned float64
	for i, class := range classes {
		slice := models.AllocationSlice{
			AssetClass: class,
			Value:      utils.RoundCurrency(values[class]),
		}
		if i == len(classes)-1 {
			slice.Percent = utils.RoundFloat(100-assigned, 2)
		} else {
			slice.Percent = utils.RoundFloat(values[class]/total*100, 2)
			assigned += slice.Percent
		}
		slices = append(slices, slice)
	}
	return slices
}

// CompareToBenchmark aligns the portfolio's sub-period returns with a
// benchmark index series on the same boundaries. Sub-periods without
// benchmark coverage are reported with BenchmarkMissing and excluded from
// the benchmark total; the comparison degrades to a partial series instead
// of failing.
func CompareToBenchmark(subPeriods []models.PeriodReturn, benchmark []models.PricePoint, benchmarkSymbol string) *models.BenchmarkComparison {
	cmp := &models.BenchmarkComparison{Benchmark: benchmarkSymbol}

	portfolioChain := 1.0
	benchmarkChain := 1.0

	for _, p := range subPeriods {
		period := models.BenchmarkPeriod{Start: p.Start, End: p.End, PortfolioReturn: p.Return}
		if p.Priced {
			portfolioChain *= 1 + p.Return
		}

		p0, ok0 := PriceAsOf(benchmark, p.Start)
		p1, ok1 := PriceAsOf(benchmark, p.End)
		if ok0 && ok1 && p0 > 0 {
			period.BenchmarkReturn = p1/p0 - 1
			benchmarkChain *= 1 + period.BenchmarkReturn
		} else {
			period.BenchmarkMissing = true
			cmp.Partial = true
		}
		cmp.Periods = append(cmp.Periods, period)
	}

	cmp.PortfolioTotal = (portfolioChain - 1) * 100
	cmp.BenchmarkTotal = (benchmarkChain - 1) * 100
	cmp.Relative = cmp.PortfolioTotal - cmp.BenchmarkTotal
	return cmp
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
