package analytics

import "tradejournal/internal/domain"

// ProfitLoss returns the trade's realized profit or loss in currency units,
// signed by direction: for a long, profit = (exit - entry) * qty; for a
// short, profit = (entry - exit) * qty. Per-exit fees (or the legacy
// aggregate fee) are subtracted from the currency result.
//
// Trades with no realized exit data contribute 0 (unrealized P&L is out of
// scope), as do trades with a missing or zero entry price. A trade whose
// exits over-run its quantity is malformed and also contributes 0; the read
// side never throws for it.
func ProfitLoss(t *domain.Trade) float64 {
	if t.EntryPrice == nil || *t.EntryPrice == 0 || t.Quantity == 0 {
		return 0
	}
	entry := *t.EntryPrice
	sign := t.Direction.Sign()

	if len(t.Exits) > 0 {
		if _, err := AggregateExits(t); err != nil {
			return 0
		}
		var pl float64
		for _, e := range t.Exits {
			pl += ExitProfitLoss(t, e)
		}
		return pl
	}

	if t.ExitPrice == nil {
		return 0
	}
	return sign*(*t.ExitPrice-entry)*t.Quantity - t.Fees
}

// ExitProfitLoss returns the realized profit or loss of one exit against its
// trade's entry, in currency units minus the exit's fees.
func ExitProfitLoss(t *domain.Trade, e *domain.TradeExit) float64 {
	if t.EntryPrice == nil || *t.EntryPrice == 0 {
		return 0
	}
	return t.Direction.Sign()*(e.ExitPrice-*t.EntryPrice)*e.Quantity - e.Fees
}

// ProfitLossPercent returns the trade's realized profit or loss as a
// percentage of the entry price. Fees are deliberately excluded here: the
// percentage reflects price movement only, while the currency figure from
// ProfitLoss reflects price movement minus fees.
//
// Multi-exit trades use the quantity-weighted average exit price.
func ProfitLossPercent(t *domain.Trade) float64 {
	if t.EntryPrice == nil || *t.EntryPrice == 0 || t.Quantity == 0 {
		return 0
	}
	entry := *t.EntryPrice
	sign := t.Direction.Sign()

	if len(t.Exits) > 0 {
		sum, err := AggregateExits(t)
		if err != nil || !sum.HasExits {
			return 0
		}
		return sign * (sum.AverageExitPrice - entry) / entry * 100
	}

	if t.ExitPrice == nil {
		return 0
	}
	return sign * (*t.ExitPrice - entry) / entry * 100
}
