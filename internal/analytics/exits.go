package analytics

import (
	"errors"
	"fmt"

	"tradejournal/internal/domain"
)

// ErrOverExited indicates a trade whose exits sum to more than its total
// quantity. The aggregator surfaces this as a data-integrity error instead of
// clamping the remainder; the write boundary should have rejected it.
var ErrOverExited = errors.New("exited quantity exceeds trade quantity")

// ExitSummary is the aggregation of a trade's partial exits.
type ExitSummary struct {
	TotalExitedQuantity float64
	AverageExitPrice    float64 // quantity-weighted; 0 when no exits
	TotalExitFees       float64
	RemainingQuantity   float64
	HasExits            bool
}

// AggregateExits combines a trade's itemized exits into realized quantity,
// average exit price, total fees, and remaining quantity. Pure: the caller is
// responsible for persisting any derived state.
func AggregateExits(t *domain.Trade) (ExitSummary, error) {
	var s ExitSummary
	var notional float64
	for _, e := range t.Exits {
		s.TotalExitedQuantity += e.Quantity
		s.TotalExitFees += e.Fees
		notional += e.Quantity * e.ExitPrice
	}
	s.HasExits = s.TotalExitedQuantity > 0
	if s.HasExits {
		s.AverageExitPrice = notional / s.TotalExitedQuantity
	}
	s.RemainingQuantity = t.Quantity - s.TotalExitedQuantity
	if s.RemainingQuantity < 0 {
		return s, fmt.Errorf("trade %s: exited %v of %v: %w",
			t.ID, s.TotalExitedQuantity, t.Quantity, ErrOverExited)
	}
	return s, nil
}
