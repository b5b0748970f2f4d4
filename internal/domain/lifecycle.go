package domain

import (
	"errors"
	"fmt"
	"time"
)

// Validation errors raised at the write boundary. Read-side analytics never
// raise these; malformed trades degrade to zero contributions there.
var (
	ErrExitExceedsQuantity = errors.New("exit quantity exceeds remaining position size")
	ErrNonPositiveQuantity = errors.New("quantity must be positive")
	ErrNegativePrice       = errors.New("price cannot be negative")
	ErrNegativeFees        = errors.New("fees cannot be negative")
	ErrInvalidDirection    = errors.New("direction must be long or short")
)

// ValidateTrade checks a trade's fields before it is written.
func ValidateTrade(t *Trade) error {
	if !t.Direction.IsValid() {
		return ErrInvalidDirection
	}
	if t.Quantity <= 0 {
		return fmt.Errorf("trade quantity %v: %w", t.Quantity, ErrNonPositiveQuantity)
	}
	if t.EntryPrice != nil && *t.EntryPrice < 0 {
		return fmt.Errorf("entry price %v: %w", *t.EntryPrice, ErrNegativePrice)
	}
	if t.StopLoss != nil && *t.StopLoss < 0 {
		return fmt.Errorf("stop loss %v: %w", *t.StopLoss, ErrNegativePrice)
	}
	if t.TakeProfit != nil && *t.TakeProfit < 0 {
		return fmt.Errorf("take profit %v: %w", *t.TakeProfit, ErrNegativePrice)
	}
	if t.Fees < 0 {
		return ErrNegativeFees
	}
	return nil
}

// ValidateExit checks a candidate exit against the trade and its existing
// exits. The exit in question must not already be among existing (pass the
// pre-edit list when validating an update).
//
// The sum-of-exit-quantities invariant is enforced here, synchronously,
// before anything is persisted. It is never silently truncated.
func ValidateExit(t *Trade, existing []*TradeExit, exit *TradeExit) error {
	if exit.Quantity <= 0 {
		return fmt.Errorf("exit quantity %v: %w", exit.Quantity, ErrNonPositiveQuantity)
	}
	if exit.ExitPrice < 0 {
		return fmt.Errorf("exit price %v: %w", exit.ExitPrice, ErrNegativePrice)
	}
	if exit.Fees < 0 {
		return ErrNegativeFees
	}
	var exited float64
	for _, e := range existing {
		exited += e.Quantity
	}
	if exited+exit.Quantity > t.Quantity {
		return fmt.Errorf("exit of %v against %v remaining (total %v): %w",
			exit.Quantity, t.Quantity-exited, t.Quantity, ErrExitExceedsQuantity)
	}
	return nil
}

// StatusUpdate is the derived lifecycle state of a trade after an exit
// mutation: the status, the recomputed remaining quantity, and the legacy
// exit fields to persist alongside.
type StatusUpdate struct {
	Status            TradeStatus
	RemainingQuantity float64
	ExitPrice         *float64
	ExitDate          *time.Time
}

// DeriveStatus computes the trade's lifecycle state from its exits. Call it
// after every exit mutation and persist the result; status is never derived
// ad hoc at call sites.
//
// When cumulative exited quantity reaches the total, the trade closes and the
// legacy exit_price/exit_date are back-filled from the last qualifying exit.
// When exits are edited or deleted back below the total, the trade reopens
// and the back-filled legacy fields are cleared.
func DeriveStatus(t *Trade, exits []*TradeExit) StatusUpdate {
	var exited float64
	var last *TradeExit
	for _, e := range exits {
		exited += e.Quantity
		if last == nil || !e.ExitDate.Before(last.ExitDate) {
			last = e
		}
	}

	remaining := t.Quantity - exited
	if remaining > 0 || len(exits) == 0 {
		if len(exits) == 0 && t.ExitPrice != nil {
			// Closed via legacy single exit; nothing to derive.
			return StatusUpdate{
				Status:            StatusClosed,
				RemainingQuantity: 0,
				ExitPrice:         t.ExitPrice,
				ExitDate:          t.ExitDate,
			}
		}
		return StatusUpdate{Status: StatusOpen, RemainingQuantity: remaining}
	}

	price := last.ExitPrice
	date := last.ExitDate
	return StatusUpdate{
		Status:            StatusClosed,
		RemainingQuantity: remaining,
		ExitPrice:         &price,
		ExitDate:          &date,
	}
}
