package domain

import "time"

// Trade represents one position lifecycle record: entry, optional risk
// markers, and either a single legacy exit or a list of partial exits.
// Nullable columns are modeled as pointers; nil means "not set".
type Trade struct {
	ID        string    // Unique identifier (UUID)
	UserID    string    // Owning user
	Symbol    string    // Ticker, e.g. "AAPL"
	Direction Direction // long or short

	EntryDate  time.Time // Calendar date the position was opened
	EntryPrice *float64  // Nullable until the entry is filled
	Quantity   float64   // Originally intended size, > 0

	// Legacy single-exit fields, used when the trade has no itemized exits.
	// Back-filled from the last exit when partial exits close the trade.
	ExitDate  *time.Time
	ExitPrice *float64

	// Risk markers.
	StopLoss   *float64
	TakeProfit *float64

	// Quantity not yet exited. Nil defaults to the full quantity.
	RemainingQuantity *float64

	// Legacy aggregate fee, used when no per-exit fees are tracked.
	Fees float64

	Status   TradeStatus
	Notes    string
	Strategy string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Itemized partial exits, ordered by exit date. The trade exclusively
	// owns its exits; deleting the trade cascades.
	Exits []*TradeExit
}

// TradeExit represents one partial or full exit from a trade.
type TradeExit struct {
	ID      string // Unique identifier (UUID)
	TradeID string // Parent trade
	UserID  string // Owning user

	ExitDate  time.Time
	ExitPrice float64 // >= 0
	Quantity  float64 // > 0, <= remaining at time of creation
	Fees      float64 // >= 0

	Notes   string
	Trigger ExitTrigger

	CreatedAt time.Time
}

// IsOpen reports whether the trade is still open.
func (t *Trade) IsOpen() bool {
	return t.Status == StatusOpen
}

// Remaining returns the unexited quantity, defaulting to the full quantity
// when the remaining-quantity column is unset.
func (t *Trade) Remaining() float64 {
	if t.RemainingQuantity != nil {
		return *t.RemainingQuantity
	}
	return t.Quantity
}

// EffectiveExitPrice returns the price the trade exited at: the
// quantity-weighted average over itemized exits when any exist, otherwise
// the legacy single-exit price. The second return value is false when the
// trade has no exit data at all.
func (t *Trade) EffectiveExitPrice() (float64, bool) {
	var qty, notional float64
	for _, e := range t.Exits {
		qty += e.Quantity
		notional += e.Quantity * e.ExitPrice
	}
	if qty > 0 {
		return notional / qty, true
	}
	if t.ExitPrice != nil {
		return *t.ExitPrice, true
	}
	return 0, false
}

// EffectiveExitDate returns the trade's exit date: the legacy exit date when
// set, otherwise the latest exit date among the itemized exits.
func (t *Trade) EffectiveExitDate() (time.Time, bool) {
	if t.ExitDate != nil {
		return *t.ExitDate, true
	}
	var latest time.Time
	for _, e := range t.Exits {
		if e.ExitDate.After(latest) {
			latest = e.ExitDate
		}
	}
	if latest.IsZero() {
		return time.Time{}, false
	}
	return latest, true
}
