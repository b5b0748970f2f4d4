package domain

// Direction represents the side of a trade (long or short).
// It determines the sign convention for every P&L formula.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Sign returns the P&L sign multiplier for the direction:
// +1 for long, -1 for short.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// IsValid reports whether the direction is a known value.
func (d Direction) IsValid() bool {
	return d == Long || d == Short
}

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "open"
	StatusClosed TradeStatus = "closed"
)

// ExitTrigger is an optional categorical tag describing why an exit happened.
type ExitTrigger string

const (
	TriggerStopLoss   ExitTrigger = "stop_loss"
	TriggerTakeProfit ExitTrigger = "take_profit"
	TriggerManual     ExitTrigger = "manual"
	TriggerTrailing   ExitTrigger = "trailing"
	TriggerTimeBased  ExitTrigger = "time_based"
	TriggerNone       ExitTrigger = ""
)
