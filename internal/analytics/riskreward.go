package analytics

import (
	"math"

	"tradejournal/internal/domain"
)

// DefaultFallbackRiskDivisor is the conservative heuristic applied when a
// trade has no stop loss: risk is assumed to be the reward divided by this
// value. It is a product policy choice, not a law of finance, so it is
// configurable.
const DefaultFallbackRiskDivisor = 2.0

// RiskRewardConfig tunes the evaluator.
type RiskRewardConfig struct {
	// FallbackRiskDivisor replaces DefaultFallbackRiskDivisor when > 0.
	FallbackRiskDivisor float64
}

func (c RiskRewardConfig) divisor() float64 {
	if c.FallbackRiskDivisor > 0 {
		return c.FallbackRiskDivisor
	}
	return DefaultFallbackRiskDivisor
}

// RiskReward returns the trade's reward-to-risk ratio ("1:X" reads as
// ratio X). The second return value is false when the ratio is not
// computable: no entry price, no reward figure and no stop loss, or zero
// risk (a zero-risk ratio is meaningless, not infinite).
//
// Reward priority: best itemized exit in the favorable direction (max for
// long, min for short), then the legacy exit price, then the take-profit
// target for a prospective ratio on an open trade. Risk is |entry - stop|
// when a stop loss is set, otherwise reward divided by the configured
// fallback divisor. Both sides are absolute values, so a non-null ratio is
// always positive.
func RiskReward(t *domain.Trade, cfg RiskRewardConfig) (float64, bool) {
	if t.EntryPrice == nil {
		return 0, false
	}
	entry := *t.EntryPrice

	var reward float64
	switch {
	case len(t.Exits) > 0:
		best := t.Exits[0].ExitPrice
		for _, e := range t.Exits[1:] {
			if t.Direction == domain.Short {
				if e.ExitPrice < best {
					best = e.ExitPrice
				}
			} else if e.ExitPrice > best {
				best = e.ExitPrice
			}
		}
		reward = math.Abs(best - entry)
	case t.ExitPrice != nil:
		reward = math.Abs(*t.ExitPrice - entry)
	case t.TakeProfit != nil:
		reward = math.Abs(*t.TakeProfit - entry)
	}

	var risk float64
	switch {
	case t.StopLoss != nil:
		risk = math.Abs(entry - *t.StopLoss)
	case reward > 0:
		risk = reward / cfg.divisor()
	default:
		return 0, false
	}

	if risk <= 0 {
		return 0, false
	}
	return reward / risk, true
}
