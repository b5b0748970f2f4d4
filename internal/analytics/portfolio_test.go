package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/domain"
)

func closedTrade(entryDay int, entry, exit, qty float64) *domain.Trade {
	d := day(entryDay)
	return &domain.Trade{
		Direction:  domain.Long,
		EntryDate:  d,
		EntryPrice: fptr(entry),
		ExitDate:   &d,
		ExitPrice:  fptr(exit),
		Quantity:   qty,
		Status:     domain.StatusClosed,
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	m := Analyze(nil, Options{InitialCapital: 10000})
	assert.Equal(t, 0, m.TotalTrades)
	assert.Equal(t, 10000.0, m.FinalEquity)
	assert.Empty(t, m.EquityCurve)
	assert.Nil(t, m.BestTrade)
	assert.Nil(t, m.WorstTrade)
}

func TestAnalyzeEquityAndDrawdown(t *testing.T) {
	trades := []*domain.Trade{
		closedTrade(1, 100, 110, 10), // +100
		closedTrade(2, 100, 70, 10),  // -300
		closedTrade(3, 100, 105, 10), // +50
	}
	m := Analyze(trades, Options{InitialCapital: 1000})

	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 3, m.ClosedTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.InDelta(t, 66.6667, m.WinRatePct, 1e-3)
	assert.InDelta(t, -150, m.TotalProfit, 1e-9)
	assert.InDelta(t, 850, m.FinalEquity, 1e-9)

	require.Len(t, m.EquityCurve, 3)
	assert.InDelta(t, 1100, m.EquityCurve[0].Equity, 1e-9)
	assert.InDelta(t, 800, m.EquityCurve[1].Equity, 1e-9)
	assert.InDelta(t, 850, m.EquityCurve[2].Equity, 1e-9)
	assert.InDelta(t, 0, m.EquityCurve[0].DrawdownPct, 1e-9)
	assert.InDelta(t, 27.2727, m.EquityCurve[1].DrawdownPct, 1e-3)
	assert.InDelta(t, 22.7273, m.EquityCurve[2].DrawdownPct, 1e-3)

	assert.InDelta(t, 27.2727, m.Drawdown.MaxPct, 1e-3)
	assert.Equal(t, day(2), m.Drawdown.MaxDate)
	// Average over the two in-drawdown points only.
	assert.InDelta(t, 25.0, m.Drawdown.AveragePct, 1e-3)
	assert.InDelta(t, 22.7273, m.Drawdown.CurrentPct, 1e-3)
	// Never recovered to the peak, so no closed episode and no recovery point.
	assert.Equal(t, 0, m.Drawdown.RecoveryPoints)
	assert.Empty(t, m.Drawdown.Periods)

	require.NotNil(t, m.BestTrade)
	require.NotNil(t, m.WorstTrade)
	assert.InDelta(t, 10, m.BestTrade.ProfitLossPct, 1e-9)
	assert.InDelta(t, -30, m.WorstTrade.ProfitLossPct, 1e-9)
}

func TestAnalyzeDrawdownRecovery(t *testing.T) {
	trades := []*domain.Trade{
		closedTrade(1, 100, 110, 10), // +100 -> 1100, new peak
		closedTrade(2, 100, 70, 10),  // -300 -> 800
		closedTrade(4, 100, 140, 10), // +400 -> 1200, recovers
	}
	m := Analyze(trades, Options{InitialCapital: 1000})

	assert.InDelta(t, 27.2727, m.Drawdown.MaxPct, 1e-3)
	assert.Equal(t, 1, m.Drawdown.RecoveryPoints)
	assert.InDelta(t, 0, m.Drawdown.CurrentPct, 1e-9)

	require.Len(t, m.Drawdown.Periods, 1)
	p := m.Drawdown.Periods[0]
	assert.Equal(t, day(2), p.Start)
	assert.Equal(t, day(4), p.End)
	assert.Equal(t, 2, p.Days)
	assert.InDelta(t, 27.2727, p.MaxDepthPct, 1e-3)
	assert.Equal(t, 2, m.Drawdown.LongestDays)
}

func TestAnalyzeSortsByEntryDate(t *testing.T) {
	trades := []*domain.Trade{
		closedTrade(3, 100, 105, 10),
		closedTrade(1, 100, 110, 10),
	}
	m := Analyze(trades, Options{InitialCapital: 1000})

	require.Len(t, m.EquityCurve, 2)
	assert.Equal(t, day(1), m.EquityCurve[0].Date)
	assert.Equal(t, day(3), m.EquityCurve[1].Date)
	// Input slice order is untouched.
	assert.Equal(t, day(3), trades[0].EntryDate)
}

func TestAnalyzeExposure(t *testing.T) {
	open := &domain.Trade{
		Direction:         domain.Long,
		EntryDate:         day(5),
		EntryPrice:        fptr(100),
		Quantity:          10,
		RemainingQuantity: fptr(5),
		Status:            domain.StatusOpen,
	}
	m := Analyze([]*domain.Trade{open, closedTrade(1, 100, 110, 10)}, Options{InitialCapital: 1000})

	assert.Equal(t, 1, m.OpenTrades)
	assert.Equal(t, 1, m.ClosedTrades)
	// 100 * 5 remaining against 1000 capital.
	assert.InDelta(t, 50, m.ExposurePct, 1e-9)
}

func TestAnalyzeStopLossStats(t *testing.T) {
	stopped := closedTrade(1, 100, 94, 10)
	stopped.StopLoss = fptr(95)
	held := closedTrade(2, 100, 110, 10)
	held.StopLoss = fptr(95)
	noStop := closedTrade(3, 100, 90, 10)

	m := Analyze([]*domain.Trade{stopped, held, noStop}, Options{InitialCapital: 10000})

	assert.Equal(t, 2, m.StopLoss.EligibleTrades)
	assert.Equal(t, 1, m.StopLoss.StoppedOut)
	assert.InDelta(t, 50, m.StopLoss.HitRatePct, 1e-9)
	assert.InDelta(t, -60, m.StopLoss.AverageLoss, 1e-9)
}

func TestAnalyzeMonthlyWindow(t *testing.T) {
	exit := func(year int, month time.Month, d int, entry, exitPrice float64) *domain.Trade {
		ed := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
		return &domain.Trade{
			Direction:  domain.Long,
			EntryDate:  ed.AddDate(0, 0, -5),
			EntryPrice: fptr(entry),
			ExitDate:   &ed,
			ExitPrice:  fptr(exitPrice),
			Quantity:   10,
			Status:     domain.StatusClosed,
		}
	}
	trades := []*domain.Trade{
		exit(2025, time.April, 10, 100, 110), // +100
		exit(2025, time.May, 5, 100, 95),     // -50
		exit(2025, time.January, 1, 100, 200), // outside the window
	}
	m := Analyze(trades, Options{
		InitialCapital:      1000,
		MonthlyWindowMonths: 3,
		AsOf:                time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC),
	})

	require.Len(t, m.Monthly, 3)
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), m.Monthly[0].Month)

	april := m.Monthly[0]
	assert.InDelta(t, 100, april.NetProfit, 1e-9)
	assert.InDelta(t, 10, april.ReturnPct, 1e-9)
	assert.Equal(t, 1, april.Trades)
	assert.InDelta(t, 100, april.WinRatePct, 1e-9)
	assert.InDelta(t, 10, april.AvgReturnPct, 1e-9)

	may := m.Monthly[1]
	assert.InDelta(t, -50, may.NetProfit, 1e-9)
	assert.InDelta(t, -5, may.ReturnPct, 1e-9)

	// June has no exits but is still emitted as a zero month.
	june := m.Monthly[2]
	assert.Equal(t, 0, june.Trades)
	assert.InDelta(t, 0, june.NetProfit, 1e-9)
}

func TestAnalyzeAvgRiskReward(t *testing.T) {
	withStop := closedTrade(1, 100, 120, 10)
	withStop.StopLoss = fptr(90) // reward 20, risk 10 -> 2.0
	noData := &domain.Trade{Direction: domain.Long, EntryDate: day(2), EntryPrice: fptr(100), Quantity: 1, Status: domain.StatusOpen}

	m := Analyze([]*domain.Trade{withStop, noData}, Options{InitialCapital: 10000})
	// Only the computable trade participates in the mean.
	assert.InDelta(t, 2.0, m.AvgRiskReward, 1e-9)
}
