package analytics

import (
	"sort"
	"time"

	"tradejournal/internal/domain"
)

// DefaultMonthlyWindowMonths is the trailing window for monthly aggregates.
const DefaultMonthlyWindowMonths = 6

// Options parameterizes a portfolio analysis run. AsOf anchors the trailing
// monthly window; when zero, the latest exit date in the collection is used
// so the engine stays free of hidden clock dependence.
type Options struct {
	InitialCapital      float64
	MonthlyWindowMonths int
	AsOf                time.Time
	RiskReward          RiskRewardConfig
}

// EquityPoint is one point on the equity curve: one per trade, ordered by
// entry date. Gaps between trades are not interpolated.
type EquityPoint struct {
	Date        time.Time
	Equity      float64
	DrawdownPct float64
}

// DrawdownPeriod is one closed-out drawdown episode: from the first dip below
// the running peak until equity made a new high.
type DrawdownPeriod struct {
	Start       time.Time
	End         time.Time
	Days        int
	MaxDepthPct float64
}

// DrawdownStats summarizes the drawdown series.
type DrawdownStats struct {
	MaxPct         float64   // deepest drawdown seen
	MaxDate        time.Time // when it occurred
	AveragePct     float64   // mean over in-drawdown points only
	CurrentPct     float64   // drawdown at the final point
	RecoveryPoints int       // points from the max-drawdown point to full recovery; 0 if never recovered
	LongestDays    int       // longest closed-out episode
	Periods        []DrawdownPeriod
}

// StopLossStats measures how often closed trades with a stop loss were
// actually stopped out, and how much those stops cost on average.
type StopLossStats struct {
	EligibleTrades int
	StoppedOut     int
	HitRatePct     float64
	AverageLoss    float64 // mean signed P&L over stopped-out trades
}

// MonthlyStats aggregates one calendar month of exited trades.
type MonthlyStats struct {
	Month        time.Time // first day of the month, UTC
	NetProfit    float64
	ReturnPct    float64 // net profit as % of initial capital
	WinRatePct   float64 // among the month's closed trades
	Trades       int
	AvgReturnPct float64
}

// TradeResult references a trade together with its computed P&L.
type TradeResult struct {
	Trade         *domain.Trade
	ProfitLoss    float64
	ProfitLossPct float64
}

// PortfolioMetrics is the full set of derived portfolio statistics.
type PortfolioMetrics struct {
	TotalTrades   int
	OpenTrades    int
	ClosedTrades  int
	WinningTrades int
	LosingTrades  int
	WinRatePct    float64
	TotalProfit   float64
	FinalEquity   float64
	ExposurePct   float64
	AvgRiskReward float64 // mean ratio over trades where one is computable

	EquityCurve []EquityPoint
	Drawdown    DrawdownStats
	StopLoss    StopLossStats
	Monthly     []MonthlyStats

	BestTrade  *TradeResult
	WorstTrade *TradeResult
}

// Analyze folds per-trade results across a trade collection into portfolio
// statistics. It is a total function over structurally valid input: malformed
// trades contribute zero P&L, and every rate is guarded against a zero
// denominator. The input slice is never mutated.
func Analyze(trades []*domain.Trade, opts Options) *PortfolioMetrics {
	m := &PortfolioMetrics{
		FinalEquity: opts.InitialCapital,
		EquityCurve: make([]EquityPoint, 0, len(trades)),
	}
	if len(trades) == 0 {
		return m
	}

	// Sort a copy ascending by entry date; stable so ties keep input order.
	ordered := make([]*domain.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EntryDate.Before(ordered[j].EntryDate)
	})

	equity := opts.InitialCapital
	peak := opts.InitialCapital
	var ddSum float64
	var ddCount int
	var maxIdx int
	var episode *DrawdownPeriod

	for _, t := range ordered {
		m.TotalTrades++
		pl := ProfitLoss(t)

		if t.IsOpen() {
			m.OpenTrades++
		} else {
			m.ClosedTrades++
			if pl > 0 {
				m.WinningTrades++
			} else {
				m.LosingTrades++
			}
		}

		equity += pl
		m.TotalProfit += pl
		m.FinalEquity = equity

		if equity > peak {
			peak = equity
			if episode != nil {
				episode.End = t.EntryDate
				episode.Days = daysBetween(episode.Start, t.EntryDate)
				m.Drawdown.Periods = append(m.Drawdown.Periods, *episode)
				if episode.Days > m.Drawdown.LongestDays {
					m.Drawdown.LongestDays = episode.Days
				}
				episode = nil
			}
		}

		var dd float64
		if peak > 0 && equity < peak {
			dd = (peak - equity) / peak * 100
		}
		if dd > 0 {
			ddSum += dd
			ddCount++
			if episode == nil {
				episode = &DrawdownPeriod{Start: t.EntryDate, MaxDepthPct: dd}
			} else if dd > episode.MaxDepthPct {
				episode.MaxDepthPct = dd
			}
			if dd > m.Drawdown.MaxPct {
				m.Drawdown.MaxPct = dd
				m.Drawdown.MaxDate = t.EntryDate
				maxIdx = len(m.EquityCurve)
			}
		}

		m.EquityCurve = append(m.EquityCurve, EquityPoint{
			Date:        t.EntryDate,
			Equity:      equity,
			DrawdownPct: dd,
		})
	}

	if n := len(m.EquityCurve); n > 0 {
		m.Drawdown.CurrentPct = m.EquityCurve[n-1].DrawdownPct
	}
	if ddCount > 0 {
		m.Drawdown.AveragePct = ddSum / float64(ddCount)
	}
	if m.Drawdown.MaxPct > 0 {
		for i := maxIdx + 1; i < len(m.EquityCurve); i++ {
			if m.EquityCurve[i].DrawdownPct == 0 {
				m.Drawdown.RecoveryPoints = i - maxIdx
				break
			}
		}
	}

	if m.ClosedTrades > 0 {
		m.WinRatePct = float64(m.WinningTrades) / float64(m.ClosedTrades) * 100
	}

	m.ExposurePct = exposure(ordered, opts.InitialCapital)
	m.AvgRiskReward = avgRiskReward(ordered, opts.RiskReward)
	m.StopLoss = stopLossStats(ordered)
	m.Monthly = monthlyStats(ordered, opts)
	m.BestTrade, m.WorstTrade = bestWorst(ordered)

	return m
}

// exposure sums entry price times remaining quantity over open trades, as a
// percentage of capital. Long and short exposure count identically in
// magnitude here; directional netting belongs to position-level views.
func exposure(trades []*domain.Trade, capital float64) float64 {
	if capital <= 0 {
		return 0
	}
	var committed float64
	for _, t := range trades {
		if !t.IsOpen() || t.EntryPrice == nil {
			continue
		}
		committed += *t.EntryPrice * t.Remaining()
	}
	return committed / capital * 100
}

func avgRiskReward(trades []*domain.Trade, cfg RiskRewardConfig) float64 {
	var sum float64
	var n int
	for _, t := range trades {
		if rr, ok := RiskReward(t, cfg); ok {
			sum += rr
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func stopLossStats(trades []*domain.Trade) StopLossStats {
	var s StopLossStats
	var stoppedPL float64
	for _, t := range trades {
		if t.IsOpen() || t.StopLoss == nil {
			continue
		}
		exit, ok := t.EffectiveExitPrice()
		if !ok {
			continue
		}
		s.EligibleTrades++
		stopped := false
		if t.Direction == domain.Short {
			stopped = exit >= *t.StopLoss
		} else {
			stopped = exit <= *t.StopLoss
		}
		if stopped {
			s.StoppedOut++
			stoppedPL += ProfitLoss(t)
		}
	}
	if s.EligibleTrades > 0 {
		s.HitRatePct = float64(s.StoppedOut) / float64(s.EligibleTrades) * 100
	}
	if s.StoppedOut > 0 {
		s.AverageLoss = stoppedPL / float64(s.StoppedOut)
	}
	return s
}

// monthlyStats partitions trades by the calendar month of their exit date
// over a fixed trailing window. Trades without any exit date are excluded.
func monthlyStats(trades []*domain.Trade, opts Options) []MonthlyStats {
	window := opts.MonthlyWindowMonths
	if window <= 0 {
		window = DefaultMonthlyWindowMonths
	}

	asOf := opts.AsOf
	if asOf.IsZero() {
		for _, t := range trades {
			if d, ok := t.EffectiveExitDate(); ok && d.After(asOf) {
				asOf = d
			}
		}
	}
	if asOf.IsZero() {
		return nil
	}

	type bucket struct {
		net     float64
		returns float64
		trades  int
		closed  int
		winners int
	}
	buckets := make(map[time.Time]*bucket, window)

	end := monthStart(asOf)
	start := end.AddDate(0, -(window - 1), 0)

	for _, t := range trades {
		d, ok := t.EffectiveExitDate()
		if !ok {
			continue
		}
		month := monthStart(d)
		if month.Before(start) || month.After(end) {
			continue
		}
		b := buckets[month]
		if b == nil {
			b = &bucket{}
			buckets[month] = b
		}
		pl := ProfitLoss(t)
		b.net += pl
		b.returns += ProfitLossPercent(t)
		b.trades++
		if !t.IsOpen() {
			b.closed++
			if pl > 0 {
				b.winners++
			}
		}
	}

	out := make([]MonthlyStats, 0, window)
	for month := start; !month.After(end); month = month.AddDate(0, 1, 0) {
		ms := MonthlyStats{Month: month}
		if b := buckets[month]; b != nil {
			ms.NetProfit = b.net
			ms.Trades = b.trades
			if opts.InitialCapital > 0 {
				ms.ReturnPct = b.net / opts.InitialCapital * 100
			}
			if b.closed > 0 {
				ms.WinRatePct = float64(b.winners) / float64(b.closed) * 100
			}
			ms.AvgReturnPct = b.returns / float64(b.trades)
		}
		out = append(out, ms)
	}
	return out
}

// bestWorst finds the closed trades with the highest and lowest percentage
// P&L. Multi-exit trades rank by their aggregated average exit price.
func bestWorst(trades []*domain.Trade) (best, worst *TradeResult) {
	for _, t := range trades {
		if t.IsOpen() || t.EntryPrice == nil {
			continue
		}
		if _, ok := t.EffectiveExitPrice(); !ok {
			continue
		}
		r := &TradeResult{
			Trade:         t,
			ProfitLoss:    ProfitLoss(t),
			ProfitLossPct: ProfitLossPercent(t),
		}
		if best == nil || r.ProfitLossPct > best.ProfitLossPct {
			best = r
		}
		if worst == nil || r.ProfitLossPct < worst.ProfitLossPct {
			worst = r
		}
	}
	return best, worst
}

func monthStart(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func daysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}
