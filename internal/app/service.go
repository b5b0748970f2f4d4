package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradejournal/config"
	"tradejournal/internal/analytics"
	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

// JournalService orchestrates trade-journal mutations and read-side
// analytics. Mutations validate synchronously and re-derive the trade's
// lifecycle state through domain.DeriveStatus; reads recompute analytics from
// the stored records on every call (derived metrics are never persisted).
type JournalService struct {
	cfg    *config.Config
	logger ports.Logger
	trades ports.TradeRepository
	exits  ports.ExitRepository
	now    func() time.Time
}

// NewJournalService creates a new application service instance.
func NewJournalService(
	cfg *config.Config,
	logger ports.Logger,
	trades ports.TradeRepository,
	exits ports.ExitRepository,
) (*JournalService, error) {
	if cfg == nil || logger == nil || trades == nil || exits == nil {
		return nil, fmt.Errorf("missing required dependencies for JournalService")
	}
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("configuration InitialCapital must be positive")
	}
	return &JournalService{
		cfg:    cfg,
		logger: logger,
		trades: trades,
		exits:  exits,
		now:    time.Now,
	}, nil
}

// TradeInput carries the caller-supplied fields for creating or updating a trade.
type TradeInput struct {
	Symbol     string
	Direction  domain.Direction
	EntryDate  time.Time
	EntryPrice *float64
	Quantity   float64
	ExitDate   *time.Time
	ExitPrice  *float64
	StopLoss   *float64
	TakeProfit *float64
	Fees       float64
	Notes      string
	Strategy   string
}

// ExitInput carries the caller-supplied fields for creating or updating an exit.
type ExitInput struct {
	ExitDate  time.Time
	ExitPrice float64
	Quantity  float64
	Fees      float64
	Notes     string
	Trigger   domain.ExitTrigger
}

// CreateTrade validates and stores a new trade. A trade supplied with a
// legacy exit price is recorded as already closed; otherwise it starts open
// with its full quantity remaining.
func (s *JournalService) CreateTrade(ctx context.Context, userID string, in TradeInput) (*domain.Trade, error) {
	now := s.now().UTC()
	t := &domain.Trade{
		ID:         uuid.NewString(),
		UserID:     userID,
		Symbol:     in.Symbol,
		Direction:  in.Direction,
		EntryDate:  in.EntryDate,
		EntryPrice: in.EntryPrice,
		Quantity:   in.Quantity,
		ExitDate:   in.ExitDate,
		ExitPrice:  in.ExitPrice,
		StopLoss:   in.StopLoss,
		TakeProfit: in.TakeProfit,
		Fees:       in.Fees,
		Notes:      in.Notes,
		Strategy:   in.Strategy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := domain.ValidateTrade(t); err != nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrInvalidRequest, err)
	}
	applyDerived(t, nil)

	if err := s.trades.CreateTrade(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Trade created", map[string]interface{}{
		"tradeID": t.ID, "symbol": t.Symbol, "direction": t.Direction, "status": t.Status,
	})
	return t, nil
}

// UpdateTrade applies caller changes to a trade and re-derives its status
// against its existing exits.
func (s *JournalService) UpdateTrade(ctx context.Context, userID, tradeID string, in TradeInput) (*domain.Trade, error) {
	t, err := s.loadTrade(ctx, userID, tradeID)
	if err != nil {
		return nil, err
	}

	t.Symbol = in.Symbol
	t.Direction = in.Direction
	t.EntryDate = in.EntryDate
	t.EntryPrice = in.EntryPrice
	t.Quantity = in.Quantity
	t.ExitDate = in.ExitDate
	t.ExitPrice = in.ExitPrice
	t.StopLoss = in.StopLoss
	t.TakeProfit = in.TakeProfit
	t.Fees = in.Fees
	t.Notes = in.Notes
	t.Strategy = in.Strategy
	t.UpdatedAt = s.now().UTC()

	if err := domain.ValidateTrade(t); err != nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrInvalidRequest, err)
	}
	// Shrinking the quantity below what is already exited is a caller error.
	var exited float64
	for _, e := range t.Exits {
		exited += e.Quantity
	}
	if exited > t.Quantity {
		return nil, fmt.Errorf("%w: %s", ports.ErrInvalidRequest, domain.ErrExitExceedsQuantity)
	}
	applyDerived(t, t.Exits)

	if err := s.trades.UpdateTrade(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Trade updated", map[string]interface{}{"tradeID": t.ID, "status": t.Status})
	return t, nil
}

// DeleteTrade removes a trade and all of its exits.
func (s *JournalService) DeleteTrade(ctx context.Context, userID, tradeID string) error {
	if err := s.trades.DeleteTrade(ctx, userID, tradeID); err != nil {
		return err
	}
	s.logger.Info(ctx, "Trade deleted", map[string]interface{}{"tradeID": tradeID})
	return nil
}

// GetTrade retrieves a single trade with its exits.
func (s *JournalService) GetTrade(ctx context.Context, userID, tradeID string) (*domain.Trade, error) {
	return s.loadTrade(ctx, userID, tradeID)
}

// ListTrades retrieves all of a user's trades ordered by entry date.
func (s *JournalService) ListTrades(ctx context.Context, userID string) ([]*domain.Trade, error) {
	return s.trades.FindTradesByUser(ctx, userID)
}

// AddExit validates and stores a partial (or full) exit, then re-derives the
// trade's status and remaining quantity. An exit whose quantity exceeds the
// remaining position size is rejected, never truncated.
func (s *JournalService) AddExit(ctx context.Context, userID, tradeID string, in ExitInput) (*domain.TradeExit, error) {
	t, err := s.loadTrade(ctx, userID, tradeID)
	if err != nil {
		return nil, err
	}

	e := &domain.TradeExit{
		ID:        uuid.NewString(),
		TradeID:   t.ID,
		UserID:    userID,
		ExitDate:  in.ExitDate,
		ExitPrice: in.ExitPrice,
		Quantity:  in.Quantity,
		Fees:      in.Fees,
		Notes:     in.Notes,
		Trigger:   in.Trigger,
		CreatedAt: s.now().UTC(),
	}
	if err := domain.ValidateExit(t, t.Exits, e); err != nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrInvalidRequest, err)
	}

	if err := s.exits.CreateExit(ctx, e); err != nil {
		return nil, err
	}
	if err := s.rederive(ctx, t, append(t.Exits, e)); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Exit recorded", map[string]interface{}{
		"tradeID": t.ID, "exitID": e.ID, "quantity": e.Quantity, "status": t.Status,
	})
	return e, nil
}

// UpdateExit applies caller changes to an exit, revalidating the quantity
// invariant against the trade's other exits.
func (s *JournalService) UpdateExit(ctx context.Context, userID, tradeID, exitID string, in ExitInput) (*domain.TradeExit, error) {
	t, err := s.loadTrade(ctx, userID, tradeID)
	if err != nil {
		return nil, err
	}

	var target *domain.TradeExit
	others := make([]*domain.TradeExit, 0, len(t.Exits))
	for _, e := range t.Exits {
		if e.ID == exitID {
			target = e
		} else {
			others = append(others, e)
		}
	}
	if target == nil {
		return nil, fmt.Errorf("exit %s: %w", exitID, ports.ErrNotFound)
	}

	target.ExitDate = in.ExitDate
	target.ExitPrice = in.ExitPrice
	target.Quantity = in.Quantity
	target.Fees = in.Fees
	target.Notes = in.Notes
	target.Trigger = in.Trigger

	if err := domain.ValidateExit(t, others, target); err != nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrInvalidRequest, err)
	}
	if err := s.exits.UpdateExit(ctx, target); err != nil {
		return nil, err
	}
	if err := s.rederive(ctx, t, t.Exits); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Exit updated", map[string]interface{}{"tradeID": t.ID, "exitID": exitID, "status": t.Status})
	return target, nil
}

// DeleteExit removes an exit and re-derives the trade's status; a fully
// exited trade whose exit is deleted transitions back to open.
func (s *JournalService) DeleteExit(ctx context.Context, userID, tradeID, exitID string) error {
	t, err := s.loadTrade(ctx, userID, tradeID)
	if err != nil {
		return err
	}

	remaining := make([]*domain.TradeExit, 0, len(t.Exits))
	found := false
	for _, e := range t.Exits {
		if e.ID == exitID {
			found = true
			continue
		}
		remaining = append(remaining, e)
	}
	if !found {
		return fmt.Errorf("exit %s: %w", exitID, ports.ErrNotFound)
	}

	if err := s.exits.DeleteExit(ctx, userID, exitID); err != nil {
		return err
	}
	if err := s.rederive(ctx, t, remaining); err != nil {
		return err
	}
	s.logger.Info(ctx, "Exit deleted", map[string]interface{}{"tradeID": t.ID, "exitID": exitID, "status": t.Status})
	return nil
}

// TradeStats bundles the derived per-trade figures served alongside a trade.
type TradeStats struct {
	ProfitLoss    float64
	ProfitLossPct float64
	RiskReward    *float64 // nil when not computable
	ExitSummary   analytics.ExitSummary
}

// GetTradeStats computes a single trade's derived metrics.
func (s *JournalService) GetTradeStats(ctx context.Context, userID, tradeID string) (*domain.Trade, *TradeStats, error) {
	t, err := s.loadTrade(ctx, userID, tradeID)
	if err != nil {
		return nil, nil, err
	}

	stats := &TradeStats{
		ProfitLoss:    analytics.ProfitLoss(t),
		ProfitLossPct: analytics.ProfitLossPercent(t),
	}
	// Aggregation errors mean a data-integrity violation; log and serve the
	// zero-valued summary rather than failing the read.
	sum, err := analytics.AggregateExits(t)
	if err != nil {
		s.logger.Warn(ctx, "Trade has inconsistent exits", map[string]interface{}{"tradeID": t.ID, "error": err.Error()})
	}
	stats.ExitSummary = sum
	if rr, ok := analytics.RiskReward(t, s.riskRewardConfig()); ok {
		stats.RiskReward = &rr
	}
	return t, stats, nil
}

// GetPortfolioMetrics recomputes the full portfolio analytics for a user.
func (s *JournalService) GetPortfolioMetrics(ctx context.Context, userID string) (*analytics.PortfolioMetrics, error) {
	trades, err := s.trades.FindTradesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return analytics.Analyze(trades, analytics.Options{
		InitialCapital:      s.cfg.InitialCapital,
		MonthlyWindowMonths: s.cfg.MonthlyWindowMonths,
		AsOf:                s.now().UTC(),
		RiskReward:          s.riskRewardConfig(),
	}), nil
}

func (s *JournalService) riskRewardConfig() analytics.RiskRewardConfig {
	return analytics.RiskRewardConfig{FallbackRiskDivisor: s.cfg.RRFallbackDivisor}
}

func (s *JournalService) loadTrade(ctx context.Context, userID, tradeID string) (*domain.Trade, error) {
	t, err := s.trades.FindTradeByID(ctx, userID, tradeID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("trade %s: %w", tradeID, ports.ErrNotFound)
	}
	return t, nil
}

// rederive recomputes the trade's lifecycle state from the given exits and
// persists it. Every exit mutation funnels through here so status is never
// recomputed ad hoc at call sites.
func (s *JournalService) rederive(ctx context.Context, t *domain.Trade, exits []*domain.TradeExit) error {
	applyDerived(t, exits)
	t.UpdatedAt = s.now().UTC()
	return s.trades.UpdateTrade(ctx, t)
}

func applyDerived(t *domain.Trade, exits []*domain.TradeExit) {
	upd := domain.DeriveStatus(t, exits)
	t.Exits = exits
	t.Status = upd.Status
	rq := upd.RemainingQuantity
	t.RemainingQuantity = &rq
	t.ExitPrice = upd.ExitPrice
	t.ExitDate = upd.ExitDate
}
