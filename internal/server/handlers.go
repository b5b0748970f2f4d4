package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tradejournal/internal/analytics"
	"tradejournal/internal/app"
	"tradejournal/internal/domain"
	"tradejournal/internal/metrics"
	"tradejournal/internal/ports"
)

const dateLayout = "2006-01-02"

// The authenticating proxy in front of this service sets the user identity;
// the API itself never resolves credentials.
const userHeader = "X-User-ID"

// --- Request DTOs ---

type tradeRequest struct {
	Symbol     string   `json:"symbol"`
	Direction  string   `json:"direction"`
	EntryDate  string   `json:"entry_date"`
	EntryPrice *float64 `json:"entry_price"`
	Quantity   float64  `json:"quantity"`
	ExitDate   *string  `json:"exit_date"`
	ExitPrice  *float64 `json:"exit_price"`
	StopLoss   *float64 `json:"stop_loss"`
	TakeProfit *float64 `json:"take_profit"`
	Fees       float64  `json:"fees"`
	Notes      string   `json:"notes"`
	Strategy   string   `json:"strategy"`
}

func (req *tradeRequest) toInput() (app.TradeInput, error) {
	entryDate, err := time.Parse(dateLayout, req.EntryDate)
	if err != nil {
		return app.TradeInput{}, fmt.Errorf("invalid entry_date %q: %w", req.EntryDate, err)
	}
	var exitDate *time.Time
	if req.ExitDate != nil {
		d, err := time.Parse(dateLayout, *req.ExitDate)
		if err != nil {
			return app.TradeInput{}, fmt.Errorf("invalid exit_date %q: %w", *req.ExitDate, err)
		}
		exitDate = &d
	}
	return app.TradeInput{
		Symbol:     req.Symbol,
		Direction:  domain.Direction(req.Direction),
		EntryDate:  entryDate,
		EntryPrice: req.EntryPrice,
		Quantity:   req.Quantity,
		ExitDate:   exitDate,
		ExitPrice:  req.ExitPrice,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Fees:       req.Fees,
		Notes:      req.Notes,
		Strategy:   req.Strategy,
	}, nil
}

type exitRequest struct {
	ExitDate  string  `json:"exit_date"`
	ExitPrice float64 `json:"exit_price"`
	Quantity  float64 `json:"quantity"`
	Fees      float64 `json:"fees"`
	Notes     string  `json:"notes"`
	Trigger   string  `json:"trigger"`
}

func (req *exitRequest) toInput() (app.ExitInput, error) {
	exitDate, err := time.Parse(dateLayout, req.ExitDate)
	if err != nil {
		return app.ExitInput{}, fmt.Errorf("invalid exit_date %q: %w", req.ExitDate, err)
	}
	return app.ExitInput{
		ExitDate:  exitDate,
		ExitPrice: req.ExitPrice,
		Quantity:  req.Quantity,
		Fees:      req.Fees,
		Notes:     req.Notes,
		Trigger:   domain.ExitTrigger(req.Trigger),
	}, nil
}

// --- Response DTOs ---

type exitResponse struct {
	ID        string  `json:"id"`
	TradeID   string  `json:"trade_id"`
	ExitDate  string  `json:"exit_date"`
	ExitPrice float64 `json:"exit_price"`
	Quantity  float64 `json:"quantity"`
	Fees      float64 `json:"fees"`
	Notes     string  `json:"notes,omitempty"`
	Trigger   string  `json:"trigger,omitempty"`
}

type tradeResponse struct {
	ID                string         `json:"id"`
	Symbol            string         `json:"symbol"`
	Direction         string         `json:"direction"`
	EntryDate         string         `json:"entry_date"`
	EntryPrice        *float64       `json:"entry_price"`
	Quantity          float64        `json:"quantity"`
	ExitDate          *string        `json:"exit_date"`
	ExitPrice         *float64       `json:"exit_price"`
	StopLoss          *float64       `json:"stop_loss"`
	TakeProfit        *float64       `json:"take_profit"`
	RemainingQuantity *float64       `json:"remaining_quantity"`
	Fees              float64        `json:"fees"`
	Status            string         `json:"status"`
	Notes             string         `json:"notes,omitempty"`
	Strategy          string         `json:"strategy,omitempty"`
	Exits             []exitResponse `json:"exits"`
}

func newExitResponse(e *domain.TradeExit) exitResponse {
	return exitResponse{
		ID:        e.ID,
		TradeID:   e.TradeID,
		ExitDate:  e.ExitDate.Format(dateLayout),
		ExitPrice: e.ExitPrice,
		Quantity:  e.Quantity,
		Fees:      e.Fees,
		Notes:     e.Notes,
		Trigger:   string(e.Trigger),
	}
}

func newTradeResponse(t *domain.Trade) tradeResponse {
	resp := tradeResponse{
		ID:                t.ID,
		Symbol:            t.Symbol,
		Direction:         string(t.Direction),
		EntryDate:         t.EntryDate.Format(dateLayout),
		EntryPrice:        t.EntryPrice,
		Quantity:          t.Quantity,
		ExitPrice:         t.ExitPrice,
		StopLoss:          t.StopLoss,
		TakeProfit:        t.TakeProfit,
		RemainingQuantity: t.RemainingQuantity,
		Fees:              t.Fees,
		Status:            string(t.Status),
		Notes:             t.Notes,
		Strategy:          t.Strategy,
		Exits:             make([]exitResponse, 0, len(t.Exits)),
	}
	if t.ExitDate != nil {
		d := t.ExitDate.Format(dateLayout)
		resp.ExitDate = &d
	}
	for _, e := range t.Exits {
		resp.Exits = append(resp.Exits, newExitResponse(e))
	}
	return resp
}

type tradeStatsResponse struct {
	Trade         tradeResponse `json:"trade"`
	ProfitLoss    float64       `json:"profit_loss"`
	ProfitLossPct float64       `json:"profit_loss_pct"`
	RiskReward    *float64      `json:"risk_reward"`
	ExitSummary   struct {
		TotalExitedQuantity float64 `json:"total_exited_quantity"`
		AverageExitPrice    float64 `json:"average_exit_price"`
		TotalExitFees       float64 `json:"total_exit_fees"`
		RemainingQuantity   float64 `json:"remaining_quantity"`
	} `json:"exit_summary"`
}

type equityPointDTO struct {
	Date        string  `json:"date"`
	Equity      float64 `json:"equity"`
	DrawdownPct float64 `json:"drawdown_pct"`
}

type drawdownPeriodDTO struct {
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Days        int     `json:"days"`
	MaxDepthPct float64 `json:"max_depth_pct"`
}

type drawdownDTO struct {
	MaxPct         float64             `json:"max_pct"`
	MaxDate        string              `json:"max_date,omitempty"`
	AveragePct     float64             `json:"average_pct"`
	CurrentPct     float64             `json:"current_pct"`
	RecoveryPoints int                 `json:"recovery_points"`
	LongestDays    int                 `json:"longest_days"`
	Periods        []drawdownPeriodDTO `json:"periods"`
}

type stopLossDTO struct {
	EligibleTrades int     `json:"eligible_trades"`
	StoppedOut     int     `json:"stopped_out"`
	HitRatePct     float64 `json:"hit_rate_pct"`
	AverageLoss    float64 `json:"average_loss"`
}

type monthlyDTO struct {
	Month        string  `json:"month"`
	NetProfit    float64 `json:"net_profit"`
	ReturnPct    float64 `json:"return_pct"`
	WinRatePct   float64 `json:"win_rate_pct"`
	Trades       int     `json:"trades"`
	AvgReturnPct float64 `json:"avg_return_pct"`
}

type tradeResultDTO struct {
	TradeID       string  `json:"trade_id"`
	Symbol        string  `json:"symbol"`
	ProfitLoss    float64 `json:"profit_loss"`
	ProfitLossPct float64 `json:"profit_loss_pct"`
}

type portfolioResponse struct {
	TotalTrades   int     `json:"total_trades"`
	OpenTrades    int     `json:"open_trades"`
	ClosedTrades  int     `json:"closed_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRatePct    float64 `json:"win_rate_pct"`
	TotalProfit   float64 `json:"total_profit"`
	FinalEquity   float64 `json:"final_equity"`
	ExposurePct   float64 `json:"exposure_pct"`
	AvgRiskReward float64 `json:"avg_risk_reward"`

	EquityCurve []equityPointDTO `json:"equity_curve"`
	Drawdown    drawdownDTO      `json:"drawdown"`
	StopLoss    stopLossDTO      `json:"stop_loss"`
	Monthly     []monthlyDTO     `json:"monthly"`

	BestTrade  *tradeResultDTO `json:"best_trade"`
	WorstTrade *tradeResultDTO `json:"worst_trade"`
}

func newPortfolioResponse(m *analytics.PortfolioMetrics) portfolioResponse {
	resp := portfolioResponse{
		TotalTrades:   m.TotalTrades,
		OpenTrades:    m.OpenTrades,
		ClosedTrades:  m.ClosedTrades,
		WinningTrades: m.WinningTrades,
		LosingTrades:  m.LosingTrades,
		WinRatePct:    m.WinRatePct,
		TotalProfit:   m.TotalProfit,
		FinalEquity:   m.FinalEquity,
		ExposurePct:   m.ExposurePct,
		AvgRiskReward: m.AvgRiskReward,
		EquityCurve:   make([]equityPointDTO, 0, len(m.EquityCurve)),
		Monthly:       make([]monthlyDTO, 0, len(m.Monthly)),
	}
	for _, p := range m.EquityCurve {
		resp.EquityCurve = append(resp.EquityCurve, equityPointDTO{
			Date:        p.Date.Format(dateLayout),
			Equity:      p.Equity,
			DrawdownPct: p.DrawdownPct,
		})
	}
	resp.Drawdown = drawdownDTO{
		MaxPct:         m.Drawdown.MaxPct,
		AveragePct:     m.Drawdown.AveragePct,
		CurrentPct:     m.Drawdown.CurrentPct,
		RecoveryPoints: m.Drawdown.RecoveryPoints,
		LongestDays:    m.Drawdown.LongestDays,
		Periods:        make([]drawdownPeriodDTO, 0, len(m.Drawdown.Periods)),
	}
	if !m.Drawdown.MaxDate.IsZero() {
		resp.Drawdown.MaxDate = m.Drawdown.MaxDate.Format(dateLayout)
	}
	for _, p := range m.Drawdown.Periods {
		resp.Drawdown.Periods = append(resp.Drawdown.Periods, drawdownPeriodDTO{
			Start:       p.Start.Format(dateLayout),
			End:         p.End.Format(dateLayout),
			Days:        p.Days,
			MaxDepthPct: p.MaxDepthPct,
		})
	}
	resp.StopLoss = stopLossDTO{
		EligibleTrades: m.StopLoss.EligibleTrades,
		StoppedOut:     m.StopLoss.StoppedOut,
		HitRatePct:     m.StopLoss.HitRatePct,
		AverageLoss:    m.StopLoss.AverageLoss,
	}
	for _, ms := range m.Monthly {
		resp.Monthly = append(resp.Monthly, monthlyDTO{
			Month:        ms.Month.Format("2006-01"),
			NetProfit:    ms.NetProfit,
			ReturnPct:    ms.ReturnPct,
			WinRatePct:   ms.WinRatePct,
			Trades:       ms.Trades,
			AvgReturnPct: ms.AvgReturnPct,
		})
	}
	resp.BestTrade = newTradeResultDTO(m.BestTrade)
	resp.WorstTrade = newTradeResultDTO(m.WorstTrade)
	return resp
}

func newTradeResultDTO(r *analytics.TradeResult) *tradeResultDTO {
	if r == nil {
		return nil
	}
	return &tradeResultDTO{
		TradeID:       r.Trade.ID,
		Symbol:        r.Trade.Symbol,
		ProfitLoss:    r.ProfitLoss,
		ProfitLossPct: r.ProfitLossPct,
	}
}

// --- Handlers ---

func (s *Server) createTrade(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := s.svc.CreateTrade(r.Context(), userID, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	metrics.TradesCreated.WithLabelValues(string(t.Direction)).Inc()
	s.writeJSON(w, http.StatusCreated, newTradeResponse(t))
}

func (s *Server) listTrades(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	trades, err := s.svc.ListTrades(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, newTradeResponse(t))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) getTrade(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	t, err := s.svc.GetTrade(r.Context(), userID, chi.URLParam(r, "tradeID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newTradeResponse(t))
}

func (s *Server) updateTrade(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := s.svc.UpdateTrade(r.Context(), userID, chi.URLParam(r, "tradeID"), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newTradeResponse(t))
}

func (s *Server) deleteTrade(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteTrade(r.Context(), userID, chi.URLParam(r, "tradeID")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addExit(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req exitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := s.svc.AddExit(r.Context(), userID, chi.URLParam(r, "tradeID"), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	metrics.ExitsRecorded.Inc()
	s.writeJSON(w, http.StatusCreated, newExitResponse(e))
}

func (s *Server) updateExit(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req exitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := s.svc.UpdateExit(r.Context(), userID, chi.URLParam(r, "tradeID"), chi.URLParam(r, "exitID"), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newExitResponse(e))
}

func (s *Server) deleteExit(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteExit(r.Context(), userID, chi.URLParam(r, "tradeID"), chi.URLParam(r, "exitID")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) tradeStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	t, stats, err := s.svc.GetTradeStats(r.Context(), userID, chi.URLParam(r, "tradeID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := tradeStatsResponse{
		Trade:         newTradeResponse(t),
		ProfitLoss:    stats.ProfitLoss,
		ProfitLossPct: stats.ProfitLossPct,
		RiskReward:    stats.RiskReward,
	}
	resp.ExitSummary.TotalExitedQuantity = stats.ExitSummary.TotalExitedQuantity
	resp.ExitSummary.AverageExitPrice = stats.ExitSummary.AverageExitPrice
	resp.ExitSummary.TotalExitFees = stats.ExitSummary.TotalExitFees
	resp.ExitSummary.RemainingQuantity = stats.ExitSummary.RemainingQuantity
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) portfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	m, err := s.svc.GetPortfolioMetrics(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newPortfolioResponse(m))
}

// --- Helpers ---

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		s.writeError(w, http.StatusUnauthorized, "missing "+userHeader+" header")
		return "", false
	}
	return userID, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(context.Background(), err, "Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ports.ErrInvalidRequest):
		metrics.ValidationRejections.Inc()
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(r.Context(), err, "Request failed", map[string]interface{}{
			"method": r.Method, "path": r.URL.Path,
		})
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
