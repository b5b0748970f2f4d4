package ports

import (
	"context"

	"tradejournal/internal/domain"
)

// TradeRepository defines the interface for storing and retrieving trades.
// Implementations load a trade together with its exits.
type TradeRepository interface {
	// CreateTrade saves a new trade.
	CreateTrade(ctx context.Context, t *domain.Trade) error
	// UpdateTrade modifies an existing trade.
	UpdateTrade(ctx context.Context, t *domain.Trade) error
	// DeleteTrade removes a trade and cascades to its exits.
	DeleteTrade(ctx context.Context, userID, tradeID string) error
	// FindTradeByID retrieves a trade with its exits.
	// Returns nil, nil if not found.
	FindTradeByID(ctx context.Context, userID, tradeID string) (*domain.Trade, error)
	// FindTradesByUser retrieves all of a user's trades with their exits,
	// ordered by entry date ascending.
	FindTradesByUser(ctx context.Context, userID string) ([]*domain.Trade, error)
}

// ExitRepository defines the interface for storing and retrieving trade exits.
type ExitRepository interface {
	// CreateExit saves a new exit against a trade.
	CreateExit(ctx context.Context, e *domain.TradeExit) error
	// UpdateExit modifies an existing exit.
	UpdateExit(ctx context.Context, e *domain.TradeExit) error
	// DeleteExit removes a single exit.
	DeleteExit(ctx context.Context, userID, exitID string) error
	// FindExitsByTrade retrieves a trade's exits ordered by exit date ascending.
	FindExitsByTrade(ctx context.Context, tradeID string) ([]*domain.TradeExit, error)
}
