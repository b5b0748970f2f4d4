package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tradejournal/internal/domain"
)

func fptr(v float64) *float64 { return &v }

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestProfitLoss(t *testing.T) {
	tests := []struct {
		name  string
		trade *domain.Trade
		want  float64
	}{
		{
			name: "long with legacy exit subtracts fees",
			trade: &domain.Trade{
				Direction:  domain.Long,
				EntryPrice: fptr(100),
				ExitPrice:  fptr(110),
				Quantity:   10,
				Fees:       5,
			},
			want: 95,
		},
		{
			name: "short profits when price falls",
			trade: &domain.Trade{
				Direction:  domain.Short,
				EntryPrice: fptr(50),
				ExitPrice:  fptr(45),
				Quantity:   20,
			},
			want: 100,
		},
		{
			name: "short loses when price rises",
			trade: &domain.Trade{
				Direction:  domain.Short,
				EntryPrice: fptr(50),
				ExitPrice:  fptr(55),
				Quantity:   20,
			},
			want: -100,
		},
		{
			name: "multiple exits sum per-exit with per-exit fees",
			trade: &domain.Trade{
				Direction:  domain.Long,
				EntryPrice: fptr(100),
				Quantity:   10,
				Exits: []*domain.TradeExit{
					{ExitDate: day(1), ExitPrice: 98, Quantity: 5, Fees: 1},
					{ExitDate: day(2), ExitPrice: 100, Quantity: 5, Fees: 1},
				},
			},
			want: -12, // (98-100)*5 - 1 + (100-100)*5 - 1
		},
		{
			name: "mixed partial exits net to a loss",
			trade: &domain.Trade{
				Direction:  domain.Long,
				EntryPrice: fptr(100),
				Quantity:   10,
				Exits: []*domain.TradeExit{
					{ExitDate: day(1), ExitPrice: 105, Quantity: 4},
					{ExitDate: day(2), ExitPrice: 95, Quantity: 6},
				},
			},
			want: -10, // +20 on the first exit, -30 on the second
		},
		{
			name: "itemized exits take precedence over legacy fields",
			trade: &domain.Trade{
				Direction:  domain.Long,
				EntryPrice: fptr(100),
				ExitPrice:  fptr(200),
				Quantity:   10,
				Fees:       50,
				Exits: []*domain.TradeExit{
					{ExitDate: day(1), ExitPrice: 110, Quantity: 10},
				},
			},
			want: 100,
		},
		{
			name: "open trade contributes zero",
			trade: &domain.Trade{
				Direction:  domain.Long,
				EntryPrice: fptr(100),
				Quantity:   10,
				Status:     domain.StatusOpen,
			},
			want: 0,
		},
		{
			name: "nil entry price contributes zero",
			trade: &domain.Trade{
				Direction: domain.Long,
				ExitPrice: fptr(110),
				Quantity:  10,
			},
			want: 0,
		},
		{
			name: "zero entry price contributes zero",
			trade: &domain.Trade{
				Direction:  domain.Long,
				EntryPrice: fptr(0),
				ExitPrice:  fptr(110),
				Quantity:   10,
			},
			want: 0,
		},
		{
			name: "over-exited trade contributes zero instead of failing",
			trade: &domain.Trade{
				Direction:  domain.Long,
				EntryPrice: fptr(100),
				Quantity:   5,
				Exits: []*domain.TradeExit{
					{ExitDate: day(1), ExitPrice: 110, Quantity: 10},
				},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ProfitLoss(tt.trade), 1e-9)
		})
	}
}

func TestExitProfitLoss(t *testing.T) {
	long := &domain.Trade{Direction: domain.Long, EntryPrice: fptr(100)}
	short := &domain.Trade{Direction: domain.Short, EntryPrice: fptr(100)}

	assert.InDelta(t, 19, ExitProfitLoss(long, &domain.TradeExit{ExitPrice: 105, Quantity: 4, Fees: 1}), 1e-9)
	assert.InDelta(t, -20, ExitProfitLoss(short, &domain.TradeExit{ExitPrice: 105, Quantity: 4}), 1e-9)
	assert.Equal(t, 0.0, ExitProfitLoss(&domain.Trade{Direction: domain.Long}, &domain.TradeExit{ExitPrice: 105, Quantity: 4}))
}

func TestProfitLossPercent(t *testing.T) {
	tests := []struct {
		name  string
		trade *domain.Trade
		want  float64
	}{
		{
			name: "long percentage excludes fees",
			trade: &domain.Trade{
				Direction:  domain.Long,
				EntryPrice: fptr(100),
				ExitPrice:  fptr(110),
				Quantity:   10,
				Fees:       5,
			},
			want: 10,
		},
		{
			name: "short percentage is positive when price falls",
			trade: &domain.Trade{
				Direction:  domain.Short,
				EntryPrice: fptr(50),
				ExitPrice:  fptr(45),
				Quantity:   20,
			},
			want: 10,
		},
		{
			name: "multi-exit uses quantity-weighted average exit price",
			trade: &domain.Trade{
				Direction:  domain.Long,
				EntryPrice: fptr(100),
				Quantity:   10,
				Exits: []*domain.TradeExit{
					{ExitDate: day(1), ExitPrice: 98, Quantity: 5},
					{ExitDate: day(2), ExitPrice: 100, Quantity: 5},
				},
			},
			want: -1, // avg exit 99 against entry 100
		},
		{
			name: "weighting favors the larger exit",
			trade: &domain.Trade{
				Direction:  domain.Long,
				EntryPrice: fptr(100),
				Quantity:   10,
				Exits: []*domain.TradeExit{
					{ExitDate: day(1), ExitPrice: 120, Quantity: 8},
					{ExitDate: day(2), ExitPrice: 100, Quantity: 2},
				},
			},
			want: 16, // avg exit 116
		},
		{
			name: "open trade contributes zero",
			trade: &domain.Trade{
				Direction:  domain.Long,
				EntryPrice: fptr(100),
				Quantity:   10,
			},
			want: 0,
		},
		{
			name: "zero entry price guards division",
			trade: &domain.Trade{
				Direction:  domain.Long,
				EntryPrice: fptr(0),
				ExitPrice:  fptr(110),
				Quantity:   10,
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ProfitLossPercent(tt.trade), 1e-9)
		})
	}
}
