package utils

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/domain"
)

func TestWriteTradesToCSV(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "tradejournal-csv-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	entry := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	exitDate := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	entryPrice := 100.0
	exitPrice := 110.0
	trades := []*domain.Trade{
		{
			ID: "t1", Symbol: "AAPL", Direction: domain.Long, Status: domain.StatusClosed,
			EntryDate: entry, EntryPrice: &entryPrice, Quantity: 10,
			ExitDate: &exitDate, ExitPrice: &exitPrice, Fees: 5, Strategy: "breakout",
		},
		{
			ID: "t2", Symbol: "TSLA", Direction: domain.Short, Status: domain.StatusOpen,
			EntryDate: entry, Quantity: 2,
		},
	}

	path := filepath.Join(tmpDir, "trades.csv")
	require.NoError(t, WriteTradesToCSV(trades, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + 2 trades

	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, []string{"t1", "AAPL", "long", "closed", "2025-03-01", "100", "10",
		"2025-03-10", "110", "", "", "5", "breakout", ""}, records[1])
	// Nullable fields of the open trade serialize as empty strings.
	assert.Equal(t, "", records[2][5])
	assert.Equal(t, "", records[2][7])
}
