package utils

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"tradejournal/internal/domain"
)

const csvDateLayout = "2006-01-02"

func WriteTradesToCSV(trades []*domain.Trade, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"id", "symbol", "direction", "status", "entry_date", "entry_price",
		"quantity", "exit_date", "exit_price", "stop_loss", "take_profit", "fees", "strategy", "notes"})

	for _, t := range trades {
		writer.Write([]string{
			t.ID,
			t.Symbol,
			string(t.Direction),
			string(t.Status),
			t.EntryDate.Format(csvDateLayout),
			formatPtr(t.EntryPrice),
			strconv.FormatFloat(t.Quantity, 'f', -1, 64),
			formatDatePtr(t.ExitDate),
			formatPtr(t.ExitPrice),
			formatPtr(t.StopLoss),
			formatPtr(t.TakeProfit),
			strconv.FormatFloat(t.Fees, 'f', -1, 64),
			t.Strategy,
			t.Notes,
		})
	}
	return writer.Error()
}

func formatPtr(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func formatDatePtr(p *time.Time) string {
	if p == nil {
		return ""
	}
	return p.Format(csvDateLayout)
}
