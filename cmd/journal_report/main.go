// Command journal_report prints a portfolio summary for one user's journal
// straight from the database, and can export the raw trades to CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"tradejournal/internal/adapters/logger"
	"tradejournal/internal/adapters/sqlite"
	"tradejournal/internal/analytics"
	"tradejournal/internal/utils"
)

func main() {
	dbPath := flag.String("db", "./data/tradejournal.db", "path to the journal database")
	userID := flag.String("user", "", "user whose journal to report on (required)")
	capital := flag.Float64("capital", 10000, "initial capital for equity and exposure figures")
	months := flag.Int("months", 6, "trailing window for the monthly table")
	export := flag.String("export", "", "optional CSV file to export the trades to")
	flag.Parse()

	if *userID == "" {
		flag.Usage()
		log.Fatal("missing required -user flag")
	}

	appLogger := logger.NewStdLogger(logger.LevelWarn)
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: *dbPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	trades, err := repo.FindTradesByUser(ctx, *userID)
	if err != nil {
		log.Fatalf("Error loading trades: %v", err)
	}
	if len(trades) == 0 {
		log.Printf("No trades found for user %s", *userID)
		return
	}

	m := analytics.Analyze(trades, analytics.Options{
		InitialCapital:      *capital,
		MonthlyWindowMonths: *months,
		AsOf:                time.Now().UTC(),
	})

	fmt.Printf("Journal report for %s (%d trades)\n\n", *userID, m.TotalTrades)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Open\tClosed\tWinRate\tTotalPnL\tFinalEquity\tMaxDD\tExposure\t")
	fmt.Fprintf(w, "%d\t%d\t%.2f%%\t%.2f\t%.2f\t%.2f%%\t%.2f%%\t\n",
		m.OpenTrades, m.ClosedTrades, m.WinRatePct, m.TotalProfit,
		m.FinalEquity, m.Drawdown.MaxPct, m.ExposurePct)
	w.Flush()

	fmt.Println("\nMonthly:")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Month\tTrades\tNetPnL\tReturn\tWinRate\t")
	for _, ms := range m.Monthly {
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f%%\t%.2f%%\t\n",
			ms.Month.Format("2006-01"), ms.Trades, ms.NetProfit, ms.ReturnPct, ms.WinRatePct)
	}
	w.Flush()

	if m.BestTrade != nil {
		fmt.Printf("\nBest trade:  %s %+.2f%% (%.2f)\n",
			m.BestTrade.Trade.Symbol, m.BestTrade.ProfitLossPct, m.BestTrade.ProfitLoss)
	}
	if m.WorstTrade != nil {
		fmt.Printf("Worst trade: %s %+.2f%% (%.2f)\n",
			m.WorstTrade.Trade.Symbol, m.WorstTrade.ProfitLossPct, m.WorstTrade.ProfitLoss)
	}

	if *export != "" {
		if err := utils.WriteTradesToCSV(trades, *export); err != nil {
			log.Fatalf("Error exporting trades to %s: %v", *export, err)
		}
		fmt.Printf("\nExported %d trades to %s\n", len(trades), *export)
	}
}
