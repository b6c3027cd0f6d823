package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"liquidationMap/internal/adapters/logger"
	"liquidationMap/internal/adapters/sqlite"
	"liquidationMap/internal/analytics"
	"liquidationMap/internal/domain"
)

func main() {
	dbPath := flag.String("db", "./data/liquidation_map.db", "Path to the SQLite database")
	symbol := flag.String("symbol", "", "Only analyze this symbol (default all)")
	limit := flag.Int("limit", 0, "Only analyze the N most recent predictions (0 = all)")
	flag.Parse()

	ctx := context.Background()
	appLogger := logger.NewStdLogger(logger.LevelWarn)

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: *dbPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer repo.Close()

	predictions, err := repo.FindRecent(ctx, strings.ToUpper(*symbol), *limit)
	if err != nil {
		log.Fatalf("Error reading predictions: %v", err)
	}
	if len(predictions) == 0 {
		log.Println("No predictions found. Run the heatmap service first.")
		return
	}

	stats := analytics.AccuracyStats(predictions)

	// Create a tabwriter for formatted output
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Total\tCompleted\tScored\tCorrect\tAccuracy%\tAvgMove%\tBestStreak\tWorstStreak\t")
	fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%.2f\t%.2f\t%d\t%d\t\n",
		stats.TotalPredictions,
		stats.Completed,
		stats.Scored,
		stats.Correct,
		stats.AccuracyPct,
		stats.AvgMovePct,
		stats.MaxConsecutiveCorrect,
		stats.MaxConsecutiveWrong,
	)
	w.Flush()

	fmt.Println("\n## By Bias")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Bias\tTotal\tScored\tCorrect\tAccuracy%\t")
	biases := make([]domain.DirectionBias, 0, len(stats.ByBias))
	for b := range stats.ByBias {
		biases = append(biases, b)
	}
	sort.Slice(biases, func(i, j int) bool { return biases[i] < biases[j] })
	for _, b := range biases {
		bs := stats.ByBias[b]
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.2f\t\n", b, bs.Total, bs.Scored, bs.Correct, bs.AccuracyPct)
	}
	w.Flush()

	if len(stats.Monthly) == 0 {
		return
	}
	fmt.Println("\n## Monthly")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Month\tScored\tCorrect\tAccuracy%\t")
	for _, m := range stats.Monthly {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t\n", m.Month.Format("2006-01"), m.Scored, m.Correct, m.AccuracyPct)
	}
	w.Flush()
}
