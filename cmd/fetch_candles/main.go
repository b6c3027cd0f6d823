package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"liquidationMap/internal/adapters/binanceclient"
	"liquidationMap/internal/adapters/logger"
	"liquidationMap/internal/utils"
)

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "Futures symbol")
	interval := flag.String("interval", "30m", "Candle interval (1m, 30m, 4h, 1d, ...)")
	days := flag.Int("days", 1, "Number of days to fetch, ending now")
	out := flag.String("out", "", "Output CSV (default data/<symbol>_<interval>_<from>_to_<to>.csv)")
	flag.Parse()

	if *days < 1 {
		log.Fatalf("FATAL: -days must be positive, got %d", *days)
	}

	// Public endpoints work without keys; pick them up from .env if present.
	_ = godotenv.Load()

	// 1. Initialize Logger
	appLogger := logger.NewStdLogger(logger.ParseLevel(os.Getenv("LOG_LEVEL")))
	ctx := context.Background()

	// 2. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     os.Getenv("BINANCE_API_KEY"),
		SecretKey:  os.Getenv("BINANCE_API_SECRET"),
		UseTestnet: strings.EqualFold(os.Getenv("IS_TESTNET"), "true"),
		Logger:     appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	sym := strings.ToUpper(*symbol)
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -*days)

	fmt.Printf("Fetching candles for %s %s from %s to %s...\n", sym, *interval, start.Format(time.RFC3339), end.Format(time.RFC3339))
	candles, err := binanceClient.GetCandlesRange(ctx, sym, *interval, start, end)
	if err != nil {
		appLogger.Error(ctx, err, "Error fetching candles")
		log.Fatalf("Error fetching candles: %v", err)
	}
	appLogger.Info(ctx, "Fetched candles", map[string]interface{}{"count": len(candles)})

	filename := *out
	if filename == "" {
		filename = fmt.Sprintf("data/%s_%s_%s_to_%s.csv", sym, *interval, start.Format("20060102"), end.Format("20060102"))
	}
	if err := utils.WriteCandlesToCSV(candles, filename); err != nil {
		appLogger.Error(ctx, err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(ctx, "Saved to", map[string]interface{}{"filename": filename})
}
