package main

import (
	"context"
	"fmt"
	"log"

	"atrDipBot/config"
	"atrDipBot/internal/adapters/binanceclient"
	"atrDipBot/internal/adapters/logger"
	"atrDipBot/internal/adapters/sqlite"
	"atrDipBot/internal/levels"
)

// levelcheck fetches the configured symbol's candle history and prints the
// current ATR value and the buy trigger the bot would use, plus the recent
// trade history when a database is configured, then exits.
func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)

	// 3. Initialize Exchange Client (Binance Spot Adapter)
	exchange, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	calc, err := levels.New(levels.Config{
		Period:         cfg.ATRPeriod,
		Multiplier:     cfg.ATRMultiplier,
		PricePrecision: levels.DefaultPricePrecision,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize level calculator: %v", err)
	}

	ctx := context.Background()
	klines, err := exchange.GetKlines(ctx, cfg.Symbol, cfg.KlineInterval, cfg.KlineLimit)
	if err != nil {
		log.Fatalf("Error fetching klines: %v", err)
	}

	fmt.Printf("%s %s: %d candles fetched\n", cfg.Symbol, cfg.KlineInterval, len(klines))

	atr, ok := calc.ATR(klines)
	if !ok {
		fmt.Printf("not enough candles for ATR(%d): need %d\n", cfg.ATRPeriod, calc.RequiredDataPoints())
		return
	}
	lastClose := klines[len(klines)-1].Close
	fmt.Printf("last close: %.2f\n", lastClose)
	fmt.Printf("ATR(%d):    %.4f\n", cfg.ATRPeriod, atr)

	if trigger, ok := calc.BuyTrigger(klines); ok {
		fmt.Printf("buy trigger (close - %.1f*ATR): %.2f\n", cfg.ATRMultiplier, trigger)
	} else {
		fmt.Println("no buy trigger")
	}

	if cfg.DBPath == "" {
		return
	}
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("Error opening trade log: %v", err)
	}
	defer repo.Close()

	trades, err := repo.FindRecent(ctx, cfg.Symbol, 5)
	if err != nil {
		log.Fatalf("Error reading trade log: %v", err)
	}
	fmt.Printf("\nlast %d trades:\n", len(trades))
	for _, tr := range trades {
		fmt.Printf("  %s %-4s %.2f x %v (order %d)\n",
			tr.ExecutedAt.Format("2006-01-02 15:04:05"), tr.Action, tr.Price, tr.Quantity, tr.OrderID)
	}

	profit, err := repo.RealizedProfit(ctx, cfg.Symbol)
	if err != nil {
		log.Fatalf("Error computing realized profit: %v", err)
	}
	fmt.Printf("realized profit: %.4f %s\n", profit, cfg.QuoteAsset)
}
