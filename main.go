package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"atrDipBot/config"
	"atrDipBot/internal/adapters/binanceclient"
	"atrDipBot/internal/adapters/logger"
	"atrDipBot/internal/adapters/sqlite"
	"atrDipBot/internal/adapters/telegram"
	"atrDipBot/internal/app"
	"atrDipBot/internal/levels"
	"atrDipBot/internal/ports"
	"atrDipBot/internal/sizing"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Exchange Client (Binance Spot Adapter)
	exchange, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(context.Background(), "Binance client initialized")

	// 4. Initialize Level Calculator
	calc, err := levels.New(levels.Config{
		Period:         cfg.ATRPeriod,
		Multiplier:     cfg.ATRMultiplier,
		PricePrecision: levels.DefaultPricePrecision,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize level calculator")
		log.Fatalf("FATAL: Failed to initialize level calculator: %v", err)
	}

	// 5. Initialize Sizing Strategy
	var sizer ports.Sizer
	switch cfg.SizingMode {
	case config.SizingFixed:
		sizer, err = sizing.NewFixed(cfg.Quantity)
	case config.SizingBalancePercent:
		sizer, err = sizing.NewBalancePercent(sizing.BalancePercentConfig{
			QuoteAsset:  cfg.QuoteAsset,
			Percent:     cfg.BalancePercent,
			MinNotional: cfg.MinNotional,
		}, cfg.Symbol, exchange, appLogger)
	}
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize sizing strategy")
		log.Fatalf("FATAL: Failed to initialize sizing strategy: %v", err)
	}
	appLogger.Info(context.Background(), "Sizing strategy initialized", map[string]interface{}{"mode": cfg.SizingMode})

	// 6. Initialize Notifier (disabled when unconfigured, never fatal)
	notifier, err := telegram.New(telegram.Config{
		Token:  cfg.TelegramToken,
		ChatID: cfg.TelegramChatID,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize notifier")
		log.Fatalf("FATAL: Failed to initialize notifier: %v", err)
	}

	// 7. Initialize Trade Recorder (optional)
	var tradeRepo ports.TradeRepository
	if cfg.DBPath != "" {
		repo, err := sqlite.NewRepository(sqlite.Config{
			DBPath: cfg.DBPath,
			Logger: appLogger,
		})
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trade log")
			log.Fatalf("FATAL: Failed to initialize trade log: %v", err)
		}
		defer func() {
			if err := repo.Close(); err != nil {
				appLogger.Error(context.Background(), err, "Error closing trade log")
			}
		}()
		tradeRepo = repo
	} else {
		appLogger.Warn(context.Background(), "DB_PATH empty, trade recording disabled")
	}

	// 8. Initialize Application Service
	tradingService, err := app.NewTradingService(cfg, appLogger, exchange, calc, sizer, notifier, tradeRepo)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trading service")
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}
	appLogger.Info(context.Background(), "Trading service initialized")

	// 9. Start the Service
	if err := tradingService.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Trading service exited with error")
		log.Fatalf("FATAL: Trading service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
