package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"liquidationMap/config"
	"liquidationMap/internal/adapters/binanceclient"
	"liquidationMap/internal/adapters/liqapi"
	"liquidationMap/internal/adapters/logger"
	"liquidationMap/internal/adapters/sqlite"
	"liquidationMap/internal/api"
	"liquidationMap/internal/app"
	"liquidationMap/internal/metrics"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger, err := logger.NewRotatingLogger(cfg.LogLevel, logger.FileOptions{Path: cfg.LogFile})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "file": cfg.LogFile})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(context.Background(), "Database repository initialized")

	// 4. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:               cfg.APIKey,
		SecretKey:            cfg.SecretKey,
		UseTestnet:           cfg.IsTestnet,
		Logger:               appLogger,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(context.Background(), "Binance client initialized")

	// 5. Initialize Liquidation Map Client
	liqClient, err := liqapi.New(liqapi.Config{
		BaseURL:     cfg.LiqMapBaseURL,
		Timeout:     cfg.LiqMapTimeout,
		MaxAttempts: cfg.LiqMapMaxAttempts,
		Logger:      appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize liquidation map client")
		log.Fatalf("FATAL: Failed to initialize liquidation map client: %v", err)
	}
	appLogger.Info(context.Background(), "Liquidation map client initialized", map[string]interface{}{"baseURL": cfg.LiqMapBaseURL})

	m := metrics.NewMetrics("")

	// 6. Initialize Application Service
	heatmapService, err := app.NewHeatmapService(
		cfg,
		appLogger,
		binanceClient,
		liqClient,
		repo, // predictions
		repo, // snapshots
		m,
	)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize heatmap service")
		log.Fatalf("FATAL: Failed to initialize heatmap service: %v", err)
	}
	appLogger.Info(context.Background(), "Heatmap service initialized")

	// 7. Initialize HTTP API
	server, err := api.NewServer(api.Config{
		Port:           cfg.APIPort,
		Env:            cfg.APIEnv,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Symbol:         cfg.Symbol,
	}, heatmapService, repo, repo, m, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize API server")
		log.Fatalf("FATAL: Failed to initialize API server: %v", err)
	}

	// 8. Start the API and the Service; the service owns signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	apiDone := make(chan struct{})
	go func() {
		defer close(apiDone)
		if err := server.Start(ctx); err != nil {
			appLogger.Error(ctx, err, "API server exited with error")
			cancel()
		}
	}()

	if err := heatmapService.Start(ctx); err != nil {
		appLogger.Error(context.Background(), err, "Heatmap service exited with error")
	}
	cancel()
	<-apiDone

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
