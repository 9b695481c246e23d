package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/analyzer"
	"github.com/qwerty2498888/maxpowertrading/internal/cache"
	"github.com/qwerty2498888/maxpowertrading/internal/config"
	"github.com/qwerty2498888/maxpowertrading/internal/metrics"
	"github.com/qwerty2498888/maxpowertrading/internal/provider"
	"github.com/qwerty2498888/maxpowertrading/internal/server"
	"github.com/qwerty2498888/maxpowertrading/internal/watch"
	"github.com/qwerty2498888/maxpowertrading/internal/ws"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	// Setup logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// Load config
	srvCfg, err := config.LoadServerConfig()
	if err != nil {
		logger.Error("failed to load server config", zap.Error(err))
		return 1
	}

	cfg, err := config.Load(srvCfg.ConfigPath)
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return 1
	}

	logger.Info("configuration loaded",
		zap.String("port", srvCfg.Port),
		zap.String("providerMode", srvCfg.ProviderMode),
		zap.String("dataDir", srvCfg.DataDir),
		zap.String("dataDate", srvCfg.DataDate),
		zap.String("cacheBackend", cfg.Cache.Backend),
		zap.Strings("tickers", cfg.Tickers),
		zap.Bool("wsEnabled", srvCfg.WSEnabled),
		zap.Duration("wsStreamInterval", srvCfg.WSStreamInterval),
		zap.Bool("watchEnabled", srvCfg.WatchEnabled),
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Provider
	var client provider.Client
	switch srvCfg.ProviderMode {
	case "file":
		start := time.Now()
		fc, err := provider.NewFileClient(srvCfg.RecordingDir(), logger)
		if err != nil {
			logger.Error("failed to load recordings", zap.Error(err))
			return 1
		}
		logger.Info("recordings loaded",
			zap.Strings("tickers", fc.Tickers()),
			zap.Duration("duration", time.Since(start)),
		)
		client = fc
	default:
		client = provider.NewClient(provider.OptionsFromConfig(cfg.Provider), logger)
	}

	// Cache
	c, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		logger.Error("failed to open cache", zap.Error(err))
		return 1
	}
	defer c.Close()

	svc := analyzer.NewService(client, c, cfg, logger)
	srv := server.NewServer(svc, cfg.Tickers, srvCfg, logger)

	var routes server.Routes

	if srvCfg.MetricsEnabled {
		metrics.Init()
		routes.Metrics = metrics.Handler()
	}

	// WebSocket components (optional)
	if srvCfg.WSEnabled {
		encoder, err := ws.NewEncoder()
		if err != nil {
			logger.Error("failed to create encoder", zap.Error(err))
			return 1
		}
		defer encoder.Close()

		hub := ws.NewHub(srvCfg.WSGroupPrefix, encoder, logger)
		go hub.Run(ctx)

		streamer := ws.NewStreamer(hub, svc, encoder, srvCfg.WSStreamInterval, logger)
		go streamer.Run(ctx)

		routes.WebSocket = hub.HandleWS
		routes.Negotiate = ws.NewNegotiateHandler(srvCfg.WSGroupPrefix, logger).HandleNegotiate

		logger.Info("WebSocket enabled",
			zap.String("groupPrefix", srvCfg.WSGroupPrefix+"_"),
			zap.Duration("streamInterval", srvCfg.WSStreamInterval),
		)
	}

	// Regime watch stream (optional)
	if srvCfg.WatchEnabled {
		broadcaster := watch.NewBroadcaster(srvCfg.WatchID, svc, cfg.Tickers, srvCfg.WatchInterval, logger)
		go broadcaster.Run(ctx)
		routes.Watch = broadcaster.HandleSSE

		logger.Info("watch stream enabled",
			zap.String("broadcasterID", srvCfg.WatchID),
			zap.Duration("interval", srvCfg.WatchInterval),
		)
	}

	// Create router
	router := server.NewRouter(srv, routes, logger)

	// Setup HTTP server
	httpServer := &http.Server{
		Addr:         ":" + srvCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Cancel context to stop WebSocket components
	cancel()

	// Graceful HTTP server shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return 1
	}

	logger.Info("server stopped")
	return 0
}
