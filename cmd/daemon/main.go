package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/analyzer"
	"github.com/qwerty2498888/maxpowertrading/internal/cache"
	"github.com/qwerty2498888/maxpowertrading/internal/config"
	"github.com/qwerty2498888/maxpowertrading/internal/notify"
	"github.com/qwerty2498888/maxpowertrading/internal/provider"
	"github.com/qwerty2498888/maxpowertrading/internal/recorder"
	"github.com/qwerty2498888/maxpowertrading/internal/staging"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// Load daemon config
	daemonCfg, err := LoadDaemonConfig()
	if err != nil {
		logger.Error("invalid daemon config", zap.Error(err))
		return 1
	}

	logger.Info("daemon configuration loaded",
		zap.Strings("forecastTimes", daemonCfg.ForecastTimes),
		zap.String("recordTime", daemonCfg.RecordTime),
		zap.String("timezone", daemonCfg.Timezone),
		zap.String("configPath", daemonCfg.ConfigPath),
		zap.String("stateFile", daemonCfg.StateFile),
		zap.Bool("runOnStartup", daemonCfg.RunOnStartup),
	)

	// Load analytics config
	cfg, err := config.Load(daemonCfg.ConfigPath)
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return 1
	}
	tickers := cfg.Tickers
	if len(tickers) == 0 {
		tickers = config.DefaultTickers
	}

	notifyCfg, err := notify.LoadConfig()
	if err != nil {
		logger.Error("failed to load notification config", zap.Error(err))
		return 1
	}
	if err := notifyCfg.Validate(); err != nil {
		logger.Error("invalid notification config", zap.Error(err))
		return 1
	}
	if !notifyCfg.Enabled() {
		logger.Warn("no notification channel enabled, forecasts will only be logged")
	}
	notifier, err := notify.New(notifyCfg, logger)
	if err != nil {
		logger.Error("failed to create notifier", zap.Error(err))
		return 1
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		logger.Error("failed to open cache", zap.Error(err))
		return 1
	}
	defer c.Close()

	client := provider.NewClient(provider.OptionsFromConfig(cfg.Provider), logger)
	svc := analyzer.NewService(client, c, cfg, logger)

	var rec Recorder
	if daemonCfg.RecordTime != "" {
		rec = recorder.New(client, staging.NewManager(daemonCfg.RecordDir), cfg, logger)
	}

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	scheduler := NewScheduler(daemonCfg.ForecastTimes, daemonCfg.Timezone)
	tracker := NewRunTracker(daemonCfg.StateFile)

	logger.Info("daemon started",
		zap.String("schedule", strings.Join(daemonCfg.ForecastTimes, ",")+" "+daemonCfg.Timezone),
		zap.Strings("tickers", tickers),
	)

	// A slot missed while the daemon was down is sent once on startup
	if daemonCfg.RunOnStartup {
		logger.Info("checking for missed forecast on startup")
		if slot := scheduler.LatestSlot(); slot != "" && shouldRun(scheduler, tracker, jobForecast, slot, logger) {
			runForecastSlot(ctx, slot, svc, notifier, tickers, scheduler, tracker, logger)
		}
	}

	// Main loop - check every minute
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			cancel()
			return 0

		case <-ticker.C:
			if slot := scheduler.DueSlot(); slot != "" && shouldRun(scheduler, tracker, jobForecast, slot, logger) {
				runForecastSlot(ctx, slot, svc, notifier, tickers, scheduler, tracker, logger)
			}
			if rec != nil && scheduler.IsTime(daemonCfg.RecordTime) && shouldRun(scheduler, tracker, jobRecord, "", logger) {
				if err := runRecording(ctx, rec, tickers, daemonCfg.MaxExpirations, scheduler, tracker, logger); err != nil {
					logger.Error("recording failed", zap.Error(err))
				}
			}

		case <-ctx.Done():
			logger.Info("context cancelled, shutting down")
			return 0
		}
	}
}

// shouldRun checks if job has not yet run for today's slot and today is a trading day.
// An empty slot keys the job by date alone.
func shouldRun(scheduler *Scheduler, tracker *RunTracker, job, slot string, logger *zap.Logger) bool {
	today := scheduler.TodayDate()
	key := today
	if slot != "" {
		key += " " + slot
	}

	if tracker.AlreadyDone(job, key) {
		return false
	}

	if !scheduler.IsMarketDay(today) {
		logger.Debug("not a market day", zap.String("date", today))
		return false
	}

	logger.Info("run conditions met",
		zap.String("job", job),
		zap.String("key", key),
		zap.String("time", time.Now().In(scheduler.Location()).Format("15:04:05")),
	)

	return true
}
