package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
	"github.com/qwerty2498888/maxpowertrading/internal/notify"
	"github.com/qwerty2498888/maxpowertrading/internal/recorder"
)

// RunTracker persists the last completed run per job so restarts don't repeat
// a slot. Keys look like "forecast 2025-01-17 12:00" or "record 2025-01-17".
type RunTracker struct {
	stateFile string
	done      map[string]string // job -> last completed key
}

// NewRunTracker creates a tracker backed by stateFile
func NewRunTracker(stateFile string) *RunTracker {
	t := &RunTracker{stateFile: stateFile, done: make(map[string]string)}
	t.load()
	return t
}

func (t *RunTracker) load() {
	data, err := os.ReadFile(t.stateFile)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		job, key, ok := strings.Cut(strings.TrimSpace(line), "=")
		if ok {
			t.done[job] = key
		}
	}
}

// AlreadyDone reports whether key was the last completed run of job
func (t *RunTracker) AlreadyDone(job, key string) bool {
	return t.done[job] == key
}

// MarkDone records key as the last completed run of job
func (t *RunTracker) MarkDone(job, key string) error {
	t.done[job] = key

	if err := os.MkdirAll(filepath.Dir(t.stateFile), 0750); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	var b strings.Builder
	for j, k := range t.done {
		fmt.Fprintf(&b, "%s=%s\n", j, k)
	}
	tmp := t.stateFile + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return os.Rename(tmp, t.stateFile)
}

const (
	jobForecast = "forecast"
	jobRecord   = "record"
)

// Analyzer is the part of the analyzer service the daemon needs
type Analyzer interface {
	Analyze(ctx context.Context, ticker string, expirations []string) (*analytics.AnalysisResult, error)
}

// Recorder is the part of the session recorder the daemon needs
type Recorder interface {
	Record(ctx context.Context, tickers []string, maxExpirations int) (*recorder.Result, error)
}

// runForecasts analyses every ticker for its nearest expiration and pushes the
// forecast. A failing ticker is reported and does not stop the rest. It returns
// the number of forecasts delivered.
func runForecasts(ctx context.Context, a Analyzer, n notify.Notifier, tickers []string, logger *zap.Logger) int {
	sent := 0
	for _, ticker := range tickers {
		if ctx.Err() != nil {
			break
		}

		result, err := a.Analyze(ctx, ticker, nil)
		if err != nil {
			logger.Error("analysis failed", zap.String("ticker", ticker), zap.Error(err))
			if nerr := n.SendFailure(ctx, ticker, err); nerr != nil {
				logger.Warn("failed to send failure notification", zap.Error(nerr))
			}
			continue
		}

		if err := n.SendForecast(ctx, result); err != nil {
			logger.Warn("failed to send forecast", zap.String("ticker", ticker), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

// runForecastSlot runs one forecast slot and marks it done when at least one
// forecast went out.
func runForecastSlot(ctx context.Context, slot string, a Analyzer, n notify.Notifier, tickers []string,
	scheduler *Scheduler, tracker *RunTracker, logger *zap.Logger) {
	key := scheduler.TodayDate() + " " + slot

	logger.Info("starting forecast slot", zap.String("slot", key), zap.Int("tickers", len(tickers)))
	start := time.Now()

	sent := runForecasts(ctx, a, n, tickers, logger)
	if sent == 0 {
		logger.Error("no forecasts delivered", zap.String("slot", key))
		return
	}

	logger.Info("forecast slot complete",
		zap.String("slot", key),
		zap.Int("sent", sent),
		zap.Duration("duration", time.Since(start)),
	)

	if err := tracker.MarkDone(jobForecast, key); err != nil {
		logger.Error("failed to update tracker", zap.Error(err))
	}
}

var errNothingRecorded = errors.New("no ticker recorded")

// runRecording captures today's session for replay
func runRecording(ctx context.Context, r Recorder, tickers []string, maxExpirations int,
	scheduler *Scheduler, tracker *RunTracker, logger *zap.Logger) error {
	today := scheduler.TodayDate()

	logger.Info("starting session recording", zap.String("date", today))
	start := time.Now()

	result, err := r.Record(ctx, tickers, maxExpirations)
	if err != nil {
		return fmt.Errorf("recording %s: %w", today, err)
	}
	if result.Recorded == 0 {
		return errNothingRecorded
	}

	logger.Info("session recorded",
		zap.String("date", result.Date),
		zap.Int("recorded", result.Recorded),
		zap.Int("failed", result.Failed),
		zap.Int64("bytes", result.Bytes),
		zap.Duration("duration", time.Since(start)),
	)

	return tracker.MarkDone(jobRecord, today)
}
