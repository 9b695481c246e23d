package ws

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
	"github.com/qwerty2498888/maxpowertrading/internal/analyzer"
)

// Streamer periodically analyzes every subscribed ticker and broadcasts the
// resulting levels to its group.
type Streamer struct {
	hub      *Hub
	analyzer analyzer.Analyzer
	encoder  *Encoder
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

// NewStreamer creates a new Streamer.
func NewStreamer(hub *Hub, a analyzer.Analyzer, encoder *Encoder, interval time.Duration, logger *zap.Logger) *Streamer {
	return &Streamer{
		hub:      hub,
		analyzer: a,
		encoder:  encoder,
		interval: interval,
		timeout:  interval,
		logger:   logger,
	}
}

// Run starts the streaming loop. Call in a goroutine.
// Returns when context is cancelled.
func (s *Streamer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("streamer started",
		zap.Duration("interval", s.interval),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("streamer stopping")
			return

		case <-ticker.C:
			s.broadcastNext(ctx)
		}
	}
}

// broadcastNext analyzes and broadcasts every active group once.
func (s *Streamer) broadcastNext(ctx context.Context) {
	for _, group := range s.hub.GetActiveGroups() {
		ticker := s.hub.TickerFromGroup(group)
		if ticker == "" {
			continue
		}

		if err := s.publish(ctx, group, ticker); err != nil {
			s.logger.Warn("failed to stream levels",
				zap.String("ticker", ticker),
				zap.Error(err),
			)
		}
	}
}

func (s *Streamer) publish(ctx context.Context, group, ticker string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.analyzer.Analyze(ctx, analytics.NormalizeTicker(ticker), nil)
	if err != nil {
		return err
	}

	data, err := s.encoder.EncodeLevels(result)
	if err != nil {
		return err
	}

	s.hub.BroadcastData(group, data)

	s.logger.Debug("broadcast levels",
		zap.String("ticker", ticker),
		zap.Int("levels", len(result.ScoredLevels)),
		zap.Int("size", len(data)),
	)
	return nil
}
