// Package watch streams regime headlines for a watchlist of tickers over
// server-sent events.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
	"github.com/qwerty2498888/maxpowertrading/internal/analyzer"
)

// maxTickers bounds a single subscription
const maxTickers = 25

// Broadcaster pushes regime updates to connected SSE clients.
type Broadcaster struct {
	broadcasterID string
	analyzer      analyzer.Analyzer
	tickers       []string // default watchlist
	logger        *zap.Logger

	mu       sync.RWMutex
	sequence uint64
	clients  map[*sseClient]bool

	interval time.Duration
	timeout  time.Duration
}

// sseClient represents a connected SSE subscriber.
type sseClient struct {
	tickers []string
	dataCh  chan []byte
	doneCh  chan struct{}
	flusher http.Flusher
	writer  http.ResponseWriter
}

// NewBroadcaster creates a broadcaster that refreshes every interval.
// Subscribers without a ticker list watch tickers.
func NewBroadcaster(id string, a analyzer.Analyzer, tickers []string, interval time.Duration, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		broadcasterID: id,
		analyzer:      a,
		tickers:       tickers,
		logger:        logger,
		clients:       make(map[*sseClient]bool),
		interval:      interval,
		timeout:       interval,
	}
}

// Run starts the periodic broadcast loop.
func (b *Broadcaster) Run(ctx context.Context) {
	b.logger.Info("watch broadcaster starting",
		zap.String("broadcaster_id", b.broadcasterID),
		zap.Duration("interval", b.interval),
	)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("watch broadcaster stopping")
			return
		case <-ticker.C:
			b.broadcastToAll(ctx)
		}
	}
}

// HandleSSE serves GET /watch?tickers=SPX,SPY.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	tickers, err := b.parseTickers(r.URL.Query().Get("tickers"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Check if SSE is supported
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := &sseClient{
		tickers: tickers,
		dataCh:  make(chan []byte, 10),
		doneCh:  make(chan struct{}),
		flusher: flusher,
		writer:  w,
	}

	b.addClient(client)
	defer b.removeClient(client)

	b.logger.Info("watch client connected",
		zap.Strings("tickers", tickers),
		zap.String("remote_addr", r.RemoteAddr),
	)

	// Send initial snapshot
	entries := b.analyze(r.Context(), tickers)
	if err := b.sendEvent(client, "snapshot", b.buildBatch(tickers, entries)); err != nil {
		b.logger.Error("failed to send snapshot", zap.Error(err))
		return
	}

	// Stream events
	for {
		select {
		case <-r.Context().Done():
			b.logger.Info("watch client disconnected", zap.Strings("tickers", tickers))
			return
		case <-client.doneCh:
			return
		case eventData := <-client.dataCh:
			if _, err := client.writer.Write(eventData); err != nil {
				b.logger.Debug("failed to write to client", zap.Error(err))
				return
			}
			client.flusher.Flush()
		}
	}
}

// parseTickers normalizes, de-duplicates and bounds a comma-separated list.
func (b *Broadcaster) parseTickers(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		if len(b.tickers) == 0 {
			return nil, fmt.Errorf("missing required 'tickers' query parameter")
		}
		raw = strings.Join(b.tickers, ",")
	}

	seen := make(map[string]bool)
	var tickers []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		symbol := analytics.NormalizeTicker(t)
		if !seen[symbol] {
			seen[symbol] = true
			tickers = append(tickers, symbol)
		}
	}

	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers given")
	}
	if len(tickers) > maxTickers {
		return nil, fmt.Errorf("too many tickers: %d (max %d)", len(tickers), maxTickers)
	}
	return tickers, nil
}

func (b *Broadcaster) addClient(client *sseClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = true
}

func (b *Broadcaster) removeClient(client *sseClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, client)
	close(client.doneCh)
}

// ClientCount returns the number of connected subscribers.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// analyze runs each ticker once. Failures become error entries.
func (b *Broadcaster) analyze(ctx context.Context, tickers []string) map[string]Entry {
	entries := make(map[string]Entry, len(tickers))
	for _, symbol := range tickers {
		actx, cancel := context.WithTimeout(ctx, b.timeout)
		result, err := b.analyzer.Analyze(actx, symbol, nil)
		cancel()

		if err != nil {
			b.logger.Debug("watch analysis failed", zap.String("ticker", symbol), zap.Error(err))
			entries[symbol] = Entry{Ticker: analytics.DisplayTicker(symbol), Error: err.Error()}
			continue
		}
		entries[symbol] = newEntry(result)
	}
	return entries
}

func (b *Broadcaster) buildBatch(tickers []string, entries map[string]Entry) *Batch {
	b.mu.Lock()
	b.sequence++
	seq := b.sequence
	b.mu.Unlock()

	batch := &Batch{
		BroadcasterID: b.broadcasterID,
		Timestamp:     time.Now().UnixMilli(),
		Sequence:      seq,
		Entries:       make([]Entry, 0, len(tickers)),
	}
	for _, symbol := range tickers {
		if e, ok := entries[symbol]; ok {
			batch.Entries = append(batch.Entries, e)
		}
	}
	return batch
}

func (b *Broadcaster) broadcastToAll(ctx context.Context) {
	b.mu.RLock()
	clients := make([]*sseClient, 0, len(b.clients))
	for client := range b.clients {
		clients = append(clients, client)
	}
	b.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	// Every watched ticker is analysed once per round
	wanted := make(map[string]bool)
	for _, client := range clients {
		for _, t := range client.tickers {
			wanted[t] = true
		}
	}
	union := make([]string, 0, len(wanted))
	for t := range wanted {
		union = append(union, t)
	}
	sort.Strings(union)
	entries := b.analyze(ctx, union)

	for _, client := range clients {
		eventData, err := b.formatEvent("batch", b.buildBatch(client.tickers, entries))
		if err != nil {
			continue
		}

		select {
		case client.dataCh <- eventData:
		default:
			// Channel full, client is slow
			b.logger.Debug("client channel full, dropping batch",
				zap.Strings("tickers", client.tickers),
			)
		}
	}
}

func (b *Broadcaster) sendEvent(client *sseClient, eventType string, batch *Batch) error {
	eventData, err := b.formatEvent(eventType, batch)
	if err != nil {
		return err
	}

	if _, err := client.writer.Write(eventData); err != nil {
		return err
	}
	client.flusher.Flush()
	return nil
}

func (b *Broadcaster) formatEvent(eventType string, batch *Batch) ([]byte, error) {
	jsonData, err := json.Marshal(batch)
	if err != nil {
		return nil, err
	}

	event := fmt.Sprintf("event: %s\nid: %d\ndata: %s\n\n", eventType, batch.Sequence, jsonData)
	return []byte(event), nil
}
