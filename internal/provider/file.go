package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
)

// Record is one line of a recorded session file.
type Record struct {
	Type   string                     `json:"type"` // "quote", "chain" or "candle"
	Quote  *Quote                     `json:"quote,omitempty"`
	Chain  *analytics.ExpirationChain `json:"chain,omitempty"`
	Candle *Candle                    `json:"candle,omitempty"`
}

const (
	RecordQuote  = "quote"
	RecordChain  = "chain"
	RecordCandle = "candle"
)

type recording struct {
	quote   *Quote
	chains  map[string]analytics.ExpirationChain
	candles []Candle
}

// FileClient serves recorded sessions from {dir}/{TICKER}.jsonl files.
type FileClient struct {
	data   map[string]*recording // key: normalized ticker
	logger *zap.Logger
}

var _ Client = (*FileClient)(nil)

func NewFileClient(dir string, logger *zap.Logger) (*FileClient, error) {
	client := &FileClient{
		data:   make(map[string]*recording),
		logger: logger,
	}

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".jsonl" {
			return nil
		}

		ticker := analytics.NormalizeTicker(strings.TrimSuffix(filepath.Base(path), ".jsonl"))

		rec, err := loadRecording(path)
		if err != nil {
			logger.Warn("failed to load recording", zap.String("path", path), zap.Error(err))
			return nil
		}

		client.data[ticker] = rec
		logger.Info("loaded recording",
			zap.String("ticker", ticker),
			zap.Int("expirations", len(rec.chains)),
			zap.Int("candles", len(rec.candles)),
		)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("walking recording directory: %w", err)
	}

	if len(client.data) == 0 {
		return nil, fmt.Errorf("no JSONL recordings found in %s", dir)
	}

	return client, nil
}

func loadRecording(path string) (*recording, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rec := &recording{chains: make(map[string]analytics.ExpirationChain)}
	scanner := bufio.NewScanner(file)

	// Chains of liquid underlyings produce long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 8*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		switch {
		case r.Type == RecordQuote && r.Quote != nil:
			rec.quote = r.Quote
		case r.Type == RecordChain && r.Chain != nil:
			rec.chains[r.Chain.Expiration] = *r.Chain
		case r.Type == RecordCandle && r.Candle != nil:
			rec.candles = append(rec.candles, *r.Candle)
		default:
			return nil, fmt.Errorf("line %d: unknown record type %q", lineNum, r.Type)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return rec, nil
}

func (f *FileClient) Quote(ctx context.Context, ticker string) (*Quote, error) {
	rec, ok := f.data[analytics.NormalizeTicker(ticker)]
	if !ok {
		return nil, ErrNotFound
	}

	q := Quote{Ticker: analytics.NormalizeTicker(ticker)}
	if rec.quote != nil {
		q = *rec.quote
	}
	// The recorded chains are authoritative for what can be served
	q.Expirations = make([]string, 0, len(rec.chains))
	for date := range rec.chains {
		q.Expirations = append(q.Expirations, date)
	}
	sort.Strings(q.Expirations)
	return &q, nil
}

func (f *FileClient) Chain(ctx context.Context, ticker, expiration string) (analytics.ExpirationChain, error) {
	rec, ok := f.data[analytics.NormalizeTicker(ticker)]
	if !ok {
		return analytics.ExpirationChain{Expiration: expiration}, ErrNotFound
	}
	chain, ok := rec.chains[expiration]
	if !ok {
		return analytics.ExpirationChain{Expiration: expiration}, ErrNotFound
	}
	return chain, nil
}

// Candles returns every recorded bar; interval and range are fixed at record time.
func (f *FileClient) Candles(ctx context.Context, ticker, interval, rng string) ([]Candle, error) {
	rec, ok := f.data[analytics.NormalizeTicker(ticker)]
	if !ok || len(rec.candles) == 0 {
		return nil, ErrNotFound
	}
	out := make([]Candle, len(rec.candles))
	copy(out, rec.candles)
	return out, nil
}

// Tickers returns the loaded tickers, sorted.
func (f *FileClient) Tickers() []string {
	tickers := make([]string, 0, len(f.data))
	for t := range f.data {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// RecordWriter appends session records as JSON lines.
type RecordWriter struct {
	enc *json.Encoder
}

func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{enc: json.NewEncoder(w)}
}

func (w *RecordWriter) WriteQuote(q *Quote) error {
	return w.enc.Encode(Record{Type: RecordQuote, Quote: q})
}

func (w *RecordWriter) WriteChain(c analytics.ExpirationChain) error {
	return w.enc.Encode(Record{Type: RecordChain, Chain: &c})
}

func (w *RecordWriter) WriteCandle(c Candle) error {
	return w.enc.Encode(Record{Type: RecordCandle, Candle: &c})
}
