package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
	"github.com/qwerty2498888/maxpowertrading/internal/provider"
)

// Manager fetches the chains of several expirations concurrently. A failing
// expiration never fails the batch; it is returned with its Err set.
type Manager struct {
	client  provider.Client
	workers int
	logger  *zap.Logger
}

type BatchResult struct {
	Total    int
	Success  int
	NotFound int
	Failed   int
	Errors   []string
}

func NewManager(client provider.Client, workers int, logger *zap.Logger) *Manager {
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		client:  client,
		workers: workers,
		logger:  logger,
	}
}

func (m *Manager) Execute(ctx context.Context, ticker string, expirations []string) (map[string]analytics.ExpirationChain, *BatchResult, error) {
	result := &BatchResult{Total: len(expirations)}
	chains := make(map[string]analytics.ExpirationChain, len(expirations))

	if len(expirations) == 0 {
		return chains, result, nil
	}

	jobs := make(chan Task, len(expirations))
	results := make(chan TaskResult, len(expirations))

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			m.worker(ctx, workerID, jobs, results)
		}(i)
	}

	// Send jobs
	go func() {
		defer close(jobs)
		for _, exp := range expirations {
			select {
			case <-ctx.Done():
				return
			case jobs <- Task{Ticker: ticker, Expiration: exp}:
			}
		}
	}()

	// Wait for workers and close results
	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results
	for r := range results {
		chain := r.Chain
		chain.Expiration = r.Task.Expiration
		switch {
		case r.Success:
			result.Success++
		case r.NotFound:
			result.NotFound++
			chain.Err = provider.ErrNotFound
		default:
			result.Failed++
			chain.Err = r.Error
			if r.Error != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", r.Task, r.Error))
			}
		}
		chains[r.Task.Expiration] = chain
	}

	if err := ctx.Err(); err != nil {
		return chains, result, err
	}

	return chains, result, nil
}

func (m *Manager) worker(ctx context.Context, id int, jobs <-chan Task, results chan<- TaskResult) {
	for task := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result := m.processTask(ctx, id, task)

		select {
		case <-ctx.Done():
			return
		case results <- result:
		}
	}
}

func (m *Manager) processTask(ctx context.Context, workerID int, task Task) TaskResult {
	result := TaskResult{Task: task}

	m.logger.Debug("fetching chain", zap.String("task", task.String()), zap.Int("worker", workerID))

	chain, err := m.client.Chain(ctx, task.Ticker, task.Expiration)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			m.logger.Debug("not found", zap.String("task", task.String()))
			result.NotFound = true
			return result
		}
		m.logger.Warn("chain fetch failed", zap.String("task", task.String()), zap.Error(err))
		result.Error = err
		return result
	}

	result.Chain = chain
	result.Success = true
	m.logger.Debug("fetched chain",
		zap.String("task", task.String()),
		zap.Int("calls", len(chain.Calls)),
		zap.Int("puts", len(chain.Puts)))

	return result
}
