package screener

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchResult aggregates one multi-symbol screening run. Failed symbols are
// counted and described but never abort the batch.
type BatchResult struct {
	RunID    string
	Total    int
	Passed   int
	Rejected int
	Failed   int
	Results  []*Result
	Errors   []string
}

// Batch fans screening runs out over a worker pool. Each symbol's run is
// fully isolated, so the only synchronization is result collection.
type Batch struct {
	screener *Screener
	workers  int
	logger   *zap.Logger
}

func NewBatch(screener *Screener, workers int, logger *zap.Logger) *Batch {
	if workers < 1 {
		workers = 1
	}
	return &Batch{
		screener: screener,
		workers:  workers,
		logger:   logger,
	}
}

type symbolResult struct {
	symbol string
	result *Result
	err    error
}

// Execute screens every symbol and collects the outcomes. Results are
// returned in symbol order regardless of which worker finished first.
func (b *Batch) Execute(ctx context.Context, symbols []string) (*BatchResult, error) {
	batch := &BatchResult{
		RunID: uuid.New().String(),
		Total: len(symbols),
	}

	if len(symbols) == 0 {
		return batch, nil
	}

	b.logger.Info("starting screening batch",
		zap.String("run_id", batch.RunID),
		zap.Int("symbols", len(symbols)),
		zap.Int("workers", b.workers))

	jobs := make(chan string, len(symbols))
	results := make(chan symbolResult, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.worker(ctx, jobs, results)
		}()
	}

	go func() {
		for _, symbol := range symbols {
			select {
			case <-ctx.Done():
				return
			case jobs <- symbol:
			}
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		if r.err != nil {
			batch.Failed++
			batch.Errors = append(batch.Errors, fmt.Sprintf("%s: %v", r.symbol, r.err))
			continue
		}
		if r.result.Passes() {
			batch.Passed++
		} else {
			batch.Rejected++
		}
		batch.Results = append(batch.Results, r.result)
	}

	sort.Slice(batch.Results, func(i, j int) bool {
		return batch.Results[i].Symbol < batch.Results[j].Symbol
	})
	sort.Strings(batch.Errors)

	b.logger.Info("screening batch complete",
		zap.String("run_id", batch.RunID),
		zap.Int("passed", batch.Passed),
		zap.Int("rejected", batch.Rejected),
		zap.Int("failed", batch.Failed))

	return batch, nil
}

func (b *Batch) worker(ctx context.Context, jobs <-chan string, results chan<- symbolResult) {
	for symbol := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := b.screener.Screen(ctx, symbol)
		if err != nil {
			b.logger.Warn("symbol failed screening",
				zap.String("symbol", symbol),
				zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case results <- symbolResult{symbol: symbol, result: result, err: err}:
		}
	}
}
