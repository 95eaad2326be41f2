package screener

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestBatchExecute(t *testing.T) {
	// A shared provider serves every symbol the same healthy data except the
	// rejected one, which is handled per-symbol below.
	s := newTestScreener(healthyProvider("alpaca"), nil)
	batch := NewBatch(s, 3, zap.NewNop())

	result, err := batch.Execute(context.Background(), []string{"MSFT", "AAPL", "BAD$", "NVDA"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RunID == "" {
		t.Error("expected a run ID")
	}
	if result.Total != 4 {
		t.Errorf("expected total 4, got %d", result.Total)
	}
	if result.Passed != 3 {
		t.Errorf("expected 3 passed, got %d", result.Passed)
	}
	if result.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", result.Failed)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "BAD$") {
		t.Errorf("expected one error naming the bad symbol, got %v", result.Errors)
	}

	// Results sorted by symbol regardless of worker completion order.
	want := []string{"AAPL", "MSFT", "NVDA"}
	if len(result.Results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(result.Results))
	}
	for i, symbol := range want {
		if result.Results[i].Symbol != symbol {
			t.Errorf("result %d: expected %s, got %s", i, symbol, result.Results[i].Symbol)
		}
	}
}

func TestBatchExecuteEmpty(t *testing.T) {
	s := newTestScreener(healthyProvider("alpaca"), nil)
	batch := NewBatch(s, 2, zap.NewNop())

	result, err := batch.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 0 || len(result.Results) != 0 {
		t.Errorf("expected empty batch result, got %+v", result)
	}
}

func TestBatchCountsRejections(t *testing.T) {
	primary := healthyProvider("alpaca")
	for i := range primary.bars {
		primary.bars[i].Volume = 100_000
	}
	s := newTestScreener(primary, nil)
	batch := NewBatch(s, 1, zap.NewNop())

	result, err := batch.Execute(context.Background(), []string{"AAPL", "MSFT"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Rejected != 2 || result.Passed != 0 {
		t.Errorf("expected 2 rejections, got passed=%d rejected=%d", result.Passed, result.Rejected)
	}
}
