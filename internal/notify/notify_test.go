package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/quantfold/earnscan/internal/config"
	"github.com/quantfold/earnscan/internal/screener"
)

func sampleBatch() *screener.BatchResult {
	return &screener.BatchResult{
		RunID:    "run-1",
		Total:    3,
		Passed:   1,
		Rejected: 1,
		Failed:   1,
		Results: []*screener.Result{
			{
				Symbol: "AAPL", AvgVolumeOK: true, IVRVRatioOK: true, TermSlopeOK: true,
				ExpectedMove: "5.0%",
			},
			{Symbol: "MSFT"},
		},
		Errors: []string{"XYZ: no option data"},
	}
}

func TestNewReturnsNoopWhenDisabled(t *testing.T) {
	n := New(config.NotifyConfig{Enabled: false}, zap.NewNop())
	if _, ok := n.(*NoopNotifier); !ok {
		t.Errorf("expected NoopNotifier, got %T", n)
	}

	if err := n.SendResults(context.Background(), sampleBatch(), "2025-06-02", time.Second); err != nil {
		t.Errorf("noop must never fail: %v", err)
	}
	if err := n.SendFailure(context.Background(), "2025-06-02", errors.New("boom")); err != nil {
		t.Errorf("noop must never fail: %v", err)
	}
}

func TestSendResults(t *testing.T) {
	var gotTitle, gotPriority, gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/earnscan-test" {
			t.Errorf("expected topic path, got %s", r.URL.Path)
		}
		gotTitle = r.Header.Get("Title")
		gotPriority = r.Header.Get("Priority")
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer server.Close()

	c := NewClient(config.NotifyConfig{
		Enabled:  true,
		Server:   server.URL,
		Topic:    "earnscan-test",
		Priority: "default",
		Tags:     "chart_with_upwards_trend",
		Token:    "tk-secret",
	}, zap.NewNop())

	err := c.SendResults(context.Background(), sampleBatch(), "2025-06-02", 90*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(gotTitle, "1 passing") {
		t.Errorf("unexpected title %q", gotTitle)
	}
	if gotPriority != "default" {
		t.Errorf("unexpected priority %q", gotPriority)
	}
	if gotAuth != "Bearer tk-secret" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if !strings.Contains(gotBody, "AAPL (move 5.0%)") {
		t.Errorf("expected passing symbol with move in body:\n%s", gotBody)
	}
	if !strings.Contains(gotBody, "XYZ: no option data") {
		t.Errorf("expected error line in body:\n%s", gotBody)
	}
}

func TestSendFailureHighPriority(t *testing.T) {
	var gotPriority string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPriority = r.Header.Get("Priority")
	}))
	defer server.Close()

	c := NewClient(config.NotifyConfig{
		Enabled: true, Server: server.URL, Topic: "t", Priority: "low",
	}, zap.NewNop())

	if err := c.SendFailure(context.Background(), "2025-06-02", errors.New("providers down")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPriority != "high" {
		t.Errorf("failures must go out at high priority, got %q", gotPriority)
	}
}

func TestSendServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(config.NotifyConfig{Enabled: true, Server: server.URL, Topic: "t"}, zap.NewNop())
	if err := c.SendResults(context.Background(), sampleBatch(), "2025-06-02", time.Second); err == nil {
		t.Error("expected error for non-2xx response")
	}
}

func TestFormatResultsMessageTruncatesErrors(t *testing.T) {
	batch := &screener.BatchResult{
		Total:  5,
		Failed: 5,
		Errors: []string{"a: x", "b: x", "c: x", "d: x", "e: x"},
	}

	msg := FormatResultsMessage(batch, time.Second)
	if !strings.Contains(msg, "... and 2 more errors") {
		t.Errorf("expected truncation note, got:\n%s", msg)
	}
	if strings.Contains(msg, "d: x") {
		t.Errorf("expected only the first 3 errors, got:\n%s", msg)
	}
}
