package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Snapshot is a recorded view of everything a screening run reads for one
// symbol, stored as zstd-compressed JSON for offline replay.
type Snapshot struct {
	Symbol      string                `json:"symbol"`
	TakenAt     time.Time             `json:"taken_at"`
	Price       float64               `json:"price"`
	Expirations []string              `json:"expirations"`
	Chains      map[string][]ChainRow `json:"chains"`
	Bars        []PriceBar            `json:"bars"`
}

// ChainRow is one strike of a serialized chain. Chain itself keys on a
// float64 and cannot round-trip through JSON directly.
type ChainRow struct {
	Strike float64      `json:"strike"`
	Call   *OptionQuote `json:"call,omitempty"`
	Put    *OptionQuote `json:"put,omitempty"`
}

// Record captures a snapshot of src for one symbol, pulling bars over the
// trailing historyDays window.
func Record(ctx context.Context, src Provider, symbol string, historyDays int) (*Snapshot, error) {
	snap := &Snapshot{
		Symbol:  symbol,
		TakenAt: time.Now().UTC(),
		Chains:  make(map[string][]ChainRow),
	}

	price, err := src.CurrentPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}
	snap.Price = price

	expirations, err := src.OptionExpirations(ctx, symbol)
	if err != nil {
		return nil, err
	}
	snap.Expirations = expirations

	for _, exp := range expirations {
		chain, err := src.OptionChain(ctx, symbol, exp)
		if err != nil {
			return nil, err
		}
		snap.Chains[exp] = flattenChain(chain)
	}

	end := time.Now().UTC()
	bars, err := src.DailyBars(ctx, symbol, end.AddDate(0, 0, -historyDays), end)
	if err != nil {
		return nil, err
	}
	snap.Bars = bars

	return snap, nil
}

func flattenChain(chain Chain) []ChainRow {
	rows := make([]ChainRow, 0, len(chain))
	for strike, entry := range chain {
		rows = append(rows, ChainRow{Strike: strike, Call: entry.Call, Put: entry.Put})
	}
	return rows
}

// WriteSnapshot writes a snapshot to path as zstd-compressed JSON, staging
// through a temp file so a partial write never replaces a good snapshot.
func WriteSnapshot(snap *Snapshot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("create zstd encoder: %w", err)
	}

	err = json.NewEncoder(enc).Encode(snap)
	if closeErr := enc.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// ReadSnapshot loads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	var snap Snapshot
	if err := json.NewDecoder(dec).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// FileProvider replays a recorded snapshot as a Provider, for offline runs
// and deterministic tests.
type FileProvider struct {
	snap *Snapshot
}

func NewFileProvider(path string) (*FileProvider, error) {
	snap, err := ReadSnapshot(path)
	if err != nil {
		return nil, err
	}
	return &FileProvider{snap: snap}, nil
}

func NewFileProviderFromSnapshot(snap *Snapshot) *FileProvider {
	return &FileProvider{snap: snap}
}

func (p *FileProvider) Name() string { return "file" }

func (p *FileProvider) checkSymbol(symbol string) error {
	if symbol != p.snap.Symbol {
		return fmt.Errorf("snapshot holds %s, not %s: %w", p.snap.Symbol, symbol, ErrNotFound)
	}
	return nil
}

func (p *FileProvider) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if err := p.checkSymbol(symbol); err != nil {
		return 0, err
	}
	return p.snap.Price, nil
}

func (p *FileProvider) OptionExpirations(ctx context.Context, symbol string) ([]string, error) {
	if err := p.checkSymbol(symbol); err != nil {
		return nil, err
	}
	return append([]string(nil), p.snap.Expirations...), nil
}

func (p *FileProvider) OptionChain(ctx context.Context, symbol, expiration string) (Chain, error) {
	if err := p.checkSymbol(symbol); err != nil {
		return nil, err
	}

	chain := make(Chain)
	for _, row := range p.snap.Chains[expiration] {
		chain[row.Strike] = ChainEntry{Call: row.Call, Put: row.Put}
	}
	return chain, nil
}

func (p *FileProvider) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]PriceBar, error) {
	if err := p.checkSymbol(symbol); err != nil {
		return nil, err
	}

	var bars []PriceBar
	for _, b := range p.snap.Bars {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		bars = append(bars, b)
	}
	return bars, nil
}
