package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Alpaca is the primary market data provider, backed by the Alpaca data API
// (stock bars on v2, option contracts and snapshots on v1beta1).
type Alpaca struct {
	http    *httpClient
	baseURL string
	keyID   string
	secret  string
	feed    string
	logger  *zap.Logger
}

func NewAlpaca(baseURL, keyID, secret, feed string, ratePerSec int, timeout, retryDelay time.Duration, retryCount int, logger *zap.Logger) *Alpaca {
	return &Alpaca{
		http:    newHTTPClient(ratePerSec, timeout, retryDelay, retryCount, logger),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		keyID:   keyID,
		secret:  secret,
		feed:    feed,
		logger:  logger,
	}
}

func (a *Alpaca) Name() string { return "alpaca" }

func (a *Alpaca) headers() map[string][]string {
	return map[string][]string{
		"APCA-API-KEY-ID":     {a.keyID},
		"APCA-API-SECRET-KEY": {a.secret},
	}
}

type alpacaBar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    int64     `json:"v"`
}

func (a *Alpaca) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	u := fmt.Sprintf("%s/v2/stocks/%s/bars/latest?feed=%s", a.baseURL, url.PathEscape(symbol), a.feed)

	var resp struct {
		Bar *alpacaBar `json:"bar"`
	}
	if err := a.http.getJSON(ctx, u, a.headers(), &resp); err != nil {
		return 0, fmt.Errorf("latest bar for %s: %w", symbol, err)
	}
	if resp.Bar == nil {
		return 0, fmt.Errorf("latest bar for %s: %w", symbol, ErrNotFound)
	}
	return resp.Bar.Close, nil
}

type alpacaContract struct {
	Symbol         string  `json:"symbol"`
	ExpirationDate string  `json:"expiration_date"`
	StrikePrice    float64 `json:"strike_price"`
	Type           string  `json:"type"`
}

func (a *Alpaca) OptionExpirations(ctx context.Context, symbol string) ([]string, error) {
	seen := make(map[string]bool)
	pageToken := ""

	for {
		u := fmt.Sprintf("%s/v1beta1/options/contracts?underlying_symbols=%s&limit=10000", a.baseURL, url.QueryEscape(symbol))
		if pageToken != "" {
			u += "&page_token=" + url.QueryEscape(pageToken)
		}

		var resp struct {
			OptionContracts []alpacaContract `json:"option_contracts"`
			NextPageToken   string           `json:"next_page_token"`
		}
		if err := a.http.getJSON(ctx, u, a.headers(), &resp); err != nil {
			return nil, fmt.Errorf("option contracts for %s: %w", symbol, err)
		}

		for _, c := range resp.OptionContracts {
			seen[c.ExpirationDate] = true
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	expirations := make([]string, 0, len(seen))
	for exp := range seen {
		expirations = append(expirations, exp)
	}
	sort.Strings(expirations)

	a.logger.Debug("fetched expirations",
		zap.String("symbol", symbol),
		zap.Int("count", len(expirations)))
	return expirations, nil
}

type alpacaSnapshot struct {
	LatestQuote *struct {
		BidPrice float64 `json:"bp"`
		AskPrice float64 `json:"ap"`
	} `json:"latestQuote"`
	ImpliedVolatility float64 `json:"impliedVolatility"`
}

func (a *Alpaca) OptionChain(ctx context.Context, symbol, expiration string) (Chain, error) {
	chain := make(Chain)
	pageToken := ""

	for {
		u := fmt.Sprintf("%s/v1beta1/options/snapshots/%s?feed=indicative&expiration_date=%s&limit=1000",
			a.baseURL, url.PathEscape(symbol), url.QueryEscape(expiration))
		if pageToken != "" {
			u += "&page_token=" + url.QueryEscape(pageToken)
		}

		var resp struct {
			Snapshots     map[string]alpacaSnapshot `json:"snapshots"`
			NextPageToken string                    `json:"next_page_token"`
		}
		if err := a.http.getJSON(ctx, u, a.headers(), &resp); err != nil {
			return nil, fmt.Errorf("option snapshots for %s %s: %w", symbol, expiration, err)
		}

		for occ, snap := range resp.Snapshots {
			right, strike, ok := parseOCC(occ, symbol)
			if !ok {
				a.logger.Debug("skipping unparseable option symbol", zap.String("symbol", occ))
				continue
			}

			quote := &OptionQuote{IV: snap.ImpliedVolatility}
			if snap.LatestQuote != nil {
				quote.Bid = snap.LatestQuote.BidPrice
				quote.Ask = snap.LatestQuote.AskPrice
				quote.HasQuote = true
			}

			entry := chain[strike]
			if right == 'C' {
				entry.Call = quote
			} else {
				entry.Put = quote
			}
			chain[strike] = entry
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return chain, nil
}

func (a *Alpaca) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]PriceBar, error) {
	var bars []PriceBar
	pageToken := ""

	for {
		u := fmt.Sprintf("%s/v2/stocks/%s/bars?timeframe=1Day&start=%s&end=%s&feed=%s&limit=10000",
			a.baseURL, url.PathEscape(symbol),
			url.QueryEscape(start.UTC().Format(time.RFC3339)),
			url.QueryEscape(end.UTC().Format(time.RFC3339)),
			a.feed)
		if pageToken != "" {
			u += "&page_token=" + url.QueryEscape(pageToken)
		}

		var resp struct {
			Bars          []alpacaBar `json:"bars"`
			NextPageToken string      `json:"next_page_token"`
		}
		if err := a.http.getJSON(ctx, u, a.headers(), &resp); err != nil {
			return nil, fmt.Errorf("daily bars for %s: %w", symbol, err)
		}

		for _, b := range resp.Bars {
			bars = append(bars, PriceBar{
				Date:   b.Timestamp,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			})
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// parseOCC extracts the right (C/P) and strike from an OCC option symbol:
// <root><YYMMDD><C|P><strike*1000 padded to 8 digits>.
func parseOCC(occ, underlying string) (byte, float64, bool) {
	body := strings.TrimPrefix(occ, underlying)
	if len(body) != 15 {
		return 0, 0, false
	}

	right := body[6]
	if right != 'C' && right != 'P' {
		return 0, 0, false
	}

	raw, err := strconv.ParseInt(body[7:], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return right, float64(raw) / 1000, true
}
