package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Yahoo is the secondary provider, backed by the public Yahoo Finance query
// API (v7 option chains, v8 daily charts). It needs no credentials, which
// is what makes it a usable fallback when the primary feed is down or thin.
type Yahoo struct {
	http    *httpClient
	baseURL string
	logger  *zap.Logger
}

func NewYahoo(baseURL string, ratePerSec int, timeout, retryDelay time.Duration, retryCount int, logger *zap.Logger) *Yahoo {
	return &Yahoo{
		http:    newHTTPClient(ratePerSec, timeout, retryDelay, retryCount, logger),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

func (y *Yahoo) Name() string { return "yahoo" }

func (y *Yahoo) headers() map[string][]string {
	// Yahoo rejects requests without a browser-ish user agent.
	return map[string][]string{
		"User-Agent": {"Mozilla/5.0 (compatible; earnscan/1.0)"},
	}
}

type yahooOptionDTO struct {
	Strike            *float64 `json:"strike"`
	Bid               *float64 `json:"bid"`
	Ask               *float64 `json:"ask"`
	ImpliedVolatility *float64 `json:"impliedVolatility"`
}

type yahooOptionsResponse struct {
	OptionChain struct {
		Result []struct {
			ExpirationDates []int64 `json:"expirationDates"`
			Quote           struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"quote"`
			Options []struct {
				Calls []yahooOptionDTO `json:"calls"`
				Puts  []yahooOptionDTO `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"optionChain"`
}

func (y *Yahoo) fetchOptions(ctx context.Context, symbol string, date int64) (*yahooOptionsResponse, error) {
	u := fmt.Sprintf("%s/v7/finance/options/%s", y.baseURL, url.PathEscape(symbol))
	if date > 0 {
		u += fmt.Sprintf("?date=%d", date)
	}

	var resp yahooOptionsResponse
	if err := y.http.getJSON(ctx, u, y.headers(), &resp); err != nil {
		return nil, err
	}
	if resp.OptionChain.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, resp.OptionChain.Error.Description)
	}
	if len(resp.OptionChain.Result) == 0 {
		return nil, ErrNotFound
	}
	return &resp, nil
}

func (y *Yahoo) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	resp, err := y.fetchOptions(ctx, symbol, 0)
	if err != nil {
		return 0, fmt.Errorf("current price for %s: %w", symbol, err)
	}
	price := resp.OptionChain.Result[0].Quote.RegularMarketPrice
	if price <= 0 {
		return 0, fmt.Errorf("current price for %s: %w", symbol, ErrNotFound)
	}
	return price, nil
}

func (y *Yahoo) OptionExpirations(ctx context.Context, symbol string) ([]string, error) {
	resp, err := y.fetchOptions(ctx, symbol, 0)
	if err != nil {
		return nil, fmt.Errorf("expirations for %s: %w", symbol, err)
	}

	stamps := resp.OptionChain.Result[0].ExpirationDates
	expirations := make([]string, 0, len(stamps))
	for _, ts := range stamps {
		expirations = append(expirations, time.Unix(ts, 0).UTC().Format(DateLayout))
	}
	sort.Strings(expirations)
	return expirations, nil
}

func (y *Yahoo) OptionChain(ctx context.Context, symbol, expiration string) (Chain, error) {
	expDate, err := time.ParseInLocation(DateLayout, expiration, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("bad expiration %q: %w", expiration, err)
	}

	resp, err := y.fetchOptions(ctx, symbol, expDate.Unix())
	if err != nil {
		return nil, fmt.Errorf("option chain for %s %s: %w", symbol, expiration, err)
	}

	result := resp.OptionChain.Result[0]
	if len(result.Options) == 0 {
		return Chain{}, nil
	}

	chain := make(Chain)
	for _, dto := range result.Options[0].Calls {
		addYahooContract(chain, dto, true)
	}
	for _, dto := range result.Options[0].Puts {
		addYahooContract(chain, dto, false)
	}
	return chain, nil
}

func addYahooContract(chain Chain, dto yahooOptionDTO, call bool) {
	if dto.Strike == nil {
		return
	}

	quote := &OptionQuote{}
	if dto.Bid != nil && dto.Ask != nil {
		quote.Bid = *dto.Bid
		quote.Ask = *dto.Ask
		quote.HasQuote = true
	}
	if dto.ImpliedVolatility != nil {
		quote.IV = *dto.ImpliedVolatility
	}

	entry := chain[*dto.Strike]
	if call {
		entry.Call = quote
	} else {
		entry.Put = quote
	}
	chain[*dto.Strike] = entry
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]PriceBar, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d",
		y.baseURL, url.PathEscape(symbol), start.Unix(), end.Unix())

	var resp yahooChartResponse
	if err := y.http.getJSON(ctx, u, y.headers(), &resp); err != nil {
		return nil, fmt.Errorf("daily bars for %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("daily bars for %s: %w: %s", symbol, ErrProviderUnavailable, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("daily bars for %s: %w", symbol, ErrNotFound)
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Yahoo pads halted or unsettled sessions with nulls; those rows
		// are gaps, not bars.
		if i >= len(quote.Open) || quote.Open[i] == nil || quote.High[i] == nil ||
			quote.Low[i] == nil || quote.Close[i] == nil || quote.Volume[i] == nil {
			continue
		}
		bars = append(bars, PriceBar{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   *quote.Open[i],
			High:   *quote.High[i],
			Low:    *quote.Low[i],
			Close:  *quote.Close[i],
			Volume: *quote.Volume[i],
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
