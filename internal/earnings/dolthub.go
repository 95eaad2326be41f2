package earnings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Announcement is one earnings-calendar row: a ticker and the vendor's
// timing hint ("Before market open", "After market close", ...).
type Announcement struct {
	Symbol string `json:"act_symbol"`
	Timing string `json:"when"`
}

// Client reads the public DoltHub earnings_calendar database over its SQL
// query API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		logger:     logger,
	}
}

type queryResponse struct {
	Rows []Announcement `json:"rows"`
}

// OnDate returns every announcement scheduled for the given YYYY-MM-DD date.
func (c *Client) OnDate(ctx context.Context, date string) ([]Announcement, error) {
	query := fmt.Sprintf("SELECT * FROM `earnings_calendar` WHERE date = '%s' ORDER BY `act_symbol` ASC, `date` ASC LIMIT 1000", date)
	u := fmt.Sprintf("%s?q=%s", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying earnings calendar: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("earnings calendar status %d: %s", resp.StatusCode, string(body))
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding earnings calendar: %w", err)
	}

	announcements := make([]Announcement, 0, len(decoded.Rows))
	for _, row := range decoded.Rows {
		if row.Symbol == "" {
			continue
		}
		announcements = append(announcements, row)
	}

	c.logger.Debug("fetched earnings calendar",
		zap.String("date", date),
		zap.Int("count", len(announcements)))
	return announcements, nil
}

// AfterClose filters announcements whose timing hint places them after the
// market close.
func AfterClose(announcements []Announcement) []string {
	return filterTiming(announcements, "after")
}

// BeforeOpen filters announcements whose timing hint places them before the
// market open.
func BeforeOpen(announcements []Announcement) []string {
	return filterTiming(announcements, "before")
}

func filterTiming(announcements []Announcement, hint string) []string {
	var symbols []string
	for _, a := range announcements {
		if a.Timing == "" {
			continue
		}
		if strings.Contains(strings.ToLower(a.Timing), hint) {
			symbols = append(symbols, a.Symbol)
		}
	}
	return symbols
}
