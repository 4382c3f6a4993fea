package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/httpclient"

	"github.com/wyfcoding/quantanalytics/internal/marketdata/domain"
)

// MarketClient 上游行情 API 客户端，实现 domain.MarketProvider
// 上游以字符串传递价格，这里统一转成 decimal 防止精度损失
type MarketClient struct {
	http    *httpclient.Client
	baseURL string
}

// NewMarketClient 创建行情客户端
func NewMarketClient(httpClient *httpclient.Client, baseURL string) *MarketClient {
	return &MarketClient{http: httpClient, baseURL: baseURL}
}

type quotePayload struct {
	Symbol    string `json:"symbol"`
	Last      string `json:"last"`
	Bid       string `json:"bid"`
	Ask       string `json:"ask"`
	Volume    string `json:"volume"`
	Timestamp string `json:"timestamp"`
}

type dailyPayload struct {
	Symbol string       `json:"symbol"`
	Bars   []barPayload `json:"bars"`
}

type barPayload struct {
	Date   string `json:"date"` // 2006-01-02
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

type chainPayload struct {
	Symbol      string            `json:"symbol"`
	Spot        float64           `json:"spot"`
	Expirations []string          `json:"expirations"`
	Contracts   []contractPayload `json:"contracts"`
}

type contractPayload struct {
	Strike       float64 `json:"strike"`
	Expiration   string  `json:"expiration"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	Last         float64 `json:"last"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"open_interest"`
	Type         string  `json:"type"`
}

// FetchSnapshot 拉取最新行情快照
func (c *MarketClient) FetchSnapshot(ctx context.Context, ticker string) (*domain.TickerSnapshot, error) {
	var payload quotePayload
	if err := c.get(ctx, ticker, "/v1/quote?symbol="+url.QueryEscape(ticker), &payload); err != nil {
		return nil, err
	}

	last, err := decimal.NewFromString(payload.Last)
	if err != nil {
		return nil, fmt.Errorf("parse last price %q for %s: %w", payload.Last, ticker, err)
	}
	snapshot := &domain.TickerSnapshot{
		Ticker:    ticker,
		LastPrice: last,
		UpdatedAt: time.Now(),
	}
	// 买卖价与成交量缺失时保持零值
	snapshot.Bid, _ = decimal.NewFromString(payload.Bid)
	snapshot.Ask, _ = decimal.NewFromString(payload.Ask)
	snapshot.Volume, _ = decimal.NewFromString(payload.Volume)
	if ts, err := time.Parse(time.RFC3339, payload.Timestamp); err == nil {
		snapshot.UpdatedAt = ts
	}
	return snapshot, nil
}

// FetchDailyBars 拉取最近 days 个交易日的日线，按日期升序
func (c *MarketClient) FetchDailyBars(ctx context.Context, ticker string, days int) ([]domain.PriceBar, error) {
	var payload dailyPayload
	path := fmt.Sprintf("/v1/daily?symbol=%s&days=%d", url.QueryEscape(ticker), days)
	if err := c.get(ctx, ticker, path, &payload); err != nil {
		return nil, err
	}
	if len(payload.Bars) == 0 {
		return nil, fmt.Errorf("%w: upstream returned no bars for %s", domain.ErrNoBars, ticker)
	}

	bars := make([]domain.PriceBar, 0, len(payload.Bars))
	for _, raw := range payload.Bars {
		bar, err := parseBar(ticker, raw)
		if err != nil {
			return nil, err
		}
		bars = append(bars, *bar)
	}
	return bars, nil
}

// FetchOptionChain 拉取期权链快照
func (c *MarketClient) FetchOptionChain(ctx context.Context, ticker string) (*domain.OptionChain, error) {
	var payload chainPayload
	if err := c.get(ctx, ticker, "/v1/options?symbol="+url.QueryEscape(ticker), &payload); err != nil {
		return nil, err
	}

	expirations := make([]time.Time, 0, len(payload.Expirations))
	for _, raw := range payload.Expirations {
		exp, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("invalid expiration %q for %s: %w", raw, ticker, err)
		}
		expirations = append(expirations, exp)
	}

	quotes := make([]domain.OptionQuote, 0, len(payload.Contracts))
	for _, raw := range payload.Contracts {
		exp, err := time.Parse("2006-01-02", raw.Expiration)
		if err != nil {
			return nil, fmt.Errorf("invalid expiration %q for %s: %w", raw.Expiration, ticker, err)
		}
		quotes = append(quotes, domain.OptionQuote{
			Strike:       raw.Strike,
			Expiration:   exp,
			Bid:          raw.Bid,
			Ask:          raw.Ask,
			LastPrice:    raw.Last,
			Volume:       raw.Volume,
			OpenInterest: raw.OpenInterest,
			OptionType:   raw.Type,
		})
	}

	return &domain.OptionChain{
		Ticker:      ticker,
		Spot:        payload.Spot,
		Expirations: expirations,
		Quotes:      quotes,
		FetchedAt:   time.Now(),
	}, nil
}

func (c *MarketClient) get(ctx context.Context, ticker, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrTickerNotFound, ticker)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upstream returned %d for %s: %s", resp.StatusCode, ticker, body)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func parseBar(ticker string, raw barPayload) (*domain.PriceBar, error) {
	barDate, err := time.Parse("2006-01-02", raw.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid bar date %q for %s: %w", raw.Date, ticker, err)
	}
	fields := [5]string{raw.Open, raw.High, raw.Low, raw.Close, raw.Volume}
	var parsed [5]decimal.Decimal
	for i, field := range fields {
		parsed[i], err = decimal.NewFromString(field)
		if err != nil {
			return nil, fmt.Errorf("invalid bar field %q for %s on %s: %w", field, ticker, raw.Date, err)
		}
	}
	return domain.NewPriceBar(ticker, barDate, parsed[0], parsed[1], parsed[2], parsed[3], parsed[4])
}
