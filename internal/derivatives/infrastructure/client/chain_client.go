package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wyfcoding/pkg/httpclient"
	"github.com/wyfcoding/quantanalytics/internal/derivatives/domain"
)

// ChainClient 从行情网关拉取期权链快照，实现 domain.ChainProvider
// 网关错误与空链统一映射为 ErrNoOptionsData，调用方无需区分来源
type ChainClient struct {
	http    *httpclient.Client
	baseURL string
}

// NewChainClient 创建期权链客户端
func NewChainClient(httpClient *httpclient.Client, baseURL string) *ChainClient {
	return &ChainClient{http: httpClient, baseURL: baseURL}
}

// 网关统一响应信封
type chainEnvelope struct {
	Code int           `json:"code"`
	Msg  string        `json:"msg"`
	Data chainResponse `json:"data"`
}

// 网关返回的期权链载荷
type chainResponse struct {
	Ticker      string       `json:"ticker"`
	Spot        float64      `json:"spot"`
	Expirations []string     `json:"expirations"`
	Quotes      []chainQuote `json:"quotes"`
}

type chainQuote struct {
	Strike       float64 `json:"strike"`
	Expiration   string  `json:"expiration"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	LastPrice    float64 `json:"last_price"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"open_interest"`
	OptionType   string  `json:"option_type"`
}

// FetchChain 拉取单一标的的完整期权链
func (c *ChainClient) FetchChain(ctx context.Context, ticker string) (*domain.OptionChain, error) {
	endpoint := fmt.Sprintf("%s/api/v1/options/chain?ticker=%s", c.baseURL, url.QueryEscape(ticker))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch option chain for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: ticker %s not found at gateway", domain.ErrNoOptionsData, ticker)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("option chain gateway returned %d for %s: %s", resp.StatusCode, ticker, body)
	}

	var envelope chainEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode option chain for %s: %w", ticker, err)
	}
	if envelope.Code != 0 {
		return nil, fmt.Errorf("option chain gateway error for %s: %s", ticker, envelope.Msg)
	}
	payload := envelope.Data
	if len(payload.Quotes) == 0 {
		return nil, fmt.Errorf("%w: ticker %s has no listed options", domain.ErrNoOptionsData, ticker)
	}

	return toDomainChain(ticker, payload)
}

func toDomainChain(ticker string, payload chainResponse) (*domain.OptionChain, error) {
	expirations := make([]time.Time, 0, len(payload.Expirations))
	for _, raw := range payload.Expirations {
		exp, err := parseExpiration(raw)
		if err != nil {
			return nil, err
		}
		expirations = append(expirations, exp)
	}

	quotes := make([]domain.MarketQuote, 0, len(payload.Quotes))
	for _, q := range payload.Quotes {
		exp, err := parseExpiration(q.Expiration)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, domain.MarketQuote{
			Strike:       q.Strike,
			Expiration:   exp,
			Bid:          q.Bid,
			Ask:          q.Ask,
			LastPrice:    q.LastPrice,
			Volume:       q.Volume,
			OpenInterest: q.OpenInterest,
			Type:         domain.OptionType(q.OptionType),
		})
	}

	name := payload.Ticker
	if name == "" {
		name = ticker
	}
	return &domain.OptionChain{
		Ticker:      name,
		Spot:        payload.Spot,
		Expirations: expirations,
		Quotes:      quotes,
		FetchedAt:   time.Now(),
	}, nil
}

// parseExpiration 到期日兼容日期与完整时间戳两种格式
func parseExpiration(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiration %q: %w", raw, err)
	}
	return t, nil
}
