package domain

import (
	"context"
	"time"
)

// MarketQuote 期权链中的单条市场报价
// 由外部行情提供方所有；曲面构建过程只持有过滤后的副本，从不修改源数据
type MarketQuote struct {
	Strike       float64    `json:"strike"`
	Expiration   time.Time  `json:"expiration"`
	Bid          float64    `json:"bid"`
	Ask          float64    `json:"ask"`
	LastPrice    float64    `json:"last_price"`
	Volume       int64      `json:"volume"`
	OpenInterest int64      `json:"open_interest"`
	Type         OptionType `json:"option_type"`
}

// OptionChain 某一标的的完整期权链快照
type OptionChain struct {
	Ticker      string        `json:"ticker"`
	Spot        float64       `json:"spot"`
	Expirations []time.Time   `json:"expirations"`
	Quotes      []MarketQuote `json:"quotes"`
	FetchedAt   time.Time     `json:"fetched_at"`
}

// ChainProvider 期权链行情提供方接口
// 同步调用，超时由调用方通过 ctx 控制；提供方错误由曲面构建方
// 映射为 ErrNoOptionsData
type ChainProvider interface {
	FetchChain(ctx context.Context, ticker string) (*OptionChain, error)
}
