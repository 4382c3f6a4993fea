package domain

import "time"

// OptionQuote 单份期权合约的行情
// 报价字段保持 float64：期权链只作透传与数值计算，不入账
type OptionQuote struct {
	Strike       float64   `json:"strike"`
	Expiration   time.Time `json:"expiration"`
	Bid          float64   `json:"bid"`
	Ask          float64   `json:"ask"`
	LastPrice    float64   `json:"last_price"`
	Volume       int64     `json:"volume"`
	OpenInterest int64     `json:"open_interest"`
	OptionType   string    `json:"option_type"` // CALL / PUT
}

// OptionChain 单一标的的期权链快照
type OptionChain struct {
	Ticker      string        `json:"ticker"`
	Spot        float64       `json:"spot"`
	Expirations []time.Time   `json:"expirations"`
	Quotes      []OptionQuote `json:"quotes"`
	FetchedAt   time.Time     `json:"fetched_at"`
}
