package application

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/quantanalytics/internal/marketdata/domain"
)

// BarDTO 日线视图
type BarDTO struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// HistoryDTO 历史日线视图
type HistoryDTO struct {
	Ticker string   `json:"ticker"`
	Bars   []BarDTO `json:"bars"`
}

// IngestResultDTO 摄取结果
type IngestResultDTO struct {
	Ticker string    `json:"ticker"`
	Bars   int       `json:"bars"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	RunAt  time.Time `json:"run_at"`
}

// ChainQuoteDTO 期权链合约视图，与衍生品服务消费的线格式对齐
type ChainQuoteDTO struct {
	Strike       float64 `json:"strike"`
	Expiration   string  `json:"expiration"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	LastPrice    float64 `json:"last_price"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"open_interest"`
	OptionType   string  `json:"option_type"`
}

// ChainDTO 期权链视图
type ChainDTO struct {
	Ticker      string          `json:"ticker"`
	Spot        float64         `json:"spot"`
	Expirations []string        `json:"expirations"`
	Quotes      []ChainQuoteDTO `json:"quotes"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

const barDateLayout = "2006-01-02"

func toHistoryDTO(ticker string, bars []domain.PriceBar) *HistoryDTO {
	dto := &HistoryDTO{Ticker: ticker, Bars: make([]BarDTO, len(bars))}
	for i, bar := range bars {
		dto.Bars[i] = BarDTO{
			Date:   bar.BarDate.Format(barDateLayout),
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		}
	}
	return dto
}

func toChainDTO(chain *domain.OptionChain) *ChainDTO {
	dto := &ChainDTO{
		Ticker:      chain.Ticker,
		Spot:        chain.Spot,
		Expirations: make([]string, len(chain.Expirations)),
		Quotes:      make([]ChainQuoteDTO, len(chain.Quotes)),
		FetchedAt:   chain.FetchedAt,
	}
	for i, exp := range chain.Expirations {
		dto.Expirations[i] = exp.Format(barDateLayout)
	}
	for i, q := range chain.Quotes {
		dto.Quotes[i] = ChainQuoteDTO{
			Strike:       q.Strike,
			Expiration:   q.Expiration.Format(barDateLayout),
			Bid:          q.Bid,
			Ask:          q.Ask,
			LastPrice:    q.LastPrice,
			Volume:       q.Volume,
			OpenInterest: q.OpenInterest,
			OptionType:   q.OptionType,
		}
	}
	return dto
}
