package mysql

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/quantanalytics/internal/derivatives/domain"
)

// SurfaceSnapshotModel MySQL 波动率曲面快照表映射
// 散点与元数据整体以 JSON 存储，摘要字段冗余成列便于按标的检索
type SurfaceSnapshotModel struct {
	ID                  uint            `gorm:"primaryKey;autoIncrement"`
	CreatedAt           time.Time       `gorm:"column:created_at"`
	UpdatedAt           time.Time       `gorm:"column:updated_at"`
	Ticker              string          `gorm:"column:ticker;type:varchar(16);index;not null;comment:标的"`
	OptionType          string          `gorm:"column:option_type;type:varchar(8);not null"`
	Spot                decimal.Decimal `gorm:"column:spot;type:decimal(32,18);not null"`
	RiskFreeRate        float64         `gorm:"column:risk_free_rate;not null"`
	DataPoints          int             `gorm:"column:data_points;not null"`
	UsingHistoricalData bool            `gorm:"column:using_historical_data;not null"`
	AvgIV               float64         `gorm:"column:avg_iv;not null"`
	PointsJSON          string          `gorm:"column:points;type:json;not null"`
	MetadataJSON        string          `gorm:"column:metadata;type:json;not null"`
	BuiltAt             time.Time       `gorm:"column:built_at;index;not null"`
}

func (SurfaceSnapshotModel) TableName() string { return "surface_snapshots" }

func (m *SurfaceSnapshotModel) FromDomain(s *domain.Surface) error {
	points, err := json.Marshal(s.Points)
	if err != nil {
		return err
	}
	metadata, err := json.Marshal(s.Metadata)
	if err != nil {
		return err
	}

	m.Ticker = s.Ticker
	m.OptionType = string(s.OptionType)
	m.Spot = decimal.NewFromFloat(s.Spot)
	m.RiskFreeRate = s.RiskFreeRate
	m.DataPoints = s.DataPoints
	m.UsingHistoricalData = s.UsingHistoricalData
	m.AvgIV = s.Metadata.AvgIV
	m.PointsJSON = string(points)
	m.MetadataJSON = string(metadata)
	m.BuiltAt = s.BuiltAt
	return nil
}

func (m *SurfaceSnapshotModel) ToSummary() domain.SurfaceSnapshotSummary {
	return domain.SurfaceSnapshotSummary{
		Ticker:              m.Ticker,
		OptionType:          domain.OptionType(m.OptionType),
		Spot:                m.Spot.InexactFloat64(),
		DataPoints:          m.DataPoints,
		UsingHistoricalData: m.UsingHistoricalData,
		AvgIV:               m.AvgIV,
		BuiltAt:             m.BuiltAt,
	}
}
