package models

import (
	"time"

	"gorm.io/gorm"
)

// SentimentSnapshot 每个交易日的情绪指数快照
type SentimentSnapshot struct {
	ID            string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	TradeDate     string         `gorm:"type:varchar(8);not null;uniqueIndex" json:"trade_date"` // YYYYMMDD
	DailyIndex    float64        `gorm:"type:decimal(10,4)" json:"daily_index"`                  // 当日恐贪指数 [0,100]
	LongIndex     float64        `gorm:"type:decimal(10,4)" json:"long_index"`                   // 20日恐贪指数 [0,100]
	UpRatio       float64        `gorm:"type:decimal(10,4)" json:"up_ratio"`                     // 上涨家数占比
	LimitRatio    float64        `gorm:"type:decimal(10,4)" json:"limit_ratio"`                  // 涨跌停净比
	TurnoverScore float64        `gorm:"type:decimal(10,4)" json:"turnover_score"`               // 成交额分量
	Known         bool           `gorm:"not null;default:true" json:"known"`                     // 数据完全缺失时为 false
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (*SentimentSnapshot) TableName() string {
	return "sentiment_snapshots"
}
