package models

import (
	"time"

	"gorm.io/gorm"
)

// DailyBar 日线K线本地缓存
type DailyBar struct {
	ID        string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Symbol    string         `gorm:"type:varchar(20);not null;uniqueIndex:idx_symbol_date" json:"symbol"`
	TradeDate string         `gorm:"type:varchar(8);not null;uniqueIndex:idx_symbol_date" json:"trade_date"` // YYYYMMDD
	Open      float64        `gorm:"type:decimal(20,4)" json:"open"`
	High      float64        `gorm:"type:decimal(20,4)" json:"high"`
	Low       float64        `gorm:"type:decimal(20,4)" json:"low"`
	Close     float64        `gorm:"type:decimal(20,4)" json:"close"`
	Volume    float64        `gorm:"type:decimal(20,2)" json:"volume"`
	Amount    float64        `gorm:"type:decimal(20,2)" json:"amount"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (*DailyBar) TableName() string {
	return "daily_bars"
}
