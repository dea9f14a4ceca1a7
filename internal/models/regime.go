package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RegimeRecord 市场状态判定记录
type RegimeRecord struct {
	ID                string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Label             string         `gorm:"type:varchar(10);not null;index" json:"label"` // bull/bear/neutral
	Score             float64        `gorm:"type:decimal(10,4)" json:"score"`              // 综合得分 [-1,1]
	Confidence        float64        `gorm:"type:decimal(10,4)" json:"confidence"`         // 置信度 [0,1]
	Threshold         float64        `gorm:"type:decimal(10,4)" json:"threshold"`          // 判定阈值
	Factors           datatypes.JSON `gorm:"type:json" json:"factors"`                     // 各因子得分明细
	TakeProfitPercent float64        `gorm:"type:decimal(10,4)" json:"take_profit_percent"`
	JudgedAt          time.Time      `gorm:"not null;index" json:"judged_at"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (*RegimeRecord) TableName() string {
	return "regime_records"
}
