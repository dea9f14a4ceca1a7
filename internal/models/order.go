package models

import (
	"time"

	"gorm.io/gorm"

	"atrader/pkg/broker"
)

// OrderRecord 委托审计记录
type OrderRecord struct {
	ID             string             `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Symbol         string             `gorm:"type:varchar(20);not null;index" json:"symbol"`            // 证券代码
	Side           broker.OrderSide   `gorm:"type:varchar(10);not null" json:"side"`                    // buy/sell
	Quantity       int                `gorm:"not null" json:"quantity"`                                 // 委托数量（股）
	LimitPrice     float64            `gorm:"type:decimal(20,4);not null" json:"limit_price"`           // 委托价格
	Status         broker.OrderStatus `gorm:"type:varchar(20);not null;default:'new'" json:"status"`    // 订单状态
	BrokerOrderID  string             `gorm:"type:varchar(50);index" json:"broker_order_id"`            // 柜台委托号
	Tag            string             `gorm:"type:varchar(50)" json:"tag"`                              // 策略标签
	Reason         string             `gorm:"type:text" json:"reason"`                                  // 触发原因
	FilledQuantity int                `json:"filled_quantity"`                                          // 成交数量
	AvgFillPrice   float64            `gorm:"type:decimal(20,4)" json:"avg_fill_price"`                 // 成交均价
	ErrorMsg       string             `gorm:"type:text" json:"error_msg"`                               // 柜台错误信息
	SubmittedAt    time.Time          `gorm:"not null;index" json:"submitted_at"`                       // 提交时间
	CreatedAt      time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt     `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (*OrderRecord) TableName() string {
	return "orders"
}

// IsLive 委托是否仍在柜台挂着
func (o *OrderRecord) IsLive() bool {
	return !o.Status.IsTerminal()
}
