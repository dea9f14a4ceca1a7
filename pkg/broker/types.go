package broker

import "strings"

// 通用券商交易类型定义，独立于任何特定柜台
// 这样可以方便地支持多个通道（QMT、恒生、模拟盘等）

// OrderSide 订单方向
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "new"
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusFailed    OrderStatus = "failed"
)

// IsTerminal 是否为终态
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusFailed:
		return true
	}
	return false
}

func (s OrderSide) String() string {
	return string(s)
}

func (s OrderStatus) String() string {
	return string(s)
}

// Position 持仓信息（券商侧数据的只读视图）
type Position struct {
	Symbol          string  `json:"symbol"`           // 证券代码，如 002083.SZ
	TotalVolume     int     `json:"total_volume"`     // 总持仓（股）
	AvailableVolume int     `json:"available_volume"` // 可卖数量，T+1 锁定时小于总持仓
	AvgCost         float64 `json:"avg_cost"`         // 成本价
	CurrentPrice    float64 `json:"current_price"`    // 最新价
}

// MarketValue 持仓市值
func (p Position) MarketValue() float64 {
	return float64(p.TotalVolume) * p.CurrentPrice
}

// PnlPercent 盈亏百分比
func (p Position) PnlPercent() float64 {
	if p.AvgCost <= 0 {
		return 0
	}
	return (p.CurrentPrice - p.AvgCost) / p.AvgCost * 100
}

// AccountSnapshot 账户快照，每个周期刷新一次
type AccountSnapshot struct {
	Cash       float64    `json:"cash"`
	TotalAsset float64    `json:"total_asset"`
	Positions  []Position `json:"positions"`
}

// OrderUpdate 订单状态回报
type OrderUpdate struct {
	OrderID        string      `json:"order_id"`
	StockCode      string      `json:"stock_code"`
	Status         OrderStatus `json:"order_status"`
	FilledQuantity int         `json:"filled_quantity"`
	AvgFillPrice   float64     `json:"avg_fill_price"`
	ErrorMsg       string      `json:"error_msg"`
}

// OrderError 委托错误回报，StockCode 可能缺失，此时代码嵌在 ErrorMsg 中（如 [SZ002083]）
type OrderError struct {
	OrderID   string `json:"order_id"`
	ErrorID   string `json:"error_id"`
	ErrorMsg  string `json:"error_msg"`
	StockCode string `json:"stock_code,omitempty"`
}

// LotSize 返回证券的最小交易单位：科创板 200 股，其余 100 股
func LotSize(symbol string) int {
	if strings.HasPrefix(symbol, "688") {
		return 200
	}
	return 100
}
