package service

import (
	"atrader/internal/config"
	"atrader/pkg/broker"
)

// PositionSizer 买入数量计算
// 根据账户资金、单股仓位上下限与手数规则得出合法的买入股数
type PositionSizer struct {
	maxPositionRatio float64
	minPositionValue float64
	maxPositionValue float64
	commissionRate   float64
}

// NewPositionSizer 创建仓位计算器
func NewPositionSizer(conf *config.Config) *PositionSizer {
	return &PositionSizer{
		maxPositionRatio: conf.Trading.MaxPositionRatio,
		minPositionValue: conf.Trading.MinPositionValue,
		maxPositionValue: conf.Trading.MaxPositionValue,
		commissionRate:   conf.Trading.CommissionRate,
	}
}

// Shares 计算买入股数
// 任何输入缺失都退回一手；结果必然是手数的整数倍且含佣金成本不超过可用资金
func (s *PositionSizer) Shares(symbol string, price, cash float64) int {
	lot := broker.LotSize(symbol)

	if price <= 0 || cash <= 0 {
		return lot
	}

	targetValue := cash * s.maxPositionRatio
	if targetValue > s.maxPositionValue {
		targetValue = s.maxPositionValue
	}

	if targetValue < s.minPositionValue {
		if cash >= s.minPositionValue {
			targetValue = s.minPositionValue
		} else {
			return lot
		}
	}

	unitCost := price * (1 + s.commissionRate)

	rawShares := int(targetValue / unitCost)
	shares := rawShares / lot * lot

	// 含佣金成本超出资金时，按全部资金重算一次
	if float64(shares)*unitCost > cash {
		rawShares = int(cash / unitCost)
		shares = rawShares / lot * lot
	}

	if shares < lot {
		shares = lot
	}
	return shares
}
