package service

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"atrader/internal/config"
	"atrader/internal/xe"
	"atrader/pkg/broker"
)

// DecisionService 买卖决策规则
// 组合指标信号、盈亏、市场状态与情绪闸门，输出确定性的交易意图
type DecisionService struct {
	logger *zap.Logger

	conf  config.TradingConf
	sizer *PositionSizer
}

// NewDecisionService 创建决策服务
func NewDecisionService(conf *config.Config, sizer *PositionSizer, logger *zap.Logger) *DecisionService {
	return &DecisionService{
		logger: logger,
		conf:   conf.Trading,
		sizer:  sizer,
	}
}

// SellDecision 卖出决策结果
type SellDecision struct {
	Sell       bool     `json:"sell"`
	Quantity   int      `json:"quantity"` // 卖出数量，不超过可卖仓位
	LimitPrice float64  `json:"limit_price"`
	Reasons    []string `json:"reasons"`
}

// BuyDecision 买入决策结果
type BuyDecision struct {
	Buy      bool   `json:"buy"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// EvaluateSell 评估单个持仓的卖出信号
// T+1 锁定返回 ErrT1Locked，由调用方静默跳过
func (s *DecisionService) EvaluateSell(
	pos broker.Position,
	price float64,
	ind *IndicatorSnapshot,
	verdict *RegimeVerdict,
	sentiment *SentimentReading,
) (*SellDecision, error) {
	if price <= 0 || pos.AvgCost <= 0 {
		return nil, fmt.Errorf("%w: price=%.4f avg_cost=%.4f", xe.ErrInvalidInput, price, pos.AvgCost)
	}
	if pos.AvailableVolume <= 0 {
		return nil, xe.ErrT1Locked
	}

	pnlPct := (price - pos.AvgCost) / pos.AvgCost * 100
	tpThreshold := verdict.TakeProfitPercent

	var reasons []string

	stopLoss := pnlPct < s.conf.StopLossPercent
	if stopLoss {
		reasons = append(reasons, fmt.Sprintf("stop-loss: pnl %.2f%% below %.1f%%", pnlPct, s.conf.StopLossPercent))
	}

	daily := sentiment.EffectiveDaily()

	// 恐慌闸门：极端恐慌且未深亏时只保留真实止损，压制止盈和技术性离场
	panicGate := daily < 20 && pnlPct >= -3
	if !panicGate {
		if pnlPct > tpThreshold {
			reasons = append(reasons, fmt.Sprintf("take-profit: pnl %.2f%% above %.1f%% (%s)", pnlPct, tpThreshold, verdict.Label))
		}
		if ind.MA5 <= ind.MA20 && ind.PrevMA5 > ind.PrevMA20 {
			reasons = append(reasons, "ma death cross: MA5 crossed below MA20")
		}
		if price < ind.MA20*0.98 {
			reasons = append(reasons, fmt.Sprintf("price %.2f below MA20 %.2f by more than 2%%", price, ind.MA20))
		}
		if ind.RSI14 > 70 {
			reasons = append(reasons, fmt.Sprintf("rsi overbought: %.1f", ind.RSI14))
		}
		if ind.MACD <= ind.MACDSignal && ind.PrevMACD > ind.PrevSignal {
			reasons = append(reasons, "macd death cross")
		}
		if ind.MACDHist < 0 {
			reasons = append(reasons, "macd histogram negative")
		}
		if daily > 80 && pnlPct > 5 {
			reasons = append(reasons, fmt.Sprintf("greed take-profit: sentiment %.0f with pnl %.2f%%", daily, pnlPct))
		}
	}

	if len(reasons) == 0 {
		return &SellDecision{Sell: false}, nil
	}

	return &SellDecision{
		Sell:       true,
		Quantity:   pos.AvailableVolume,
		LimitPrice: price,
		Reasons:    reasons,
	}, nil
}

// EvaluateBuy 评估候选股的买入决策
// 情绪闸门决定仓位档次，min_qty 来自仓位计算器
func (s *DecisionService) EvaluateBuy(
	symbol string,
	price float64,
	cash float64,
	ind *IndicatorSnapshot,
	sentiment *SentimentReading,
) *BuyDecision {
	if price <= 0 {
		return &BuyDecision{Buy: false, Reason: "invalid price"}
	}

	minQty := s.sizer.Shares(symbol, price, cash)
	daily := sentiment.EffectiveDaily()
	long := sentiment.EffectiveLong()

	switch {
	case daily < 10:
		return &BuyDecision{Buy: true, Quantity: minQty, Reason: fmt.Sprintf("extreme panic: sentiment %.0f", daily)}
	case daily < 20:
		return &BuyDecision{Buy: true, Quantity: minQty, Reason: fmt.Sprintf("panic: sentiment %.0f", daily)}
	case daily > 90 || long > 90:
		return &BuyDecision{Buy: false, Reason: fmt.Sprintf("extreme greed: daily %.0f long %.0f", daily, long)}
	case daily > 80 || long > 80:
		return &BuyDecision{Buy: true, Quantity: minQty, Reason: fmt.Sprintf("greed: daily %.0f long %.0f", daily, long)}
	case daily < 30 && long < 40:
		return &BuyDecision{Buy: true, Quantity: 2 * minQty, Reason: fmt.Sprintf("opportunity: daily %.0f long %.0f", daily, long)}
	case ind != nil && ind.MA5 > ind.MA20:
		return &BuyDecision{Buy: true, Quantity: minQty, Reason: "technical: MA5 above MA20"}
	}

	return &BuyDecision{Buy: false, Reason: "no buy signal"}
}

// AdjustedMaxStocks 按情绪调整的最大持股数量
func (s *DecisionService) AdjustedMaxStocks(sentiment *SentimentReading) int {
	base := s.conf.MaxStocks
	daily := sentiment.EffectiveDaily()

	switch {
	case daily < 20:
		return int(math.Floor(0.7 * float64(base)))
	case daily > 80:
		return int(math.Floor(0.8 * float64(base)))
	}
	return base
}
