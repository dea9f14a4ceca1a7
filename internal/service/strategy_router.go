package service

import (
	"sort"

	"go.uber.org/zap"
)

// 子策略名称
const (
	StrategyConservative = "conservative" // 紧止损
	StrategyLongMA       = "long-ma"      // 15/60 均线
	StrategyEnhanced     = "enhanced"     // 松止损
	StrategyShortMA      = "short-ma"     // 5/20 均线
	StrategyMidMA        = "mid-ma"       // 10/30 均线
	StrategyStandard     = "standard"
)

// StrategyRouter 持仓的子策略路由
// 按当日情绪指数把持仓确定性地划分给各子策略，同样输入必然得到同样划分
type StrategyRouter struct {
	logger *zap.Logger
}

// NewStrategyRouter 创建策略路由
func NewStrategyRouter(logger *zap.Logger) *StrategyRouter {
	return &StrategyRouter{logger: logger}
}

// Route 划分持仓
// 返回的 map 满足：所有持仓恰好出现一次，空组被剔除
func (r *StrategyRouter) Route(dailySentiment float64, held []string) map[string][]string {
	if len(held) == 0 {
		return map[string][]string{}
	}

	// 情绪指数越界按中性50处理
	if dailySentiment < 0 || dailySentiment > 100 {
		dailySentiment = 50
	}

	// 代码字典序排序保证划分可复现
	symbols := make([]string, len(held))
	copy(symbols, held)
	sort.Strings(symbols)

	var names []string
	switch {
	case dailySentiment < 20:
		names = []string{StrategyConservative, StrategyLongMA}
	case dailySentiment > 80:
		names = []string{StrategyEnhanced, StrategyShortMA}
	default:
		names = []string{StrategyShortMA, StrategyMidMA, StrategyStandard}
	}

	groups := splitEven(symbols, len(names))

	result := make(map[string][]string, len(names))
	for i, name := range names {
		if len(groups[i]) > 0 {
			result[name] = groups[i]
		}
	}

	if r.logger != nil {
		r.logger.Debug("strategy routing done",
			zap.Float64("daily_sentiment", dailySentiment),
			zap.Int("held_count", len(symbols)),
			zap.Int("group_count", len(result)))
	}
	return result
}

// splitEven 把有序列表切成 n 组，整除不了的余数落在最后一组
func splitEven(symbols []string, n int) [][]string {
	size := len(symbols) / n
	groups := make([][]string, n)

	offset := 0
	for i := 0; i < n; i++ {
		end := offset + size
		if i == n-1 {
			end = len(symbols)
		}
		groups[i] = symbols[offset:end]
		offset = end
	}
	return groups
}
