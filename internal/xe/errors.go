package xe

import (
	"errors"

	"github.com/go-orz/orz"
)

// 决策引擎内部错误，按策略分类：
// 数据不足与 T+1 锁定按符号跳过，上游故障降级处理，买入达到上限终止本轮买入
var (
	ErrInsufficientData    = errors.New("insufficient data for indicator lookback")
	ErrUpstreamUnavailable = errors.New("upstream data source unavailable")
	ErrInvalidInput        = errors.New("invalid market data input")
	ErrT1Locked            = errors.New("position locked by T+1 rule")
	ErrCapReached          = errors.New("adjusted max stock count reached")
	ErrSentimentUnknown    = errors.New("sentiment reading unknown")
)

// API 层错误
var (
	ErrInvalidParams = orz.NewError(10400, "参数无效")
	ErrLoopNotReady  = orz.NewError(10001, "交易循环尚未就绪")
	ErrNoRegimeData  = orz.NewError(10002, "暂无市场状态数据")
)
