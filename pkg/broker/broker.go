package broker

import "context"

// Broker 券商通道接口
// 下单为 fire-and-forget：SubmitOrder 返回柜台委托号，成交与错误通过回调异步到达
type Broker interface {
	// QueryAccount 查询账户资金快照
	QueryAccount(ctx context.Context) (*AccountSnapshot, error)

	// QueryPositions 查询持仓
	QueryPositions(ctx context.Context) ([]Position, error)

	// SubmitOrder 提交委托，返回柜台委托号
	SubmitOrder(ctx context.Context, symbol string, side OrderSide, qty int, limitPrice float64, tag string) (string, error)

	// CancelOrder 撤单，重复撤单应当幂等
	CancelOrder(ctx context.Context, brokerOrderID string) error

	// OnOrderUpdate 注册订单状态回调
	OnOrderUpdate(fn func(OrderUpdate))

	// OnOrderError 注册委托错误回调
	OnOrderError(fn func(OrderError))
}
