package broker

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// PaperBroker 模拟柜台（纸交易）
// 委托按限价立即全部成交，当日买入计入锁定仓位，Rollover 之后才可卖出，复现 T+1 规则
type PaperBroker struct {
	logger *zap.Logger

	commissionRate float64

	mu             sync.Mutex
	cash           float64
	initialCash    float64
	positions      map[string]*paperPosition
	orderSeq       int64
	updateHandlers []func(OrderUpdate)
	errorHandlers  []func(OrderError)
}

type paperPosition struct {
	symbol       string
	totalVolume  int
	lockedVolume int // 当日买入，T+1 锁定
	avgCost      float64
	lastPrice    float64
}

// NewPaperBroker 创建模拟柜台
func NewPaperBroker(initialCash float64, commissionRate float64, logger *zap.Logger) *PaperBroker {
	return &PaperBroker{
		logger:         logger,
		commissionRate: commissionRate,
		cash:           initialCash,
		initialCash:    initialCash,
		positions:      make(map[string]*paperPosition),
		orderSeq:       1000000,
	}
}

var _ Broker = (*PaperBroker)(nil)

// QueryAccount 查询模拟账户资金
func (p *PaperBroker) QueryAccount(ctx context.Context) (*AccountSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	positions := p.snapshotPositionsLocked()
	total := p.cash
	for _, pos := range positions {
		total += pos.MarketValue()
	}

	return &AccountSnapshot{
		Cash:       p.cash,
		TotalAsset: total,
		Positions:  positions,
	}, nil
}

// QueryPositions 查询模拟持仓
func (p *PaperBroker) QueryPositions(ctx context.Context) ([]Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotPositionsLocked(), nil
}

func (p *PaperBroker) snapshotPositionsLocked() []Position {
	result := make([]Position, 0, len(p.positions))
	for _, pos := range p.positions {
		result = append(result, Position{
			Symbol:          pos.symbol,
			TotalVolume:     pos.totalVolume,
			AvailableVolume: pos.totalVolume - pos.lockedVolume,
			AvgCost:         pos.avgCost,
			CurrentPrice:    pos.lastPrice,
		})
	}
	return result
}

// SubmitOrder 提交模拟委托，立即按限价成交
func (p *PaperBroker) SubmitOrder(ctx context.Context, symbol string, side OrderSide, qty int, limitPrice float64, tag string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.orderSeq++
	brokerOrderID := strconv.FormatInt(p.orderSeq, 10)

	if qty <= 0 || limitPrice <= 0 {
		return "", fmt.Errorf("invalid order: qty=%d price=%.4f", qty, limitPrice)
	}
	if qty%LotSize(symbol) != 0 {
		p.emitError(OrderError{
			OrderID:   brokerOrderID,
			ErrorID:   "1001",
			ErrorMsg:  fmt.Sprintf("quantity %d not a lot multiple", qty),
			StockCode: symbol,
		})
		return brokerOrderID, nil
	}

	switch side {
	case OrderSideBuy:
		cost := float64(qty) * limitPrice * (1 + p.commissionRate)
		if cost > p.cash {
			p.emitError(OrderError{
				OrderID:  brokerOrderID,
				ErrorID:  "1002",
				ErrorMsg: fmt.Sprintf("insufficient cash [%s]", gatewayCode(symbol)),
			})
			return brokerOrderID, nil
		}

		p.cash -= cost
		pos, ok := p.positions[symbol]
		if !ok {
			pos = &paperPosition{symbol: symbol}
			p.positions[symbol] = pos
		}
		totalCost := pos.avgCost*float64(pos.totalVolume) + limitPrice*float64(qty)
		pos.totalVolume += qty
		pos.lockedVolume += qty
		pos.avgCost = totalCost / float64(pos.totalVolume)
		pos.lastPrice = limitPrice

	case OrderSideSell:
		pos, ok := p.positions[symbol]
		if !ok || pos.totalVolume-pos.lockedVolume < qty {
			p.emitError(OrderError{
				OrderID:  brokerOrderID,
				ErrorID:  "1003",
				ErrorMsg: fmt.Sprintf("sellable volume not enough [%s]", gatewayCode(symbol)),
			})
			return brokerOrderID, nil
		}

		p.cash += float64(qty) * limitPrice * (1 - p.commissionRate)
		pos.totalVolume -= qty
		pos.lastPrice = limitPrice
		if pos.totalVolume == 0 {
			delete(p.positions, symbol)
		}

	default:
		return "", fmt.Errorf("unknown order side: %s", side)
	}

	p.logger.Info("paper broker: order filled",
		zap.String("symbol", symbol),
		zap.String("side", side.String()),
		zap.Int("quantity", qty),
		zap.Float64("price", limitPrice),
		zap.String("broker_order_id", brokerOrderID))

	p.emitUpdate(OrderUpdate{
		OrderID:        brokerOrderID,
		StockCode:      symbol,
		Status:         OrderStatusFilled,
		FilledQuantity: qty,
		AvgFillPrice:   limitPrice,
	})
	return brokerOrderID, nil
}

// CancelOrder 撤单，模拟盘委托立即成交，撤单恒为幂等空操作
func (p *PaperBroker) CancelOrder(ctx context.Context, brokerOrderID string) error {
	p.logger.Debug("paper broker: cancel is a no-op", zap.String("broker_order_id", brokerOrderID))
	return nil
}

// OnOrderUpdate 注册订单状态回调
func (p *PaperBroker) OnOrderUpdate(fn func(OrderUpdate)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updateHandlers = append(p.updateHandlers, fn)
}

// OnOrderError 注册委托错误回调
func (p *PaperBroker) OnOrderError(fn func(OrderError)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errorHandlers = append(p.errorHandlers, fn)
}

// MarkPrice 更新持仓的最新价（模拟行情推送）
func (p *PaperBroker) MarkPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos, ok := p.positions[symbol]; ok {
		pos.lastPrice = price
	}
}

// Rollover 进入下一个交易日，解除 T+1 锁定
func (p *PaperBroker) Rollover() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pos := range p.positions {
		pos.lockedVolume = 0
	}
	p.logger.Info("paper broker: rolled over to next trading day")
}

// Cash 当前可用资金（测试用）
func (p *PaperBroker) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// Reset 重置到初始状态
func (p *PaperBroker) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cash = p.initialCash
	p.positions = make(map[string]*paperPosition)
}

func (p *PaperBroker) emitUpdate(u OrderUpdate) {
	for _, fn := range p.updateHandlers {
		go fn(u)
	}
}

func (p *PaperBroker) emitError(e OrderError) {
	p.logger.Warn("paper broker: order rejected",
		zap.String("broker_order_id", e.OrderID),
		zap.String("error", e.ErrorMsg))
	for _, fn := range p.errorHandlers {
		go fn(e)
	}
}

// gatewayCode 把 002083.SZ 转成柜台错误信息里的 SZ002083 形式
func gatewayCode(symbol string) string {
	if len(symbol) < 9 {
		return symbol
	}
	return symbol[7:] + symbol[:6]
}
