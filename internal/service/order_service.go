package service

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"atrader/internal/models"
	"atrader/internal/repo"
	"atrader/internal/telegram"
	"atrader/pkg/broker"
)

const (
	orderHistorySize   = 20 // 每个证券保留的最近委托数
	submitOrderTimeout = 2 * time.Second
)

// 柜台错误信息里嵌的证券代码，如 [SZ002083]
var errorMsgCodePattern = regexp.MustCompile(`\[(SH|SZ|BJ)(\d{6})\]`)

// OrderService 委托管理服务
// 负责下单、撤单、柜台回报处理和审计落库，内存里保留每个证券最近的委托环
type OrderService struct {
	logger *zap.Logger

	*orz.Service
	*repo.OrderRepo

	broker   broker.Broker
	telegram *telegram.Telegram

	mu      sync.Mutex
	history map[string][]*models.OrderRecord // symbol -> 最近委托，旧在前
}

// NewOrderService 创建委托服务并注册柜台回调
func NewOrderService(db *gorm.DB, b broker.Broker, tg *telegram.Telegram, logger *zap.Logger) *OrderService {
	s := &OrderService{
		logger:    logger,
		Service:   orz.NewService(db),
		OrderRepo: repo.NewOrderRepo(db),
		broker:    b,
		telegram:  tg,
		history:   make(map[string][]*models.OrderRecord),
	}
	b.OnOrderUpdate(s.HandleOrderUpdate)
	b.OnOrderError(s.HandleOrderError)
	return s
}

// Submit 提交限价委托
// 同一证券如有未终结的旧委托先撤掉，避免重复挂单占用资金
func (s *OrderService) Submit(ctx context.Context, symbol string, side broker.OrderSide, qty int, limitPrice float64, tag, reason string) (*models.OrderRecord, error) {
	if err := s.cancelLive(ctx, symbol); err != nil {
		s.logger.Warn("cancel previous live order failed",
			zap.String("symbol", symbol), zap.Error(err))
	}

	submitCtx, cancel := context.WithTimeout(ctx, submitOrderTimeout)
	defer cancel()

	record := &models.OrderRecord{
		ID:          ulid.Make().String(),
		Symbol:      symbol,
		Side:        side,
		Quantity:    qty,
		LimitPrice:  limitPrice,
		Status:      broker.OrderStatusNew,
		Tag:         tag,
		Reason:      reason,
		SubmittedAt: time.Now(),
	}

	brokerOrderID, err := s.broker.SubmitOrder(submitCtx, symbol, side, qty, limitPrice, tag)
	if err != nil {
		record.Status = broker.OrderStatusFailed
		record.ErrorMsg = err.Error()
		s.record(ctx, record)
		return nil, fmt.Errorf("submit order %s %s: %w", side, symbol, err)
	}

	record.Status = broker.OrderStatusSubmitted
	record.BrokerOrderID = brokerOrderID
	s.record(ctx, record)

	s.logger.Info("order submitted",
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.Int("qty", qty),
		zap.Float64("limit_price", limitPrice),
		zap.String("broker_order_id", brokerOrderID),
		zap.String("reason", reason))

	return record, nil
}

// HandleOrderUpdate 柜台订单状态回报
func (s *OrderService) HandleOrderUpdate(update broker.OrderUpdate) {
	ctx := context.Background()

	s.logger.Info("order update",
		zap.String("broker_order_id", update.OrderID),
		zap.String("symbol", update.StockCode),
		zap.String("status", string(update.Status)),
		zap.Int("filled_qty", update.FilledQuantity))

	if err := s.OrderRepo.UpdateFill(ctx, update.OrderID, update.Status, update.FilledQuantity, update.AvgFillPrice, update.ErrorMsg); err != nil {
		s.logger.Error("update order fill failed",
			zap.String("broker_order_id", update.OrderID), zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, records := range s.history {
		for _, r := range records {
			if r.BrokerOrderID == update.OrderID {
				r.Status = update.Status
				r.FilledQuantity = update.FilledQuantity
				r.AvgFillPrice = update.AvgFillPrice
				r.ErrorMsg = update.ErrorMsg
				return
			}
		}
	}
}

// HandleOrderError 柜台委托错误回报
// StockCode 缺失时从错误信息里解析 [SZ002083] 形式的代码
func (s *OrderService) HandleOrderError(e broker.OrderError) {
	symbol := e.StockCode
	if symbol == "" {
		symbol = ParseSymbolFromError(e.ErrorMsg)
	}

	s.logger.Error("order error",
		zap.String("broker_order_id", e.OrderID),
		zap.String("error_id", e.ErrorID),
		zap.String("symbol", symbol),
		zap.String("error_msg", e.ErrorMsg))

	ctx := context.Background()
	if e.OrderID != "" {
		if err := s.OrderRepo.UpdateFill(ctx, e.OrderID, broker.OrderStatusFailed, 0, 0, e.ErrorMsg); err != nil {
			s.logger.Error("mark order failed error",
				zap.String("broker_order_id", e.OrderID), zap.Error(err))
		}
		s.markFailed(e.OrderID, e.ErrorMsg)
	}

	// 错误回报意味着该证券的挂单状态不可信，撤掉之前的在途委托
	if symbol != "" {
		if err := s.cancelLive(ctx, symbol); err != nil {
			s.logger.Error("cancel live order after broker error failed",
				zap.String("symbol", symbol), zap.Error(err))
		}
	}

	s.telegram.Notify(fmt.Sprintf("⚠️ 委托错误 %s\n%s", symbol, e.ErrorMsg))
}

func (s *OrderService) markFailed(brokerOrderID, errorMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, records := range s.history {
		for _, r := range records {
			if r.BrokerOrderID == brokerOrderID {
				r.Status = broker.OrderStatusFailed
				r.ErrorMsg = errorMsg
				return
			}
		}
	}
}

// History 某证券最近的委托，旧在前
func (s *OrderService) History(symbol string) []*models.OrderRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.history[symbol]
	out := make([]*models.OrderRecord, len(records))
	copy(out, records)
	return out
}

// HasLiveOrder 某证券是否有未终结委托
func (s *OrderService) HasLiveOrder(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.history[symbol] {
		if r.IsLive() {
			return true
		}
	}
	return false
}

// TodayOrderCount 今日委托笔数
func (s *OrderService) TodayOrderCount(ctx context.Context) (int64, error) {
	return s.OrderRepo.CountByDate(ctx, time.Now())
}

func (s *OrderService) cancelLive(ctx context.Context, symbol string) error {
	s.mu.Lock()
	var live []*models.OrderRecord
	for _, r := range s.history[symbol] {
		if r.IsLive() && r.BrokerOrderID != "" {
			live = append(live, r)
		}
	}
	s.mu.Unlock()

	for _, r := range live {
		if err := s.broker.CancelOrder(ctx, r.BrokerOrderID); err != nil {
			return err
		}
		s.logger.Info("cancelled previous live order",
			zap.String("symbol", symbol),
			zap.String("broker_order_id", r.BrokerOrderID))

		s.mu.Lock()
		r.Status = broker.OrderStatusCancelled
		s.mu.Unlock()
	}
	return nil
}

func (s *OrderService) record(ctx context.Context, record *models.OrderRecord) {
	if err := s.OrderRepo.Create(ctx, record); err != nil {
		s.logger.Error("save order record failed",
			zap.String("symbol", record.Symbol), zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	records := append(s.history[record.Symbol], record)
	if len(records) > orderHistorySize {
		records = records[len(records)-orderHistorySize:]
	}
	s.history[record.Symbol] = records
}

// ParseSymbolFromError 从柜台错误信息中解析证券代码
// [SZ002083] -> 002083.SZ，解析失败返回空串
func ParseSymbolFromError(msg string) string {
	m := errorMsgCodePattern.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	return m[2] + "." + m[1]
}
