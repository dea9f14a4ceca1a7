package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// QMTClient 本地 QMT 网关客户端
// 网关以 HTTP 暴露柜台接口，订单回报通过长轮询 /events 推送
type QMTClient struct {
	baseURL   string
	accountID string
	logger    *zap.Logger

	client       *http.Client
	submitClient *http.Client

	mu             sync.RWMutex
	updateHandlers []func(OrderUpdate)
	errorHandlers  []func(OrderError)

	stopChan chan struct{}
	started  bool
}

// NewQMTClient 创建 QMT 网关客户端
func NewQMTClient(baseURL, accountID string, logger *zap.Logger) *QMTClient {
	return &QMTClient{
		baseURL:   baseURL,
		accountID: accountID,
		logger:    logger,
		client:    &http.Client{Timeout: 10 * time.Second},
		// 下单通道超时更短，超时视为提交失败
		submitClient: &http.Client{Timeout: 2 * time.Second},
		stopChan:     make(chan struct{}),
	}
}

var _ Broker = (*QMTClient)(nil)

// QueryAccount 查询账户资金
func (c *QMTClient) QueryAccount(ctx context.Context) (*AccountSnapshot, error) {
	var snapshot AccountSnapshot
	if err := c.get(ctx, "/api/account/"+c.accountID, &snapshot); err != nil {
		return nil, fmt.Errorf("query account failed: %w", err)
	}
	return &snapshot, nil
}

// QueryPositions 查询持仓
func (c *QMTClient) QueryPositions(ctx context.Context) ([]Position, error) {
	var positions []Position
	if err := c.get(ctx, "/api/positions/"+c.accountID, &positions); err != nil {
		return nil, fmt.Errorf("query positions failed: %w", err)
	}
	return positions, nil
}

// SubmitOrder 提交委托
func (c *QMTClient) SubmitOrder(ctx context.Context, symbol string, side OrderSide, qty int, limitPrice float64, tag string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"account_id":  c.accountID,
		"symbol":      symbol,
		"side":        side,
		"quantity":    qty,
		"limit_price": limitPrice,
		"tag":         tag,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.submitClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit order failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("submit order returned status %d", resp.StatusCode)
	}

	var result struct {
		BrokerOrderID string `json:"broker_order_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("submit order decode failed: %w", err)
	}
	return result.BrokerOrderID, nil
}

// CancelOrder 撤单，柜台对已终态委托的撤单返回成功，保证幂等
func (c *QMTClient) CancelOrder(ctx context.Context, brokerOrderID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/orders/"+brokerOrderID, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("cancel order failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("cancel order returned status %d", resp.StatusCode)
	}
	return nil
}

// OnOrderUpdate 注册订单状态回调
func (c *QMTClient) OnOrderUpdate(fn func(OrderUpdate)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateHandlers = append(c.updateHandlers, fn)
}

// OnOrderError 注册委托错误回调
func (c *QMTClient) OnOrderError(fn func(OrderError)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorHandlers = append(c.errorHandlers, fn)
}

// StartEventLoop 启动回报轮询
func (c *QMTClient) StartEventLoop(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopChan:
				return
			default:
			}

			if err := c.pollEvents(ctx); err != nil {
				c.logger.Warn("event poll failed", zap.Error(err))
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

// Stop 停止回报轮询
func (c *QMTClient) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		close(c.stopChan)
		c.started = false
	}
}

type gatewayEvent struct {
	Type   string          `json:"type"` // order_update / order_error
	Seq    int64           `json:"seq"`
	Update *OrderUpdate    `json:"update,omitempty"`
	Error  *OrderError     `json:"error,omitempty"`
	Raw    json.RawMessage `json:"raw,omitempty"`
}

func (c *QMTClient) pollEvents(ctx context.Context) error {
	pollCtx, cancel := context.WithTimeout(ctx, 35*time.Second)
	defer cancel()

	var events []gatewayEvent
	if err := c.get(pollCtx, "/api/events/"+c.accountID+"?wait=30", &events); err != nil {
		return err
	}

	for _, ev := range events {
		switch ev.Type {
		case "order_update":
			if ev.Update != nil {
				c.dispatchUpdate(*ev.Update)
			}
		case "order_error":
			if ev.Error != nil {
				c.dispatchError(*ev.Error)
			}
		default:
			c.logger.Debug("unknown gateway event", zap.String("type", ev.Type))
		}
	}
	return nil
}

func (c *QMTClient) dispatchUpdate(u OrderUpdate) {
	c.mu.RLock()
	handlers := c.updateHandlers
	c.mu.RUnlock()
	for _, fn := range handlers {
		fn(u)
	}
}

func (c *QMTClient) dispatchError(e OrderError) {
	c.mu.RLock()
	handlers := c.errorHandlers
	c.mu.RUnlock()
	for _, fn := range handlers {
		fn(e)
	}
}

func (c *QMTClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
