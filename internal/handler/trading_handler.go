package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"atrader/internal/service"
	"atrader/internal/xe"
)

// TradingHandler 交易系统HTTP处理器
type TradingHandler struct {
	tradingLoop      *service.TradingLoop
	accountService   *service.AccountService
	sentimentService *service.SentimentService
	regimeService    *service.RegimeService
	orderService     *service.OrderService
	logger           *zap.Logger
}

// NewTradingHandler 创建交易处理器
func NewTradingHandler(
	tradingLoop *service.TradingLoop,
	accountService *service.AccountService,
	sentimentService *service.SentimentService,
	regimeService *service.RegimeService,
	orderService *service.OrderService,
	logger *zap.Logger,
) *TradingHandler {
	return &TradingHandler{
		tradingLoop:      tradingLoop,
		accountService:   accountService,
		sentimentService: sentimentService,
		regimeService:    regimeService,
		orderService:     orderService,
		logger:           logger,
	}
}

// GetStatus 获取交易状态
// GET /api/trading/status
func (h *TradingHandler) GetStatus(c echo.Context) error {
	ctx := c.Request().Context()

	loopStatus := h.tradingLoop.GetStatus()

	todayOrders, err := h.orderService.TodayOrderCount(ctx)
	if err != nil {
		h.logger.Warn("failed to count today orders", zap.Error(err))
	}

	account, err := h.accountService.Snapshot(ctx)
	if err != nil {
		h.logger.Error("failed to get account snapshot", zap.Error(err))
		return c.JSON(http.StatusOK, map[string]interface{}{
			"loop":         loopStatus,
			"today_orders": todayOrders,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"loop":         loopStatus,
		"today_orders": todayOrders,
		"account": map[string]interface{}{
			"cash":           account.Cash,
			"total_asset":    account.TotalAsset,
			"position_count": len(account.Positions),
		},
	})
}

// GetPositions 获取持仓列表
// GET /api/trading/positions
func (h *TradingHandler) GetPositions(c echo.Context) error {
	ctx := c.Request().Context()

	account, err := h.accountService.Snapshot(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": err.Error(),
		})
	}

	positionsData := make([]map[string]interface{}, 0, len(account.Positions))
	for _, pos := range account.Positions {
		positionsData = append(positionsData, map[string]interface{}{
			"symbol":           pos.Symbol,
			"total_volume":     pos.TotalVolume,
			"available_volume": pos.AvailableVolume,
			"avg_cost":         pos.AvgCost,
			"current_price":    pos.CurrentPrice,
			"market_value":     pos.MarketValue(),
			"pnl_percent":      pos.PnlPercent(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":     len(positionsData),
		"positions": positionsData,
	})
}

// GetSentiment 获取市场情绪
// GET /api/trading/sentiment
func (h *TradingHandler) GetSentiment(c echo.Context) error {
	ctx := c.Request().Context()

	reading, err := h.sentimentService.Reading(ctx, time.Now().Format("20060102"))
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"trade_date":         reading.TradeDate,
		"daily_index":        reading.EffectiveDaily(),
		"long_index":         reading.EffectiveLong(),
		"known":              reading.Known,
		"reduced_confidence": reading.ReducedConfidence,
	})
}

// GetRegime 获取最近一次市场状态判定
// GET /api/trading/regime
func (h *TradingHandler) GetRegime(c echo.Context) error {
	ctx := c.Request().Context()

	record, err := h.regimeService.FindLatest(ctx)
	if err != nil {
		return xe.ErrNoRegimeData
	}

	return c.JSON(http.StatusOK, record)
}

// TriggerTick 手动触发一轮监控
// POST /api/trading/tick
func (h *TradingHandler) TriggerTick(c echo.Context) error {
	if !h.tradingLoop.IsRunning() {
		return xe.ErrLoopNotReady
	}
	if err := h.tradingLoop.ExecuteTick(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "tick executed",
	})
}

// GetOrders 获取某证券最近的委托记录
// GET /api/trading/orders?symbol=002083.SZ&limit=20
func (h *TradingHandler) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()

	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return xe.ErrInvalidParams
	}

	limit := 20
	if l := c.QueryParam("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}

	orders, err := h.orderService.FindRecentBySymbol(ctx, symbol, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":  len(orders),
		"orders": orders,
	})
}

// RegisterRoutes 注册路由
func (h *TradingHandler) RegisterRoutes(g *echo.Group) {
	trading := g.Group("/trading")

	trading.GET("/status", h.GetStatus)
	trading.GET("/positions", h.GetPositions)
	trading.GET("/sentiment", h.GetSentiment)
	trading.GET("/regime", h.GetRegime)
	trading.GET("/orders", h.GetOrders)
	trading.POST("/tick", h.TriggerTick)
}
