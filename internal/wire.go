//go:build wireinject
// +build wireinject

package internal

import (
	"time"

	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"atrader/internal/config"
	"atrader/internal/handler"
	"atrader/internal/service"
	"atrader/internal/telegram"
	"atrader/pkg/broker"
	"atrader/pkg/market"
)

const latestPriceCacheTTL = 5 * time.Second

var (
	handlerSet = wire.NewSet(
		handler.NewTradingHandler,
	)

	tradingSet = wire.NewSet(
		provideProvider,
		provideOracle,
		provideBroker,
		service.NewIndicatorService,
		service.NewMarketService,
		service.NewAccountService,
		service.NewSentimentService,
		service.NewRegimeService,
		service.NewStrategyRouter,
		service.NewPositionSizer,
		service.NewDecisionService,
		service.NewOrderService,
		service.NewSelectorService,
		service.NewTradingLoop,
	)
)

// InitializeApp 初始化应用
func InitializeApp(logger *zap.Logger, db *gorm.DB, conf *config.Config) (*AppComponents, error) {
	wire.Build(
		handlerSet,
		tradingSet,
		provideTelegram,
		wire.Struct(new(AppComponents), "*"),
	)
	return nil, nil
}

// provideTelegram provides telegram instance
func provideTelegram(logger *zap.Logger, conf *config.Config) *telegram.Telegram {
	tg, err := telegram.NewTelegram(logger, telegram.Settings{
		Enabled: conf.Telegram.Enabled,
		Token:   conf.Telegram.Token,
		ChatID:  conf.Telegram.ChatID,
	})
	if err != nil {
		logger.Error("failed to init telegram", zap.Error(err))
		return &telegram.Telegram{}
	}
	return tg
}

// provideProvider provides market data provider
func provideProvider(conf *config.Config, logger *zap.Logger) market.Provider {
	client := market.NewTushareClient(conf.Tushare.Token, conf.Tushare.BaseURL)

	if conf.Tushare.Token == "" {
		logger.Warn("tushare token not configured; market data requests will fail")
	}

	return market.NewCachedProvider(client, latestPriceCacheTTL)
}

// provideOracle provides the stock screening service client
func provideOracle(conf *config.Config) market.Oracle {
	return market.NewHTTPOracle(conf.Selection.Oracle.Endpoint, conf.Selection.Oracle.Token)
}

// provideBroker provides the broker channel by environment
func provideBroker(conf *config.Config, logger *zap.Logger) broker.Broker {
	if conf.Env == "PRODUCTION" {
		logger.Info("using qmt broker gateway",
			zap.String("gateway_url", conf.Broker.GatewayURL),
			zap.String("account_id", conf.Broker.AccountID))
		return broker.NewQMTClient(conf.Broker.GatewayURL, conf.Broker.AccountID, logger)
	}

	logger.Info("using paper broker",
		zap.Float64("initial_cash", conf.Broker.InitialCash))
	return broker.NewPaperBroker(conf.Broker.InitialCash, conf.Trading.CommissionRate, logger)
}
