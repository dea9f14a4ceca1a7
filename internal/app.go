package internal

import (
	"context"
	"fmt"

	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"atrader/internal/config"
	"atrader/internal/handler"
	"atrader/internal/models"
	"atrader/internal/service"
	"atrader/internal/telegram"
	"atrader/pkg/broker"
	"atrader/pkg/nostd"
)

// 运行模式
const (
	ModeLive     = "live"
	ModeBacktest = "backtest"
)

// RunOptions 命令行启动参数
type RunOptions struct {
	ConfigFile string
	Env        string // 覆盖配置文件的 env，空值表示不覆盖
	Mode       string // live / backtest，空值等同 live
}

// Validate 校验启动参数
func (o RunOptions) Validate() error {
	switch o.Env {
	case "", "SIMULATION", "PRODUCTION":
	default:
		return fmt.Errorf("invalid env %q: expect SIMULATION or PRODUCTION", o.Env)
	}
	switch o.Mode {
	case "", ModeLive, ModeBacktest:
	default:
		return fmt.Errorf("invalid mode %q: expect %s or %s", o.Mode, ModeLive, ModeBacktest)
	}
	return nil
}

func Run(opts RunOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	app := &TraderApp{opts: opts}

	framework, err := orz.NewFramework(
		orz.WithConfig(opts.ConfigFile),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	return framework.Run()
}

var _ orz.Application = (*TraderApp)(nil)

type AppComponents struct {
	TradingHandler *handler.TradingHandler

	TradingLoop      *service.TradingLoop
	MarketService    *service.MarketService
	AccountService   *service.AccountService
	SentimentService *service.SentimentService
	RegimeService    *service.RegimeService
	OrderService     *service.OrderService
	SelectorService  *service.SelectorService

	Broker broker.Broker
	tg     *telegram.Telegram
}

type TraderApp struct {
	components *AppComponents
	conf       *config.Config
	opts       RunOptions
}

// GetComponents 获取应用组件
func (r *TraderApp) GetComponents() *AppComponents {
	return r.components
}

func (r *TraderApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	err := app.GetConfig().App.Unmarshal(&conf)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}
	conf.Normalize()
	if r.opts.Env != "" {
		conf.Env = r.opts.Env
	}

	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %v", err)
	}
	r.components = components
	r.conf = &conf

	if err := db.AutoMigrate(
		models.OrderRecord{}, models.DailyBar{}, models.SentimentSnapshot{}, models.RegimeRecord{},
	); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	if err := r.Init(logger); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      middleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	api := e.Group("/api")
	{
		if r.components.TradingHandler != nil {
			r.components.TradingHandler.RegisterRoutes(api)
		}
	}

	return nil
}

func (r *TraderApp) Init(logger *zap.Logger) error {
	logger.Info("=================================================")
	logger.Info("A-Share Trading System Starting...")
	logger.Info("=================================================")

	components := r.GetComponents()
	if components == nil {
		return fmt.Errorf("components not initialized")
	}

	if components.TradingLoop == nil {
		return fmt.Errorf("trading loop not available, please check broker and tushare configuration")
	}

	if components.tg != nil {
		components.tg.Start()
	}

	// 回测模式暂未实现，只启动只读API，不跑实时循环
	if r.opts.Mode == ModeBacktest {
		logger.Warn("backtest mode is not implemented yet, trading loop disabled")
		return nil
	}

	if qmt, ok := components.Broker.(*broker.QMTClient); ok {
		qmt.StartEventLoop(context.Background())
		logger.Info("qmt event loop started")
	}

	logger.Info("Trading loop initialized, starting...")

	go func() {
		if err := components.TradingLoop.Start(context.Background()); err != nil {
			logger.Error("trading loop error", zap.Error(err))
		}
	}()
	return nil
}
