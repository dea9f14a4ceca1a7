package config

type Config struct {
	Env       string        `json:"env"` // SIMULATION / PRODUCTION
	Broker    BrokerConf    `json:"broker"`
	Tushare   TushareConf   `json:"tushare"`
	Trading   TradingConf   `json:"trading"`
	Selection SelectionConf `json:"selection"`
	Telegram  TelegramConf  `json:"telegram"`
}

type BrokerConf struct {
	GatewayURL  string  `json:"gateway_url"`  // QMT 网关地址，例如: http://127.0.0.1:58610
	AccountID   string  `json:"account_id"`   // 资金账号
	InitialCash float64 `json:"initial_cash"` // 模拟盘初始资金，默认1000000
}

type TushareConf struct {
	Token   string `json:"token"`    // Tushare Pro token
	BaseURL string `json:"base_url"` // 默认 http://api.tushare.pro
}

type TradingConf struct {
	IntervalSeconds  int      `json:"interval_seconds"`   // 监控周期（秒），默认60
	MaxStocks        int      `json:"max_stocks"`         // 最大持股数量，默认10
	MaxPositionRatio float64  `json:"max_position_ratio"` // 单股最大仓位比例，默认0.10
	MinPositionValue float64  `json:"min_position_value"` // 单股最小买入金额，默认10000
	MaxPositionValue float64  `json:"max_position_value"` // 单股最大买入金额，默认80000
	CommissionRate   float64  `json:"commission_rate"`    // 佣金费率，默认0.0003
	StopLossPercent  float64  `json:"stop_loss_percent"`  // 止损线（%），默认-5
	IndexSymbols     []string `json:"index_symbols"`      // 市场状态判断使用的指数
	RefIndexSymbol   string   `json:"ref_index_symbol"`   // 多周期收益率因子使用的参考指数
}

type SelectionConf struct {
	Queries []string `json:"queries"` // 自然语言选股条件
	Windows []string `json:"windows"` // 选股时间窗，如 "09:50-10:00"
	Oracle  struct {
		Endpoint string `json:"endpoint"`
		Token    string `json:"token"`
	} `json:"oracle"`
}

type TelegramConf struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
}

// 默认的指数组合：上证指数、沪深300、中证500、创业板指
var DefaultIndexSymbols = []string{"000001.SH", "000300.SH", "000905.SH", "399006.SZ"}

// Normalize 填充缺省配置
func (c *Config) Normalize() {
	if c.Env == "" {
		c.Env = "SIMULATION"
	}
	if c.Trading.IntervalSeconds <= 0 {
		c.Trading.IntervalSeconds = 60
	}
	if c.Trading.MaxStocks <= 0 {
		c.Trading.MaxStocks = 10
	}
	if c.Trading.MaxPositionRatio <= 0 {
		c.Trading.MaxPositionRatio = 0.10
	}
	if c.Trading.MinPositionValue <= 0 {
		c.Trading.MinPositionValue = 10000
	}
	if c.Trading.MaxPositionValue <= 0 {
		c.Trading.MaxPositionValue = 80000
	}
	if c.Trading.CommissionRate <= 0 {
		c.Trading.CommissionRate = 0.0003
	}
	if c.Trading.StopLossPercent == 0 {
		c.Trading.StopLossPercent = -5
	}
	if len(c.Trading.IndexSymbols) == 0 {
		c.Trading.IndexSymbols = DefaultIndexSymbols
	}
	if c.Trading.RefIndexSymbol == "" {
		c.Trading.RefIndexSymbol = "000001.SH"
	}
	if c.Broker.InitialCash <= 0 {
		c.Broker.InitialCash = 1000000
	}
	if len(c.Selection.Windows) == 0 {
		c.Selection.Windows = []string{"09:50-10:00", "14:20-14:30"}
	}
}
