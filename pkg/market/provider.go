package market

import "context"

// Provider 行情数据提供方接口
// 统一抽象数据源，便于切换 Tushare、本地缓存或测试桩
type Provider interface {
	// GetDailyBars 获取日线K线，按时间升序返回
	GetDailyBars(ctx context.Context, symbol string, startDate, endDate string) ([]Bar, error)

	// GetLatestPrice 获取最新价格
	GetLatestPrice(ctx context.Context, symbol string) (float64, error)

	// GetMarketDaily 获取某交易日全市场的涨跌幅与成交额
	GetMarketDaily(ctx context.Context, tradeDate string) ([]DailyQuote, error)

	// GetMarketDailyRange 批量获取一段日期内全市场行情（按日分组由调用方完成）
	GetMarketDailyRange(ctx context.Context, startDate, endDate string) ([]DailyQuote, error)

	// GetRetailHolderSeries 获取最近 window 期的股东户数，按公告时间升序
	GetRetailHolderSeries(ctx context.Context, symbol string, window int) ([]float64, error)

	// GetStockBasic 获取股票基础信息
	GetStockBasic(ctx context.Context, symbols []string) ([]StockBasic, error)

	// GetTradeCalendar 获取最近 n 个交易日（升序，YYYYMMDD）
	GetTradeCalendar(ctx context.Context, endDate string, n int) ([]string, error)
}

// Oracle 自然语言选股接口（外部服务，限流且阻塞）
type Oracle interface {
	Query(ctx context.Context, query string) ([]ScreenRow, error)
}
