package market

import "time"

// Bar 日线/分钟线K线数据
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Amount float64 // 成交额（元）
}

// Valid 检查K线数据是否合法
func (b Bar) Valid() bool {
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return false
	}
	if b.Volume < 0 {
		return false
	}
	if b.Low > b.Open || b.Low > b.Close || b.High < b.Open || b.High < b.Close {
		return false
	}
	return true
}

// Tick 逐笔/快照行情
type Tick struct {
	Time   time.Time
	Price  float64
	Volume float64
}

// DailyQuote 单只股票某交易日的行情摘要（全市场批量拉取）
type DailyQuote struct {
	TsCode     string  // 证券代码，如 002083.SZ
	TradeDate  string  // 交易日期 YYYYMMDD
	PctChange  float64 // 涨跌幅（%）
	Amount     float64 // 成交额（千元）
	TurnoverRt float64 // 换手率（%）
}

// ScreenRow 选股接口返回的单行结果
type ScreenRow struct {
	Code string
	Name string
}

// StockBasic 股票基础信息
type StockBasic struct {
	TsCode   string
	Symbol   string
	Name     string
	Area     string
	Industry string
}

// Closes 提取收盘价序列
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Highs 提取最高价序列
func Highs(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows 提取最低价序列
func Lows(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

// Volumes 提取成交量序列
func Volumes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}
