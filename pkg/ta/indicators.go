package ta

import (
	talib "github.com/markcheno/go-talib"
)

// go-talib 的薄封装，统一参数命名并补充 A 股常用的 KDJ 指标。
// 所有函数都是纯函数：相同输入必然产生相同输出。

// SMA 简单移动平均
func SMA(closes []float64, period int) []float64 {
	return talib.Sma(closes, period)
}

// EMA 指数移动平均
func EMA(closes []float64, period int) []float64 {
	return talib.Ema(closes, period)
}

// RSI 相对强弱指标，输出范围 [0,100]
func RSI(closes []float64, period int) []float64 {
	out := talib.Rsi(closes, period)
	for i, v := range out {
		if v < 0 {
			out[i] = 0
		} else if v > 100 {
			out[i] = 100
		}
	}
	return out
}

// MACD 返回 (DIF, DEA, 柱状图)
func MACD(closes []float64, fast, slow, signal int) ([]float64, []float64, []float64) {
	return talib.Macd(closes, fast, slow, signal)
}

// BBands 布林带，返回 (上轨, 中轨, 下轨)
func BBands(closes []float64, period int, k float64) ([]float64, []float64, []float64) {
	return talib.BBands(closes, period, k, k, talib.SMA)
}

// ATR 平均真实波幅
func ATR(highs, lows, closes []float64, period int) []float64 {
	return talib.Atr(highs, lows, closes, period)
}

// KDJ 随机指标，标准 9-3-3 参数时 J = 3K - 2D
func KDJ(highs, lows, closes []float64, n, kPeriod, dPeriod int) ([]float64, []float64, []float64) {
	k, d := talib.Stoch(highs, lows, closes, n, kPeriod, talib.SMA, dPeriod, talib.SMA)
	j := make([]float64, len(k))
	for i := range k {
		j[i] = 3*k[i] - 2*d[i]
	}
	return k, d, j
}
