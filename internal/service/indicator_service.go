package service

import (
	"fmt"

	"atrader/internal/xe"
	"atrader/pkg/market"
	"atrader/pkg/ta"
)

// IndicatorService 技术指标计算服务
// 纯函数集合：不做任何 I/O，相同输入必然产生相同输出
type IndicatorService struct{}

// NewIndicatorService 创建技术指标服务
func NewIndicatorService() *IndicatorService {
	return &IndicatorService{}
}

// IndicatorSpec 指标注册信息
type IndicatorSpec struct {
	Name     string         `json:"name"`
	Inputs   []string       `json:"inputs"`   // 所需 OHLCV 字段
	Lookback int            `json:"lookback"` // 最小K线数量
	Params   map[string]int `json:"params"`   // 默认参数
	Record   bool           `json:"record"`   // true 返回多值记录，false 返回标量
}

// IndicatorValue 指标计算结果
type IndicatorValue struct {
	Scalar float64            `json:"scalar,omitempty"`
	Record map[string]float64 `json:"record,omitempty"`
}

var indicatorRegistry = []IndicatorSpec{
	{Name: "MA5", Inputs: []string{"close"}, Lookback: 5, Params: map[string]int{"period": 5}},
	{Name: "MA10", Inputs: []string{"close"}, Lookback: 10, Params: map[string]int{"period": 10}},
	{Name: "MA20", Inputs: []string{"close"}, Lookback: 20, Params: map[string]int{"period": 20}},
	{Name: "MA60", Inputs: []string{"close"}, Lookback: 60, Params: map[string]int{"period": 60}},
	{Name: "EMA12", Inputs: []string{"close"}, Lookback: 12, Params: map[string]int{"period": 12}},
	{Name: "EMA26", Inputs: []string{"close"}, Lookback: 26, Params: map[string]int{"period": 26}},
	{Name: "RSI", Inputs: []string{"close"}, Lookback: 15, Params: map[string]int{"period": 14}},
	{Name: "MACD", Inputs: []string{"close"}, Lookback: 34, Params: map[string]int{"fast": 12, "slow": 26, "signal": 9}, Record: true},
	{Name: "BOLL", Inputs: []string{"close"}, Lookback: 20, Params: map[string]int{"period": 20, "k": 2}, Record: true},
	{Name: "KDJ", Inputs: []string{"high", "low", "close"}, Lookback: 13, Params: map[string]int{"n": 9, "k": 3, "d": 3}, Record: true},
	{Name: "ATR", Inputs: []string{"high", "low", "close"}, Lookback: 15, Params: map[string]int{"period": 14}},
}

// Registry 返回全部已注册指标
func (s *IndicatorService) Registry() []IndicatorSpec {
	out := make([]IndicatorSpec, len(indicatorRegistry))
	copy(out, indicatorRegistry)
	return out
}

// Compute 以默认参数计算单个指标的最新值
func (s *IndicatorService) Compute(name string, bars []market.Bar) (*IndicatorValue, error) {
	spec, ok := s.lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown indicator: %s", name)
	}
	if len(bars) < spec.Lookback {
		return nil, fmt.Errorf("%w: %s needs %d bars, got %d", xe.ErrInsufficientData, name, spec.Lookback, len(bars))
	}
	for _, b := range bars {
		if !b.Valid() {
			return nil, fmt.Errorf("%w: malformed bar at %s", xe.ErrInvalidInput, b.Time.Format("2006-01-02"))
		}
	}

	closes := market.Closes(bars)
	highs := market.Highs(bars)
	lows := market.Lows(bars)

	switch name {
	case "MA5", "MA10", "MA20", "MA60":
		return &IndicatorValue{Scalar: ta.Last(ta.SMA(closes, spec.Params["period"]), 0)}, nil
	case "EMA12", "EMA26":
		return &IndicatorValue{Scalar: ta.Last(ta.EMA(closes, spec.Params["period"]), 0)}, nil
	case "RSI":
		return &IndicatorValue{Scalar: ta.Last(ta.RSI(closes, spec.Params["period"]), 0)}, nil
	case "MACD":
		line, signal, hist := ta.MACD(closes, spec.Params["fast"], spec.Params["slow"], spec.Params["signal"])
		return &IndicatorValue{Record: map[string]float64{
			"line":      ta.Last(line, 0),
			"signal":    ta.Last(signal, 0),
			"histogram": ta.Last(hist, 0),
		}}, nil
	case "BOLL":
		upper, middle, lower := ta.BBands(closes, spec.Params["period"], float64(spec.Params["k"]))
		return &IndicatorValue{Record: map[string]float64{
			"upper":  ta.Last(upper, 0),
			"middle": ta.Last(middle, 0),
			"lower":  ta.Last(lower, 0),
		}}, nil
	case "KDJ":
		k, d, j := ta.KDJ(highs, lows, closes, spec.Params["n"], spec.Params["k"], spec.Params["d"])
		return &IndicatorValue{Record: map[string]float64{
			"k": ta.Last(k, 0),
			"d": ta.Last(d, 0),
			"j": ta.Last(j, 0),
		}}, nil
	case "ATR":
		return &IndicatorValue{Scalar: ta.Last(ta.ATR(highs, lows, closes, spec.Params["period"]), 0)}, nil
	}
	return nil, fmt.Errorf("unknown indicator: %s", name)
}

// ComputeFromTicks 快照行情先聚合为1分钟K线再计算
func (s *IndicatorService) ComputeFromTicks(name string, ticks []market.Tick) (*IndicatorValue, error) {
	return s.Compute(name, market.BucketTicks(ticks))
}

func (s *IndicatorService) lookup(name string) (IndicatorSpec, bool) {
	for _, spec := range indicatorRegistry {
		if spec.Name == name {
			return spec, true
		}
	}
	return IndicatorSpec{}, false
}

// snapshotLookback 卖出信号需要 MA60 与前一根的交叉判断
const snapshotLookback = 61

// IndicatorSnapshot 决策规则需要的全部指标值
type IndicatorSnapshot struct {
	Price      float64 `json:"price"`
	MA5        float64 `json:"ma5"`
	MA10       float64 `json:"ma10"`
	MA20       float64 `json:"ma20"`
	MA60       float64 `json:"ma60"`
	PrevMA5    float64 `json:"prev_ma5"`
	PrevMA20   float64 `json:"prev_ma20"`
	RSI14      float64 `json:"rsi14"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`
	PrevMACD   float64 `json:"prev_macd"`
	PrevSignal float64 `json:"prev_signal"`
	ATR14      float64 `json:"atr14"`
}

// Snapshot 一次性计算决策所需的全部指标
func (s *IndicatorService) Snapshot(bars []market.Bar) (*IndicatorSnapshot, error) {
	if len(bars) < snapshotLookback {
		return nil, fmt.Errorf("%w: snapshot needs %d bars, got %d", xe.ErrInsufficientData, snapshotLookback, len(bars))
	}
	for _, b := range bars {
		if !b.Valid() {
			return nil, fmt.Errorf("%w: malformed bar at %s", xe.ErrInvalidInput, b.Time.Format("2006-01-02"))
		}
	}

	closes := market.Closes(bars)
	highs := market.Highs(bars)
	lows := market.Lows(bars)

	ma5 := ta.SMA(closes, 5)
	ma10 := ta.SMA(closes, 10)
	ma20 := ta.SMA(closes, 20)
	ma60 := ta.SMA(closes, 60)
	rsi := ta.RSI(closes, 14)
	macd, signal, hist := ta.MACD(closes, 12, 26, 9)
	atr := ta.ATR(highs, lows, closes, 14)

	return &IndicatorSnapshot{
		Price:      ta.Last(closes, 0),
		MA5:        ta.Last(ma5, 0),
		MA10:       ta.Last(ma10, 0),
		MA20:       ta.Last(ma20, 0),
		MA60:       ta.Last(ma60, 0),
		PrevMA5:    ta.Last(ma5, 1),
		PrevMA20:   ta.Last(ma20, 1),
		RSI14:      ta.Last(rsi, 0),
		MACD:       ta.Last(macd, 0),
		MACDSignal: ta.Last(signal, 0),
		MACDHist:   ta.Last(hist, 0),
		PrevMACD:   ta.Last(macd, 1),
		PrevSignal: ta.Last(signal, 1),
		ATR14:      ta.Last(atr, 0),
	}, nil
}
