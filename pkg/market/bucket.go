package market

import (
	"sort"
	"time"
)

// BucketTicks 将逐笔行情聚合为 1 分钟K线，升序返回
// 指标计算只接受K线输入，快照数据先经过这里
func BucketTicks(ticks []Tick) []Bar {
	if len(ticks) == 0 {
		return nil
	}

	sorted := make([]Tick, len(ticks))
	copy(sorted, ticks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	var bars []Bar
	var cur *Bar
	var curMinute time.Time

	for _, tick := range sorted {
		if tick.Price <= 0 {
			continue
		}
		minute := tick.Time.Truncate(time.Minute)
		if cur == nil || !minute.Equal(curMinute) {
			if cur != nil {
				bars = append(bars, *cur)
			}
			curMinute = minute
			cur = &Bar{
				Time:   minute,
				Open:   tick.Price,
				High:   tick.Price,
				Low:    tick.Price,
				Close:  tick.Price,
				Volume: tick.Volume,
			}
			continue
		}

		if tick.Price > cur.High {
			cur.High = tick.Price
		}
		if tick.Price < cur.Low {
			cur.Low = tick.Price
		}
		cur.Close = tick.Price
		cur.Volume += tick.Volume
	}
	if cur != nil {
		bars = append(bars, *cur)
	}
	return bars
}
