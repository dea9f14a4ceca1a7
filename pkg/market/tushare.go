package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const defaultTushareURL = "http://api.tushare.pro"

// TushareClient Tushare Pro 数据客户端
type TushareClient struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewTushareClient 创建 Tushare 客户端
func NewTushareClient(token, baseURL string) *TushareClient {
	if baseURL == "" {
		baseURL = defaultTushareURL
	}
	return &TushareClient{
		token:   token,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

var _ Provider = (*TushareClient)(nil)

type tushareRequest struct {
	APIName string         `json:"api_name"`
	Token   string         `json:"token"`
	Params  map[string]any `json:"params"`
	Fields  string         `json:"fields"`
}

type tushareResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Fields []string `json:"fields"`
		Items  [][]any  `json:"items"`
	} `json:"data"`
}

// call 调用 Tushare 接口并返回按字段名索引的行
func (c *TushareClient) call(ctx context.Context, apiName string, params map[string]any, fields string) ([]map[string]any, error) {
	body, err := json.Marshal(tushareRequest{
		APIName: apiName,
		Token:   c.token,
		Params:  params,
		Fields:  fields,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tushare %s request failed: %w", apiName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tushare %s returned status %d", apiName, resp.StatusCode)
	}

	var tr tushareResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("tushare %s decode failed: %w", apiName, err)
	}
	if tr.Code != 0 {
		return nil, fmt.Errorf("tushare %s error: %s", apiName, tr.Msg)
	}

	rows := make([]map[string]any, 0, len(tr.Data.Items))
	for _, item := range tr.Data.Items {
		row := make(map[string]any, len(tr.Data.Fields))
		for i, field := range tr.Data.Fields {
			if i < len(item) {
				row[field] = item[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// GetDailyBars 获取日线K线，升序返回
func (c *TushareClient) GetDailyBars(ctx context.Context, symbol string, startDate, endDate string) ([]Bar, error) {
	rows, err := c.call(ctx, "daily", map[string]any{
		"ts_code":    symbol,
		"start_date": startDate,
		"end_date":   endDate,
	}, "trade_date,open,high,low,close,vol,amount")
	if err != nil {
		return nil, err
	}

	bars := make([]Bar, 0, len(rows))
	for _, row := range rows {
		t, err := time.ParseInLocation("20060102", cast.ToString(row["trade_date"]), time.Local)
		if err != nil {
			continue
		}
		bars = append(bars, Bar{
			Time:   t,
			Open:   cast.ToFloat64(row["open"]),
			High:   cast.ToFloat64(row["high"]),
			Low:    cast.ToFloat64(row["low"]),
			Close:  cast.ToFloat64(row["close"]),
			Volume: cast.ToFloat64(row["vol"]),
			Amount: cast.ToFloat64(row["amount"]),
		})
	}

	// Tushare 返回降序，统一转为升序
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// GetLatestPrice 获取最新价格
func (c *TushareClient) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := c.call(ctx, "realtime_quote", map[string]any{
		"ts_code": symbol,
	}, "ts_code,price")
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("no quote for %s", symbol)
	}

	price := cast.ToFloat64(rows[0]["price"])
	if price <= 0 {
		return 0, fmt.Errorf("invalid price %.4f for %s", price, symbol)
	}
	return price, nil
}

// GetMarketDaily 获取某交易日全市场行情
func (c *TushareClient) GetMarketDaily(ctx context.Context, tradeDate string) ([]DailyQuote, error) {
	rows, err := c.call(ctx, "daily", map[string]any{
		"trade_date": tradeDate,
	}, "ts_code,trade_date,pct_chg,amount")
	if err != nil {
		return nil, err
	}
	return toQuotes(rows), nil
}

// GetMarketDailyRange 批量获取一段日期内全市场行情（单次请求，避免逐日调用触发限流）
func (c *TushareClient) GetMarketDailyRange(ctx context.Context, startDate, endDate string) ([]DailyQuote, error) {
	rows, err := c.call(ctx, "daily", map[string]any{
		"start_date": startDate,
		"end_date":   endDate,
	}, "ts_code,trade_date,pct_chg,amount")
	if err != nil {
		return nil, err
	}
	return toQuotes(rows), nil
}

func toQuotes(rows []map[string]any) []DailyQuote {
	quotes := make([]DailyQuote, 0, len(rows))
	for _, row := range rows {
		quotes = append(quotes, DailyQuote{
			TsCode:    cast.ToString(row["ts_code"]),
			TradeDate: cast.ToString(row["trade_date"]),
			PctChange: cast.ToFloat64(row["pct_chg"]),
			Amount:    cast.ToFloat64(row["amount"]),
		})
	}
	return quotes
}

// GetRetailHolderSeries 获取最近 window 期股东户数，按公告时间升序
func (c *TushareClient) GetRetailHolderSeries(ctx context.Context, symbol string, window int) ([]float64, error) {
	rows, err := c.call(ctx, "stk_holdernumber", map[string]any{
		"ts_code": symbol,
	}, "ann_date,holder_num")
	if err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		return cast.ToString(rows[i]["ann_date"]) < cast.ToString(rows[j]["ann_date"])
	})

	series := make([]float64, 0, len(rows))
	for _, row := range rows {
		series = append(series, cast.ToFloat64(row["holder_num"]))
	}
	if len(series) > window {
		series = series[len(series)-window:]
	}
	return series, nil
}

// GetStockBasic 获取股票基础信息
func (c *TushareClient) GetStockBasic(ctx context.Context, symbols []string) ([]StockBasic, error) {
	rows, err := c.call(ctx, "stock_basic", map[string]any{
		"ts_code": strings.Join(symbols, ","),
	}, "ts_code,symbol,name,area,industry")
	if err != nil {
		return nil, err
	}

	basics := make([]StockBasic, 0, len(rows))
	for _, row := range rows {
		basics = append(basics, StockBasic{
			TsCode:   cast.ToString(row["ts_code"]),
			Symbol:   cast.ToString(row["symbol"]),
			Name:     cast.ToString(row["name"]),
			Area:     cast.ToString(row["area"]),
			Industry: cast.ToString(row["industry"]),
		})
	}
	return basics, nil
}

// GetTradeCalendar 获取截至 endDate 的最近 n 个交易日，升序返回
func (c *TushareClient) GetTradeCalendar(ctx context.Context, endDate string, n int) ([]string, error) {
	start, err := time.ParseInLocation("20060102", endDate, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	// 往前多取一些自然日，足够覆盖 n 个交易日
	startDate := start.AddDate(0, 0, -n*2-14).Format("20060102")

	rows, err := c.call(ctx, "trade_cal", map[string]any{
		"start_date": startDate,
		"end_date":   endDate,
		"is_open":    "1",
	}, "cal_date")
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(rows))
	for _, row := range rows {
		dates = append(dates, cast.ToString(row["cal_date"]))
	}
	sort.Strings(dates)
	if len(dates) > n {
		dates = dates[len(dates)-n:]
	}
	return dates, nil
}
