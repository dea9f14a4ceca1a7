package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"atrader/internal/config"
	"atrader/pkg/market"
)

const retailHolderWindow = 5 // 股东户数回看期数

// Candidate 候选股
type Candidate struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Industry string `json:"industry"`
}

// SelectorService 候选股筛选服务
// 并发查询外部选股服务，合并去重后用股东户数过滤掉散户涌入的票
type SelectorService struct {
	logger *zap.Logger

	conf     config.SelectionConf
	oracle   market.Oracle
	provider market.Provider
}

// NewSelectorService 创建选股服务
func NewSelectorService(conf *config.Config, oracle market.Oracle, provider market.Provider, logger *zap.Logger) *SelectorService {
	return &SelectorService{
		logger:   logger,
		conf:     conf.Selection,
		oracle:   oracle,
		provider: provider,
	}
}

// Select 执行一轮选股
// 所有查询条件并发发出，等全部返回再合并，单条失败不影响其余
func (s *SelectorService) Select(ctx context.Context) ([]Candidate, error) {
	queries := s.conf.Queries
	if len(queries) == 0 {
		return nil, nil
	}

	results := make([][]market.ScreenRow, len(queries))
	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			rows, err := s.oracle.Query(ctx, query)
			if err != nil {
				s.logger.Warn("screen query failed",
					zap.String("query", query), zap.Error(err))
				return
			}
			results[i] = rows
		}(i, query)
	}
	wg.Wait()

	merged := mergeScreenRows(results)
	if len(merged) == 0 {
		return nil, nil
	}

	filtered := s.filterByRetailHolders(ctx, merged)
	return s.enrich(ctx, filtered), nil
}

// mergeScreenRows 按查询顺序合并并去重
func mergeScreenRows(results [][]market.ScreenRow) []market.ScreenRow {
	seen := make(map[string]struct{})
	var merged []market.ScreenRow
	for _, rows := range results {
		for _, row := range rows {
			if _, ok := seen[row.Code]; ok {
				continue
			}
			seen[row.Code] = struct{}{}
			merged = append(merged, row)
		}
	}
	return merged
}

// filterByRetailHolders 股东户数过滤
// 户数持续下降说明筹码集中，保留；序列不够或拉取失败的票放行
func (s *SelectorService) filterByRetailHolders(ctx context.Context, rows []market.ScreenRow) []market.ScreenRow {
	var kept []market.ScreenRow
	for _, row := range rows {
		series, err := s.provider.GetRetailHolderSeries(ctx, row.Code, retailHolderWindow)
		if err != nil {
			s.logger.Warn("fetch retail holder series failed",
				zap.String("symbol", row.Code), zap.Error(err))
			kept = append(kept, row)
			continue
		}
		if len(series) < 2 || isStrictlyDecreasing(series) {
			kept = append(kept, row)
			continue
		}
		s.logger.Debug("candidate dropped by retail holder filter",
			zap.String("symbol", row.Code))
	}
	return kept
}

func isStrictlyDecreasing(series []float64) bool {
	for i := 1; i < len(series); i++ {
		if series[i] >= series[i-1] {
			return false
		}
	}
	return true
}

// enrich 补充股票基础信息
func (s *SelectorService) enrich(ctx context.Context, rows []market.ScreenRow) []Candidate {
	symbols := make([]string, 0, len(rows))
	for _, row := range rows {
		symbols = append(symbols, row.Code)
	}

	basicBySymbol := make(map[string]market.StockBasic)
	if len(symbols) > 0 {
		basics, err := s.provider.GetStockBasic(ctx, symbols)
		if err != nil {
			s.logger.Warn("fetch stock basic failed", zap.Error(err))
		}
		for _, b := range basics {
			basicBySymbol[b.TsCode] = b
		}
	}

	candidates := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		c := Candidate{Symbol: row.Code, Name: row.Name}
		if b, ok := basicBySymbol[row.Code]; ok {
			if c.Name == "" {
				c.Name = b.Name
			}
			c.Industry = b.Industry
		}
		candidates = append(candidates, c)
	}
	return candidates
}
