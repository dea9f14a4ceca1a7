package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"atrader/internal/xe"
	"atrader/pkg/broker"
)

// AccountService 账户快照服务
type AccountService struct {
	logger *zap.Logger
	broker broker.Broker
}

// NewAccountService 创建账户服务
func NewAccountService(b broker.Broker, logger *zap.Logger) *AccountService {
	return &AccountService{
		logger: logger,
		broker: b,
	}
}

// Snapshot 查询账户资金与持仓
func (s *AccountService) Snapshot(ctx context.Context) (*broker.AccountSnapshot, error) {
	account, err := s.broker.QueryAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: query account: %v", xe.ErrUpstreamUnavailable, err)
	}

	positions, err := s.broker.QueryPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: query positions: %v", xe.ErrUpstreamUnavailable, err)
	}

	account.Positions = positions
	return account, nil
}

// HeldSymbols 当前持仓证券代码
func (s *AccountService) HeldSymbols(ctx context.Context) ([]string, error) {
	positions, err := s.broker.QueryPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: query positions: %v", xe.ErrUpstreamUnavailable, err)
	}
	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		if p.TotalVolume > 0 {
			symbols = append(symbols, p.Symbol)
		}
	}
	return symbols, nil
}
