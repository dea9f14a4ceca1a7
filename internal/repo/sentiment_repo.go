package repo

import (
	"context"

	"github.com/go-orz/orz"
	"gorm.io/gorm"

	"atrader/internal/models"
)

func NewSentimentRepo(db *gorm.DB) *SentimentRepo {
	return &SentimentRepo{
		Repository: orz.NewRepository[models.SentimentSnapshot, string](db),
	}
}

type SentimentRepo struct {
	orz.Repository[models.SentimentSnapshot, string]
}

// FindByTradeDate 查找某交易日的情绪快照
func (r SentimentRepo) FindByTradeDate(ctx context.Context, tradeDate string) (m models.SentimentSnapshot, err error) {
	db := r.GetDB(ctx)
	err = db.Table(r.GetTableName()).
		Where("trade_date = ?", tradeDate).
		First(&m).Error
	return m, err
}

// FindRecent 查找最近 limit 个交易日的快照，按日期降序
func (r SentimentRepo) FindRecent(ctx context.Context, limit int) ([]models.SentimentSnapshot, error) {
	db := r.GetDB(ctx)
	var snapshots []models.SentimentSnapshot
	err := db.Table(r.GetTableName()).
		Order("trade_date DESC").
		Limit(limit).
		Find(&snapshots).Error
	return snapshots, err
}
