package repo

import (
	"context"

	"github.com/go-orz/orz"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"atrader/internal/models"
)

func NewBarRepo(db *gorm.DB) *BarRepo {
	return &BarRepo{
		Repository: orz.NewRepository[models.DailyBar, string](db),
	}
}

type BarRepo struct {
	orz.Repository[models.DailyBar, string]
}

// FindRange 查找某证券一段日期内的K线，按日期升序
func (r BarRepo) FindRange(ctx context.Context, symbol, startDate, endDate string) ([]models.DailyBar, error) {
	db := r.GetDB(ctx)
	var bars []models.DailyBar
	err := db.Table(r.GetTableName()).
		Where("symbol = ? AND trade_date >= ? AND trade_date <= ?", symbol, startDate, endDate).
		Order("trade_date ASC").
		Find(&bars).Error
	return bars, err
}

// SaveBatch 批量写入K线，冲突时更新
func (r BarRepo) SaveBatch(ctx context.Context, bars []models.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}
	db := r.GetDB(ctx)
	return db.Table(r.GetTableName()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "trade_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "amount"}),
		}).
		Create(&bars).Error
}
