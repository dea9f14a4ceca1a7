package repo

import (
	"context"

	"github.com/go-orz/orz"
	"gorm.io/gorm"

	"atrader/internal/models"
)

func NewRegimeRepo(db *gorm.DB) *RegimeRepo {
	return &RegimeRepo{
		Repository: orz.NewRepository[models.RegimeRecord, string](db),
	}
}

type RegimeRepo struct {
	orz.Repository[models.RegimeRecord, string]
}

// FindLatest 查找最近一次市场状态判定
func (r RegimeRepo) FindLatest(ctx context.Context) (m models.RegimeRecord, err error) {
	db := r.GetDB(ctx)
	err = db.Table(r.GetTableName()).
		Order("judged_at DESC").
		First(&m).Error
	return m, err
}
