package repo

import (
	"context"
	"time"

	"github.com/go-orz/orz"
	"gorm.io/gorm"

	"atrader/internal/models"
	"atrader/pkg/broker"
)

func NewOrderRepo(db *gorm.DB) *OrderRepo {
	return &OrderRepo{
		Repository: orz.NewRepository[models.OrderRecord, string](db),
	}
}

type OrderRepo struct {
	orz.Repository[models.OrderRecord, string]
}

// FindRecentBySymbol 查找某证券最近的委托记录
func (r OrderRepo) FindRecentBySymbol(ctx context.Context, symbol string, limit int) ([]models.OrderRecord, error) {
	db := r.GetDB(ctx)
	var orders []models.OrderRecord
	err := db.Table(r.GetTableName()).
		Where("symbol = ?", symbol).
		Order("submitted_at DESC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// FindByBrokerOrderID 根据柜台委托号查找
func (r OrderRepo) FindByBrokerOrderID(ctx context.Context, brokerOrderID string) (m models.OrderRecord, err error) {
	db := r.GetDB(ctx)
	err = db.Table(r.GetTableName()).
		Where("broker_order_id = ?", brokerOrderID).
		First(&m).Error
	return m, err
}

// UpdateFill 更新成交信息
func (r OrderRepo) UpdateFill(ctx context.Context, brokerOrderID string, status broker.OrderStatus, filledQty int, avgPrice float64, errorMsg string) error {
	db := r.GetDB(ctx)
	return db.Table(r.GetTableName()).
		Where("broker_order_id = ?", brokerOrderID).
		Updates(map[string]interface{}{
			"status":          status,
			"filled_quantity": filledQty,
			"avg_fill_price":  avgPrice,
			"error_msg":       errorMsg,
		}).Error
}

// CountByDate 统计某交易日的委托数量
func (r OrderRepo) CountByDate(ctx context.Context, day time.Time) (int64, error) {
	db := r.GetDB(ctx)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	var count int64
	err := db.Table(r.GetTableName()).
		Where("submitted_at >= ? AND submitted_at < ?", start, start.AddDate(0, 0, 1)).
		Count(&count).Error
	return count, err
}
