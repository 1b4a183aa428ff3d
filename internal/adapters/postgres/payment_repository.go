package postgres

import (
	"context"
	"time"

	"github.com/leanlab/loyalty-engine/internal/domain"
	"gorm.io/gorm"
)

type paymentRepository struct {
	db *gorm.DB
}

func (r *paymentRepository) Insert(ctx context.Context, record domain.PaymentRecord) error {
	var meta *string
	if len(record.Meta) > 0 {
		raw := string(record.Meta)
		meta = &raw
	}
	rec := fridgePaymentModel{
		PaymentID:       record.PaymentID,
		StripePaymentID: record.StripePaymentID,
		Amount:          record.Amount,
		Currency:        record.Currency,
		FridgeID:        record.FridgeID,
		Meta:            meta,
		CreatedAt:       record.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *paymentRepository) SumByFridgeBetween(ctx context.Context, from, to time.Time) (map[string]float64, error) {
	var rows []struct {
		FridgeID string  `gorm:"column:fridge_id"`
		Total    float64 `gorm:"column:total"`
	}
	err := r.db.WithContext(ctx).
		Model(&fridgePaymentModel{}).
		Select("fridge_id, SUM(amount) AS total").
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("fridge_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	totals := make(map[string]float64, len(rows))
	for _, row := range rows {
		totals[row.FridgeID] = row.Total
	}
	return totals, nil
}
