package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/leanlab/loyalty-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRepository struct {
	db *gorm.DB
}

func (r *walletRepository) EnsureExists(ctx context.Context, userID string, at time.Time) error {
	rec := walletModel{
		UserID:    userID,
		Balance:   0,
		CreatedAt: at,
		UpdatedAt: at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&rec).Error
}

// Increment runs the add inside the database so concurrent credits never
// lose updates.
func (r *walletRepository) Increment(ctx context.Context, userID string, delta float64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&walletModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", delta),
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *walletRepository) GetByUser(ctx context.Context, userID string) (domain.Wallet, error) {
	var rec walletModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Wallet{}, domain.ErrNotFound
		}
		return domain.Wallet{}, err
	}
	return domain.Wallet{
		UserID:    rec.UserID,
		Balance:   rec.Balance,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}
