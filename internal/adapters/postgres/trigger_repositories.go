package postgres

import (
	"context"
	"errors"

	"github.com/leanlab/loyalty-engine/internal/domain"
	"gorm.io/gorm"
)

type orderRepository struct {
	db *gorm.DB
}

func (r *orderRepository) GetByID(ctx context.Context, orderID string) (domain.Order, error) {
	var rec orderModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, err
	}
	return domain.Order{
		OrderID:         rec.OrderID,
		UserID:          rec.UserID,
		Status:          rec.Status,
		MealCount:       rec.MealCount,
		Subtotal:        rec.Subtotal,
		CreditsRedeemed: rec.CreditsRedeemed,
		IsSubscription:  rec.IsSubscription,
		CreatedAt:       rec.CreatedAt,
	}, nil
}

type referralRepository struct {
	db *gorm.DB
}

func (r *referralRepository) GetByID(ctx context.Context, referralID string) (domain.Referral, error) {
	var rec referralModel
	if err := r.db.WithContext(ctx).Where("referral_id = ?", referralID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Referral{}, domain.ErrNotFound
		}
		return domain.Referral{}, err
	}
	return domain.Referral{
		ReferralID:       rec.ReferralID,
		ReferrerUserID:   rec.ReferrerUserID,
		ReferredUserID:   rec.ReferredUserID,
		Converted:        rec.Converted,
		ConvertedOrderID: derefString(rec.ConvertedOrderID),
	}, nil
}

type reviewRepository struct {
	db *gorm.DB
}

func (r *reviewRepository) GetByID(ctx context.Context, reviewID string) (domain.Review, error) {
	var rec reviewModel
	if err := r.db.WithContext(ctx).Where("review_id = ?", reviewID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Review{}, domain.ErrNotFound
		}
		return domain.Review{}, err
	}
	return domain.Review{
		ReviewID:  rec.ReviewID,
		UserID:    rec.UserID,
		Status:    rec.Status,
		CreatedAt: rec.CreatedAt,
	}, nil
}

type fridgeRepository struct {
	db *gorm.DB
}

func (r *fridgeRepository) ListFridges(ctx context.Context) ([]domain.Fridge, error) {
	var rows []fridgeModel
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Fridge, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.Fridge{
			FridgeID:          row.FridgeID,
			LowStockThreshold: row.LowStockThreshold,
		})
	}
	return result, nil
}

func (r *fridgeRepository) LowStock(ctx context.Context, fridgeID string, threshold int) ([]domain.InventoryLevel, error) {
	var rows []fridgeInventoryModel
	err := r.db.WithContext(ctx).
		Where("fridge_id = ?", fridgeID).
		Where("quantity <= ?", threshold).
		Order("quantity ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.InventoryLevel, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.InventoryLevel{
			FridgeID:  row.FridgeID,
			ProductID: row.ProductID,
			Quantity:  row.Quantity,
		})
	}
	return result, nil
}
