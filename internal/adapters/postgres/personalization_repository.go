package postgres

import (
	"context"
	"errors"

	"github.com/leanlab/loyalty-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type personalizationRepository struct {
	db *gorm.DB
}

func (r *personalizationRepository) GetByUser(ctx context.Context, userID string) (domain.PersonalizationRecord, error) {
	var rec personalizationModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PersonalizationRecord{}, domain.ErrNotFound
		}
		return domain.PersonalizationRecord{}, err
	}
	return domain.PersonalizationRecord{
		UserID:         rec.UserID,
		BaseMultiplier: rec.BaseMultiplier,
		StreakWeeks:    rec.StreakWeeks,
		RetentionScore: rec.RetentionScore,
		NextMessage:    rec.NextMessage,
		UpdatedAt:      rec.UpdatedAt,
	}, nil
}

func (r *personalizationRepository) Upsert(ctx context.Context, record domain.PersonalizationRecord) error {
	rec := personalizationModel{
		UserID:         record.UserID,
		BaseMultiplier: record.BaseMultiplier,
		StreakWeeks:    record.StreakWeeks,
		RetentionScore: record.RetentionScore,
		NextMessage:    record.NextMessage,
		UpdatedAt:      record.UpdatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"base_multiplier": rec.BaseMultiplier,
			"streak_weeks":    rec.StreakWeeks,
			"retention_score": rec.RetentionScore,
			"next_message":    rec.NextMessage,
			"updated_at":      rec.UpdatedAt,
		}),
	}).Create(&rec).Error
}
