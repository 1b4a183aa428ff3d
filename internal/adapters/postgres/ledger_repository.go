package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/leanlab/loyalty-engine/internal/domain"
	"gorm.io/gorm"
)

type ledgerRepository struct {
	db *gorm.DB
}

func triggerColumn(entryType domain.EntryType) string {
	switch entryType {
	case domain.EntryTypeEarn:
		return "order_id"
	case domain.EntryTypeReferral:
		return "referral_id"
	default:
		return "review_id"
	}
}

func (r *ledgerRepository) FindByTrigger(ctx context.Context, triggerID string, entryType domain.EntryType) (*domain.LedgerEntry, error) {
	var rec ledgerEntryModel
	err := r.db.WithContext(ctx).
		Where(triggerColumn(entryType)+" = ?", triggerID).
		Where("type = ?", string(entryType)).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	entry := toDomainLedgerEntry(rec)
	return &entry, nil
}

func (r *ledgerRepository) Insert(ctx context.Context, entry domain.LedgerEntry) error {
	rec := ledgerEntryModel{
		EntryID:    entry.EntryID,
		UserID:     entry.UserID,
		Type:       string(entry.Type),
		Amount:     entry.Amount,
		OrderID:    nullableString(entry.OrderID),
		ReferralID: nullableString(entry.ReferralID),
		ReviewID:   nullableString(entry.ReviewID),
		Note:       entry.Note,
		Meta:       marshalMeta(entry.Meta),
		CreatedAt:  entry.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *ledgerRepository) CountByUserTypeSince(ctx context.Context, userID string, entryType domain.EntryType, since time.Time) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&ledgerEntryModel{}).
		Where("user_id = ?", userID).
		Where("type = ?", string(entryType)).
		Where("created_at >= ?", since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *ledgerRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.LedgerEntry, int, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&ledgerEntryModel{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []ledgerEntryModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	result := make([]domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainLedgerEntry(row))
	}
	return result, int(total), nil
}

func toDomainLedgerEntry(row ledgerEntryModel) domain.LedgerEntry {
	return domain.LedgerEntry{
		EntryID:    row.EntryID,
		UserID:     row.UserID,
		Type:       domain.EntryType(row.Type),
		Amount:     row.Amount,
		OrderID:    derefString(row.OrderID),
		ReferralID: derefString(row.ReferralID),
		ReviewID:   derefString(row.ReviewID),
		Note:       row.Note,
		Meta:       unmarshalMeta(row.Meta),
		CreatedAt:  row.CreatedAt,
	}
}
