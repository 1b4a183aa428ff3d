package postgres

import (
	"context"

	"github.com/leanlab/loyalty-engine/internal/domain"
	"gorm.io/gorm"
)

type analyticsRepository struct {
	db *gorm.DB
}

func (r *analyticsRepository) Insert(ctx context.Context, event domain.AnalyticsEvent) error {
	rec := kpiEventModel{
		EventID:   event.EventID,
		Event:     event.Event,
		UserID:    nullableString(event.UserID),
		OrderID:   nullableString(event.OrderID),
		Amount:    event.Amount,
		Meta:      marshalMeta(event.Meta),
		CreatedAt: event.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

// RefreshViews rebuilds the rollup consumed by the ops dashboard.
// CONCURRENTLY keeps dashboard reads alive during the rebuild.
func (r *analyticsRepository) RefreshViews(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Exec("REFRESH MATERIALIZED VIEW CONCURRENTLY kpi_daily_rollup").Error
}
