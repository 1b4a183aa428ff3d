package postgres

import (
	"context"
	"time"

	"github.com/leanlab/loyalty-engine/internal/domain"
	"gorm.io/gorm"
)

type statsRepository struct {
	db *gorm.DB
}

// ActiveUserIDs returns users with any order or approved review since the
// cutoff. The union keeps review-only users inside the analysis population.
func (r *statsRepository) ActiveUserIDs(ctx context.Context, since time.Time) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).Raw(`
		SELECT user_id FROM orders WHERE created_at >= ?
		UNION
		SELECT user_id FROM meal_reviews WHERE created_at >= ?`,
		since, since,
	).Scan(&userIDs).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

// fullOrderWeek is the order count that maps to an order frequency of 1.
// Two orders a week over the window saturates the factor.
const fullOrderWeek = 2

// FourWeekStats aggregates per-week activity for the trailing four whole
// weeks ending at the current week start. Frequencies are normalized to
// [0,1]; the streak counts consecutive active weeks back from the most
// recent one.
func (r *statsRepository) FourWeekStats(ctx context.Context, userID string, now time.Time) (domain.EngagementStats, error) {
	windowEnd := domain.StartOfWeek(now)
	windowStart := windowEnd.AddDate(0, 0, -28)

	var orderRows []struct {
		WeekStart time.Time `gorm:"column:week_start"`
		Count     int       `gorm:"column:count"`
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT date_trunc('week', created_at AT TIME ZONE 'UTC') AS week_start, COUNT(*) AS count
		FROM orders
		WHERE user_id = ? AND status = ? AND created_at >= ? AND created_at < ?
		GROUP BY 1`,
		userID, domain.OrderStatusCompleted, windowStart, windowEnd,
	).Scan(&orderRows).Error
	if err != nil {
		return domain.EngagementStats{}, err
	}

	var reviewCount int
	err = r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM meal_reviews
		WHERE user_id = ? AND status = ? AND created_at >= ? AND created_at < ?`,
		userID, domain.ReviewStatusApproved, windowStart, windowEnd,
	).Scan(&reviewCount).Error
	if err != nil {
		return domain.EngagementStats{}, err
	}

	ordersByWeek := make(map[string]int, len(orderRows))
	totalOrders := 0
	for _, row := range orderRows {
		ordersByWeek[row.WeekStart.UTC().Format("2006-01-02")] = row.Count
		totalOrders += row.Count
	}

	activeWeeks := 0
	streak := 0
	streakBroken := false
	for i := 1; i <= 4; i++ {
		week := windowEnd.AddDate(0, 0, -7*i).Format("2006-01-02")
		if ordersByWeek[week] > 0 {
			activeWeeks++
			if !streakBroken {
				streak++
			}
		} else {
			streakBroken = true
		}
	}

	orderFreq := float64(totalOrders) / float64(4*fullOrderWeek)
	if orderFreq > 1 {
		orderFreq = 1
	}
	reviewFreq := float64(reviewCount) / 4
	if reviewFreq > 1 {
		reviewFreq = 1
	}

	return domain.EngagementStats{
		WeeksActive: float64(activeWeeks) / 4,
		OrderFreq:   orderFreq,
		ReviewFreq:  reviewFreq,
		StreakWeeks: streak,
	}, nil
}
