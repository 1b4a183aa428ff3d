package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leanlab/loyalty-engine/internal/domain"
)

// AnalysisOutcome summarizes one weekly run. Skipped counts users whose
// stats could not be read; their previous snapshot stays in force.
type AnalysisOutcome struct {
	Processed int
	Skipped   int
}

// RunWeeklyAnalysis recomputes the personalization snapshot for every user
// active in the lookback window. Each user is independent: a failure for one
// is logged and skipped, not fatal to the run.
func (s *Service) RunWeeklyAnalysis(ctx context.Context) (AnalysisOutcome, error) {
	now := s.nowFn()
	since := now.Add(-s.cfg.ActiveUserLookback)
	userIDs, err := s.stats.ActiveUserIDs(ctx, since)
	if err != nil {
		return AnalysisOutcome{}, fmt.Errorf("list active users: %w", err)
	}

	var outcome AnalysisOutcome
	for _, userID := range userIDs {
		stats, err := s.stats.FourWeekStats(ctx, userID, now)
		if err != nil {
			slog.Default().WarnContext(ctx, "engagement stats read failed",
				"operation", "weekly_analysis",
				"outcome", "user_skipped",
				"user_id", userID,
				"error", err,
			)
			outcome.Skipped++
			continue
		}

		score := domain.EngagementScore(stats.WeeksActive, stats.OrderFreq, stats.ReviewFreq)
		multiplier := domain.ComputeMultiplier(score, stats.StreakWeeks)
		record := domain.PersonalizationRecord{
			UserID:         userID,
			BaseMultiplier: multiplier,
			StreakWeeks:    stats.StreakWeeks,
			RetentionScore: score,
			NextMessage:    s.nextMessage(ctx, multiplier, stats.StreakWeeks, score),
			UpdatedAt:      now,
		}
		if err := s.personalization.Upsert(ctx, record); err != nil {
			slog.Default().WarnContext(ctx, "personalization upsert failed",
				"operation", "weekly_analysis",
				"outcome", "user_skipped",
				"user_id", userID,
				"error", err,
			)
			outcome.Skipped++
			continue
		}
		outcome.Processed++
	}

	if err := s.analytics.RefreshViews(ctx); err != nil {
		slog.Default().WarnContext(ctx, "kpi view refresh failed",
			"operation", "weekly_analysis",
			"outcome", "swallowed",
			"error", err,
		)
	}
	return outcome, nil
}

// nextMessage asks the generator for a short nudge and falls back to a
// deterministic template on any failure or empty result.
func (s *Service) nextMessage(ctx context.Context, multiplier float64, streak, score int) string {
	fallback := fmt.Sprintf("Multiplier %.2fx locked in. Keep the %d-week streak going!", multiplier, streak)
	if s.generator == nil {
		return fallback
	}
	prompt := fmt.Sprintf(
		"Write one upbeat sentence (max 20 words) for a meal-subscription customer. "+
			"Their loyalty multiplier is %.2fx, their activity streak is %d weeks, "+
			"and their engagement score is %d out of 100. No emojis, no exclamation spam.",
		multiplier, streak, score,
	)
	message, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		slog.Default().DebugContext(ctx, "message generation failed",
			"operation", "weekly_analysis",
			"outcome", "fallback_message",
			"error", err,
		)
		return fallback
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return fallback
	}
	return message
}

// DailyReportOutcome summarizes one daily reporting run.
type DailyReportOutcome struct {
	SalesFridges  int
	RestockAlerts int
}

// RunDailyReports emits per-fridge sales totals for the previous UTC day and
// a restock alert for every fridge with inventory at or below its threshold.
func (s *Service) RunDailyReports(ctx context.Context) (DailyReportOutcome, error) {
	now := s.nowFn()
	dayEnd := now.Truncate(24 * time.Hour)
	dayStart := dayEnd.Add(-24 * time.Hour)

	var outcome DailyReportOutcome
	totals, err := s.payments.SumByFridgeBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return DailyReportOutcome{}, fmt.Errorf("sum fridge sales: %w", err)
	}
	for fridgeID, total := range totals {
		amount := total
		s.emitKPI(ctx, domain.AnalyticsEvent{
			Event:  domain.EventFridgeDailySales,
			Amount: &amount,
			Meta: map[string]any{
				"fridge_id": fridgeID,
				"day":       dayStart.Format("2006-01-02"),
			},
		})
		outcome.SalesFridges++
	}

	fridges, err := s.fridges.ListFridges(ctx)
	if err != nil {
		return outcome, fmt.Errorf("list fridges: %w", err)
	}
	for _, fridge := range fridges {
		threshold := fridge.LowStockThreshold
		if threshold <= 0 {
			threshold = 3
		}
		low, err := s.fridges.LowStock(ctx, fridge.FridgeID, threshold)
		if err != nil {
			slog.Default().WarnContext(ctx, "inventory read failed",
				"operation", "daily_reports",
				"outcome", "fridge_skipped",
				"fridge_id", fridge.FridgeID,
				"error", err,
			)
			continue
		}
		if len(low) == 0 {
			continue
		}
		products := make([]string, 0, len(low))
		for _, level := range low {
			products = append(products, level.ProductID)
		}
		s.emitKPI(ctx, domain.AnalyticsEvent{
			Event: domain.EventFridgeRestockAlert,
			Meta: map[string]any{
				"fridge_id": fridge.FridgeID,
				"threshold": threshold,
				"products":  products,
			},
		})
		outcome.RestockAlerts++
	}
	return outcome, nil
}

// RefreshKPIs force-refreshes the analytics views outside the weekly cycle.
func (s *Service) RefreshKPIs(ctx context.Context, actor Actor) error {
	if !actor.isPrivileged() {
		return fmt.Errorf("%w: admin role required", domain.ErrForbidden)
	}
	if err := s.analytics.RefreshViews(ctx); err != nil {
		return fmt.Errorf("refresh kpi views: %w", err)
	}
	return nil
}
