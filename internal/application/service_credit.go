package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/leanlab/loyalty-engine/internal/domain"
)

// CreditOutcome reports what a credit trigger did. AlreadyProcessed is a
// successful no-op, never an error: the caller is expected to ack the
// delivery and move on.
type CreditOutcome struct {
	Entry            domain.LedgerEntry
	Amount           float64
	Rate             float64
	Credited         bool
	AlreadyProcessed bool
	CapReached       bool
}

// OrderCompleted credits earn for a completed order. The multiplier comes
// from the latest personalization snapshot and defaults to 1 when none
// exists.
func (s *Service) OrderCompleted(ctx context.Context, orderID string) (CreditOutcome, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return CreditOutcome{}, fmt.Errorf("%w: order_id required", domain.ErrInvalidInput)
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return CreditOutcome{}, err
	}
	if order.Status != domain.OrderStatusCompleted {
		return CreditOutcome{}, fmt.Errorf("%w: order not completed", domain.ErrStateConflict)
	}

	multiplier := 1.0
	if record, err := s.personalization.GetByUser(ctx, order.UserID); err == nil && record.BaseMultiplier > 0 {
		multiplier = record.BaseMultiplier
	}
	earn := domain.CalculateEarn(domain.EarnInput{
		Subtotal:        order.Subtotal,
		CreditsRedeemed: order.CreditsRedeemed,
		MealCount:       order.MealCount,
		IsSubscription:  order.IsSubscription,
		Multiplier:      multiplier,
	})
	if earn.Credits <= 0 {
		return CreditOutcome{Rate: earn.Rate}, nil
	}

	amount := earn.Credits
	entry := domain.LedgerEntry{
		EntryID:   uuid.NewString(),
		UserID:    order.UserID,
		Type:      domain.EntryTypeEarn,
		Amount:    amount,
		OrderID:   order.OrderID,
		Note:      fmt.Sprintf("earn %.1f%% on $%.2f", earn.Rate*100, earn.Earnable),
		CreatedAt: s.nowFn(),
	}
	credited, err := s.applyCredit(ctx, entry, domain.AnalyticsEvent{
		Event:   domain.EventOrderCompleted,
		UserID:  order.UserID,
		OrderID: order.OrderID,
		Amount:  &amount,
		Meta:    map[string]any{"meal_count": order.MealCount, "rate": earn.Rate},
	})
	if err != nil {
		return CreditOutcome{}, err
	}
	return CreditOutcome{
		Entry:            entry,
		Amount:           amount,
		Rate:             earn.Rate,
		Credited:         credited,
		AlreadyProcessed: !credited,
	}, nil
}

// ReferralConverted grants the fixed referral bonus to the referrer once the
// referral has converted.
func (s *Service) ReferralConverted(ctx context.Context, referralID string) (CreditOutcome, error) {
	referralID = strings.TrimSpace(referralID)
	if referralID == "" {
		return CreditOutcome{}, fmt.Errorf("%w: referral_id required", domain.ErrInvalidInput)
	}
	referral, err := s.referrals.GetByID(ctx, referralID)
	if err != nil {
		return CreditOutcome{}, err
	}
	if !referral.Converted {
		return CreditOutcome{}, fmt.Errorf("%w: referral not converted", domain.ErrStateConflict)
	}

	amount := s.cfg.ReferralBonus
	entry := domain.LedgerEntry{
		EntryID:    uuid.NewString(),
		UserID:     referral.ReferrerUserID,
		Type:       domain.EntryTypeReferral,
		Amount:     amount,
		ReferralID: referral.ReferralID,
		Note:       "referral conversion bonus",
		Meta:       map[string]any{"referred_user_id": referral.ReferredUserID, "order_id": referral.ConvertedOrderID},
		CreatedAt:  s.nowFn(),
	}
	credited, err := s.applyCredit(ctx, entry, domain.AnalyticsEvent{
		Event:   domain.EventReferralConverted,
		UserID:  referral.ReferrerUserID,
		OrderID: referral.ConvertedOrderID,
		Amount:  &amount,
		Meta:    map[string]any{"referral_id": referral.ReferralID, "referred_user_id": referral.ReferredUserID},
	})
	if err != nil {
		return CreditOutcome{}, err
	}
	return CreditOutcome{
		Entry:            entry,
		Amount:           amount,
		Credited:         credited,
		AlreadyProcessed: !credited,
	}, nil
}

// ReviewApproved grants the review bonus subject to the weekly cap. Hitting
// the cap is a successful no-op so the delivery is not retried forever.
func (s *Service) ReviewApproved(ctx context.Context, reviewID string) (CreditOutcome, error) {
	reviewID = strings.TrimSpace(reviewID)
	if reviewID == "" {
		return CreditOutcome{}, fmt.Errorf("%w: review_id required", domain.ErrInvalidInput)
	}
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return CreditOutcome{}, err
	}
	if review.Status != domain.ReviewStatusApproved {
		return CreditOutcome{}, fmt.Errorf("%w: review not approved", domain.ErrStateConflict)
	}

	if existing, err := s.ledger.FindByTrigger(ctx, review.ReviewID, domain.EntryTypeReview); err != nil {
		return CreditOutcome{}, err
	} else if existing != nil {
		return CreditOutcome{Entry: *existing, Amount: existing.Amount, AlreadyProcessed: true}, nil
	}

	weekStart := domain.StartOfWeek(s.nowFn())
	count, err := s.ledger.CountByUserTypeSince(ctx, review.UserID, domain.EntryTypeReview, weekStart)
	if err != nil {
		return CreditOutcome{}, err
	}
	if !domain.CanAwardReviewCredit(count, s.cfg.WeeklyReviewCap) {
		return CreditOutcome{CapReached: true}, nil
	}

	amount := s.cfg.ReviewBonus
	entry := domain.LedgerEntry{
		EntryID:   uuid.NewString(),
		UserID:    review.UserID,
		Type:      domain.EntryTypeReview,
		Amount:    amount,
		ReviewID:  review.ReviewID,
		Note:      "approved review bonus",
		CreatedAt: s.nowFn(),
	}
	credited, err := s.applyCredit(ctx, entry, domain.AnalyticsEvent{
		Event:  domain.EventReviewApproved,
		UserID: review.UserID,
		Amount: &amount,
		Meta:   map[string]any{"review_id": review.ReviewID},
	})
	if err != nil {
		return CreditOutcome{}, err
	}
	return CreditOutcome{
		Entry:            entry,
		Amount:           amount,
		Credited:         credited,
		AlreadyProcessed: !credited,
	}, nil
}

// applyCredit is the single write path for credits: at most one ledger entry
// per (triggering id, type) and exactly one wallet increment for the winning
// insert. The upfront lookup is a fast path only; the store's uniqueness
// constraint resolves concurrent duplicates, and the loser skips the wallet.
func (s *Service) applyCredit(ctx context.Context, entry domain.LedgerEntry, kpi domain.AnalyticsEvent) (bool, error) {
	if err := entry.Validate(); err != nil {
		return false, err
	}
	existing, err := s.ledger.FindByTrigger(ctx, entry.TriggerID(), entry.Type)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	if err := s.ledger.Insert(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Raced with another delivery and lost; the winner owns the
			// wallet increment.
			return false, nil
		}
		return false, err
	}

	now := s.nowFn()
	if err := s.wallets.EnsureExists(ctx, entry.UserID, now); err != nil {
		return false, err
	}
	if err := s.wallets.Increment(ctx, entry.UserID, entry.Amount, now); err != nil {
		return false, err
	}

	s.emitKPI(ctx, kpi)
	return true, nil
}

// emitKPI writes to the analytics side channel. Failures are logged and
// swallowed: the ledger write they describe already happened.
func (s *Service) emitKPI(ctx context.Context, event domain.AnalyticsEvent) {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.nowFn()
	}
	if err := s.analytics.Insert(ctx, event); err != nil {
		slog.Default().WarnContext(ctx, "kpi event emission failed",
			"operation", "emit_kpi",
			"outcome", "swallowed",
			"event", event.Event,
			"error", err,
		)
	}
}
