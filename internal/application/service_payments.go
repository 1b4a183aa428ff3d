package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/leanlab/loyalty-engine/internal/domain"
)

// IngestOutcome describes the disposition of one processor webhook delivery.
// Duplicate and MissingFridgeID are both acked dispositions: the processor
// must not retry either.
type IngestOutcome struct {
	PaymentID       string
	StripePaymentID string
	Amount          float64
	Currency        string
	FridgeID        string
	Duplicate       bool
	MissingFridgeID bool
}

// IngestPaymentEvent verifies, parses, and records a card-processor webhook
// delivery. Signature verification happens before the body is parsed; a
// missing signing secret is a deployment fault surfaced as ErrUnavailable,
// never an open door.
func (s *Service) IngestPaymentEvent(ctx context.Context, body []byte, signatureHeader string) (IngestOutcome, error) {
	if s.verifier == nil {
		return IngestOutcome{}, fmt.Errorf("%w: webhook signing secret not configured", domain.ErrUnavailable)
	}
	if !s.verifier.Verify(body, signatureHeader) {
		return IngestOutcome{}, fmt.Errorf("%w: payment event signature", domain.ErrInvalidSignature)
	}

	event, err := domain.ParsePaymentEvent(body)
	if err != nil {
		return IngestOutcome{}, err
	}
	stripePaymentID := event.PaymentID()
	if stripePaymentID == "" {
		return IngestOutcome{}, fmt.Errorf("%w: payment event carries no payment id", domain.ErrInvalidInput)
	}

	fridgeID := event.FridgeID()
	if fridgeID == "" {
		// Acked without a write so the processor stops retrying; the raw
		// event stays in the processor dashboard for manual repair.
		slog.Default().WarnContext(ctx, "payment event has no fridge id",
			"operation", "ingest_payment",
			"outcome", "soft_rejected",
			"stripe_payment_id", stripePaymentID,
			"event_type", event.Type,
		)
		return IngestOutcome{StripePaymentID: stripePaymentID, MissingFridgeID: true}, nil
	}

	amount := domain.RoundCurrency(float64(event.AmountCents()) / 100)
	record := domain.PaymentRecord{
		PaymentID:       uuid.NewString(),
		StripePaymentID: stripePaymentID,
		Amount:          amount,
		Currency:        event.Currency(),
		FridgeID:        fridgeID,
		Meta:            json.RawMessage(body),
		CreatedAt:       s.nowFn(),
	}

	dedupKey := "payment:" + stripePaymentID
	if s.dedup != nil {
		if seen, err := s.dedup.Seen(ctx, dedupKey); err == nil && seen {
			return IngestOutcome{
				StripePaymentID: stripePaymentID,
				Amount:          amount,
				Currency:        record.Currency,
				FridgeID:        fridgeID,
				Duplicate:       true,
			}, nil
		}
	}

	if err := s.payments.Insert(ctx, record); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return IngestOutcome{
				StripePaymentID: stripePaymentID,
				Amount:          amount,
				Currency:        record.Currency,
				FridgeID:        fridgeID,
				Duplicate:       true,
			}, nil
		}
		return IngestOutcome{}, err
	}

	if s.dedup != nil {
		if err := s.dedup.Mark(ctx, dedupKey, s.cfg.WebhookDedupTTL); err != nil {
			slog.Default().DebugContext(ctx, "payment dedup mark failed",
				"operation", "ingest_payment",
				"stripe_payment_id", stripePaymentID,
				"error", err,
			)
		}
	}

	s.emitKPI(ctx, domain.AnalyticsEvent{
		Event:  domain.EventFridgeSale,
		Amount: &amount,
		Meta: map[string]any{
			"fridge_id":         fridgeID,
			"stripe_payment_id": stripePaymentID,
			"currency":          record.Currency,
			"event_type":        event.Type,
		},
	})

	return IngestOutcome{
		PaymentID:       record.PaymentID,
		StripePaymentID: stripePaymentID,
		Amount:          amount,
		Currency:        record.Currency,
		FridgeID:        fridgeID,
	}, nil
}
