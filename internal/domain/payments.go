package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PaymentRecord is one ingested card-processor payment, unique on the
// processor's payment id so redelivered events collapse to a single row.
type PaymentRecord struct {
	PaymentID       string          `json:"payment_id"`
	StripePaymentID string          `json:"stripe_payment_id"`
	Amount          float64         `json:"amount"`
	Currency        string          `json:"currency"`
	FridgeID        string          `json:"fridge_id"`
	Meta            json.RawMessage `json:"meta,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PaymentEvent is the minimal shape parsed out of a processor webhook body.
// The object payload stays loosely typed because Stripe entities vary by
// event type; field access goes through the coalescing helpers below.
type PaymentEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object map[string]any `json:"object"`
	} `json:"data"`
}

func ParsePaymentEvent(raw []byte) (PaymentEvent, error) {
	var event PaymentEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return PaymentEvent{}, fmt.Errorf("%w: malformed payment event", ErrInvalidInput)
	}
	return event, nil
}

// FridgeID resolves the routing identifier from an ordered list of candidate
// fields: metadata keys first, then the checkout client reference. Empty
// string means the event carries no routing id and must be soft-rejected.
func (e PaymentEvent) FridgeID() string {
	obj := e.Data.Object
	meta, _ := obj["metadata"].(map[string]any)
	return coalesceString(
		meta["fridge_id"],
		meta["fridgeId"],
		meta["FRIDGE_ID"],
		obj["client_reference_id"],
		obj["client_reference"],
	)
}

// AmountCents picks the charged amount across common Stripe entities in
// priority order.
func (e PaymentEvent) AmountCents() int64 {
	obj := e.Data.Object
	for _, key := range []string{"amount_received", "amount_total", "amount", "amount_subtotal"} {
		if v, ok := obj[key].(float64); ok {
			return int64(v)
		}
	}
	return 0
}

// PaymentID prefers the payment intent, then the object id, then the event id.
func (e PaymentEvent) PaymentID() string {
	obj := e.Data.Object
	if id := coalesceString(obj["payment_intent"], obj["id"]); id != "" {
		return id
	}
	return strings.TrimSpace(e.ID)
}

func (e PaymentEvent) Currency() string {
	obj := e.Data.Object
	currency := coalesceString(obj["currency"], obj["currency_code"])
	if currency == "" {
		currency = "usd"
	}
	return strings.ToLower(currency)
}

func coalesceString(candidates ...any) string {
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(candidate)); s != "" {
			return s
		}
	}
	return ""
}
