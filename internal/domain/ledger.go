package domain

import (
	"strings"
	"time"
)

type EntryType string

const (
	EntryTypeEarn     EntryType = "earn"
	EntryTypeReferral EntryType = "referral"
	EntryTypeReview   EntryType = "review"
)

// LedgerEntry is one immutable credit grant. Exactly one of OrderID,
// ReferralID and ReviewID is set, matching the entry type; that pair is the
// idempotency key for the triggering business event.
type LedgerEntry struct {
	EntryID    string         `json:"entry_id"`
	UserID     string         `json:"user_id"`
	Type       EntryType      `json:"type"`
	Amount     float64        `json:"amount"`
	OrderID    string         `json:"order_id,omitempty"`
	ReferralID string         `json:"referral_id,omitempty"`
	ReviewID   string         `json:"review_id,omitempty"`
	Note       string         `json:"note,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// TriggerID returns the triggering entity id for the entry's type.
func (e LedgerEntry) TriggerID() string {
	switch e.Type {
	case EntryTypeEarn:
		return e.OrderID
	case EntryTypeReferral:
		return e.ReferralID
	case EntryTypeReview:
		return e.ReviewID
	default:
		return ""
	}
}

// Validate checks the single-trigger invariant before an insert is attempted.
func (e LedgerEntry) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrInvalidInput
	}
	if e.Amount < 0 {
		return ErrInvalidInput
	}
	set := 0
	for _, id := range []string{e.OrderID, e.ReferralID, e.ReviewID} {
		if strings.TrimSpace(id) != "" {
			set++
		}
	}
	if set != 1 || strings.TrimSpace(e.TriggerID()) == "" {
		return ErrInvalidInput
	}
	return nil
}

// Wallet is the per-user running balance, stored separately from the ledger
// so reads stay cheap. It only ever moves together with a newly created
// ledger entry.
type Wallet struct {
	UserID    string    `json:"user_id"`
	Balance   float64   `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PersonalizationRecord is the latest weekly-analysis snapshot for a user.
// It is fully overwritten each cycle and read at order-completion time for
// the earn multiplier.
type PersonalizationRecord struct {
	UserID         string    `json:"user_id"`
	BaseMultiplier float64   `json:"base_multiplier"`
	StreakWeeks    int       `json:"streak_weeks"`
	RetentionScore int       `json:"retention_score"`
	NextMessage    string    `json:"next_message"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AnalyticsEvent is an append-only KPI fact. Emission is best effort: losing
// one must never roll back the ledger write it describes.
type AnalyticsEvent struct {
	EventID   string         `json:"event_id"`
	Event     string         `json:"event"`
	UserID    string         `json:"user_id,omitempty"`
	OrderID   string         `json:"order_id,omitempty"`
	Amount    *float64       `json:"amount,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

const (
	OrderStatusCompleted = "completed"
	ReviewStatusApproved = "approved"
)

// Order is the read-side view of a meal order needed for earn credits.
type Order struct {
	OrderID         string
	UserID          string
	Status          string
	MealCount       int
	Subtotal        float64
	CreditsRedeemed float64
	IsSubscription  bool
	CreatedAt       time.Time
}

type Referral struct {
	ReferralID       string
	ReferrerUserID   string
	ReferredUserID   string
	Converted        bool
	ConvertedOrderID string
}

type Review struct {
	ReviewID  string
	UserID    string
	Status    string
	CreatedAt time.Time
}

// Fridge and InventoryLevel back the daily sales report and restock alerts.
type Fridge struct {
	FridgeID          string
	LowStockThreshold int
}

type InventoryLevel struct {
	FridgeID  string
	ProductID string
	Quantity  int
}
