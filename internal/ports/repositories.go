package ports

import (
	"context"
	"time"

	"github.com/leanlab/loyalty-engine/internal/domain"
)

// Triggering entities are owned by other services; this engine only reads
// them to validate state before crediting.

type OrderReader interface {
	GetByID(ctx context.Context, orderID string) (domain.Order, error)
}

type ReferralReader interface {
	GetByID(ctx context.Context, referralID string) (domain.Referral, error)
}

type ReviewReader interface {
	GetByID(ctx context.Context, reviewID string) (domain.Review, error)
}

// LedgerRepository persists immutable credit entries. Insert must surface
// domain.ErrConflict when the store's uniqueness constraint on
// (triggering id, type) rejects a duplicate; that conflict is the system's
// concurrency boundary, not the FindByTrigger fast path.
type LedgerRepository interface {
	FindByTrigger(ctx context.Context, triggerID string, entryType domain.EntryType) (*domain.LedgerEntry, error)
	Insert(ctx context.Context, entry domain.LedgerEntry) error
	CountByUserTypeSince(ctx context.Context, userID string, entryType domain.EntryType, since time.Time) (int, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.LedgerEntry, int, error)
}

// WalletRepository adjusts the running balance. Increment must be an atomic
// add at the store, never a read-modify-write in application code.
type WalletRepository interface {
	EnsureExists(ctx context.Context, userID string, at time.Time) error
	Increment(ctx context.Context, userID string, delta float64, at time.Time) error
	GetByUser(ctx context.Context, userID string) (domain.Wallet, error)
}

// PaymentRepository stores ingested processor payments. Insert surfaces
// domain.ErrConflict on a duplicate external payment id.
type PaymentRepository interface {
	Insert(ctx context.Context, record domain.PaymentRecord) error
	SumByFridgeBetween(ctx context.Context, from, to time.Time) (map[string]float64, error)
}

type PersonalizationRepository interface {
	GetByUser(ctx context.Context, userID string) (domain.PersonalizationRecord, error)
	Upsert(ctx context.Context, record domain.PersonalizationRecord) error
}

// AnalyticsRepository is the best-effort KPI side channel.
type AnalyticsRepository interface {
	Insert(ctx context.Context, event domain.AnalyticsEvent) error
	RefreshViews(ctx context.Context) error
}

// StatsReader exposes the rolling engagement read model consumed by the
// weekly analysis.
type StatsReader interface {
	ActiveUserIDs(ctx context.Context, since time.Time) ([]string, error)
	FourWeekStats(ctx context.Context, userID string, now time.Time) (domain.EngagementStats, error)
}

type FridgeReader interface {
	ListFridges(ctx context.Context) ([]domain.Fridge, error)
	LowStock(ctx context.Context, fridgeID string, threshold int) ([]domain.InventoryLevel, error)
}
