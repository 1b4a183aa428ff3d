package unit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/leanlab/loyalty-engine/internal/domain"
)

// In-memory stores used across the service tests. The ledger fake enforces
// the same uniqueness rule as the database partial indexes so concurrency
// behavior can be exercised without Postgres.

type memLedger struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry
}

func (m *memLedger) FindByTrigger(_ context.Context, triggerID string, entryType domain.EntryType) (*domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Type == entryType && e.TriggerID() == triggerID {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

func (m *memLedger) Insert(_ context.Context, entry domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Type == entry.Type && e.TriggerID() == entry.TriggerID() {
			return domain.ErrConflict
		}
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memLedger) CountByUserTypeSince(_ context.Context, userID string, entryType domain.EntryType, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.entries {
		if e.UserID == userID && e.Type == entryType && !e.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memLedger) ListByUser(_ context.Context, userID string, limit, offset int) ([]domain.LedgerEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.LedgerEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			all = append(all, e)
		}
	}
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

type memWallets struct {
	mu         sync.Mutex
	balances   map[string]float64
	increments int
}

func newMemWallets() *memWallets {
	return &memWallets{balances: make(map[string]float64)}
}

func (m *memWallets) EnsureExists(_ context.Context, userID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[userID]; !ok {
		m.balances[userID] = 0
	}
	return nil
}

func (m *memWallets) Increment(_ context.Context, userID string, delta float64, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[userID]; !ok {
		return domain.ErrNotFound
	}
	m.balances[userID] += delta
	m.increments++
	return nil
}

func (m *memWallets) GetByUser(_ context.Context, userID string) (domain.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[userID]
	if !ok {
		return domain.Wallet{}, domain.ErrNotFound
	}
	return domain.Wallet{UserID: userID, Balance: balance}, nil
}

type memPayments struct {
	mu      sync.Mutex
	records []domain.PaymentRecord
}

func (m *memPayments) Insert(_ context.Context, record domain.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.StripePaymentID == record.StripePaymentID {
			return domain.ErrConflict
		}
	}
	m.records = append(m.records, record)
	return nil
}

func (m *memPayments) SumByFridgeBetween(_ context.Context, from, to time.Time) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	totals := make(map[string]float64)
	for _, r := range m.records {
		if !r.CreatedAt.Before(from) && r.CreatedAt.Before(to) {
			totals[r.FridgeID] += r.Amount
		}
	}
	return totals, nil
}

type memPersonalization struct {
	mu      sync.Mutex
	records map[string]domain.PersonalizationRecord
}

func newMemPersonalization() *memPersonalization {
	return &memPersonalization{records: make(map[string]domain.PersonalizationRecord)}
}

func (m *memPersonalization) GetByUser(_ context.Context, userID string) (domain.PersonalizationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[userID]
	if !ok {
		return domain.PersonalizationRecord{}, domain.ErrNotFound
	}
	return record, nil
}

func (m *memPersonalization) Upsert(_ context.Context, record domain.PersonalizationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.UserID] = record
	return nil
}

type memAnalytics struct {
	mu       sync.Mutex
	events   []domain.AnalyticsEvent
	refreshN int
	failNext bool
}

func (m *memAnalytics) Insert(_ context.Context, event domain.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return fmt.Errorf("analytics store down")
	}
	m.events = append(m.events, event)
	return nil
}

func (m *memAnalytics) RefreshViews(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshN++
	return nil
}

func (m *memAnalytics) countByName(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.events {
		if e.Event == name {
			count++
		}
	}
	return count
}

type memOrders struct {
	orders map[string]domain.Order
}

func (m *memOrders) GetByID(_ context.Context, orderID string) (domain.Order, error) {
	order, ok := m.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return order, nil
}

type memReferrals struct {
	referrals map[string]domain.Referral
}

func (m *memReferrals) GetByID(_ context.Context, referralID string) (domain.Referral, error) {
	referral, ok := m.referrals[referralID]
	if !ok {
		return domain.Referral{}, domain.ErrNotFound
	}
	return referral, nil
}

type memReviews struct {
	reviews map[string]domain.Review
}

func (m *memReviews) GetByID(_ context.Context, reviewID string) (domain.Review, error) {
	review, ok := m.reviews[reviewID]
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	return review, nil
}

type memStats struct {
	userIDs []string
	stats   map[string]domain.EngagementStats
}

func (m *memStats) ActiveUserIDs(_ context.Context, _ time.Time) ([]string, error) {
	return m.userIDs, nil
}

func (m *memStats) FourWeekStats(_ context.Context, userID string, _ time.Time) (domain.EngagementStats, error) {
	stats, ok := m.stats[userID]
	if !ok {
		return domain.EngagementStats{}, fmt.Errorf("no stats for %s", userID)
	}
	return stats, nil
}

type memFridges struct {
	fridges   []domain.Fridge
	inventory map[string][]domain.InventoryLevel
}

func (m *memFridges) ListFridges(_ context.Context) ([]domain.Fridge, error) {
	return m.fridges, nil
}

func (m *memFridges) LowStock(_ context.Context, fridgeID string, threshold int) ([]domain.InventoryLevel, error) {
	var low []domain.InventoryLevel
	for _, level := range m.inventory[fridgeID] {
		if level.Quantity <= threshold {
			low = append(low, level)
		}
	}
	return low, nil
}

type memDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemDedup() *memDedup {
	return &memDedup{seen: make(map[string]bool)}
}

func (m *memDedup) Seen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[key], nil
}

func (m *memDedup) Mark(_ context.Context, key string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[key] = true
	return nil
}

type acceptAllVerifier struct{}

func (acceptAllVerifier) Verify(_ []byte, _ string) bool { return true }

type rejectAllVerifier struct{}

func (rejectAllVerifier) Verify(_ []byte, _ string) bool { return false }

type failingGenerator struct{}

func (failingGenerator) Generate(_ context.Context, _ string) (string, error) {
	return "", fmt.Errorf("generation service unavailable")
}

type staticGenerator struct {
	message string
}

func (g staticGenerator) Generate(_ context.Context, _ string) (string, error) {
	return g.message, nil
}
