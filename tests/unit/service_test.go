package unit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/leanlab/loyalty-engine/internal/application"
	"github.com/leanlab/loyalty-engine/internal/domain"
)

type testEnv struct {
	svc             *application.Service
	ledger          *memLedger
	wallets         *memWallets
	payments        *memPayments
	personalization *memPersonalization
	analytics       *memAnalytics
	orders          *memOrders
	referrals       *memReferrals
	reviews         *memReviews
	stats           *memStats
	fridges         *memFridges
	dedup           *memDedup
}

func newTestEnv(deps func(*application.Dependencies)) *testEnv {
	env := &testEnv{
		ledger:          &memLedger{},
		wallets:         newMemWallets(),
		payments:        &memPayments{},
		personalization: newMemPersonalization(),
		analytics:       &memAnalytics{},
		orders:          &memOrders{orders: make(map[string]domain.Order)},
		referrals:       &memReferrals{referrals: make(map[string]domain.Referral)},
		reviews:         &memReviews{reviews: make(map[string]domain.Review)},
		stats:           &memStats{stats: make(map[string]domain.EngagementStats)},
		fridges:         &memFridges{inventory: make(map[string][]domain.InventoryLevel)},
		dedup:           newMemDedup(),
	}
	d := application.Dependencies{
		Orders:          env.orders,
		Referrals:       env.referrals,
		Reviews:         env.reviews,
		Ledger:          env.ledger,
		Wallets:         env.wallets,
		Payments:        env.payments,
		Personalization: env.personalization,
		Analytics:       env.analytics,
		Stats:           env.stats,
		Fridges:         env.fridges,
		Verifier:        acceptAllVerifier{},
		Dedup:           env.dedup,
		Generator:       failingGenerator{},
	}
	if deps != nil {
		deps(&d)
	}
	env.svc = application.NewService(d)
	return env
}

func TestOrderCompletedCreditsAndReplaysIdempotently(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	env.orders.orders["order-1"] = domain.Order{
		OrderID:         "order-1",
		UserID:          "user-1",
		Status:          domain.OrderStatusCompleted,
		MealCount:       12,
		Subtotal:        144,
		CreditsRedeemed: 10,
		IsSubscription:  true,
	}

	first, err := env.svc.OrderCompleted(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if !first.Credited || first.AlreadyProcessed {
		t.Fatalf("first delivery outcome = %+v, want credited", first)
	}
	if first.Amount != 16.08 {
		t.Fatalf("amount = %v, want 16.08", first.Amount)
	}
	if first.Rate != 0.12 {
		t.Fatalf("rate = %v, want 0.12", first.Rate)
	}

	second, err := env.svc.OrderCompleted(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("replayed delivery: %v", err)
	}
	if second.Credited || !second.AlreadyProcessed {
		t.Fatalf("replay outcome = %+v, want already processed", second)
	}

	if got := len(env.ledger.entries); got != 1 {
		t.Fatalf("ledger entries = %d, want 1", got)
	}
	if env.wallets.increments != 1 {
		t.Fatalf("wallet increments = %d, want 1", env.wallets.increments)
	}
	if balance := env.wallets.balances["user-1"]; balance != 16.08 {
		t.Fatalf("balance = %v, want 16.08", balance)
	}
	if got := env.analytics.countByName(domain.EventOrderCompleted); got != 1 {
		t.Fatalf("kpi events = %d, want 1", got)
	}
}

func TestOrderCompletedConcurrentDeliveriesCreditOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	env.orders.orders["order-9"] = domain.Order{
		OrderID:   "order-9",
		UserID:    "user-9",
		Status:    domain.OrderStatusCompleted,
		MealCount: 4,
		Subtotal:  80,
	}

	var wg sync.WaitGroup
	outcomes := make([]application.CreditOutcome, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = env.svc.OrderCompleted(context.Background(), "order-9")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}
	credited := 0
	for _, outcome := range outcomes {
		if outcome.Credited {
			credited++
		}
	}
	if credited != 1 {
		t.Fatalf("credited outcomes = %d, want exactly 1", credited)
	}
	if got := len(env.ledger.entries); got != 1 {
		t.Fatalf("ledger entries = %d, want 1", got)
	}
	if env.wallets.increments != 1 {
		t.Fatalf("wallet increments = %d, want 1", env.wallets.increments)
	}
}

func TestOrderCompletedUsesPersonalizationMultiplier(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	env.orders.orders["order-2"] = domain.Order{
		OrderID:        "order-2",
		UserID:         "user-2",
		Status:         domain.OrderStatusCompleted,
		MealCount:      10,
		Subtotal:       100,
		IsSubscription: true,
	}
	env.personalization.records["user-2"] = domain.PersonalizationRecord{
		UserID:         "user-2",
		BaseMultiplier: 1.05,
	}

	outcome, err := env.svc.OrderCompleted(context.Background(), "order-2")
	if err != nil {
		t.Fatalf("order completed: %v", err)
	}
	if outcome.Rate != 0.126 {
		t.Fatalf("rate = %v, want 0.126", outcome.Rate)
	}
	if outcome.Amount != 12.60 {
		t.Fatalf("amount = %v, want 12.60", outcome.Amount)
	}
}

func TestOrderCompletedRejectsPendingOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	env.orders.orders["order-3"] = domain.Order{
		OrderID: "order-3",
		UserID:  "user-3",
		Status:  "pending",
	}

	_, err := env.svc.OrderCompleted(context.Background(), "order-3")
	if !errors.Is(err, domain.ErrStateConflict) {
		t.Fatalf("err = %v, want ErrStateConflict", err)
	}
	if len(env.ledger.entries) != 0 {
		t.Fatal("no ledger entry expected for pending order")
	}
}

func TestOrderCompletedValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	if _, err := env.svc.OrderCompleted(context.Background(), "  "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("blank id err = %v, want ErrInvalidInput", err)
	}
	if _, err := env.svc.OrderCompleted(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown id err = %v, want ErrNotFound", err)
	}
}

func TestOrderCompletedZeroCreditsSkipsWrite(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	env.orders.orders["order-4"] = domain.Order{
		OrderID:         "order-4",
		UserID:          "user-4",
		Status:          domain.OrderStatusCompleted,
		MealCount:       2,
		Subtotal:        10,
		CreditsRedeemed: 10,
	}

	outcome, err := env.svc.OrderCompleted(context.Background(), "order-4")
	if err != nil {
		t.Fatalf("order completed: %v", err)
	}
	if outcome.Credited || outcome.AlreadyProcessed {
		t.Fatalf("outcome = %+v, want plain no-op", outcome)
	}
	if len(env.ledger.entries) != 0 {
		t.Fatal("zero-credit order must not create a ledger entry")
	}
}

func TestReferralConvertedPaysFixedBonus(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	env.referrals.referrals["ref-1"] = domain.Referral{
		ReferralID:       "ref-1",
		ReferrerUserID:   "user-a",
		ReferredUserID:   "user-b",
		Converted:        true,
		ConvertedOrderID: "order-77",
	}

	outcome, err := env.svc.ReferralConverted(context.Background(), "ref-1")
	if err != nil {
		t.Fatalf("referral converted: %v", err)
	}
	if !outcome.Credited || outcome.Amount != 10 {
		t.Fatalf("outcome = %+v, want 10.00 credited", outcome)
	}
	if balance := env.wallets.balances["user-a"]; balance != 10 {
		t.Fatalf("referrer balance = %v, want 10", balance)
	}

	replay, err := env.svc.ReferralConverted(context.Background(), "ref-1")
	if err != nil {
		t.Fatalf("replayed conversion: %v", err)
	}
	if !replay.AlreadyProcessed {
		t.Fatalf("replay outcome = %+v, want already processed", replay)
	}
	if len(env.ledger.entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(env.ledger.entries))
	}
}

func TestReferralNotConvertedRejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	env.referrals.referrals["ref-2"] = domain.Referral{
		ReferralID:     "ref-2",
		ReferrerUserID: "user-a",
		Converted:      false,
	}

	_, err := env.svc.ReferralConverted(context.Background(), "ref-2")
	if !errors.Is(err, domain.ErrStateConflict) {
		t.Fatalf("err = %v, want ErrStateConflict", err)
	}
}

func TestReviewApprovedHonorsWeeklyCap(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("rev-%d", i)
		env.reviews.reviews[id] = domain.Review{
			ReviewID: id,
			UserID:   "user-r",
			Status:   domain.ReviewStatusApproved,
		}
	}

	for i := 1; i <= 2; i++ {
		outcome, err := env.svc.ReviewApproved(context.Background(), fmt.Sprintf("rev-%d", i))
		if err != nil {
			t.Fatalf("review %d: %v", i, err)
		}
		if !outcome.Credited || outcome.Amount != 1 {
			t.Fatalf("review %d outcome = %+v, want 1.00 credited", i, outcome)
		}
	}

	third, err := env.svc.ReviewApproved(context.Background(), "rev-3")
	if err != nil {
		t.Fatalf("third review: %v", err)
	}
	if !third.CapReached || third.Credited {
		t.Fatalf("third outcome = %+v, want cap reached", third)
	}
	if len(env.ledger.entries) != 2 {
		t.Fatalf("ledger entries = %d, want 2", len(env.ledger.entries))
	}
	if balance := env.wallets.balances["user-r"]; balance != 2 {
		t.Fatalf("balance = %v, want 2", balance)
	}
}

func TestReviewApprovedReplayBeatsCapCheck(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	env.reviews.reviews["rev-x"] = domain.Review{
		ReviewID: "rev-x",
		UserID:   "user-x",
		Status:   domain.ReviewStatusApproved,
	}

	if _, err := env.svc.ReviewApproved(context.Background(), "rev-x"); err != nil {
		t.Fatalf("first approval: %v", err)
	}
	replay, err := env.svc.ReviewApproved(context.Background(), "rev-x")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !replay.AlreadyProcessed || replay.CapReached {
		t.Fatalf("replay outcome = %+v, want already processed, not cap", replay)
	}
}

func TestIngestPaymentEventStoresOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	body := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"payment_intent":"pi_1","amount_received":1250,"currency":"usd","metadata":{"fridge_id":"fr-1"}}}}`)

	first, err := env.svc.IngestPaymentEvent(context.Background(), body, "t=1,v1=sig")
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if first.Duplicate || first.Amount != 12.50 || first.FridgeID != "fr-1" {
		t.Fatalf("first outcome = %+v", first)
	}

	second, err := env.svc.IngestPaymentEvent(context.Background(), body, "t=1,v1=sig")
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if !second.Duplicate {
		t.Fatalf("second outcome = %+v, want duplicate", second)
	}

	if got := len(env.payments.records); got != 1 {
		t.Fatalf("payment records = %d, want 1", got)
	}
	if got := env.analytics.countByName(domain.EventFridgeSale); got != 1 {
		t.Fatalf("fridge_sale events = %d, want 1", got)
	}
}

func TestIngestPaymentEventDuplicateSurvivesDedupLoss(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	body := []byte(`{"id":"evt_2","data":{"object":{"payment_intent":"pi_2","amount":500,"metadata":{"fridge_id":"fr-2"}}}}`)

	if _, err := env.svc.IngestPaymentEvent(context.Background(), body, "sig"); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	// Simulate cache flush between deliveries; the store constraint must
	// still collapse the duplicate.
	env.dedup.seen = map[string]bool{}

	second, err := env.svc.IngestPaymentEvent(context.Background(), body, "sig")
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if !second.Duplicate {
		t.Fatalf("second outcome = %+v, want duplicate from store conflict", second)
	}
	if got := len(env.payments.records); got != 1 {
		t.Fatalf("payment records = %d, want 1", got)
	}
}

func TestIngestPaymentEventMissingFridgeIDSoftAck(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	body := []byte(`{"id":"evt_3","data":{"object":{"payment_intent":"pi_3","amount":500,"metadata":{}}}}`)

	outcome, err := env.svc.IngestPaymentEvent(context.Background(), body, "sig")
	if err != nil {
		t.Fatalf("delivery with missing fridge id: %v", err)
	}
	if !outcome.MissingFridgeID {
		t.Fatalf("outcome = %+v, want missing fridge id flag", outcome)
	}
	if len(env.payments.records) != 0 {
		t.Fatal("no payment record expected without a fridge id")
	}
	if got := env.analytics.countByName(domain.EventFridgeSale); got != 0 {
		t.Fatalf("fridge_sale events = %d, want 0", got)
	}
}

func TestIngestPaymentEventRejectsBadSignature(t *testing.T) {
	t.Parallel()

	env := newTestEnv(func(d *application.Dependencies) {
		d.Verifier = rejectAllVerifier{}
	})

	_, err := env.svc.IngestPaymentEvent(context.Background(), []byte(`{}`), "t=1,v1=bad")
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestIngestPaymentEventMissingSecret(t *testing.T) {
	t.Parallel()

	env := newTestEnv(func(d *application.Dependencies) {
		d.Verifier = nil
	})

	_, err := env.svc.IngestPaymentEvent(context.Background(), []byte(`{}`), "t=1,v1=sig")
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestWeeklyAnalysisUpsertsSnapshots(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	env.stats.userIDs = []string{"user-hot", "user-cold", "user-broken"}
	env.stats.stats["user-hot"] = domain.EngagementStats{
		WeeksActive: 1, OrderFreq: 1, ReviewFreq: 1, StreakWeeks: 5,
	}
	env.stats.stats["user-cold"] = domain.EngagementStats{
		WeeksActive: 0.25, OrderFreq: 0.25, ReviewFreq: 0, StreakWeeks: 0,
	}

	outcome, err := env.svc.RunWeeklyAnalysis(context.Background())
	if err != nil {
		t.Fatalf("weekly analysis: %v", err)
	}
	if outcome.Processed != 2 || outcome.Skipped != 1 {
		t.Fatalf("outcome = %+v, want processed 2 skipped 1", outcome)
	}

	hot := env.personalization.records["user-hot"]
	if hot.BaseMultiplier != 1.05 || hot.RetentionScore != 100 {
		t.Fatalf("hot snapshot = %+v, want 1.05 multiplier at score 100", hot)
	}
	if !strings.Contains(hot.NextMessage, "1.05x") || !strings.Contains(hot.NextMessage, "5-week streak") {
		t.Fatalf("hot fallback message = %q", hot.NextMessage)
	}

	cold := env.personalization.records["user-cold"]
	if cold.BaseMultiplier != 0.97 {
		t.Fatalf("cold snapshot = %+v, want 0.97 multiplier", cold)
	}
	if env.analytics.refreshN != 1 {
		t.Fatalf("view refreshes = %d, want 1", env.analytics.refreshN)
	}
}

func TestWeeklyAnalysisUsesGeneratedMessage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(func(d *application.Dependencies) {
		d.Generator = staticGenerator{message: "Your streak is on fire."}
	})
	env.stats.userIDs = []string{"user-1"}
	env.stats.stats["user-1"] = domain.EngagementStats{WeeksActive: 0.75, OrderFreq: 0.5, StreakWeeks: 2}

	if _, err := env.svc.RunWeeklyAnalysis(context.Background()); err != nil {
		t.Fatalf("weekly analysis: %v", err)
	}
	if got := env.personalization.records["user-1"].NextMessage; got != "Your streak is on fire." {
		t.Fatalf("next message = %q, want generated text", got)
	}
}

func TestDailyReportsEmitsSalesAndRestockAlerts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	body := []byte(`{"id":"evt_day","data":{"object":{"payment_intent":"pi_day","amount":750,"metadata":{"fridge_id":"fr-1"}}}}`)
	if _, err := env.svc.IngestPaymentEvent(context.Background(), body, "sig"); err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	env.fridges.fridges = []domain.Fridge{
		{FridgeID: "fr-1", LowStockThreshold: 3},
		{FridgeID: "fr-2", LowStockThreshold: 3},
	}
	env.fridges.inventory["fr-2"] = []domain.InventoryLevel{
		{FridgeID: "fr-2", ProductID: "meal-a", Quantity: 1},
	}

	outcome, err := env.svc.RunDailyReports(context.Background())
	if err != nil {
		t.Fatalf("daily reports: %v", err)
	}
	if outcome.RestockAlerts != 1 {
		t.Fatalf("restock alerts = %d, want 1", outcome.RestockAlerts)
	}
	if got := env.analytics.countByName(domain.EventFridgeRestockAlert); got != 1 {
		t.Fatalf("restock events = %d, want 1", got)
	}
}

func TestKPIEmissionFailureDoesNotFailCredit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	env.analytics.failNext = true
	env.orders.orders["order-k"] = domain.Order{
		OrderID:   "order-k",
		UserID:    "user-k",
		Status:    domain.OrderStatusCompleted,
		MealCount: 5,
		Subtotal:  60,
	}

	outcome, err := env.svc.OrderCompleted(context.Background(), "order-k")
	if err != nil {
		t.Fatalf("order completed: %v", err)
	}
	if !outcome.Credited {
		t.Fatalf("outcome = %+v, want credited despite kpi failure", outcome)
	}
	if len(env.ledger.entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(env.ledger.entries))
	}
}

func TestGetWalletAuthorization(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	env.wallets.balances["user-1"] = 25

	self := application.Actor{SubjectID: "user-1", Role: "user"}
	wallet, err := env.svc.GetWallet(context.Background(), self, "user-1")
	if err != nil {
		t.Fatalf("self read: %v", err)
	}
	if wallet.Balance != 25 {
		t.Fatalf("balance = %v, want 25", wallet.Balance)
	}

	stranger := application.Actor{SubjectID: "user-2", Role: "user"}
	if _, err := env.svc.GetWallet(context.Background(), stranger, "user-1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("stranger read err = %v, want ErrForbidden", err)
	}

	admin := application.Actor{SubjectID: "ops-1", Role: "admin"}
	if _, err := env.svc.GetWallet(context.Background(), admin, "user-1"); err != nil {
		t.Fatalf("admin read: %v", err)
	}

	// Users without a wallet row read as zero balance.
	empty, err := env.svc.GetWallet(context.Background(), application.Actor{SubjectID: "user-3", Role: "user"}, "user-3")
	if err != nil {
		t.Fatalf("empty wallet read: %v", err)
	}
	if empty.Balance != 0 || empty.UserID != "user-3" {
		t.Fatalf("empty wallet = %+v", empty)
	}
}

func TestListLedgerPagination(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	for i := 0; i < 5; i++ {
		env.orders.orders[fmt.Sprintf("order-%d", i)] = domain.Order{
			OrderID:   fmt.Sprintf("order-%d", i),
			UserID:    "user-p",
			Status:    domain.OrderStatusCompleted,
			MealCount: 3,
			Subtotal:  30,
		}
		if _, err := env.svc.OrderCompleted(context.Background(), fmt.Sprintf("order-%d", i)); err != nil {
			t.Fatalf("seed order %d: %v", i, err)
		}
	}

	actor := application.Actor{SubjectID: "user-p", Role: "user"}
	page, err := env.svc.ListLedger(context.Background(), actor, "user-p", 2, 0)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if len(page.Entries) != 2 || page.Total != 5 {
		t.Fatalf("page = %d entries total %d, want 2 of 5", len(page.Entries), page.Total)
	}

	if _, err := env.svc.ListLedger(context.Background(), application.Actor{SubjectID: "user-q", Role: "user"}, "user-p", 10, 0); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("cross-user list err = %v, want ErrForbidden", err)
	}
}

func TestRefreshKPIsRequiresPrivilegedRole(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil)
	if err := env.svc.RefreshKPIs(context.Background(), application.Actor{SubjectID: "u", Role: "user"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("user refresh err = %v, want ErrForbidden", err)
	}
	if err := env.svc.RefreshKPIs(context.Background(), application.Actor{SubjectID: "ops", Role: "admin"}); err != nil {
		t.Fatalf("admin refresh: %v", err)
	}
	if env.analytics.refreshN != 1 {
		t.Fatalf("view refreshes = %d, want 1", env.analytics.refreshN)
	}
}
