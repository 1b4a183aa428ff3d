package application

import (
	"time"

	"github.com/leanlab/loyalty-engine/internal/ports"
)

type Config struct {
	ServiceName        string
	ReferralBonus      float64
	ReviewBonus        float64
	WeeklyReviewCap    int
	ActiveUserLookback time.Duration
	WebhookDedupTTL    time.Duration
}

// Actor identifies the authenticated caller on read endpoints. Trigger and
// job endpoints authenticate at the transport layer instead.
type Actor struct {
	SubjectID string
	Role      string
	RequestID string
}

func (a Actor) isPrivileged() bool {
	return a.Role == "admin" || a.Role == "finance"
}

type Service struct {
	cfg Config

	orders    ports.OrderReader
	referrals ports.ReferralReader
	reviews   ports.ReviewReader

	ledger          ports.LedgerRepository
	wallets         ports.WalletRepository
	payments        ports.PaymentRepository
	personalization ports.PersonalizationRepository
	analytics       ports.AnalyticsRepository
	stats           ports.StatsReader
	fridges         ports.FridgeReader

	verifier  ports.SignatureVerifier
	dedup     ports.DeliveryDedup
	generator ports.MessageGenerator

	nowFn func() time.Time
}

type Dependencies struct {
	Config          Config
	Orders          ports.OrderReader
	Referrals       ports.ReferralReader
	Reviews         ports.ReviewReader
	Ledger          ports.LedgerRepository
	Wallets         ports.WalletRepository
	Payments        ports.PaymentRepository
	Personalization ports.PersonalizationRepository
	Analytics       ports.AnalyticsRepository
	Stats           ports.StatsReader
	Fridges         ports.FridgeReader
	Verifier        ports.SignatureVerifier
	Dedup           ports.DeliveryDedup
	Generator       ports.MessageGenerator
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "loyalty-engine"
	}
	if cfg.ReferralBonus <= 0 {
		cfg.ReferralBonus = 10
	}
	if cfg.ReviewBonus <= 0 {
		cfg.ReviewBonus = 1
	}
	if cfg.WeeklyReviewCap <= 0 {
		cfg.WeeklyReviewCap = 2
	}
	if cfg.ActiveUserLookback <= 0 {
		cfg.ActiveUserLookback = 60 * 24 * time.Hour
	}
	if cfg.WebhookDedupTTL <= 0 {
		cfg.WebhookDedupTTL = 24 * time.Hour
	}
	return &Service{
		cfg:             cfg,
		orders:          deps.Orders,
		referrals:       deps.Referrals,
		reviews:         deps.Reviews,
		ledger:          deps.Ledger,
		wallets:         deps.Wallets,
		payments:        deps.Payments,
		personalization: deps.Personalization,
		analytics:       deps.Analytics,
		stats:           deps.Stats,
		fridges:         deps.Fridges,
		verifier:        deps.Verifier,
		dedup:           deps.Dedup,
		generator:       deps.Generator,
		nowFn:           func() time.Time { return time.Now().UTC() },
	}
}
