package postgres

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/leanlab/loyalty-engine/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
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
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Orders:          &orderRepository{db: db},
		Referrals:       &referralRepository{db: db},
		Reviews:         &reviewRepository{db: db},
		Ledger:          &ledgerRepository{db: db},
		Wallets:         &walletRepository{db: db},
		Payments:        &paymentRepository{db: db},
		Personalization: &personalizationRepository{db: db},
		Analytics:       &analyticsRepository{db: db},
		Stats:           &statsRepository{db: db},
		Fridges:         &fridgeRepository{db: db},
	}
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func marshalMeta(meta map[string]any) *string {
	if len(meta) == 0 {
		return nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	s := string(raw)
	return &s
}

func unmarshalMeta(raw *string) map[string]any {
	if raw == nil || *raw == "" {
		return nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(*raw), &meta); err != nil {
		return nil
	}
	return meta
}
