package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leanlab/loyalty-engine/internal/domain"
)

// LedgerPage is a slice of a user's ledger plus the total entry count for
// pagination.
type LedgerPage struct {
	Entries []domain.LedgerEntry
	Total   int
	Limit   int
	Offset  int
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// GetWallet returns the caller's wallet, or any wallet for privileged roles.
// A user with no wallet row yet reads as a zero balance, not a 404.
func (s *Service) GetWallet(ctx context.Context, actor Actor, userID string) (domain.Wallet, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Wallet{}, fmt.Errorf("%w: user_id required", domain.ErrInvalidInput)
	}
	if err := authorizeUserRead(actor, userID); err != nil {
		return domain.Wallet{}, err
	}
	wallet, err := s.wallets.GetByUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return domain.Wallet{UserID: userID}, nil
		}
		return domain.Wallet{}, err
	}
	return wallet, nil
}

// ListLedger returns a page of the user's ledger entries, newest first.
func (s *Service) ListLedger(ctx context.Context, actor Actor, userID string, limit, offset int) (LedgerPage, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return LedgerPage{}, fmt.Errorf("%w: user_id required", domain.ErrInvalidInput)
	}
	if err := authorizeUserRead(actor, userID); err != nil {
		return LedgerPage{}, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	entries, total, err := s.ledger.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return LedgerPage{}, err
	}
	return LedgerPage{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}

// InternalWallet serves mesh-internal callers that are trusted by
// transport-level policy, so no actor check applies.
func (s *Service) InternalWallet(ctx context.Context, userID string) (domain.Wallet, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Wallet{}, fmt.Errorf("%w: user_id required", domain.ErrInvalidInput)
	}
	wallet, err := s.wallets.GetByUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return domain.Wallet{UserID: userID}, nil
		}
		return domain.Wallet{}, err
	}
	return wallet, nil
}

func (s *Service) InternalPersonalization(ctx context.Context, userID string) (domain.PersonalizationRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.PersonalizationRecord{}, fmt.Errorf("%w: user_id required", domain.ErrInvalidInput)
	}
	return s.personalization.GetByUser(ctx, userID)
}

func authorizeUserRead(actor Actor, userID string) error {
	if actor.SubjectID == "" {
		return fmt.Errorf("%w: missing identity", domain.ErrUnauthorized)
	}
	if actor.SubjectID != userID && !actor.isPrivileged() {
		return fmt.Errorf("%w: cannot read another user's records", domain.ErrForbidden)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
