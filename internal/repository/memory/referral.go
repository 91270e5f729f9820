package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kastov/vpnshop/internal/domain"
)

type startBonusKey struct {
	referrerID int64
	referredID int64
}

type ReferralStore struct {
	mu            sync.Mutex
	relationships map[int64]*domain.ReferralRelationship
	rewards       map[string]decimal.Decimal
	startBonuses  map[startBonusKey]struct{}
}

func NewReferralStore() *ReferralStore {
	return &ReferralStore{
		relationships: make(map[int64]*domain.ReferralRelationship),
		rewards:       make(map[string]decimal.Decimal),
		startBonuses:  make(map[startBonusKey]struct{}),
	}
}

func (s *ReferralStore) Referrer(ctx context.Context, referredID int64) (*domain.ReferralRelationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rel, ok := s.relationships[referredID]
	if !ok {
		return nil, nil
	}
	snapshot := *rel
	return &snapshot, nil
}

func (s *ReferralStore) Bind(ctx context.Context, referrerID, referredID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.relationships[referredID]; ok {
		return false, nil
	}
	s.relationships[referredID] = &domain.ReferralRelationship{
		ReferrerID: referrerID,
		ReferredID: referredID,
		CreatedAt:  time.Now(),
	}
	return true, nil
}

func (s *ReferralStore) ClaimPurchaseReward(ctx context.Context, purchaseID string, referrerID, referredID int64, amount decimal.Decimal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rewards[purchaseID]; ok {
		return false, nil
	}
	s.rewards[purchaseID] = amount
	return true, nil
}

func (s *ReferralStore) ClaimStartBonus(ctx context.Context, referrerID, referredID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := startBonusKey{referrerID: referrerID, referredID: referredID}
	if _, ok := s.startBonuses[key]; ok {
		return false, nil
	}
	s.startBonuses[key] = struct{}{}
	return true, nil
}
