// Package memory holds in-memory store implementations, used by the
// service tests and as a throwaway backend. Each store serializes per
// operation with a mutex, mirroring the per-key atomicity the Postgres
// stores get from conditional statements.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kastov/vpnshop/internal/domain"
)

type PromoStore struct {
	mu           sync.Mutex
	nextID       int64
	promos       []*domain.PromoCode
	byCode       map[string]*domain.PromoCode
	reservations map[uuid.UUID]*domain.Reservation
	redemptions  []domain.RedemptionRecord
}

func NewPromoStore() *PromoStore {
	return &PromoStore{
		byCode:       make(map[string]*domain.PromoCode),
		reservations: make(map[uuid.UUID]*domain.Reservation),
	}
}

func (s *PromoStore) Create(ctx context.Context, promo *domain.PromoCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byCode[promo.Code]; ok {
		return domain.ErrDuplicateCode
	}

	s.nextID++
	promo.ID = s.nextID
	stored := *promo
	s.promos = append(s.promos, &stored)
	s.byCode[stored.Code] = &stored
	return nil
}

func (s *PromoStore) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	promo, ok := s.byCode[code]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	snapshot := *promo
	return &snapshot, nil
}

func (s *PromoStore) List(ctx context.Context, includeInactive bool) ([]domain.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.PromoCode, 0, len(s.promos))
	for _, promo := range s.promos {
		if !includeInactive && !promo.IsActive {
			continue
		}
		out = append(out, *promo)
	}
	return out, nil
}

func (s *PromoStore) SetActive(ctx context.Context, code string, active bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	promo, ok := s.byCode[code]
	if !ok {
		return false, domain.ErrCodeNotFound
	}
	if promo.IsActive == active {
		return false, nil
	}
	promo.IsActive = active
	return true, nil
}

func (s *PromoStore) Reserve(ctx context.Context, promoID, userID int64, at time.Time) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	promo := s.byID(promoID)
	if promo == nil {
		return nil, domain.ErrCodeNotFound
	}
	if promo.UsageLimitTotal != nil && promo.UsedTotal >= *promo.UsageLimitTotal {
		return nil, domain.ErrGlobalLimitExceeded
	}
	if promo.UsageLimitPerUser != nil && s.heldCount(promoID, userID) >= *promo.UsageLimitPerUser {
		return nil, domain.ErrPerUserLimitExceeded
	}

	promo.UsedTotal++
	res := &domain.Reservation{
		Token:      uuid.New(),
		PromoID:    promoID,
		Code:       promo.Code,
		UserID:     userID,
		ReservedAt: at,
		Status:     domain.ReservationOpen,
	}
	s.reservations[res.Token] = res
	snapshot := *res
	return &snapshot, nil
}

func (s *PromoStore) CommitReservation(ctx context.Context, token uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[token]
	if !ok {
		return domain.ErrReservationNotFound
	}
	switch res.Status {
	case domain.ReservationCommitted:
		return nil
	case domain.ReservationReleased:
		return domain.ErrReservationReleased
	}

	res.Status = domain.ReservationCommitted
	s.redemptions = append(s.redemptions, domain.RedemptionRecord{
		ID:         int64(len(s.redemptions) + 1),
		PromoID:    res.PromoID,
		UserID:     res.UserID,
		RedeemedAt: res.ReservedAt,
	})
	return nil
}

func (s *PromoStore) ReleaseReservation(ctx context.Context, token uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[token]
	if !ok {
		return domain.ErrReservationNotFound
	}
	if res.Status != domain.ReservationOpen {
		return nil
	}

	res.Status = domain.ReservationReleased
	if promo := s.byID(res.PromoID); promo != nil && promo.UsedTotal > 0 {
		promo.UsedTotal--
	}
	return nil
}

func (s *PromoStore) StaleReservations(ctx context.Context, olderThan time.Time) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tokens []uuid.UUID
	for token, res := range s.reservations {
		if res.Status == domain.ReservationOpen && res.ReservedAt.Before(olderThan) {
			tokens = append(tokens, token)
		}
	}
	return tokens, nil
}

func (s *PromoStore) RedemptionCount(ctx context.Context, promoID, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, r := range s.redemptions {
		if r.PromoID == promoID && r.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *PromoStore) byID(id int64) *domain.PromoCode {
	for _, promo := range s.promos {
		if promo.ID == id {
			return promo
		}
	}
	return nil
}

// heldCount counts a user's non-released reservations for a code: open
// checkouts hold per-user quota just like committed redemptions.
func (s *PromoStore) heldCount(promoID, userID int64) int {
	count := 0
	for _, res := range s.reservations {
		if res.PromoID == promoID && res.UserID == userID && res.Status != domain.ReservationReleased {
			count++
		}
	}
	return count
}
