package memory

import (
	"context"
	"sync"

	"github.com/kastov/vpnshop/internal/domain"
)

type UserStore struct {
	mu     sync.Mutex
	nextID int64
	users  []*domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{}
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(func(u *domain.User) bool { return u.ID == id })
}

func (s *UserStore) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(func(u *domain.User) bool { return u.TelegramID == telegramID })
}

func (s *UserStore) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(func(u *domain.User) bool { return u.ReferralCode == code })
}

func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	user.ID = s.nextID
	stored := *user
	s.users = append(s.users, &stored)
	return nil
}

func (s *UserStore) find(match func(*domain.User) bool) (*domain.User, error) {
	for _, u := range s.users {
		if match(u) {
			snapshot := *u
			return &snapshot, nil
		}
	}
	return nil, domain.ErrUserNotFound
}
