package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/kastov/vpnshop/internal/clock"
	"github.com/kastov/vpnshop/internal/config"
	"github.com/kastov/vpnshop/internal/domain"
)

const referralCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// UserService registers users on first contact and binds referral
// relationships. A user gets exactly one referrer, set once.
type UserService struct {
	users     UserStore
	referrals ReferralStore
	clock     clock.Clock
}

func NewUserService(users UserStore, referrals ReferralStore, clk clock.Clock) *UserService {
	return &UserService{users: users, referrals: referrals, clock: clk}
}

// GetOrCreate returns the user for a Telegram account, creating it with
// a fresh referral code on first contact.
func (s *UserService) GetOrCreate(ctx context.Context, telegramID int64, firstName, username string) (*domain.User, error) {
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}

	code, err := s.uniqueReferralCode(ctx)
	if err != nil {
		return nil, err
	}

	user = &domain.User{
		TelegramID:   telegramID,
		FirstName:    firstName,
		Username:     username,
		ReferralCode: code,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// BindReferrer links a new user to the owner of a referral code. The
// binding is established at most once; self-referrals and repeat calls
// are ignored.
func (s *UserService) BindReferrer(ctx context.Context, referredID int64, referralCode string) (bool, error) {
	referrer, err := s.users.GetByReferralCode(ctx, referralCode)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("resolve referral code: %w", err)
	}
	if referrer.ID == referredID {
		return false, nil
	}
	return s.referrals.Bind(ctx, referrer.ID, referredID)
}

func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	return s.users.GetByTelegramID(ctx, telegramID)
}

func (s *UserService) uniqueReferralCode(ctx context.Context) (string, error) {
	for i := 0; i < config.ReferralCodeAttempts; i++ {
		code, err := generateReferralCode()
		if err != nil {
			return "", err
		}
		_, err = s.users.GetByReferralCode(ctx, code)
		if errors.Is(err, domain.ErrUserNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("check referral code: %w", err)
		}
	}
	return "", fmt.Errorf("failed to generate unique referral code after %d attempts", config.ReferralCodeAttempts)
}

func generateReferralCode() (string, error) {
	code := make([]byte, config.ReferralCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referralCodeCharset))))
		if err != nil {
			return "", fmt.Errorf("random int: %w", err)
		}
		code[i] = referralCodeCharset[n.Int64()]
	}
	return string(code), nil
}
