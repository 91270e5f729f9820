package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kastov/vpnshop/internal/domain"
)

type UserStore struct {
	db *pgxpool.Pool
}

func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, telegram_id, first_name, username, is_admin, referral_code, created_at, updated_at`

func (s *UserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *UserStore) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	return s.get(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
}

func (s *UserStore) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	return s.get(ctx, `SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code)
}

func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (telegram_id, first_name, username, referral_code)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		user.TelegramID, user.FirstName, user.Username, user.ReferralCode,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return translate("insert user", err)
	}
	return nil
}

func (s *UserStore) get(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.TelegramID, &user.FirstName, &user.Username,
		&user.IsAdmin, &user.ReferralCode, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, translate("get user", err)
	}
	return &user, nil
}
