package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kastov/vpnshop/internal/domain"
)

type PromoStore struct {
	db *pgxpool.Pool
}

func NewPromoStore(db *pgxpool.Pool) *PromoStore {
	return &PromoStore{db: db}
}

const promoColumns = `id, code, discount_kind, discount_value, usage_limit_total,
	usage_limit_per_user, used_total, valid_from, valid_until, is_active,
	created_by, description, created_at`

func (s *PromoStore) Create(ctx context.Context, promo *domain.PromoCode) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO promo_codes (code, discount_kind, discount_value, usage_limit_total,
			usage_limit_per_user, valid_from, valid_until, is_active, created_by, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		promo.Code, promo.Discount.Kind, promo.Discount.Value, promo.UsageLimitTotal,
		promo.UsageLimitPerUser, promo.ValidFrom, promo.ValidUntil, promo.IsActive,
		promo.CreatedBy, promo.Description, promo.CreatedAt,
	).Scan(&promo.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateCode
		}
		return translate("insert promo", err)
	}
	return nil
}

func (s *PromoStore) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+promoColumns+` FROM promo_codes WHERE code = $1`, code)
	promo, err := scanPromo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, translate("get promo", err)
	}
	return promo, nil
}

func (s *PromoStore) List(ctx context.Context, includeInactive bool) ([]domain.PromoCode, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes`
	if !includeInactive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, translate("list promos", err)
	}
	defer rows.Close()

	var out []domain.PromoCode
	for rows.Next() {
		promo, err := scanPromo(rows)
		if err != nil {
			return nil, translate("scan promo", err)
		}
		out = append(out, *promo)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list promos", err)
	}
	return out, nil
}

func (s *PromoStore) SetActive(ctx context.Context, code string, active bool) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE promo_codes SET is_active = $2 WHERE code = $1 AND is_active <> $2`,
		code, active)
	if err != nil {
		return false, translate("set promo active", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM promo_codes WHERE code = $1)`, code).Scan(&exists); err != nil {
		return false, translate("check promo exists", err)
	}
	if !exists {
		return false, domain.ErrCodeNotFound
	}
	return false, nil
}

// Reserve consumes one unit of quota. The promo row is locked FOR UPDATE
// first; the per-user count runs as its own statement after the lock is
// held, so it sees reservations committed by the transactions it waited
// on. A subquery inside the conditional UPDATE would not: under READ
// COMMITTED the recheck after a lock wait refreshes only the target row,
// and the count would still come from the pre-wait snapshot.
func (s *PromoStore) Reserve(ctx context.Context, promoID, userID int64, at time.Time) (*domain.Reservation, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, translate("begin tx", err)
	}
	defer tx.Rollback(ctx)

	var (
		code              string
		usedTotal         int
		usageLimitTotal   *int
		usageLimitPerUser *int
	)
	err = tx.QueryRow(ctx, `
		SELECT code, used_total, usage_limit_total, usage_limit_per_user
		FROM promo_codes WHERE id = $1
		FOR UPDATE`,
		promoID,
	).Scan(&code, &usedTotal, &usageLimitTotal, &usageLimitPerUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, translate("lock promo", err)
	}

	if usageLimitTotal != nil && usedTotal >= *usageLimitTotal {
		return nil, domain.ErrGlobalLimitExceeded
	}
	if usageLimitPerUser != nil {
		var held int
		err = tx.QueryRow(ctx, `
			SELECT count(*) FROM promo_reservations
			WHERE promo_id = $1 AND user_id = $2 AND status <> 'released'`,
			promoID, userID,
		).Scan(&held)
		if err != nil {
			return nil, translate("count held reservations", err)
		}
		if held >= *usageLimitPerUser {
			return nil, domain.ErrPerUserLimitExceeded
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE promo_codes SET used_total = used_total + 1 WHERE id = $1`,
		promoID)
	if err != nil {
		return nil, translate("consume promo quota", err)
	}

	res := &domain.Reservation{
		Token:      uuid.New(),
		PromoID:    promoID,
		Code:       code,
		UserID:     userID,
		ReservedAt: at,
		Status:     domain.ReservationOpen,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO promo_reservations (token, promo_id, user_id, reserved_at, status)
		VALUES ($1, $2, $3, $4, 'open')`,
		res.Token, res.PromoID, res.UserID, res.ReservedAt)
	if err != nil {
		return nil, translate("insert reservation", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translate("commit tx", err)
	}
	return res, nil
}

func (s *PromoStore) CommitReservation(ctx context.Context, token uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return translate("begin tx", err)
	}
	defer tx.Rollback(ctx)

	var (
		promoID    int64
		userID     int64
		reservedAt time.Time
	)
	err = tx.QueryRow(ctx, `
		UPDATE promo_reservations SET status = 'committed'
		WHERE token = $1 AND status = 'open'
		RETURNING promo_id, user_id, reserved_at`,
		token,
	).Scan(&promoID, &userID, &reservedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.commitMissStatus(ctx, token)
		}
		return translate("commit reservation", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO promo_redemptions (promo_id, user_id, redeemed_at)
		VALUES ($1, $2, $3)`,
		promoID, userID, reservedAt)
	if err != nil {
		return translate("insert redemption", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return translate("commit tx", err)
	}
	return nil
}

func (s *PromoStore) commitMissStatus(ctx context.Context, token uuid.UUID) error {
	var status domain.ReservationStatus
	err := s.db.QueryRow(ctx,
		`SELECT status FROM promo_reservations WHERE token = $1`, token).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrReservationNotFound
		}
		return translate("get reservation status", err)
	}
	if status == domain.ReservationReleased {
		return domain.ErrReservationReleased
	}
	// Already committed: idempotent no-op.
	return nil
}

func (s *PromoStore) ReleaseReservation(ctx context.Context, token uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return translate("begin tx", err)
	}
	defer tx.Rollback(ctx)

	var promoID int64
	err = tx.QueryRow(ctx, `
		UPDATE promo_reservations SET status = 'released'
		WHERE token = $1 AND status = 'open'
		RETURNING promo_id`,
		token,
	).Scan(&promoID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := s.db.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM promo_reservations WHERE token = $1)`, token).Scan(&exists); err != nil {
				return translate("check reservation exists", err)
			}
			if !exists {
				return domain.ErrReservationNotFound
			}
			// Committed or already released: leave untouched.
			return nil
		}
		return translate("release reservation", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE promo_codes SET used_total = used_total - 1 WHERE id = $1 AND used_total > 0`,
		promoID)
	if err != nil {
		return translate("return promo quota", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return translate("commit tx", err)
	}
	return nil
}

func (s *PromoStore) StaleReservations(ctx context.Context, olderThan time.Time) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT token FROM promo_reservations
		WHERE status = 'open' AND reserved_at < $1`,
		olderThan)
	if err != nil {
		return nil, translate("list stale reservations", err)
	}
	defer rows.Close()

	var tokens []uuid.UUID
	for rows.Next() {
		var token uuid.UUID
		if err := rows.Scan(&token); err != nil {
			return nil, translate("scan stale reservation", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list stale reservations", err)
	}
	return tokens, nil
}

func (s *PromoStore) RedemptionCount(ctx context.Context, promoID, userID int64) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM promo_redemptions WHERE promo_id = $1 AND user_id = $2`,
		promoID, userID).Scan(&count)
	if err != nil {
		return 0, translate("count redemptions", err)
	}
	return count, nil
}

func scanPromo(row pgx.Row) (*domain.PromoCode, error) {
	var promo domain.PromoCode
	err := row.Scan(
		&promo.ID, &promo.Code, &promo.Discount.Kind, &promo.Discount.Value,
		&promo.UsageLimitTotal, &promo.UsageLimitPerUser, &promo.UsedTotal,
		&promo.ValidFrom, &promo.ValidUntil, &promo.IsActive,
		&promo.CreatedBy, &promo.Description, &promo.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &promo, nil
}
