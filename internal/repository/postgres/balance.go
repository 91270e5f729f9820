package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kastov/vpnshop/internal/domain"
)

type BalanceStore struct {
	db *pgxpool.Pool
}

func NewBalanceStore(db *pgxpool.Pool) *BalanceStore {
	return &BalanceStore{db: db}
}

func (s *BalanceStore) Account(ctx context.Context, userID int64) (*domain.BalanceAccount, error) {
	acc := &domain.BalanceAccount{UserID: userID}
	err := s.db.QueryRow(ctx,
		`SELECT balance, referral_balance FROM users WHERE id = $1`,
		userID).Scan(&acc.MainBalance, &acc.ReferralBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, translate("get account", err)
	}
	return acc, nil
}

func (s *BalanceStore) Credit(ctx context.Context, userID int64, kind domain.BalanceKind, amount decimal.Decimal, description string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return translate("begin tx", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE users SET `+balanceColumn(kind)+` = `+balanceColumn(kind)+` + $2, updated_at = now()
		 WHERE id = $1`,
		userID, amount)
	if err != nil {
		return translate("credit balance", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}

	if err := insertTransaction(ctx, tx, userID, amount, domain.TxTypeCredit, kind, description); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translate("commit tx", err)
	}
	return nil
}

// Debit checks and subtracts in one conditional statement; a miss on an
// existing user means the balance was short.
func (s *BalanceStore) Debit(ctx context.Context, userID int64, kind domain.BalanceKind, amount decimal.Decimal, description string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return translate("begin tx", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE users SET `+balanceColumn(kind)+` = `+balanceColumn(kind)+` - $2, updated_at = now()
		 WHERE id = $1 AND `+balanceColumn(kind)+` >= $2`,
		userID, amount)
	if err != nil {
		return translate("debit balance", err)
	}
	if tag.RowsAffected() == 0 {
		return s.debitMissReason(ctx, userID)
	}

	if err := insertTransaction(ctx, tx, userID, amount, domain.TxTypeDebit, kind, description); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translate("commit tx", err)
	}
	return nil
}

func (s *BalanceStore) TransferReferralToMain(ctx context.Context, userID int64, amount decimal.Decimal) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return translate("begin tx", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE users
		SET referral_balance = referral_balance - $2,
		    balance = balance + $2,
		    updated_at = now()
		WHERE id = $1 AND referral_balance >= $2`,
		userID, amount)
	if err != nil {
		return translate("transfer balance", err)
	}
	if tag.RowsAffected() == 0 {
		return s.debitMissReason(ctx, userID)
	}

	if err := insertTransaction(ctx, tx, userID, amount, domain.TxTypeDebit, domain.BalanceReferral, "Withdrawal to main balance"); err != nil {
		return err
	}
	if err := insertTransaction(ctx, tx, userID, amount, domain.TxTypeCredit, domain.BalanceMain, "Withdrawal from referral balance"); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translate("commit tx", err)
	}
	return nil
}

func (s *BalanceStore) debitMissReason(ctx context.Context, userID int64) error {
	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return translate("check user exists", err)
	}
	if !exists {
		return domain.ErrUserNotFound
	}
	return domain.ErrInsufficientBalance
}

func insertTransaction(ctx context.Context, tx pgx.Tx, userID int64, amount decimal.Decimal, txType domain.TxType, kind domain.BalanceKind, description string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (user_id, amount, tx_type, balance_kind, description)
		VALUES ($1, $2, $3, $4, $5)`,
		userID, amount, txType, kind, description)
	if err != nil {
		return translate("insert transaction", err)
	}
	return nil
}

func balanceColumn(kind domain.BalanceKind) string {
	if kind == domain.BalanceReferral {
		return "referral_balance"
	}
	return "balance"
}
