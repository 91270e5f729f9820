package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TxType string

const (
	TxTypeDebit  TxType = "debit"
	TxTypeCredit TxType = "credit"
)

// Transaction is the audit row written alongside every balance mutation.
type Transaction struct {
	ID          int64
	UserID      int64
	Amount      decimal.Decimal
	TxType      TxType
	BalanceKind BalanceKind
	Description string
	CreatedAt   time.Time
}
