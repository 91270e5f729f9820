package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountKind string

const (
	DiscountPercent DiscountKind = "percent"
	DiscountAmount  DiscountKind = "amount"
)

// Discount is either a percentage of the price or a fixed amount off.
// Construct through NewPercentDiscount/NewAmountDiscount so exactly one
// kind with a valid value can exist.
type Discount struct {
	Kind  DiscountKind
	Value decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

func NewPercentDiscount(value decimal.Decimal) (Discount, error) {
	if value.LessThanOrEqual(decimal.Zero) || value.GreaterThanOrEqual(hundred) {
		return Discount{}, ErrInvalidDiscountValue
	}
	return Discount{Kind: DiscountPercent, Value: value}, nil
}

func NewAmountDiscount(value decimal.Decimal) (Discount, error) {
	if value.LessThanOrEqual(decimal.Zero) {
		return Discount{}, ErrInvalidDiscountValue
	}
	return Discount{Kind: DiscountAmount, Value: value}, nil
}

// Apply returns the price after the discount, clamped at zero and rounded
// to two decimal places.
func (d Discount) Apply(price decimal.Decimal) decimal.Decimal {
	var off decimal.Decimal
	switch d.Kind {
	case DiscountPercent:
		off = price.Mul(d.Value).Div(hundred)
	case DiscountAmount:
		off = d.Value
	}
	result := price.Sub(off)
	if result.LessThan(decimal.Zero) {
		result = decimal.Zero
	}
	return result.Round(2)
}

type PromoCode struct {
	ID                int64
	Code              string
	Discount          Discount
	UsageLimitTotal   *int
	UsageLimitPerUser *int
	UsedTotal         int
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	IsActive          bool
	CreatedBy         int64
	Description       string
	CreatedAt         time.Time
}

const (
	promoCodeMinLen  = 3
	promoCodeMaxLen  = 32
	promoCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-"
)

// NormalizeCode canonicalizes a user-supplied code; codes are
// case-insensitive and stored upper-case.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCode checks a canonical code against the allowed alphabet and length.
func ValidateCode(code string) error {
	if len(code) < promoCodeMinLen || len(code) > promoCodeMaxLen {
		return ErrInvalidCode
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(promoCodeCharset, rune(code[i])) {
			return ErrInvalidCode
		}
	}
	return nil
}

type ReservationStatus string

const (
	ReservationOpen      ReservationStatus = "open"
	ReservationCommitted ReservationStatus = "committed"
	ReservationReleased  ReservationStatus = "released"
)

// Reservation is a provisional, quota-consuming hold on a promo code
// pending the outcome of a payment attempt.
type Reservation struct {
	Token      uuid.UUID
	PromoID    int64
	Code       string
	UserID     int64
	ReservedAt time.Time
	Status     ReservationStatus
}

// RedemptionRecord is one committed application of a promo code by one
// user. Insert-only; never updated or deleted.
type RedemptionRecord struct {
	ID         int64
	PromoID    int64
	UserID     int64
	RedeemedAt time.Time
}
