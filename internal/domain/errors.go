package domain

import "errors"

var (
	ErrCodeNotFound          = errors.New("promo code not found")
	ErrCodeInactive          = errors.New("promo code is disabled")
	ErrCodeNotYetValid       = errors.New("promo code is not yet valid")
	ErrCodeExpired           = errors.New("promo code expired")
	ErrGlobalLimitExceeded   = errors.New("promo code usage limit reached")
	ErrPerUserLimitExceeded  = errors.New("promo code per-user limit reached")
	ErrInvalidCode           = errors.New("invalid promo code format")
	ErrInvalidDiscountValue  = errors.New("invalid discount value")
	ErrInvalidValidityWindow = errors.New("validity window end is not after start")
	ErrDuplicateCode         = errors.New("promo code already exists")

	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationReleased = errors.New("reservation was released")

	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBelowMinWithdrawal  = errors.New("amount below minimum withdrawal")
	ErrInvalidAmount       = errors.New("invalid amount")

	ErrUserNotFound = errors.New("user not found")

	ErrConcurrentUpdate   = errors.New("concurrent update conflict")
	ErrStorageUnavailable = errors.New("storage unavailable")
)
