package domain

import (
	"errors"
	"fmt"
)

// Base error kinds. Every error returned by the usecase layer wraps exactly one of these.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrExhausted          = errors.New("coupon is sold out")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrNoUsesRemaining    = errors.New("no coupon uses remaining")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
)

var (
	ErrCouponNotFound  = fmt.Errorf("%w: coupon", ErrNotFound)
	ErrClaimNotFound   = fmt.Errorf("%w: coupon claim", ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("%w: order", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("%w: user", ErrNotFound)
	ErrProductNotFound = fmt.Errorf("%w: product", ErrNotFound)
	ErrRecordNotFound  = fmt.Errorf("%w: payment or logistics record", ErrNotFound)
	ErrCodeNotFound    = fmt.Errorf("%w: verification code", ErrNotFound)

	ErrAlreadyClaimed      = fmt.Errorf("%w: user has already claimed this coupon", ErrConflict)
	ErrDuplicateCoupon     = fmt.Errorf("%w: coupon already exists", ErrConflict)
	ErrDuplicateRequest    = fmt.Errorf("%w: checkout request already processed", ErrConflict)
	ErrOrderNotCancellable = fmt.Errorf("%w: order can no longer be cancelled", ErrConflict)
	ErrCouponAlreadyUsed   = fmt.Errorf("%w: order already carries a coupon", ErrConflict)
	ErrStatusTransition    = fmt.Errorf("%w: status transition not allowed", ErrConflict)

	ErrCouponNotInWindow    = fmt.Errorf("%w: coupon is outside its campaign window", ErrValidation)
	ErrClaimExpired         = fmt.Errorf("%w: coupon claim has expired", ErrValidation)
	ErrCouponNotEligible    = fmt.Errorf("%w: coupon does not apply to this user", ErrValidation)
	ErrInvalidPaymentMethod = fmt.Errorf("%w: unsupported payment method", ErrValidation)
	ErrInvalidLogistics     = fmt.Errorf("%w: invalid logistics info", ErrValidation)
	ErrCodeExpired          = fmt.Errorf("%w: verification code expired", ErrValidation)
	ErrCodeMismatch         = fmt.Errorf("%w: verification code mismatch", ErrValidation)
	ErrTooManyAttempts      = fmt.Errorf("%w: too many verification attempts", ErrExhausted)
)

// ErrorKind is the closed set of failure categories exposed to callers.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindNotFound           ErrorKind = "not_found"
	KindConflict           ErrorKind = "conflict"
	KindExhausted          ErrorKind = "exhausted"
	KindInsufficientStock  ErrorKind = "insufficient_stock"
	KindInsufficientPoints ErrorKind = "insufficient_points"
	KindNoUsesRemaining    ErrorKind = "no_uses_remaining"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindForbidden          ErrorKind = "forbidden"
	KindInternal           ErrorKind = "internal"
)

var kindOrder = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInsufficientStock, KindInsufficientStock},
	{ErrInsufficientPoints, KindInsufficientPoints},
	{ErrNoUsesRemaining, KindNoUsesRemaining},
	{ErrExhausted, KindExhausted},
	{ErrValidation, KindValidation},
	{ErrNotFound, KindNotFound},
	{ErrConflict, KindConflict},
	{ErrUnauthorized, KindUnauthorized},
	{ErrForbidden, KindForbidden},
}

// KindOf classifies err. Anything not wrapping a known kind is internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kindOrder {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// ErrorForKind returns the base sentinel for a kind, used when an error crosses a wire boundary.
func ErrorForKind(kind ErrorKind, message string) error {
	for _, k := range kindOrder {
		if k.kind == kind {
			return fmt.Errorf("%w: %s", k.err, message)
		}
	}
	return errors.New(message)
}
