package usecase

import (
	"context"

	"github.com/azizikri/vinyl-checkout/internal/domain"
)

// CouponGateway fronts the coupon operations that may be served over Kafka request/reply
// or called directly in-process.
type CouponGateway interface {
	CreateCoupon(ctx context.Context, c domain.Coupon) (domain.Coupon, error)
	ClaimCoupon(ctx context.Context, userID int64, code string) (domain.UserCoupon, error)
	GetCoupon(ctx context.Context, code string) (domain.Coupon, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Notifier delivers a verification code to whatever the key addresses.
type Notifier interface {
	SendCode(ctx context.Context, key, code string) error
}

// Actor is the caller identity resolved by the auth layer.
type Actor struct {
	UserID int64
	Admin  bool
}

func (a Actor) CanAccess(ownerID int64) bool {
	return a.Admin || a.UserID == ownerID
}
