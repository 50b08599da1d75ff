package kafka

import (
	"context"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/azizikri/vinyl-checkout/internal/usecase"
)

// DirectGateway calls the coupon service in-process when event-driven mode is off. Calls are
// bounded by RequestTimeout, the same budget a Kafka round trip gets.
type DirectGateway struct {
	service usecase.CouponGateway
}

func NewDirectGateway(service usecase.CouponGateway) usecase.CouponGateway {
	return &DirectGateway{service: service}
}

func (g *DirectGateway) CreateCoupon(ctx context.Context, c domain.Coupon) (domain.Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()
	return g.service.CreateCoupon(ctx, c)
}

func (g *DirectGateway) ClaimCoupon(ctx context.Context, userID int64, code string) (domain.UserCoupon, error) {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()
	return g.service.ClaimCoupon(ctx, userID, code)
}

func (g *DirectGateway) GetCoupon(ctx context.Context, code string) (domain.Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()
	return g.service.GetCoupon(ctx, code)
}
