package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/azizikri/vinyl-checkout/internal/logger"
	"github.com/azizikri/vinyl-checkout/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CouponService struct {
	store  repository.Store
	events EventPublisher
	now    func() time.Time
}

func NewCouponService(store repository.Store, events EventPublisher) *CouponService {
	return &CouponService{
		store:  store,
		events: events,
		now:    time.Now,
	}
}

func (s *CouponService) CreateCoupon(ctx context.Context, c domain.Coupon) (domain.Coupon, error) {
	c.Code = strings.TrimSpace(c.Code)
	if c.Code == "" || strings.TrimSpace(c.Name) == "" {
		return domain.Coupon{}, fmt.Errorf("%w: code and name are required", domain.ErrValidation)
	}
	if err := c.Rule.Validate(); err != nil {
		return domain.Coupon{}, err
	}
	if c.Scope == "" {
		c.Scope = domain.ScopeAll
	}
	if !c.Scope.Valid() {
		return domain.Coupon{}, fmt.Errorf("%w: unknown target scope %q", domain.ErrValidation, c.Scope)
	}
	if c.Scope != domain.ScopeAll && c.ScopeValue == "" {
		return domain.Coupon{}, fmt.Errorf("%w: target value required for scope %s", domain.ErrValidation, c.Scope)
	}
	if c.TotalQuantity < domain.Unlimited {
		return domain.Coupon{}, fmt.Errorf("%w: total quantity must be -1 or non-negative", domain.ErrValidation)
	}
	if c.UsageLimit < domain.Unlimited || c.UsageLimit == 0 {
		return domain.Coupon{}, fmt.Errorf("%w: usage limit must be -1 or positive", domain.ErrValidation)
	}
	if c.ValidityDays < 0 {
		return domain.Coupon{}, fmt.Errorf("%w: validity days must not be negative", domain.ErrValidation)
	}
	if !c.EndAt.After(c.StartAt) {
		return domain.Coupon{}, fmt.Errorf("%w: campaign must end after it starts", domain.ErrValidation)
	}
	return s.store.CreateCoupon(ctx, c)
}

// ClaimCoupon hands the user one instance from the coupon's global supply.
// The guarded decrement is the only thing standing between N units and N+1 claims.
func (s *CouponService) ClaimCoupon(ctx context.Context, userID int64, code string) (domain.UserCoupon, error) {
	var claim domain.UserCoupon
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		coupon, err := q.GetCoupon(ctx, code)
		if err != nil {
			return err
		}
		if !coupon.IsValid {
			return domain.ErrCouponNotFound
		}

		if _, err := q.GetUserCoupon(ctx, userID, code); err == nil {
			return domain.ErrAlreadyClaimed
		} else if !errors.Is(err, domain.ErrClaimNotFound) {
			return err
		}

		if coupon.Status != domain.CouponActive {
			return domain.ErrExhausted
		}
		now := s.now()
		if !coupon.InWindow(now) {
			return domain.ErrCouponNotInWindow
		}

		rows, err := q.DecrementCouponQuantity(ctx, code)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrExhausted
		}

		claim, err = q.InsertUserCoupon(ctx, domain.UserCoupon{
			UserID:        userID,
			CouponCode:    code,
			RemainingUses: coupon.UsageLimit,
			ExpiresAt:     coupon.ClaimExpiry(now),
		})
		return err
	})
	if err != nil {
		return domain.UserCoupon{}, err
	}

	logger.FromContext(ctx).Info("coupon_claimed", zap.String("code", code), zap.Int64("user_id", userID))
	publish(ctx, s.events, Event{
		Type:       EventCouponClaimed,
		Key:        code,
		OccurredAt: s.now().UTC(),
		Payload:    CouponEvent{Code: code, UserID: userID, RemainingUses: claim.RemainingUses},
	})
	return claim, nil
}

func (s *CouponService) GetCoupon(ctx context.Context, code string) (domain.Coupon, error) {
	coupon, err := s.store.GetCoupon(ctx, code)
	if err != nil {
		return domain.Coupon{}, err
	}
	if !coupon.IsValid {
		return domain.Coupon{}, domain.ErrCouponNotFound
	}
	coupon.ClaimedCount, err = s.store.CountClaims(ctx, code)
	if err != nil {
		return domain.Coupon{}, err
	}
	return coupon, nil
}

func (s *CouponService) DeactivateCoupon(ctx context.Context, code string) error {
	rows, err := s.store.DeactivateCoupon(ctx, code)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrCouponNotFound
	}
	return nil
}

func (s *CouponService) ListClaims(ctx context.Context, userID int64) ([]domain.UserCoupon, error) {
	return s.store.ListUserCoupons(ctx, userID)
}

type RedemptionResult struct {
	Usage         domain.CouponUsage
	Claim         domain.UserCoupon
	PayableAmount decimal.Decimal
}

// Redeem applies a claimed coupon to an order that was placed without one.
func (s *CouponService) Redeem(ctx context.Context, userID int64, code string, orderID int64) (RedemptionResult, error) {
	var res RedemptionResult
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		user, err := q.GetUser(ctx, userID)
		if err != nil {
			return err
		}

		coupon, claim, err := s.consumeClaim(ctx, q, userID, code)
		if err != nil {
			return err
		}

		order, err := q.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.BuyerID != userID {
			return domain.ErrOrderNotFound
		}
		if order.CouponCode != nil {
			return domain.ErrCouponAlreadyUsed
		}
		if order.PaymentStatus != domain.PaymentPending {
			return domain.ErrStatusTransition
		}

		items, err := q.ListOrderItems(ctx, orderID)
		if err != nil {
			return err
		}
		lines, err := pricedLines(ctx, q, items)
		if err != nil {
			return err
		}
		discount, err := coupon.DiscountFor(user, lines, order.ShippingFee)
		if err != nil {
			return err
		}
		payable := domain.Payable(order.TotalPrice, order.ShippingFee, discount, order.PointsUsed)

		rows, err := q.ApplyOrderCoupon(ctx, orderID, code, discount.Total(), payable)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrCouponAlreadyUsed
		}

		usage, err := q.InsertCouponUsage(ctx, domain.CouponUsage{
			UserCouponID:   claim.ID,
			CouponCode:     code,
			UserID:         userID,
			OrderID:        orderID,
			DiscountAmount: discount.Total(),
		})
		if err != nil {
			return err
		}

		res = RedemptionResult{Usage: usage, Claim: claim, PayableAmount: payable}
		return nil
	})
	if err != nil {
		return RedemptionResult{}, err
	}

	publish(ctx, s.events, Event{
		Type:       EventCouponRedeemed,
		Key:        code,
		OccurredAt: s.now().UTC(),
		Payload: CouponEvent{
			Code:          code,
			UserID:        userID,
			OrderID:       orderID,
			RemainingUses: res.Claim.RemainingUses,
			Discount:      res.Usage.DiscountAmount.StringFixed(2),
		},
	})
	return res, nil
}

// consumeClaim checks the claim and spends one use of it on q. The returned claim reflects
// the state after the decrement.
func (s *CouponService) consumeClaim(ctx context.Context, q repository.Querier, userID int64, code string) (domain.Coupon, domain.UserCoupon, error) {
	coupon, err := q.GetCoupon(ctx, code)
	if err != nil {
		return domain.Coupon{}, domain.UserCoupon{}, err
	}
	if !coupon.IsValid {
		return domain.Coupon{}, domain.UserCoupon{}, domain.ErrCouponNotFound
	}

	claim, err := q.GetUserCoupon(ctx, userID, code)
	if err != nil {
		return domain.Coupon{}, domain.UserCoupon{}, err
	}
	if claim.Expired(s.now()) {
		return domain.Coupon{}, domain.UserCoupon{}, domain.ErrClaimExpired
	}
	if !claim.HasUses() {
		return domain.Coupon{}, domain.UserCoupon{}, domain.ErrNoUsesRemaining
	}

	rows, err := q.ConsumeUserCoupon(ctx, userID, code)
	if err != nil {
		return domain.Coupon{}, domain.UserCoupon{}, err
	}
	if rows == 0 {
		return domain.Coupon{}, domain.UserCoupon{}, domain.ErrNoUsesRemaining
	}

	if claim.RemainingUses != domain.Unlimited {
		claim.RemainingUses--
		if claim.RemainingUses == 0 {
			claim.IsValid = false
		}
	}
	return coupon, claim, nil
}

func pricedLines(ctx context.Context, q repository.Querier, items []domain.OrderItem) ([]domain.PricedLine, error) {
	lines := make([]domain.PricedLine, 0, len(items))
	for _, it := range items {
		p, err := q.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, domain.PricedLine{Category: p.Category, Subtotal: it.Subtotal()})
	}
	return lines, nil
}
