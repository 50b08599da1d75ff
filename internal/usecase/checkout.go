package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/azizikri/vinyl-checkout/internal/logger"
	"github.com/azizikri/vinyl-checkout/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CheckoutItem struct {
	ProductID int64
	Quantity  int
}

type CheckoutInput struct {
	UserID         int64
	Items          []CheckoutItem
	Recipient      domain.Recipient
	CouponCode     string
	PointsToUse    int64
	PaymentMethod  domain.PaymentMethod
	Logistics      domain.LogisticsInfo
	IdempotencyKey string
}

type CheckoutResult struct {
	Order    domain.Order
	Replayed bool
}

type CheckoutOptions struct {
	ShippingFee decimal.Decimal
	Timeout     time.Duration
}

// CheckoutService turns a cart snapshot into an order in one transaction and undoes it on cancel.
type CheckoutService struct {
	store     repository.Store
	coupons   *CouponService
	events    EventPublisher
	inventory InventoryLedger
	points    PointsLedger
	payments  PaymentRecordFactory
	logistics LogisticsRecordFactory
	opts      CheckoutOptions
}

func NewCheckoutService(store repository.Store, coupons *CouponService, events EventPublisher, opts CheckoutOptions) *CheckoutService {
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	return &CheckoutService{
		store:   store,
		coupons: coupons,
		events:  events,
		opts:    opts,
	}
}

func validateCheckout(in CheckoutInput) error {
	if !in.PaymentMethod.Valid() {
		return domain.ErrInvalidPaymentMethod
	}
	if err := in.Logistics.Validate(); err != nil {
		return err
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: cart is empty", domain.ErrValidation)
	}
	seen := make(map[int64]struct{}, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
		}
		if _, dup := seen[it.ProductID]; dup {
			return fmt.Errorf("%w: product %d listed twice", domain.ErrValidation, it.ProductID)
		}
		seen[it.ProductID] = struct{}{}
	}
	if strings.TrimSpace(in.Recipient.Name) == "" || strings.TrimSpace(in.Recipient.Phone) == "" {
		return fmt.Errorf("%w: recipient name and phone are required", domain.ErrValidation)
	}
	if in.PointsToUse < 0 {
		return fmt.Errorf("%w: points to use must not be negative", domain.ErrValidation)
	}
	return nil
}

// Checkout either commits the order with all of its items, stock decrements, points entries,
// payment and logistics rows, or leaves nothing behind.
func (s *CheckoutService) Checkout(ctx context.Context, in CheckoutInput) (CheckoutResult, error) {
	if err := validateCheckout(in); err != nil {
		return CheckoutResult{}, err
	}
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = uuid.NewString()
	}

	txCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	items := make([]CheckoutItem, len(in.Items))
	copy(items, in.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	var order domain.Order
	err := s.store.ExecTx(txCtx, func(q repository.Querier) error {
		rows, err := q.ClaimIdempotencyKey(txCtx, in.UserID, in.IdempotencyKey)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrDuplicateRequest
		}

		user, err := q.GetUser(txCtx, in.UserID)
		if err != nil {
			return err
		}
		if in.PointsToUse > 0 && user.Points < in.PointsToUse {
			return fmt.Errorf("%w: balance %d, requested %d", domain.ErrInsufficientPoints, user.Points, in.PointsToUse)
		}

		var (
			coupon domain.Coupon
			claim  domain.UserCoupon
		)
		if in.CouponCode != "" {
			coupon, claim, err = s.coupons.consumeClaim(txCtx, q, in.UserID, in.CouponCode)
			if err != nil {
				return err
			}
		}

		lines := make([]domain.OrderItem, 0, len(items))
		priced := make([]domain.PricedLine, 0, len(items))
		productIDs := make([]int64, 0, len(items))
		for _, it := range items {
			product, err := s.inventory.Reserve(txCtx, q, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			line := domain.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: product.Price}
			lines = append(lines, line)
			priced = append(priced, domain.PricedLine{Category: product.Category, Subtotal: line.Subtotal()})
			productIDs = append(productIDs, it.ProductID)
		}
		total := domain.SumSubtotals(lines)

		discount := domain.Discount{Items: decimal.Zero, Shipping: decimal.Zero}
		var couponCode *string
		if in.CouponCode != "" {
			discount, err = coupon.DiscountFor(user, priced, s.opts.ShippingFee)
			if err != nil {
				return err
			}
			code := coupon.Code
			couponCode = &code
		}

		beforePoints := domain.Payable(total, s.opts.ShippingFee, discount, 0)
		if decimal.NewFromInt(in.PointsToUse).GreaterThan(beforePoints) {
			return fmt.Errorf("%w: points exceed the amount due", domain.ErrValidation)
		}

		order, err = q.InsertOrder(txCtx, domain.Order{
			BuyerID:        in.UserID,
			TotalPrice:     total,
			DiscountAmount: discount.Total(),
			ShippingFee:    s.opts.ShippingFee,
			PayableAmount:  domain.Payable(total, s.opts.ShippingFee, discount, in.PointsToUse),
			PointsUsed:     in.PointsToUse,
			PointsGot:      0,
			CouponCode:     couponCode,
			Recipient:      in.Recipient,
			IdempotencyKey: in.IdempotencyKey,
		})
		if err != nil {
			return err
		}

		for i := range lines {
			lines[i].OrderID = order.ID
			if err := q.InsertOrderItem(txCtx, lines[i]); err != nil {
				return err
			}
		}
		order.Items = lines

		if couponCode != nil {
			if _, err := q.InsertCouponUsage(txCtx, domain.CouponUsage{
				UserCouponID:   claim.ID,
				CouponCode:     *couponCode,
				UserID:         in.UserID,
				OrderID:        order.ID,
				DiscountAmount: discount.Total(),
			}); err != nil {
				return err
			}
		}

		if _, err := q.DeleteCartItems(txCtx, in.UserID, productIDs); err != nil {
			return err
		}

		if in.PointsToUse > 0 {
			if _, err := s.points.Debit(txCtx, q, in.UserID, in.PointsToUse, domain.ReasonCheckoutSpend, &order.ID); err != nil {
				return err
			}
		}
		if reward := domain.Reward(total); reward > 0 {
			if _, err := s.points.Credit(txCtx, q, in.UserID, reward, domain.ReasonCheckoutReward, &order.ID); err != nil {
				return err
			}
			if err := q.SetOrderPointsGot(txCtx, order.ID, reward); err != nil {
				return err
			}
			order.PointsGot = reward
		}

		payment, err := s.payments.Create(txCtx, q, order.ID, in.PaymentMethod, order.PayableAmount)
		if err != nil {
			return err
		}
		logistics, err := s.logistics.Create(txCtx, q, order.ID, in.Logistics)
		if err != nil {
			return err
		}
		order.Payment = &payment
		order.Logistics = &logistics
		return nil
	})
	if errors.Is(err, domain.ErrDuplicateRequest) {
		return s.replay(ctx, in.UserID, in.IdempotencyKey)
	}
	if err != nil {
		return CheckoutResult{}, err
	}

	logger.FromContext(ctx).Info("order_created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", in.UserID),
		zap.String("total_price", order.TotalPrice.StringFixed(2)),
		zap.Int64("points_got", order.PointsGot),
	)
	publish(ctx, s.events, orderEvent(EventOrderCreated, order, order.Items))
	return CheckoutResult{Order: order}, nil
}

// replay returns the order an earlier checkout committed under the same idempotency key.
func (s *CheckoutService) replay(ctx context.Context, userID int64, key string) (CheckoutResult, error) {
	order, err := s.store.GetOrderByIdempotencyKey(ctx, userID, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return CheckoutResult{}, domain.ErrDuplicateRequest
		}
		return CheckoutResult{}, err
	}
	if err := s.loadDetails(ctx, s.store, &order); err != nil {
		return CheckoutResult{}, err
	}
	logger.FromContext(ctx).Info("checkout_replayed", zap.Int64("order_id", order.ID), zap.String("idempotency_key", key))
	return CheckoutResult{Order: order, Replayed: true}, nil
}

func (s *CheckoutService) loadDetails(ctx context.Context, q repository.Querier, order *domain.Order) error {
	items, err := q.ListOrderItems(ctx, order.ID)
	if err != nil {
		return err
	}
	payment, err := q.GetPaymentRecord(ctx, order.ID)
	if err != nil {
		return err
	}
	logistics, err := q.GetLogisticsInfo(ctx, order.ID)
	if err != nil {
		return err
	}
	order.Items = items
	order.Payment = &payment
	order.Logistics = &logistics
	return nil
}

func (s *CheckoutService) GetOrder(ctx context.Context, actor Actor, orderID int64) (domain.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !actor.CanAccess(order.BuyerID) {
		return domain.Order{}, domain.ErrForbidden
	}
	if err := s.loadDetails(ctx, s.store, &order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// CancelOrder releases exactly the stock the order reserved, settles the points it moved and
// closes its payment and logistics rows. Only orders that have not shipped can be cancelled.
func (s *CheckoutService) CancelOrder(ctx context.Context, actor Actor, orderID int64) (domain.Order, error) {
	var order domain.Order
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		order, err = q.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !actor.CanAccess(order.BuyerID) {
			return domain.ErrForbidden
		}

		rows, err := q.CancelOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrOrderNotCancellable
		}

		items, err := q.ListOrderItems(ctx, orderID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := s.inventory.Release(ctx, q, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}

		switch net := order.PointsUsed - order.PointsGot; {
		case net > 0:
			if _, err := s.points.Credit(ctx, q, order.BuyerID, net, domain.ReasonCancelRefund, &order.ID); err != nil {
				return err
			}
		case net < 0:
			if _, err := s.points.Debit(ctx, q, order.BuyerID, -net, domain.ReasonCancelReclaim, &order.ID); err != nil {
				return err
			}
		}

		if _, err := q.UpdatePaymentRecordStatus(ctx, orderID,
			[]domain.PaymentRecordStatus{domain.RecordPending, domain.RecordPaid, domain.RecordFailed},
			domain.RecordCancelled, ""); err != nil {
			return err
		}
		if _, err := q.UpdateLogisticsStatus(ctx, orderID, domain.LogisticsCancelled, ""); err != nil {
			return err
		}

		order.PaymentStatus = domain.PaymentCancelled
		order.Items = items
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	logger.FromContext(ctx).Info("order_cancelled", zap.Int64("order_id", orderID), zap.Int64("actor_id", actor.UserID))
	publish(ctx, s.events, orderEvent(EventOrderCancelled, order, order.Items))
	return order, nil
}
