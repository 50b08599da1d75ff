package repository

import (
	"context"
	"fmt"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store runs single statements on the pool, or a group of them inside one transaction via ExecTx.
type Store interface {
	Querier
	ExecTx(ctx context.Context, fn func(Querier) error) error
}

// Querier is every statement the services need. Guarded updates return the affected row count
// so callers can translate zero rows into the matching exhaustion error.
type Querier interface {
	CreateCoupon(ctx context.Context, c domain.Coupon) (domain.Coupon, error)
	GetCoupon(ctx context.Context, code string) (domain.Coupon, error)
	DecrementCouponQuantity(ctx context.Context, code string) (int64, error)
	DeactivateCoupon(ctx context.Context, code string) (int64, error)
	CountClaims(ctx context.Context, code string) (int, error)

	GetUserCoupon(ctx context.Context, userID int64, code string) (domain.UserCoupon, error)
	InsertUserCoupon(ctx context.Context, uc domain.UserCoupon) (domain.UserCoupon, error)
	ConsumeUserCoupon(ctx context.Context, userID int64, code string) (int64, error)
	ListUserCoupons(ctx context.Context, userID int64) ([]domain.UserCoupon, error)
	InsertCouponUsage(ctx context.Context, u domain.CouponUsage) (domain.CouponUsage, error)

	GetUser(ctx context.Context, id int64) (domain.User, error)
	DebitPoints(ctx context.Context, userID, amount int64) (int64, error)
	CreditPoints(ctx context.Context, userID, amount int64) (int64, error)
	InsertPointsEntry(ctx context.Context, e domain.PointsEntry) (domain.PointsEntry, error)
	ListPointsEntries(ctx context.Context, userID int64, limit int) ([]domain.PointsEntry, error)

	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	DecrementStock(ctx context.Context, productID int64, qty int) (int64, error)
	IncrementStock(ctx context.Context, productID int64, qty int) (int64, error)
	DeleteCartItems(ctx context.Context, userID int64, productIDs []int64) (int64, error)

	ClaimIdempotencyKey(ctx context.Context, userID int64, key string) (int64, error)
	GetOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (domain.Order, error)
	InsertOrder(ctx context.Context, o domain.Order) (domain.Order, error)
	GetOrder(ctx context.Context, id int64) (domain.Order, error)
	InsertOrderItem(ctx context.Context, item domain.OrderItem) error
	ListOrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error)
	SetOrderPointsGot(ctx context.Context, orderID, points int64) error
	ApplyOrderCoupon(ctx context.Context, orderID int64, code string, discount, payable decimal.Decimal) (int64, error)
	CancelOrder(ctx context.Context, orderID int64) (int64, error)
	ConfirmOrderPayment(ctx context.Context, orderID int64) (int64, error)
	AdvanceShipping(ctx context.Context, orderID int64, from, to domain.ShippingStatus) (int64, error)

	InsertPaymentRecord(ctx context.Context, p domain.PaymentRecord) (domain.PaymentRecord, error)
	GetPaymentRecord(ctx context.Context, orderID int64) (domain.PaymentRecord, error)
	UpdatePaymentRecordStatus(ctx context.Context, orderID int64, from []domain.PaymentRecordStatus, to domain.PaymentRecordStatus, ref string) (int64, error)
	InsertLogisticsInfo(ctx context.Context, l domain.LogisticsInfo) (domain.LogisticsInfo, error)
	GetLogisticsInfo(ctx context.Context, orderID int64) (domain.LogisticsInfo, error)
	UpdateLogisticsStatus(ctx context.Context, orderID int64, to domain.LogisticsStatus, tracking string) (int64, error)
}

type store struct {
	*Queries
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) Store {
	return &store{
		Queries: NewQueries(pool),
		pool:    pool,
	}
}

func (s *store) ExecTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	q := s.Queries.WithTx(tx)
	if err := fn(q); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %w, rollback err: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
