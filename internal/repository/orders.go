package repository

import (
	"context"
	"fmt"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const claimIdempotencyKey = `INSERT INTO checkout_requests (user_id, idempotency_key)
VALUES ($1, $2)
ON CONFLICT DO NOTHING`

// ClaimIdempotencyKey returns 0 when the key was already recorded by a committed checkout.
// A concurrent holder of the same key makes this statement wait for that transaction to finish.
func (q *Queries) ClaimIdempotencyKey(ctx context.Context, userID int64, key string) (int64, error) {
	return q.exec(ctx, "claim idempotency key", claimIdempotencyKey, userID, key)
}

const orderColumns = `id, buyer_id, total_price, discount_amount, shipping_fee, payable_amount,
	points_used, points_got, coupon_code, payment_status, shipping_status,
	recipient_name, recipient_phone, recipient_address, idempotency_key, created_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.BuyerID,
		&o.TotalPrice,
		&o.DiscountAmount,
		&o.ShippingFee,
		&o.PayableAmount,
		&o.PointsUsed,
		&o.PointsGot,
		&o.CouponCode,
		&o.PaymentStatus,
		&o.ShippingStatus,
		&o.Recipient.Name,
		&o.Recipient.Phone,
		&o.Recipient.Address,
		&o.IdempotencyKey,
		&o.CreatedAt,
	)
	return o, err
}

const getOrderByIdempotencyKey = `SELECT ` + orderColumns + ` FROM orders WHERE buyer_id = $1 AND idempotency_key = $2`

func (q *Queries) GetOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (domain.Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx, getOrderByIdempotencyKey, userID, key))
	if err != nil {
		return domain.Order{}, notFound(err, domain.ErrOrderNotFound, "get order by idempotency key")
	}
	return o, nil
}

const insertOrder = `INSERT INTO orders (
	buyer_id, total_price, discount_amount, shipping_fee, payable_amount,
	points_used, points_got, coupon_code, recipient_name, recipient_phone,
	recipient_address, idempotency_key
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + orderColumns

func (q *Queries) InsertOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	row := q.db.QueryRow(ctx, insertOrder,
		o.BuyerID,
		o.TotalPrice,
		o.DiscountAmount,
		o.ShippingFee,
		o.PayableAmount,
		o.PointsUsed,
		o.PointsGot,
		o.CouponCode,
		o.Recipient.Name,
		o.Recipient.Phone,
		o.Recipient.Address,
		o.IdempotencyKey,
	)
	created, err := scanOrder(row)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return domain.Order{}, domain.ErrDuplicateRequest
		}
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return created, nil
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx, getOrder, id))
	if err != nil {
		return domain.Order{}, notFound(err, domain.ErrOrderNotFound, "get order")
	}
	return o, nil
}

const insertOrderItem = `INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES ($1, $2, $3, $4)`

func (q *Queries) InsertOrderItem(ctx context.Context, item domain.OrderItem) error {
	_, err := q.db.Exec(ctx, insertOrderItem, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

const listOrderItems = `SELECT order_id, product_id, quantity, unit_price FROM order_items WHERE order_id = $1 ORDER BY product_id`

func (q *Queries) ListOrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

const setOrderPointsGot = `UPDATE orders SET points_got = $2 WHERE id = $1`

func (q *Queries) SetOrderPointsGot(ctx context.Context, orderID, points int64) error {
	_, err := q.db.Exec(ctx, setOrderPointsGot, orderID, points)
	if err != nil {
		return fmt.Errorf("set order points: %w", err)
	}
	return nil
}

// The payment record amount follows the order's payable amount in the same statement.
const applyOrderCoupon = `WITH o AS (
	UPDATE orders SET coupon_code = $2, discount_amount = $3, payable_amount = $4
	WHERE id = $1 AND coupon_code IS NULL AND payment_status = 'pending'
	RETURNING id
)
UPDATE payment_records SET amount = $4, updated_at = now()
WHERE order_id IN (SELECT id FROM o) AND status = 'pending'`

func (q *Queries) ApplyOrderCoupon(ctx context.Context, orderID int64, code string, discount, payable decimal.Decimal) (int64, error) {
	return q.exec(ctx, "apply order coupon", applyOrderCoupon, orderID, code, discount, payable)
}

const cancelOrder = `UPDATE orders SET payment_status = 'cancelled'
WHERE id = $1 AND payment_status <> 'cancelled' AND shipping_status = 'processing'`

func (q *Queries) CancelOrder(ctx context.Context, orderID int64) (int64, error) {
	return q.exec(ctx, "cancel order", cancelOrder, orderID)
}

const confirmOrderPayment = `UPDATE orders SET payment_status = 'confirmed' WHERE id = $1 AND payment_status = 'pending'`

func (q *Queries) ConfirmOrderPayment(ctx context.Context, orderID int64) (int64, error) {
	return q.exec(ctx, "confirm order payment", confirmOrderPayment, orderID)
}

const advanceShipping = `UPDATE orders SET shipping_status = $3
WHERE id = $1 AND shipping_status = $2 AND payment_status <> 'cancelled'`

func (q *Queries) AdvanceShipping(ctx context.Context, orderID int64, from, to domain.ShippingStatus) (int64, error) {
	return q.exec(ctx, "advance shipping", advanceShipping, orderID, from, to)
}
