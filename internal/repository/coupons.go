package repository

import (
	"context"
	"fmt"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/jackc/pgx/v5"
)

const couponColumns = `code, name, discount_kind, discount_value, target_scope, target_value,
	total_quantity, usage_limit, validity_days, start_at, end_at, status, is_valid, created_at`

func scanCoupon(row pgx.Row) (domain.Coupon, error) {
	var c domain.Coupon
	err := row.Scan(
		&c.Code,
		&c.Name,
		&c.Rule.Kind,
		&c.Rule.Amount,
		&c.Scope,
		&c.ScopeValue,
		&c.TotalQuantity,
		&c.UsageLimit,
		&c.ValidityDays,
		&c.StartAt,
		&c.EndAt,
		&c.Status,
		&c.IsValid,
		&c.CreatedAt,
	)
	return c, err
}

const createCoupon = `INSERT INTO coupons (
	code, name, discount_kind, discount_value, target_scope, target_value,
	total_quantity, usage_limit, validity_days, start_at, end_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + couponColumns

func (q *Queries) CreateCoupon(ctx context.Context, c domain.Coupon) (domain.Coupon, error) {
	row := q.db.QueryRow(ctx, createCoupon,
		c.Code,
		c.Name,
		c.Rule.Kind,
		c.Rule.Amount,
		c.Scope,
		c.ScopeValue,
		c.TotalQuantity,
		c.UsageLimit,
		c.ValidityDays,
		c.StartAt,
		c.EndAt,
	)
	created, err := scanCoupon(row)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return domain.Coupon{}, domain.ErrDuplicateCoupon
		}
		return domain.Coupon{}, fmt.Errorf("create coupon: %w", err)
	}
	return created, nil
}

const getCoupon = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

func (q *Queries) GetCoupon(ctx context.Context, code string) (domain.Coupon, error) {
	c, err := scanCoupon(q.db.QueryRow(ctx, getCoupon, code))
	if err != nil {
		return domain.Coupon{}, notFound(err, domain.ErrCouponNotFound, "get coupon")
	}
	return c, nil
}

// The WHERE clause re-checks supply, status and validity against the row as it exists
// when the UPDATE runs. SET expressions see the pre-update values.
const decrementCouponQuantity = `UPDATE coupons SET
	total_quantity = CASE WHEN total_quantity = -1 THEN -1 ELSE total_quantity - 1 END,
	status = CASE WHEN total_quantity <> -1 AND total_quantity - 1 <= 0 THEN 'inactive' ELSE status END,
	updated_at = now()
WHERE code = $1
	AND (total_quantity > 0 OR total_quantity = -1)
	AND status = 'active'
	AND is_valid`

func (q *Queries) DecrementCouponQuantity(ctx context.Context, code string) (int64, error) {
	return q.exec(ctx, "decrement coupon quantity", decrementCouponQuantity, code)
}

const deactivateCoupon = `UPDATE coupons SET is_valid = FALSE, updated_at = now() WHERE code = $1 AND is_valid`

func (q *Queries) DeactivateCoupon(ctx context.Context, code string) (int64, error) {
	return q.exec(ctx, "deactivate coupon", deactivateCoupon, code)
}

const countClaims = `SELECT count(*) FROM user_coupons WHERE coupon_code = $1`

func (q *Queries) CountClaims(ctx context.Context, code string) (int, error) {
	var n int
	if err := q.db.QueryRow(ctx, countClaims, code).Scan(&n); err != nil {
		return 0, fmt.Errorf("count claims: %w", err)
	}
	return n, nil
}

const userCouponColumns = `id, user_id, coupon_code, remaining_uses, expires_at, is_valid, claimed_at`

func scanUserCoupon(row pgx.Row) (domain.UserCoupon, error) {
	var uc domain.UserCoupon
	err := row.Scan(
		&uc.ID,
		&uc.UserID,
		&uc.CouponCode,
		&uc.RemainingUses,
		&uc.ExpiresAt,
		&uc.IsValid,
		&uc.ClaimedAt,
	)
	return uc, err
}

const getUserCoupon = `SELECT ` + userCouponColumns + ` FROM user_coupons WHERE user_id = $1 AND coupon_code = $2`

func (q *Queries) GetUserCoupon(ctx context.Context, userID int64, code string) (domain.UserCoupon, error) {
	uc, err := scanUserCoupon(q.db.QueryRow(ctx, getUserCoupon, userID, code))
	if err != nil {
		return domain.UserCoupon{}, notFound(err, domain.ErrClaimNotFound, "get user coupon")
	}
	return uc, nil
}

const insertUserCoupon = `INSERT INTO user_coupons (user_id, coupon_code, remaining_uses, expires_at)
VALUES ($1, $2, $3, $4)
RETURNING ` + userCouponColumns

func (q *Queries) InsertUserCoupon(ctx context.Context, uc domain.UserCoupon) (domain.UserCoupon, error) {
	row := q.db.QueryRow(ctx, insertUserCoupon, uc.UserID, uc.CouponCode, uc.RemainingUses, uc.ExpiresAt)
	created, err := scanUserCoupon(row)
	if err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			return domain.UserCoupon{}, domain.ErrAlreadyClaimed
		case pgForeignKeyViolation:
			return domain.UserCoupon{}, domain.ErrUserNotFound
		}
		return domain.UserCoupon{}, fmt.Errorf("insert user coupon: %w", err)
	}
	return created, nil
}

// Same shape as the coupon decrement: one statement both checks and consumes a use.
const consumeUserCoupon = `UPDATE user_coupons SET
	remaining_uses = CASE WHEN remaining_uses = -1 THEN -1 ELSE remaining_uses - 1 END,
	is_valid = CASE WHEN remaining_uses <> -1 AND remaining_uses - 1 <= 0 THEN FALSE ELSE is_valid END
WHERE user_id = $1
	AND coupon_code = $2
	AND (remaining_uses > 0 OR remaining_uses = -1)
	AND is_valid`

func (q *Queries) ConsumeUserCoupon(ctx context.Context, userID int64, code string) (int64, error) {
	return q.exec(ctx, "consume user coupon", consumeUserCoupon, userID, code)
}

const listUserCoupons = `SELECT ` + userCouponColumns + ` FROM user_coupons WHERE user_id = $1 ORDER BY claimed_at DESC`

func (q *Queries) ListUserCoupons(ctx context.Context, userID int64) ([]domain.UserCoupon, error) {
	rows, err := q.db.Query(ctx, listUserCoupons, userID)
	if err != nil {
		return nil, fmt.Errorf("list user coupons: %w", err)
	}
	defer rows.Close()

	var out []domain.UserCoupon
	for rows.Next() {
		uc, err := scanUserCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user coupon: %w", err)
		}
		out = append(out, uc)
	}
	return out, rows.Err()
}

const insertCouponUsage = `INSERT INTO coupon_usages (user_coupon_id, coupon_code, user_id, order_id, discount_amount)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at`

func (q *Queries) InsertCouponUsage(ctx context.Context, u domain.CouponUsage) (domain.CouponUsage, error) {
	err := q.db.QueryRow(ctx, insertCouponUsage,
		u.UserCouponID,
		u.CouponCode,
		u.UserID,
		u.OrderID,
		u.DiscountAmount,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return domain.CouponUsage{}, fmt.Errorf("insert coupon usage: %w", err)
	}
	return u, nil
}
