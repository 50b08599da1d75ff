package repository

import (
	"context"
	"fmt"

	"github.com/azizikri/vinyl-checkout/internal/domain"
)

const getUser = `SELECT id, account, member_level, points FROM users WHERE id = $1`

func (q *Queries) GetUser(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	err := q.db.QueryRow(ctx, getUser, id).Scan(&u.ID, &u.Account, &u.MemberLevel, &u.Points)
	if err != nil {
		return domain.User{}, notFound(err, domain.ErrUserNotFound, "get user")
	}
	return u, nil
}

const debitPoints = `UPDATE users SET points = points - $2 WHERE id = $1 AND points >= $2`

func (q *Queries) DebitPoints(ctx context.Context, userID, amount int64) (int64, error) {
	return q.exec(ctx, "debit points", debitPoints, userID, amount)
}

const creditPoints = `UPDATE users SET points = points + $2 WHERE id = $1`

func (q *Queries) CreditPoints(ctx context.Context, userID, amount int64) (int64, error) {
	return q.exec(ctx, "credit points", creditPoints, userID, amount)
}

const insertPointsEntry = `INSERT INTO points_ledger (user_id, delta, reason, order_id)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`

func (q *Queries) InsertPointsEntry(ctx context.Context, e domain.PointsEntry) (domain.PointsEntry, error) {
	err := q.db.QueryRow(ctx, insertPointsEntry, e.UserID, e.Delta, e.Reason, e.OrderID).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return domain.PointsEntry{}, fmt.Errorf("insert points entry: %w", err)
	}
	return e, nil
}

const listPointsEntries = `SELECT id, user_id, delta, reason, order_id, created_at
FROM points_ledger
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

func (q *Queries) ListPointsEntries(ctx context.Context, userID int64, limit int) ([]domain.PointsEntry, error) {
	rows, err := q.db.Query(ctx, listPointsEntries, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list points entries: %w", err)
	}
	defer rows.Close()

	var out []domain.PointsEntry
	for rows.Next() {
		var e domain.PointsEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &e.Reason, &e.OrderID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan points entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
