package repository

import (
	"context"
	"fmt"

	"github.com/azizikri/vinyl-checkout/internal/domain"
)

const insertPaymentRecord = `INSERT INTO payment_records (order_id, method, amount, status)
VALUES ($1, $2, $3, $4)
RETURNING order_id, method, amount, status, transaction_ref, updated_at`

func (q *Queries) InsertPaymentRecord(ctx context.Context, p domain.PaymentRecord) (domain.PaymentRecord, error) {
	var out domain.PaymentRecord
	err := q.db.QueryRow(ctx, insertPaymentRecord, p.OrderID, p.Method, p.Amount, p.Status).Scan(
		&out.OrderID,
		&out.Method,
		&out.Amount,
		&out.Status,
		&out.TransactionRef,
		&out.UpdatedAt,
	)
	if err != nil {
		return domain.PaymentRecord{}, fmt.Errorf("insert payment record: %w", err)
	}
	return out, nil
}

const getPaymentRecord = `SELECT order_id, method, amount, status, transaction_ref, updated_at
FROM payment_records WHERE order_id = $1`

func (q *Queries) GetPaymentRecord(ctx context.Context, orderID int64) (domain.PaymentRecord, error) {
	var out domain.PaymentRecord
	err := q.db.QueryRow(ctx, getPaymentRecord, orderID).Scan(
		&out.OrderID,
		&out.Method,
		&out.Amount,
		&out.Status,
		&out.TransactionRef,
		&out.UpdatedAt,
	)
	if err != nil {
		return domain.PaymentRecord{}, notFound(err, domain.ErrRecordNotFound, "get payment record")
	}
	return out, nil
}

const updatePaymentRecordStatus = `UPDATE payment_records
SET status = $3, transaction_ref = CASE WHEN $4 = '' THEN transaction_ref ELSE $4 END, updated_at = now()
WHERE order_id = $1 AND status = ANY($2)`

func (q *Queries) UpdatePaymentRecordStatus(ctx context.Context, orderID int64, from []domain.PaymentRecordStatus, to domain.PaymentRecordStatus, ref string) (int64, error) {
	statuses := make([]string, len(from))
	for i, st := range from {
		statuses[i] = string(st)
	}
	return q.exec(ctx, "update payment record", updatePaymentRecordStatus, orderID, statuses, to, ref)
}

const insertLogisticsInfo = `INSERT INTO logistics_info (order_id, channel, store_id, address, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING order_id, channel, store_id, address, status, tracking_number, updated_at`

func (q *Queries) InsertLogisticsInfo(ctx context.Context, l domain.LogisticsInfo) (domain.LogisticsInfo, error) {
	var out domain.LogisticsInfo
	err := q.db.QueryRow(ctx, insertLogisticsInfo, l.OrderID, l.Channel, l.StoreID, l.Address, l.Status).Scan(
		&out.OrderID,
		&out.Channel,
		&out.StoreID,
		&out.Address,
		&out.Status,
		&out.TrackingNumber,
		&out.UpdatedAt,
	)
	if err != nil {
		return domain.LogisticsInfo{}, fmt.Errorf("insert logistics info: %w", err)
	}
	return out, nil
}

const getLogisticsInfo = `SELECT order_id, channel, store_id, address, status, tracking_number, updated_at
FROM logistics_info WHERE order_id = $1`

func (q *Queries) GetLogisticsInfo(ctx context.Context, orderID int64) (domain.LogisticsInfo, error) {
	var out domain.LogisticsInfo
	err := q.db.QueryRow(ctx, getLogisticsInfo, orderID).Scan(
		&out.OrderID,
		&out.Channel,
		&out.StoreID,
		&out.Address,
		&out.Status,
		&out.TrackingNumber,
		&out.UpdatedAt,
	)
	if err != nil {
		return domain.LogisticsInfo{}, notFound(err, domain.ErrRecordNotFound, "get logistics info")
	}
	return out, nil
}

const updateLogisticsStatus = `UPDATE logistics_info
SET status = $2, tracking_number = CASE WHEN $3 = '' THEN tracking_number ELSE $3 END, updated_at = now()
WHERE order_id = $1 AND status NOT IN ('delivered', 'cancelled')`

func (q *Queries) UpdateLogisticsStatus(ctx context.Context, orderID int64, to domain.LogisticsStatus, tracking string) (int64, error) {
	return q.exec(ctx, "update logistics status", updateLogisticsStatus, orderID, to, tracking)
}
