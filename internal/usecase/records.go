package usecase

import (
	"context"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/azizikri/vinyl-checkout/internal/logger"
	"github.com/azizikri/vinyl-checkout/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentRecordFactory struct{}

func (PaymentRecordFactory) Create(ctx context.Context, q repository.Querier, orderID int64, method domain.PaymentMethod, amount decimal.Decimal) (domain.PaymentRecord, error) {
	if !method.Valid() {
		return domain.PaymentRecord{}, domain.ErrInvalidPaymentMethod
	}
	return q.InsertPaymentRecord(ctx, domain.PaymentRecord{
		OrderID: orderID,
		Method:  method,
		Amount:  amount,
		Status:  domain.RecordPending,
	})
}

type LogisticsRecordFactory struct{}

func (LogisticsRecordFactory) Create(ctx context.Context, q repository.Querier, orderID int64, info domain.LogisticsInfo) (domain.LogisticsInfo, error) {
	if err := info.Validate(); err != nil {
		return domain.LogisticsInfo{}, err
	}
	info.OrderID = orderID
	info.Status = domain.LogisticsPending
	return q.InsertLogisticsInfo(ctx, info)
}

// FulfillmentService applies status updates reported by the payment gateway and the shipping desk.
type FulfillmentService struct {
	store repository.Store
}

func NewFulfillmentService(store repository.Store) *FulfillmentService {
	return &FulfillmentService{store: store}
}

// UpdatePaymentStatus settles a pending payment as paid or failed. A paid record confirms the order.
func (s *FulfillmentService) UpdatePaymentStatus(ctx context.Context, orderID int64, status domain.PaymentRecordStatus, ref string) (domain.PaymentRecord, error) {
	if status != domain.RecordPaid && status != domain.RecordFailed {
		return domain.PaymentRecord{}, domain.ErrStatusTransition
	}

	var record domain.PaymentRecord
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		if _, err := q.GetOrder(ctx, orderID); err != nil {
			return err
		}
		rows, err := q.UpdatePaymentRecordStatus(ctx, orderID, []domain.PaymentRecordStatus{domain.RecordPending}, status, ref)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrStatusTransition
		}
		if status == domain.RecordPaid {
			rows, err := q.ConfirmOrderPayment(ctx, orderID)
			if err != nil {
				return err
			}
			if rows == 0 {
				return domain.ErrStatusTransition
			}
		}
		record, err = q.GetPaymentRecord(ctx, orderID)
		return err
	})
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	logger.FromContext(ctx).Info("payment_status_updated",
		zap.Int64("order_id", orderID),
		zap.String("status", string(status)),
	)
	return record, nil
}

var logisticsStatusFor = map[domain.ShippingStatus]domain.LogisticsStatus{
	domain.ShippingShipped:   domain.LogisticsShipped,
	domain.ShippingDelivered: domain.LogisticsDelivered,
}

// UpdateShippingStatus moves a shipment one step forward: processing, shipped, delivered.
func (s *FulfillmentService) UpdateShippingStatus(ctx context.Context, orderID int64, to domain.ShippingStatus, tracking string) (domain.LogisticsInfo, error) {
	var info domain.LogisticsInfo
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		order, err := q.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		next, ok := order.ShippingStatus.Next()
		if !ok || next != to {
			return domain.ErrStatusTransition
		}

		rows, err := q.AdvanceShipping(ctx, orderID, order.ShippingStatus, to)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrStatusTransition
		}

		rows, err = q.UpdateLogisticsStatus(ctx, orderID, logisticsStatusFor[to], tracking)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrStatusTransition
		}
		info, err = q.GetLogisticsInfo(ctx, orderID)
		return err
	})
	if err != nil {
		return domain.LogisticsInfo{}, err
	}
	return info, nil
}
