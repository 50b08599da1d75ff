package usecase

import (
	"context"
	"strconv"
	"time"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/azizikri/vinyl-checkout/internal/logger"
	"go.uber.org/zap"
)

type EventType string

const (
	EventOrderCreated   EventType = "order.created"
	EventOrderCancelled EventType = "order.cancelled"
	EventCouponClaimed  EventType = "coupon.claimed"
	EventCouponRedeemed EventType = "coupon.redeemed"
)

func EventTypes() []EventType {
	return []EventType{EventOrderCreated, EventOrderCancelled, EventCouponClaimed, EventCouponRedeemed}
}

// Event is published after the transaction that produced it has committed.
type Event struct {
	Type       EventType
	Key        string
	OccurredAt time.Time
	Payload    any
}

type OrderEventItem struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type OrderEvent struct {
	OrderID       int64            `json:"order_id"`
	BuyerID       int64            `json:"buyer_id"`
	TotalPrice    string           `json:"total_price"`
	PayableAmount string           `json:"payable_amount"`
	PointsUsed    int64            `json:"points_used"`
	PointsGot     int64            `json:"points_got"`
	CouponCode    string           `json:"coupon_code,omitempty"`
	PaymentStatus string           `json:"payment_status"`
	Items         []OrderEventItem `json:"items,omitempty"`
}

type CouponEvent struct {
	Code          string `json:"code"`
	UserID        int64  `json:"user_id"`
	OrderID       int64  `json:"order_id,omitempty"`
	RemainingUses int    `json:"remaining_uses"`
	Discount      string `json:"discount,omitempty"`
}

func orderEvent(typ EventType, o domain.Order, items []domain.OrderItem) Event {
	payload := OrderEvent{
		OrderID:       o.ID,
		BuyerID:       o.BuyerID,
		TotalPrice:    o.TotalPrice.StringFixed(2),
		PayableAmount: o.PayableAmount.StringFixed(2),
		PointsUsed:    o.PointsUsed,
		PointsGot:     o.PointsGot,
		PaymentStatus: string(o.PaymentStatus),
	}
	if o.CouponCode != nil {
		payload.CouponCode = *o.CouponCode
	}
	for _, it := range items {
		payload.Items = append(payload.Items, OrderEventItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
		})
	}
	return Event{
		Type:       typ,
		Key:        strconv.FormatInt(o.ID, 10),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// publish never fails the caller; the state change it describes is already committed.
func publish(ctx context.Context, p EventPublisher, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.FromContext(ctx).Warn("event_publish_failed",
			zap.String("type", string(ev.Type)),
			zap.String("key", ev.Key),
			zap.Error(err),
		)
	}
}
