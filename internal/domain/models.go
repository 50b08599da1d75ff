package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unlimited marks a quantity or usage counter that never runs out.
const Unlimited = -1

type TargetScope string

const (
	ScopeAll           TargetScope = "all"
	ScopeMemberSegment TargetScope = "member_segment"
	ScopeCategory      TargetScope = "category"
)

func (s TargetScope) Valid() bool {
	switch s {
	case ScopeAll, ScopeMemberSegment, ScopeCategory:
		return true
	}
	return false
}

type CouponStatus string

const (
	CouponActive   CouponStatus = "active"
	CouponInactive CouponStatus = "inactive"
)

type Coupon struct {
	Code          string
	Name          string
	Rule          DiscountRule
	Scope         TargetScope
	ScopeValue    string
	TotalQuantity int
	UsageLimit    int
	ValidityDays  int
	StartAt       time.Time
	EndAt         time.Time
	Status        CouponStatus
	IsValid       bool
	CreatedAt     time.Time
	ClaimedCount  int
}

func (c Coupon) InWindow(now time.Time) bool {
	return !now.Before(c.StartAt) && !now.After(c.EndAt)
}

// ClaimExpiry is frozen onto the claim row at claim time.
func (c Coupon) ClaimExpiry(now time.Time) time.Time {
	if c.ValidityDays > 0 {
		return now.AddDate(0, 0, c.ValidityDays)
	}
	return c.EndAt
}

type UserCoupon struct {
	ID            int64
	UserID        int64
	CouponCode    string
	RemainingUses int
	ExpiresAt     time.Time
	IsValid       bool
	ClaimedAt     time.Time
}

func (u UserCoupon) Expired(now time.Time) bool {
	return !now.Before(u.ExpiresAt)
}

func (u UserCoupon) HasUses() bool {
	return u.IsValid && (u.RemainingUses > 0 || u.RemainingUses == Unlimited)
}

type CouponUsage struct {
	ID             int64
	UserCouponID   int64
	CouponCode     string
	UserID         int64
	OrderID        int64
	DiscountAmount decimal.Decimal
	CreatedAt      time.Time
}

type User struct {
	ID          int64
	Account     string
	MemberLevel string
	Points      int64
}

type Product struct {
	ID       int64
	Title    string
	Artist   string
	Category string
	Price    decimal.Decimal
	Stock    int
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentCancelled PaymentStatus = "cancelled"
)

type ShippingStatus string

const (
	ShippingProcessing ShippingStatus = "processing"
	ShippingShipped    ShippingStatus = "shipped"
	ShippingDelivered  ShippingStatus = "delivered"
)

// Next reports the only status a shipment may move to from s.
func (s ShippingStatus) Next() (ShippingStatus, bool) {
	switch s {
	case ShippingProcessing:
		return ShippingShipped, true
	case ShippingShipped:
		return ShippingDelivered, true
	}
	return "", false
}

type Recipient struct {
	Name    string
	Phone   string
	Address string
}

type Order struct {
	ID             int64
	BuyerID        int64
	TotalPrice     decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingFee    decimal.Decimal
	PayableAmount  decimal.Decimal
	PointsUsed     int64
	PointsGot      int64
	CouponCode     *string
	PaymentStatus  PaymentStatus
	ShippingStatus ShippingStatus
	Recipient      Recipient
	IdempotencyKey string
	CreatedAt      time.Time

	Items     []OrderItem
	Payment   *PaymentRecord
	Logistics *LogisticsInfo
}

type OrderItem struct {
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SumSubtotals is the only way an order's total price is derived.
func SumSubtotals(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

type PaymentMethod string

const (
	PaymentECPay          PaymentMethod = "ecpay"
	PaymentLinePay        PaymentMethod = "linepay"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentECPay, PaymentLinePay, PaymentCashOnDelivery:
		return true
	}
	return false
}

type PaymentRecordStatus string

const (
	RecordPending   PaymentRecordStatus = "pending"
	RecordPaid      PaymentRecordStatus = "paid"
	RecordFailed    PaymentRecordStatus = "failed"
	RecordCancelled PaymentRecordStatus = "cancelled"
)

type PaymentRecord struct {
	OrderID        int64
	Method         PaymentMethod
	Amount         decimal.Decimal
	Status         PaymentRecordStatus
	TransactionRef string
	UpdatedAt      time.Time
}

type LogisticsChannel string

const (
	ChannelHomeDelivery     LogisticsChannel = "home_delivery"
	ChannelConvenienceStore LogisticsChannel = "convenience_store"
	ChannelStorePickup      LogisticsChannel = "store_pickup"
)

type LogisticsStatus string

const (
	LogisticsPending   LogisticsStatus = "pending"
	LogisticsShipped   LogisticsStatus = "shipped"
	LogisticsDelivered LogisticsStatus = "delivered"
	LogisticsCancelled LogisticsStatus = "cancelled"
)

type LogisticsInfo struct {
	OrderID        int64
	Channel        LogisticsChannel
	StoreID        string
	Address        string
	Status         LogisticsStatus
	TrackingNumber string
	UpdatedAt      time.Time
}

// Validate checks that the channel is known and carries the destination it needs.
func (l LogisticsInfo) Validate() error {
	switch l.Channel {
	case ChannelHomeDelivery:
		if l.Address == "" {
			return ErrInvalidLogistics
		}
	case ChannelConvenienceStore:
		if l.StoreID == "" {
			return ErrInvalidLogistics
		}
	case ChannelStorePickup:
	default:
		return ErrInvalidLogistics
	}
	return nil
}

type PointsReason string

const (
	ReasonCheckoutSpend  PointsReason = "checkout_spend"
	ReasonCheckoutReward PointsReason = "checkout_reward"
	ReasonCancelRefund   PointsReason = "order_cancel_refund"
	ReasonCancelReclaim  PointsReason = "order_cancel_reclaim"
)

type PointsEntry struct {
	ID        int64
	UserID    int64
	Delta     int64
	Reason    PointsReason
	OrderID   *int64
	CreatedAt time.Time
}
