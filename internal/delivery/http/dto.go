package http

import (
	"time"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/azizikri/vinyl-checkout/internal/usecase"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Error   domain.ErrorKind `json:"error"`
	Message string           `json:"message"`
}

type CreateCouponRequest struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	DiscountType  string          `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	TargetScope   string          `json:"targetScope"`
	TargetValue   string          `json:"targetValue"`
	TotalQuantity int             `json:"totalQuantity"`
	UsageLimit    int             `json:"usageLimit"`
	ValidityDays  int             `json:"validityDays"`
	StartAt       time.Time       `json:"startAt"`
	EndAt         time.Time       `json:"endAt"`
}

func (req CreateCouponRequest) toDomain() domain.Coupon {
	return domain.Coupon{
		Code:          req.Code,
		Name:          req.Name,
		Rule:          domain.DiscountRule{Kind: domain.DiscountKind(req.DiscountType), Amount: req.DiscountValue},
		Scope:         domain.TargetScope(req.TargetScope),
		ScopeValue:    req.TargetValue,
		TotalQuantity: req.TotalQuantity,
		UsageLimit:    req.UsageLimit,
		ValidityDays:  req.ValidityDays,
		StartAt:       req.StartAt,
		EndAt:         req.EndAt,
	}
}

type CouponResponse struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	DiscountType  string          `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	TargetScope   string          `json:"targetScope"`
	TargetValue   string          `json:"targetValue,omitempty"`
	TotalQuantity int             `json:"totalQuantity"`
	UsageLimit    int             `json:"usageLimit"`
	ValidityDays  int             `json:"validityDays"`
	StartAt       time.Time       `json:"startAt"`
	EndAt         time.Time       `json:"endAt"`
	Status        string          `json:"status"`
	ClaimedCount  int             `json:"claimedCount"`
}

func newCouponResponse(c domain.Coupon) CouponResponse {
	return CouponResponse{
		Code:          c.Code,
		Name:          c.Name,
		DiscountType:  string(c.Rule.Kind),
		DiscountValue: c.Rule.Amount,
		TargetScope:   string(c.Scope),
		TargetValue:   c.ScopeValue,
		TotalQuantity: c.TotalQuantity,
		UsageLimit:    c.UsageLimit,
		ValidityDays:  c.ValidityDays,
		StartAt:       c.StartAt,
		EndAt:         c.EndAt,
		Status:        string(c.Status),
		ClaimedCount:  c.ClaimedCount,
	}
}

type ClaimResponse struct {
	ID            int64     `json:"id"`
	CouponCode    string    `json:"couponCode"`
	RemainingUses int       `json:"remainingUses"`
	ExpiresAt     time.Time `json:"expiresAt"`
	ClaimedAt     time.Time `json:"claimedAt"`
	IsValid       bool      `json:"isValid"`
}

func newClaimResponse(uc domain.UserCoupon) ClaimResponse {
	return ClaimResponse{
		ID:            uc.ID,
		CouponCode:    uc.CouponCode,
		RemainingUses: uc.RemainingUses,
		ExpiresAt:     uc.ExpiresAt,
		ClaimedAt:     uc.ClaimedAt,
		IsValid:       uc.IsValid,
	}
}

type RedeemRequest struct {
	OrderID int64 `json:"orderId"`
}

type RedeemResponse struct {
	UsageID        int64           `json:"usageId"`
	OrderID        int64           `json:"orderId"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	PayableAmount  decimal.Decimal `json:"payableAmount"`
	RemainingUses  int             `json:"remainingUses"`
}

type CheckoutItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type RecipientDTO struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type LogisticsRequest struct {
	Channel string `json:"channel"`
	StoreID string `json:"storeId"`
	Address string `json:"address"`
}

type CheckoutRequest struct {
	Items          []CheckoutItemRequest `json:"items"`
	Recipient      RecipientDTO          `json:"recipient"`
	CouponCode     string                `json:"couponCode"`
	PointsToUse    int64                 `json:"pointsToUse"`
	PaymentMethod  string                `json:"paymentMethod"`
	Logistics      LogisticsRequest      `json:"logistics"`
	IdempotencyKey string                `json:"idempotencyKey"`
}

func (req CheckoutRequest) toInput(userID int64, key string) usecase.CheckoutInput {
	items := make([]usecase.CheckoutItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.CheckoutItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	if key == "" {
		key = req.IdempotencyKey
	}
	return usecase.CheckoutInput{
		UserID:        userID,
		Items:         items,
		Recipient:     domain.Recipient(req.Recipient),
		CouponCode:    req.CouponCode,
		PointsToUse:   req.PointsToUse,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Logistics: domain.LogisticsInfo{
			Channel: domain.LogisticsChannel(req.Logistics.Channel),
			StoreID: req.Logistics.StoreID,
			Address: req.Logistics.Address,
		},
		IdempotencyKey: key,
	}
}

type OrderItemResponse struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type PaymentResponse struct {
	Method         string          `json:"method"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	TransactionRef string          `json:"transactionRef,omitempty"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func newPaymentResponse(p domain.PaymentRecord) PaymentResponse {
	return PaymentResponse{
		Method:         string(p.Method),
		Amount:         p.Amount,
		Status:         string(p.Status),
		TransactionRef: p.TransactionRef,
		UpdatedAt:      p.UpdatedAt,
	}
}

type LogisticsResponse struct {
	Channel        string    `json:"channel"`
	StoreID        string    `json:"storeId,omitempty"`
	Address        string    `json:"address,omitempty"`
	Status         string    `json:"status"`
	TrackingNumber string    `json:"trackingNumber,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func newLogisticsResponse(l domain.LogisticsInfo) LogisticsResponse {
	return LogisticsResponse{
		Channel:        string(l.Channel),
		StoreID:        l.StoreID,
		Address:        l.Address,
		Status:         string(l.Status),
		TrackingNumber: l.TrackingNumber,
		UpdatedAt:      l.UpdatedAt,
	}
}

type OrderResponse struct {
	ID             int64               `json:"id"`
	BuyerID        int64               `json:"buyerId"`
	TotalPrice     decimal.Decimal     `json:"totalPrice"`
	DiscountAmount decimal.Decimal     `json:"discountAmount"`
	ShippingFee    decimal.Decimal     `json:"shippingFee"`
	PayableAmount  decimal.Decimal     `json:"payableAmount"`
	PointsUsed     int64               `json:"pointsUsed"`
	PointsGot      int64               `json:"pointsGot"`
	CouponCode     *string             `json:"couponCode"`
	PaymentStatus  string              `json:"paymentStatus"`
	ShippingStatus string              `json:"shippingStatus"`
	Recipient      RecipientDTO        `json:"recipient"`
	IdempotencyKey string              `json:"idempotencyKey"`
	CreatedAt      time.Time           `json:"createdAt"`
	Items          []OrderItemResponse `json:"items"`
	Payment        *PaymentResponse    `json:"payment,omitempty"`
	Logistics      *LogisticsResponse  `json:"logistics,omitempty"`
}

func newOrderResponse(o domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:             o.ID,
		BuyerID:        o.BuyerID,
		TotalPrice:     o.TotalPrice,
		DiscountAmount: o.DiscountAmount,
		ShippingFee:    o.ShippingFee,
		PayableAmount:  o.PayableAmount,
		PointsUsed:     o.PointsUsed,
		PointsGot:      o.PointsGot,
		CouponCode:     o.CouponCode,
		PaymentStatus:  string(o.PaymentStatus),
		ShippingStatus: string(o.ShippingStatus),
		Recipient:      RecipientDTO(o.Recipient),
		IdempotencyKey: o.IdempotencyKey,
		CreatedAt:      o.CreatedAt,
		Items:          make([]OrderItemResponse, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal(),
		})
	}
	if o.Payment != nil {
		p := newPaymentResponse(*o.Payment)
		resp.Payment = &p
	}
	if o.Logistics != nil {
		l := newLogisticsResponse(*o.Logistics)
		resp.Logistics = &l
	}
	return resp
}

type PaymentStatusRequest struct {
	Status         string `json:"status"`
	TransactionRef string `json:"transactionRef"`
}

type ShippingStatusRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"trackingNumber"`
}

type PointsEntryResponse struct {
	ID        int64     `json:"id"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	OrderID   *int64    `json:"orderId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type PointsResponse struct {
	Balance int64                 `json:"balance"`
	Entries []PointsEntryResponse `json:"entries"`
}

type IssueCodeRequest struct {
	Key string `json:"key"`
}

type VerifyCodeRequest struct {
	Key  string `json:"key"`
	Code string `json:"code"`
}
