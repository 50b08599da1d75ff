package kafka

import (
	"time"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// ErrCodeInvalidRequest is used for payloads that never reached the service. Every other
// error code is a domain.ErrorKind.
const ErrCodeInvalidRequest = "invalid_request"

type CouponPayload struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	DiscountType  string          `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	TargetScope   string          `json:"target_scope"`
	TargetValue   string          `json:"target_value,omitempty"`
	TotalQuantity int             `json:"total_quantity"`
	UsageLimit    int             `json:"usage_limit"`
	ValidityDays  int             `json:"validity_days"`
	StartAt       time.Time       `json:"start_at"`
	EndAt         time.Time       `json:"end_at"`
	Status        string          `json:"status,omitempty"`
	IsValid       bool            `json:"is_valid"`
	CreatedAt     time.Time       `json:"created_at"`
	ClaimedCount  int             `json:"claimed_count"`
}

func couponPayload(c domain.Coupon) *CouponPayload {
	return &CouponPayload{
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
		IsValid:       c.IsValid,
		CreatedAt:     c.CreatedAt,
		ClaimedCount:  c.ClaimedCount,
	}
}

func (p *CouponPayload) toDomain() domain.Coupon {
	return domain.Coupon{
		Code:          p.Code,
		Name:          p.Name,
		Rule:          domain.DiscountRule{Kind: domain.DiscountKind(p.DiscountType), Amount: p.DiscountValue},
		Scope:         domain.TargetScope(p.TargetScope),
		ScopeValue:    p.TargetValue,
		TotalQuantity: p.TotalQuantity,
		UsageLimit:    p.UsageLimit,
		ValidityDays:  p.ValidityDays,
		StartAt:       p.StartAt,
		EndAt:         p.EndAt,
		Status:        domain.CouponStatus(p.Status),
		IsValid:       p.IsValid,
		CreatedAt:     p.CreatedAt,
		ClaimedCount:  p.ClaimedCount,
	}
}

type ClaimPayload struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	CouponCode    string    `json:"coupon_code"`
	RemainingUses int       `json:"remaining_uses"`
	ExpiresAt     time.Time `json:"expires_at"`
	IsValid       bool      `json:"is_valid"`
	ClaimedAt     time.Time `json:"claimed_at"`
}

func claimPayload(uc domain.UserCoupon) *ClaimPayload {
	return &ClaimPayload{
		ID:            uc.ID,
		UserID:        uc.UserID,
		CouponCode:    uc.CouponCode,
		RemainingUses: uc.RemainingUses,
		ExpiresAt:     uc.ExpiresAt,
		IsValid:       uc.IsValid,
		ClaimedAt:     uc.ClaimedAt,
	}
}

func (p *ClaimPayload) toDomain() domain.UserCoupon {
	return domain.UserCoupon{
		ID:            p.ID,
		UserID:        p.UserID,
		CouponCode:    p.CouponCode,
		RemainingUses: p.RemainingUses,
		ExpiresAt:     p.ExpiresAt,
		IsValid:       p.IsValid,
		ClaimedAt:     p.ClaimedAt,
	}
}

type RequestPayload struct {
	SchemaVersion int            `json:"schema_version"`
	CorrelationID string         `json:"correlation_id"`
	ReplyTo       string         `json:"reply_to"`
	Coupon        *CouponPayload `json:"coupon,omitempty"`
	UserID        int64          `json:"user_id,omitempty"`
	Code          string         `json:"code,omitempty"`
}

type ResponsePayload struct {
	SchemaVersion int            `json:"schema_version"`
	CorrelationID string         `json:"correlation_id"`
	Status        string         `json:"status"`
	ErrorCode     string         `json:"error_code,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	Coupon        *CouponPayload `json:"coupon,omitempty"`
	Claim         *ClaimPayload  `json:"claim,omitempty"`
}

func successResponse(correlationID string) *ResponsePayload {
	return &ResponsePayload{
		SchemaVersion: SchemaVersion,
		CorrelationID: correlationID,
		Status:        StatusSuccess,
	}
}

func errorResponse(correlationID, code, message string) *ResponsePayload {
	return &ResponsePayload{
		SchemaVersion: SchemaVersion,
		CorrelationID: correlationID,
		Status:        StatusError,
		ErrorCode:     code,
		ErrorMessage:  message,
	}
}

// domainErrorResponse keeps the error kind on the wire so the gateway can rebuild a
// matching sentinel on the other side.
func domainErrorResponse(correlationID string, err error) *ResponsePayload {
	return errorResponse(correlationID, string(domain.KindOf(err)), err.Error())
}

func mapError(code, message string) error {
	if code == ErrCodeInvalidRequest {
		return domain.ErrorForKind(domain.KindValidation, message)
	}
	return domain.ErrorForKind(domain.ErrorKind(code), message)
}
