package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/azizikri/vinyl-checkout/internal/logger"
	"github.com/azizikri/vinyl-checkout/internal/usecase"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CouponService interface {
	DeactivateCoupon(ctx context.Context, code string) error
	ListClaims(ctx context.Context, userID int64) ([]domain.UserCoupon, error)
	Redeem(ctx context.Context, userID int64, code string, orderID int64) (usecase.RedemptionResult, error)
}

type OrderService interface {
	Checkout(ctx context.Context, in usecase.CheckoutInput) (usecase.CheckoutResult, error)
	GetOrder(ctx context.Context, actor usecase.Actor, orderID int64) (domain.Order, error)
	CancelOrder(ctx context.Context, actor usecase.Actor, orderID int64) (domain.Order, error)
}

type FulfillmentService interface {
	UpdatePaymentStatus(ctx context.Context, orderID int64, status domain.PaymentRecordStatus, ref string) (domain.PaymentRecord, error)
	UpdateShippingStatus(ctx context.Context, orderID int64, to domain.ShippingStatus, tracking string) (domain.LogisticsInfo, error)
}

type PointsService interface {
	Summary(ctx context.Context, userID int64, limit int) (usecase.PointsSummary, error)
}

type VerificationService interface {
	Issue(ctx context.Context, key string) error
	Verify(ctx context.Context, key, code string) error
}

// Services groups the collaborators the handler dispatches to. Create, claim and get go through
// Gateway so they can be served over Kafka.
type Services struct {
	Gateway      usecase.CouponGateway
	Coupons      CouponService
	Orders       OrderService
	Fulfillment  FulfillmentService
	Points       PointsService
	Verification VerificationService
}

type Handler struct {
	svc    Services
	secret []byte
}

func NewHandler(svc Services, jwtSecret []byte) *Handler {
	return &Handler{svc: svc, secret: jwtSecret}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/verification/codes", h.IssueCode)
		r.Post("/verification/verify", h.VerifyCode)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(h.secret))

			r.Get("/coupons/{code}", h.GetCoupon)
			r.Post("/coupons/{code}/claim", h.ClaimCoupon)
			r.Post("/coupons/{code}/redeem", h.RedeemCoupon)
			r.Get("/me/coupons", h.ListClaims)
			r.Get("/me/points", h.Points)

			r.Post("/orders/checkout", h.Checkout)
			r.Get("/orders/{id}", h.GetOrder)
			r.Patch("/orders/{id}/cancel", h.CancelOrder)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Post("/coupons", h.CreateCoupon)
				r.Delete("/coupons/{code}", h.DeactivateCoupon)
				r.Patch("/orders/{id}/payment", h.UpdatePayment)
				r.Patch("/orders/{id}/shipping", h.UpdateShipping)
			})
		})
	})
}

func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req CreateCouponRequest
	if !decode(w, r, &req) {
		return
	}

	c, err := h.svc.Gateway.CreateCoupon(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, r, "create_coupon_error", err)
		return
	}
	writeJSON(w, http.StatusCreated, newCouponResponse(c))
}

func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Gateway.GetCoupon(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, "get_coupon_error", err)
		return
	}
	writeJSON(w, http.StatusOK, newCouponResponse(c))
}

func (h *Handler) DeactivateCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Coupons.DeactivateCoupon(r.Context(), chi.URLParam(r, "code")); err != nil {
		writeError(w, r, "deactivate_coupon_error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClaimCoupon(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	uc, err := h.svc.Gateway.ClaimCoupon(r.Context(), actor.UserID, chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, "claim_coupon_error", err)
		return
	}
	writeJSON(w, http.StatusOK, newClaimResponse(uc))
}

func (h *Handler) RedeemCoupon(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if !decode(w, r, &req) {
		return
	}
	if req.OrderID <= 0 {
		writeError(w, r, "redeem_coupon_error", fmt.Errorf("%w: orderId is required", domain.ErrValidation))
		return
	}

	actor := mustActor(r)
	res, err := h.svc.Coupons.Redeem(r.Context(), actor.UserID, chi.URLParam(r, "code"), req.OrderID)
	if err != nil {
		writeError(w, r, "redeem_coupon_error", err)
		return
	}
	writeJSON(w, http.StatusOK, RedeemResponse{
		UsageID:        res.Usage.ID,
		OrderID:        res.Usage.OrderID,
		DiscountAmount: res.Usage.DiscountAmount,
		PayableAmount:  res.PayableAmount,
		RemainingUses:  res.Claim.RemainingUses,
	})
}

func (h *Handler) ListClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := h.svc.Coupons.ListClaims(r.Context(), mustActor(r).UserID)
	if err != nil {
		writeError(w, r, "list_claims_error", err)
		return
	}
	resp := make([]ClaimResponse, 0, len(claims))
	for _, uc := range claims {
		resp = append(resp, newClaimResponse(uc))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Points(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, "points_error", fmt.Errorf("%w: limit must be a number", domain.ErrValidation))
			return
		}
		limit = n
	}

	sum, err := h.svc.Points.Summary(r.Context(), mustActor(r).UserID, limit)
	if err != nil {
		writeError(w, r, "points_error", err)
		return
	}
	resp := PointsResponse{Balance: sum.Balance, Entries: make([]PointsEntryResponse, 0, len(sum.Entries))}
	for _, e := range sum.Entries {
		resp.Entries = append(resp.Entries, PointsEntryResponse{
			ID:        e.ID,
			Delta:     e.Delta,
			Reason:    string(e.Reason),
			OrderID:   e.OrderID,
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !decode(w, r, &req) {
		return
	}

	actor := mustActor(r)
	res, err := h.svc.Orders.Checkout(r.Context(), req.toInput(actor.UserID, r.Header.Get("Idempotency-Key")))
	if err != nil {
		writeError(w, r, "checkout_error", err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, newOrderResponse(res.Order))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	o, err := h.svc.Orders.GetOrder(r.Context(), mustActor(r), id)
	if err != nil {
		writeError(w, r, "get_order_error", err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	o, err := h.svc.Orders.CancelOrder(r.Context(), mustActor(r), id)
	if err != nil {
		writeError(w, r, "cancel_order_error", err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req PaymentStatusRequest
	if !decode(w, r, &req) {
		return
	}

	rec, err := h.svc.Fulfillment.UpdatePaymentStatus(r.Context(), id, domain.PaymentRecordStatus(req.Status), req.TransactionRef)
	if err != nil {
		writeError(w, r, "update_payment_error", err)
		return
	}
	writeJSON(w, http.StatusOK, newPaymentResponse(rec))
}

func (h *Handler) UpdateShipping(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req ShippingStatusRequest
	if !decode(w, r, &req) {
		return
	}

	info, err := h.svc.Fulfillment.UpdateShippingStatus(r.Context(), id, domain.ShippingStatus(req.Status), req.TrackingNumber)
	if err != nil {
		writeError(w, r, "update_shipping_error", err)
		return
	}
	writeJSON(w, http.StatusOK, newLogisticsResponse(info))
}

func (h *Handler) IssueCode(w http.ResponseWriter, r *http.Request) {
	var req IssueCodeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.Verification.Issue(r.Context(), req.Key); err != nil {
		writeError(w, r, "issue_code_error", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.Verification.Verify(r.Context(), req.Key, req.Code); err != nil {
		writeError(w, r, "verify_code_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

// mustActor is only called behind Authenticate.
func mustActor(r *http.Request) usecase.Actor {
	a, _ := actorFrom(r.Context())
	return a
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, "bad_order_id", fmt.Errorf("%w: order id must be a positive integer", domain.ErrValidation))
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, "bad_request_body", fmt.Errorf("%w: invalid request body", domain.ErrValidation))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation,
		domain.KindExhausted,
		domain.KindInsufficientStock,
		domain.KindInsufficientPoints,
		domain.KindNoUsesRemaining:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, event string, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	log := logger.FromContext(r.Context())

	msg := err.Error()
	if kind == domain.KindInternal {
		log.Error(event, zap.Error(err))
		msg = "internal server error"
	} else {
		log.Warn(event, zap.String("kind", string(kind)), zap.Error(err))
	}
	writeJSON(w, status, ErrorResponse{Error: kind, Message: msg})
}
