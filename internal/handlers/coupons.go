package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/platform/httpx"
	"github.com/habitus/orderdesk/internal/services"
)

// CouponHandlers manages coupon rules.
type CouponHandlers struct {
	coupons services.CouponService
	admin   func(http.Handler) http.Handler
}

// NewCouponHandlers constructs coupon handlers. admin, when set, guards writes.
func NewCouponHandlers(coupons services.CouponService, admin func(http.Handler) http.Handler) *CouponHandlers {
	return &CouponHandlers{coupons: coupons, admin: admin}
}

// Routes registers the /coupons endpoints.
func (h *CouponHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listCoupons)
	r.Get("/{code}", h.getCoupon)
	r.Post("/{code}:check", h.checkCoupon)

	r.Group(func(admin chi.Router) {
		if h.admin != nil {
			admin.Use(h.admin)
		}
		admin.Put("/{code}", h.upsertCoupon)
		admin.Delete("/{code}", h.deleteCoupon)
	})
}

type couponPayload struct {
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	MaxDiscount     decimal.Decimal `json:"maxDiscount"`
	MinPurchase     decimal.Decimal `json:"minPurchase"`
	Expiry          string          `json:"expiry"`
	AllowedList     []string        `json:"allowedList"`
	NotAllowedList  []string        `json:"notAllowedList"`
	Status          string          `json:"status"`
}

type couponUpsertRequest struct {
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	MaxDiscount     decimal.Decimal `json:"maxDiscount"`
	MinPurchase     decimal.Decimal `json:"minPurchase"`
	Expiry          string          `json:"expiry"`
	AllowedList     []string        `json:"allowedList"`
	NotAllowedList  []string        `json:"notAllowedList"`
	Status          string          `json:"status"`
}

type couponCheckRequest struct {
	Subtotal decimal.Decimal `json:"subtotal"`
}

type couponListResponse struct {
	Items []couponPayload `json:"items"`
}

func (h *CouponHandlers) listCoupons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service unavailable", http.StatusServiceUnavailable))
		return
	}
	coupons, err := h.coupons.List(ctx)
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}
	resp := couponListResponse{Items: make([]couponPayload, 0, len(coupons))}
	for _, c := range coupons {
		resp.Items = append(resp.Items, buildCouponPayload(c))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *CouponHandlers) getCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service unavailable", http.StatusServiceUnavailable))
		return
	}
	coupon, err := h.coupons.Get(ctx, chi.URLParam(r, "code"))
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCouponPayload(coupon))
}

func (h *CouponHandlers) upsertCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service unavailable", http.StatusServiceUnavailable))
		return
	}
	var req couponUpsertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}

	var expiry time.Time
	if raw := strings.TrimSpace(req.Expiry); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "expiry must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		expiry = ts
	}

	saved, err := h.coupons.Upsert(ctx, domain.Coupon{
		Code:            chi.URLParam(r, "code"),
		DiscountPercent: req.DiscountPercent,
		MaxDiscount:     req.MaxDiscount,
		MinPurchase:     req.MinPurchase,
		Expiry:          expiry,
		AllowedList:     req.AllowedList,
		NotAllowedList:  req.NotAllowedList,
		Status:          domain.CouponStatus(strings.TrimSpace(req.Status)),
	})
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCouponPayload(saved))
}

func (h *CouponHandlers) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service unavailable", http.StatusServiceUnavailable))
		return
	}
	if err := h.coupons.Delete(ctx, chi.URLParam(r, "code")); err != nil {
		writeCouponError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CouponHandlers) checkCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service unavailable", http.StatusServiceUnavailable))
		return
	}
	var req couponCheckRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	result, err := h.coupons.Check(ctx, chi.URLParam(r, "code"), req.Subtotal)
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCouponResultPayload(result))
}

func buildCouponPayload(c domain.Coupon) couponPayload {
	payload := couponPayload{
		Code:            c.Code,
		DiscountPercent: c.DiscountPercent,
		MaxDiscount:     c.MaxDiscount,
		MinPurchase:     c.MinPurchase,
		Expiry:          formatTime(c.Expiry),
		AllowedList:     c.AllowedList,
		NotAllowedList:  c.NotAllowedList,
		Status:          string(c.Status),
	}
	if payload.AllowedList == nil {
		payload.AllowedList = []string{}
	}
	if payload.NotAllowedList == nil {
		payload.NotAllowedList = []string{}
	}
	return payload
}

func writeCouponError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCouponInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCouponNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_not_found", "coupon not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_unavailable", "coupon storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("coupon_error", "failed to process coupon request", http.StatusInternalServerError))
	}
}
