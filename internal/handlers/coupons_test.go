package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/services"
)

type stubCouponService struct {
	listFn   func(context.Context) ([]domain.Coupon, error)
	getFn    func(context.Context, string) (domain.Coupon, error)
	upsertFn func(context.Context, domain.Coupon) (domain.Coupon, error)
	deleteFn func(context.Context, string) error
	checkFn  func(context.Context, string, decimal.Decimal) (services.CouponResult, error)
}

func (s *stubCouponService) List(ctx context.Context) ([]domain.Coupon, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s *stubCouponService) Get(ctx context.Context, code string) (domain.Coupon, error) {
	if s.getFn != nil {
		return s.getFn(ctx, code)
	}
	return domain.Coupon{}, errors.New("not implemented")
}

func (s *stubCouponService) Upsert(ctx context.Context, coupon domain.Coupon) (domain.Coupon, error) {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, coupon)
	}
	return domain.Coupon{}, errors.New("not implemented")
}

func (s *stubCouponService) Delete(ctx context.Context, code string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, code)
	}
	return errors.New("not implemented")
}

func (s *stubCouponService) Check(ctx context.Context, code string, subtotal decimal.Decimal) (services.CouponResult, error) {
	if s.checkFn != nil {
		return s.checkFn(ctx, code, subtotal)
	}
	return services.CouponResult{}, errors.New("not implemented")
}

func newCouponRouter(svc services.CouponService, admin func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()
	router.Route("/coupons", NewCouponHandlers(svc, admin).Routes)
	return router
}

func TestCouponHandlersUpsert(t *testing.T) {
	var captured domain.Coupon
	svc := &stubCouponService{
		upsertFn: func(_ context.Context, c domain.Coupon) (domain.Coupon, error) {
			captured = c
			c.Status = domain.CouponStatusActive
			return c, nil
		},
	}
	router := newCouponRouter(svc, nil)

	body := `{"discountPercent":"15","maxDiscount":150,"minPurchase":"999","expiry":"2026-01-01T00:00:00+05:30","allowedList":["9000000000"]}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/coupons/DIWALI", strings.NewReader(body)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Code != "DIWALI" || !captured.MaxDiscount.Equal(mustDecimal(t, "150")) {
		t.Fatalf("unexpected coupon %+v", captured)
	}
	if !captured.Expiry.Equal(time.Date(2025, 12, 31, 18, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected expiry %s", captured.Expiry)
	}

	var payload couponPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != "active" || payload.NotAllowedList == nil {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestCouponHandlersUpsertRejectsBadExpiry(t *testing.T) {
	router := newCouponRouter(&stubCouponService{}, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/coupons/X", strings.NewReader(`{"expiry":"next week"}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCouponHandlersAdminGate(t *testing.T) {
	gate := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
	}
	svc := &stubCouponService{
		listFn: func(context.Context) ([]domain.Coupon, error) {
			return []domain.Coupon{{Code: "A"}}, nil
		},
	}
	router := newCouponRouter(svc, gate)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/coupons", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("reads must stay open, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/coupons/A", nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("deletes must be gated, got %d", rr.Code)
	}
}

func TestCouponHandlersCheck(t *testing.T) {
	var subtotal decimal.Decimal
	svc := &stubCouponService{
		checkFn: func(_ context.Context, code string, s decimal.Decimal) (services.CouponResult, error) {
			subtotal = s
			return services.CouponResult{Code: code, Reason: services.CouponReasonBelowMinimum}, nil
		},
	}
	router := newCouponRouter(svc, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/coupons/DIWALI:check", strings.NewReader(`{"subtotal":"499.99"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !subtotal.Equal(mustDecimal(t, "499.99")) {
		t.Fatalf("unexpected subtotal %s", subtotal)
	}
	var body couponResultPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Applied || body.Reason != "below_minimum" {
		t.Fatalf("unexpected result %+v", body)
	}
}

func TestCouponHandlersErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w", services.ErrCouponNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: code", services.ErrCouponInvalidInput), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		router := newCouponRouter(&stubCouponService{
			getFn: func(context.Context, string) (domain.Coupon, error) { return domain.Coupon{}, tc.err },
		}, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/coupons/A", nil))
		if rr.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, rr.Code)
		}
	}
}
