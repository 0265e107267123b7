package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/habitus/orderdesk/internal/domain"
)

func TestCouponServiceUpsertValidates(t *testing.T) {
	repo := &stubCouponRepo{}
	svc, err := NewCouponService(CouponServiceDeps{Coupons: repo})
	if err != nil {
		t.Fatalf("new coupon service: %v", err)
	}

	expiry := time.Date(2026, 1, 1, 0, 0, 0, 0, time.FixedZone("IST", 19800))
	saved, err := svc.Upsert(context.Background(), domain.Coupon{
		Code:            " DIWALI ",
		DiscountPercent: dec(t, "15"),
		MaxDiscount:     dec(t, "150"),
		MinPurchase:     dec(t, "999"),
		Expiry:          expiry,
		AllowedList:     []string{" 9000000000 ", ""},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if saved.Code != "DIWALI" || saved.Status != domain.CouponStatusActive {
		t.Fatalf("unexpected coupon %+v", saved)
	}
	if saved.Expiry.Location() != time.UTC || len(saved.AllowedList) != 1 || saved.AllowedList[0] != "9000000000" {
		t.Fatalf("expected normalised coupon, got %+v", saved)
	}
	if len(repo.upserts) != 1 {
		t.Fatalf("expected one upsert, got %d", len(repo.upserts))
	}

	invalid := []domain.Coupon{
		{Code: "", Expiry: expiry},
		{Code: "A B", Expiry: expiry},
		{Code: "X", DiscountPercent: dec(t, "101"), Expiry: expiry},
		{Code: "X", MaxDiscount: dec(t, "-1"), Expiry: expiry},
		{Code: "X"},
		{Code: "X", Expiry: expiry, Status: "paused"},
	}
	for i, c := range invalid {
		if _, err := svc.Upsert(context.Background(), c); !errors.Is(err, ErrCouponInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestCouponServiceCheck(t *testing.T) {
	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	repo := &stubCouponRepo{coupons: map[string]domain.Coupon{
		"OLD": {Code: "OLD", DiscountPercent: dec(t, "5"), MaxDiscount: dec(t, "50"), Expiry: now.Add(-time.Hour), Status: domain.CouponStatusActive},
	}}
	svc, err := NewCouponService(CouponServiceDeps{Coupons: repo, Clock: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("new coupon service: %v", err)
	}

	result, err := svc.Check(context.Background(), "OLD", dec(t, "100"))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Applied || result.Reason != CouponReasonExpired {
		t.Fatalf("expected expired, got %+v", result)
	}

	missing, err := svc.Check(context.Background(), "NEW", dec(t, "100"))
	if err != nil {
		t.Fatalf("check missing: %v", err)
	}
	if missing.Reason != CouponReasonNotFound {
		t.Fatalf("expected not_found, got %+v", missing)
	}

	if _, err := svc.Check(context.Background(), "OLD", dec(t, "-1")); !errors.Is(err, ErrCouponInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCouponServiceGetAndDelete(t *testing.T) {
	repo := &stubCouponRepo{coupons: map[string]domain.Coupon{"A": {Code: "A"}, "B": {Code: "B"}}}
	svc, err := NewCouponService(CouponServiceDeps{Coupons: repo})
	if err != nil {
		t.Fatalf("new coupon service: %v", err)
	}

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Code != "A" || list[1].Code != "B" {
		t.Fatalf("expected sorted coupons, got %+v", list)
	}
	if _, err := svc.Get(context.Background(), "Z"); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Delete(context.Background(), "A"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(context.Background(), "Z"); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected not found on delete, got %v", err)
	}
}
