package firestore

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
)

func TestCouponDocumentUsesStorefrontFieldNames(t *testing.T) {
	field, ok := reflect.TypeOf(couponDocument{}).FieldByName("DiscountPercent")
	if !ok || field.Tag.Get("firestore") != "discount" {
		t.Fatalf("discount percent must be stored as discount, got %q", field.Tag.Get("firestore"))
	}
	field, ok = reflect.TypeOf(couponDocument{}).FieldByName("Code")
	if !ok || field.Tag.Get("firestore") != "code" {
		t.Fatalf("code must be stored as a field, got %q", field.Tag.Get("firestore"))
	}
}

func TestCouponDocumentMapping(t *testing.T) {
	expiry := time.Date(2025, 12, 31, 18, 30, 0, 0, time.UTC)
	coupon := domain.Coupon{
		Code:            "DIWALI",
		DiscountPercent: decimal.NewFromInt(15),
		MaxDiscount:     decimal.NewFromInt(150),
		MinPurchase:     decimal.NewFromInt(999),
		Expiry:          expiry.In(time.FixedZone("IST", 19800)),
		Status:          domain.CouponStatusActive,
	}
	doc := toCouponDocument(coupon)
	if doc.Code != "DIWALI" || doc.DiscountPercent != 15 || doc.Expiry.Location() != time.UTC {
		t.Fatalf("unexpected document %+v", doc)
	}

	// auto-id documents written by the storefront carry the code as a field
	got := fromCouponDocument("Xk29fQa", doc)
	if got.Code != "DIWALI" || !got.MinPurchase.Equal(decimal.NewFromInt(999)) || !got.Expiry.Equal(expiry) {
		t.Fatalf("unexpected coupon %+v", got)
	}

	legacy := fromCouponDocument("SAVE10", couponDocument{DiscountPercent: 10, Status: " Active "})
	if legacy.Code != "SAVE10" || legacy.Status != domain.CouponStatusActive {
		t.Fatalf("documents without a code field fall back to the id, got %+v", legacy)
	}
}
