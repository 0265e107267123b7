package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
)

var engineNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func activeCoupon(t *testing.T) domain.Coupon {
	t.Helper()
	return domain.Coupon{
		Code:            "SAVE10",
		DiscountPercent: dec(t, "10"),
		MaxDiscount:     dec(t, "80"),
		MinPurchase:     dec(t, "500"),
		Expiry:          engineNow.Add(24 * time.Hour),
		Status:          domain.CouponStatusActive,
	}
}

func couponLookupFor(coupons ...domain.Coupon) CouponLookup {
	return func(_ context.Context, code string) (domain.Coupon, bool, error) {
		for _, c := range coupons {
			if c.Code == code {
				return c, true, nil
			}
		}
		return domain.Coupon{}, false, nil
	}
}

func TestComputeInvoiceWithoutCoupon(t *testing.T) {
	order := domain.Order{
		ID:              "ORD-A",
		Products:        []domain.OrderProduct{{Name: "Rice 5kg", Quantity: dec(t, "1"), Price: dec(t, "500")}},
		DeliveryCharges: dec(t, "50"),
	}

	invoice, err := ComputeInvoice(order, CouponResult{}, engineNow)
	if err != nil {
		t.Fatalf("compute invoice: %v", err)
	}
	if !invoice.Subtotal.Equal(dec(t, "500")) {
		t.Fatalf("expected subtotal 500, got %s", invoice.Subtotal)
	}
	if !invoice.FinalTotal.Equal(dec(t, "550")) {
		t.Fatalf("expected final total 550, got %s", invoice.FinalTotal)
	}
	if len(invoice.Charges) != 2 || invoice.Charges[0].Label != "Delivery" || invoice.Charges[1].Label != "Discount" {
		t.Fatalf("unexpected charges %+v", invoice.Charges)
	}
	if invoice.Items[0].Description != "Rice 5kg" {
		t.Fatalf("unexpected description %q", invoice.Items[0].Description)
	}
}

func TestComputeInvoiceCouponCappedAtMaxDiscount(t *testing.T) {
	ctx := context.Background()
	delivery := dec(t, "40")
	order := domain.Order{
		ID:              "ORD-B",
		Products:        []domain.OrderProduct{{Name: "Oil", Weight: "5L", Quantity: dec(t, "2"), Price: dec(t, "500")}},
		DeliveryCharges: delivery,
	}
	subtotal := ComputeSubtotal(LineItemsFromProducts(order.Products))

	coupon, err := ResolveCoupon(ctx, couponLookupFor(activeCoupon(t)), "SAVE10", subtotal, engineNow)
	if err != nil {
		t.Fatalf("resolve coupon: %v", err)
	}
	if !coupon.Applied || !coupon.Amount.Equal(dec(t, "80")) {
		t.Fatalf("expected capped discount 80, got %+v", coupon)
	}
	if coupon.Label != "Coupon (SAVE10)" {
		t.Fatalf("unexpected label %q", coupon.Label)
	}

	invoice, err := ComputeInvoice(order, coupon, engineNow)
	if err != nil {
		t.Fatalf("compute invoice: %v", err)
	}
	want := dec(t, "1000").Add(delivery).Sub(dec(t, "80"))
	if !invoice.FinalTotal.Equal(want) {
		t.Fatalf("expected %s, got %s", want, invoice.FinalTotal)
	}
	if invoice.Charges[0].Kind() != domain.ChargeKindCoupon {
		t.Fatalf("expected coupon charge first, got %+v", invoice.Charges)
	}
	if invoice.Items[0].Description != "Oil (5L)" {
		t.Fatalf("unexpected description %q", invoice.Items[0].Description)
	}
}

func TestComputeInvoiceCouponBelowMinimum(t *testing.T) {
	ctx := context.Background()
	order := domain.Order{
		ID:              "ORD-C",
		Products:        []domain.OrderProduct{{Name: "Atta", Quantity: dec(t, "4"), Price: dec(t, "100")}},
		DeliveryCharges: dec(t, "30"),
	}
	coupon, err := ResolveCoupon(ctx, couponLookupFor(activeCoupon(t)), "SAVE10", dec(t, "400"), engineNow)
	if err != nil {
		t.Fatalf("resolve coupon: %v", err)
	}
	if coupon.Applied || coupon.Reason != CouponReasonBelowMinimum {
		t.Fatalf("expected below_minimum, got %+v", coupon)
	}

	invoice, err := ComputeInvoice(order, coupon, engineNow)
	if err != nil {
		t.Fatalf("compute invoice: %v", err)
	}
	if !invoice.FinalTotal.Equal(dec(t, "430")) {
		t.Fatalf("expected 430, got %s", invoice.FinalTotal)
	}
	for _, charge := range invoice.Charges {
		if charge.Kind() == domain.ChargeKindCoupon {
			t.Fatalf("coupon charge must not be present: %+v", invoice.Charges)
		}
	}
}

func TestComputeSubtotalExactOverManyLines(t *testing.T) {
	items := make([]domain.LineItem, 0, 1000)
	for i := 0; i < 1000; i++ {
		items = append(items, domain.LineItem{
			Description: fmt.Sprintf("item %d", i),
			Quantity:    decimal.NewFromInt(3),
			UnitRate:    dec(t, "0.10"),
		})
	}
	subtotal := ComputeSubtotal(items)
	if !subtotal.Equal(dec(t, "300")) {
		t.Fatalf("expected exact 300, got %s", subtotal)
	}
	if subtotal.StringFixed(2) != "300.00" {
		t.Fatalf("unexpected fixed rendering %s", subtotal.StringFixed(2))
	}
}

func TestResolveCouponIsDeterministic(t *testing.T) {
	ctx := context.Background()
	lookup := couponLookupFor(activeCoupon(t))
	first, err := ResolveCoupon(ctx, lookup, "SAVE10", dec(t, "733.33"), engineNow)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := ResolveCoupon(ctx, lookup, "SAVE10", dec(t, "733.33"), engineNow)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first.Code != second.Code || first.Applied != second.Applied || first.Reason != second.Reason ||
		first.Label != second.Label || first.Amount.String() != second.Amount.String() {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestEvaluateCouponPrecedence(t *testing.T) {
	base := activeCoupon(t)

	expiredAndSmall := base
	expiredAndSmall.Expiry = engineNow.Add(-time.Minute)
	if got := EvaluateCoupon(expiredAndSmall, dec(t, "10"), engineNow); got.Reason != CouponReasonExpired {
		t.Fatalf("expected expired to win over below_minimum, got %q", got.Reason)
	}

	inactiveAndExpired := expiredAndSmall
	inactiveAndExpired.Status = domain.CouponStatusInactive
	if got := EvaluateCoupon(inactiveAndExpired, dec(t, "10"), engineNow); got.Reason != CouponReasonInactive {
		t.Fatalf("expected inactive to win over expired, got %q", got.Reason)
	}

	atExpiry := base
	atExpiry.Expiry = engineNow
	if got := EvaluateCoupon(atExpiry, dec(t, "600"), engineNow); !got.Applied {
		t.Fatalf("coupon must apply at the expiry instant, got %+v", got)
	}

	atMinimum := EvaluateCoupon(base, dec(t, "500"), engineNow)
	if !atMinimum.Applied || !atMinimum.Amount.Equal(dec(t, "50")) {
		t.Fatalf("expected 50 discount at minimum, got %+v", atMinimum)
	}
}

func TestEvaluateCouponNeverExceedsCap(t *testing.T) {
	coupon := activeCoupon(t)
	coupon.MinPurchase = decimal.Zero
	for pct := 0; pct <= 100; pct += 5 {
		coupon.DiscountPercent = decimal.NewFromInt(int64(pct))
		for _, subtotal := range []string{"0", "1", "99.99", "800", "800.01", "25000"} {
			got := EvaluateCoupon(coupon, dec(t, subtotal), engineNow)
			if !got.Applied {
				t.Fatalf("expected applied for %d%% of %s", pct, subtotal)
			}
			if got.Amount.GreaterThan(coupon.MaxDiscount) {
				t.Fatalf("discount %s exceeds cap for %d%% of %s", got.Amount, pct, subtotal)
			}
		}
	}
}

func TestResolveCouponMisses(t *testing.T) {
	ctx := context.Background()
	got, err := ResolveCoupon(ctx, couponLookupFor(), "NOPE", dec(t, "100"), engineNow)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Applied || got.Reason != CouponReasonNotFound {
		t.Fatalf("expected not_found, got %+v", got)
	}

	empty, err := ResolveCoupon(ctx, nil, "  ", dec(t, "100"), engineNow)
	if err != nil {
		t.Fatalf("resolve empty: %v", err)
	}
	if empty.Applied || empty.Reason != "" {
		t.Fatalf("expected empty result, got %+v", empty)
	}

	failing := func(context.Context, string) (domain.Coupon, bool, error) {
		return domain.Coupon{}, false, errors.New("store down")
	}
	if _, err := ResolveCoupon(ctx, failing, "SAVE10", dec(t, "100"), engineNow); err == nil {
		t.Fatal("expected lookup failure to surface")
	}
}

func TestComputeFinalTotalChargeDirections(t *testing.T) {
	charges := []domain.Charge{
		{Label: "coupon (x)", Amount: dec(t, "10")},
		{Label: "Packing", Amount: dec(t, "5.555")},
		{Label: "DISCOUNT", Amount: dec(t, "20")},
	}
	if got := ComputeFinalTotal(dec(t, "100"), charges); !got.Equal(dec(t, "75.56")) {
		t.Fatalf("expected 75.56, got %s", got)
	}

	negative := ComputeFinalTotal(dec(t, "10"), []domain.Charge{{Label: "Discount", Amount: dec(t, "25")}})
	if !negative.Equal(dec(t, "-15")) {
		t.Fatalf("expected unclamped -15, got %s", negative)
	}
}

func TestValidateLineItems(t *testing.T) {
	cases := map[string]domain.LineItem{
		"empty description": {Quantity: decimal.NewFromInt(1), UnitRate: decimal.NewFromInt(1)},
		"negative quantity": {Description: "x", Quantity: decimal.NewFromInt(-1), UnitRate: decimal.NewFromInt(1)},
		"negative rate":     {Description: "x", Quantity: decimal.NewFromInt(1), UnitRate: decimal.NewFromInt(-1)},
	}
	for name, item := range cases {
		t.Run(name, func(t *testing.T) {
			if err := ValidateLineItems([]domain.LineItem{item}); !errors.Is(err, ErrInvoiceInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}

	zero := domain.LineItem{Description: "free sample", Quantity: decimal.Zero, UnitRate: decimal.NewFromInt(20)}
	if err := ValidateLineItems([]domain.LineItem{zero}); err != nil {
		t.Fatalf("zero quantity must be accepted: %v", err)
	}
}
