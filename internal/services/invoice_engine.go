package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
)

const moneyScale = 2

var hundred = decimal.NewFromInt(100)

// CouponReason explains why a coupon was not applied.
type CouponReason string

const (
	CouponReasonNotFound     CouponReason = "not_found"
	CouponReasonInactive     CouponReason = "inactive"
	CouponReasonExpired      CouponReason = "expired"
	CouponReasonBelowMinimum CouponReason = "below_minimum"
)

// CouponResult is the outcome of coupon resolution. Reason is empty when no code was supplied.
type CouponResult struct {
	Code    string
	Applied bool
	Amount  decimal.Decimal
	Label   string
	Reason  CouponReason
}

// CouponLookup finds a coupon by exact code. Implementations return found=false for misses.
type CouponLookup func(ctx context.Context, code string) (coupon domain.Coupon, found bool, err error)

// ValidateLineItems rejects malformed items before any computation takes place.
func ValidateLineItems(items []domain.LineItem) error {
	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("%w: item %d description is required", ErrInvoiceInvalidInput, i+1)
		}
		if item.Quantity.IsNegative() {
			return fmt.Errorf("%w: item %d quantity must not be negative", ErrInvoiceInvalidInput, i+1)
		}
		if item.UnitRate.IsNegative() {
			return fmt.Errorf("%w: item %d rate must not be negative", ErrInvoiceInvalidInput, i+1)
		}
	}
	return nil
}

// ComputeSubtotal sums quantity * rate over all items using exact decimal arithmetic.
func ComputeSubtotal(items []domain.LineItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal
}

// EvaluateCoupon applies the eligibility rules to an already looked-up coupon.
// Checks run in order and stop at the first failure: status, expiry, minimum purchase.
func EvaluateCoupon(coupon domain.Coupon, subtotal decimal.Decimal, now time.Time) CouponResult {
	result := CouponResult{Code: coupon.Code}
	switch {
	case coupon.Status != domain.CouponStatusActive:
		result.Reason = CouponReasonInactive
		return result
	case now.After(coupon.Expiry):
		result.Reason = CouponReasonExpired
		return result
	case subtotal.LessThan(coupon.MinPurchase):
		result.Reason = CouponReasonBelowMinimum
		return result
	}

	discount := subtotal.Mul(coupon.DiscountPercent).Div(hundred)
	if discount.GreaterThan(coupon.MaxDiscount) {
		discount = coupon.MaxDiscount
	}
	result.Applied = true
	result.Amount = discount
	result.Label = domain.CouponLabel(coupon.Code)
	return result
}

// ResolveCoupon looks up code and evaluates it against the subtotal. An empty code yields
// an unapplied result with no reason. Misses are results, not errors; only lookup
// failures return an error.
func ResolveCoupon(ctx context.Context, lookup CouponLookup, code string, subtotal decimal.Decimal, now time.Time) (CouponResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return CouponResult{}, nil
	}
	if lookup == nil {
		return CouponResult{}, errors.New("coupon lookup not configured")
	}
	coupon, found, err := lookup(ctx, code)
	if err != nil {
		return CouponResult{}, err
	}
	if !found {
		return CouponResult{Code: code, Reason: CouponReasonNotFound}, nil
	}
	return EvaluateCoupon(coupon, subtotal, now), nil
}

// BuildCharges returns the charge sequence in its fixed order: coupon (when applied),
// delivery, discount. Delivery and discount are always present.
func BuildCharges(delivery, discount decimal.Decimal, coupon CouponResult) []domain.Charge {
	charges := make([]domain.Charge, 0, 3)
	if coupon.Applied {
		label := coupon.Label
		if label == "" {
			label = domain.CouponLabel(coupon.Code)
		}
		charges = append(charges, domain.Charge{Label: label, Amount: coupon.Amount})
	}
	charges = append(charges,
		domain.Charge{Label: domain.ChargeLabelDelivery, Amount: delivery},
		domain.Charge{Label: domain.ChargeLabelDiscount, Amount: discount},
	)
	return charges
}

// ComputeFinalTotal adds additive charges and subtracts discount and coupon charges.
// Rounding to two places happens once, here. Negative totals are returned unchanged.
func ComputeFinalTotal(subtotal decimal.Decimal, charges []domain.Charge) decimal.Decimal {
	total := subtotal
	for _, charge := range charges {
		switch charge.Kind() {
		case domain.ChargeKindDiscount, domain.ChargeKindCoupon:
			total = total.Sub(charge.Amount)
		default:
			total = total.Add(charge.Amount)
		}
	}
	return total.Round(moneyScale)
}

// LineItemsFromProducts converts an order's product list into invoice rows.
func LineItemsFromProducts(products []domain.OrderProduct) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(products))
	for _, product := range products {
		description := strings.TrimSpace(product.Name)
		if weight := strings.TrimSpace(product.Weight); weight != "" && description != "" {
			description = fmt.Sprintf("%s (%s)", description, weight)
		}
		items = append(items, domain.LineItem{
			Description: description,
			Quantity:    product.Quantity,
			UnitRate:    product.Price,
		})
	}
	return items
}

// ComputeInvoice runs the full computation for an order snapshot and a resolved coupon.
func ComputeInvoice(order domain.Order, coupon CouponResult, issuedAt time.Time) (domain.Invoice, error) {
	items := LineItemsFromProducts(order.Products)
	if err := ValidateLineItems(items); err != nil {
		return domain.Invoice{}, err
	}
	subtotal := ComputeSubtotal(items)
	charges := BuildCharges(order.DeliveryCharges, order.TotalDiscount, coupon)
	return domain.Invoice{
		OrderID:     order.ID,
		OrderStatus: order.Status,
		Items:       items,
		Charges:     charges,
		Subtotal:    subtotal,
		FinalTotal:  ComputeFinalTotal(subtotal, charges),
		IssuedAt:    issuedAt,
	}, nil
}
