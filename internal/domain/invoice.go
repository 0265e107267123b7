package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Reserved charge labels.
const (
	ChargeLabelDelivery     = "Delivery"
	ChargeLabelDiscount     = "Discount"
	ChargeLabelCouponPrefix = "Coupon ("
)

// ChargeKind classifies how a charge affects the invoice total.
type ChargeKind string

const (
	ChargeKindAdditive ChargeKind = "additive"
	ChargeKindDiscount ChargeKind = "discount"
	ChargeKindCoupon   ChargeKind = "coupon"
)

// LineItem is one priced row on an invoice.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitRate    decimal.Decimal
}

// LineTotal returns quantity * unit rate without rounding.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.Quantity.Mul(l.UnitRate)
}

// Charge is a named adjustment applied after the subtotal. Direction comes from the label.
type Charge struct {
	Label  string
	Amount decimal.Decimal
}

// Kind derives the charge direction from its label. Matching is case-insensitive.
func (c Charge) Kind() ChargeKind {
	label := strings.ToLower(strings.TrimSpace(c.Label))
	switch {
	case strings.HasPrefix(label, "coupon"):
		return ChargeKindCoupon
	case label == strings.ToLower(ChargeLabelDiscount):
		return ChargeKindDiscount
	default:
		return ChargeKindAdditive
	}
}

// CouponLabel formats the system-generated coupon charge label.
func CouponLabel(code string) string {
	return ChargeLabelCouponPrefix + code + ")"
}

// CouponStatus toggles whether a coupon may be applied.
type CouponStatus string

const (
	CouponStatusActive   CouponStatus = "active"
	CouponStatusInactive CouponStatus = "inactive"
)

// Coupon is a discount rule looked up by code.
type Coupon struct {
	Code            string
	DiscountPercent decimal.Decimal
	MaxDiscount     decimal.Decimal
	MinPurchase     decimal.Decimal
	Expiry          time.Time
	AllowedList     []string
	NotAllowedList  []string
	Status          CouponStatus
}

// Invoice is the computed financial breakdown for one order.
type Invoice struct {
	OrderID     string
	OrderStatus OrderStatus
	Items       []LineItem
	Charges     []Charge
	Subtotal    decimal.Decimal
	FinalTotal  decimal.Decimal
	IssuedAt    time.Time
}
