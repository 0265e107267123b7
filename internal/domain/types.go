package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// OrderStatus enumerates the fulfilment states an order can hold.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusPacked         OrderStatus = "packed"
	OrderStatusNotPacked      OrderStatus = "not packed"
	OrderStatusOutForDelivery OrderStatus = "out for delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPacked,
	OrderStatusNotPacked,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// OrderStatuses returns every valid status in workflow order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

// ParseOrderStatus normalises raw input (case and surrounding space) to a known status.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	normalized := OrderStatus(strings.ToLower(strings.Join(strings.Fields(raw), " ")))
	for _, status := range orderStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// Valid reports whether the status is one of the enumerated values.
func (s OrderStatus) Valid() bool {
	for _, status := range orderStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// StatusHistoryEntry records a single status change.
type StatusHistoryEntry struct {
	Status    OrderStatus
	UpdatedAt time.Time
	UpdatedBy string
}

// AddressType selects who receives the order.
type AddressType string

const (
	AddressTypeMyself       AddressType = "myself"
	AddressTypeFriendFamily AddressType = "friendFamily"
)

// OrderProduct is one entry of an order's product list as captured at order time.
type OrderProduct struct {
	Name     string
	Weight   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// Order is the central mutable record tracked through fulfilment.
type Order struct {
	ID                string
	Status            OrderStatus
	StatusHistory     []StatusHistoryEntry
	Products          []OrderProduct
	PaidAmount        decimal.Decimal
	DeliveryCharges   decimal.Decimal
	TotalDiscount     decimal.Decimal
	CouponCode        string
	Phone             string
	CustomerID        string
	CustomerName      string
	Address           string
	AddressType       AddressType
	FriendFamilyName  string
	FriendFamilyPhone string
	PaymentMode       string
	GroceryImagePath  string
	OrderBillURL      string
	CreatedAt         time.Time
}

// LastHistoryEntry returns the most recent status entry when present.
func (o Order) LastHistoryEntry() (StatusHistoryEntry, bool) {
	if len(o.StatusHistory) == 0 {
		return StatusHistoryEntry{}, false
	}
	return o.StatusHistory[len(o.StatusHistory)-1], true
}

// Recipient resolves the name and phone printed on the invoice.
func (o Order) Recipient() (name string, phone string) {
	if o.AddressType == AddressTypeMyself || strings.TrimSpace(o.FriendFamilyName) == "" {
		return strings.TrimSpace(o.CustomerName), strings.TrimSpace(o.Phone)
	}
	return strings.TrimSpace(o.FriendFamilyName), strings.TrimSpace(o.FriendFamilyPhone)
}

// OrderFinancials carries staff-editable scalar amounts. Nil fields are left untouched.
type OrderFinancials struct {
	PaidAmount      *decimal.Decimal
	DeliveryCharges *decimal.Decimal
	TotalDiscount   *decimal.Decimal
	CouponCode      *string
}

// Empty reports whether no field is set.
func (f OrderFinancials) Empty() bool {
	return f.PaidAmount == nil && f.DeliveryCharges == nil && f.TotalDiscount == nil && f.CouponCode == nil
}

// Customer aggregates orders placed from a single phone number.
type Customer struct {
	Phone      string
	Name       string
	Address    string
	OrderCount int
	CustomerID string
	ReferralID string
	MapLink    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CustomerUpdate carries staff edits to a customer profile. Nil fields are left untouched.
type CustomerUpdate struct {
	Name       *string
	Address    *string
	OrderCount *int
	CustomerID *string
	ReferralID *string
	MapLink    *string
}

// Empty reports whether the update changes nothing.
func (u CustomerUpdate) Empty() bool {
	return u.Name == nil && u.Address == nil && u.OrderCount == nil &&
		u.CustomerID == nil && u.ReferralID == nil && u.MapLink == nil
}

// CustomerSummary is one row of the customer spend report.
type CustomerSummary struct {
	Customer
	Orders     int
	TotalSpent decimal.Decimal
}
