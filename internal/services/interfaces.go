package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
)

// OrderLifecycleService owns status transitions and the status history trail.
type OrderLifecycleService interface {
	Transition(ctx context.Context, cmd TransitionCommand) (TransitionResult, error)
	History(ctx context.Context, orderID string) ([]domain.StatusHistoryEntry, error)
}

// InvoiceService computes, renders and stores invoices for orders.
type InvoiceService interface {
	Preview(ctx context.Context, cmd PreviewInvoiceCommand) (InvoicePreview, error)
	Generate(ctx context.Context, cmd GenerateInvoiceCommand) (InvoiceResult, error)
}

// OrderService covers order CRUD surrounding the lifecycle and invoice cores.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error)
	Get(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	UpdateFinancials(ctx context.Context, cmd UpdateFinancialsCommand) (domain.Order, error)
	Delete(ctx context.Context, cmd DeleteOrderCommand) error
}

// CouponService manages coupon rules.
type CouponService interface {
	List(ctx context.Context) ([]domain.Coupon, error)
	Get(ctx context.Context, code string) (domain.Coupon, error)
	Upsert(ctx context.Context, coupon domain.Coupon) (domain.Coupon, error)
	Delete(ctx context.Context, code string) error
	Check(ctx context.Context, code string, subtotal decimal.Decimal) (CouponResult, error)
}

// ExportService copies order and customer data to an external spreadsheet.
type ExportService interface {
	ExportOrders(ctx context.Context, filter OrderListFilter) (ExportResult, error)
	// ExportCustomers rewrites the customer spend report from every stored order.
	ExportCustomers(ctx context.Context) (ExportResult, error)
}

// CatalogService manages storefront categories and products.
type CatalogService interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	UpsertCategory(ctx context.Context, category domain.Category) (domain.Category, error)
	DeleteCategory(ctx context.Context, categoryID string) error
	ListProducts(ctx context.Context, category string) ([]domain.Product, error)
	UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// CustomerService exposes customer profiles to staff.
type CustomerService interface {
	List(ctx context.Context, filter CustomerListFilter) (domain.CursorPage[domain.Customer], error)
	Get(ctx context.Context, phone string) (domain.Customer, error)
	Update(ctx context.Context, cmd UpdateCustomerCommand) (domain.Customer, error)
	Delete(ctx context.Context, phone string) error
}

// AnnouncementService manages storefront announcements.
type AnnouncementService interface {
	List(ctx context.Context) ([]domain.Announcement, error)
	Upsert(ctx context.Context, announcement domain.Announcement) (domain.Announcement, error)
	Delete(ctx context.Context, announcementID string) error
}

// TransitionCommand requests a status change. Actor defaults to the configured staff actor.
type TransitionCommand struct {
	OrderID string
	Status  string
	Actor   string
}

// TransitionResult carries the new status and the appended entry for immediate display.
type TransitionResult struct {
	OrderID        string
	PreviousStatus domain.OrderStatus
	Status         domain.OrderStatus
	Entry          domain.StatusHistoryEntry
}

// PreviewInvoiceCommand selects the order and optional coupon override.
type PreviewInvoiceCommand struct {
	OrderID    string
	CouponCode *string
}

// GenerateInvoiceCommand triggers rendering and storing the invoice artifact.
type GenerateInvoiceCommand struct {
	OrderID    string
	CouponCode *string
	Actor      string
}

// InvoicePreview is the side-effect free computation result.
type InvoicePreview struct {
	Invoice domain.Invoice
	Order   domain.Order
	Coupon  CouponResult
}

// InvoiceResult is returned by Generate. Document and FileName are populated whenever
// rendering succeeded, including when the upload or write-back failed.
type InvoiceResult struct {
	InvoicePreview
	Document    []byte
	FileName    string
	ArtifactKey string
	URL         string
	ShareLink   string
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	Status    []string
	PageSize  int
	PageToken string
}

// CreateOrderProduct is one product line supplied when creating an order.
type CreateOrderProduct struct {
	Name     string
	Weight   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// CreateOrderCommand captures the storefront order payload.
type CreateOrderCommand struct {
	Products          []CreateOrderProduct
	Phone             string
	CustomerID        string
	CustomerName      string
	Address           string
	AddressType       domain.AddressType
	FriendFamilyName  string
	FriendFamilyPhone string
	PaymentMode       string
	PaidAmount        decimal.Decimal
	DeliveryCharges   decimal.Decimal
	TotalDiscount     decimal.Decimal
	CouponCode        string
	GroceryImagePath  string
	Actor             string
}

// UpdateFinancialsCommand edits staff-owned scalar amounts.
type UpdateFinancialsCommand struct {
	OrderID string
	Fields  domain.OrderFinancials
}

// DeleteOrderCommand hard-deletes an order.
type DeleteOrderCommand struct {
	OrderID string
	Actor   string
}

// CustomerListFilter pages through customers, newest first.
type CustomerListFilter struct {
	PageSize  int
	PageToken string
}

// UpdateCustomerCommand edits a customer profile.
type UpdateCustomerCommand struct {
	Phone  string
	Fields domain.CustomerUpdate
}

// ExportResult reports what an export wrote.
type ExportResult struct {
	Rows       int
	Range      string
	ExportedAt time.Time
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type           string
	OrderID        string
	PreviousStatus string
	CurrentStatus  string
	ActorID        string
	OccurredAt     time.Time
	Metadata       map[string]any
}

// Notification is a short message pushed to staff devices.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Notifier hands notifications to an external delivery channel.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// InvoiceRenderer turns a computed invoice into a document.
type InvoiceRenderer interface {
	Render(ctx context.Context, doc InvoiceDocument) ([]byte, error)
}

// InvoiceDocument is everything printed on the invoice.
type InvoiceDocument struct {
	Invoice domain.Invoice
	Order   domain.Order
}

// ArtifactStore persists generated files and returns a shareable URL.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ArtifactKeys resolves object keys for order artifacts.
type ArtifactKeys interface {
	InvoiceKey(orderID string) (string, error)
	GroceryImageKey(orderID, fileName string) (string, error)
}

// MessageLinkBuilder builds click-to-chat links for customer messages.
type MessageLinkBuilder interface {
	ReceiptLink(order domain.Order, total decimal.Decimal, billURL string) (string, error)
}

// OrderSheetWriter appends order rows to a spreadsheet.
type OrderSheetWriter interface {
	AppendOrders(ctx context.Context, orders []domain.Order) (string, error)
}

// CustomerSheetWriter replaces the customer report with fresh rows.
type CustomerSheetWriter interface {
	ReplaceCustomers(ctx context.Context, customers []domain.CustomerSummary) (string, error)
}
