package repositories

import (
	"context"
	"time"

	domain "github.com/habitus/orderdesk/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// OrderListFilter narrows order listings. Results are always newest first.
type OrderListFilter struct {
	Status     []domain.OrderStatus
	Pagination domain.Pagination
}

// OrderRepository persists orders.
//
// AppendStatus must set the status field and append the history entry in one write, using
// an additive array union so that concurrent appends are never lost. SetBillURL and
// UpdateFinancials only touch the fields they name.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ListByRecency(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	AppendStatus(ctx context.Context, orderID string, entry domain.StatusHistoryEntry) error
	SetBillURL(ctx context.Context, orderID string, url string) error
	UpdateFinancials(ctx context.Context, orderID string, fields domain.OrderFinancials) error
	Delete(ctx context.Context, orderID string) error
}

// CouponRepository stores coupon rules keyed by code.
type CouponRepository interface {
	// FindByCode returns a RepositoryError with IsNotFound when no coupon carries the code.
	FindByCode(ctx context.Context, code string) (domain.Coupon, error)
	List(ctx context.Context) ([]domain.Coupon, error)
	Upsert(ctx context.Context, coupon domain.Coupon) error
	Delete(ctx context.Context, code string) error
}

// CustomerRepository maintains per-phone customer profiles and aggregates.
type CustomerRepository interface {
	// AdjustOrderCount adds delta to the customer's order count, never going below zero.
	AdjustOrderCount(ctx context.Context, phone string, delta int, now time.Time) error
	// List returns customers newest first.
	List(ctx context.Context, page domain.Pagination) (domain.CursorPage[domain.Customer], error)
	FindByPhone(ctx context.Context, phone string) (domain.Customer, error)
	// Update applies the non-nil fields and stamps updatedAt. Missing customers are not found.
	Update(ctx context.Context, phone string, update domain.CustomerUpdate, now time.Time) error
	Delete(ctx context.Context, phone string) error
}

// CatalogRepository stores categories and products. Upserts with an empty ID create a new
// document and return it with the assigned ID; upserts with an ID require it to exist.
type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	UpsertCategory(ctx context.Context, category domain.Category) (domain.Category, error)
	DeleteCategory(ctx context.Context, categoryID string) error
	// ListProducts filters by category name when category is non-empty.
	ListProducts(ctx context.Context, category string) ([]domain.Product, error)
	UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// AnnouncementRepository stores storefront announcements with the same upsert rules as
// CatalogRepository.
type AnnouncementRepository interface {
	List(ctx context.Context) ([]domain.Announcement, error)
	Upsert(ctx context.Context, announcement domain.Announcement) (domain.Announcement, error)
	Delete(ctx context.Context, announcementID string) error
}
