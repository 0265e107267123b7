package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
	pfirestore "github.com/habitus/orderdesk/internal/platform/firestore"
	"github.com/habitus/orderdesk/internal/platform/pagination"
	"github.com/habitus/orderdesk/internal/repositories"
)

const ordersCollection = "orders"

type orderDocument struct {
	Status            string                 `firestore:"status"`
	StatusHistory     []statusEntryDocument  `firestore:"statusHistory"`
	ProductList       []orderProductDocument `firestore:"productList"`
	PaidAmount        float64                `firestore:"paidAmount"`
	DeliveryCharges   float64                `firestore:"deliveryCharges"`
	TotalDiscount     float64                `firestore:"totalDiscount"`
	CouponCode        string                 `firestore:"couponCode,omitempty"`
	Phone             string                 `firestore:"phone"`
	CustomerID        string                 `firestore:"customerId"`
	CustomerName      string                 `firestore:"customerName"`
	Address           string                 `firestore:"address"`
	AddressType       string                 `firestore:"addressType"`
	FriendFamilyName  string                 `firestore:"friendFamilyName,omitempty"`
	FriendFamilyPhone string                 `firestore:"friendFamilyPhone,omitempty"`
	PaymentMode       string                 `firestore:"paymentMode,omitempty"`
	GroceryImagePath  string                 `firestore:"groceryListImage,omitempty"`
	OrderBillURL      string                 `firestore:"orderBillUrl,omitempty"`
	CreatedAt         time.Time              `firestore:"createdAt"`
}

// statusEntryDocument carries an entryId so ArrayUnion never collapses two identical
// status changes recorded in the same instant.
type statusEntryDocument struct {
	EntryID   string    `firestore:"entryId"`
	Status    string    `firestore:"status"`
	UpdatedAt time.Time `firestore:"updatedAt"`
	UpdatedBy string    `firestore:"updatedBy"`
}

type orderProductDocument struct {
	Name     string  `firestore:"name"`
	Weight   string  `firestore:"weight,omitempty"`
	Quantity float64 `firestore:"quantity"`
	Price    float64 `firestore:"price"`
}

// OrderRepository implements repositories.OrderRepository on the orders collection.
type OrderRepository struct {
	orders  *pfirestore.Collection[orderDocument]
	entryID func() string
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		orders:  pfirestore.NewCollection[orderDocument](provider, ordersCollection),
		entryID: func() string { return ulid.Make().String() },
	}, nil
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// Insert creates the order document. An existing id is a conflict.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	return r.orders.Create(ctx, order.ID, r.toDocument(order))
}

// FindByID loads a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return fromOrderDocument(strings.TrimSpace(orderID), doc), nil
}

// ListByRecency returns orders newest first. Ties on createdAt are broken by document id
// so the cursor is stable.
func (r *OrderRepository) ListByRecency(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	ref, err := r.orders.Ref(ctx)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	size := filter.Pagination.PageSize
	if size <= 0 {
		size = pagination.DefaultPageSize
	}

	query := ref.Query
	if len(filter.Status) > 0 {
		statuses := make([]string, 0, len(filter.Status))
		for _, status := range filter.Status {
			statuses = append(statuses, string(status))
		}
		query = query.Where("status", "in", statuses)
	}
	query = query.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)

	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}
	if len(cursor.StartAfter) > 0 {
		createdAt, id, err := decodeOrderCursor(cursor)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		query = query.StartAfter(createdAt, id)
	}

	docs, err := r.orders.Query(ctx, query.Limit(size+1))
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	page := domain.CursorPage[domain.Order]{}
	if len(docs) > size {
		docs = docs[:size]
		last := docs[len(docs)-1]
		page.NextPageToken, err = pagination.EncodeToken(pagination.Cursor{
			StartAfter: []string{last.Data.CreatedAt.UTC().Format(time.RFC3339Nano), last.ID},
		})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
	}
	page.Items = make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		page.Items = append(page.Items, fromOrderDocument(doc.ID, doc.Data))
	}
	return page, nil
}

// AppendStatus sets status and unions the entry into statusHistory in one write.
func (r *OrderRepository) AppendStatus(ctx context.Context, orderID string, entry domain.StatusHistoryEntry) error {
	return r.orders.Update(ctx, orderID, []firestore.Update{
		{Path: "status", Value: string(entry.Status)},
		{Path: "statusHistory", Value: firestore.ArrayUnion(r.toEntryDocument(entry))},
	})
}

// SetBillURL writes orderBillUrl only.
func (r *OrderRepository) SetBillURL(ctx context.Context, orderID string, url string) error {
	return r.orders.Update(ctx, orderID, []firestore.Update{{Path: "orderBillUrl", Value: url}})
}

// UpdateFinancials writes only the fields present in fields.
func (r *OrderRepository) UpdateFinancials(ctx context.Context, orderID string, fields domain.OrderFinancials) error {
	updates := financialUpdates(fields)
	if len(updates) == 0 {
		return nil
	}
	return r.orders.Update(ctx, orderID, updates)
}

// Delete removes the order document.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	return r.orders.Delete(ctx, orderID)
}

func financialUpdates(fields domain.OrderFinancials) []firestore.Update {
	var updates []firestore.Update
	if fields.PaidAmount != nil {
		updates = append(updates, firestore.Update{Path: "paidAmount", Value: fields.PaidAmount.InexactFloat64()})
	}
	if fields.DeliveryCharges != nil {
		updates = append(updates, firestore.Update{Path: "deliveryCharges", Value: fields.DeliveryCharges.InexactFloat64()})
	}
	if fields.TotalDiscount != nil {
		updates = append(updates, firestore.Update{Path: "totalDiscount", Value: fields.TotalDiscount.InexactFloat64()})
	}
	if fields.CouponCode != nil {
		updates = append(updates, firestore.Update{Path: "couponCode", Value: *fields.CouponCode})
	}
	return updates
}

func decodeOrderCursor(cursor pagination.Cursor) (time.Time, string, error) {
	if len(cursor.StartAfter) != 2 {
		return time.Time{}, "", fmt.Errorf("%w: unexpected cursor shape", pagination.ErrInvalidPageToken)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, cursor.StartAfter[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", pagination.ErrInvalidPageToken, err)
	}
	id := strings.TrimSpace(cursor.StartAfter[1])
	if id == "" {
		return time.Time{}, "", fmt.Errorf("%w: missing order id", pagination.ErrInvalidPageToken)
	}
	return createdAt, id, nil
}

func (r *OrderRepository) toEntryDocument(entry domain.StatusHistoryEntry) statusEntryDocument {
	return statusEntryDocument{
		EntryID:   r.entryID(),
		Status:    string(entry.Status),
		UpdatedAt: entry.UpdatedAt.UTC(),
		UpdatedBy: entry.UpdatedBy,
	}
}

func (r *OrderRepository) toDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		Status:            string(order.Status),
		StatusHistory:     make([]statusEntryDocument, 0, len(order.StatusHistory)),
		ProductList:       make([]orderProductDocument, 0, len(order.Products)),
		PaidAmount:        order.PaidAmount.InexactFloat64(),
		DeliveryCharges:   order.DeliveryCharges.InexactFloat64(),
		TotalDiscount:     order.TotalDiscount.InexactFloat64(),
		CouponCode:        order.CouponCode,
		Phone:             order.Phone,
		CustomerID:        order.CustomerID,
		CustomerName:      order.CustomerName,
		Address:           order.Address,
		AddressType:       string(order.AddressType),
		FriendFamilyName:  order.FriendFamilyName,
		FriendFamilyPhone: order.FriendFamilyPhone,
		PaymentMode:       order.PaymentMode,
		GroceryImagePath:  order.GroceryImagePath,
		OrderBillURL:      order.OrderBillURL,
		CreatedAt:         order.CreatedAt.UTC(),
	}
	for _, entry := range order.StatusHistory {
		doc.StatusHistory = append(doc.StatusHistory, r.toEntryDocument(entry))
	}
	for _, p := range order.Products {
		doc.ProductList = append(doc.ProductList, orderProductDocument{
			Name:     p.Name,
			Weight:   p.Weight,
			Quantity: p.Quantity.InexactFloat64(),
			Price:    p.Price.InexactFloat64(),
		})
	}
	return doc
}

func fromOrderDocument(id string, doc orderDocument) domain.Order {
	order := domain.Order{
		ID:                id,
		Status:            domain.OrderStatus(doc.Status),
		PaidAmount:        decimal.NewFromFloat(doc.PaidAmount),
		DeliveryCharges:   decimal.NewFromFloat(doc.DeliveryCharges),
		TotalDiscount:     decimal.NewFromFloat(doc.TotalDiscount),
		CouponCode:        doc.CouponCode,
		Phone:             doc.Phone,
		CustomerID:        doc.CustomerID,
		CustomerName:      doc.CustomerName,
		Address:           doc.Address,
		AddressType:       domain.AddressType(doc.AddressType),
		FriendFamilyName:  doc.FriendFamilyName,
		FriendFamilyPhone: doc.FriendFamilyPhone,
		PaymentMode:       doc.PaymentMode,
		GroceryImagePath:  doc.GroceryImagePath,
		OrderBillURL:      doc.OrderBillURL,
		CreatedAt:         doc.CreatedAt.UTC(),
	}
	if status, ok := domain.ParseOrderStatus(doc.Status); ok {
		order.Status = status
	}
	for _, entry := range doc.StatusHistory {
		status := domain.OrderStatus(entry.Status)
		if parsed, ok := domain.ParseOrderStatus(entry.Status); ok {
			status = parsed
		}
		order.StatusHistory = append(order.StatusHistory, domain.StatusHistoryEntry{
			Status:    status,
			UpdatedAt: entry.UpdatedAt.UTC(),
			UpdatedBy: entry.UpdatedBy,
		})
	}
	for _, p := range doc.ProductList {
		order.Products = append(order.Products, domain.OrderProduct{
			Name:     p.Name,
			Weight:   p.Weight,
			Quantity: decimal.NewFromFloat(p.Quantity),
			Price:    decimal.NewFromFloat(p.Price),
		})
	}
	return order
}
