package firestore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/habitus/orderdesk/internal/domain"
	pfirestore "github.com/habitus/orderdesk/internal/platform/firestore"
	"github.com/habitus/orderdesk/internal/platform/pagination"
	"github.com/habitus/orderdesk/internal/repositories"
)

const customersCollection = "customers"

// customerDocument mirrors customers/{phone}. orderCount has been written as both a number
// and a string by older dashboard builds, so it is decoded loosely.
type customerDocument struct {
	Name       string    `firestore:"name"`
	Phone      string    `firestore:"phone"`
	Address    string    `firestore:"address"`
	OrderCount any       `firestore:"orderCount"`
	CustomerID string    `firestore:"customerId"`
	ReferralID string    `firestore:"referralId"`
	MapLink    string    `firestore:"mapLink"`
	Timestamp  time.Time `firestore:"timestamp"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

// CustomerRepository maintains customers/{phone} profiles and aggregates.
type CustomerRepository struct {
	provider  *pfirestore.Provider
	customers *pfirestore.Collection[customerDocument]
}

// NewCustomerRepository constructs a Firestore-backed customer repository.
func NewCustomerRepository(provider *pfirestore.Provider) (*CustomerRepository, error) {
	if provider == nil {
		return nil, errors.New("customer repository requires firestore provider")
	}
	return &CustomerRepository{
		provider:  provider,
		customers: pfirestore.NewCollection[customerDocument](provider, customersCollection),
	}, nil
}

var _ repositories.CustomerRepository = (*CustomerRepository)(nil)

// AdjustOrderCount runs in a transaction so a first order stamps the creation timestamp
// and a decrement never drops the count below zero.
func (r *CustomerRepository) AdjustOrderCount(ctx context.Context, phone string, delta int, now time.Time) error {
	phone = strings.TrimSpace(phone)
	if delta == 0 {
		return nil
	}
	ref, err := r.customers.Doc(ctx, phone)
	if err != nil {
		return err
	}
	now = now.UTC()

	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			if delta < 0 {
				return nil
			}
			return tx.Set(ref, map[string]any{
				"phone":      phone,
				"orderCount": int64(delta),
				"timestamp":  now,
				"updatedAt":  now,
			}, firestore.MergeAll)
		}
		if err != nil {
			return err
		}
		var doc customerDocument
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "orderCount", Value: flooredCount(orderCountValue(doc.OrderCount), delta)},
			{Path: "updatedAt", Value: now},
		})
	})
}

// List returns customers by creation timestamp, newest first. Ties are broken by phone so
// the cursor is stable.
func (r *CustomerRepository) List(ctx context.Context, page domain.Pagination) (domain.CursorPage[domain.Customer], error) {
	ref, err := r.customers.Ref(ctx)
	if err != nil {
		return domain.CursorPage[domain.Customer]{}, err
	}
	size := page.PageSize
	if size <= 0 {
		size = pagination.DefaultPageSize
	}
	query := ref.OrderBy("timestamp", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)

	cursor, err := pagination.DecodeToken(page.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Customer]{}, err
	}
	if len(cursor.StartAfter) > 0 {
		ts, phone, err := decodeCustomerCursor(cursor)
		if err != nil {
			return domain.CursorPage[domain.Customer]{}, err
		}
		query = query.StartAfter(ts, phone)
	}

	docs, err := r.customers.Query(ctx, query.Limit(size+1))
	if err != nil {
		return domain.CursorPage[domain.Customer]{}, err
	}
	out := domain.CursorPage[domain.Customer]{}
	if len(docs) > size {
		docs = docs[:size]
		last := docs[len(docs)-1]
		out.NextPageToken, err = pagination.EncodeToken(pagination.Cursor{
			StartAfter: []string{last.Data.Timestamp.UTC().Format(time.RFC3339Nano), last.ID},
		})
		if err != nil {
			return domain.CursorPage[domain.Customer]{}, err
		}
	}
	out.Items = make([]domain.Customer, 0, len(docs))
	for _, doc := range docs {
		out.Items = append(out.Items, fromCustomerDocument(doc.ID, doc.Data))
	}
	return out, nil
}

func (r *CustomerRepository) FindByPhone(ctx context.Context, phone string) (domain.Customer, error) {
	doc, err := r.customers.Get(ctx, phone)
	if err != nil {
		return domain.Customer{}, err
	}
	return fromCustomerDocument(strings.TrimSpace(phone), doc), nil
}

func (r *CustomerRepository) Update(ctx context.Context, phone string, update domain.CustomerUpdate, now time.Time) error {
	return r.customers.Update(ctx, phone, customerUpdates(update, now))
}

func (r *CustomerRepository) Delete(ctx context.Context, phone string) error {
	return r.customers.Delete(ctx, phone)
}

func customerUpdates(update domain.CustomerUpdate, now time.Time) []firestore.Update {
	var updates []firestore.Update
	if update.Name != nil {
		updates = append(updates, firestore.Update{Path: "name", Value: *update.Name})
	}
	if update.Address != nil {
		updates = append(updates, firestore.Update{Path: "address", Value: *update.Address})
	}
	if update.OrderCount != nil {
		updates = append(updates, firestore.Update{Path: "orderCount", Value: int64(*update.OrderCount)})
	}
	if update.CustomerID != nil {
		updates = append(updates, firestore.Update{Path: "customerId", Value: *update.CustomerID})
	}
	if update.ReferralID != nil {
		updates = append(updates, firestore.Update{Path: "referralId", Value: *update.ReferralID})
	}
	if update.MapLink != nil {
		updates = append(updates, firestore.Update{Path: "mapLink", Value: *update.MapLink})
	}
	return append(updates, firestore.Update{Path: "updatedAt", Value: now.UTC()})
}

func decodeCustomerCursor(cursor pagination.Cursor) (time.Time, string, error) {
	if len(cursor.StartAfter) != 2 {
		return time.Time{}, "", fmt.Errorf("%w: unexpected cursor shape", pagination.ErrInvalidPageToken)
	}
	ts, err := time.Parse(time.RFC3339Nano, cursor.StartAfter[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", pagination.ErrInvalidPageToken, err)
	}
	phone := strings.TrimSpace(cursor.StartAfter[1])
	if phone == "" {
		return time.Time{}, "", fmt.Errorf("%w: missing phone", pagination.ErrInvalidPageToken)
	}
	return ts, phone, nil
}

func fromCustomerDocument(id string, doc customerDocument) domain.Customer {
	phone := strings.TrimSpace(doc.Phone)
	if phone == "" {
		phone = id
	}
	return domain.Customer{
		Phone:      phone,
		Name:       doc.Name,
		Address:    doc.Address,
		OrderCount: int(orderCountValue(doc.OrderCount)),
		CustomerID: doc.CustomerID,
		ReferralID: doc.ReferralID,
		MapLink:    doc.MapLink,
		CreatedAt:  doc.Timestamp.UTC(),
		UpdatedAt:  doc.UpdatedAt.UTC(),
	}
}

// orderCountValue accepts the numeric and string encodings of orderCount. Anything
// unparseable counts as zero.
func orderCountValue(raw any) int64 {
	switch v := raw.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int64(v)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

func flooredCount(current int64, delta int) int64 {
	next := current + int64(delta)
	if next < 0 {
		return 0
	}
	return next
}
