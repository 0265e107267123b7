package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
	pfirestore "github.com/habitus/orderdesk/internal/platform/firestore"
	"github.com/habitus/orderdesk/internal/repositories"
)

const couponsCollection = "coupons"

// couponDocument matches the storefront schema, where coupons are auto-id documents found
// by their code field.
type couponDocument struct {
	Code            string    `firestore:"code"`
	DiscountPercent float64   `firestore:"discount"`
	MaxDiscount     float64   `firestore:"maxDiscount"`
	MinPurchase     float64   `firestore:"minPurchase"`
	Expiry          time.Time `firestore:"expiry"`
	AllowedList     []string  `firestore:"allowedList,omitempty"`
	NotAllowedList  []string  `firestore:"notAllowedList,omitempty"`
	Status          string    `firestore:"status"`
}

// CouponRepository stores coupons keyed by code.
type CouponRepository struct {
	coupons *pfirestore.Collection[couponDocument]
}

// NewCouponRepository constructs a Firestore-backed coupon repository.
func NewCouponRepository(provider *pfirestore.Provider) (*CouponRepository, error) {
	if provider == nil {
		return nil, errors.New("coupon repository requires firestore provider")
	}
	return &CouponRepository{coupons: pfirestore.NewCollection[couponDocument](provider, couponsCollection)}, nil
}

var _ repositories.CouponRepository = (*CouponRepository)(nil)

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	doc, err := r.find(ctx, code)
	if err != nil {
		return domain.Coupon{}, err
	}
	return fromCouponDocument(doc.ID, doc.Data), nil
}

func (r *CouponRepository) List(ctx context.Context) ([]domain.Coupon, error) {
	ref, err := r.coupons.Ref(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := r.coupons.Query(ctx, ref.Query)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Coupon, 0, len(docs))
	for _, doc := range docs {
		out = append(out, fromCouponDocument(doc.ID, doc.Data))
	}
	return out, nil
}

// Upsert rewrites the document already carrying the code, wherever it lives. New coupons
// are keyed by their code.
func (r *CouponRepository) Upsert(ctx context.Context, coupon domain.Coupon) error {
	id := coupon.Code
	existing, err := r.find(ctx, coupon.Code)
	switch {
	case err == nil:
		id = existing.ID
	case !isRepositoryNotFound(err):
		return err
	}
	return r.coupons.Set(ctx, id, toCouponDocument(coupon))
}

func (r *CouponRepository) Delete(ctx context.Context, code string) error {
	existing, err := r.find(ctx, code)
	if err != nil {
		return err
	}
	return r.coupons.Delete(ctx, existing.ID)
}

// find queries by the code field first, then falls back to a document keyed by the code.
func (r *CouponRepository) find(ctx context.Context, code string) (pfirestore.Document[couponDocument], error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return pfirestore.Document[couponDocument]{}, pfirestore.NotFound(couponsCollection+".find", "coupon")
	}
	ref, err := r.coupons.Ref(ctx)
	if err != nil {
		return pfirestore.Document[couponDocument]{}, err
	}
	docs, err := r.coupons.Query(ctx, ref.Where("code", "==", code).Limit(1))
	if err != nil {
		return pfirestore.Document[couponDocument]{}, err
	}
	if len(docs) > 0 {
		return docs[0], nil
	}
	data, err := r.coupons.Get(ctx, code)
	if err != nil {
		return pfirestore.Document[couponDocument]{}, err
	}
	return pfirestore.Document[couponDocument]{ID: code, Data: data}, nil
}

func isRepositoryNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func toCouponDocument(coupon domain.Coupon) couponDocument {
	return couponDocument{
		Code:            coupon.Code,
		DiscountPercent: coupon.DiscountPercent.InexactFloat64(),
		MaxDiscount:     coupon.MaxDiscount.InexactFloat64(),
		MinPurchase:     coupon.MinPurchase.InexactFloat64(),
		Expiry:          coupon.Expiry.UTC(),
		AllowedList:     coupon.AllowedList,
		NotAllowedList:  coupon.NotAllowedList,
		Status:          string(coupon.Status),
	}
}

func fromCouponDocument(id string, doc couponDocument) domain.Coupon {
	code := strings.TrimSpace(doc.Code)
	if code == "" {
		code = id
	}
	return domain.Coupon{
		Code:            code,
		DiscountPercent: decimal.NewFromFloat(doc.DiscountPercent),
		MaxDiscount:     decimal.NewFromFloat(doc.MaxDiscount),
		MinPurchase:     decimal.NewFromFloat(doc.MinPurchase),
		Expiry:          doc.Expiry.UTC(),
		AllowedList:     doc.AllowedList,
		NotAllowedList:  doc.NotAllowedList,
		Status:          domain.CouponStatus(strings.ToLower(strings.TrimSpace(doc.Status))),
	}
}
