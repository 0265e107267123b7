package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/repositories"
)

// CouponServiceDeps bundles collaborators required by the coupon service.
type CouponServiceDeps struct {
	Coupons repositories.CouponRepository
	Clock   func() time.Time
	Logger  LogFunc
}

type couponService struct {
	coupons repositories.CouponRepository
	clock   func() time.Time
	logger  LogFunc
}

// NewCouponService wires dependencies into a concrete CouponService.
func NewCouponService(deps CouponServiceDeps) (CouponService, error) {
	if deps.Coupons == nil {
		return nil, errors.New("coupon service: coupon repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLog
	}
	return &couponService{
		coupons: deps.Coupons,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *couponService) List(ctx context.Context) ([]domain.Coupon, error) {
	coupons, err := s.coupons.List(ctx)
	if err != nil {
		return nil, mapCouponRepositoryError(err)
	}
	sort.SliceStable(coupons, func(i, j int) bool {
		return coupons[i].Code < coupons[j].Code
	})
	return coupons, nil
}

func (s *couponService) Get(ctx context.Context, code string) (domain.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Coupon{}, fmt.Errorf("%w: code is required", ErrCouponInvalidInput)
	}
	coupon, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return domain.Coupon{}, mapCouponRepositoryError(err)
	}
	return coupon, nil
}

func (s *couponService) Upsert(ctx context.Context, coupon domain.Coupon) (domain.Coupon, error) {
	coupon.Code = strings.TrimSpace(coupon.Code)
	if err := validateCoupon(coupon); err != nil {
		return domain.Coupon{}, err
	}
	if coupon.Status == "" {
		coupon.Status = domain.CouponStatusActive
	}
	coupon.Expiry = coupon.Expiry.UTC()
	coupon.AllowedList = cleanList(coupon.AllowedList)
	coupon.NotAllowedList = cleanList(coupon.NotAllowedList)

	if err := s.coupons.Upsert(ctx, coupon); err != nil {
		return domain.Coupon{}, mapCouponRepositoryError(err)
	}
	s.logger(ctx, "coupon.upserted", map[string]any{
		"code":   coupon.Code,
		"status": string(coupon.Status),
	})
	return coupon, nil
}

func (s *couponService) Delete(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: code is required", ErrCouponInvalidInput)
	}
	if err := s.coupons.Delete(ctx, code); err != nil {
		return mapCouponRepositoryError(err)
	}
	return nil
}

// Check evaluates a coupon against a subtotal without touching any order.
func (s *couponService) Check(ctx context.Context, code string, subtotal decimal.Decimal) (CouponResult, error) {
	if strings.TrimSpace(code) == "" {
		return CouponResult{}, fmt.Errorf("%w: code is required", ErrCouponInvalidInput)
	}
	if subtotal.IsNegative() {
		return CouponResult{}, fmt.Errorf("%w: subtotal must not be negative", ErrCouponInvalidInput)
	}
	result, err := ResolveCoupon(ctx, s.lookup, code, subtotal, s.clock())
	if err != nil {
		return CouponResult{}, mapCouponRepositoryError(err)
	}
	return result, nil
}

func (s *couponService) lookup(ctx context.Context, code string) (domain.Coupon, bool, error) {
	coupon, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return domain.Coupon{}, false, nil
		}
		return domain.Coupon{}, false, err
	}
	return coupon, true, nil
}

func validateCoupon(coupon domain.Coupon) error {
	if coupon.Code == "" {
		return fmt.Errorf("%w: code is required", ErrCouponInvalidInput)
	}
	if strings.ContainsAny(coupon.Code, "/ ") {
		return fmt.Errorf("%w: code must not contain spaces or slashes", ErrCouponInvalidInput)
	}
	if coupon.DiscountPercent.IsNegative() || coupon.DiscountPercent.GreaterThan(hundred) {
		return fmt.Errorf("%w: discount percent must be between 0 and 100", ErrCouponInvalidInput)
	}
	if coupon.MaxDiscount.IsNegative() {
		return fmt.Errorf("%w: max discount must not be negative", ErrCouponInvalidInput)
	}
	if coupon.MinPurchase.IsNegative() {
		return fmt.Errorf("%w: min purchase must not be negative", ErrCouponInvalidInput)
	}
	if coupon.Expiry.IsZero() {
		return fmt.Errorf("%w: expiry is required", ErrCouponInvalidInput)
	}
	switch coupon.Status {
	case "", domain.CouponStatusActive, domain.CouponStatusInactive:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrCouponInvalidInput, coupon.Status)
	}
	return nil
}

func cleanList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func mapCouponRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCouponNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
		}
	}
	return err
}
