package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/repositories"
)

const (
	defaultCustomerPageSize = 20
	maxCustomerPageSize     = 100
)

// CustomerServiceDeps bundles collaborators required by the customer service.
type CustomerServiceDeps struct {
	Customers repositories.CustomerRepository
	Clock     func() time.Time
	Logger    LogFunc
}

type customerService struct {
	customers repositories.CustomerRepository
	clock     func() time.Time
	logger    LogFunc
}

// NewCustomerService wires dependencies into a concrete CustomerService.
func NewCustomerService(deps CustomerServiceDeps) (CustomerService, error) {
	if deps.Customers == nil {
		return nil, errors.New("customer service: customer repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLog
	}
	return &customerService{
		customers: deps.Customers,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *customerService) List(ctx context.Context, filter CustomerListFilter) (domain.CursorPage[domain.Customer], error) {
	size := filter.PageSize
	switch {
	case size <= 0:
		size = defaultCustomerPageSize
	case size > maxCustomerPageSize:
		size = maxCustomerPageSize
	}
	page, err := s.customers.List(ctx, domain.Pagination{
		PageSize:  size,
		PageToken: strings.TrimSpace(filter.PageToken),
	})
	if err != nil {
		return domain.CursorPage[domain.Customer]{}, mapCustomerError(err)
	}
	return page, nil
}

func (s *customerService) Get(ctx context.Context, phone string) (domain.Customer, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return domain.Customer{}, fmt.Errorf("%w: phone is required", ErrCustomerInvalidInput)
	}
	customer, err := s.customers.FindByPhone(ctx, phone)
	if err != nil {
		return domain.Customer{}, mapCustomerError(err)
	}
	return customer, nil
}

func (s *customerService) Update(ctx context.Context, cmd UpdateCustomerCommand) (domain.Customer, error) {
	phone := strings.TrimSpace(cmd.Phone)
	if phone == "" {
		return domain.Customer{}, fmt.Errorf("%w: phone is required", ErrCustomerInvalidInput)
	}
	fields, err := normalizeCustomerUpdate(cmd.Fields)
	if err != nil {
		return domain.Customer{}, err
	}
	if fields.Empty() {
		return domain.Customer{}, fmt.Errorf("%w: no fields to update", ErrCustomerInvalidInput)
	}
	if err := s.customers.Update(ctx, phone, fields, s.clock()); err != nil {
		return domain.Customer{}, mapCustomerError(err)
	}
	s.logger(ctx, "customer.updated", map[string]any{"phone": phone})
	return s.Get(ctx, phone)
}

func (s *customerService) Delete(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return fmt.Errorf("%w: phone is required", ErrCustomerInvalidInput)
	}
	if err := s.customers.Delete(ctx, phone); err != nil {
		return mapCustomerError(err)
	}
	s.logger(ctx, "customer.deleted", map[string]any{"phone": phone})
	return nil
}

func normalizeCustomerUpdate(fields domain.CustomerUpdate) (domain.CustomerUpdate, error) {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		out := strings.TrimSpace(*v)
		return &out
	}
	fields.Name = trim(fields.Name)
	fields.Address = trim(fields.Address)
	fields.CustomerID = trim(fields.CustomerID)
	fields.ReferralID = trim(fields.ReferralID)
	fields.MapLink = trim(fields.MapLink)

	if fields.Name != nil && *fields.Name == "" {
		return domain.CustomerUpdate{}, fmt.Errorf("%w: name must not be blank", ErrCustomerInvalidInput)
	}
	if fields.OrderCount != nil && *fields.OrderCount < 0 {
		return domain.CustomerUpdate{}, fmt.Errorf("%w: order count must not be negative", ErrCustomerInvalidInput)
	}
	if fields.MapLink != nil && *fields.MapLink != "" {
		u, err := url.Parse(*fields.MapLink)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return domain.CustomerUpdate{}, fmt.Errorf("%w: map link must be an absolute http(s) url", ErrCustomerInvalidInput)
		}
	}
	return fields, nil
}

func mapCustomerError(err error) error {
	return mapRepositoryError(err, ErrCustomerNotFound, ErrCustomerInvalidInput)
}
