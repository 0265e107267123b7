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

const (
	maxExportPages   = 50
	phoneMatchDigits = 10
)

// ExportServiceDeps bundles collaborators required by the export service.
type ExportServiceDeps struct {
	Orders         OrderService
	Customers      CustomerService
	Sheets         OrderSheetWriter
	CustomerSheets CustomerSheetWriter
	Clock          func() time.Time
	Logger         LogFunc
}

type exportService struct {
	orders         OrderService
	customers      CustomerService
	sheets         OrderSheetWriter
	customerSheets CustomerSheetWriter
	clock          func() time.Time
	logger         LogFunc
}

// NewExportService wires dependencies into a concrete ExportService. Nil sheet writers
// are accepted; the matching export then fails with ErrExportUnavailable.
func NewExportService(deps ExportServiceDeps) (ExportService, error) {
	if deps.Orders == nil {
		return nil, errors.New("export service: order service is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLog
	}
	return &exportService{
		orders:         deps.Orders,
		customers:      deps.Customers,
		sheets:         deps.Sheets,
		customerSheets: deps.CustomerSheets,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *exportService) ExportOrders(ctx context.Context, filter OrderListFilter) (ExportResult, error) {
	if s.sheets == nil {
		return ExportResult{}, ErrExportUnavailable
	}

	orders, err := s.collectOrders(ctx, filter, "export.orders.truncated")
	if err != nil {
		return ExportResult{}, err
	}

	updated, err := s.sheets.AppendOrders(ctx, orders)
	if err != nil {
		return ExportResult{}, fmt.Errorf("export: append rows: %w", err)
	}
	now := s.clock()
	s.logger(ctx, "export.orders.completed", map[string]any{
		"rows":  len(orders),
		"range": updated,
	})
	return ExportResult{Rows: len(orders), Range: updated, ExportedAt: now}, nil
}

// ExportCustomers joins every customer with the count and paid total of the orders placed
// from the same phone. Phones match on their last ten digits.
func (s *exportService) ExportCustomers(ctx context.Context) (ExportResult, error) {
	if s.customerSheets == nil || s.customers == nil {
		return ExportResult{}, ErrExportUnavailable
	}

	orders, err := s.collectOrders(ctx, OrderListFilter{}, "export.customers.orders_truncated")
	if err != nil {
		return ExportResult{}, err
	}
	type spend struct {
		count int
		total decimal.Decimal
	}
	byPhone := make(map[string]spend)
	for _, order := range orders {
		phone := matchPhone(order.Phone)
		if phone == "" {
			continue
		}
		agg := byPhone[phone]
		agg.count++
		agg.total = agg.total.Add(order.PaidAmount)
		byPhone[phone] = agg
	}

	var summaries []domain.CustomerSummary
	filter := CustomerListFilter{PageSize: maxCustomerPageSize}
	for page := 0; ; page++ {
		if page >= maxExportPages {
			s.logger(ctx, "export.customers.truncated", map[string]any{"rows": len(summaries)})
			break
		}
		result, err := s.customers.List(ctx, filter)
		if err != nil {
			return ExportResult{}, err
		}
		for _, customer := range result.Items {
			agg := byPhone[matchPhone(customer.Phone)]
			summaries = append(summaries, domain.CustomerSummary{
				Customer:   customer,
				Orders:     agg.count,
				TotalSpent: agg.total,
			})
		}
		if result.NextPageToken == "" {
			break
		}
		filter.PageToken = result.NextPageToken
	}

	updated, err := s.customerSheets.ReplaceCustomers(ctx, summaries)
	if err != nil {
		return ExportResult{}, fmt.Errorf("export: write customers: %w", err)
	}
	now := s.clock()
	s.logger(ctx, "export.customers.completed", map[string]any{
		"rows":  len(summaries),
		"range": updated,
	})
	return ExportResult{Rows: len(summaries), Range: updated, ExportedAt: now}, nil
}

func (s *exportService) collectOrders(ctx context.Context, filter OrderListFilter, truncatedEvent string) ([]domain.Order, error) {
	filter.PageSize = maxOrderPageSize
	var orders []domain.Order
	for page := 0; ; page++ {
		if page >= maxExportPages {
			s.logger(ctx, truncatedEvent, map[string]any{"rows": len(orders)})
			return orders, nil
		}
		result, err := s.orders.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		orders = append(orders, result.Items...)
		if result.NextPageToken == "" {
			return orders, nil
		}
		filter.PageToken = result.NextPageToken
	}
}

// matchPhone keeps the trailing national digits so +91 and 0 prefixed numbers collide.
func matchPhone(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if len(digits) > phoneMatchDigits {
		digits = digits[len(digits)-phoneMatchDigits:]
	}
	return digits
}
