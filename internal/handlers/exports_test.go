package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/habitus/orderdesk/internal/services"
)

type stubExportService struct {
	exportFn    func(context.Context, services.OrderListFilter) (services.ExportResult, error)
	customersFn func(context.Context) (services.ExportResult, error)
}

func (s *stubExportService) ExportCustomers(ctx context.Context) (services.ExportResult, error) {
	if s.customersFn != nil {
		return s.customersFn(ctx)
	}
	return services.ExportResult{}, errors.New("not implemented")
}

func (s *stubExportService) ExportOrders(ctx context.Context, filter services.OrderListFilter) (services.ExportResult, error) {
	if s.exportFn != nil {
		return s.exportFn(ctx, filter)
	}
	return services.ExportResult{}, errors.New("not implemented")
}

func TestExportHandlersExportOrders(t *testing.T) {
	var captured services.OrderListFilter
	svc := &stubExportService{
		exportFn: func(_ context.Context, filter services.OrderListFilter) (services.ExportResult, error) {
			captured = filter
			return services.ExportResult{Rows: 3, Range: "Orders!A2:J4", ExportedAt: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)}, nil
		},
	}
	router := chi.NewRouter()
	router.Route("/exports", NewExportHandlers(svc).Routes)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/exports/orders", strings.NewReader(`{"status":["delivered"]}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(captured.Status) != 1 || captured.Status[0] != "delivered" {
		t.Fatalf("unexpected filter %+v", captured)
	}
	if !strings.Contains(rr.Body.String(), `"rows":3`) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/exports/orders", nil))
	if rr.Code != http.StatusOK || len(captured.Status) != 0 {
		t.Fatalf("empty body must export everything, got %d %+v", rr.Code, captured)
	}
}

func TestExportHandlersNotConfigured(t *testing.T) {
	router := chi.NewRouter()
	router.Route("/exports", NewExportHandlers(&stubExportService{
		exportFn: func(context.Context, services.OrderListFilter) (services.ExportResult, error) {
			return services.ExportResult{}, services.ErrExportUnavailable
		},
	}).Routes)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/exports/orders", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestExportHandlersExportCustomers(t *testing.T) {
	calls := 0
	svc := &stubExportService{
		customersFn: func(context.Context) (services.ExportResult, error) {
			calls++
			switch calls {
			case 1:
				return services.ExportResult{Rows: 12, Range: "Customers!A1:G13", ExportedAt: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)}, nil
			case 2:
				return services.ExportResult{}, services.ErrExportUnavailable
			case 3:
				return services.ExportResult{}, services.ErrStoreUnavailable
			default:
				return services.ExportResult{}, errors.New("sheets: quota")
			}
		},
	}
	router := chi.NewRouter()
	router.Route("/exports", NewExportHandlers(svc).Routes)

	expect := []struct {
		status int
		body   string
	}{
		{http.StatusOK, `"range":"Customers!A1:G13"`},
		{http.StatusServiceUnavailable, `"export_unavailable"`},
		{http.StatusServiceUnavailable, `"customer_unavailable"`},
		{http.StatusBadGateway, `"export_failed"`},
	}
	for i, want := range expect {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/exports/customers", nil))
		if rr.Code != want.status || !strings.Contains(rr.Body.String(), want.body) {
			t.Fatalf("call %d: expected %d with %s, got %d: %s", i+1, want.status, want.body, rr.Code, rr.Body.String())
		}
	}
}
