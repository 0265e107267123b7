package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/habitus/orderdesk/internal/platform/httpx"
	"github.com/habitus/orderdesk/internal/services"
)

// ExportHandlers triggers spreadsheet exports.
type ExportHandlers struct {
	exports services.ExportService
}

// NewExportHandlers constructs export handlers.
func NewExportHandlers(exports services.ExportService) *ExportHandlers {
	return &ExportHandlers{exports: exports}
}

// Routes registers the /exports endpoints.
func (h *ExportHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/orders", h.exportOrders)
	r.Post("/customers", h.exportCustomers)
}

type exportOrdersRequest struct {
	Status []string `json:"status"`
}

type exportResponse struct {
	Rows       int    `json:"rows"`
	Range      string `json:"range"`
	ExportedAt string `json:"exportedAt"`
}

func (h *ExportHandlers) exportOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.exports == nil {
		httpx.WriteError(ctx, w, httpx.NewError("export_unavailable", "export service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req exportOrdersRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			writeDecodeError(ctx, w, err)
			return
		}
	}

	result, err := h.exports.ExportOrders(ctx, services.OrderListFilter{Status: req.Status})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrExportUnavailable):
			httpx.WriteError(ctx, w, httpx.NewError("export_unavailable", "spreadsheet export is not configured", http.StatusServiceUnavailable))
		case errors.Is(err, services.ErrOrderInvalidInput), errors.Is(err, services.ErrOrderUnavailable):
			writeOrderError(ctx, w, err)
		default:
			httpx.WriteError(ctx, w, httpx.NewError("export_failed", "failed to export orders", http.StatusBadGateway))
		}
		return
	}
	writeExportResult(w, result)
}

func (h *ExportHandlers) exportCustomers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.exports == nil {
		httpx.WriteError(ctx, w, httpx.NewError("export_unavailable", "export service unavailable", http.StatusServiceUnavailable))
		return
	}

	result, err := h.exports.ExportCustomers(ctx)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrExportUnavailable):
			httpx.WriteError(ctx, w, httpx.NewError("export_unavailable", "spreadsheet export is not configured", http.StatusServiceUnavailable))
		case errors.Is(err, services.ErrOrderInvalidInput), errors.Is(err, services.ErrOrderUnavailable):
			writeOrderError(ctx, w, err)
		case errors.Is(err, services.ErrStoreUnavailable):
			httpx.WriteError(ctx, w, httpx.NewError("customer_unavailable", "customer storage unavailable", http.StatusServiceUnavailable))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("export_failed", "failed to export customers", http.StatusBadGateway))
		}
		return
	}
	writeExportResult(w, result)
}

func writeExportResult(w http.ResponseWriter, result services.ExportResult) {
	httpx.WriteJSON(w, http.StatusOK, exportResponse{
		Rows:       result.Rows,
		Range:      result.Range,
		ExportedAt: formatTime(result.ExportedAt),
	})
}
