package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/platform/httpx"
	"github.com/habitus/orderdesk/internal/platform/pagination"
	"github.com/habitus/orderdesk/internal/services"
)

// CustomerHandlers exposes customer profiles to staff.
type CustomerHandlers struct {
	customers services.CustomerService
	admin     func(http.Handler) http.Handler
}

// NewCustomerHandlers constructs customer handlers. admin, when set, guards deletes.
func NewCustomerHandlers(customers services.CustomerService, admin func(http.Handler) http.Handler) *CustomerHandlers {
	return &CustomerHandlers{customers: customers, admin: admin}
}

// Routes registers the /customers endpoints.
func (h *CustomerHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listCustomers)
	r.Get("/{phone}", h.getCustomer)
	r.Patch("/{phone}", h.updateCustomer)

	r.Group(func(admin chi.Router) {
		if h.admin != nil {
			admin.Use(h.admin)
		}
		admin.Delete("/{phone}", h.deleteCustomer)
	})
}

type customerPayload struct {
	Phone      string `json:"phone"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	OrderCount int    `json:"orderCount"`
	CustomerID string `json:"customerId"`
	ReferralID string `json:"referralId"`
	MapLink    string `json:"mapLink"`
	CreatedAt  string `json:"createdAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

type customerListResponse struct {
	Items         []customerPayload `json:"items"`
	NextPageToken string            `json:"nextPageToken,omitempty"`
}

type updateCustomerRequest struct {
	Name       *string `json:"name"`
	Address    *string `json:"address"`
	OrderCount *int    `json:"orderCount"`
	CustomerID *string `json:"customerId"`
	ReferralID *string `json:"referralId"`
	MapLink    *string `json:"mapLink"`
}

func (h *CustomerHandlers) listCustomers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeCustomerUnavailable(ctx, w)
		return
	}
	params, err := pagination.FromRequest(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	page, err := h.customers.List(ctx, services.CustomerListFilter{
		PageSize:  params.PageSize,
		PageToken: params.PageToken,
	})
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	resp := customerListResponse{
		Items:         make([]customerPayload, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, c := range page.Items {
		resp.Items = append(resp.Items, buildCustomerPayload(c))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *CustomerHandlers) getCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeCustomerUnavailable(ctx, w)
		return
	}
	customer, err := h.customers.Get(ctx, chi.URLParam(r, "phone"))
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCustomerPayload(customer))
}

func (h *CustomerHandlers) updateCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeCustomerUnavailable(ctx, w)
		return
	}
	var req updateCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	customer, err := h.customers.Update(ctx, services.UpdateCustomerCommand{
		Phone: chi.URLParam(r, "phone"),
		Fields: domain.CustomerUpdate{
			Name:       req.Name,
			Address:    req.Address,
			OrderCount: req.OrderCount,
			CustomerID: req.CustomerID,
			ReferralID: req.ReferralID,
			MapLink:    req.MapLink,
		},
	})
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCustomerPayload(customer))
}

func (h *CustomerHandlers) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		writeCustomerUnavailable(ctx, w)
		return
	}
	if err := h.customers.Delete(ctx, chi.URLParam(r, "phone")); err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildCustomerPayload(c domain.Customer) customerPayload {
	return customerPayload{
		Phone:      c.Phone,
		Name:       c.Name,
		Address:    c.Address,
		OrderCount: c.OrderCount,
		CustomerID: c.CustomerID,
		ReferralID: c.ReferralID,
		MapLink:    c.MapLink,
		CreatedAt:  formatTime(c.CreatedAt),
		UpdatedAt:  formatTime(c.UpdatedAt),
	}
}

func writeCustomerUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("customer_service_unavailable", "customer service unavailable", http.StatusServiceUnavailable))
}

func writeCustomerError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCustomerInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCustomerNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("customer_not_found", "customer not found", http.StatusNotFound))
	case errors.Is(err, services.ErrStoreUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("customer_unavailable", "customer storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("customer_error", "failed to process customer request", http.StatusInternalServerError))
	}
}
