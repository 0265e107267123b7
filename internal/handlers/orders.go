package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/platform/auth"
	"github.com/habitus/orderdesk/internal/platform/httpx"
	"github.com/habitus/orderdesk/internal/platform/pagination"
	"github.com/habitus/orderdesk/internal/services"
)

// OrderHandlerDeps wires the services behind the /orders routes.
type OrderHandlerDeps struct {
	Orders       services.OrderService
	Lifecycle    services.OrderLifecycleService
	Invoices     services.InvoiceService
	DefaultActor string
	// AdminMiddleware guards destructive routes. Nil leaves them open to every staff role.
	AdminMiddleware func(http.Handler) http.Handler
}

// OrderHandlers exposes order management, status transitions and invoices to staff.
type OrderHandlers struct {
	orders       services.OrderService
	lifecycle    services.OrderLifecycleService
	invoices     services.InvoiceService
	defaultActor string
	admin        func(http.Handler) http.Handler
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(deps OrderHandlerDeps) *OrderHandlers {
	actor := strings.TrimSpace(deps.DefaultActor)
	if actor == "" {
		actor = services.DefaultActor
	}
	return &OrderHandlers{
		orders:       deps.Orders,
		lifecycle:    deps.Lifecycle,
		invoices:     deps.Invoices,
		defaultActor: actor,
		admin:        deps.AdminMiddleware,
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listOrders)
	r.Post("/", h.createOrder)
	r.Get("/{orderID}", h.getOrder)
	r.Patch("/{orderID}", h.updateFinancials)
	r.Post("/{orderID}:transition", h.transition)
	r.Get("/{orderID}/history", h.history)
	r.Get("/{orderID}/invoice:preview", h.previewInvoice)
	r.Post("/{orderID}/invoice", h.generateInvoice)

	r.Group(func(admin chi.Router) {
		if h.admin != nil {
			admin.Use(h.admin)
		}
		admin.Delete("/{orderID}", h.deleteOrder)
	})
}

type orderProductPayload struct {
	Name     string          `json:"name"`
	Weight   string          `json:"weight,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type statusEntryPayload struct {
	Status    string `json:"status"`
	UpdatedAt string `json:"updatedAt"`
	UpdatedBy string `json:"updatedBy"`
}

type orderPayload struct {
	ID                string                `json:"id"`
	Status            string                `json:"status"`
	StatusHistory     []statusEntryPayload  `json:"statusHistory"`
	Products          []orderProductPayload `json:"productList"`
	PaidAmount        decimal.Decimal       `json:"paidAmount"`
	DeliveryCharges   decimal.Decimal       `json:"deliveryCharges"`
	TotalDiscount     decimal.Decimal       `json:"totalDiscount"`
	CouponCode        string                `json:"couponCode,omitempty"`
	Phone             string                `json:"phone"`
	CustomerID        string                `json:"customerId,omitempty"`
	CustomerName      string                `json:"customerName"`
	Address           string                `json:"address"`
	AddressType       string                `json:"addressType"`
	FriendFamilyName  string                `json:"friendFamilyName,omitempty"`
	FriendFamilyPhone string                `json:"friendFamilyPhone,omitempty"`
	PaymentMode       string                `json:"paymentMode,omitempty"`
	GroceryListImage  string                `json:"groceryListImage,omitempty"`
	OrderBillURL      string                `json:"orderBillUrl,omitempty"`
	CreatedAt         string                `json:"createdAt"`
}

type orderListResponse struct {
	Items         []orderPayload `json:"items"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

type createOrderRequest struct {
	Products          []orderProductPayload `json:"productList"`
	Phone             string                `json:"phone"`
	CustomerID        string                `json:"customerId"`
	CustomerName      string                `json:"customerName"`
	Address           string                `json:"address"`
	AddressType       string                `json:"addressType"`
	FriendFamilyName  string                `json:"friendFamilyName"`
	FriendFamilyPhone string                `json:"friendFamilyPhone"`
	PaymentMode       string                `json:"paymentMode"`
	PaidAmount        decimal.Decimal       `json:"paidAmount"`
	DeliveryCharges   decimal.Decimal       `json:"deliveryCharges"`
	TotalDiscount     decimal.Decimal       `json:"totalDiscount"`
	CouponCode        string                `json:"couponCode"`
	GroceryListImage  string                `json:"groceryListImage"`
}

type updateFinancialsRequest struct {
	PaidAmount      *decimal.Decimal `json:"paidAmount"`
	DeliveryCharges *decimal.Decimal `json:"deliveryCharges"`
	TotalDiscount   *decimal.Decimal `json:"totalDiscount"`
	CouponCode      *string          `json:"couponCode"`
}

type transitionRequest struct {
	Status string `json:"status"`
	Actor  string `json:"actor"`
}

type transitionResponse struct {
	OrderID        string             `json:"orderId"`
	PreviousStatus string             `json:"previousStatus"`
	Status         string             `json:"status"`
	Entry          statusEntryPayload `json:"entry"`
}

type historyResponse struct {
	OrderID string               `json:"orderId"`
	Items   []statusEntryPayload `json:"items"`
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	params, err := pagination.FromRequest(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.orders.List(ctx, services.OrderListFilter{
		Status:    params.Status,
		PageSize:  params.PageSize,
		PageToken: params.PageToken,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	resp := orderListResponse{
		Items:         make([]orderPayload, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, order := range page.Items {
		resp.Items = append(resp.Items, buildOrderPayload(order))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}

	cmd := services.CreateOrderCommand{
		Phone:             req.Phone,
		CustomerID:        req.CustomerID,
		CustomerName:      req.CustomerName,
		Address:           req.Address,
		AddressType:       domain.AddressType(strings.TrimSpace(req.AddressType)),
		FriendFamilyName:  req.FriendFamilyName,
		FriendFamilyPhone: req.FriendFamilyPhone,
		PaymentMode:       req.PaymentMode,
		PaidAmount:        req.PaidAmount,
		DeliveryCharges:   req.DeliveryCharges,
		TotalDiscount:     req.TotalDiscount,
		CouponCode:        req.CouponCode,
		GroceryImagePath:  req.GroceryListImage,
		Actor:             auth.Actor(ctx, h.defaultActor),
	}
	for _, p := range req.Products {
		cmd.Products = append(cmd.Products, services.CreateOrderProduct{
			Name:     p.Name,
			Weight:   p.Weight,
			Quantity: p.Quantity,
			Price:    p.Price,
		})
	}

	order, err := h.orders.Create(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/orders/"+order.ID)
	httpx.WriteJSON(w, http.StatusCreated, buildOrderPayload(order))
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, ok := orderIDParam(ctx, w, r)
	if !ok {
		return
	}
	order, err := h.orders.Get(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) updateFinancials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, ok := orderIDParam(ctx, w, r)
	if !ok {
		return
	}
	var req updateFinancialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}

	order, err := h.orders.UpdateFinancials(ctx, services.UpdateFinancialsCommand{
		OrderID: orderID,
		Fields: domain.OrderFinancials{
			PaidAmount:      req.PaidAmount,
			DeliveryCharges: req.DeliveryCharges,
			TotalDiscount:   req.TotalDiscount,
			CouponCode:      req.CouponCode,
		},
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, ok := orderIDParam(ctx, w, r)
	if !ok {
		return
	}
	if err := h.orders.Delete(ctx, services.DeleteOrderCommand{
		OrderID: orderID,
		Actor:   auth.Actor(ctx, h.defaultActor),
	}); err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandlers) transition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.lifecycle == nil {
		httpx.WriteError(ctx, w, httpx.NewError("lifecycle_service_unavailable", "order lifecycle service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, ok := orderIDParam(ctx, w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}

	actor := resolveActor(ctx, req.Actor, h.defaultActor)
	result, err := h.lifecycle.Transition(ctx, services.TransitionCommand{
		OrderID: orderID,
		Status:  req.Status,
		Actor:   actor,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, transitionResponse{
		OrderID:        result.OrderID,
		PreviousStatus: string(result.PreviousStatus),
		Status:         string(result.Status),
		Entry:          buildStatusEntryPayload(result.Entry),
	})
}

func (h *OrderHandlers) history(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.lifecycle == nil {
		httpx.WriteError(ctx, w, httpx.NewError("lifecycle_service_unavailable", "order lifecycle service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, ok := orderIDParam(ctx, w, r)
	if !ok {
		return
	}
	entries, err := h.lifecycle.History(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	resp := historyResponse{OrderID: orderID, Items: make([]statusEntryPayload, 0, len(entries))}
	for _, entry := range entries {
		resp.Items = append(resp.Items, buildStatusEntryPayload(entry))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// resolveActor prefers the authenticated staff identity. The body actor is only honoured
// for unauthenticated calls.
func resolveActor(ctx context.Context, requested, fallback string) string {
	if _, ok := auth.IdentityFromContext(ctx); ok {
		return auth.Actor(ctx, fallback)
	}
	if requested = strings.TrimSpace(requested); requested != "" {
		return requested
	}
	return fallback
}

func orderIDParam(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, bool) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return "", false
	}
	return orderID, true
}

func buildOrderPayload(order domain.Order) orderPayload {
	payload := orderPayload{
		ID:                order.ID,
		Status:            string(order.Status),
		StatusHistory:     make([]statusEntryPayload, 0, len(order.StatusHistory)),
		Products:          make([]orderProductPayload, 0, len(order.Products)),
		PaidAmount:        order.PaidAmount,
		DeliveryCharges:   order.DeliveryCharges,
		TotalDiscount:     order.TotalDiscount,
		CouponCode:        order.CouponCode,
		Phone:             order.Phone,
		CustomerID:        order.CustomerID,
		CustomerName:      order.CustomerName,
		Address:           order.Address,
		AddressType:       string(order.AddressType),
		FriendFamilyName:  order.FriendFamilyName,
		FriendFamilyPhone: order.FriendFamilyPhone,
		PaymentMode:       order.PaymentMode,
		GroceryListImage:  order.GroceryImagePath,
		OrderBillURL:      order.OrderBillURL,
		CreatedAt:         formatTime(order.CreatedAt),
	}
	for _, entry := range order.StatusHistory {
		payload.StatusHistory = append(payload.StatusHistory, buildStatusEntryPayload(entry))
	}
	for _, p := range order.Products {
		payload.Products = append(payload.Products, orderProductPayload{
			Name:     p.Name,
			Weight:   p.Weight,
			Quantity: p.Quantity,
			Price:    p.Price,
		})
	}
	return payload
}

func buildStatusEntryPayload(entry domain.StatusHistoryEntry) statusEntryPayload {
	return statusEntryPayload{
		Status:    string(entry.Status),
		UpdatedAt: formatTime(entry.UpdatedAt),
		UpdatedBy: entry.UpdatedBy,
	}
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339Nano)
}

func writeDecodeError(ctx context.Context, w http.ResponseWriter, err error) {
	var httpErr httpx.Error
	if errors.As(err, &httpErr) {
		httpx.WriteError(ctx, w, httpErr)
		return
	}
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid request body", http.StatusBadRequest))
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("order_unavailable", "order storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}
