package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/platform/auth"
	"github.com/habitus/orderdesk/internal/platform/httpx"
	"github.com/habitus/orderdesk/internal/services"
)

const (
	headerInvoiceUploadStatus = "X-Invoice-Upload-Status"
	headerInvoiceError        = "X-Invoice-Error"
	headerInvoiceURL          = "X-Invoice-Url"
	headerInvoiceShareLink    = "X-Invoice-Share-Link"
	headerInvoiceTotal        = "X-Invoice-Total"
)

type lineItemPayload struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitRate    decimal.Decimal `json:"unitRate"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

type chargePayload struct {
	Label  string          `json:"label"`
	Kind   string          `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
}

type couponResultPayload struct {
	Code    string          `json:"code"`
	Applied bool            `json:"applied"`
	Amount  decimal.Decimal `json:"amount"`
	Label   string          `json:"label,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

type invoicePreviewResponse struct {
	OrderID     string               `json:"orderId"`
	OrderStatus string               `json:"orderStatus"`
	Items       []lineItemPayload    `json:"items"`
	Charges     []chargePayload      `json:"charges"`
	Subtotal    decimal.Decimal      `json:"subtotal"`
	FinalTotal  decimal.Decimal      `json:"finalTotal"`
	IssuedAt    string               `json:"issuedAt"`
	Coupon      *couponResultPayload `json:"coupon,omitempty"`
}

func (h *OrderHandlers) previewInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.invoices == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invoice_service_unavailable", "invoice service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, ok := orderIDParam(ctx, w, r)
	if !ok {
		return
	}
	preview, err := h.invoices.Preview(ctx, services.PreviewInvoiceCommand{
		OrderID:    orderID,
		CouponCode: couponOverride(r),
	})
	if err != nil {
		writeInvoiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildInvoicePreviewResponse(preview))
}

// generateInvoice streams the rendered PDF. Upload and write-back failures do not withhold
// the document; they are surfaced through response headers instead.
func (h *OrderHandlers) generateInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.invoices == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invoice_service_unavailable", "invoice service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, ok := orderIDParam(ctx, w, r)
	if !ok {
		return
	}
	result, err := h.invoices.Generate(ctx, services.GenerateInvoiceCommand{
		OrderID:    orderID,
		CouponCode: couponOverride(r),
		Actor:      auth.Actor(ctx, h.defaultActor),
	})
	if err != nil && len(result.Document) == 0 {
		writeInvoiceError(ctx, w, err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "application/pdf")
	header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	header.Set("Content-Length", strconv.Itoa(len(result.Document)))
	header.Set(headerInvoiceTotal, result.Invoice.FinalTotal.StringFixed(2))
	if err != nil {
		header.Set(headerInvoiceUploadStatus, "failed")
		header.Set(headerInvoiceError, invoiceErrorCode(err))
	} else {
		header.Set(headerInvoiceUploadStatus, "stored")
		header.Set(headerInvoiceURL, result.URL)
		if result.ShareLink != "" {
			header.Set(headerInvoiceShareLink, result.ShareLink)
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Document)
}

func couponOverride(r *http.Request) *string {
	values := r.URL.Query()
	if _, ok := values["coupon"]; !ok {
		return nil
	}
	code := values.Get("coupon")
	return &code
}

func buildInvoicePreviewResponse(preview services.InvoicePreview) invoicePreviewResponse {
	inv := preview.Invoice
	resp := invoicePreviewResponse{
		OrderID:     inv.OrderID,
		OrderStatus: string(inv.OrderStatus),
		Items:       make([]lineItemPayload, 0, len(inv.Items)),
		Charges:     make([]chargePayload, 0, len(inv.Charges)),
		Subtotal:    inv.Subtotal,
		FinalTotal:  inv.FinalTotal,
		IssuedAt:    formatTime(inv.IssuedAt),
	}
	for _, item := range inv.Items {
		resp.Items = append(resp.Items, lineItemPayload{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitRate:    item.UnitRate,
			LineTotal:   item.LineTotal(),
		})
	}
	for _, charge := range inv.Charges {
		resp.Charges = append(resp.Charges, buildChargePayload(charge))
	}
	if preview.Coupon.Code != "" {
		resp.Coupon = buildCouponResultPayload(preview.Coupon)
	}
	return resp
}

func buildChargePayload(charge domain.Charge) chargePayload {
	return chargePayload{
		Label:  charge.Label,
		Kind:   string(charge.Kind()),
		Amount: charge.Amount,
	}
}

func buildCouponResultPayload(result services.CouponResult) *couponResultPayload {
	return &couponResultPayload{
		Code:    result.Code,
		Applied: result.Applied,
		Amount:  result.Amount,
		Label:   result.Label,
		Reason:  string(result.Reason),
	}
}

func invoiceErrorCode(err error) string {
	switch {
	case errors.Is(err, services.ErrInvoiceArtifactUpload):
		return "invoice_artifact_upload_failed"
	case errors.Is(err, services.ErrInvoiceWriteBack):
		return "invoice_writeback_failed"
	case errors.Is(err, services.ErrInvoiceRender):
		return "invoice_render_failed"
	default:
		return "invoice_error"
	}
}

func writeInvoiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvoiceInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invoice_invalid_input", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrInvoiceRender):
		httpx.WriteError(ctx, w, httpx.NewError("invoice_render_failed", "failed to render invoice", http.StatusInternalServerError))
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invoice_invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("invoice_order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("invoice_order_unavailable", "order storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invoice_error", "failed to process invoice request", http.StatusInternalServerError))
	}
}
