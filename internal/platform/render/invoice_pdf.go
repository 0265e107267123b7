package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/services"
)

const (
	pageMargin   = 12.0
	rowHeight    = 8.0
	customerTail = 6
	dateLayout   = "02 Jan 2006"
)

var (
	headerFill = [3]int{26, 162, 72}
	totalFill  = [3]int{255, 252, 2}
	columns    = []column{
		{title: "#", width: 10, align: "C"},
		{title: "Description", width: 86, align: "L"},
		{title: "Quantity (No./Grams)", width: 34, align: "C"},
		{title: "Rate (%s)", width: 28, align: "R"},
		{title: "Total (%s)", width: 28, align: "R"},
	}
)

type column struct {
	title string
	width float64
	align string
}

// Options configure invoice presentation.
type Options struct {
	Brand         string
	CurrencyLabel string
	Locale        string
}

// InvoicePDF renders invoices as A4 PDFs.
type InvoicePDF struct {
	opts   Options
	format Formatter
}

// NewInvoicePDF constructs the renderer. Empty options use the HabitUs defaults.
func NewInvoicePDF(opts Options) *InvoicePDF {
	if strings.TrimSpace(opts.Brand) == "" {
		opts.Brand = "HabitUs"
	}
	if strings.TrimSpace(opts.CurrencyLabel) == "" {
		opts.CurrencyLabel = "Rs"
	}
	if strings.TrimSpace(opts.Locale) == "" {
		opts.Locale = "en-IN"
	}
	return &InvoicePDF{opts: opts, format: NewFormatter(opts.Locale)}
}

var _ services.InvoiceRenderer = (*InvoicePDF)(nil)

// Render lays out doc and returns the PDF bytes.
func (r *InvoicePDF) Render(ctx context.Context, doc services.InvoiceDocument) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pdf := r.build(doc)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", doc.Invoice.OrderID, err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", doc.Invoice.OrderID, err)
	}
	if buf.Len() == 0 {
		return nil, errors.New("render invoice: empty document")
	}
	return buf.Bytes(), nil
}

func (r *InvoicePDF) build(doc services.InvoiceDocument) *fpdf.Fpdf {
	inv := doc.Invoice
	order := doc.Order

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetCreator(r.opts.Brand, true)
	pdf.SetTitle("Invoice "+inv.OrderID, true)
	if !inv.IssuedAt.IsZero() {
		pdf.SetCreationDate(inv.IssuedAt)
	}
	pdf.SetCatalogSort(true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(r.format.Text(s)) }

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, text(r.opts.Brand), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 13)
	pdf.CellFormat(0, 7, "Order Invoice", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	name, phone := order.Recipient()
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, "Invoice To:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, text(name), "", 1, "L", false, 0, "")
	if addr := text(order.Address); addr != "" {
		pdf.MultiCell(100, 5, addr, "", "L", false)
	}
	pdf.CellFormat(0, 5, text(phone), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	meta := [][2]string{
		{"Order ID", inv.OrderID},
		{"Total Bill", r.money(inv.FinalTotal)},
		{"Payment Mode", firstNonEmpty(order.PaymentMode, "-")},
		{"Customer ID", lastN(order.CustomerID, customerTail)},
		{"Date", inv.IssuedAt.Format(dateLayout)},
	}
	for _, kv := range meta {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(32, 5, kv[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 5, text(kv[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	r.tableHeader(pdf)
	pdf.SetFont("Helvetica", "", 10)
	for i, item := range inv.Items {
		r.ensureRoom(pdf, rowHeight, true)
		cells := []string{
			fmt.Sprint(i + 1),
			tr(r.format.Title(item.Description)),
			r.format.Quantity(item.Quantity),
			r.format.Amount(item.UnitRate),
			r.format.Amount(item.LineTotal()),
		}
		for j, c := range columns {
			pdf.CellFormat(c.width, rowHeight, cells[j], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(3)

	labelWidth := columns[0].width + columns[1].width + columns[2].width + columns[3].width
	amountWidth := columns[4].width
	summary := func(label, amount string, bold, fill bool) {
		r.ensureRoom(pdf, rowHeight, false)
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		if fill {
			pdf.SetFillColor(totalFill[0], totalFill[1], totalFill[2])
		}
		pdf.CellFormat(labelWidth, rowHeight, label, "", 0, "R", fill, 0, "")
		pdf.CellFormat(amountWidth, rowHeight, amount, "", 1, "R", fill, 0, "")
	}

	summary("Subtotal", r.format.Amount(inv.Subtotal), true, false)
	for _, charge := range inv.Charges {
		amount := r.format.Amount(charge.Amount)
		if charge.Kind() != domain.ChargeKindAdditive {
			amount = "- " + amount
		}
		summary(text(charge.Label), amount, false, false)
	}
	summary(fmt.Sprintf("Total (%s)", r.opts.CurrencyLabel), r.format.Amount(inv.FinalTotal), true, true)

	return pdf
}

func (r *InvoicePDF) tableHeader(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(headerFill[0], headerFill[1], headerFill[2])
	pdf.SetTextColor(255, 255, 255)
	for _, c := range columns {
		title := c.title
		if strings.Contains(title, "%s") {
			title = fmt.Sprintf(title, r.opts.CurrencyLabel)
		}
		pdf.CellFormat(c.width, rowHeight, title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 10)
}

// ensureRoom starts a new page when h does not fit; table pages repeat the header.
func (r *InvoicePDF) ensureRoom(pdf *fpdf.Fpdf, h float64, repeatHeader bool) {
	_, pageHeight := pdf.GetPageSize()
	if pdf.GetY()+h <= pageHeight-pageMargin {
		return
	}
	pdf.AddPage()
	if repeatHeader {
		r.tableHeader(pdf)
	}
}

func (r *InvoicePDF) money(v decimal.Decimal) string {
	return r.opts.CurrencyLabel + " " + r.format.Amount(v)
}

func lastN(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[len(runes)-n:])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
