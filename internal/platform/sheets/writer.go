package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/services"
)

// Header is the first row expected on the export sheet.
var Header = []any{"Order ID", "Created At", "Customer", "Phone", "Status", "Items", "Paid", "Delivery", "Discount", "Bill URL"}

// CustomerHeader is the first row written to the customer report.
var CustomerHeader = []any{"Name", "Customer ID", "Phone", "Referral ID", "Order Count", "Total Spent", "Map Location"}

const defaultCustomersRange = "Customers!A1"

// appendFunc appends rows below the table found at rng and returns the updated range.
type appendFunc func(ctx context.Context, spreadsheetID, rng string, rows [][]any) (string, error)

// replaceFunc clears the tab holding rng and writes rows starting at rng.
type replaceFunc func(ctx context.Context, spreadsheetID, rng string, rows [][]any) (string, error)

// Writer appends order rows and rewrites the customer report on a Google Sheet. Values
// only; formatting is left to the sheet.
type Writer struct {
	spreadsheetID  string
	rng            string
	customersRange string
	location       *time.Location
	append         appendFunc
	replace        replaceFunc
}

// NewWriter builds a Writer authenticated with a service account JSON key. rng receives
// appended orders and customersRange the customer report.
func NewWriter(ctx context.Context, spreadsheetID, rng, customersRange, credentialsJSON string, opts ...option.ClientOption) (*Writer, error) {
	if strings.TrimSpace(credentialsJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	svc, err := gsheets.NewService(ctx, append(opts, option.WithScopes(gsheets.SpreadsheetsScope))...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	w, err := newWriter(spreadsheetID, rng, func(ctx context.Context, id, rng string, rows [][]any) (string, error) {
		resp, err := svc.Spreadsheets.Values.Append(id, rng, &gsheets.ValueRange{Values: rows}).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		if err != nil {
			return "", err
		}
		if resp.Updates == nil {
			return "", nil
		}
		return resp.Updates.UpdatedRange, nil
	})
	if err != nil {
		return nil, err
	}
	return w.withCustomers(customersRange, func(ctx context.Context, id, rng string, rows [][]any) (string, error) {
		if _, err := svc.Spreadsheets.Values.Clear(id, sheetName(rng), &gsheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("clear: %w", err)
		}
		resp, err := svc.Spreadsheets.Values.Update(id, rng, &gsheets.ValueRange{Values: rows}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return "", err
		}
		return resp.UpdatedRange, nil
	}), nil
}

func newWriter(spreadsheetID, rng string, fn appendFunc) (*Writer, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	if strings.TrimSpace(rng) == "" {
		rng = "Orders!A1"
	}
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.UTC
	}
	return &Writer{spreadsheetID: spreadsheetID, rng: rng, customersRange: defaultCustomersRange, location: loc, append: fn}, nil
}

func (w *Writer) withCustomers(rng string, fn replaceFunc) *Writer {
	if rng = strings.TrimSpace(rng); rng != "" {
		w.customersRange = rng
	}
	w.replace = fn
	return w
}

var (
	_ services.OrderSheetWriter    = (*Writer)(nil)
	_ services.CustomerSheetWriter = (*Writer)(nil)
)

// AppendOrders writes one row per order in the given order.
func (w *Writer) AppendOrders(ctx context.Context, orders []domain.Order) (string, error) {
	if len(orders) == 0 {
		return "", nil
	}
	rows := make([][]any, 0, len(orders))
	for _, order := range orders {
		rows = append(rows, w.row(order))
	}
	updated, err := w.append(ctx, w.spreadsheetID, w.rng, rows)
	if err != nil {
		return "", fmt.Errorf("sheets: append %d rows: %w", len(rows), err)
	}
	return updated, nil
}

func (w *Writer) row(order domain.Order) []any {
	created := ""
	if !order.CreatedAt.IsZero() {
		created = order.CreatedAt.In(w.location).Format("2006-01-02 15:04")
	}
	return []any{
		order.ID,
		created,
		order.CustomerName,
		order.Phone,
		string(order.Status),
		len(order.Products),
		order.PaidAmount.StringFixed(2),
		order.DeliveryCharges.StringFixed(2),
		order.TotalDiscount.StringFixed(2),
		order.OrderBillURL,
	}
}

// ReplaceCustomers rewrites the customer report: header first, then one row per customer.
func (w *Writer) ReplaceCustomers(ctx context.Context, customers []domain.CustomerSummary) (string, error) {
	if w.replace == nil {
		return "", errors.New("sheets: customer report not configured")
	}
	rows := make([][]any, 0, len(customers)+1)
	rows = append(rows, CustomerHeader)
	for _, c := range customers {
		rows = append(rows, customerRow(c))
	}
	updated, err := w.replace(ctx, w.spreadsheetID, w.customersRange, rows)
	if err != nil {
		return "", fmt.Errorf("sheets: replace %d customer rows: %w", len(customers), err)
	}
	return updated, nil
}

func customerRow(c domain.CustomerSummary) []any {
	return []any{
		orDefault(c.Name, "Unknown"),
		orDefault(c.CustomerID, "—"),
		orDefault(c.Phone, "N/A"),
		orDefault(c.ReferralID, "—"),
		c.Orders,
		"₹" + c.TotalSpent.StringFixed(2),
		c.MapLink,
	}
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

// sheetName returns the tab part of an A1 range such as "Customers!A1".
func sheetName(rng string) string {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		return rng[:i]
	}
	return rng
}
