package notify

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/platform/render"
	"github.com/habitus/orderdesk/internal/services"
)

const whatsappSendURL = "https://web.whatsapp.com/send"

// ErrNoPhone is returned when an order has no usable phone number.
var ErrNoPhone = errors.New("notify: order has no phone number")

// WhatsAppLinks builds click-to-chat links carrying customer messages.
type WhatsAppLinks struct {
	countryCode string
	brand       string
	currency    string
	format      render.Formatter
}

// NewWhatsAppLinks constructs the builder. countryCode is digits only, e.g. "91".
func NewWhatsAppLinks(countryCode, brand, currencySymbol, locale string) *WhatsAppLinks {
	return &WhatsAppLinks{
		countryCode: digits(countryCode),
		brand:       strings.TrimSpace(brand),
		currency:    currencySymbol,
		format:      render.NewFormatter(locale),
	}
}

var _ services.MessageLinkBuilder = (*WhatsAppLinks)(nil)

// ReceiptLink builds the receipt message sent once the invoice is uploaded.
func (w *WhatsAppLinks) ReceiptLink(order domain.Order, total decimal.Decimal, billURL string) (string, error) {
	phone := w.phone(order.Phone)
	if phone == "" {
		return "", ErrNoPhone
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hello *%s*,\n\n", strings.TrimSpace(order.CustomerName))
	b.WriteString("Here is your Order receipt!\n\n")
	fmt.Fprintf(&b, "Order ID: %s\n", order.ID)
	fmt.Fprintf(&b, "Total: *%s%s/-*\n\n", w.currency, w.format.Amount(total))
	if billURL != "" {
		fmt.Fprintf(&b, "Download your invoice here: %s\n\n", billURL)
	}
	b.WriteString("Your order will be delivered soon.\n\n")
	if w.brand != "" {
		fmt.Fprintf(&b, "Thank you for ordering with %s", w.brand)
	}
	return w.link(phone, b.String()), nil
}

func (w *WhatsAppLinks) phone(raw string) string {
	phone := digits(raw)
	if phone == "" {
		return ""
	}
	if w.countryCode != "" && !strings.HasPrefix(phone, w.countryCode) {
		phone = w.countryCode + phone
	}
	return phone
}

func (w *WhatsAppLinks) link(phone, text string) string {
	q := url.Values{}
	q.Set("phone", phone)
	q.Set("text", text)
	return whatsappSendURL + "?" + q.Encode()
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
