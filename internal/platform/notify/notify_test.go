package notify

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/services"
)

type stubSender struct {
	sent []*messaging.Message
	fail map[string]error
}

func (s *stubSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	s.sent = append(s.sent, m)
	if err := s.fail[m.Topic]; err != nil {
		return "", err
	}
	return "projects/p/messages/1", nil
}

func TestTopicNotifierFansOut(t *testing.T) {
	sender := &stubSender{fail: map[string]error{"delivery": errors.New("quota")}}
	notifier, err := NewTopicNotifier(sender, []string{" store ", "", "delivery"})
	require.NoError(t, err)

	err = notifier.Notify(context.Background(), services.Notification{
		Title: "New order received",
		Body:  "ORD-1 from Asha",
		Data:  map[string]string{"orderId": "ORD-1"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delivery")
	require.Len(t, sender.sent, 2, "a failing topic must not stop the others")
	assert.Equal(t, "store", sender.sent[0].Topic)
	assert.Equal(t, "New order received", sender.sent[0].Notification.Title)
	assert.Equal(t, "ORD-1", sender.sent[0].Data["orderId"])

	_, err = NewTopicNotifier(sender, []string{" "})
	assert.Error(t, err)
}

func TestReceiptLink(t *testing.T) {
	links := NewWhatsAppLinks("+91", "HabitUs", "₹", "en-IN")
	order := domain.Order{ID: "ORD-1", CustomerName: "Asha", Phone: "98765 43210"}

	link, err := links.ReceiptLink(order, decimal.RequireFromString("950"), "https://bills/ORD-1.pdf")
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "web.whatsapp.com", u.Host)
	assert.Equal(t, "919876543210", u.Query().Get("phone"))
	text := u.Query().Get("text")
	assert.True(t, strings.HasPrefix(text, "Hello *Asha*"))
	assert.Contains(t, text, "Order ID: ORD-1")
	assert.Contains(t, text, "Total: *₹950.00/-*")
	assert.Contains(t, text, "https://bills/ORD-1.pdf")

	prefixed, err := links.ReceiptLink(domain.Order{ID: "ORD-2", Phone: "919876543210"}, decimal.Zero, "")
	require.NoError(t, err)
	assert.Contains(t, prefixed, "phone=919876543210&")

	_, err = links.ReceiptLink(domain.Order{ID: "ORD-3"}, decimal.Zero, "")
	assert.ErrorIs(t, err, ErrNoPhone)
}
