package firestore

import (
	"errors"
	"testing"
	"time"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/platform/pagination"
)

func TestOrderCountValue(t *testing.T) {
	cases := []struct {
		raw  any
		want int64
	}{
		{raw: int64(4), want: 4},
		{raw: float64(3), want: 3},
		{raw: "7", want: 7},
		{raw: " 12 ", want: 12},
		{raw: "many", want: 0},
		{raw: nil, want: 0},
		{raw: true, want: 0},
	}
	for _, tc := range cases {
		if got := orderCountValue(tc.raw); got != tc.want {
			t.Fatalf("orderCountValue(%#v) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestCustomerDocumentMapping(t *testing.T) {
	created := time.Date(2025, 2, 1, 8, 0, 0, 0, time.FixedZone("IST", 19800))
	got := fromCustomerDocument("9000000000", customerDocument{
		Name:       "Asha",
		OrderCount: "5",
		ReferralID: "REF1",
		Timestamp:  created,
	})
	if got.Phone != "9000000000" || got.OrderCount != 5 || got.ReferralID != "REF1" {
		t.Fatalf("unexpected customer %+v", got)
	}
	if got.CreatedAt.Location() != time.UTC || !got.CreatedAt.Equal(created) {
		t.Fatalf("expected utc creation time, got %v", got.CreatedAt)
	}
}

func TestCustomerUpdatesOnlyTouchNamedFields(t *testing.T) {
	now := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	name := "Asha K"
	count := 3
	updates := customerUpdates(domain.CustomerUpdate{Name: &name, OrderCount: &count}, now)
	if len(updates) != 3 {
		t.Fatalf("expected name, orderCount and updatedAt, got %+v", updates)
	}
	if updates[0].Path != "name" || updates[0].Value != "Asha K" {
		t.Fatalf("unexpected name update %+v", updates[0])
	}
	if updates[1].Path != "orderCount" || updates[1].Value != int64(3) {
		t.Fatalf("order count must be written as a number, got %+v", updates[1])
	}
	if updates[2].Path != "updatedAt" || updates[2].Value != now {
		t.Fatalf("unexpected updatedAt %+v", updates[2])
	}
}

func TestDecodeCustomerCursor(t *testing.T) {
	ts, phone, err := decodeCustomerCursor(pagination.Cursor{StartAfter: []string{"2025-02-01T08:00:00Z", "9000000000"}})
	if err != nil || phone != "9000000000" || ts.IsZero() {
		t.Fatalf("unexpected decode %v %q %v", ts, phone, err)
	}
	for _, cursor := range []pagination.Cursor{
		{StartAfter: []string{"x"}},
		{StartAfter: []string{"yesterday", "9000000000"}},
		{StartAfter: []string{"2025-02-01T08:00:00Z", " "}},
	} {
		if _, _, err := decodeCustomerCursor(cursor); !errors.Is(err, pagination.ErrInvalidPageToken) {
			t.Fatalf("expected invalid token for %+v, got %v", cursor, err)
		}
	}
}
