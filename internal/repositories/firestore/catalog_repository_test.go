package firestore

import (
	"testing"

	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
)

func TestProductDocumentMapping(t *testing.T) {
	product := domain.Product{
		ID:       "P1",
		Name:     "Basmati Rice",
		Price:    decimal.RequireFromString("120.5"),
		Weight:   "1kg",
		Category: "Grains",
	}
	doc := toProductDocument(product)
	if doc.Price != 120.5 || doc.Category != "Grains" {
		t.Fatalf("unexpected document %+v", doc)
	}
	got := fromProductDocument("P1", doc)
	if got.ID != "P1" || !got.Price.Equal(product.Price) || got.Weight != "1kg" {
		t.Fatalf("unexpected product %+v", got)
	}
}

func TestAnnouncementDocumentMapping(t *testing.T) {
	doc := toAnnouncementDocument(domain.Announcement{ID: "A1", Coupon: "DIWALI", Title: "Festive offer", Wish: "Happy Diwali"})
	got := fromAnnouncementDocument("A1", doc)
	if got.ID != "A1" || got.Coupon != "DIWALI" || got.Title != "Festive offer" || got.Wish != "Happy Diwali" {
		t.Fatalf("unexpected announcement %+v", got)
	}
}
