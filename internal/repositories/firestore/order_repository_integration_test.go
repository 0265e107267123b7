//go:build integration

package firestore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/repositories"
)

func TestOrderRepositoryIntegration(t *testing.T) {
	provider := startEmulator(t, "orders-test")
	repo, err := NewOrderRepository(provider)
	if err != nil {
		t.Fatalf("new order repository: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		status := domain.OrderStatusPending
		if i%2 == 1 {
			status = domain.OrderStatusDelivered
		}
		order := domain.Order{
			ID:         fmt.Sprintf("ORD-%d", i),
			Status:     status,
			Phone:      "9000000000",
			PaidAmount: decimal.NewFromInt(int64(100 * i)),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
			StatusHistory: []domain.StatusHistoryEntry{
				{Status: status, UpdatedAt: base, UpdatedBy: "cust"},
			},
		}
		if err := repo.Insert(ctx, order); err != nil {
			t.Fatalf("insert %s: %v", order.ID, err)
		}
	}

	err = repo.Insert(ctx, domain.Order{ID: "ORD-0", CreatedAt: base})
	if repoErr, ok := err.(repositories.RepositoryError); !ok || !repoErr.IsConflict() {
		t.Fatalf("expected conflict on duplicate insert, got %v", err)
	}

	first, err := repo.ListByRecency(ctx, repositories.OrderListFilter{Pagination: domain.Pagination{PageSize: 2}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first.Items) != 2 || first.Items[0].ID != "ORD-4" || first.NextPageToken == "" {
		t.Fatalf("unexpected first page %+v", first)
	}
	second, err := repo.ListByRecency(ctx, repositories.OrderListFilter{Pagination: domain.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(second.Items) != 2 || second.Items[0].ID != "ORD-2" {
		t.Fatalf("unexpected second page %+v", second)
	}

	delivered, err := repo.ListByRecency(ctx, repositories.OrderListFilter{Status: []domain.OrderStatus{domain.OrderStatusDelivered}})
	if err != nil {
		t.Fatalf("list delivered: %v", err)
	}
	if len(delivered.Items) != 2 || delivered.Items[0].ID != "ORD-3" {
		t.Fatalf("unexpected delivered page %+v", delivered)
	}

	// concurrent appends must all land
	const writers = 8
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			entry := domain.StatusHistoryEntry{Status: domain.OrderStatusPacked, UpdatedAt: base, UpdatedBy: "admin"}
			if err := repo.AppendStatus(ctx, "ORD-0", entry); err != nil {
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()

	order, err := repo.FindByID(ctx, "ORD-0")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(order.StatusHistory) != writers+1 || order.Status != domain.OrderStatusPacked {
		t.Fatalf("expected %d history entries, got %d (%s)", writers+1, len(order.StatusHistory), order.Status)
	}

	if err := repo.SetBillURL(ctx, "ORD-0", "https://example.test/bill.pdf"); err != nil {
		t.Fatalf("set bill url: %v", err)
	}
	paid := decimal.RequireFromString("99.5")
	if err := repo.UpdateFinancials(ctx, "ORD-0", domain.OrderFinancials{PaidAmount: &paid}); err != nil {
		t.Fatalf("update financials: %v", err)
	}
	order, err = repo.FindByID(ctx, "ORD-0")
	if err != nil {
		t.Fatalf("find after update: %v", err)
	}
	if order.OrderBillURL == "" || !order.PaidAmount.Equal(paid) || len(order.StatusHistory) != writers+1 {
		t.Fatalf("scalar updates must not disturb history: %+v", order)
	}

	err = repo.AppendStatus(ctx, "ORD-missing", domain.StatusHistoryEntry{Status: domain.OrderStatusPacked})
	if repoErr, ok := err.(repositories.RepositoryError); !ok || !repoErr.IsNotFound() {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := repo.Delete(ctx, "ORD-0"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, "ORD-0"); err == nil {
		t.Fatal("expected deleted order to be gone")
	}
}

func TestCustomerAndCouponRepositoryIntegration(t *testing.T) {
	provider := startEmulator(t, "customers-test")
	customers, err := NewCustomerRepository(provider)
	if err != nil {
		t.Fatalf("new customer repository: %v", err)
	}
	coupons, err := NewCouponRepository(provider)
	if err != nil {
		t.Fatalf("new coupon repository: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	now := time.Now()

	for _, delta := range []int{1, 1, -1, -1, -1} {
		if err := customers.AdjustOrderCount(ctx, "9000000000", delta, now); err != nil {
			t.Fatalf("adjust %d: %v", delta, err)
		}
	}
	doc, err := customers.customers.Get(ctx, "9000000000")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if got := orderCountValue(doc.OrderCount); got != 0 {
		t.Fatalf("expected floored count 0, got %d", got)
	}

	coupon := domain.Coupon{
		Code:            "SAVE10",
		DiscountPercent: decimal.NewFromInt(10),
		MaxDiscount:     decimal.NewFromInt(100),
		MinPurchase:     decimal.NewFromInt(500),
		Expiry:          now.Add(24 * time.Hour),
		Status:          domain.CouponStatusActive,
	}
	if err := coupons.Upsert(ctx, coupon); err != nil {
		t.Fatalf("upsert coupon: %v", err)
	}
	got, err := coupons.FindByCode(ctx, "SAVE10")
	if err != nil {
		t.Fatalf("find coupon: %v", err)
	}
	if !got.DiscountPercent.Equal(coupon.DiscountPercent) || got.Status != domain.CouponStatusActive {
		t.Fatalf("unexpected coupon %+v", got)
	}
	_, err = coupons.FindByCode(ctx, "NOPE")
	if repoErr, ok := err.(repositories.RepositoryError); !ok || !repoErr.IsNotFound() {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCouponRepositoryFindsAutoIDDocumentsByCode(t *testing.T) {
	provider := startEmulator(t, "coupons-autoid-test")
	coupons, err := NewCouponRepository(provider)
	if err != nil {
		t.Fatalf("new coupon repository: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	ref, err := coupons.coupons.Ref(ctx)
	if err != nil {
		t.Fatalf("coupons ref: %v", err)
	}
	// the storefront dashboard creates coupons with auto-generated ids
	autoRef, _, err := ref.Add(ctx, map[string]any{
		"code":        "FEST20",
		"discount":    20,
		"maxDiscount": 200,
		"minPurchase": 1000,
		"expiry":      time.Now().Add(48 * time.Hour),
		"status":      "active",
	})
	if err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	got, err := coupons.FindByCode(ctx, "FEST20")
	if err != nil {
		t.Fatalf("find by code: %v", err)
	}
	if got.Code != "FEST20" || !got.DiscountPercent.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected coupon %+v", got)
	}

	got.Status = domain.CouponStatusInactive
	if err := coupons.Upsert(ctx, got); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	all, err := coupons.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].Status != domain.CouponStatusInactive {
		t.Fatalf("upsert must rewrite the auto-id document in place, got %+v", all)
	}

	if err := coupons.Delete(ctx, "FEST20"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := autoRef.Get(ctx); err == nil {
		t.Fatal("expected auto-id document to be deleted")
	}
}

func TestCustomerRepositoryProfileIntegration(t *testing.T) {
	provider := startEmulator(t, "customer-profile-test")
	customers, err := NewCustomerRepository(provider)
	if err != nil {
		t.Fatalf("new customer repository: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	base := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, phone := range []string{"9000000001", "9000000002", "9000000003"} {
		if err := customers.AdjustOrderCount(ctx, phone, 1, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("seed %s: %v", phone, err)
		}
	}

	first, err := customers.List(ctx, domain.Pagination{PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first.Items) != 2 || first.Items[0].Phone != "9000000003" || first.NextPageToken == "" {
		t.Fatalf("unexpected first page %+v", first)
	}
	second, err := customers.List(ctx, domain.Pagination{PageSize: 2, PageToken: first.NextPageToken})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(second.Items) != 1 || second.Items[0].Phone != "9000000001" || second.NextPageToken != "" {
		t.Fatalf("unexpected second page %+v", second)
	}

	name := "Asha"
	if err := customers.Update(ctx, "9000000001", domain.CustomerUpdate{Name: &name}, base.Add(time.Hour)); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := customers.FindByPhone(ctx, "9000000001")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Name != "Asha" || got.OrderCount != 1 || !got.UpdatedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("unexpected customer %+v", got)
	}

	err = customers.Update(ctx, "9999999999", domain.CustomerUpdate{Name: &name}, base)
	if repoErr, ok := err.(repositories.RepositoryError); !ok || !repoErr.IsNotFound() {
		t.Fatalf("expected not found for missing customer, got %v", err)
	}
	if err := customers.Delete(ctx, "9000000001"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := customers.FindByPhone(ctx, "9000000001"); err == nil {
		t.Fatal("expected deleted customer to be gone")
	}
}

func TestCatalogAndAnnouncementRepositoryIntegration(t *testing.T) {
	provider := startEmulator(t, "catalog-test")
	catalog, err := NewCatalogRepository(provider)
	if err != nil {
		t.Fatalf("new catalog repository: %v", err)
	}
	announcements, err := NewAnnouncementRepository(provider)
	if err != nil {
		t.Fatalf("new announcement repository: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	grains, err := catalog.UpsertCategory(ctx, domain.Category{Name: "Grains"})
	if err != nil || grains.ID == "" {
		t.Fatalf("create category: %+v %v", grains, err)
	}
	if _, err := catalog.UpsertProduct(ctx, domain.Product{Name: "Rice", Price: decimal.NewFromInt(60), Weight: "1kg", Category: "Grains"}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := catalog.UpsertProduct(ctx, domain.Product{Name: "Milk", Price: decimal.NewFromInt(30), Weight: "500ml", Category: "Dairy"}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	products, err := catalog.ListProducts(ctx, "Grains")
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Rice" {
		t.Fatalf("unexpected products %+v", products)
	}

	_, err = catalog.UpsertCategory(ctx, domain.Category{ID: "missing", Name: "Nope"})
	if repoErr, ok := err.(repositories.RepositoryError); !ok || !repoErr.IsNotFound() {
		t.Fatalf("expected not found updating a missing category, got %v", err)
	}
	if err := catalog.DeleteCategory(ctx, grains.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}

	saved, err := announcements.Upsert(ctx, domain.Announcement{Title: "Festive offer", Coupon: "FEST20"})
	if err != nil {
		t.Fatalf("create announcement: %v", err)
	}
	saved.Wish = "Happy Diwali"
	if _, err := announcements.Upsert(ctx, saved); err != nil {
		t.Fatalf("update announcement: %v", err)
	}
	list, err := announcements.List(ctx)
	if err != nil {
		t.Fatalf("list announcements: %v", err)
	}
	if len(list) != 1 || list[0].Wish != "Happy Diwali" {
		t.Fatalf("unexpected announcements %+v", list)
	}
	if err := announcements.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("delete announcement: %v", err)
	}
}
