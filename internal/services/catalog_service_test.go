package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
)

type stubCatalogRepo struct {
	categories []domain.Category
	products   []domain.Product
	category   string
	err        error
	deleted    []string
}

func (s *stubCatalogRepo) ListCategories(context.Context) ([]domain.Category, error) {
	return s.categories, s.err
}

func (s *stubCatalogRepo) UpsertCategory(_ context.Context, category domain.Category) (domain.Category, error) {
	if s.err != nil {
		return domain.Category{}, s.err
	}
	if category.ID == "" {
		category.ID = "CAT-NEW"
	}
	s.categories = append(s.categories, category)
	return category, nil
}

func (s *stubCatalogRepo) DeleteCategory(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

func (s *stubCatalogRepo) ListProducts(_ context.Context, category string) ([]domain.Product, error) {
	s.category = category
	return s.products, s.err
}

func (s *stubCatalogRepo) UpsertProduct(_ context.Context, product domain.Product) (domain.Product, error) {
	if s.err != nil {
		return domain.Product{}, s.err
	}
	if product.ID == "" {
		product.ID = "PRD-NEW"
	}
	s.products = append(s.products, product)
	return product, nil
}

func (s *stubCatalogRepo) DeleteProduct(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

func newTestCatalogService(t *testing.T, repo *stubCatalogRepo) CatalogService {
	t.Helper()
	svc, err := NewCatalogService(CatalogServiceDeps{Catalog: repo})
	if err != nil {
		t.Fatalf("new catalog service: %v", err)
	}
	return svc
}

func TestCatalogServiceUpsertCategoryDefaultsImage(t *testing.T) {
	repo := &stubCatalogRepo{}
	svc := newTestCatalogService(t, repo)

	saved, err := svc.UpsertCategory(context.Background(), domain.Category{Name: "  Dairy "})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if saved.ID != "CAT-NEW" || saved.Name != "Dairy" || saved.Image != DefaultCatalogImage {
		t.Fatalf("unexpected category %+v", saved)
	}

	if _, err := svc.UpsertCategory(context.Background(), domain.Category{Name: " "}); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected invalid input for blank name, got %v", err)
	}
	if _, err := svc.UpsertCategory(context.Background(), domain.Category{Name: "Dairy", Image: "javascript:alert(1)"}); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected invalid input for non-http image, got %v", err)
	}
}

func TestCatalogServiceUpsertProductValidation(t *testing.T) {
	repo := &stubCatalogRepo{}
	svc := newTestCatalogService(t, repo)
	valid := domain.Product{Name: "Rice", Price: dec(t, "60.555"), Weight: "1kg", Category: "Grains"}

	saved, err := svc.UpsertProduct(context.Background(), valid)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !saved.Price.Equal(dec(t, "60.56")) || saved.Image != DefaultCatalogImage {
		t.Fatalf("unexpected product %+v", saved)
	}

	cases := map[string]func(p *domain.Product){
		"name":     func(p *domain.Product) { p.Name = "" },
		"price":    func(p *domain.Product) { p.Price = decimal.Zero },
		"weight":   func(p *domain.Product) { p.Weight = " " },
		"category": func(p *domain.Product) { p.Category = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := valid
			mutate(&p)
			if _, err := svc.UpsertProduct(context.Background(), p); !errors.Is(err, ErrCatalogInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestCatalogServiceMapsRepositoryErrors(t *testing.T) {
	repo := &stubCatalogRepo{err: stubRepositoryError{notFound: true}}
	svc := newTestCatalogService(t, repo)
	if err := svc.DeleteProduct(context.Background(), "PRD-1"); !errors.Is(err, ErrCatalogNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.UpsertCategory(context.Background(), domain.Category{ID: "CAT-1", Name: "Dairy"}); !errors.Is(err, ErrCatalogNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	repo.err = stubRepositoryError{unavailable: true}
	if _, err := svc.ListCategories(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if err := svc.DeleteCategory(context.Background(), " "); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected invalid input for blank id, got %v", err)
	}
}

func TestCatalogServiceListProductsTrimsCategory(t *testing.T) {
	repo := &stubCatalogRepo{products: []domain.Product{{ID: "P1", Name: "Rice"}}}
	svc := newTestCatalogService(t, repo)
	products, err := svc.ListProducts(context.Background(), " Grains ")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.category != "Grains" || len(products) != 1 {
		t.Fatalf("unexpected list %q %+v", repo.category, products)
	}
}
