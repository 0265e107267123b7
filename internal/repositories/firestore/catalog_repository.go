package firestore

import (
	"context"
	"errors"
	"sort"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
	pfirestore "github.com/habitus/orderdesk/internal/platform/firestore"
	"github.com/habitus/orderdesk/internal/repositories"
)

const (
	categoriesCollection = "categories"
	productsCollection   = "products"
)

type categoryDocument struct {
	Name  string `firestore:"name"`
	Image string `firestore:"image"`
}

// productDocument links to its category by name, matching the storefront.
type productDocument struct {
	Name     string  `firestore:"name"`
	Image    string  `firestore:"image"`
	Price    float64 `firestore:"price"`
	Weight   string  `firestore:"weight"`
	Category string  `firestore:"category"`
}

// CatalogRepository stores categories/{id} and products/{id}.
type CatalogRepository struct {
	categories *pfirestore.Collection[categoryDocument]
	products   *pfirestore.Collection[productDocument]
	newID      func() string
}

// NewCatalogRepository constructs a Firestore-backed catalogue repository.
func NewCatalogRepository(provider *pfirestore.Provider) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository requires firestore provider")
	}
	return &CatalogRepository{
		categories: pfirestore.NewCollection[categoryDocument](provider, categoriesCollection),
		products:   pfirestore.NewCollection[productDocument](provider, productsCollection),
		newID: func() string {
			return ulid.Make().String()
		},
	}, nil
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

func (r *CatalogRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	ref, err := r.categories.Ref(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := r.categories.Query(ctx, ref.Query)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(docs))
	for _, doc := range docs {
		out = append(out, fromCategoryDocument(doc.ID, doc.Data))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (r *CatalogRepository) UpsertCategory(ctx context.Context, category domain.Category) (domain.Category, error) {
	doc := categoryDocument{Name: category.Name, Image: category.Image}
	if strings.TrimSpace(category.ID) == "" {
		category.ID = r.newID()
		if err := r.categories.Create(ctx, category.ID, doc); err != nil {
			return domain.Category{}, err
		}
		return category, nil
	}
	err := r.categories.Update(ctx, category.ID, []firestore.Update{
		{Path: "name", Value: doc.Name},
		{Path: "image", Value: doc.Image},
	})
	if err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

func (r *CatalogRepository) DeleteCategory(ctx context.Context, categoryID string) error {
	return r.categories.Delete(ctx, categoryID)
}

func (r *CatalogRepository) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	ref, err := r.products.Ref(ctx)
	if err != nil {
		return nil, err
	}
	query := ref.Query
	if category = strings.TrimSpace(category); category != "" {
		query = query.Where("category", "==", category)
	}
	docs, err := r.products.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		out = append(out, fromProductDocument(doc.ID, doc.Data))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (r *CatalogRepository) UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	doc := toProductDocument(product)
	if strings.TrimSpace(product.ID) == "" {
		product.ID = r.newID()
		if err := r.products.Create(ctx, product.ID, doc); err != nil {
			return domain.Product{}, err
		}
		return product, nil
	}
	err := r.products.Update(ctx, product.ID, []firestore.Update{
		{Path: "name", Value: doc.Name},
		{Path: "image", Value: doc.Image},
		{Path: "price", Value: doc.Price},
		{Path: "weight", Value: doc.Weight},
		{Path: "category", Value: doc.Category},
	})
	if err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (r *CatalogRepository) DeleteProduct(ctx context.Context, productID string) error {
	return r.products.Delete(ctx, productID)
}

func fromCategoryDocument(id string, doc categoryDocument) domain.Category {
	return domain.Category{ID: id, Name: doc.Name, Image: doc.Image}
}

func toProductDocument(product domain.Product) productDocument {
	return productDocument{
		Name:     product.Name,
		Image:    product.Image,
		Price:    product.Price.InexactFloat64(),
		Weight:   product.Weight,
		Category: product.Category,
	}
}

func fromProductDocument(id string, doc productDocument) domain.Product {
	return domain.Product{
		ID:       id,
		Name:     doc.Name,
		Image:    doc.Image,
		Price:    decimal.NewFromFloat(doc.Price),
		Weight:   doc.Weight,
		Category: doc.Category,
	}
}
