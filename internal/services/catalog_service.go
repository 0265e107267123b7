package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/repositories"
)

// DefaultCatalogImage is shown by the storefront for entries saved without an image.
const DefaultCatalogImage = "https://via.placeholder.com/150?text=No+Image"

// CatalogServiceDeps bundles collaborators required by the catalog service.
type CatalogServiceDeps struct {
	Catalog repositories.CatalogRepository
	Logger  LogFunc
}

type catalogService struct {
	repo   repositories.CatalogRepository
	logger LogFunc
}

// NewCatalogService wires dependencies into a concrete CatalogService.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("catalog service: catalog repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLog
	}
	return &catalogService{repo: deps.Catalog, logger: logger}, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, mapCatalogError(err)
	}
	return categories, nil
}

func (s *catalogService) UpsertCategory(ctx context.Context, category domain.Category) (domain.Category, error) {
	category.ID = strings.TrimSpace(category.ID)
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return domain.Category{}, fmt.Errorf("%w: category name is required", ErrCatalogInvalidInput)
	}
	image, err := normalizeImage(category.Image)
	if err != nil {
		return domain.Category{}, err
	}
	category.Image = image

	saved, err := s.repo.UpsertCategory(ctx, category)
	if err != nil {
		return domain.Category{}, mapCatalogError(err)
	}
	s.logger(ctx, "catalog.category.saved", map[string]any{
		"categoryId": saved.ID,
		"created":    category.ID == "",
	})
	return saved, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, categoryID string) error {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return fmt.Errorf("%w: category id is required", ErrCatalogInvalidInput)
	}
	if err := s.repo.DeleteCategory(ctx, categoryID); err != nil {
		return mapCatalogError(err)
	}
	s.logger(ctx, "catalog.category.deleted", map[string]any{"categoryId": categoryID})
	return nil
}

func (s *catalogService) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, mapCatalogError(err)
	}
	return products, nil
}

func (s *catalogService) UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	product.ID = strings.TrimSpace(product.ID)
	product.Name = strings.TrimSpace(product.Name)
	product.Weight = strings.TrimSpace(product.Weight)
	product.Category = strings.TrimSpace(product.Category)
	switch {
	case product.Name == "":
		return domain.Product{}, fmt.Errorf("%w: product name is required", ErrCatalogInvalidInput)
	case !product.Price.IsPositive():
		return domain.Product{}, fmt.Errorf("%w: product price must be positive", ErrCatalogInvalidInput)
	case product.Weight == "":
		return domain.Product{}, fmt.Errorf("%w: product weight is required", ErrCatalogInvalidInput)
	case product.Category == "":
		return domain.Product{}, fmt.Errorf("%w: product category is required", ErrCatalogInvalidInput)
	}
	image, err := normalizeImage(product.Image)
	if err != nil {
		return domain.Product{}, err
	}
	product.Image = image
	product.Price = product.Price.Round(2)

	saved, err := s.repo.UpsertProduct(ctx, product)
	if err != nil {
		return domain.Product{}, mapCatalogError(err)
	}
	s.logger(ctx, "catalog.product.saved", map[string]any{
		"productId": saved.ID,
		"category":  saved.Category,
		"created":   product.ID == "",
	})
	return saved, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return mapCatalogError(err)
	}
	s.logger(ctx, "catalog.product.deleted", map[string]any{"productId": productID})
	return nil
}

// normalizeImage defaults a blank image and rejects anything but absolute http(s) URLs.
func normalizeImage(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultCatalogImage, nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: image must be an absolute http(s) url", ErrCatalogInvalidInput)
	}
	return raw, nil
}

func mapCatalogError(err error) error {
	return mapRepositoryError(err, ErrCatalogNotFound, ErrCatalogInvalidInput)
}
