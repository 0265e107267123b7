package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/platform/httpx"
	"github.com/habitus/orderdesk/internal/services"
)

// CatalogHandlers manages storefront categories and products.
type CatalogHandlers struct {
	catalog services.CatalogService
	admin   func(http.Handler) http.Handler
}

// NewCatalogHandlers constructs catalogue handlers. admin, when set, guards writes.
func NewCatalogHandlers(catalog services.CatalogService, admin func(http.Handler) http.Handler) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog, admin: admin}
}

// Routes registers the /catalog endpoints.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/categories", h.listCategories)
	r.Get("/products", h.listProducts)

	r.Group(func(admin chi.Router) {
		if h.admin != nil {
			admin.Use(h.admin)
		}
		admin.Post("/categories", h.saveCategory)
		admin.Put("/categories/{categoryID}", h.saveCategory)
		admin.Delete("/categories/{categoryID}", h.deleteCategory)
		admin.Post("/products", h.saveProduct)
		admin.Put("/products/{productID}", h.saveProduct)
		admin.Delete("/products/{productID}", h.deleteProduct)
	})
}

type categoryPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

type categoryRequest struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

type productPayload struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
	Weight   string          `json:"weight"`
	Category string          `json:"category"`
}

type productRequest struct {
	Name     string          `json:"name"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
	Weight   string          `json:"weight"`
	Category string          `json:"category"`
}

type categoryListResponse struct {
	Items []categoryPayload `json:"items"`
}

type productListResponse struct {
	Items []productPayload `json:"items"`
}

func (h *CatalogHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}
	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	resp := categoryListResponse{Items: make([]categoryPayload, 0, len(categories))}
	for _, c := range categories {
		resp.Items = append(resp.Items, buildCategoryPayload(c))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// saveCategory creates on POST and updates on PUT.
func (h *CatalogHandlers) saveCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}
	var req categoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	id := chi.URLParam(r, "categoryID")
	saved, err := h.catalog.UpsertCategory(ctx, domain.Category{ID: id, Name: req.Name, Image: req.Image})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, savedStatus(id), buildCategoryPayload(saved))
}

func (h *CatalogHandlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}
	if err := h.catalog.DeleteCategory(ctx, chi.URLParam(r, "categoryID")); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}
	products, err := h.catalog.ListProducts(ctx, r.URL.Query().Get("category"))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	resp := productListResponse{Items: make([]productPayload, 0, len(products))}
	for _, p := range products {
		resp.Items = append(resp.Items, buildProductPayload(p))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *CatalogHandlers) saveProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	id := chi.URLParam(r, "productID")
	saved, err := h.catalog.UpsertProduct(ctx, domain.Product{
		ID:       id,
		Name:     req.Name,
		Image:    req.Image,
		Price:    req.Price,
		Weight:   req.Weight,
		Category: req.Category,
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, savedStatus(id), buildProductPayload(saved))
}

func (h *CatalogHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}
	if err := h.catalog.DeleteProduct(ctx, chi.URLParam(r, "productID")); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildCategoryPayload(c domain.Category) categoryPayload {
	return categoryPayload{ID: c.ID, Name: c.Name, Image: c.Image}
}

func buildProductPayload(p domain.Product) productPayload {
	return productPayload{
		ID:       p.ID,
		Name:     p.Name,
		Image:    p.Image,
		Price:    p.Price,
		Weight:   p.Weight,
		Category: p.Category,
	}
}

// savedStatus is 201 for creates (no id in the path) and 200 for updates.
func savedStatus(id string) int {
	if id == "" {
		return http.StatusCreated
	}
	return http.StatusOK
}

func writeCatalogUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_not_found", "catalog entry not found", http.StatusNotFound))
	case errors.Is(err, services.ErrStoreUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to process catalog request", http.StatusInternalServerError))
	}
}
