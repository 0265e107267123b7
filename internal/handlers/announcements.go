package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/platform/httpx"
	"github.com/habitus/orderdesk/internal/services"
)

// AnnouncementHandlers manages storefront announcements.
type AnnouncementHandlers struct {
	announcements services.AnnouncementService
	admin         func(http.Handler) http.Handler
}

// NewAnnouncementHandlers constructs announcement handlers. admin, when set, guards writes.
func NewAnnouncementHandlers(announcements services.AnnouncementService, admin func(http.Handler) http.Handler) *AnnouncementHandlers {
	return &AnnouncementHandlers{announcements: announcements, admin: admin}
}

// Routes registers the /announcements endpoints.
func (h *AnnouncementHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listAnnouncements)

	r.Group(func(admin chi.Router) {
		if h.admin != nil {
			admin.Use(h.admin)
		}
		admin.Post("/", h.saveAnnouncement)
		admin.Put("/{announcementID}", h.saveAnnouncement)
		admin.Delete("/{announcementID}", h.deleteAnnouncement)
	})
}

type announcementPayload struct {
	ID          string `json:"id"`
	Coupon      string `json:"coupon"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Wish        string `json:"wish"`
}

type announcementRequest struct {
	Coupon      string `json:"coupon"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Wish        string `json:"wish"`
}

type announcementListResponse struct {
	Items []announcementPayload `json:"items"`
}

func (h *AnnouncementHandlers) listAnnouncements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.announcements == nil {
		writeAnnouncementUnavailable(ctx, w)
		return
	}
	items, err := h.announcements.List(ctx)
	if err != nil {
		writeAnnouncementError(ctx, w, err)
		return
	}
	resp := announcementListResponse{Items: make([]announcementPayload, 0, len(items))}
	for _, a := range items {
		resp.Items = append(resp.Items, buildAnnouncementPayload(a))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *AnnouncementHandlers) saveAnnouncement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.announcements == nil {
		writeAnnouncementUnavailable(ctx, w)
		return
	}
	var req announcementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	id := chi.URLParam(r, "announcementID")
	saved, err := h.announcements.Upsert(ctx, domain.Announcement{
		ID:          id,
		Coupon:      req.Coupon,
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
		Wish:        req.Wish,
	})
	if err != nil {
		writeAnnouncementError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, savedStatus(id), buildAnnouncementPayload(saved))
}

func (h *AnnouncementHandlers) deleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.announcements == nil {
		writeAnnouncementUnavailable(ctx, w)
		return
	}
	if err := h.announcements.Delete(ctx, chi.URLParam(r, "announcementID")); err != nil {
		writeAnnouncementError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildAnnouncementPayload(a domain.Announcement) announcementPayload {
	return announcementPayload{
		ID:          a.ID,
		Coupon:      a.Coupon,
		Title:       a.Title,
		Description: a.Description,
		Image:       a.Image,
		Wish:        a.Wish,
	}
}

func writeAnnouncementUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("announcement_service_unavailable", "announcement service unavailable", http.StatusServiceUnavailable))
}

func writeAnnouncementError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrAnnouncementInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrAnnouncementNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("announcement_not_found", "announcement not found", http.StatusNotFound))
	case errors.Is(err, services.ErrStoreUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("announcement_unavailable", "announcement storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("announcement_error", "failed to process announcement request", http.StatusInternalServerError))
	}
}
