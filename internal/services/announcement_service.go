package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/repositories"
)

// AnnouncementServiceDeps bundles collaborators required by the announcement service.
type AnnouncementServiceDeps struct {
	Announcements repositories.AnnouncementRepository
	Logger        LogFunc
}

type announcementService struct {
	repo     repositories.AnnouncementRepository
	sanitize *bluemonday.Policy
	logger   LogFunc
}

// NewAnnouncementService wires dependencies into a concrete AnnouncementService.
func NewAnnouncementService(deps AnnouncementServiceDeps) (AnnouncementService, error) {
	if deps.Announcements == nil {
		return nil, errors.New("announcement service: announcement repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLog
	}
	return &announcementService{
		repo:     deps.Announcements,
		sanitize: bluemonday.StrictPolicy(),
		logger:   logger,
	}, nil
}

func (s *announcementService) List(ctx context.Context) ([]domain.Announcement, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, mapAnnouncementError(err)
	}
	return items, nil
}

// Upsert strips markup from the text fields since the storefront renders them verbatim.
func (s *announcementService) Upsert(ctx context.Context, announcement domain.Announcement) (domain.Announcement, error) {
	announcement.ID = strings.TrimSpace(announcement.ID)
	announcement.Title = s.clean(announcement.Title)
	announcement.Description = s.clean(announcement.Description)
	announcement.Wish = s.clean(announcement.Wish)
	announcement.Coupon = strings.TrimSpace(announcement.Coupon)
	if announcement.Title == "" {
		return domain.Announcement{}, fmt.Errorf("%w: title is required", ErrAnnouncementInvalidInput)
	}
	if strings.ContainsAny(announcement.Coupon, "/ ") {
		return domain.Announcement{}, fmt.Errorf("%w: coupon code must not contain spaces or slashes", ErrAnnouncementInvalidInput)
	}
	if raw := strings.TrimSpace(announcement.Image); raw != "" {
		image, err := normalizeImage(raw)
		if err != nil {
			return domain.Announcement{}, fmt.Errorf("%w: image must be an absolute http(s) url", ErrAnnouncementInvalidInput)
		}
		announcement.Image = image
	} else {
		announcement.Image = ""
	}

	saved, err := s.repo.Upsert(ctx, announcement)
	if err != nil {
		return domain.Announcement{}, mapAnnouncementError(err)
	}
	s.logger(ctx, "announcement.saved", map[string]any{
		"announcementId": saved.ID,
		"coupon":         saved.Coupon,
		"created":        announcement.ID == "",
	})
	return saved, nil
}

func (s *announcementService) Delete(ctx context.Context, announcementID string) error {
	announcementID = strings.TrimSpace(announcementID)
	if announcementID == "" {
		return fmt.Errorf("%w: announcement id is required", ErrAnnouncementInvalidInput)
	}
	if err := s.repo.Delete(ctx, announcementID); err != nil {
		return mapAnnouncementError(err)
	}
	s.logger(ctx, "announcement.deleted", map[string]any{"announcementId": announcementID})
	return nil
}

func (s *announcementService) clean(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitize.Sanitize(raw)))
}

func mapAnnouncementError(err error) error {
	return mapRepositoryError(err, ErrAnnouncementNotFound, ErrAnnouncementInvalidInput)
}
