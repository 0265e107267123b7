package firestore

import (
	"context"
	"errors"
	"sort"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/oklog/ulid/v2"

	domain "github.com/habitus/orderdesk/internal/domain"
	pfirestore "github.com/habitus/orderdesk/internal/platform/firestore"
	"github.com/habitus/orderdesk/internal/repositories"
)

const announcementsCollection = "announcements"

type announcementDocument struct {
	Coupon      string `firestore:"coupon"`
	Title       string `firestore:"title"`
	Description string `firestore:"description"`
	Image       string `firestore:"image"`
	Wish        string `firestore:"wish"`
}

// AnnouncementRepository stores announcements/{id}.
type AnnouncementRepository struct {
	announcements *pfirestore.Collection[announcementDocument]
	newID         func() string
}

// NewAnnouncementRepository constructs a Firestore-backed announcement repository.
func NewAnnouncementRepository(provider *pfirestore.Provider) (*AnnouncementRepository, error) {
	if provider == nil {
		return nil, errors.New("announcement repository requires firestore provider")
	}
	return &AnnouncementRepository{
		announcements: pfirestore.NewCollection[announcementDocument](provider, announcementsCollection),
		newID: func() string {
			return ulid.Make().String()
		},
	}, nil
}

var _ repositories.AnnouncementRepository = (*AnnouncementRepository)(nil)

// List orders by id. Generated ids are ulids, so this is creation order.
func (r *AnnouncementRepository) List(ctx context.Context) ([]domain.Announcement, error) {
	ref, err := r.announcements.Ref(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := r.announcements.Query(ctx, ref.Query)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Announcement, 0, len(docs))
	for _, doc := range docs {
		out = append(out, fromAnnouncementDocument(doc.ID, doc.Data))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *AnnouncementRepository) Upsert(ctx context.Context, announcement domain.Announcement) (domain.Announcement, error) {
	doc := toAnnouncementDocument(announcement)
	if strings.TrimSpace(announcement.ID) == "" {
		announcement.ID = r.newID()
		if err := r.announcements.Create(ctx, announcement.ID, doc); err != nil {
			return domain.Announcement{}, err
		}
		return announcement, nil
	}
	err := r.announcements.Update(ctx, announcement.ID, []firestore.Update{
		{Path: "coupon", Value: doc.Coupon},
		{Path: "title", Value: doc.Title},
		{Path: "description", Value: doc.Description},
		{Path: "image", Value: doc.Image},
		{Path: "wish", Value: doc.Wish},
	})
	if err != nil {
		return domain.Announcement{}, err
	}
	return announcement, nil
}

func (r *AnnouncementRepository) Delete(ctx context.Context, announcementID string) error {
	return r.announcements.Delete(ctx, announcementID)
}

func toAnnouncementDocument(a domain.Announcement) announcementDocument {
	return announcementDocument{
		Coupon:      a.Coupon,
		Title:       a.Title,
		Description: a.Description,
		Image:       a.Image,
		Wish:        a.Wish,
	}
}

func fromAnnouncementDocument(id string, doc announcementDocument) domain.Announcement {
	return domain.Announcement{
		ID:          id,
		Coupon:      doc.Coupon,
		Title:       doc.Title,
		Description: doc.Description,
		Image:       doc.Image,
		Wish:        doc.Wish,
	}
}
