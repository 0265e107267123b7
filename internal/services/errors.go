package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/habitus/orderdesk/internal/platform/pagination"
	"github.com/habitus/orderdesk/internal/repositories"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates the transition policy rejected a status change.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates a conflicting concurrent write.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderUnavailable indicates the order store could not be reached.
	ErrOrderUnavailable = errors.New("order: repository unavailable")

	// ErrInvoiceInvalidInput signals malformed line items.
	ErrInvoiceInvalidInput = errors.New("invoice: invalid input")
	// ErrInvoiceRender indicates the document could not be produced.
	ErrInvoiceRender = errors.New("invoice: render failed")
	// ErrInvoiceArtifactUpload indicates the rendered document could not be stored.
	ErrInvoiceArtifactUpload = errors.New("invoice: artifact upload failed")
	// ErrInvoiceWriteBack indicates the bill url could not be recorded on the order.
	ErrInvoiceWriteBack = errors.New("invoice: bill url write-back failed")

	// ErrCouponInvalidInput signals an invalid coupon definition.
	ErrCouponInvalidInput = errors.New("coupon: invalid input")
	// ErrCouponNotFound indicates no coupon carries the code.
	ErrCouponNotFound = errors.New("coupon: not found")

	// ErrExportUnavailable indicates no spreadsheet writer is configured.
	ErrExportUnavailable = errors.New("export: not configured")

	// ErrCatalogInvalidInput signals an invalid category or product.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the category or product does not exist.
	ErrCatalogNotFound = errors.New("catalog: not found")

	// ErrCustomerInvalidInput signals an invalid customer edit.
	ErrCustomerInvalidInput = errors.New("customer: invalid input")
	// ErrCustomerNotFound indicates no customer is stored for the phone.
	ErrCustomerNotFound = errors.New("customer: not found")

	// ErrAnnouncementInvalidInput signals an invalid announcement.
	ErrAnnouncementInvalidInput = errors.New("announcement: invalid input")
	// ErrAnnouncementNotFound indicates the announcement does not exist.
	ErrAnnouncementNotFound = errors.New("announcement: not found")

	// ErrStoreUnavailable indicates the backing store for catalogue, customer or
	// announcement data could not be reached.
	ErrStoreUnavailable = errors.New("store: unavailable")
)

// LogFunc is the structured logging hook services accept.
type LogFunc func(ctx context.Context, event string, fields map[string]any)

func noopLog(context.Context, string, map[string]any) {}

func mapOrderRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pagination.ErrInvalidPageToken) {
		return fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
		}
	}

	return err
}

// mapRepositoryError translates repository failures for services that share
// ErrStoreUnavailable. invalid is used for malformed page tokens.
func mapRepositoryError(err, notFound, invalid error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pagination.ErrInvalidPageToken) {
		return fmt.Errorf("%w: %v", invalid, err)
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", notFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return err
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
