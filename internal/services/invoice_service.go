package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/repositories"
)

const (
	orderEventInvoiceGenerated = "order.invoice.generated"

	invoiceContentType       = "application/pdf"
	defaultWriteBackAttempts = 3
)

var tracer = otel.Tracer("github.com/habitus/orderdesk/internal/services")

// InvoiceServiceDeps bundles collaborators required to construct the invoice service.
type InvoiceServiceDeps struct {
	Orders            repositories.OrderRepository
	Coupons           repositories.CouponRepository
	Renderer          InvoiceRenderer
	Artifacts         ArtifactStore
	Keys              ArtifactKeys
	Links             MessageLinkBuilder
	Notifier          Notifier
	Events            OrderEventPublisher
	Clock             func() time.Time
	WriteBackAttempts int
	WriteBackBackoff  gax.Backoff
	Sleep             func(ctx context.Context, d time.Duration) error
	Meter             metric.Meter
	Logger            LogFunc
}

type invoiceService struct {
	orders    repositories.OrderRepository
	coupons   repositories.CouponRepository
	renderer  InvoiceRenderer
	artifacts ArtifactStore
	keys      ArtifactKeys
	links     MessageLinkBuilder
	notifier  Notifier
	events    OrderEventPublisher
	clock     func() time.Time
	attempts  int
	backoff   gax.Backoff
	sleep     func(context.Context, time.Duration) error
	outcomes  metric.Int64Counter
	logger    LogFunc
}

// NewInvoiceService wires dependencies into a concrete InvoiceService.
func NewInvoiceService(deps InvoiceServiceDeps) (InvoiceService, error) {
	if deps.Orders == nil {
		return nil, errors.New("invoice service: order repository is required")
	}
	if deps.Coupons == nil {
		return nil, errors.New("invoice service: coupon repository is required")
	}
	if deps.Renderer == nil {
		return nil, errors.New("invoice service: renderer is required")
	}
	if deps.Artifacts == nil {
		return nil, errors.New("invoice service: artifact store is required")
	}
	if deps.Keys == nil {
		return nil, errors.New("invoice service: artifact key builder is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	attempts := deps.WriteBackAttempts
	if attempts <= 0 {
		attempts = defaultWriteBackAttempts
	}
	backoff := deps.WriteBackBackoff
	if backoff.Initial <= 0 {
		backoff = gax.Backoff{Initial: 200 * time.Millisecond, Max: 2 * time.Second, Multiplier: 2}
	}
	sleep := deps.Sleep
	if sleep == nil {
		sleep = gax.Sleep
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLog
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	outcomes, err := meter.Int64Counter("orderdesk.invoice.generations",
		metric.WithDescription("Invoice generation attempts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("invoice service: create counter: %w", err)
	}

	return &invoiceService{
		orders:    deps.Orders,
		coupons:   deps.Coupons,
		renderer:  deps.Renderer,
		artifacts: deps.Artifacts,
		keys:      deps.Keys,
		links:     deps.Links,
		notifier:  deps.Notifier,
		events:    deps.Events,
		clock: func() time.Time {
			return clock().UTC()
		},
		attempts: attempts,
		backoff:  backoff,
		sleep:    sleep,
		outcomes: outcomes,
		logger:   logger,
	}, nil
}

func (s *invoiceService) Preview(ctx context.Context, cmd PreviewInvoiceCommand) (InvoicePreview, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return InvoicePreview{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return InvoicePreview{}, mapOrderRepositoryError(err)
	}

	items := LineItemsFromProducts(order.Products)
	if err := ValidateLineItems(items); err != nil {
		return InvoicePreview{}, err
	}

	code := order.CouponCode
	if cmd.CouponCode != nil {
		code = *cmd.CouponCode
	}
	now := s.clock()
	coupon, err := ResolveCoupon(ctx, s.lookupCoupon, code, ComputeSubtotal(items), now)
	if err != nil {
		return InvoicePreview{}, fmt.Errorf("invoice: coupon lookup: %w", err)
	}

	invoice, err := ComputeInvoice(order, coupon, now)
	if err != nil {
		return InvoicePreview{}, err
	}
	return InvoicePreview{Invoice: invoice, Order: order, Coupon: coupon}, nil
}

func (s *invoiceService) Generate(ctx context.Context, cmd GenerateInvoiceCommand) (InvoiceResult, error) {
	ctx, span := tracer.Start(ctx, "invoice.generate", trace.WithAttributes(
		attribute.String("order.id", strings.TrimSpace(cmd.OrderID)),
	))
	defer span.End()

	result, err := s.generate(ctx, cmd)
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvoiceArtifactUpload):
		outcome = "upload_failed"
	case errors.Is(err, ErrInvoiceWriteBack):
		outcome = "writeback_failed"
	default:
		outcome = "failed"
	}
	s.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	return result, err
}

func (s *invoiceService) generate(ctx context.Context, cmd GenerateInvoiceCommand) (InvoiceResult, error) {
	preview, err := s.Preview(ctx, PreviewInvoiceCommand{OrderID: cmd.OrderID, CouponCode: cmd.CouponCode})
	if err != nil {
		return InvoiceResult{}, err
	}
	orderID := preview.Order.ID

	document, err := s.renderer.Render(ctx, InvoiceDocument{Invoice: preview.Invoice, Order: preview.Order})
	if err != nil {
		return InvoiceResult{}, fmt.Errorf("%w: %v", ErrInvoiceRender, err)
	}

	result := InvoiceResult{
		InvoicePreview: preview,
		Document:       document,
		FileName:       InvoiceFileName(orderID),
	}

	key, err := s.keys.InvoiceKey(orderID)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrInvoiceArtifactUpload, err)
	}
	url, err := s.artifacts.Put(ctx, key, document, invoiceContentType)
	if err != nil {
		s.logger(ctx, "invoice.upload.failed", map[string]any{
			"order": orderID,
			"key":   key,
			"error": err.Error(),
		})
		return result, fmt.Errorf("%w: %v", ErrInvoiceArtifactUpload, err)
	}
	result.ArtifactKey = key
	result.URL = url

	if err := s.writeBack(ctx, orderID, url); err != nil {
		s.logger(ctx, "invoice.writeback.failed", map[string]any{
			"order": orderID,
			"url":   url,
			"error": err.Error(),
		})
		return result, fmt.Errorf("%w: %v", ErrInvoiceWriteBack, err)
	}
	result.Order.OrderBillURL = url

	if s.links != nil {
		link, err := s.links.ReceiptLink(result.Order, result.Invoice.FinalTotal, url)
		if err != nil {
			s.logger(ctx, "invoice.share_link.failed", map[string]any{
				"order": orderID,
				"error": err.Error(),
			})
		} else {
			result.ShareLink = link
		}
	}

	s.notify(ctx, Notification{
		Title: "Invoice generated",
		Body:  fmt.Sprintf("Invoice for order %s is ready", orderID),
		Data: map[string]string{
			"orderId": orderID,
			"billUrl": url,
		},
	})
	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventInvoiceGenerated,
		OrderID:       orderID,
		CurrentStatus: string(result.Order.Status),
		ActorID:       strings.TrimSpace(cmd.Actor),
		OccurredAt:    result.Invoice.IssuedAt,
		Metadata: map[string]any{
			"billUrl":    url,
			"finalTotal": result.Invoice.FinalTotal.StringFixed(moneyScale),
			"coupon":     result.Coupon.Code,
		},
	})

	return result, nil
}

// InvoiceFileName is the download name for an order's invoice.
func InvoiceFileName(orderID string) string {
	return fmt.Sprintf("Invoice_%s.pdf", orderID)
}

func (s *invoiceService) lookupCoupon(ctx context.Context, code string) (domain.Coupon, bool, error) {
	coupon, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return domain.Coupon{}, false, nil
		}
		return domain.Coupon{}, false, err
	}
	return coupon, true, nil
}

// writeBack records the bill url, retrying transient failures with backoff.
func (s *invoiceService) writeBack(ctx context.Context, orderID, url string) error {
	backoff := s.backoff
	for attempt := 1; ; attempt++ {
		err := s.orders.SetBillURL(ctx, orderID, url)
		if err == nil {
			return nil
		}
		if isNotFound(err) || attempt >= s.attempts {
			return mapOrderRepositoryError(err)
		}
		s.logger(ctx, "invoice.writeback.retry", map[string]any{
			"order":   orderID,
			"attempt": attempt,
			"error":   err.Error(),
		})
		if err := s.sleep(ctx, backoff.Pause()); err != nil {
			return err
		}
	}
}

func (s *invoiceService) notify(ctx context.Context, notification Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, notification); err != nil {
		s.logger(ctx, "invoice.notify.failed", map[string]any{
			"order": notification.Data["orderId"],
			"error": err.Error(),
		})
	}
}

func (s *invoiceService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":  event.Type,
			"order": event.OrderID,
			"error": err.Error(),
		})
	}
}
