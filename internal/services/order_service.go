package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/repositories"
)

const (
	orderEventCreated = "order.created"
	orderEventDeleted = "order.deleted"

	orderIDPrefix = "ORD-"

	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Customers   repositories.CustomerRepository
	Artifacts   ArtifactStore
	Keys        ArtifactKeys
	Clock       func() time.Time
	IDGenerator func() string
	Events      OrderEventPublisher
	Notifier    Notifier
	Logger      LogFunc
}

type orderService struct {
	orders    repositories.OrderRepository
	customers repositories.CustomerRepository
	artifacts ArtifactStore
	keys      ArtifactKeys
	clock     func() time.Time
	newID     func() string
	events    OrderEventPublisher
	notifier  Notifier
	logger    LogFunc
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return orderIDPrefix + ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLog
	}

	return &orderService{
		orders:    deps.Orders,
		customers: deps.Customers,
		artifacts: deps.Artifacts,
		keys:      deps.Keys,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:    idGen,
		events:   deps.Events,
		notifier: deps.Notifier,
		logger:   logger,
	}, nil
}

func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	if len(cmd.Products) == 0 {
		return domain.Order{}, fmt.Errorf("%w: order must contain at least one product", ErrOrderInvalidInput)
	}
	phone := strings.TrimSpace(cmd.Phone)
	if phone == "" {
		return domain.Order{}, fmt.Errorf("%w: phone is required", ErrOrderInvalidInput)
	}
	if err := requireNonNegative(map[string]decimal.Decimal{
		"paidAmount":      cmd.PaidAmount,
		"deliveryCharges": cmd.DeliveryCharges,
		"totalDiscount":   cmd.TotalDiscount,
	}); err != nil {
		return domain.Order{}, err
	}

	products, err := buildOrderProducts(cmd.Products)
	if err != nil {
		return domain.Order{}, err
	}

	addressType := cmd.AddressType
	switch addressType {
	case "":
		addressType = domain.AddressTypeMyself
	case domain.AddressTypeMyself, domain.AddressTypeFriendFamily:
	default:
		return domain.Order{}, fmt.Errorf("%w: unknown address type %q", ErrOrderInvalidInput, cmd.AddressType)
	}

	now := s.clock()
	actor := strings.TrimSpace(cmd.Actor)
	if actor == "" {
		actor = strings.TrimSpace(cmd.CustomerID)
	}
	orderID := s.newID()
	groceryImage, err := s.groceryImageKey(orderID, cmd.GroceryImagePath)
	if err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		ID:     orderID,
		Status: domain.OrderStatusPending,
		StatusHistory: []domain.StatusHistoryEntry{{
			Status:    domain.OrderStatusPending,
			UpdatedAt: now,
			UpdatedBy: actor,
		}},
		Products:          products,
		PaidAmount:        cmd.PaidAmount,
		DeliveryCharges:   cmd.DeliveryCharges,
		TotalDiscount:     cmd.TotalDiscount,
		CouponCode:        strings.TrimSpace(cmd.CouponCode),
		Phone:             phone,
		CustomerID:        strings.TrimSpace(cmd.CustomerID),
		CustomerName:      strings.TrimSpace(cmd.CustomerName),
		Address:           strings.TrimSpace(cmd.Address),
		AddressType:       addressType,
		FriendFamilyName:  strings.TrimSpace(cmd.FriendFamilyName),
		FriendFamilyPhone: strings.TrimSpace(cmd.FriendFamilyPhone),
		PaymentMode:       strings.TrimSpace(cmd.PaymentMode),
		GroceryImagePath:  groceryImage,
		CreatedAt:         now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return domain.Order{}, mapOrderRepositoryError(err)
	}

	s.adjustCustomer(ctx, order, 1)
	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventCreated,
		OrderID:       order.ID,
		CurrentStatus: string(order.Status),
		ActorID:       actor,
		OccurredAt:    now,
		Metadata: map[string]any{
			"products": len(order.Products),
			"phone":    order.Phone,
		},
	})
	s.notify(ctx, Notification{
		Title: "New order received",
		Body:  fmt.Sprintf("Order %s placed by %s", order.ID, firstNonEmpty(order.CustomerName, order.Phone)),
		Data: map[string]string{
			"orderId": order.ID,
			"status":  string(order.Status),
		},
	})

	return order, nil
}

func (s *orderService) Get(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, mapOrderRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error) {
	statuses := make([]domain.OrderStatus, 0, len(filter.Status))
	seen := make(map[domain.OrderStatus]struct{}, len(filter.Status))
	for _, raw := range filter.Status {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		status, ok := domain.ParseOrderStatus(raw)
		if !ok {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, raw)
		}
		if _, dup := seen[status]; dup {
			continue
		}
		seen[status] = struct{}{}
		statuses = append(statuses, status)
	}

	size := filter.PageSize
	switch {
	case size <= 0:
		size = defaultOrderPageSize
	case size > maxOrderPageSize:
		size = maxOrderPageSize
	}

	page, err := s.orders.ListByRecency(ctx, repositories.OrderListFilter{
		Status: statuses,
		Pagination: domain.Pagination{
			PageSize:  size,
			PageToken: strings.TrimSpace(filter.PageToken),
		},
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, mapOrderRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) UpdateFinancials(ctx context.Context, cmd UpdateFinancialsCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	fields := cmd.Fields
	if fields.Empty() {
		return domain.Order{}, fmt.Errorf("%w: no fields to update", ErrOrderInvalidInput)
	}

	amounts := map[string]decimal.Decimal{}
	if fields.PaidAmount != nil {
		amounts["paidAmount"] = *fields.PaidAmount
	}
	if fields.DeliveryCharges != nil {
		amounts["deliveryCharges"] = *fields.DeliveryCharges
	}
	if fields.TotalDiscount != nil {
		amounts["totalDiscount"] = *fields.TotalDiscount
	}
	if err := requireNonNegative(amounts); err != nil {
		return domain.Order{}, err
	}
	if fields.CouponCode != nil {
		trimmed := strings.TrimSpace(*fields.CouponCode)
		fields.CouponCode = &trimmed
	}

	if err := s.orders.UpdateFinancials(ctx, orderID, fields); err != nil {
		return domain.Order{}, mapOrderRepositoryError(err)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, mapOrderRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) Delete(ctx context.Context, cmd DeleteOrderCommand) error {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return mapOrderRepositoryError(err)
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return mapOrderRepositoryError(err)
	}

	s.adjustCustomer(ctx, order, -1)
	s.removeArtifacts(ctx, order)
	s.publishEvent(ctx, OrderEvent{
		Type:           orderEventDeleted,
		OrderID:        orderID,
		PreviousStatus: string(order.Status),
		ActorID:        strings.TrimSpace(cmd.Actor),
		OccurredAt:     s.clock(),
	})
	return nil
}

func (s *orderService) adjustCustomer(ctx context.Context, order domain.Order, delta int) {
	if s.customers == nil || order.Phone == "" {
		return
	}
	if err := s.customers.AdjustOrderCount(ctx, order.Phone, delta, s.clock()); err != nil {
		s.logger(ctx, "customer.order_count.failed", map[string]any{
			"order": order.ID,
			"delta": delta,
			"error": err.Error(),
		})
	}
}

// removeArtifacts deletes the stored bill and grocery image. Missing objects are ignored.
// groceryImageKey places a bare uploaded file name under the order's grocery image key.
// Values that already carry a path or URL are stored as given.
func (s *orderService) groceryImageKey(orderID, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || s.keys == nil || strings.Contains(raw, "/") {
		return raw, nil
	}
	key, err := s.keys.GroceryImageKey(orderID, raw)
	if err != nil {
		return "", fmt.Errorf("%w: grocery list image: %v", ErrOrderInvalidInput, err)
	}
	return key, nil
}

func (s *orderService) removeArtifacts(ctx context.Context, order domain.Order) {
	if s.artifacts == nil {
		return
	}
	keys := make([]string, 0, 2)
	if s.keys != nil && order.OrderBillURL != "" {
		if key, err := s.keys.InvoiceKey(order.ID); err == nil {
			keys = append(keys, key)
		}
	}
	if order.GroceryImagePath != "" {
		keys = append(keys, order.GroceryImagePath)
	}
	for _, key := range keys {
		if err := s.artifacts.Delete(ctx, key); err != nil {
			s.logger(ctx, "order.artifact.delete.failed", map[string]any{
				"order": order.ID,
				"key":   key,
				"error": err.Error(),
			})
		}
	}
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
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

func (s *orderService) notify(ctx context.Context, notification Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, notification); err != nil {
		s.logger(ctx, "order.notify.failed", map[string]any{
			"order": notification.Data["orderId"],
			"error": err.Error(),
		})
	}
}

func buildOrderProducts(items []CreateOrderProduct) ([]domain.OrderProduct, error) {
	products := make([]domain.OrderProduct, 0, len(items))
	for i, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: product %d name is required", ErrOrderInvalidInput, i+1)
		}
		if !item.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: product %d quantity must be positive", ErrOrderInvalidInput, i+1)
		}
		if item.Price.IsNegative() {
			return nil, fmt.Errorf("%w: product %d price must not be negative", ErrOrderInvalidInput, i+1)
		}
		products = append(products, domain.OrderProduct{
			Name:     name,
			Weight:   strings.TrimSpace(item.Weight),
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}
	return products, nil
}

func requireNonNegative(amounts map[string]decimal.Decimal) error {
	for _, field := range []string{"paidAmount", "deliveryCharges", "totalDiscount"} {
		if value, ok := amounts[field]; ok && value.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative", ErrOrderInvalidInput, field)
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
