package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	domain "github.com/habitus/orderdesk/internal/domain"
	"github.com/habitus/orderdesk/internal/repositories"
)

const (
	orderEventStatusChanged = "order.status.changed"

	// DefaultActor is recorded when a transition does not name who made it.
	DefaultActor = "admin"

	meterName = "github.com/habitus/orderdesk/internal/services"
)

// TransitionPolicy decides whether an order may move between two statuses.
type TransitionPolicy interface {
	Allow(from, to domain.OrderStatus) error
}

// TransitionPolicyFunc adapts ordinary functions to TransitionPolicy.
type TransitionPolicyFunc func(from, to domain.OrderStatus) error

// Allow implements TransitionPolicy.
func (f TransitionPolicyFunc) Allow(from, to domain.OrderStatus) error {
	return f(from, to)
}

// Policy names accepted by TransitionPolicyByName.
const (
	PolicyPermissive        = "permissive"
	PolicyDeliveredTerminal = "delivered_terminal"
)

// PermissiveTransitions allows any status to move to any other, including itself.
func PermissiveTransitions() TransitionPolicy {
	return TransitionPolicyFunc(func(domain.OrderStatus, domain.OrderStatus) error { return nil })
}

// DeliveredTerminalTransitions rejects moving a delivered order to any other status.
// Re-recording delivered is still accepted.
func DeliveredTerminalTransitions() TransitionPolicy {
	return TransitionPolicyFunc(func(from, to domain.OrderStatus) error {
		if from == domain.OrderStatusDelivered && to != domain.OrderStatusDelivered {
			return fmt.Errorf("order already %s", domain.OrderStatusDelivered)
		}
		return nil
	})
}

// TransitionPolicyByName resolves a configured policy name.
func TransitionPolicyByName(name string) (TransitionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyPermissive:
		return PermissiveTransitions(), nil
	case PolicyDeliveredTerminal:
		return DeliveredTerminalTransitions(), nil
	default:
		return nil, fmt.Errorf("unknown transition policy %q", name)
	}
}

// OrderLifecycleServiceDeps bundles collaborators required by the lifecycle service.
type OrderLifecycleServiceDeps struct {
	Orders       repositories.OrderRepository
	Policy       TransitionPolicy
	DefaultActor string
	Clock        func() time.Time
	Events       OrderEventPublisher
	Notifier     Notifier
	Meter        metric.Meter
	Logger       LogFunc
}

type lifecycleService struct {
	orders       repositories.OrderRepository
	policy       TransitionPolicy
	defaultActor string
	clock        func() time.Time
	events       OrderEventPublisher
	notifier     Notifier
	transitions  metric.Int64Counter
	logger       LogFunc
}

// NewOrderLifecycleService wires dependencies into a concrete OrderLifecycleService.
func NewOrderLifecycleService(deps OrderLifecycleServiceDeps) (OrderLifecycleService, error) {
	if deps.Orders == nil {
		return nil, errors.New("lifecycle service: order repository is required")
	}

	policy := deps.Policy
	if policy == nil {
		policy = PermissiveTransitions()
	}
	actor := strings.TrimSpace(deps.DefaultActor)
	if actor == "" {
		actor = DefaultActor
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLog
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	transitions, err := meter.Int64Counter("orderdesk.order.transitions",
		metric.WithDescription("Order status transitions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("lifecycle service: create counter: %w", err)
	}

	return &lifecycleService{
		orders:       deps.Orders,
		policy:       policy,
		defaultActor: actor,
		clock: func() time.Time {
			return clock().UTC()
		},
		events:      deps.Events,
		notifier:    deps.Notifier,
		transitions: transitions,
		logger:      logger,
	}, nil
}

func (s *lifecycleService) Transition(ctx context.Context, cmd TransitionCommand) (TransitionResult, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return TransitionResult{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	target, ok := domain.ParseOrderStatus(cmd.Status)
	if !ok {
		return TransitionResult{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Status)
	}
	actor := strings.TrimSpace(cmd.Actor)
	if actor == "" {
		actor = s.defaultActor
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		s.record(ctx, target, "error")
		return TransitionResult{}, mapOrderRepositoryError(err)
	}

	if err := s.policy.Allow(order.Status, target); err != nil {
		s.record(ctx, target, "rejected")
		return TransitionResult{}, fmt.Errorf("%w: %s -> %s: %v", ErrOrderInvalidState, order.Status, target, err)
	}

	entry := domain.StatusHistoryEntry{
		Status:    target,
		UpdatedAt: s.clock(),
		UpdatedBy: actor,
	}
	if err := s.orders.AppendStatus(ctx, orderID, entry); err != nil {
		s.record(ctx, target, "error")
		return TransitionResult{}, mapOrderRepositoryError(err)
	}
	s.record(ctx, target, "ok")

	result := TransitionResult{
		OrderID:        orderID,
		PreviousStatus: order.Status,
		Status:         target,
		Entry:          entry,
	}

	s.publishEvent(ctx, OrderEvent{
		Type:           orderEventStatusChanged,
		OrderID:        orderID,
		PreviousStatus: string(order.Status),
		CurrentStatus:  string(target),
		ActorID:        actor,
		OccurredAt:     entry.UpdatedAt,
	})
	s.notify(ctx, Notification{
		Title: "Order status updated",
		Body:  fmt.Sprintf("Order %s is now %s", orderID, target),
		Data: map[string]string{
			"orderId": orderID,
			"status":  string(target),
		},
	})

	return result, nil
}

func (s *lifecycleService) History(ctx context.Context, orderID string) ([]domain.StatusHistoryEntry, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderRepositoryError(err)
	}
	history := make([]domain.StatusHistoryEntry, len(order.StatusHistory))
	copy(history, order.StatusHistory)
	return history, nil
}

func (s *lifecycleService) record(ctx context.Context, target domain.OrderStatus, outcome string) {
	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", string(target)),
		attribute.String("outcome", outcome),
	))
}

func (s *lifecycleService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   event.Type,
			"order":  event.OrderID,
			"error":  err.Error(),
			"status": event.CurrentStatus,
		})
	}
}

func (s *lifecycleService) notify(ctx context.Context, notification Notification) {
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
