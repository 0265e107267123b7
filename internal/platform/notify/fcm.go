package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/messaging"

	"github.com/habitus/orderdesk/internal/services"
)

// messageSender is the part of *messaging.Client the notifier uses.
type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// TopicNotifier fans staff notifications out to FCM topics such as "store" and "delivery".
type TopicNotifier struct {
	sender messageSender
	topics []string
}

// NewTopicNotifier constructs a notifier for topics. client is usually app.Messaging(ctx).
func NewTopicNotifier(client messageSender, topics []string) (*TopicNotifier, error) {
	if client == nil {
		return nil, errors.New("notify: messaging client is required")
	}
	cleaned := make([]string, 0, len(topics))
	for _, topic := range topics {
		if topic = strings.TrimSpace(topic); topic != "" {
			cleaned = append(cleaned, topic)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.New("notify: at least one topic is required")
	}
	return &TopicNotifier{sender: client, topics: cleaned}, nil
}

var _ services.Notifier = (*TopicNotifier)(nil)

// Notify sends to every topic and reports all failures together.
func (n *TopicNotifier) Notify(ctx context.Context, notification services.Notification) error {
	var errs []error
	for _, topic := range n.topics {
		_, err := n.sender.Send(ctx, &messaging.Message{
			Topic: topic,
			Notification: &messaging.Notification{
				Title: notification.Title,
				Body:  notification.Body,
			},
			Data: notification.Data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
			},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("notify topic %s: %w", topic, err))
		}
	}
	return errors.Join(errs...)
}
