package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/parcelio/api/internal/services"
)

// PubSubEventPublisher publishes order and pickup domain events to Pub/Sub
// topics for downstream consumers (notifications, analytics, webhooks).
type PubSubEventPublisher struct {
	orderTopic  *pubsub.Topic
	pickupTopic *pubsub.Topic
	marshal     func(any) ([]byte, error)
}

// NewPubSubEventPublisher constructs a Pub/Sub backed domain event publisher.
// Both topics are required; callers that only consume one event stream still
// get the other topic wired so fan-out stays uniform.
func NewPubSubEventPublisher(orderTopic, pickupTopic *pubsub.Topic) (*PubSubEventPublisher, error) {
	if orderTopic == nil {
		return nil, errors.New("pubsub event publisher: order topic is required")
	}
	if pickupTopic == nil {
		return nil, errors.New("pubsub event publisher: pickup topic is required")
	}
	return &PubSubEventPublisher{
		orderTopic:  orderTopic,
		pickupTopic: pickupTopic,
		marshal:     json.Marshal,
	}, nil
}

// PublishOrderEvent enqueues an order event message on the order topic.
func (p *PubSubEventPublisher) PublishOrderEvent(ctx context.Context, event services.OrderEvent) error {
	if p == nil || p.orderTopic == nil {
		return errors.New("pubsub event publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "eventType", event.Type)
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "orderNumber", event.OrderNumber)
	setAttr(attrs, "businessId", event.BusinessID)
	setAttr(attrs, "status", event.CurrentStatus)

	result := p.orderTopic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

// PublishPickupEvent enqueues a pickup event message on the pickup topic.
func (p *PubSubEventPublisher) PublishPickupEvent(ctx context.Context, event services.PickupEvent) error {
	if p == nil || p.pickupTopic == nil {
		return errors.New("pubsub event publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal pickup event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "eventType", event.Type)
	setAttr(attrs, "pickupId", event.PickupID)
	setAttr(attrs, "pickupNumber", event.PickupNumber)
	setAttr(attrs, "businessId", event.BusinessID)
	setAttr(attrs, "status", event.CurrentStatus)

	result := p.pickupTopic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish pickup event: %w", err)
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}

var (
	_ services.OrderEventPublisher  = (*PubSubEventPublisher)(nil)
	_ services.PickupEventPublisher = (*PubSubEventPublisher)(nil)
)
