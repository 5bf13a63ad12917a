// Package events publishes loan events for orders.
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lendshelf/lendshelf/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
)

// Event types.
const (
	OrderCreated  = "OrderCreated"
	OrderReturned = "OrderReturned"
	OrderDeleted  = "OrderDeleted"
)

const (
	// Producer names this service in every envelope.
	Producer = "lendshelf-api"
	// Version is bumped when the payload shape changes.
	Version = 1
)

// Envelope wraps every event. Payload is the order JSON.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// Publisher sends loan events somewhere. Publish must not block on the
// network for long; Close flushes whatever is still queued.
type Publisher interface {
	Publish(ctx context.Context, eventType string, order *models.Order) error
	Close() error
}

// NewEnvelope builds the envelope for an order event.
func NewEnvelope(eventType string, order *models.Order, at time.Time) (*Envelope, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &Envelope{
		EventID:       id.String(),
		EventType:     eventType,
		EventVersion:  Version,
		OccurredAt:    at.UTC(),
		Producer:      Producer,
		CorrelationID: strconv.Itoa(order.ID),
		Payload:       payload,
	}, nil
}

// Emit publishes eventType for each order. Failures are logged, not
// returned: a loan is never rolled back because its event could not be sent.
func Emit(ctx context.Context, p Publisher, eventType string, orders ...*models.Order) {
	for _, order := range orders {
		if err := p.Publish(ctx, eventType, order); err != nil {
			logger.FromContext(ctx).Err(err).Warn("failed to publish loan event", logger.Data{
				"event_type": eventType,
				"order_id":   order.ID,
			})
		}
	}
}

// Noop drops every event. It is used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, *models.Order) error { return nil }
func (Noop) Close() error                                         { return nil }
