package testutils

import (
	"context"
	"sync"

	"github.com/lendshelf/lendshelf/pkg/models"
)

// PublishedEvent is one loan event seen by a Publisher.
type PublishedEvent struct {
	Type    string
	OrderID int
}

// Publisher keeps every loan event in memory.
type Publisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

func (p *Publisher) Publish(_ context.Context, eventType string, order *models.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, PublishedEvent{eventType, order.ID})
	return nil
}

func (p *Publisher) Close() error { return nil }

// Events returns a copy of what has been published so far.
func (p *Publisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent(nil), p.events...)
}
