package testutil

import (
	"context"
	"sync"

	"github.com/Proton-105/rumor-bot/internal/reply"
)

// Delivery is one batch handed to a Deliverer.
type Delivery struct {
	ChatID   int64
	Messages []reply.Message
}

// Deliverer records deliveries in memory.
type Deliverer struct {
	mu         sync.Mutex
	deliveries []Delivery
	Err        error
}

func (d *Deliverer) Deliver(_ context.Context, chatID int64, messages []reply.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(messages) > 0 {
		d.deliveries = append(d.deliveries, Delivery{ChatID: chatID, Messages: messages})
	}
	return d.Err
}

// Deliveries returns the recorded non-empty batches.
func (d *Deliverer) Deliveries() []Delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Delivery(nil), d.deliveries...)
}
