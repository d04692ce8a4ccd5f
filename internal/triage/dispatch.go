package triage

import (
	"context"
	"sync"
)

// SelectHandler reacts to the user choosing a condition card.
type SelectHandler func(ctx context.Context, condition string) error

// Dispatcher routes select actions from the display to registered handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers []SelectHandler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// OnSelect registers h. Handlers run in registration order.
func (d *Dispatcher) OnSelect(h SelectHandler) {
	d.mu.Lock()
	d.handlers = append(d.handlers, h)
	d.mu.Unlock()
}

// Select runs every handler and returns the first error.
func (d *Dispatcher) Select(ctx context.Context, action SelectAction) error {
	d.mu.RLock()
	handlers := append([]SelectHandler(nil), d.handlers...)
	d.mu.RUnlock()

	var first error
	for _, h := range handlers {
		if err := h(ctx, action.Condition); err != nil && first == nil {
			first = err
		}
	}
	return first
}
