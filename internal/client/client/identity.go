package client

import (
	"context"
	"sync"

	"github.com/willnicht/willnicht/internal/client/models"
)

const subscriberBuffer = 16

type subscriber struct {
	ch   chan models.IdentityEvent
	done <-chan struct{}
}

// identityHub fans identity events out to subscribers.
type identityHub struct {
	mu   sync.Mutex
	next int
	subs map[int]*subscriber
}

func newIdentityHub() *identityHub {
	return &identityHub{subs: make(map[int]*subscriber)}
}

func (h *identityHub) subscribe(ctx context.Context) <-chan models.IdentityEvent {
	ch := make(chan models.IdentityEvent, subscriberBuffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = &subscriber{ch: ch, done: ctx.Done()}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// publish delivers ev to every live subscriber, in order. A send only gives
// up when the subscriber's context is done.
func (h *identityHub) publish(ev models.IdentityEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.subs {
		select {
		case s.ch <- ev:
		case <-s.done:
		}
	}
}
