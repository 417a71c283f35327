// Package hub provides a thread-safe in-process broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
package hub

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/teslashibe/go-camctl/internal/log"
)

// Subscription is one consumer's view of the hub.
// C is closed when the subscriber is removed or the hub stops.
type Subscription[T any] struct {
	ID   string
	Name string
	C    <-chan T

	send chan T
}

// Hub maintains the set of active subscribers and broadcasts values to them
type Hub[T any] struct {
	// Name for logging
	name string

	// Registered subscribers
	subs map[*Subscription[T]]bool

	// Inbound values to broadcast
	broadcast chan T

	// Register requests from subscribers
	register chan *Subscription[T]

	// Unregister requests from subscribers
	unregister chan *Subscription[T]

	// Closed when Run returns
	done chan struct{}

	// Mutex for subscriber count (read-only access from outside)
	mu sync.RWMutex

	started atomic.Bool
	running atomic.Bool
	dropped atomic.Uint64

	logger *slog.Logger
}

// New creates a new Hub
func New[T any](name string) *Hub[T] {
	return &Hub[T]{
		name:       name,
		subs:       make(map[*Subscription[T]]bool),
		broadcast:  make(chan T, 256),
		register:   make(chan *Subscription[T]),
		unregister: make(chan *Subscription[T]),
		done:       make(chan struct{}),
		logger:     log.Component("hub").With("hub", name),
	}
}

// Run starts the hub's main loop and blocks until ctx is done.
// This should be called in a goroutine. A hub runs once; later calls
// return immediately.
func (h *Hub[T]) Run(ctx context.Context) {
	if !h.started.CompareAndSwap(false, true) {
		h.logger.Warn("hub already started")
		return
	}
	h.running.Store(true)
	defer func() {
		h.mu.Lock()
		for sub := range h.subs {
			close(sub.send)
			delete(h.subs, sub)
		}
		h.mu.Unlock()
		h.running.Store(false)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case sub := <-h.register:
			h.mu.Lock()
			h.subs[sub] = true
			count := len(h.subs)
			h.mu.Unlock()
			h.logger.Debug("subscriber added", "name", sub.Name, "total", count)

		case sub := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subs[sub]; ok {
				delete(h.subs, sub)
				close(sub.send)
			}
			count := len(h.subs)
			h.mu.Unlock()
			h.logger.Debug("subscriber removed", "name", sub.Name, "remaining", count)

		case v := <-h.broadcast:
			h.mu.Lock()
			for sub := range h.subs {
				select {
				case sub.send <- v:
					// Value queued successfully
				default:
					// Subscriber's buffer is full - they're too slow
					close(sub.send)
					delete(h.subs, sub)
					h.logger.Warn("dropped slow subscriber", "name", sub.Name)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Subscribe registers a subscriber with the given buffer size. It blocks
// until the hub loop accepts it. If the hub has stopped, the returned
// subscription's channel is already closed.
func (h *Hub[T]) Subscribe(name string, buffer int) *Subscription[T] {
	if buffer < 1 {
		buffer = 1
	}
	send := make(chan T, buffer)
	sub := &Subscription[T]{
		ID:   uuid.NewString(),
		Name: name,
		C:    send,
		send: send,
	}

	select {
	case h.register <- sub:
	case <-h.done:
		close(send)
	}
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call more than once.
func (h *Hub[T]) Unsubscribe(sub *Subscription[T]) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Publish queues v for every subscriber without blocking.
// Returns false when the broadcast queue is full and v was dropped.
func (h *Hub[T]) Publish(v T) bool {
	select {
	case h.broadcast <- v:
		return true
	default:
		// Broadcast channel full - drop value
		h.dropped.Add(1)
		return false
	}
}

// Count returns the number of subscribers
func (h *Hub[T]) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many published values were discarded because the
// broadcast queue was full.
func (h *Hub[T]) Dropped() uint64 {
	return h.dropped.Load()
}

// IsRunning returns whether the hub loop is running
func (h *Hub[T]) IsRunning() bool {
	return h.running.Load()
}

// Done is closed once Run has returned.
func (h *Hub[T]) Done() <-chan struct{} {
	return h.done
}
