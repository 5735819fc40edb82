package ui

import (
	"context"
	"sync"

	"github.com/desertthunder/coursechat/internal/session"
)

// Inbox buffers session events for the TUI. Push never blocks, so it is safe to call from the event loop.
type Inbox struct {
	mu     sync.Mutex
	events []session.Event
	signal chan struct{}
}

func NewInbox() *Inbox {
	return &Inbox{signal: make(chan struct{}, 1)}
}

// Push queues e.
func (b *Inbox) Push(e session.Event) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// Next returns the oldest queued event, waiting for one if needed. It returns false once ctx is done.
func (b *Inbox) Next(ctx context.Context) (session.Event, bool) {
	for {
		b.mu.Lock()
		if len(b.events) > 0 {
			e := b.events[0]
			b.events = b.events[1:]
			b.mu.Unlock()
			return e, true
		}
		b.mu.Unlock()

		select {
		case <-b.signal:
		case <-ctx.Done():
			return session.Event{}, false
		}
	}
}

// Len returns the number of queued events.
func (b *Inbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
