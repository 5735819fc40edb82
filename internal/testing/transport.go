package testing

import (
	"context"
	"maps"
	"sync"

	"github.com/desertthunder/coursechat/internal/services"
)

// Request is a call recorded by [FakeTransport].
type Request struct {
	Endpoint services.Endpoint
	Payload  map[string]any
}

type reply struct {
	resp map[string]any
	err  error
}

// FakeTransport is a scripted [services.Transport].
//
// Replies queued for an endpoint are consumed in order; the last one is reused once the queue is down to it.
// Endpoints without a script answer with an empty object.
type FakeTransport struct {
	mu       sync.Mutex
	replies  map[services.Endpoint][]reply
	handlers map[services.Endpoint]func(map[string]any) (map[string]any, error)
	gates    map[services.Endpoint]chan struct{}
	requests []Request
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		replies:  make(map[services.Endpoint][]reply),
		handlers: make(map[services.Endpoint]func(map[string]any) (map[string]any, error)),
		gates:    make(map[services.Endpoint]chan struct{}),
	}
}

// Respond queues a successful reply for e.
func (f *FakeTransport) Respond(e services.Endpoint, resp map[string]any) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[e] = append(f.replies[e], reply{resp: resp})
	return f
}

// Fail queues a failing reply for e.
func (f *FakeTransport) Fail(e services.Endpoint, err error) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[e] = append(f.replies[e], reply{err: err})
	return f
}

// Handle answers e with fn, taking precedence over queued replies.
func (f *FakeTransport) Handle(e services.Endpoint, fn func(payload map[string]any) (map[string]any, error)) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[e] = fn
	return f
}

// Block holds every call to e until the returned release func runs. Calls are recorded before blocking.
func (f *FakeTransport) Block(e services.Endpoint) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[e] = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.gates[e] == gate {
				delete(f.gates, e)
			}
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Requests returns recorded calls, filtered to the given endpoints when any are passed.
func (f *FakeTransport) Requests(endpoints ...services.Endpoint) []Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []Request{}
	for _, r := range f.requests {
		if len(endpoints) == 0 {
			out = append(out, r)
			continue
		}
		for _, e := range endpoints {
			if r.Endpoint == e {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Count returns the number of calls made to e.
func (f *FakeTransport) Count(e services.Endpoint) int {
	return len(f.Requests(e))
}

func (f *FakeTransport) Send(ctx context.Context, e services.Endpoint, payload map[string]any) (map[string]any, error) {
	f.mu.Lock()
	f.requests = append(f.requests, Request{Endpoint: e, Payload: maps.Clone(payload)})
	gate := f.gates[e]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	if fn, ok := f.handlers[e]; ok {
		f.mu.Unlock()
		return fn(payload)
	}
	defer f.mu.Unlock()

	queue := f.replies[e]
	if len(queue) == 0 {
		return map[string]any{}, nil
	}
	r := queue[0]
	if len(queue) > 1 {
		f.replies[e] = queue[1:]
	}
	return r.resp, r.err
}
