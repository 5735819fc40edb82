// Package loop provides a single-threaded cooperative scheduler.
//
// State owned by a [Loop] is only touched from closures the loop runs, so those
// closures never race with each other. Blocking work (network, disk) runs on its
// own goroutine through [Go] and hands its result back with [Loop.Post].
package loop

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned when work is posted to a loop that is no longer running.
var ErrStopped = errors.New("loop stopped")

// Loop is a FIFO queue of closures executed one at a time by [Loop.Run].
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
	done    chan struct{}
}

// New creates a loop. Closures may be posted before [Loop.Run] starts.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post enqueues fn. It never blocks and is safe to call from any goroutine,
// including from inside a closure running on the loop.
//
// Returns false when the loop has stopped and fn will never run.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call posts fn and waits until it has run.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	if !l.Post(func() {
		fn()
		close(ran)
	}) {
		return ErrStopped
	}

	select {
	case <-ran:
		return nil
	case <-l.done:
		select {
		case <-ran:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes posted closures until ctx is cancelled. Pending closures are
// discarded once the loop stops.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}

		for {
			batch := l.take()
			if len(batch) == 0 {
				break
			}
			for _, fn := range batch {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				fn()
			}
		}
	}
}

// Done is closed after [Loop.Run] returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) take() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.queue
	l.queue = nil
	return batch
}

func (l *Loop) stop() {
	l.mu.Lock()
	if !l.stopped {
		l.stopped = true
		l.queue = nil
		close(l.done)
	}
	l.mu.Unlock()
}

// Submit posts fn, which is expected to resolve f or hand it on to [Settle].
//
// f resolves with [ErrStopped] when the loop stops before f is resolved, including when fn is
// discarded without running.
func Submit[T any](l *Loop, f *Future[T], fn func()) {
	if !l.Post(fn) {
		var zero T
		f.Resolve(zero, ErrStopped)
		return
	}
	go func() {
		select {
		case <-f.Done():
		case <-l.Done():
			var zero T
			f.Resolve(zero, ErrStopped)
		}
	}()
}

// Go runs work on a new goroutine and delivers its result to done on the loop.
//
// When the loop has stopped before the result arrives, done is not called.
func Go[T any](l *Loop, ctx context.Context, work func(context.Context) (T, error), done func(T, error)) {
	go func() {
		v, err := work(ctx)
		l.Post(func() { done(v, err) })
	}()
}

// Async runs work on a new goroutine and resolves the returned future on the loop with then's result.
//
// The future resolves with [ErrStopped] when the loop stops before then has run.
func Async[T, R any](l *Loop, ctx context.Context, work func(context.Context) (T, error), then func(T, error) (R, error)) *Future[R] {
	f := NewFuture[R]()
	Settle(l, ctx, f, work, then)
	return f
}

// Settle is [Async] for a future the caller already holds.
func Settle[T, R any](l *Loop, ctx context.Context, f *Future[R], work func(context.Context) (T, error), then func(T, error) (R, error)) {
	go func() {
		v, err := work(ctx)
		if l.Post(func() { f.Resolve(then(v, err)) }) {
			select {
			case <-f.Done():
				return
			case <-l.Done():
			}
		}
		var zero R
		f.Resolve(zero, ErrStopped)
	}()
}
