package courses

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursechat/internal/models"
)

// writer serializes snapshots to storage on its own goroutine. Only the newest pending snapshot is written.
type writer struct {
	storage Storage
	logger  *log.Logger

	mu        sync.Mutex
	pending   []models.Course
	hasWork   bool
	requested uint64
	written   uint64
	lastErr   error
	changed   chan struct{}

	kick chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newWriter(storage Storage, logger *log.Logger) *writer {
	w := &writer{
		storage: storage,
		logger:  logger,
		changed: make(chan struct{}),
		kick:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// schedule hands snapshot to the writer and returns immediately.
func (w *writer) schedule(snapshot []models.Course) {
	w.mu.Lock()
	w.pending = snapshot
	w.hasWork = true
	w.requested++
	w.mu.Unlock()

	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// flush waits until every snapshot scheduled before the call has been written, and returns the error of
// the most recent write.
func (w *writer) flush(ctx context.Context) error {
	w.mu.Lock()
	target := w.requested
	for w.written < target {
		changed := w.changed
		w.mu.Unlock()

		select {
		case <-changed:
		case <-w.done:
			w.mu.Lock()
			if w.written < target {
				w.mu.Unlock()
				return errWriterStopped
			}
			w.mu.Unlock()
			return w.err()
		case <-ctx.Done():
			return ctx.Err()
		}

		w.mu.Lock()
	}
	err := w.lastErr
	w.mu.Unlock()
	return err
}

func (w *writer) err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// close writes any pending snapshot and stops the goroutine.
func (w *writer) close() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	<-w.done
}

func (w *writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.kick:
			w.writePending()
		case <-w.stop:
			w.writePending()
			return
		}
	}
}

func (w *writer) writePending() {
	w.mu.Lock()
	if !w.hasWork {
		w.mu.Unlock()
		return
	}
	snapshot, gen := w.pending, w.requested
	w.pending, w.hasWork = nil, false
	w.mu.Unlock()

	err := w.storage.Save(snapshot)
	if err != nil {
		w.logger.Error("failed to persist courses", "error", err)
	} else {
		w.logger.Debug("persisted courses", "count", len(snapshot))
	}

	w.mu.Lock()
	w.written = gen
	w.lastErr = err
	close(w.changed)
	w.changed = make(chan struct{})
	w.mu.Unlock()
}
