package repositories

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursechat/internal/models"
)

const defaultTranscriptQueue = 256

// Recorder archives chat messages.
type Recorder interface {
	Record(msg models.Message)
	Close() error
}

// NoopRecorder discards every message.
type NoopRecorder struct{}

func (NoopRecorder) Record(models.Message) {}
func (NoopRecorder) Close() error          { return nil }

// TranscriptWriter archives messages on a background goroutine so the caller never waits on SQLite.
//
// When the queue is full the message is dropped and a warning is logged.
type TranscriptWriter struct {
	repo      *TranscriptRepository
	sessionID string
	logger    *log.Logger

	queue     chan models.Message
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewTranscriptWriter starts a writer that archives messages under sessionID.
func NewTranscriptWriter(repo *TranscriptRepository, sessionID string, queueSize int, logger *log.Logger) *TranscriptWriter {
	if queueSize <= 0 {
		queueSize = defaultTranscriptQueue
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	w := &TranscriptWriter{
		repo:      repo,
		sessionID: sessionID,
		logger:    logger.With("component", "transcript", "session", sessionID),
		queue:     make(chan models.Message, queueSize),
	}

	w.wg.Add(1)
	go w.run()

	return w
}

// SessionID returns the session messages are archived under.
func (w *TranscriptWriter) SessionID() string {
	return w.sessionID
}

// Record queues msg for archiving.
func (w *TranscriptWriter) Record(msg models.Message) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}

	select {
	case w.queue <- msg:
	default:
		w.logger.Warn("transcript queue full, dropping message", "id", msg.ID)
	}
}

// Close drains queued messages and stops the writer.
func (w *TranscriptWriter) Close() error {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.queue)
		w.mu.Unlock()
	})
	w.wg.Wait()
	return nil
}

func (w *TranscriptWriter) run() {
	defer w.wg.Done()
	for msg := range w.queue {
		if _, err := w.repo.Append(w.sessionID, msg); err != nil {
			w.logger.Error("failed to archive message", "id", msg.ID, "error", err)
		}
	}
}
