// Package confirm implements the workflow that gates a server-requested confirmation on the user's answer.
//
// The workflow is Idle until a confirmation-needed response arrives, Pending until the user confirms or
// cancels, then Idle again. Only one request is ever outstanding: a request presented while another is
// pending replaces it.
package confirm

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursechat/internal/models"
	"github.com/desertthunder/coursechat/internal/shared"
)

// ErrNotPending is returned when resolving a workflow that has nothing pending.
var ErrNotPending = fmt.Errorf("%w: no confirmation pending", shared.ErrOperationRejected)

// State is the workflow state.
type State int

const (
	Idle State = iota
	Pending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	default:
		return "unknown"
	}
}

// Decision is how a pending request was resolved.
type Decision int

const (
	Confirmed Decision = iota + 1
	Cancelled
)

func (d Decision) String() string {
	switch d {
	case Confirmed:
		return "confirmed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Resolution is a resolved request and the user's decision.
type Resolution struct {
	Request  models.ConfirmationRequest
	Decision Decision
}

// Workflow is the confirmation state machine. It is safe for concurrent use.
type Workflow struct {
	mu      sync.Mutex
	state   State
	request models.ConfirmationRequest
	logger  *log.Logger
}

// New creates an idle workflow.
func New(logger *log.Logger) *Workflow {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Workflow{logger: logger.With("component", "confirm")}
}

// Present moves the workflow to Pending with req. It reports whether an earlier pending request was
// overwritten.
func (w *Workflow) Present(req models.ConfirmationRequest) (replaced bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == Pending {
		w.logger.Warn("confirmation already pending, replacing it",
			"previous_title", w.request.Title, "previous_ssid", w.request.SSID,
			"title", req.Title, "ssid", req.SSID)
		replaced = true
	}

	w.state = Pending
	w.request = req
	return replaced
}

// Confirm resolves the pending request as confirmed and returns the workflow to Idle.
func (w *Workflow) Confirm() (models.ConfirmationRequest, error) {
	r, err := w.resolve(Confirmed)
	return r.Request, err
}

// Cancel resolves the pending request as cancelled and returns the workflow to Idle.
func (w *Workflow) Cancel() (models.ConfirmationRequest, error) {
	r, err := w.resolve(Cancelled)
	return r.Request, err
}

func (w *Workflow) resolve(d Decision) (Resolution, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != Pending {
		return Resolution{}, ErrNotPending
	}

	res := Resolution{Request: w.request, Decision: d}
	w.state = Idle
	w.request = models.ConfirmationRequest{}
	w.logger.Debug("confirmation resolved", "title", res.Request.Title, "decision", d)
	return res, nil
}

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Pending returns the outstanding request, if any.
func (w *Workflow) Pending() (models.ConfirmationRequest, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.request, w.state == Pending
}
