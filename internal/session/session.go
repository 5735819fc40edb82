package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursechat/internal/confirm"
	"github.com/desertthunder/coursechat/internal/courses"
	"github.com/desertthunder/coursechat/internal/identity"
	"github.com/desertthunder/coursechat/internal/loop"
	"github.com/desertthunder/coursechat/internal/models"
	"github.com/desertthunder/coursechat/internal/repositories"
	"github.com/desertthunder/coursechat/internal/services"
	"github.com/desertthunder/coursechat/internal/shared"
	"github.com/desertthunder/coursechat/internal/study"
)

// DefaultPollInterval is used when [Opts.PollInterval] is unset.
const DefaultPollInterval = 5 * time.Second

// State is the synchronizer lifecycle state.
type State int32

const (
	StateInitializing State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Opts configures a [Synchronizer].
//
// Transport, Identity, Courses, Study and Loop are required.
type Opts struct {
	Transport services.Transport
	Identity  identity.Provider
	Courses   *courses.Store
	Study     *study.Controller
	Loop      *loop.Loop

	// Confirm defaults to a new workflow.
	Confirm *confirm.Workflow
	// Transcript archives every appended message. Defaults to discarding them.
	Transcript repositories.Recorder
	// Notify receives events on the loop.
	Notify       func(Event)
	PollInterval time.Duration
	Logger       *log.Logger
}

// Synchronizer reconciles the local conversation and course store with the backend.
type Synchronizer struct {
	transport  services.Transport
	identity   identity.Provider
	courses    *courses.Store
	study      *study.Controller
	loop       *loop.Loop
	workflow   *confirm.Workflow
	transcript repositories.Recorder
	notify     func(Event)
	interval   time.Duration
	logger     *log.Logger

	state atomic.Int32

	// Owned by the loop.
	conversation *Conversation
	checking     bool
	prompt       *StudyPrompt

	pollMu     sync.Mutex
	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// New creates a synchronizer in [StateInitializing].
func New(opts Opts) (*Synchronizer, error) {
	if opts.Transport == nil || opts.Identity == nil || opts.Courses == nil || opts.Study == nil || opts.Loop == nil {
		return nil, fmt.Errorf("%w: synchronizer needs transport, identity, courses, study and loop", shared.ErrMissingArgument)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	workflow := opts.Confirm
	if workflow == nil {
		workflow = confirm.New(logger)
	}

	transcript := opts.Transcript
	if transcript == nil {
		transcript = repositories.NoopRecorder{}
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Synchronizer{
		transport:    opts.Transport,
		identity:     opts.Identity,
		courses:      opts.Courses,
		study:        opts.Study,
		loop:         opts.Loop,
		workflow:     workflow,
		transcript:   transcript,
		notify:       opts.Notify,
		interval:     interval,
		logger:       logger.With("component", "session"),
		conversation: NewConversation(),
	}, nil
}

// State returns the lifecycle state.
func (s *Synchronizer) State() State {
	return State(s.state.Load())
}

// Courses returns the course store.
func (s *Synchronizer) Courses() *courses.Store {
	return s.courses
}

// Init loads the course store and moves the synchronizer to [StateReady].
//
// A store that cannot be loaded from disk or the backend starts empty; that is logged, not returned.
func (s *Synchronizer) Init(ctx context.Context) error {
	if s.State() == StateReady {
		return nil
	}

	if err := s.courses.Load(ctx); err != nil {
		s.logger.Warn("starting with an empty course store", "error", err)
	}

	return s.loop.Call(ctx, func() {
		if s.State() == StateReady {
			return
		}
		s.state.Store(int32(StateReady))
		s.logger.Info("session ready", "user", s.identity.UserID(), "courses", s.courses.Len())
		s.emit(Event{Kind: EventReady})
		s.emit(Event{Kind: EventCoursesChanged})
	})
}

// Messages returns a copy of the conversation.
func (s *Synchronizer) Messages(ctx context.Context) ([]models.Message, error) {
	var out []models.Message
	err := s.loop.Call(ctx, func() { out = s.conversation.Messages() })
	return out, err
}

// PendingConfirmation returns the outstanding confirmation request, if any.
func (s *Synchronizer) PendingConfirmation() (models.ConfirmationRequest, bool) {
	return s.workflow.Pending()
}

// ConfirmState returns the confirmation workflow state.
func (s *Synchronizer) ConfirmState() confirm.State {
	return s.workflow.State()
}

// PendingStudyPrompt returns the outstanding study prompt, if any.
func (s *Synchronizer) PendingStudyPrompt(ctx context.Context) (StudyPrompt, bool, error) {
	var (
		p  StudyPrompt
		ok bool
	)
	err := s.loop.Call(ctx, func() {
		if s.prompt != nil {
			p, ok = *s.prompt, true
		}
	})
	return p, ok, err
}

// SendUserMessage sends text to the backend.
//
// Surrounding whitespace is trimmed; empty text is a no-op that resolves immediately with a zero [Reply].
// Otherwise the user message is appended before the request is sent.
func (s *Synchronizer) SendUserMessage(ctx context.Context, text string) *loop.Future[Reply] {
	text = strings.TrimSpace(text)
	if text == "" {
		return loop.Resolved(Reply{}, nil)
	}

	f := loop.NewFuture[Reply]()
	loop.Submit(s.loop, f, func() {
		s.appendMessage(models.NewMessage(text, true))

		payload := map[string]any{
			services.FieldData:   text,
			services.FieldUserID: s.identity.UserID(),
		}
		loop.Settle(s.loop, ctx, f, s.send(services.EndpointDialogue, payload), s.handleDialogue)
	})
	return f
}

func (s *Synchronizer) handleDialogue(resp map[string]any, err error) (Reply, error) {
	if err != nil {
		return Reply{}, s.alert(requestFailed("dialogue", err))
	}

	needConfirm, ok1 := services.Bool(resp, services.FieldNeedConfirm)
	confirmStr, ok2 := services.String(resp, services.FieldConfirmStr)
	title, ok3 := services.String(resp, services.FieldTitle)
	ssid, ok4 := services.String(resp, services.FieldSSID)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return Reply{}, s.alert(fmt.Errorf("%w: dialogue response needs need_confirm, confirm_str, title and ssid",
			shared.ErrMalformedResponse))
	}

	if needConfirm {
		req := models.ConfirmationRequest{Title: title, SSID: ssid, Message: confirmStr}
		s.workflow.Present(req)
		s.emit(Event{Kind: EventConfirmation, Confirmation: req})
		return Reply{NeedConfirm: true, Request: req}, nil
	}

	msg := s.appendAssistant(fmt.Sprintf("Task added: %s", title))
	return Reply{Message: msg}, nil
}

// Confirm accepts the pending confirmation and tells the backend. The future resolves with the backend's
// acknowledgment.
func (s *Synchronizer) Confirm(ctx context.Context) *loop.Future[string] {
	f := loop.NewFuture[string]()
	loop.Submit(s.loop, f, func() {
		req, err := s.workflow.Confirm()
		if err != nil {
			f.Resolve("", s.alert(err))
			return
		}
		s.emit(Event{Kind: EventConfirmationResolved, Confirmation: req, Decision: confirm.Confirmed})

		payload := map[string]any{
			services.FieldTitle:  req.Title,
			services.FieldSSID:   req.SSID,
			services.FieldUserID: s.identity.UserID(),
		}
		loop.Settle(s.loop, ctx, f, s.send(services.EndpointConfirm, payload), func(resp map[string]any, err error) (string, error) {
			if err != nil {
				return "", s.alert(requestFailed("confirm", err))
			}
			ack := acknowledgment(resp)
			s.appendAssistant(fmt.Sprintf("Confirmed, preparing your course: %s", ack))
			return ack, nil
		})
	})
	return f
}

// Cancel declines the pending confirmation. No request is sent.
func (s *Synchronizer) Cancel(ctx context.Context) error {
	var err error
	if callErr := s.loop.Call(ctx, func() {
		var req models.ConfirmationRequest
		req, err = s.workflow.Cancel()
		if err != nil {
			s.alert(err)
			return
		}
		s.emit(Event{Kind: EventConfirmationResolved, Confirmation: req, Decision: confirm.Cancelled})
		s.appendAssistant(fmt.Sprintf("Cancelled, %q was not created.", req.Title))
	}); callErr != nil {
		return callErr
	}
	return err
}

// CheckForUpdates asks the backend for pushed content and applies it.
//
// Failures are logged and returned but never alerted. When a previous check is still outstanding the call
// resolves immediately with [Update.Skipped] set.
func (s *Synchronizer) CheckForUpdates(ctx context.Context) *loop.Future[Update] {
	f := loop.NewFuture[Update]()
	loop.Submit(s.loop, f, func() {
		if s.checking {
			f.Resolve(Update{Skipped: true}, nil)
			return
		}
		s.checking = true

		payload := map[string]any{services.FieldUserID: s.identity.UserID()}
		loop.Settle(s.loop, ctx, f, s.send(services.EndpointCheck, payload), func(resp map[string]any, err error) (Update, error) {
			s.checking = false
			return s.applyCheck(resp, err)
		})
	})
	return f
}

func (s *Synchronizer) applyCheck(resp map[string]any, err error) (Update, error) {
	var u Update
	if err != nil {
		s.logger.Warn("check for updates failed", "error", err)
		return u, requestFailed("check", err)
	}

	if text, ok := services.String(resp, services.FieldNewMessage); ok && text != "" {
		msg := s.appendAssistant(text)
		u.Message = &msg
	}

	title, okTitle := services.String(resp, services.FieldCourseTitle)
	courseID, okID := services.Int(resp, services.FieldCheckCourseID)
	outline, okOutline := services.String(resp, services.FieldOutlineContent)
	if !okTitle || !okID || !okOutline || outline == "" {
		return u, nil
	}

	items, err := ParseOutline(outline)
	if err != nil {
		s.logger.Warn("ignoring course with unreadable outline", "course", courseID, "error", err)
		return u, nil
	}
	if len(items) == 0 {
		s.logger.Warn("course has no usable chapters", "course", courseID)
	}

	course := s.courses.Upsert(courseID, title, items)
	s.logger.Info("course received", "id", courseID, "title", title, "chapters", len(items))
	s.emit(Event{Kind: EventCoursesChanged, Course: course})
	s.appendAssistant(outline)
	u.Course = &course

	prompt := &StudyPrompt{CourseID: courseID, CourseTitle: title, ItemID: 0}
	if s.prompt != nil {
		s.logger.Debug("replacing unanswered study prompt", "course", s.prompt.CourseID)
	}
	s.prompt = prompt
	s.emit(Event{Kind: EventStudyPrompt, Course: course, ItemID: prompt.ItemID})
	p := *prompt
	u.Prompt = &p

	return u, nil
}

// AnswerStudyPrompt answers the outstanding study prompt. Yes starts studying the prompted chapter and the
// future resolves with its content; no dismisses the prompt.
func (s *Synchronizer) AnswerStudyPrompt(ctx context.Context, yes bool) *loop.Future[string] {
	f := loop.NewFuture[string]()
	loop.Submit(s.loop, f, func() {
		if s.prompt == nil {
			f.Resolve("", s.alert(fmt.Errorf("%w: no study prompt pending", shared.ErrOperationRejected)))
			return
		}
		p := *s.prompt
		s.prompt = nil

		if !yes {
			s.logger.Debug("study prompt declined", "course", p.CourseID)
			f.Resolve("", nil)
			return
		}
		s.startStudy(ctx, f, p.CourseID, p.ItemID)
	})
	return f
}

// StartStudy fetches study content for a chapter. Only one study request runs at a time.
func (s *Synchronizer) StartStudy(ctx context.Context, courseID, itemID int) *loop.Future[string] {
	f := loop.NewFuture[string]()
	loop.Submit(s.loop, f, func() { s.startStudy(ctx, f, courseID, itemID) })
	return f
}

// startStudy runs on the loop.
func (s *Synchronizer) startStudy(ctx context.Context, f *loop.Future[string], courseID, itemID int) {
	pending := s.study.Start(ctx, courseID, itemID)
	go func() {
		content, err := pending.Wait(context.WithoutCancel(ctx))
		if !s.loop.Post(func() {
			if err != nil {
				f.Resolve("", s.alert(err))
				return
			}
			course, _ := s.courses.Course(courseID)
			s.emit(Event{Kind: EventStudyContent, Course: course, ItemID: itemID, Content: content})
			s.emit(Event{Kind: EventCoursesChanged, Course: course})
			f.Resolve(content, nil)
		}) {
			f.Resolve("", loop.ErrStopped)
		}
	}()
}

// StartPolling starts checking for updates every poll interval. It is a no-op when already polling and
// fails with [shared.ErrNotInitialized] before [Synchronizer.Init] has completed.
func (s *Synchronizer) StartPolling() error {
	if s.State() != StateReady {
		return shared.ErrNotInitialized
	}

	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	if s.pollCancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.pollCancel, s.pollDone = cancel, done

	go s.poll(ctx, done)
	s.logger.Debug("polling started", "interval", s.interval)
	return nil
}

// StopPolling stops the poll timer and waits for it to exit. It is a no-op when not polling.
func (s *Synchronizer) StopPolling() {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	if s.pollCancel == nil {
		return
	}

	s.pollCancel()
	<-s.pollDone
	s.pollCancel, s.pollDone = nil, nil
	s.logger.Debug("polling stopped")
}

// Polling reports whether the poll timer is running.
func (s *Synchronizer) Polling() bool {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	return s.pollCancel != nil
}

func (s *Synchronizer) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckForUpdates(ctx)
		}
	}
}

func (s *Synchronizer) send(endpoint services.Endpoint, payload map[string]any) func(context.Context) (map[string]any, error) {
	return func(ctx context.Context) (map[string]any, error) {
		return s.transport.Send(ctx, endpoint, payload)
	}
}

func (s *Synchronizer) appendMessage(msg models.Message) {
	s.conversation.Append(msg)
	s.transcript.Record(msg)
	s.emit(Event{Kind: EventMessage, Message: msg})
}

func (s *Synchronizer) appendAssistant(text string) models.Message {
	msg := models.NewMessage(text, false)
	s.appendMessage(msg)
	return msg
}

// alert reports err to observers and returns it.
func (s *Synchronizer) alert(err error) error {
	s.logger.Warn("operation failed", "error", err)
	s.emit(Event{Kind: EventAlert, Err: err})
	return err
}

func (s *Synchronizer) emit(e Event) {
	if s.notify != nil {
		s.notify(e)
	}
}

func requestFailed(op string, err error) error {
	if errors.Is(err, shared.ErrRequestFailed) || errors.Is(err, shared.ErrMalformedResponse) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrRequestFailed, op, err)
}

// acknowledgment renders a /confirm response for the conversation.
func acknowledgment(resp map[string]any) string {
	for _, key := range []string{"message", services.FieldData, services.FieldTitle} {
		if v, ok := services.String(resp, key); ok && v != "" {
			return v
		}
	}
	data, err := shared.MarshalJSON(resp, false)
	if err != nil {
		return fmt.Sprint(resp)
	}
	return string(data)
}
