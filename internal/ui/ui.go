package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/coursechat/internal/loop"
	"github.com/desertthunder/coursechat/internal/models"
	"github.com/desertthunder/coursechat/internal/session"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ChatView ViewState = iota
	CourseListView
	CourseDetailView
	ContentView
)

func (v ViewState) String() string {
	switch v {
	case ChatView:
		return "chat"
	case CourseListView:
		return "courses"
	case CourseDetailView:
		return "course"
	case ContentView:
		return "content"
	default:
		return "unknown"
	}
}

// Session is the part of [session.Synchronizer] the TUI drives.
type Session interface {
	SendUserMessage(ctx context.Context, text string) *loop.Future[session.Reply]
	Confirm(ctx context.Context) *loop.Future[string]
	Cancel(ctx context.Context) error
	AnswerStudyPrompt(ctx context.Context, yes bool) *loop.Future[string]
	StartStudy(ctx context.Context, courseID, itemID int) *loop.Future[string]
}

// CourseStore is the part of the course store the TUI reads and edits.
type CourseStore interface {
	Courses() []models.Course
	Course(id int) (models.Course, bool)
	Complete(courseID, itemID int) error
	Delete(ctx context.Context, id int) error
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	session Session
	courses CourseStore
	inbox   *Inbox

	width  int
	height int

	ready        bool
	messages     []models.Message
	confirmation *models.ConfirmationRequest
	prompt       *models.Course
	alert        error

	transcript viewport.Model
	input      textinput.Model
	courseList list.Model
	chapters   list.Model
	content    viewport.Model

	selected     int // course id shown in CourseDetailView
	contentTitle string

	help help.Model
	keys keyMap
}

// NewModel creates a chat model. Events pushed to inbox drive the view.
func NewModel(ctx context.Context, s Session, courses CourseStore, inbox *Inbox) *Model {
	input := textinput.New()
	input.Placeholder = "Ask for a course..."
	input.Prompt = "› "
	input.CharLimit = 2000
	input.Focus()

	courseList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	courseList.Title = "Courses"
	chapters := list.New(nil, list.NewDefaultDelegate(), 0, 0)

	return &Model{
		ctx:        ctx,
		view:       ChatView,
		session:    s,
		courses:    courses,
		inbox:      inbox,
		transcript: viewport.New(0, 0),
		input:      input,
		courseList: courseList,
		chapters:   chapters,
		content:    viewport.New(0, 0),
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init starts listening for session events.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.ctx, m.inbox))
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case eventMsg:
		m.apply(session.Event(msg))
		return m, waitForEvent(m.ctx, m.inbox)

	case inboxClosedMsg:
		return m, nil

	case opDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.alert = fmt.Errorf("%s: %w", msg.op, msg.err)
		}
		if msg.op == "complete" || msg.op == "delete" {
			m.refreshCourses()
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		m.alert = nil

		switch m.view {
		case ChatView:
			return m.handleChatKeys(msg)
		case CourseListView:
			return m.handleCourseListKeys(msg)
		case CourseDetailView:
			return m.handleCourseDetailKeys(msg)
		case ContentView:
			return m.handleContentKeys(msg)
		}
	}

	return m.updateActive(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case ChatView:
		body = m.renderChat()
	case CourseListView:
		body = m.renderCourseList()
	case CourseDetailView:
		body = m.renderCourseDetail()
	case ContentView:
		body = m.renderContent()
	}

	if m.alert != nil {
		body += "\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.alert))
	}
	return body
}

// View state accessors.

func (m *Model) State() ViewState           { return m.view }
func (m *Model) Messages() []models.Message { return m.messages }
func (m *Model) Confirmation() (*models.ConfirmationRequest, bool) {
	return m.confirmation, m.confirmation != nil
}
func (m *Model) Alert() error { return m.alert }

func (m *Model) apply(e session.Event) {
	switch e.Kind {
	case session.EventReady:
		m.ready = true
	case session.EventMessage:
		m.messages = append(m.messages, e.Message)
		m.renderTranscript()
	case session.EventConfirmation:
		req := e.Confirmation
		m.confirmation = &req
	case session.EventConfirmationResolved:
		m.confirmation = nil
	case session.EventStudyPrompt:
		c := e.Course
		m.prompt = &c
	case session.EventStudyContent:
		m.showContent(e.Course, e.ItemID, e.Content)
	case session.EventCoursesChanged:
		m.refreshCourses()
	case session.EventAlert:
		m.alert = e.Err
	}
}

func (m *Model) handleChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmation != nil {
		switch {
		case key.Matches(msg, m.keys.yes):
			m.confirmation = nil
			return m, awaitFuture(m.ctx, "confirm", m.session.Confirm(m.ctx))
		case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
			m.confirmation = nil
			return m, run("cancel", func() error { return m.session.Cancel(m.ctx) })
		}
		return m, nil
	}

	if m.prompt != nil {
		switch {
		case key.Matches(msg, m.keys.yes):
			m.prompt = nil
			return m, awaitFuture(m.ctx, "study", m.session.AnswerStudyPrompt(m.ctx, true))
		case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
			m.prompt = nil
			return m, awaitFuture(m.ctx, "study", m.session.AnswerStudyPrompt(m.ctx, false))
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.courses):
		m.refreshCourses()
		m.view = CourseListView
		return m, nil
	case key.Matches(msg, m.keys.send):
		text := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		if text == "" {
			return m, nil
		}
		return m, awaitFuture(m.ctx, "send", m.session.SendUserMessage(m.ctx, text))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleCourseListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.courseList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.courseList, cmd = m.courseList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.courses):
		m.view = ChatView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.courseList.SelectedItem().(courseItem); ok {
			m.openCourse(item.course.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if item, ok := m.courseList.SelectedItem().(courseItem); ok {
			id := item.course.ID
			return m, run("delete", func() error { return m.courses.Delete(m.ctx, id) })
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.courseList, cmd = m.courseList.Update(msg)
	return m, cmd
}

func (m *Model) handleCourseDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item, selected := m.chapters.SelectedItem().(chapterItem)

	switch {
	case key.Matches(msg, m.keys.back):
		m.view = CourseListView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if !selected {
			return m, nil
		}
		if item.item.DetailContent != nil {
			c, _ := m.courses.Course(m.selected)
			m.showContent(c, item.item.ID, *item.item.DetailContent)
			return m, nil
		}
		return m, awaitFuture(m.ctx, "study", m.session.StartStudy(m.ctx, m.selected, item.item.ID))
	case key.Matches(msg, m.keys.complete):
		if !selected {
			return m, nil
		}
		courseID, itemID := m.selected, item.item.ID
		return m, run("complete", func() error { return m.courses.Complete(courseID, itemID) })
	}

	var cmd tea.Cmd
	m.chapters, cmd = m.chapters.Update(msg)
	return m, cmd
}

func (m *Model) handleContentKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.back) {
		if m.selected != 0 {
			m.openCourse(m.selected)
		} else {
			m.view = ChatView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.content, cmd = m.content.Update(msg)
	return m, cmd
}

func (m *Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ChatView:
		m.input, cmd = m.input.Update(msg)
	case CourseListView:
		m.courseList, cmd = m.courseList.Update(msg)
	case CourseDetailView:
		m.chapters, cmd = m.chapters.Update(msg)
	case ContentView:
		m.content, cmd = m.content.Update(msg)
	}
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	body := max(height-8, 3)

	m.transcript.Width, m.transcript.Height = width, body
	m.content.Width, m.content.Height = width, body
	m.input.Width = max(width-4, 10)
	m.courseList.SetSize(width, body+2)
	m.chapters.SetSize(width, body+2)
	m.renderTranscript()
}

func (m *Model) refreshCourses() {
	m.courseList.SetItems(courseItems(m.courses.Courses()))

	if m.view == CourseDetailView || m.view == ContentView {
		if _, ok := m.courses.Course(m.selected); !ok {
			m.selected = 0
			m.view = CourseListView
			return
		}
	}
	if m.selected != 0 {
		if c, ok := m.courses.Course(m.selected); ok {
			idx := m.chapters.Index()
			m.chapters.SetItems(chapterItems(c))
			m.chapters.Select(idx)
		}
	}
}

func (m *Model) openCourse(id int) {
	c, ok := m.courses.Course(id)
	if !ok {
		m.alert = fmt.Errorf("course %d no longer exists", id)
		m.view = CourseListView
		return
	}
	m.selected = id
	m.chapters.Title = c.Title
	m.chapters.SetItems(chapterItems(c))
	m.view = CourseDetailView
}

func (m *Model) showContent(c models.Course, itemID int, content string) {
	title := c.Title
	if item := c.Item(itemID); item != nil {
		title = fmt.Sprintf("%s › %s", c.Title, item.SubTitle)
	}
	m.selected = c.ID
	m.contentTitle = title
	m.content.SetContent(wrap(content, m.content.Width))
	m.content.GotoTop()
	m.view = ContentView
}

func (m *Model) renderTranscript() {
	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		style := styles.assistant
		if msg.IsUser {
			style = styles.user
		}
		b.WriteString(style.Render(msg.Author()))
		b.WriteString(styles.help.Render(" " + msg.CreatedAt.Format("15:04")))
		b.WriteString("\n")
		b.WriteString(wrap(msg.Content, m.transcript.Width))
	}
	m.transcript.SetContent(b.String())
	m.transcript.GotoBottom()
}

func (m *Model) renderChat() string {
	status := styles.warn.Render("connecting...")
	if m.ready {
		status = styles.ok.Render(fmt.Sprintf("%d courses", len(m.courses.Courses())))
	}
	header := styles.title.Render("coursechat") + "  " + status

	var footer string
	switch {
	case m.confirmation != nil:
		footer = styles.dialog.Render(fmt.Sprintf("%s\n\n%s", m.confirmation.Message,
			m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})))
	case m.prompt != nil:
		footer = styles.dialog.Render(fmt.Sprintf("Start studying %q now?\n\n%s", m.prompt.Title,
			m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})))
	default:
		footer = fmt.Sprintf("%s\n%s", m.input.View(),
			m.help.ShortHelpView([]key.Binding{m.keys.send, m.keys.courses, m.keys.quit}))
	}

	return fmt.Sprintf("%s\n%s\n\n%s", header, m.transcript.View(), footer)
}

func (m *Model) renderCourseList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.remove, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.courseList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderCourseDetail() string {
	studyKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "study"))
	helpKeys := []key.Binding{studyKey, m.keys.complete, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.chapters.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderContent() string {
	title := styles.title.Render(m.contentTitle)
	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.content.View(), m.help.ShortHelpView(helpKeys))
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}
