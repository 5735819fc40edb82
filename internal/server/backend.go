package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursechat/internal/models"
	"github.com/desertthunder/coursechat/internal/services"
	"github.com/google/uuid"
)

const maxPayloadBytes = 1 << 20

var (
	errBadPayload = errors.New("request body must be a JSON object")
	errNoUser     = errors.New("userID is required")
)

// directPrefix marks dialogue text that is added without asking for confirmation.
const directPrefix = "add "

var titlePrefixes = []string{
	"remind me to ",
	"create a course on ",
	"create a course about ",
	"i want to learn ",
	"teach me ",
}

// account is the backend state of one user.
type account struct {
	pending map[string]string // ssid -> title
	ready   []models.Course   // delivered by the next /check
	courses []models.Course
}

// Backend is an in-memory implementation of the assistant backend.
//
// Dialogue text asks for confirmation, confirmed titles become generated three-chapter courses that the next
// /check delivers, and the course list reflects everything delivered and not deleted.
type Backend struct {
	mu       sync.Mutex
	accounts map[string]*account
	nextID   int
	logger   *log.Logger
}

// NewBackend creates an empty backend.
func NewBackend(logger *log.Logger) *Backend {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Backend{
		accounts: make(map[string]*account),
		nextID:   1,
		logger:   logger.With("component", "backend"),
	}
}

// Routes returns the backend endpoints.
func (b *Backend) Routes() []string {
	routes := make([]string, len(services.Endpoints))
	for i, e := range services.Endpoints {
		routes[i] = string(e)
	}
	return routes
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	payload, err := readPayload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := services.String(payload, services.FieldUserID)
	if userID == "" {
		writeError(w, http.StatusBadRequest, errNoUser.Error())
		return
	}

	var (
		status = http.StatusOK
		resp   map[string]any
	)

	switch services.Endpoint(r.URL.Path) {
	case services.EndpointDialogue:
		status, resp = b.dialogue(userID, payload)
	case services.EndpointConfirm:
		status, resp = b.confirm(userID, payload)
	case services.EndpointCheck:
		resp = b.check(userID)
	case services.EndpointCourseList:
		resp = b.courseList(userID)
	case services.EndpointStudy:
		status, resp = b.study(userID, payload)
	case services.EndpointDelete:
		status, resp = b.delete(userID, payload)
	default:
		status, resp = http.StatusNotFound, errorBody("unknown endpoint")
	}

	writeJSON(w, status, resp)
}

// Enqueue generates a course for userID that the next /check delivers.
func (b *Backend) Enqueue(userID, title string) models.Course {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enqueueLocked(b.account(userID), title)
}

// Courses returns the courses delivered to userID.
func (b *Backend) Courses(userID string) []models.Course {
	b.mu.Lock()
	defer b.mu.Unlock()

	acct := b.account(userID)
	out := make([]models.Course, len(acct.courses))
	for i, c := range acct.courses {
		out[i] = c.Clone()
	}
	return out
}

func (b *Backend) dialogue(userID string, payload map[string]any) (int, map[string]any) {
	text, _ := services.String(payload, services.FieldData)
	text = strings.TrimSpace(text)
	if text == "" {
		return http.StatusBadRequest, errorBody("data is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acct := b.account(userID)
	ssid := uuid.NewString()

	if rest, ok := cutPrefixFold(text, directPrefix); ok && strings.TrimSpace(rest) != "" {
		title := strings.TrimSpace(rest)
		b.enqueueLocked(acct, title)
		b.logger.Debug("dialogue added without confirmation", "user", userID, "title", title)
		return http.StatusOK, map[string]any{
			services.FieldNeedConfirm: false,
			services.FieldConfirmStr:  "",
			services.FieldTitle:       title,
			services.FieldSSID:        ssid,
		}
	}

	title := deriveTitle(text)
	acct.pending[ssid] = title
	b.logger.Debug("dialogue awaiting confirmation", "user", userID, "title", title, "ssid", ssid)

	return http.StatusOK, map[string]any{
		services.FieldNeedConfirm: true,
		services.FieldConfirmStr:  fmt.Sprintf("Create a course on %q?", title),
		services.FieldTitle:       title,
		services.FieldSSID:        ssid,
	}
}

func (b *Backend) confirm(userID string, payload map[string]any) (int, map[string]any) {
	ssid, _ := services.String(payload, services.FieldSSID)
	title, _ := services.String(payload, services.FieldTitle)

	b.mu.Lock()
	defer b.mu.Unlock()
	acct := b.account(userID)

	pendingTitle, ok := acct.pending[ssid]
	if !ok {
		return http.StatusNotFound, errorBody("unknown ssid")
	}
	delete(acct.pending, ssid)

	if title = strings.TrimSpace(title); title == "" {
		title = pendingTitle
	}
	course := b.enqueueLocked(acct, title)
	b.logger.Info("course queued", "user", userID, "id", course.ID, "title", title)

	return http.StatusOK, map[string]any{"message": fmt.Sprintf("course %q is being prepared", title)}
}

func (b *Backend) check(userID string) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	acct := b.account(userID)

	if len(acct.ready) == 0 {
		return map[string]any{}
	}

	course := acct.ready[0]
	acct.ready = acct.ready[1:]
	acct.courses = append(acct.courses, course)

	outline := make(map[string][2]string, len(course.Outline))
	for _, item := range course.Outline {
		outline[strconv.Itoa(item.ID)] = [2]string{item.SubTitle, item.Content}
	}
	raw, _ := json.Marshal(outline)

	b.logger.Info("course delivered", "user", userID, "id", course.ID)
	return map[string]any{
		services.FieldNewMessage:     fmt.Sprintf("Your course %q is ready.", course.Title),
		services.FieldCourseTitle:    course.Title,
		services.FieldCheckCourseID:  course.ID,
		services.FieldOutlineContent: string(raw),
	}
}

func (b *Backend) courseList(userID string) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	acct := b.account(userID)

	data := make([]map[string]any, 0, len(acct.courses))
	for _, c := range acct.courses {
		chapters := make([]map[string]any, 0, len(c.Outline))
		for _, item := range c.Outline {
			chapters = append(chapters, map[string]any{
				services.FieldTitle:   item.SubTitle,
				services.FieldContent: item.Content,
				services.FieldStatus:  int(item.Status),
			})
		}
		data = append(data, map[string]any{
			services.FieldCourseID: c.ID,
			services.FieldTitle:    c.Title,
			services.FieldChapters: chapters,
		})
	}

	return map[string]any{services.FieldData: data}
}

func (b *Backend) study(userID string, payload map[string]any) (int, map[string]any) {
	courseID, ok1 := services.Int(payload, services.FieldCourseID)
	itemID, ok2 := services.Int(payload, services.FieldOutlineItemID)
	if !ok1 || !ok2 {
		return http.StatusBadRequest, errorBody("courseID and outlineitemID are required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acct := b.account(userID)

	idx := indexOf(acct.courses, courseID)
	if idx < 0 {
		return http.StatusNotFound, errorBody("unknown course")
	}
	course := &acct.courses[idx]
	item := course.Item(itemID)
	if item == nil {
		return http.StatusNotFound, errorBody("unknown chapter")
	}
	if item.Status == models.NotStarted {
		item.Status = models.InProgress
	}

	return http.StatusOK, map[string]any{services.FieldContent: studyContent(course.Title, *item)}
}

func (b *Backend) delete(userID string, payload map[string]any) (int, map[string]any) {
	courseID, ok := services.Int(payload, services.FieldCourseID)
	if !ok {
		return http.StatusBadRequest, errorBody("courseID is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acct := b.account(userID)

	idx := indexOf(acct.courses, courseID)
	if idx < 0 {
		return http.StatusNotFound, errorBody("unknown course")
	}
	acct.courses = append(acct.courses[:idx], acct.courses[idx+1:]...)
	b.logger.Info("course deleted", "user", userID, "id", courseID)

	return http.StatusOK, map[string]any{services.FieldStatus: "deleted"}
}

func (b *Backend) account(userID string) *account {
	acct, ok := b.accounts[userID]
	if !ok {
		acct = &account{pending: make(map[string]string)}
		b.accounts[userID] = acct
	}
	return acct
}

func (b *Backend) enqueueLocked(acct *account, title string) models.Course {
	course := models.Course{ID: b.nextID, Title: title, Outline: generateOutline(title)}
	b.nextID++
	acct.ready = append(acct.ready, course)
	return course.Clone()
}

func generateOutline(title string) []models.OutlineItem {
	return []models.OutlineItem{
		{ID: 0, SubTitle: "Introduction", Content: fmt.Sprintf("What %s is and where it shows up", title)},
		{ID: 1, SubTitle: "Core concepts", Content: fmt.Sprintf("The key ideas behind %s", title)},
		{ID: 2, SubTitle: "Practice", Content: fmt.Sprintf("Exercises that apply %s", title)},
	}
}

func studyContent(courseTitle string, item models.OutlineItem) string {
	return fmt.Sprintf("%s: %s\n\n%s.\n\nWork through the exercises, then mark the chapter complete.",
		courseTitle, item.SubTitle, item.Content)
}

func deriveTitle(text string) string {
	for _, p := range titlePrefixes {
		if rest, ok := cutPrefixFold(text, p); ok && strings.TrimSpace(rest) != "" {
			text = rest
			break
		}
	}
	return strings.TrimRight(strings.TrimSpace(text), ".!?")
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func indexOf(courses []models.Course, id int) int {
	for i, c := range courses {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func readPayload(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil || payload == nil {
		return nil, errBadPayload
	}
	return payload, nil
}

func errorBody(msg string) map[string]any {
	return map[string]any{"error": msg}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody(msg))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
