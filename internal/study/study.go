// Package study fetches generated study content for one chapter and records it in the course store.
package study

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursechat/internal/identity"
	"github.com/desertthunder/coursechat/internal/loop"
	"github.com/desertthunder/coursechat/internal/models"
	"github.com/desertthunder/coursechat/internal/services"
	"github.com/desertthunder/coursechat/internal/shared"
)

// ErrBusy is returned when a study request is started while another is outstanding.
var ErrBusy = fmt.Errorf("%w: a study request is already in flight", shared.ErrOperationRejected)

// ItemUpdater is the part of the course store the controller writes to.
type ItemUpdater interface {
	UpdateItem(courseID, itemID int, fn func(*models.OutlineItem)) bool
}

// Opts configures a [Controller]. Every field except Logger is required.
type Opts struct {
	Transport services.Transport
	Identity  identity.Provider
	Courses   ItemUpdater
	Loop      *loop.Loop
	Logger    *log.Logger
}

// Controller runs at most one study request at a time.
type Controller struct {
	transport services.Transport
	identity  identity.Provider
	courses   ItemUpdater
	loop      *loop.Loop
	logger    *log.Logger
	inFlight  atomic.Bool
}

// New creates a controller.
func New(opts Opts) (*Controller, error) {
	if opts.Transport == nil || opts.Identity == nil || opts.Courses == nil || opts.Loop == nil {
		return nil, fmt.Errorf("%w: study controller needs transport, identity, courses and loop", shared.ErrMissingArgument)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Controller{
		transport: opts.Transport,
		identity:  opts.Identity,
		courses:   opts.Courses,
		loop:      opts.Loop,
		logger:    logger.With("component", "study"),
	}, nil
}

// Busy reports whether a request is outstanding.
func (c *Controller) Busy() bool {
	return c.inFlight.Load()
}

// Start requests study content for chapter itemID of course courseID.
//
// On success the chapter's detail content is set, its status becomes in progress, and the future resolves
// with the content. The store update runs on the loop. A call made while another is outstanding resolves
// immediately with [ErrBusy].
func (c *Controller) Start(ctx context.Context, courseID, itemID int) *loop.Future[string] {
	if !c.inFlight.CompareAndSwap(false, true) {
		c.logger.Debug("study request rejected, one already in flight", "course", courseID, "item", itemID)
		return loop.Resolved("", ErrBusy)
	}

	payload := map[string]any{
		services.FieldUserID:        c.identity.UserID(),
		services.FieldCourseID:      courseID,
		services.FieldOutlineItemID: itemID,
	}

	c.logger.Info("requesting study content", "course", courseID, "item", itemID)

	f := loop.Async(c.loop, ctx, func(ctx context.Context) (map[string]any, error) {
		return c.transport.Send(ctx, services.EndpointStudy, payload)
	}, func(resp map[string]any, err error) (string, error) {
		defer c.inFlight.Store(false)
		return c.apply(courseID, itemID, resp, err)
	})

	// Cleared here too when the loop stops before the callback runs.
	go func() {
		<-f.Done()
		c.inFlight.Store(false)
	}()

	return f
}

func (c *Controller) apply(courseID, itemID int, resp map[string]any, err error) (string, error) {
	if err != nil {
		c.logger.Warn("study request failed", "course", courseID, "item", itemID, "error", err)
		return "", fmt.Errorf("%w: study: %v", shared.ErrRequestFailed, err)
	}

	content, ok := services.String(resp, services.FieldContent)
	if !ok {
		c.logger.Warn("study response missing content", "course", courseID, "item", itemID)
		return "", fmt.Errorf("%w: study response has no string content", shared.ErrMalformedResponse)
	}

	updated := c.courses.UpdateItem(courseID, itemID, func(item *models.OutlineItem) {
		item.DetailContent = models.StringPtr(content)
		item.Status = models.InProgress
	})
	if !updated {
		c.logger.Debug("study content for unknown chapter, store not updated", "course", courseID, "item", itemID)
	}

	return content, nil
}
