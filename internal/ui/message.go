package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/coursechat/internal/loop"
	"github.com/desertthunder/coursechat/internal/session"
)

// eventMsg carries a session event into the update loop.
type eventMsg session.Event

// inboxClosedMsg is sent once the inbox stops delivering.
type inboxClosedMsg struct{}

// opDoneMsg reports the outcome of a user action.
type opDoneMsg struct {
	op  string
	err error
}

func waitForEvent(ctx context.Context, inbox *Inbox) tea.Cmd {
	return func() tea.Msg {
		e, ok := inbox.Next(ctx)
		if !ok {
			return inboxClosedMsg{}
		}
		return eventMsg(e)
	}
}

func awaitFuture[T any](ctx context.Context, op string, f *loop.Future[T]) tea.Cmd {
	return func() tea.Msg {
		_, err := f.Wait(ctx)
		return opDoneMsg{op: op, err: err}
	}
}

func run(op string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn()}
	}
}
