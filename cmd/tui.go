package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/coursechat/internal/shared"
	"github.com/desertthunder/coursechat/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// Chat launches the interactive chat TUI and polls for updates while it is open.
func (r *Runner) Chat(ctx context.Context, cmd *cli.Command) error {
	if cmd.IsSet("poll") {
		r.config.Session.PollInterval = cmd.Duration("poll")
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.LogPath())
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	if lvl, err := shared.ParseLevel(r.config.Logging.Level); err == nil {
		shared.SetLogLevel(fileLogger, lvl)
	}
	r.SetLogger(fileLogger)

	inbox := ui.NewInbox()
	a, err := r.open(appOpts{notify: inbox.Push, transcript: true})
	if err != nil {
		return err
	}
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)

	model := ui.NewModel(gctx, a.session, a.store, inbox)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))

	g.Go(func() error {
		if err := a.session.Init(gctx); err != nil {
			return err
		}
		return a.session.StartPolling()
	})

	g.Go(func() error {
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
