package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/desertthunder/coursechat/internal/formatter"
	"github.com/desertthunder/coursechat/internal/shared"
	"github.com/urfave/cli/v3"
)

// Send sends one message to the assistant and answers a confirmation request on the terminal.
func (r *Runner) Send(ctx context.Context, cmd *cli.Command) error {
	text := strings.TrimSpace(cmd.StringArg("message"))
	if text == "" {
		return fmt.Errorf("%w: message is required", shared.ErrMissingArgument)
	}
	if cmd.Bool("yes") && cmd.Bool("no") {
		return fmt.Errorf("%w: cannot specify both --yes and --no", shared.ErrInvalidArgument)
	}

	a, err := r.start(ctx, appOpts{transcript: true})
	if err != nil {
		return err
	}
	defer a.close()

	reply, err := a.session.SendUserMessage(ctx, text).Wait(ctx)
	if err != nil {
		return err
	}

	if !reply.NeedConfirm {
		return r.writePlain("%s\n", reply.Message.Content)
	}

	accept, err := r.decide(cmd, reply.Request.Message)
	if err != nil {
		return err
	}

	if !accept {
		if err := a.session.Cancel(ctx); err != nil {
			return err
		}
		return r.writePlain("Cancelled, %q was not created.\n", reply.Request.Title)
	}

	ack, err := a.session.Confirm(ctx).Wait(ctx)
	if err != nil {
		return err
	}
	r.writePlain("✓ %s\n", ack)
	r.writePlain("Run 'coursechat check' to pick up the course once it is ready.\n")
	return nil
}

// decide answers a confirmation from the --yes/--no flags or by asking on the input.
func (r *Runner) decide(cmd *cli.Command, question string) (bool, error) {
	switch {
	case cmd.Bool("yes"):
		return true, nil
	case cmd.Bool("no"):
		return false, nil
	}

	r.writePlain("%s [y/N]: ", question)
	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Check asks the backend once for pushed messages and finished courses.
func (r *Runner) Check(ctx context.Context, cmd *cli.Command) error {
	a, err := r.start(ctx, appOpts{transcript: true})
	if err != nil {
		return err
	}
	defer a.close()

	update, err := a.session.CheckForUpdates(ctx).Wait(ctx)
	if err != nil {
		return err
	}

	if update.Message == nil && update.Course == nil {
		return r.writePlain("No updates.\n")
	}

	if update.Message != nil {
		r.writePlain("%s: %s\n", update.Message.Author(), update.Message.Content)
	}

	if update.Course == nil {
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("New course #%d", update.Course.ID))
	if _, err := r.output.Write(formatter.CourseToText(*update.Course)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if update.Prompt == nil {
		return nil
	}

	if !cmd.Bool("study") {
		_, err := a.session.AnswerStudyPrompt(ctx, false).Wait(ctx)
		r.writePlainln("Start studying with: coursechat courses study %d %d", update.Prompt.CourseID, update.Prompt.ItemID+1)
		return err
	}

	content, err := a.session.AnswerStudyPrompt(ctx, true).Wait(ctx)
	if err != nil {
		return err
	}
	return r.writePlainln("%s", content)
}
