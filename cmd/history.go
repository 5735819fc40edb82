package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/coursechat/internal/formatter"
	"github.com/desertthunder/coursechat/internal/models"
	"github.com/desertthunder/coursechat/internal/repositories"
	"github.com/urfave/cli/v3"
)

// History prints an archived chat transcript, or the list of archived sessions.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewTranscriptRepository(db)

	if cmd.Bool("sessions") {
		sessions, err := repo.Sessions()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			return r.writePlain("No archived sessions.\n")
		}
		r.writePlain("%-36s %-8s %-19s %s\n", "SESSION", "MESSAGES", "STARTED", "ENDED")
		for _, s := range sessions {
			r.writePlain("%-36s %-8d %-19s %s\n", s.SessionID, s.Messages,
				s.StartedAt.Local().Format(time.DateTime), s.EndedAt.Local().Format(time.DateTime))
		}
		return nil
	}

	entries, err := repo.List(cmd.String("session"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return r.writePlain("No messages.\n")
	}

	msgs := make([]models.Message, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, e.Message)
	}

	var out []byte
	if cmd.Bool("markdown") {
		out = formatter.ConversationToMarkdown(fmt.Sprintf("Session %s", entries[0].SessionID), msgs)
	} else {
		out = formatter.ConversationToText(msgs)
	}

	if _, err := r.output.Write(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
