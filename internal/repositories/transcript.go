package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/coursechat/internal/models"
)

// TranscriptEntry is an archived message.
type TranscriptEntry struct {
	Sequence  int
	SessionID string
	Message   models.Message
}

// SessionSummary describes one archived chat session.
type SessionSummary struct {
	SessionID string
	Messages  int
	StartedAt time.Time
	EndedAt   time.Time
}

// TranscriptRepository stores archived chat messages.
type TranscriptRepository struct {
	db *sql.DB
}

// NewTranscriptRepository creates a new [TranscriptRepository] with the given database connection
func NewTranscriptRepository(db *sql.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// Append archives msg under sessionID and returns its sequence number.
func (r *TranscriptRepository) Append(sessionID string, msg models.Message) (int, error) {
	sequence, err := NextSequence(r.db, "transcript")
	if err != nil {
		return 0, fmt.Errorf("failed to generate sequence: %w", err)
	}

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO transcript (id, session_id, sequence, content, is_user, created_at) VALUES (?, ?, ?, ?, ?, ?)
	`

	if _, err := r.db.Exec(query, msg.ID, sessionID, sequence, msg.Content, msg.IsUser, createdAt.UTC()); err != nil {
		return 0, fmt.Errorf("failed to insert message: %w", err)
	}

	return sequence, nil
}

// List returns the messages of a session in order. An empty sessionID selects the most recent session.
// A positive limit keeps only the last limit messages.
func (r *TranscriptRepository) List(sessionID string, limit int) ([]TranscriptEntry, error) {
	if sessionID == "" {
		err := r.db.QueryRow("SELECT session_id FROM transcript ORDER BY sequence DESC LIMIT 1").Scan(&sessionID)
		if err == sql.ErrNoRows {
			return []TranscriptEntry{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find latest session: %w", err)
		}
	}

	query := `
		SELECT id, session_id, sequence, content, is_user, created_at
		FROM transcript
		WHERE session_id = ?
		ORDER BY sequence DESC
	`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	defer rows.Close()

	entries := []TranscriptEntry{}
	for rows.Next() {
		var e TranscriptEntry
		if err := rows.Scan(&e.Message.ID, &e.SessionID, &e.Sequence, &e.Message.Content, &e.Message.IsUser, &e.Message.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

// Sessions summarises archived sessions, most recent first.
func (r *TranscriptRepository) Sessions() ([]SessionSummary, error) {
	query := `
		SELECT session_id, COUNT(*), MIN(created_at), MAX(created_at), MAX(sequence) AS last
		FROM transcript
		GROUP BY session_id
		ORDER BY last DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionSummary{}
	for rows.Next() {
		var (
			s            SessionSummary
			started, end string
			last         int
		)
		if err := rows.Scan(&s.SessionID, &s.Messages, &started, &end, &last); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.StartedAt = parseSQLiteTime(started)
		s.EndedAt = parseSQLiteTime(end)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

// Aggregates over TIMESTAMP columns come back as text rather than time.Time.
func parseSQLiteTime(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
