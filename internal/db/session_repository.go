package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tOgg1/inapp/internal/models"
)

// ErrSessionNotFound is returned when an inbox session does not exist.
var ErrSessionNotFound = errors.New("inbox session not found")

// SessionRepository persists finished inbox sessions and their impressions.
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save stores a finished session. Saving the same session ID again
// replaces the earlier summary.
func (r *SessionRepository) Save(ctx context.Context, info *models.SessionInfo) error {
	if info == nil || info.Start.ID == "" {
		return fmt.Errorf("session id is required")
	}

	return r.db.write(ctx, "sessions.save", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM inbox_impressions WHERE session_id = ?`, info.Start.ID); err != nil {
			return fmt.Errorf("failed to clear impressions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM inbox_sessions WHERE id = ?`, info.Start.ID); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO inbox_sessions (id, start_time, end_time, total_message_count, unread_message_count)
			VALUES (?, ?, ?, ?, ?)
		`,
			info.Start.ID,
			info.Start.StartTime.UTC().Format(time.RFC3339Nano),
			info.EndTime.UTC().Format(time.RFC3339Nano),
			info.Start.TotalMessageCount,
			info.Start.UnreadMessageCount,
		); err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}

		for _, imp := range info.Impressions {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO inbox_impressions (session_id, message_id, silent_inbox, first_shown_at, display_count, duration_ms)
				VALUES (?, ?, ?, ?, ?, ?)
			`,
				info.Start.ID,
				imp.MessageID,
				imp.SilentInbox,
				imp.FirstShownAt.UTC().Format(time.RFC3339Nano),
				imp.DisplayCount,
				imp.Duration.Milliseconds(),
			); err != nil {
				return fmt.Errorf("failed to insert impression %s: %w", imp.MessageID, err)
			}
		}
		return nil
	})
}

// Get loads a session with its impressions.
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.SessionInfo, error) {
	info := &models.SessionInfo{}
	var start, end string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, start_time, end_time, total_message_count, unread_message_count
		FROM inbox_sessions WHERE id = ?
	`, id).Scan(&info.Start.ID, &start, &end, &info.Start.TotalMessageCount, &info.Start.UnreadMessageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	info.Start.StartTime, _ = time.Parse(time.RFC3339Nano, start)
	info.EndTime, _ = time.Parse(time.RFC3339Nano, end)

	impressions, err := r.impressions(ctx, id)
	if err != nil {
		return nil, err
	}
	info.Impressions = impressions
	return info, nil
}

// List returns the most recent sessions first, without impressions.
func (r *SessionRepository) List(ctx context.Context, limit int) ([]*models.SessionInfo, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, start_time, end_time, total_message_count, unread_message_count
		FROM inbox_sessions ORDER BY start_time DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.SessionInfo
	for rows.Next() {
		info := &models.SessionInfo{}
		var start, end string
		if err := rows.Scan(&info.Start.ID, &start, &end, &info.Start.TotalMessageCount, &info.Start.UnreadMessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		info.Start.StartTime, _ = time.Parse(time.RFC3339Nano, start)
		info.EndTime, _ = time.Parse(time.RFC3339Nano, end)
		sessions = append(sessions, info)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) impressions(ctx context.Context, sessionID string) ([]models.Impression, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT message_id, silent_inbox, first_shown_at, display_count, duration_ms
		FROM inbox_impressions WHERE session_id = ?
		ORDER BY first_shown_at, message_id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query impressions: %w", err)
	}
	defer rows.Close()

	var out []models.Impression
	for rows.Next() {
		var imp models.Impression
		var firstShown string
		var durationMs int64
		if err := rows.Scan(&imp.MessageID, &imp.SilentInbox, &firstShown, &imp.DisplayCount, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan impression: %w", err)
		}
		imp.FirstShownAt, _ = time.Parse(time.RFC3339Nano, firstShown)
		imp.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, imp)
	}
	return out, rows.Err()
}
