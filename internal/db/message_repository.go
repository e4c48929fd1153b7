package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tOgg1/inapp/internal/models"
)

// MessageRepository persists the ordered message store.
type MessageRepository struct {
	db *DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// SaveAll replaces the persisted messages with messages, keeping their
// order in the position column. An invalid set is rejected before anything
// is written.
func (r *MessageRepository) SaveAll(ctx context.Context, messages []*models.Message) error {
	if err := models.ValidateMessages(messages); err != nil {
		return fmt.Errorf("invalid message set: %w", err)
	}
	return r.db.write(ctx, "messages.save", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
			return fmt.Errorf("failed to clear messages: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO messages (
				id, position, priority, trigger_kind, campaign_id, created_at, expires_at,
				save_to_inbox, silent_inbox, read, consumed, did_process_trigger, pinned, content
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare message insert: %w", err)
		}
		defer stmt.Close()

		for i, m := range messages {
			var content *string
			if len(m.Content) > 0 {
				s := string(m.Content)
				content = &s
			}
			if _, err := stmt.ExecContext(ctx,
				m.ID,
				i,
				m.Priority,
				string(m.Trigger),
				m.CampaignID,
				formatTime(m.CreatedAt),
				formatTime(m.ExpiresAt),
				m.SaveToInbox,
				m.SilentInbox,
				m.Read,
				m.Consumed,
				m.DidProcessTrigger,
				m.Pinned,
				content,
			); err != nil {
				return fmt.Errorf("failed to insert message %s: %w", m.ID, err)
			}
		}
		return nil
	})
}

// LoadAll returns the persisted messages in stored order.
func (r *MessageRepository) LoadAll(ctx context.Context) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, priority, trigger_kind, campaign_id, created_at, expires_at,
			save_to_inbox, silent_inbox, read, consumed, did_process_trigger, pinned, content
		FROM messages
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var (
			m                    models.Message
			trigger              string
			createdAt, expiresAt sql.NullString
			content              sql.NullString
		)
		if err := rows.Scan(
			&m.ID,
			&m.Priority,
			&trigger,
			&m.CampaignID,
			&createdAt,
			&expiresAt,
			&m.SaveToInbox,
			&m.SilentInbox,
			&m.Read,
			&m.Consumed,
			&m.DidProcessTrigger,
			&m.Pinned,
			&content,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Trigger = models.TriggerKind(trigger)
		m.CreatedAt = parseTime(createdAt)
		m.ExpiresAt = parseTime(expiresAt)
		if content.Valid {
			m.Content = json.RawMessage(content.String)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// Count returns the number of persisted messages.
func (r *MessageRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

func parseTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}
