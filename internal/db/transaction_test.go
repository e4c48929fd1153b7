package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errLocked = errors.New("database is locked (5) (SQLITE_BUSY)")

func TestBusyRetryBacksOffUntilSuccess(t *testing.T) {
	policy := busyRetry{attempts: 4, backoff: time.Millisecond}
	calls := 0
	var waits []time.Duration

	err := policy.do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("save messages: %w", errLocked)
		}
		return nil
	}, func(attempt int, wait time.Duration, err error) {
		waits = append(waits, wait)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestBusyRetryGivesUp(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{"non-busy error", errors.New("constraint failed"), 1},
		{"busy until max attempts", errLocked, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := busyRetry{attempts: 2, backoff: time.Millisecond}.do(context.Background(), func() error {
				calls++
				return tt.err
			}, nil)
			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestBusyRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := defaultBusyRetry.do(ctx, func() error {
		called = true
		return nil
	}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestIsBusyError(t *testing.T) {
	assert.True(t, isBusyError(errLocked))
	assert.True(t, isBusyError(fmt.Errorf("wrapped: %w", errors.New("SQLITE_BUSY"))))
	assert.False(t, isBusyError(nil))
	assert.False(t, isBusyError(context.DeadlineExceeded))
	assert.False(t, isBusyError(errors.New("UNIQUE constraint failed: messages.id")))
}

func TestWriteRollsBackBusyAttempt(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	attempts := 0

	err := database.writeWith(ctx, busyRetry{attempts: 3, backoff: time.Millisecond}, "sessions.save",
		func(tx *sql.Tx) error {
			attempts++
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO inbox_sessions (id, start_time, end_time, total_message_count, unread_message_count)
				VALUES ('s1', '2026-07-01T12:00:00Z', '2026-07-01T12:01:00Z', 2, 1)
			`); err != nil {
				return err
			}
			if attempts == 1 {
				return errLocked
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	var count int
	require.NoError(t, database.QueryRowContext(ctx, `SELECT COUNT(*) FROM inbox_sessions`).Scan(&count))
	assert.Equal(t, 1, count)
}
