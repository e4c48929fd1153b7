package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// busyRetry bounds how often a write is retried while another process
// (a second CLI run, the watch poller) holds the SQLite write lock.
type busyRetry struct {
	attempts int
	backoff  time.Duration
}

var defaultBusyRetry = busyRetry{attempts: 3, backoff: 50 * time.Millisecond}

// write runs fn in a transaction and retries it while the database is
// busy. op names the write in logs ("messages.save", "sessions.save").
func (db *DB) write(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	return db.writeWith(ctx, defaultBusyRetry, op, fn)
}

func (db *DB) writeWith(ctx context.Context, policy busyRetry, op string, fn func(*sql.Tx) error) error {
	return policy.do(ctx, func() error {
		return db.Transaction(ctx, fn)
	}, func(attempt int, wait time.Duration, err error) {
		db.logger.Warn().
			Str("op", op).
			Int("attempt", attempt).
			Dur("wait", wait).
			Err(err).
			Msg("database busy, retrying")
	})
}

// do calls fn until it succeeds, fails with a non-busy error or runs out
// of attempts. onRetry is called before each wait.
func (p busyRetry) do(ctx context.Context, fn func() error, onRetry func(attempt int, wait time.Duration, err error)) error {
	attempts := p.attempts
	if attempts <= 0 {
		attempts = defaultBusyRetry.attempts
	}
	wait := p.backoff
	if wait <= 0 {
		wait = defaultBusyRetry.backoff
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if err == nil || !isBusyError(err) || attempt >= attempts {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, wait, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
}

// isBusyError reports whether err is SQLITE_BUSY or SQLITE_LOCKED. Errors
// that lost their driver type are matched on the SQLite message text.
func isBusyError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}

	message := strings.ToLower(err.Error())
	return strings.Contains(message, "database is locked") ||
		strings.Contains(message, "database is busy") ||
		strings.Contains(message, "sqlite_busy")
}
