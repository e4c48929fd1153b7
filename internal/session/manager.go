// Package session tracks inbox viewing sessions and message impressions.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tOgg1/inapp/internal/logging"
	"github.com/tOgg1/inapp/internal/models"
)

// Session errors.
var (
	ErrSessionActive = errors.New("inbox session already started")
	ErrNoSession     = errors.New("no active inbox session")
)

// InboxCounter reports inbox sizes at session start.
type InboxCounter interface {
	InboxCounts() (total, unread int)
}

// InboxCounterFunc adapts a function to InboxCounter.
type InboxCounterFunc func() (total, unread int)

// InboxCounts implements InboxCounter.
func (f InboxCounterFunc) InboxCounts() (int, int) { return f() }

// Manager owns at most one active inbox session.
type Manager struct {
	mu      sync.Mutex
	counter InboxCounter
	now     func() time.Time
	newID   func() string
	logger  zerolog.Logger

	start   *models.SessionStartInfo
	tracker *ImpressionTracker
}

// Option configures a Manager.
type Option func(*Manager)

// WithNow sets the clock used for session and impression times.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator sets the session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// NewManager creates a session Manager. counter may be nil, in which case
// sessions start with zero counts.
func NewManager(counter InboxCounter, opts ...Option) *Manager {
	m := &Manager{
		counter: counter,
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  logging.Component("inbox-session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartSession begins a session with the initially visible rows.
func (m *Manager) StartSession(rows []models.RowInfo) (models.SessionStartInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.start != nil {
		m.logger.Error().Str("session_id", m.start.ID).Msg("session started twice")
		return models.SessionStartInfo{}, ErrSessionActive
	}

	info := models.SessionStartInfo{
		ID:        m.newID(),
		StartTime: m.now(),
	}
	if m.counter != nil {
		info.TotalMessageCount, info.UnreadMessageCount = m.counter.InboxCounts()
	}

	m.start = &info
	m.tracker = NewImpressionTracker(m.now)
	m.tracker.UpdateVisibleRows(rows)

	log := logging.WithSession(info.ID)
	log.Info().
		Int("total", info.TotalMessageCount).
		Int("unread", info.UnreadMessageCount).
		Int("visible", len(rows)).
		Msg("inbox session started")
	return info, nil
}

// UpdateVisibleRows forwards the current visible rows to the impression tracker.
func (m *Manager) UpdateVisibleRows(rows []models.RowInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tracker == nil {
		m.logger.Error().Msg("visible rows updated without an active session")
		return ErrNoSession
	}
	m.tracker.UpdateVisibleRows(rows)
	return nil
}

// EndSession closes all impressions and returns the session summary.
func (m *Manager) EndSession() (*models.SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.start == nil || m.tracker == nil {
		m.logger.Error().Msg("session ended without start")
		return nil, ErrNoSession
	}

	info := &models.SessionInfo{
		Start:       *m.start,
		Impressions: m.tracker.End(),
		EndTime:     m.now(),
	}
	m.start = nil
	m.tracker = nil

	log := logging.WithSession(info.Start.ID)
	log.Info().
		Int("impressions", len(info.Impressions)).
		Dur("elapsed", info.EndTime.Sub(info.Start.StartTime)).
		Msg("inbox session ended")
	return info, nil
}

// Active reports whether a session is in progress.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.start != nil
}

// SessionID returns the active session id, or "" when none is active.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.start == nil {
		return ""
	}
	return m.start.ID
}
