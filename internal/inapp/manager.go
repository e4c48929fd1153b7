// Package inapp merges server message sets into the local inbox and picks
// the next message to present.
package inapp

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/inapp/internal/events"
	"github.com/tOgg1/inapp/internal/inbox"
	"github.com/tOgg1/inapp/internal/logging"
	"github.com/tOgg1/inapp/internal/models"
)

// ErrMessageNotFound is returned when an operation names an unknown message.
var ErrMessageNotFound = errors.New("message not found")

// MessageRepository persists the store between runs.
type MessageRepository interface {
	SaveAll(ctx context.Context, messages []*models.Message) error
	LoadAll(ctx context.Context) ([]*models.Message, error)
}

// DeliveryHook is invoked once per newly delivered message after a sync.
// Errors are logged and never abort the sync.
type DeliveryHook func(ctx context.Context, message *models.Message) error

// showRecorder is implemented by display checkers that track shows.
type showRecorder interface {
	RecordShown()
}

// Manager owns the message store. Merge and selection are serialized by
// its mutex; hooks run after the mutex is released.
type Manager struct {
	mu    sync.Mutex
	store *inbox.Store

	fetcher          Fetcher
	delegate         Delegate
	checker          DisplayChecker
	processor        *Processor
	tracker          *events.Tracker
	repo             MessageRepository
	processAfterSync bool

	onShow         func(*models.Message)
	onSkip         func(*models.Message)
	onInboxChanged func()
	onDelivered    DeliveryHook
	inboxSessionID func() string

	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithFetcher binds the message source.
func WithFetcher(f Fetcher) Option {
	return func(m *Manager) { m.fetcher = f }
}

// WithDelegate sets the delegate consulted for each candidate.
func WithDelegate(d Delegate) Option {
	return func(m *Manager) { m.delegate = d }
}

// WithDisplayChecker sets the display gate.
func WithDisplayChecker(c DisplayChecker) Option {
	return func(m *Manager) { m.checker = c }
}

// WithTracker sets the analytics event tracker.
func WithTracker(t *events.Tracker) Option {
	return func(m *Manager) { m.tracker = t }
}

// WithRepository persists the store after every mutation.
func WithRepository(r MessageRepository) Option {
	return func(m *Manager) { m.repo = r }
}

// WithProcessAfterSync runs a selection pass after every successful sync.
func WithProcessAfterSync(enabled bool) Option {
	return func(m *Manager) { m.processAfterSync = enabled }
}

// WithShowHandler sets the presentation hook for selected messages.
func WithShowHandler(fn func(*models.Message)) Option {
	return func(m *Manager) { m.onShow = fn }
}

// WithSkipHandler sets the callback for messages the delegate skipped.
func WithSkipHandler(fn func(*models.Message)) Option {
	return func(m *Manager) { m.onSkip = fn }
}

// WithInboxChangedHandler sets the callback fired when the inbox changes.
func WithInboxChangedHandler(fn func()) Option {
	return func(m *Manager) { m.onInboxChanged = fn }
}

// WithDeliveryHook sets the hook invoked for each delivered message.
func WithDeliveryHook(fn DeliveryHook) Option {
	return func(m *Manager) { m.onDelivered = fn }
}

// WithInboxSessionID supplies the active inbox session id for tracking contexts.
func WithInboxSessionID(fn func() string) Option {
	return func(m *Manager) { m.inboxSessionID = fn }
}

// WithClock overrides the clock used for expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a Manager with an empty store.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		store:  inbox.New(),
		now:    time.Now,
		logger: logging.Component("inapp"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.processor = NewProcessor(m.delegate, m.checker, WithProcessorClock(m.now))
	return m
}

// Load replaces the store with the persisted messages.
func (m *Manager) Load(ctx context.Context) error {
	if m.repo == nil {
		return nil
	}
	messages, err := m.repo.LoadAll(ctx)
	if err != nil {
		return err
	}

	store := inbox.FromMessages(messages)
	store.SortKeys(inbox.PinnedFirst)

	m.mu.Lock()
	m.store = store
	m.mu.Unlock()

	m.logger.Debug().Int("count", store.Len()).Msg("loaded persisted messages")
	return nil
}

// Fetch retrieves the server message set without touching the store.
func (m *Manager) Fetch(ctx context.Context) ([]*models.Message, error) {
	if m.fetcher == nil {
		m.logger.Error().Msg("fetch called with no fetcher bound")
		return nil, ErrNoFetcher
	}
	return m.fetcher.Fetch(ctx)
}

// Sync fetches the server message set and merges it into the store. A
// failed fetch leaves the store untouched.
func (m *Manager) Sync(ctx context.Context) (MergeResult, error) {
	fetched, err := m.Fetch(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoFetcher) {
			m.logger.Warn().Err(err).Msg("sync fetch failed")
			m.tracker.SyncFailed(ctx, err)
		}
		return MergeResult{}, err
	}

	m.mu.Lock()
	result := Merge(m.store, fetched)
	m.store = result.Store
	m.persist(ctx)
	m.mu.Unlock()

	for _, rejected := range result.Rejected {
		m.logger.Warn().Err(rejected).Msg("dropping invalid fetched message")
	}

	m.logger.Debug().
		Int("fetched", len(fetched)).
		Int("delivered", len(result.Delivered)).
		Int("added_inbox", result.AddedInboxCount).
		Int("removed_inbox", result.RemovedInboxCount).
		Int("overwritten", result.Overwritten).
		Int("rejected", len(result.Rejected)).
		Bool("inbox_changed", result.InboxChanged).
		Msg("merged messages")

	for _, msg := range result.Delivered {
		m.tracker.Delivered(ctx, msg)
		if m.onDelivered == nil {
			continue
		}
		if err := m.onDelivered(ctx, msg); err != nil {
			log := logging.WithMessage(msg.ID)
			log.Warn().Err(err).Msg("delivery hook failed")
		}
	}

	if result.InboxChanged {
		m.tracker.InboxChanged(ctx, models.InboxChangedPayload{
			Added:       result.AddedInboxCount,
			Removed:     result.RemovedInboxCount,
			Overwritten: result.Overwritten,
			Total:       result.Store.Len(),
		})
		m.notifyInboxChanged()
	}

	if m.processAfterSync {
		m.ProcessMessages(ctx)
	}
	return result, nil
}

// ProcessMessages runs one selection pass and applies its result.
func (m *Manager) ProcessMessages(ctx context.Context) ProcessResult {
	m.mu.Lock()
	result := m.processor.Process(m.store)
	m.store = result.Store
	if result.Kind == ResultShow || len(result.Skipped) > 0 {
		m.persist(ctx)
	}
	m.mu.Unlock()

	for _, skipped := range result.Skipped {
		m.tracker.Skipped(ctx, skipped)
		if m.onSkip != nil {
			m.onSkip(skipped)
		}
	}

	if result.Kind == ResultShow {
		if rec, ok := m.checker.(showRecorder); ok {
			rec.RecordShown()
		}
		m.tracker.Shown(ctx, result.Message)
		log := logging.WithMessage(result.Message.ID)
		log.Info().
			Bool("consumed", result.Message.Consumed).
			Msg("showing message")
		if m.onShow != nil {
			m.onShow(result.Message.Clone())
		}
	}
	return result
}

// Messages returns copies of every message in store order.
func (m *Manager) Messages() []*models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Values()
}

// InboxMessages returns copies of the unexpired messages saved to the inbox.
func (m *Manager) InboxMessages() []*models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inboxMessagesLocked()
}

func (m *Manager) inboxMessagesLocked() []*models.Message {
	now := m.now()
	var out []*models.Message
	for _, msg := range m.store.Values() {
		if msg.SaveToInbox && !msg.Expired(now) {
			out = append(out, msg)
		}
	}
	return out
}

// UnreadInboxCount returns how many inbox messages are unread.
func (m *Manager) UnreadInboxCount() int {
	_, unread := m.InboxCounts()
	return unread
}

// InboxCounts returns the inbox size and its unread count.
func (m *Manager) InboxCounts() (total, unread int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	messages := m.inboxMessagesLocked()
	for _, msg := range messages {
		if !msg.Read {
			unread++
		}
	}
	return len(messages), unread
}

// Message returns a copy of the message with id.
func (m *Manager) Message(id string) (*models.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Get(id)
}

// MarkRead marks a message read.
func (m *Manager) MarkRead(ctx context.Context, id string) error {
	m.mu.Lock()
	msg, ok := m.store.Get(id)
	if !ok {
		m.mu.Unlock()
		return ErrMessageNotFound
	}
	changed := !msg.Read
	if changed {
		if _, err := m.store.MarkRead(id, true); err != nil {
			m.mu.Unlock()
			return err
		}
		m.persist(ctx)
	}
	m.mu.Unlock()

	if changed {
		m.tracker.Read(ctx, msg)
		m.notifyInboxChanged()
	}
	return nil
}

// TrackOpen records that a message was presented at location.
func (m *Manager) TrackOpen(ctx context.Context, id string, location models.Location) error {
	msg, mc, err := m.contextFor(id, location)
	if err != nil {
		return err
	}
	m.tracker.Opened(ctx, msg, mc)
	return nil
}

// TrackClick records a link click in a presented message.
func (m *Manager) TrackClick(ctx context.Context, id, clickedURL string, location models.Location) error {
	msg, mc, err := m.contextFor(id, location)
	if err != nil {
		return err
	}
	m.tracker.Clicked(ctx, msg, mc, clickedURL)
	return nil
}

// TrackClose records that a presented message was dismissed.
func (m *Manager) TrackClose(ctx context.Context, id string, source models.CloseSource, clickedURL string, location models.Location) error {
	msg, mc, err := m.contextFor(id, location)
	if err != nil {
		return err
	}
	m.tracker.Closed(ctx, msg, mc, source, clickedURL)
	return nil
}

// Remove deletes a message from this client and records it as consumed.
func (m *Manager) Remove(ctx context.Context, id string, location models.Location) error {
	msg, mc, err := m.contextFor(id, location)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.store.Remove(id)
	m.persist(ctx)
	m.mu.Unlock()

	m.tracker.Consumed(ctx, msg, mc)
	m.notifyInboxChanged()
	return nil
}

// Reset clears the store.
func (m *Manager) Reset(ctx context.Context) {
	m.mu.Lock()
	m.store = inbox.New()
	m.persist(ctx)
	m.mu.Unlock()

	m.notifyInboxChanged()
}

func (m *Manager) contextFor(id string, location models.Location) (*models.Message, models.MessageContext, error) {
	msg, ok := m.Message(id)
	if !ok {
		return nil, models.MessageContext{}, ErrMessageNotFound
	}
	sessionID := ""
	if location == models.LocationInbox && m.inboxSessionID != nil {
		sessionID = m.inboxSessionID()
	}
	return msg, models.ContextFor(msg, location, sessionID), nil
}

// persist saves the store. Must be called with mu held. Failures are
// logged; the in-memory store stays authoritative.
func (m *Manager) persist(ctx context.Context) {
	if m.repo == nil {
		return
	}
	if err := m.repo.SaveAll(ctx, m.store.Values()); err != nil {
		m.logger.Error().Err(err).Msg("failed to persist messages")
	}
}

func (m *Manager) notifyInboxChanged() {
	if m.onInboxChanged != nil {
		m.onInboxChanged()
	}
}
