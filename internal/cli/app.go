package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tOgg1/inapp/internal/config"
	"github.com/tOgg1/inapp/internal/db"
	"github.com/tOgg1/inapp/internal/events"
	"github.com/tOgg1/inapp/internal/inapp"
	"github.com/tOgg1/inapp/internal/logging"
	"github.com/tOgg1/inapp/internal/models"
	"github.com/tOgg1/inapp/internal/session"
)

// app is the wired runtime shared by commands.
type app struct {
	cfg *config.Config

	db           *db.DB
	messageRepo  *db.MessageRepository
	eventRepo    *db.EventRepository
	sessionRepo  *db.SessionRepository
	publisher    *events.InMemoryPublisher
	tracker      *events.Tracker
	checker      *inapp.IntervalChecker
	manager      *inapp.Manager
	sessions     *session.Manager
	user         *config.Context
	hasFetcher   bool
}

// openApp opens the database, restores the persisted store and wires the
// manager. extra options are applied after the defaults.
func openApp(ctx context.Context, opts *rootOptions, extra ...inapp.Option) (*app, error) {
	cfg := opts.cfg
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	database, err := db.Open(db.Config{
		Path:           cfg.DatabasePath(),
		MaxConnections: cfg.Database.MaxConnections,
		BusyTimeoutMs:  cfg.Database.BusyTimeoutMs,
	})
	if err != nil {
		return nil, err
	}
	if _, err := database.MigrateUp(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	user, err := config.NewContextStore(cfg.ContextPath()).Load()
	if err != nil {
		database.Close()
		return nil, err
	}

	a := &app{
		cfg:         cfg,
		db:          database,
		messageRepo: db.NewMessageRepository(database),
		eventRepo:   db.NewEventRepository(database),
		sessionRepo: db.NewSessionRepository(database),
		checker:     inapp.NewIntervalChecker(cfg.Display.MinInterval),
		user:        user,
	}

	var pubOpts []events.PublisherOption
	if cfg.Tracking.PersistEvents {
		pubOpts = append(pubOpts, events.WithRepository(a.eventRepo))
	}
	a.restoreDisplayGate(ctx)
	a.publisher = events.NewInMemoryPublisher(pubOpts...)
	a.tracker = events.NewTracker(a.publisher)

	a.sessions = session.NewManager(session.InboxCounterFunc(func() (int, int) {
		return a.manager.InboxCounts()
	}))

	managerOpts := []inapp.Option{
		inapp.WithDelegate(inapp.ShowAll),
		inapp.WithDisplayChecker(a.checker),
		inapp.WithTracker(a.tracker),
		inapp.WithRepository(a.messageRepo),
		inapp.WithProcessAfterSync(cfg.Sync.ProcessAfterSync),
		inapp.WithInboxSessionID(a.sessions.SessionID),
	}
	if fetcher := newFetcher(cfg, user); fetcher != nil {
		managerOpts = append(managerOpts, inapp.WithFetcher(fetcher))
		a.hasFetcher = true
	}
	a.manager = inapp.NewManager(append(managerOpts, extra...)...)

	if err := a.manager.Load(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return a, nil
}

// newFetcher picks the HTTP endpoint when configured, else the payload file.
func newFetcher(cfg *config.Config, user *config.Context) inapp.Fetcher {
	switch {
	case strings.TrimSpace(cfg.Fetch.Endpoint) != "":
		f := inapp.NewHTTPFetcher(cfg.Fetch.Endpoint, cfg.Fetch.APIKey, cfg.Fetch.MaxMessages, cfg.Fetch.Timeout)
		if user != nil {
			f.Email = user.Email
			f.UserID = user.UserID
		}
		return f
	case strings.TrimSpace(cfg.Fetch.PayloadPath) != "":
		return inapp.NewFileFetcher(cfg.Fetch.PayloadPath, cfg.Fetch.MaxMessages)
	default:
		return nil
	}
}

// restoreDisplayGate seeds the display interval from the newest persisted
// shown event so the gate holds across CLI runs.
func (a *app) restoreDisplayGate(ctx context.Context) {
	if !a.cfg.Tracking.PersistEvents || a.cfg.Display.MinInterval <= 0 {
		return
	}
	latest, err := a.eventRepo.Latest(ctx, models.EventTypeMessageShown)
	switch {
	case errors.Is(err, db.ErrEventNotFound):
	case err != nil:
		log := logging.Component("display")
		log.Warn().Err(err).Msg("failed to read last shown event; display interval starts fresh")
	default:
		a.checker.Restore(latest.Timestamp)
	}
}

// saveSession persists a finished inbox session and publishes it.
func (a *app) saveSession(ctx context.Context, info *models.SessionInfo) {
	if info == nil {
		return
	}
	if err := a.sessionRepo.Save(ctx, info); err != nil {
		log := logging.WithSession(info.Start.ID)
		log.Error().Err(err).Msg("failed to save inbox session")
	}
	a.tracker.Session(ctx, info)
}

// prune applies the configured event retention.
func (a *app) prune(ctx context.Context) error {
	if !a.cfg.Tracking.PersistEvents {
		return nil
	}
	deleted, err := a.eventRepo.Prune(ctx, nowFunc(), a.cfg.Tracking.MaxAge, a.cfg.Tracking.MaxCount)
	if err != nil {
		return err
	}
	if deleted > 0 {
		log := logging.Component("retention")
		log.Debug().Int64("deleted", deleted).Msg("pruned events")
	}
	return nil
}

func (a *app) Close() error {
	a.publisher.Close()
	return a.db.Close()
}
