package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tOgg1/inapp/internal/models"
)

// Tracker builds analytics events for message interactions and publishes them.
// A nil *Tracker is valid and drops every event.
type Tracker struct {
	pub Publisher
	now func() time.Time
}

// NewTracker creates a Tracker publishing to pub.
func NewTracker(pub Publisher) *Tracker {
	return &Tracker{pub: pub, now: time.Now}
}

// WithNow overrides the event clock. Used by tests.
func (t *Tracker) WithNow(now func() time.Time) *Tracker {
	if now != nil {
		t.now = now
	}
	return t
}

// Delivered records that a new message reached this client.
func (t *Tracker) Delivered(ctx context.Context, m *models.Message) {
	t.message(ctx, models.EventTypeMessageDelivered, m, models.InteractionPayload{
		Context:    models.ContextFor(m, "", ""),
		CampaignID: m.CampaignID,
	})
}

// Shown records that a message was selected for presentation.
func (t *Tracker) Shown(ctx context.Context, m *models.Message) {
	t.message(ctx, models.EventTypeMessageShown, m, models.InteractionPayload{
		Context:    models.ContextFor(m, models.LocationInApp, ""),
		CampaignID: m.CampaignID,
	})
}

// Skipped records that the delegate skipped a message.
func (t *Tracker) Skipped(ctx context.Context, m *models.Message) {
	t.message(ctx, models.EventTypeMessageSkipped, m, models.InteractionPayload{
		Context:    models.ContextFor(m, "", ""),
		CampaignID: m.CampaignID,
	})
}

// Opened records that a message was presented at a location.
func (t *Tracker) Opened(ctx context.Context, m *models.Message, mc models.MessageContext) {
	t.message(ctx, models.EventTypeMessageOpened, m, models.InteractionPayload{
		Context:    mc,
		CampaignID: m.CampaignID,
	})
}

// Clicked records a link click inside a presented message.
func (t *Tracker) Clicked(ctx context.Context, m *models.Message, mc models.MessageContext, clickedURL string) {
	t.message(ctx, models.EventTypeMessageClicked, m, models.InteractionPayload{
		Context:    mc,
		ClickedURL: clickedURL,
		CampaignID: m.CampaignID,
	})
}

// Closed records that a presented message was dismissed.
func (t *Tracker) Closed(ctx context.Context, m *models.Message, mc models.MessageContext, source models.CloseSource, clickedURL string) {
	if source == "" {
		source = models.CloseSourceUnknown
	}
	t.message(ctx, models.EventTypeMessageClosed, m, models.InteractionPayload{
		Context:     mc,
		ClickedURL:  clickedURL,
		CloseSource: source,
		CampaignID:  m.CampaignID,
	})
}

// Consumed records that a message was removed from this client.
func (t *Tracker) Consumed(ctx context.Context, m *models.Message, mc models.MessageContext) {
	t.message(ctx, models.EventTypeMessageConsumed, m, models.InteractionPayload{
		Context:    mc,
		CampaignID: m.CampaignID,
	})
}

// Read records that a message was marked read.
func (t *Tracker) Read(ctx context.Context, m *models.Message) {
	t.message(ctx, models.EventTypeMessageRead, m, models.InteractionPayload{
		Context:    models.ContextFor(m, models.LocationInbox, ""),
		CampaignID: m.CampaignID,
	})
}

// InboxChanged records a merge that changed the visible inbox.
func (t *Tracker) InboxChanged(ctx context.Context, p models.InboxChangedPayload) {
	t.publish(ctx, models.EventTypeInboxChanged, models.EntityTypeInbox, uuid.NewString(), p)
}

// Session records a finished inbox viewing session.
func (t *Tracker) Session(ctx context.Context, info *models.SessionInfo) {
	if info == nil {
		return
	}
	t.publish(ctx, models.EventTypeInboxSession, models.EntityTypeSession, info.Start.ID, info)
}

// SyncFailed records a failed fetch.
func (t *Tracker) SyncFailed(ctx context.Context, err error) {
	if err == nil {
		return
	}
	t.publish(ctx, models.EventTypeSyncFailed, models.EntityTypeSystem, "sync", models.ErrorPayload{
		Error:   err.Error(),
		Context: "fetch",
	})
}

func (t *Tracker) message(ctx context.Context, eventType models.EventType, m *models.Message, payload models.InteractionPayload) {
	t.publish(ctx, eventType, models.EntityTypeMessage, m.ID, payload)
}

func (t *Tracker) publish(ctx context.Context, eventType models.EventType, entityType models.EntityType, entityID string, payload any) {
	if t == nil || t.pub == nil {
		return
	}

	event := &models.Event{
		ID:         uuid.NewString(),
		Timestamp:  t.now().UTC(),
		Type:       eventType,
		EntityType: entityType,
		EntityID:   entityID,
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			event.Payload = data
		}
	}
	t.pub.Publish(ctx, event)
}
