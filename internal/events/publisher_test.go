package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tOgg1/inapp/internal/models"
)

func shownEvent(id string) *models.Event {
	return &models.Event{
		Type:       models.EventTypeMessageShown,
		EntityType: models.EntityTypeMessage,
		EntityID:   id,
	}
}

func TestFilter_Matches(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		event  *models.Event
		want   bool
	}{
		{
			name:   "empty filter matches any event",
			filter: Filter{},
			event:  shownEvent("msg-1"),
			want:   true,
		},
		{
			name:   "nil event returns false",
			filter: Filter{},
			event:  nil,
			want:   false,
		},
		{
			name:   "event type filter matches",
			filter: Filter{EventTypes: []models.EventType{models.EventTypeMessageShown}},
			event:  shownEvent("msg-1"),
			want:   true,
		},
		{
			name:   "event type filter rejects non-matching",
			filter: Filter{EventTypes: []models.EventType{models.EventTypeMessageClicked}},
			event:  shownEvent("msg-1"),
			want:   false,
		},
		{
			name: "multiple event types - matches any",
			filter: Filter{EventTypes: []models.EventType{
				models.EventTypeMessageClicked,
				models.EventTypeMessageShown,
			}},
			event: shownEvent("msg-1"),
			want:  true,
		},
		{
			name:   "entity type filter rejects non-matching",
			filter: Filter{EntityTypes: []models.EntityType{models.EntityTypeSession}},
			event:  shownEvent("msg-1"),
			want:   false,
		},
		{
			name:   "entity ID filter matches",
			filter: Filter{EntityID: "msg-1"},
			event:  shownEvent("msg-1"),
			want:   true,
		},
		{
			name:   "entity ID filter rejects non-matching",
			filter: Filter{EntityID: "msg-2"},
			event:  shownEvent("msg-1"),
			want:   false,
		},
		{
			name: "combined filters - all must match",
			filter: Filter{
				EventTypes:  []models.EventType{models.EventTypeMessageShown},
				EntityTypes: []models.EntityType{models.EntityTypeInbox},
			},
			event: shownEvent("msg-1"),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.event); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInMemoryPublisher_Subscribe(t *testing.T) {
	pub := NewInMemoryPublisher()
	handler := func(event *models.Event) {}

	if err := pub.Subscribe("sub-1", Filter{}, handler); err != nil {
		t.Errorf("Subscribe() error = %v, want nil", err)
	}
	if pub.SubscriberCount() != 1 {
		t.Errorf("SubscriberCount() = %d, want 1", pub.SubscriberCount())
	}

	if err := pub.Subscribe("sub-1", Filter{}, handler); err != ErrSubscriptionExists {
		t.Errorf("Subscribe() duplicate error = %v, want %v", err, ErrSubscriptionExists)
	}
	if err := pub.Subscribe("", Filter{}, handler); err != ErrInvalidSubscriptionID {
		t.Errorf("Subscribe() empty ID error = %v, want %v", err, ErrInvalidSubscriptionID)
	}
	if err := pub.Subscribe("sub-2", Filter{}, nil); err != ErrNilHandler {
		t.Errorf("Subscribe() nil handler error = %v, want %v", err, ErrNilHandler)
	}
}

func TestInMemoryPublisher_Unsubscribe(t *testing.T) {
	pub := NewInMemoryPublisher()
	_ = pub.Subscribe("sub-1", Filter{}, func(event *models.Event) {})

	if err := pub.Unsubscribe("sub-1"); err != nil {
		t.Errorf("Unsubscribe() error = %v, want nil", err)
	}
	if pub.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", pub.SubscriberCount())
	}
	if err := pub.Unsubscribe("sub-1"); err != ErrSubscriptionNotFound {
		t.Errorf("Unsubscribe() non-existent error = %v, want %v", err, ErrSubscriptionNotFound)
	}
}

func TestInMemoryPublisher_PublishWithFilter(t *testing.T) {
	pub := NewInMemoryPublisher()
	ctx := context.Background()

	var messageEvents, inboxEvents int
	_ = pub.Subscribe("messages", Filter{
		EntityTypes: []models.EntityType{models.EntityTypeMessage},
	}, func(event *models.Event) { messageEvents++ })
	_ = pub.Subscribe("inbox", Filter{
		EntityTypes: []models.EntityType{models.EntityTypeInbox},
	}, func(event *models.Event) { inboxEvents++ })

	pub.Publish(ctx, shownEvent("msg-1"))
	pub.Publish(ctx, &models.Event{
		Type:       models.EventTypeInboxChanged,
		EntityType: models.EntityTypeInbox,
		EntityID:   "sync",
	})
	pub.Publish(ctx, nil)

	if messageEvents != 1 || inboxEvents != 1 {
		t.Errorf("messageEvents = %d, inboxEvents = %d, want 1 and 1", messageEvents, inboxEvents)
	}
}

func TestInMemoryPublisher_HandlerMayUnsubscribe(t *testing.T) {
	pub := NewInMemoryPublisher()
	calls := 0
	_ = pub.Subscribe("once", Filter{}, func(event *models.Event) {
		calls++
		_ = pub.Unsubscribe("once")
	})

	pub.Publish(context.Background(), shownEvent("a"))
	pub.Publish(context.Background(), shownEvent("b"))

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestInMemoryPublisher_ConcurrentAccess(t *testing.T) {
	pub := NewInMemoryPublisher()
	ctx := context.Background()

	var mu sync.Mutex
	received := 0
	_ = pub.Subscribe("counter", Filter{}, func(event *models.Event) {
		mu.Lock()
		received++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pub.Publish(ctx, shownEvent("msg"))
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if received != 20 {
		t.Errorf("received = %d, want 20", received)
	}
}

type mockRepository struct {
	mu     sync.Mutex
	events []*models.Event
	err    error
}

func (m *mockRepository) Append(ctx context.Context, event *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func TestInMemoryPublisher_WithRepository(t *testing.T) {
	repo := &mockRepository{}
	pub := NewInMemoryPublisher(WithRepository(repo))

	pub.Publish(context.Background(), shownEvent("msg-1"))

	if len(repo.events) != 1 {
		t.Fatalf("persisted %d events, want 1", len(repo.events))
	}
}

func TestInMemoryPublisher_RepositoryFailureStillDelivers(t *testing.T) {
	repo := &mockRepository{err: errors.New("disk full")}
	pub := NewInMemoryPublisher(WithRepository(repo))

	delivered := false
	_ = pub.Subscribe("sub", Filter{}, func(event *models.Event) { delivered = true })
	pub.Publish(context.Background(), shownEvent("msg-1"))

	if !delivered {
		t.Fatal("expected delivery despite persistence failure")
	}
}

func TestInMemoryPublisher_Close(t *testing.T) {
	pub := NewInMemoryPublisher()
	_ = pub.Subscribe("a", Filter{}, func(event *models.Event) {})
	_ = pub.Subscribe("b", Filter{}, func(event *models.Event) {})

	pub.Close()

	if pub.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", pub.SubscriberCount())
	}
}
