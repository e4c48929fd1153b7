package inapp

import (
	"time"

	"github.com/tOgg1/inapp/internal/inbox"
	"github.com/tOgg1/inapp/internal/models"
)

var testNow = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func msg(id string, priority float64) *models.Message {
	return &models.Message{ID: id, Priority: priority, Trigger: models.TriggerImmediate}
}

func inboxMsg(id string) *models.Message {
	m := msg(id, 0)
	m.SaveToInbox = true
	return m
}

func storeOf(messages ...*models.Message) *inbox.Store {
	return inbox.FromMessages(messages)
}

func ids(messages []*models.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.ID)
	}
	return out
}
