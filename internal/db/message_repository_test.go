package db

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/inapp/internal/models"
)

func TestMessageRepositoryRoundTripKeepsOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(setupTestDB(t))

	created := time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)
	expires := created.Add(48 * time.Hour)
	messages := []*models.Message{
		{ID: "c", Priority: 2, Trigger: models.TriggerNever, SaveToInbox: true, Read: true},
		{
			ID:                "a",
			Priority:          1,
			Trigger:           models.TriggerImmediate,
			CampaignID:        42,
			CreatedAt:         &created,
			ExpiresAt:         &expires,
			SaveToInbox:       true,
			SilentInbox:       true,
			Consumed:          true,
			DidProcessTrigger: true,
			Pinned:            true,
			Content:           json.RawMessage(`{"title":"hello"}`),
		},
		{ID: "b", Priority: 3, Trigger: models.TriggerEvent},
	}

	require.NoError(t, repo.SaveAll(ctx, messages))

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	ids := []string{loaded[0].ID, loaded[1].ID, loaded[2].ID}
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	a := loaded[1]
	assert.Equal(t, messages[1].Priority, a.Priority)
	assert.Equal(t, models.TriggerImmediate, a.Trigger)
	assert.Equal(t, int64(42), a.CampaignID)
	require.NotNil(t, a.CreatedAt)
	assert.True(t, a.CreatedAt.Equal(created))
	require.NotNil(t, a.ExpiresAt)
	assert.True(t, a.ExpiresAt.Equal(expires))
	assert.True(t, a.SaveToInbox && a.SilentInbox && a.Consumed && a.DidProcessTrigger && a.Pinned)
	assert.False(t, a.Read)
	assert.JSONEq(t, `{"title":"hello"}`, string(a.Content))

	assert.Nil(t, loaded[0].CreatedAt)
	assert.True(t, loaded[0].Read)
}

func TestMessageRepositorySaveAllReplaces(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(setupTestDB(t))

	require.NoError(t, repo.SaveAll(ctx, []*models.Message{{ID: "a", Trigger: models.TriggerImmediate}, {ID: "b", Trigger: models.TriggerImmediate}}))
	require.NoError(t, repo.SaveAll(ctx, []*models.Message{{ID: "b", Trigger: models.TriggerImmediate}}))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, repo.SaveAll(ctx, nil))
	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestMessageRepositorySaveAllRejectsInvalidSet(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(setupTestDB(t))

	require.NoError(t, repo.SaveAll(ctx, []*models.Message{{ID: "keep", Trigger: models.TriggerImmediate}}))

	err := repo.SaveAll(ctx, []*models.Message{
		{ID: "a", Trigger: models.TriggerImmediate},
		{ID: "b", Trigger: models.TriggerImmediate, Consumed: true},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConsumedUntriggered)

	err = repo.SaveAll(ctx, []*models.Message{
		{ID: "a", Trigger: models.TriggerImmediate},
		{ID: "a", Trigger: models.TriggerImmediate},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDuplicateMessage)
	assert.Contains(t, err.Error(), "first seen at messages[0]")

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "keep", loaded[0].ID)
}
