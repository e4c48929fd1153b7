package inbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/inapp/internal/models"
)

func msg(id string) *models.Message {
	return &models.Message{ID: id, Trigger: models.TriggerImmediate}
}

func TestStore_PreservesInsertionOrder(t *testing.T) {
	s := New()
	s.Set(msg("a"))
	s.Set(msg("b"))
	s.Set(msg("c"))

	updated := msg("a")
	updated.Priority = 7
	s.Set(updated)

	require.Equal(t, []string{"a", "b", "c"}, s.Keys())
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 7.0, got.Priority)
}

func TestStore_Remove(t *testing.T) {
	s := FromMessages([]*models.Message{msg("a"), msg("b"), msg("c")})

	require.True(t, s.Remove("b"))
	require.False(t, s.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, s.Keys())
	assert.Equal(t, -1, s.Index("b"))
	assert.Equal(t, 1, s.Index("c"))
	assert.Equal(t, 2, s.Len())
}

func TestStore_ValuesAreCopies(t *testing.T) {
	s := FromMessages([]*models.Message{msg("a")})

	values := s.Values()
	values[0].Read = true

	got, _ := s.Get("a")
	assert.False(t, got.Read)

	got.Read = true
	again, _ := s.Get("a")
	assert.False(t, again.Read)
}

func TestStore_CloneIsIndependent(t *testing.T) {
	s := FromMessages([]*models.Message{msg("a"), msg("b")})
	c := s.Clone()

	_, err := c.MarkRead("a", true)
	require.NoError(t, err)
	c.Remove("b")

	got, _ := s.Get("a")
	assert.False(t, got.Read)
	assert.Equal(t, []string{"a", "b"}, s.Keys())
}

func TestStore_UpdateRejectsInvalidPatch(t *testing.T) {
	s := FromMessages([]*models.Message{msg("a")})

	found, err := s.Update("a", func(m *models.Message) { m.Consumed = true })
	require.True(t, found)
	require.ErrorIs(t, err, models.ErrConsumedUntriggered)

	got, _ := s.Get("a")
	assert.False(t, got.Consumed)

	found, err = s.Update("missing", func(m *models.Message) {})
	require.False(t, found)
	require.NoError(t, err)
}

func TestStore_MarkProcessed(t *testing.T) {
	s := FromMessages([]*models.Message{msg("a")})

	found, err := s.MarkProcessed("a", true)
	require.True(t, found)
	require.NoError(t, err)

	got, _ := s.Get("a")
	assert.True(t, got.DidProcessTrigger)
	assert.True(t, got.Consumed)
}

func TestStore_SortKeysPinnedFirst(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := base
	newer := base.Add(time.Hour)

	pinnedOld := msg("pinned-old")
	pinnedOld.Pinned = true
	pinnedOld.CreatedAt = &older

	pinnedNew := msg("pinned-new")
	pinnedNew.Pinned = true
	pinnedNew.CreatedAt = &newer

	pinnedNoTimeLow := msg("pinned-c1")
	pinnedNoTimeLow.Pinned = true
	pinnedNoTimeLow.CampaignID = 1

	pinnedNoTimeHigh := msg("pinned-c9")
	pinnedNoTimeHigh.Pinned = true
	pinnedNoTimeHigh.CampaignID = 9

	s := FromMessages([]*models.Message{
		msg("x"),
		pinnedOld,
		msg("y"),
		pinnedNoTimeLow,
		pinnedNew,
		msg("z"),
		pinnedNoTimeHigh,
	})
	s.SortKeys(PinnedFirst)

	keys := s.Keys()
	require.Len(t, keys, 7)
	assert.Equal(t, []string{"x", "y", "z"}, keys[4:])
	assert.Less(t, indexOf(keys, "pinned-new"), indexOf(keys, "pinned-old"))
	assert.Less(t, indexOf(keys, "pinned-c9"), indexOf(keys, "pinned-c1"))
}

func TestStore_SortKeysStableForUnpinned(t *testing.T) {
	ids := []string{"e", "d", "c", "b", "a"}
	var messages []*models.Message
	for _, id := range ids {
		messages = append(messages, msg(id))
	}
	s := FromMessages(messages)
	s.SortKeys(PinnedFirst)
	assert.Equal(t, ids, s.Keys())
}

func indexOf(keys []string, id string) int {
	for i, k := range keys {
		if k == id {
			return i
		}
	}
	return -1
}
