package inapp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/inapp/internal/models"
)

func TestMergeIsIdempotent(t *testing.T) {
	fetched := []*models.Message{inboxMsg("a"), msg("b", 1), inboxMsg("c")}

	first := Merge(storeOf(), fetched)
	require.True(t, first.InboxChanged)

	second := Merge(first.Store, fetched)
	assert.False(t, second.InboxChanged)
	assert.Empty(t, second.Delivered)
	assert.Equal(t, first.Store.Keys(), second.Store.Keys())
	assert.Equal(t, first.Store.Values(), second.Store.Values())
}

func TestMergeNeverRevertsRead(t *testing.T) {
	client := inboxMsg("a")
	client.Read = true

	for _, serverRead := range []bool{false, true} {
		server := inboxMsg("a")
		server.Read = serverRead
		server.Priority = 9

		result := Merge(storeOf(client), []*models.Message{server})
		got, ok := result.Store.Get("a")
		require.True(t, ok)
		assert.True(t, got.Read, "server read=%v reverted client read", serverRead)
		assert.Zero(t, result.Overwritten)
		assert.Equal(t, 0.0, got.Priority, "client copy should be kept")
	}
}

func TestMergeServerReadOverwritesWholesale(t *testing.T) {
	client := inboxMsg("a")
	client.DidProcessTrigger = true
	server := inboxMsg("a")
	server.Read = true
	server.Priority = 4

	result := Merge(storeOf(client), []*models.Message{server})
	got, _ := result.Store.Get("a")

	assert.True(t, result.InboxChanged)
	assert.Equal(t, 1, result.Overwritten)
	assert.True(t, got.Read)
	assert.Equal(t, 4.0, got.Priority)
	assert.False(t, got.DidProcessTrigger)
}

func TestMergeRemovalAccounting(t *testing.T) {
	current := storeOf(inboxMsg("a"), inboxMsg("b"), msg("c", 0), inboxMsg("d"))

	result := Merge(current, []*models.Message{inboxMsg("b")})

	assert.Equal(t, 2, result.RemovedInboxCount)
	assert.Equal(t, 0, result.AddedInboxCount)
	assert.True(t, result.InboxChanged)
	assert.Equal(t, []string{"b"}, result.Store.Keys())
	assert.Equal(t, 4, current.Len(), "input store must not change")
}

func TestMergeRemovingNonInboxMessageIsNotAChange(t *testing.T) {
	result := Merge(storeOf(msg("a", 0), inboxMsg("b")), []*models.Message{inboxMsg("b")})

	assert.False(t, result.InboxChanged)
	assert.Zero(t, result.RemovedInboxCount)
}

func TestMergeDeliveredSkipsReadMessages(t *testing.T) {
	read := inboxMsg("r")
	read.Read = true

	result := Merge(storeOf(inboxMsg("old")), []*models.Message{inboxMsg("old"), inboxMsg("new"), read, msg("plain", 0)})

	assert.Equal(t, []string{"new", "plain"}, ids(result.Delivered))
	assert.Equal(t, 2, result.AddedInboxCount)
}

func TestMergeFirstDuplicateWins(t *testing.T) {
	first := msg("a", 1)
	second := msg("a", 2)

	result := Merge(storeOf(), []*models.Message{first, second})

	require.Equal(t, 1, result.Store.Len())
	got, _ := result.Store.Get("a")
	assert.Equal(t, 1.0, got.Priority)
	assert.Len(t, result.Delivered, 1)
}

func TestMergeFloatsPinnedMessages(t *testing.T) {
	older := testNow.Add(-time.Hour)
	p1 := inboxMsg("p1")
	p1.Pinned = true
	p1.CreatedAt = &older
	p2 := inboxMsg("p2")
	p2.Pinned = true
	p2.CreatedAt = &testNow

	result := Merge(storeOf(), []*models.Message{inboxMsg("x"), p1, inboxMsg("y"), p2})

	assert.Equal(t, []string{"p2", "p1", "x", "y"}, result.Store.Keys())
}

func TestMergeNilStore(t *testing.T) {
	result := Merge(nil, []*models.Message{inboxMsg("a"), nil})
	assert.Equal(t, 1, result.Store.Len())
	assert.True(t, result.InboxChanged)
}

func TestMergeDropsInvalidFetchedMessages(t *testing.T) {
	consumed := inboxMsg("a")
	consumed.Consumed = true

	result := Merge(storeOf(inboxMsg("a")), []*models.Message{msg("", 0), consumed, inboxMsg("b")})

	assert.Equal(t, []string{"b"}, result.Store.Keys())
	require.Len(t, result.Rejected, 2)
	assert.ErrorIs(t, result.Rejected[0], models.ErrMessageIDRequired)
	assert.ErrorIs(t, result.Rejected[1], models.ErrConsumedUntriggered)
	assert.Equal(t, 1, result.RemovedInboxCount, "an invalid server copy counts as absent")
	assert.Equal(t, 1, result.AddedInboxCount)
	assert.Equal(t, []string{"b"}, ids(result.Delivered))
}
