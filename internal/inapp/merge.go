package inapp

import (
	"github.com/tOgg1/inapp/internal/inbox"
	"github.com/tOgg1/inapp/internal/models"
)

// MergeResult is the outcome of reconciling a fetch with the store.
type MergeResult struct {
	// Store is the reconciled store, already re-sorted with pinned first.
	Store *inbox.Store

	// InboxChanged reports whether the visible inbox differs from before.
	InboxChanged bool

	// Delivered lists messages new to this client that are not read yet.
	Delivered []*models.Message

	RemovedInboxCount int
	AddedInboxCount   int
	Overwritten       int

	// Rejected holds one error per fetched message that failed validation.
	// Rejected messages are treated as absent from the fetch.
	Rejected []error
}

// Merge reconciles the current store with the full server message set.
// The fetched list is server truth for which messages exist; client state
// wins for existing messages unless the server caught up a read receipt
// the client has not seen yet. Fetched messages that fail validation are
// dropped. current is left untouched.
func Merge(current *inbox.Store, fetched []*models.Message) MergeResult {
	if current == nil {
		current = inbox.New()
	}

	result := MergeResult{Store: inbox.New()}

	valid := make([]*models.Message, 0, len(fetched))
	fetchedIDs := make(map[string]struct{}, len(fetched))
	for _, m := range fetched {
		if m == nil {
			continue
		}
		if err := m.Validate(); err != nil {
			result.Rejected = append(result.Rejected, err)
			continue
		}
		valid = append(valid, m)
		fetchedIDs[m.ID] = struct{}{}
	}

	for _, existing := range current.Values() {
		if _, ok := fetchedIDs[existing.ID]; !ok && existing.SaveToInbox {
			result.RemovedInboxCount++
		}
	}

	for _, server := range valid {
		if result.Store.Has(server.ID) {
			continue
		}
		client, known := current.Get(server.ID)
		switch {
		case !known:
			if server.SaveToInbox {
				result.AddedInboxCount++
			}
			if !server.Read {
				result.Delivered = append(result.Delivered, server.Clone())
			}
			result.Store.Set(server)
		case shouldOverwrite(client, server):
			result.Overwritten++
			result.Store.Set(server)
		default:
			result.Store.Set(client)
		}
	}

	result.InboxChanged = result.RemovedInboxCount+result.AddedInboxCount+result.Overwritten > 0
	result.Store.SortKeys(inbox.PinnedFirst)
	return result
}

// shouldOverwrite reports whether the server copy replaces the client copy.
// Only a server-side read the client has not seen yet wins; other local
// changes may not have reached the server.
func shouldOverwrite(client, server *models.Message) bool {
	return server.Read && !client.Read
}
