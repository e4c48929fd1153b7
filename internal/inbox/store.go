// Package inbox holds the ordered in-app message store.
package inbox

import (
	"sort"

	"github.com/tOgg1/inapp/internal/models"
)

// Store maps message IDs to messages and keeps a meaningful key order.
//
// Updating an existing key keeps its position; new keys are appended. The
// store owns its records: Get and Values hand out clones, and all mutation
// goes through Set, Update or the Mark* helpers.
//
// Store is not safe for concurrent use. Its owner serializes access.
type Store struct {
	keys   []string
	values map[string]*models.Message
}

// New returns an empty store.
func New() *Store {
	return &Store{values: make(map[string]*models.Message)}
}

// FromMessages builds a store from messages in order. Later duplicates
// replace earlier ones in place.
func FromMessages(messages []*models.Message) *Store {
	s := New()
	for _, m := range messages {
		if m != nil {
			s.Set(m)
		}
	}
	return s
}

// Len returns the number of messages.
func (s *Store) Len() int { return len(s.keys) }

// Has reports whether id is present.
func (s *Store) Has(id string) bool {
	_, ok := s.values[id]
	return ok
}

// Get returns a copy of the message with the given id.
func (s *Store) Get(id string) (*models.Message, bool) {
	m, ok := s.values[id]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// Set stores a copy of m under m.ID.
func (s *Store) Set(m *models.Message) {
	if _, ok := s.values[m.ID]; !ok {
		s.keys = append(s.keys, m.ID)
	}
	s.values[m.ID] = m.Clone()
}

// Remove deletes id and reports whether it was present.
func (s *Store) Remove(id string) bool {
	if _, ok := s.values[id]; !ok {
		return false
	}
	delete(s.values, id)
	for i, k := range s.keys {
		if k == id {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return true
}

// Index returns the position of id in the current order, or -1.
func (s *Store) Index(id string) int {
	if !s.Has(id) {
		return -1
	}
	for i, k := range s.keys {
		if k == id {
			return i
		}
	}
	return -1
}

// Keys returns the ids in current order.
func (s *Store) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Values returns copies of all messages in current order.
func (s *Store) Values() []*models.Message {
	out := make([]*models.Message, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, s.values[k].Clone())
	}
	return out
}

// Clone returns an independent copy of the store.
func (s *Store) Clone() *Store {
	c := &Store{
		keys:   append([]string(nil), s.keys...),
		values: make(map[string]*models.Message, len(s.values)),
	}
	for k, v := range s.values {
		c.values[k] = v.Clone()
	}
	return c
}

// Update applies fn to the stored record for id. The record is patched
// only if the result still validates. It reports whether id was present.
func (s *Store) Update(id string, fn func(*models.Message)) (bool, error) {
	current, ok := s.values[id]
	if !ok {
		return false, nil
	}
	patched := current.Clone()
	fn(patched)
	patched.ID = id
	if err := patched.Validate(); err != nil {
		return true, err
	}
	s.values[id] = patched
	return true, nil
}

// MarkRead sets the read flag.
func (s *Store) MarkRead(id string, read bool) (bool, error) {
	return s.Update(id, func(m *models.Message) { m.Read = read })
}

// MarkProcessed records that the trigger for id was processed and, when
// consumed is true, that the message was consumed.
func (s *Store) MarkProcessed(id string, consumed bool) (bool, error) {
	return s.Update(id, func(m *models.Message) {
		m.DidProcessTrigger = true
		m.Consumed = consumed
	})
}

// SortKeys reorders the store by less, which compares two messages.
// The sort is stable so equal elements keep their relative order.
func (s *Store) SortKeys(less func(a, b *models.Message) bool) {
	sort.SliceStable(s.keys, func(i, j int) bool {
		return less(s.values[s.keys[i]], s.values[s.keys[j]])
	})
}

// PinnedFirst orders pinned messages ahead of unpinned ones. Pinned
// messages are ordered newest first, falling back to the larger campaign
// id when creation times are missing or equal. Unpinned messages compare
// equal so a stable sort keeps their order.
func PinnedFirst(a, b *models.Message) bool {
	if a.Pinned != b.Pinned {
		return a.Pinned
	}
	if !a.Pinned {
		return false
	}
	if a.CreatedAt != nil && b.CreatedAt != nil && !a.CreatedAt.Equal(*b.CreatedAt) {
		return a.CreatedAt.After(*b.CreatedAt)
	}
	return a.CampaignID > b.CampaignID
}
