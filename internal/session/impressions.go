package session

import (
	"time"

	"github.com/tOgg1/inapp/internal/models"
)

// ImpressionTracker accumulates how long and how often each inbox row is
// visible. A row that scrolls off and back on counts as a second display;
// its durations add up.
type ImpressionTracker struct {
	now     func() time.Time
	visible map[string]time.Time
	seen    map[string]*models.Impression
	order   []string
}

// NewImpressionTracker creates an empty tracker using now as its clock.
func NewImpressionTracker(now func() time.Time) *ImpressionTracker {
	if now == nil {
		now = time.Now
	}
	return &ImpressionTracker{
		now:     now,
		visible: make(map[string]time.Time),
		seen:    make(map[string]*models.Impression),
	}
}

// UpdateVisibleRows closes impressions for rows no longer visible and
// opens impressions for newly visible rows.
func (t *ImpressionTracker) UpdateVisibleRows(rows []models.RowInfo) {
	now := t.now()

	current := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		current[row.MessageID] = struct{}{}
	}

	for _, id := range t.order {
		if start, ok := t.visible[id]; ok {
			if _, still := current[id]; !still {
				t.seen[id].Duration += now.Sub(start)
				delete(t.visible, id)
			}
		}
	}

	for _, row := range rows {
		if _, open := t.visible[row.MessageID]; open {
			continue
		}
		imp, ok := t.seen[row.MessageID]
		if !ok {
			imp = &models.Impression{
				MessageID:    row.MessageID,
				SilentInbox:  row.SilentInbox,
				FirstShownAt: now,
			}
			t.seen[row.MessageID] = imp
			t.order = append(t.order, row.MessageID)
		}
		imp.DisplayCount++
		t.visible[row.MessageID] = now
	}
}

// VisibleCount returns the number of rows currently visible.
func (t *ImpressionTracker) VisibleCount() int { return len(t.visible) }

// End closes every open impression and returns all impressions in the
// order their rows first became visible.
func (t *ImpressionTracker) End() []models.Impression {
	t.UpdateVisibleRows(nil)

	out := make([]models.Impression, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.seen[id])
	}
	return out
}
