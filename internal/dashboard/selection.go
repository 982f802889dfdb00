package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fyrsmithlabs/managerd/internal/entity"
	"github.com/fyrsmithlabs/managerd/internal/notify"
)

// Selection is a set of task ids that survives filter changes. Select-all
// only ever touches the tasks currently visible.
type Selection struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// Toggle flips a single id.
func (s *Selection) Toggle(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

// AllSelected reports whether visible is non-empty and fully selected.
func (s *Selection) AllSelected(visible []entity.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allSelected(visible)
}

func (s *Selection) allSelected(visible []entity.Task) bool {
	if len(visible) == 0 {
		return false
	}
	for _, t := range visible {
		if _, ok := s.ids[t.ID]; !ok {
			return false
		}
	}
	return true
}

// ToggleAll deselects the visible tasks when all are selected and selects
// them otherwise. Hidden selections are left alone either way.
func (s *Selection) ToggleAll(visible []entity.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.allSelected(visible) {
		for _, t := range visible {
			delete(s.ids, t.ID)
		}
		return
	}
	for _, t := range visible {
		s.ids[t.ID] = struct{}{}
	}
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// IDs returns the selected ids, sorted.
func (s *Selection) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len is the number of selected ids.
func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
}

// Updater applies a patch to many tasks.
type Updater interface {
	BulkUpdate(ctx context.Context, ids []string, patch entity.Patch) error
}

// Alerter raises in-process notifications.
type Alerter interface {
	Notify(ctx context.Context, title, message string, kind notify.Kind) notify.Notification
}

// BulkEdit applies a single-field patch to every selected id, announces
// it, and clears the selection. An empty selection is a no-op. It returns
// the number of ids the patch was sent to.
func BulkEdit(ctx context.Context, u Updater, alerter Alerter, sel *Selection, patch entity.Patch) (int, error) {
	field := patch.Field()
	if field == "" {
		return 0, fmt.Errorf("%w: bulk edit must change exactly one of status, priority or assignee", ErrValidation)
	}
	ids := sel.IDs()
	if len(ids) == 0 {
		return 0, nil
	}
	if err := u.BulkUpdate(ctx, ids, patch); err != nil {
		return 0, err
	}
	alerter.Notify(ctx, "Bulk Update", fmt.Sprintf("Updated %d tasks (%s)", len(ids), field), notify.KindInfo)
	sel.Clear()
	return len(ids), nil
}
