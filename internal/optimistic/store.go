// Package optimistic holds local overrides for items whose change has been
// submitted but not yet seen in the authoritative item list.
package optimistic

import "timegrid/internal/model"

// Override is the pending position of one item. DurationMinutes is set only
// for resizes.
type Override struct {
	Date            model.Date       `json:"date"`
	Time            *model.TimeOfDay `json:"time"`
	DurationMinutes *int             `json:"duration_minutes,omitempty"`
}

// Store maps item ids to overrides. It is invalidated wholesale whenever
// fresh authoritative data lands; entries have no expiry of their own and
// are not removed when the request behind them fails.
//
// Store is not safe for concurrent use.
type Store struct {
	overrides map[string]Override
}

func NewStore() *Store {
	return &Store{overrides: make(map[string]Override)}
}

// SetOverride records (or replaces) the pending position of itemID.
func (s *Store) SetOverride(itemID string, o Override) {
	if o.Time != nil {
		t := *o.Time
		o.Time = &t
	}
	if o.DurationMinutes != nil {
		d := *o.DurationMinutes
		o.DurationMinutes = &d
	}
	s.overrides[itemID] = o
}

// Get returns the override of itemID, if any.
func (s *Store) Get(itemID string) (Override, bool) {
	o, ok := s.overrides[itemID]
	return o, ok
}

// Invalidate drops every override. The host calls it when a new
// authoritative item list arrives.
func (s *Store) Invalidate() {
	clear(s.overrides)
}

// ClearAll is Invalidate.
func (s *Store) ClearAll() {
	s.Invalidate()
}

func (s *Store) Len() int {
	return len(s.overrides)
}

// Apply returns it with its override merged in. The override wins; it is
// never written back into the caller's item.
func (s *Store) Apply(it model.ScheduledItem) model.ScheduledItem {
	o, ok := s.overrides[it.ID]
	if !ok {
		return it
	}
	d := o.Date
	it.Date = &d
	if o.Time != nil {
		t := *o.Time
		it.Time = &t
	} else {
		it.Time = nil
	}
	if o.DurationMinutes != nil {
		it.DurationMinutes = *o.DurationMinutes
	}
	return it
}

// ApplyAll merges overrides into a copy of items.
func (s *Store) ApplyAll(items []model.ScheduledItem) []model.ScheduledItem {
	out := make([]model.ScheduledItem, len(items))
	for i, it := range items {
		out[i] = s.Apply(it)
	}
	return out
}
