package selection

// Selection is the set of items the user has picked, by clicking or with a
// marquee.
type Selection struct {
	ids Set
}

func New() *Selection {
	return &Selection{ids: make(Set)}
}

// Click applies a click on itemID. Without a modifier the selection becomes
// just that item; with one, the item's membership toggles and the rest is
// left alone.
func (s *Selection) Click(itemID string, modifier bool) {
	if !modifier {
		s.ids = NewSet(itemID)
		return
	}
	if s.ids.Has(itemID) {
		s.ids.Remove(itemID)
	} else {
		s.ids.Add(itemID)
	}
}

// Replace swaps the whole selection for ids.
func (s *Selection) Replace(ids Set) {
	s.ids = ids.Clone()
}

func (s *Selection) Clear() {
	s.ids = make(Set)
}

func (s *Selection) Has(itemID string) bool {
	return s.ids.Has(itemID)
}

func (s *Selection) Len() int {
	return s.ids.Len()
}

// IDs returns the selected ids in sorted order.
func (s *Selection) IDs() []string {
	return s.ids.IDs()
}

// Subjects returns the ids that travel with a drag started on itemID: the
// whole selection when itemID belongs to a selection of more than one item,
// otherwise itemID alone.
func (s *Selection) Subjects(itemID string) []string {
	if s.ids.Has(itemID) && s.ids.Len() > 1 {
		return s.ids.IDs()
	}
	return []string{itemID}
}

// Marquee is a rubber-band rectangle being dragged across empty canvas.
type Marquee struct {
	start, end Point
	active     bool
}

// Begin starts a marquee at p.
func (m *Marquee) Begin(p Point) {
	m.start, m.end, m.active = p, p, true
}

// Update moves the free corner to p and returns the items now inside the
// rectangle. Each call re-evaluates from scratch.
func (m *Marquee) Update(p Point, idx *Index) Set {
	m.end = p
	return idx.ItemsWithin(m.start, m.end)
}

// End stops the marquee.
func (m *Marquee) End() {
	*m = Marquee{}
}

func (m *Marquee) Active() bool {
	return m.active
}

// Rect returns the current rectangle, for drawing.
func (m *Marquee) Rect() (Rect, bool) {
	if !m.active {
		return Rect{}, false
	}
	return RectFromPoints(m.start, m.end), true
}
