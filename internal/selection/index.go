// Package selection tracks where rendered items sit on screen and which of
// them the user has selected.
package selection

import "sort"

// Point is a position in viewport pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in viewport pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// RectFromPoints returns the rectangle spanned by two corners given in any
// order.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		Left:   min(a.X, b.X),
		Top:    min(a.Y, b.Y),
		Right:  max(a.X, b.X),
		Bottom: max(a.Y, b.Y),
	}
}

// Intersects reports whether r and o share any point. Touching edges count.
func (r Rect) Intersects(o Rect) bool {
	return !(o.Right < r.Left || o.Left > r.Right || o.Bottom < r.Top || o.Top > r.Bottom)
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Top && p.Y <= r.Bottom
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Bottom - r.Top }

type entry struct {
	rect Rect
	seq  uint64
}

// Index maps item ids to their on-screen rectangles. Every rendered item
// registers itself when it mounts and unregisters when it unmounts. The
// index owns no items.
//
// Index is not safe for concurrent use.
type Index struct {
	entries map[string]entry
	seq     uint64
}

func NewIndex() *Index {
	return &Index{entries: make(map[string]entry)}
}

// Register records (or replaces) the rectangle of itemID. A re-registered
// item counts as drawn last.
func (x *Index) Register(itemID string, r Rect) {
	x.seq++
	x.entries[itemID] = entry{rect: r, seq: x.seq}
}

// Unregister forgets itemID. Unknown ids are ignored.
func (x *Index) Unregister(itemID string) {
	delete(x.entries, itemID)
}

// Rect returns the registered rectangle of itemID.
func (x *Index) Rect(itemID string) (Rect, bool) {
	e, ok := x.entries[itemID]
	return e.rect, ok
}

func (x *Index) Len() int {
	return len(x.entries)
}

// ItemsWithin returns every item whose rectangle intersects the rectangle
// spanned by a and b.
func (x *Index) ItemsWithin(a, b Point) Set {
	sel := RectFromPoints(a, b)
	out := make(Set)
	for id, e := range x.entries {
		if sel.Intersects(e.rect) {
			out.Add(id)
		}
	}
	return out
}

// HitTest returns the item under p. When rectangles stack, the one
// registered last wins.
func (x *Index) HitTest(p Point) (string, bool) {
	var (
		best    string
		bestSeq uint64
		found   bool
	)
	for id, e := range x.entries {
		if e.rect.Contains(p) && (!found || e.seq > bestSeq) {
			best, bestSeq, found = id, e.seq, true
		}
	}
	return best, found
}

// Set is a set of item ids.
type Set map[string]struct{}

// NewSet returns a set holding ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s Set) Add(id string)    { s[id] = struct{}{} }
func (s Set) Remove(id string) { delete(s, id) }
func (s Set) Len() int         { return len(s) }

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members in sorted order.
func (s Set) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}
