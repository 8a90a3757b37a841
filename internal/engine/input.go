package engine

import (
	"timegrid/internal/drag"
	appLog "timegrid/internal/log"
	"timegrid/internal/model"
	"timegrid/internal/optimistic"
	"timegrid/internal/selection"
)

// TargetKind is what lies under the pointer at pointer-down.
type TargetKind int

const (
	// TargetCanvas is empty space outside the hour grid; dragging on it
	// draws a marquee.
	TargetCanvas TargetKind = iota
	// TargetGrid is empty hour-grid space; dragging on it creates an item.
	TargetGrid
	// TargetItem is the body of an item.
	TargetItem
	// TargetResizeHandle is the bottom edge of a timed item.
	TargetResizeHandle
	// TargetControl is an interactive control (button, link, input).
	TargetControl
)

var targetNames = map[string]TargetKind{
	"canvas":  TargetCanvas,
	"grid":    TargetGrid,
	"item":    TargetItem,
	"resize":  TargetResizeHandle,
	"control": TargetControl,
}

// ParseTargetKind maps a wire name to a TargetKind.
func ParseTargetKind(s string) (TargetKind, bool) {
	k, ok := targetNames[s]
	return k, ok
}

// Target is the hit under a pointer-down. An item target without an id is
// resolved against the registered item rectangles.
type Target struct {
	Kind   TargetKind
	ItemID string
}

// PointerEvent is one pointer input. Target is only read on pointer-down;
// once a gesture holds the grab, later events go to it whatever is under
// the pointer.
type PointerEvent struct {
	PointerID int
	Pos       selection.Point
	Target    Target
	Modifier  bool
}

// Key is a keyboard input the engine reacts to.
type Key int

const (
	KeyEscape Key = iota + 1
)

// PointerDown starts a gesture. It is ignored while another gesture holds
// the grab.
func (e *Engine) PointerDown(ev PointerEvent) {
	if e.grab.Held() {
		appLog.Debug("pointer-down ignored, grab held", "pointer", ev.PointerID)
		return
	}

	if ev.Target.Kind == TargetItem && ev.Target.ItemID == "" {
		// The front end saw an item but did not say which one.
		id, ok := e.index.HitTest(ev.Pos)
		if !ok {
			return
		}
		ev.Target.ItemID = id
	}

	switch ev.Target.Kind {
	case TargetItem:
		it, ok := e.Item(ev.Target.ItemID)
		if !ok || it.Date == nil {
			return
		}
		e.session = e.factory.Move(ev.PointerID, ev.Pos, it, e.itemTop(it, ev.Pos), e.selected.Subjects(it.ID))

	case TargetResizeHandle:
		it, ok := e.Item(ev.Target.ItemID)
		if !ok || !it.Timed() {
			return
		}
		e.session = e.factory.Resize(ev.PointerID, ev.Pos, it)

	case TargetGrid:
		e.session = e.factory.Create(ev.PointerID, ev.Pos)

	case TargetCanvas:
		e.marquee.Begin(ev.Pos)

	default:
		return
	}

	e.grab.Acquire(ev.PointerID)
	e.modifier = ev.Modifier
}

// PointerMove feeds the active gesture.
func (e *Engine) PointerMove(ev PointerEvent) {
	if !e.grab.Holds(ev.PointerID) {
		return
	}
	if e.marquee.Active() {
		e.selected.Replace(e.marquee.Update(ev.Pos, e.index))
		return
	}
	if e.session == nil {
		return
	}
	if e.session.Move(ev.Pos) {
		e.activated()
	}
}

// PointerUp ends the active gesture and commits it if it has a valid,
// changed target.
func (e *Engine) PointerUp(ev PointerEvent) {
	if !e.grab.Holds(ev.PointerID) {
		return
	}
	e.grab.Release(ev.PointerID)

	if e.marquee.Active() {
		e.selected.Replace(e.marquee.Update(ev.Pos, e.index))
		e.marquee.End()
		return
	}

	s := e.session
	e.session = nil
	if s == nil {
		return
	}
	wasPending := s.State() == drag.StatePending
	res := s.Release(ev.Pos)
	if wasPending && s.Mode() == drag.ModeMove && res.Kind != drag.ResultClick {
		// Activated by the release itself.
		e.collapseSelection(s)
	}

	switch res.Kind {
	case drag.ResultClick:
		if s.Mode() == drag.ModeMove {
			e.selected.Click(s.ItemID(), e.modifier)
			e.host.OnItemClick(s.ItemID())
		}
	case drag.ResultNoop:
		appLog.Debug("gesture released without change", "mode", s.Mode())
	case drag.ResultCommit:
		e.commit(s, res.Preview)
	}
}

// PointerCancel aborts the gesture of ev's pointer with no mutation.
func (e *Engine) PointerCancel(ev PointerEvent) {
	if !e.grab.Holds(ev.PointerID) {
		return
	}
	e.abort()
}

// KeyDown handles k. Escape aborts any gesture and clears the selection.
func (e *Engine) KeyDown(k Key) {
	if k != KeyEscape {
		return
	}
	e.abort()
	e.selected.Clear()
}

func (e *Engine) abort() {
	if e.session != nil {
		e.session.Cancel()
		appLog.Debug("gesture cancelled", "mode", e.session.Mode(), "item", e.session.ItemID())
		e.session = nil
	}
	e.marquee.End()
	e.grab.Reset()
}

func (e *Engine) activated() {
	s := e.session
	appLog.Debug("gesture activated", "mode", s.Mode(), "item", s.ItemID())
	if s.Mode() == drag.ModeMove {
		e.collapseSelection(s)
	}
}

// collapseSelection narrows the selection to the dragged item unless the
// item is already part of it.
func (e *Engine) collapseSelection(s *drag.Session) {
	if !e.selected.Has(s.ItemID()) {
		e.selected.Replace(selection.NewSet(s.ItemID()))
		s.SetSubjects([]string{s.ItemID()})
	}
}

// itemTop is the viewport Y of the item's top edge: its registered rectangle when
// there is one, else its position on the grid. All-day items without a
// rectangle are grabbed at the pointer.
func (e *Engine) itemTop(it model.ScheduledItem, p selection.Point) float64 {
	if r, ok := e.index.Rect(it.ID); ok {
		return r.Top
	}
	if it.Time != nil {
		return e.factory.Geometry.GridTop() + e.mapper.TimeToPixel(*it.Time)
	}
	return p.Y
}

func (e *Engine) commit(s *drag.Session, pv drag.Preview) {
	switch s.Mode() {
	case drag.ModeMove:
		e.commitMove(s, pv)
	case drag.ModeResize:
		e.commitResize(s, pv)
	case drag.ModeCreate:
		appLog.Debug("create committed", "date", pv.Date, "start", pv.Time, "end", pv.End)
		e.host.OnRequestCreate(pv.Date, *pv.Time, pv.End)
	}
}

func (e *Engine) commitMove(s *drag.Session, pv drag.Preview) {
	anchor, ok := e.Item(s.ItemID())
	if !ok {
		return
	}
	var subjects []model.ScheduledItem
	for _, id := range s.Subjects() {
		if it, ok := e.Item(id); ok {
			subjects = append(subjects, it)
		}
	}

	moves := drag.PlanMove(anchor, subjects, pv)
	e.selected.Clear()
	if len(moves) == 0 {
		appLog.Debug("move committed onto current position", "item", s.ItemID())
		return
	}

	ids := make([]string, len(moves))
	batch := make([]update, len(moves))
	for i, m := range moves {
		ids[i] = m.ItemID
		e.overrides.SetOverride(m.ItemID, optimistic.Override{Date: m.Date, Time: m.Time})
		batch[i] = update{id: m.ItemID, patch: m.Patch()}
	}
	at := pv.Time
	if pv.Lane == drag.LaneDay {
		at = anchor.Time
	}
	appLog.Debug("move committed", "items", len(ids), "date", pv.Date, "lane", pv.Lane)

	e.host.OnRequestMove(ids, pv.Date, at)
	e.dispatch.send(batch)
}

func (e *Engine) commitResize(s *drag.Session, pv drag.Preview) {
	it, ok := e.Item(s.ItemID())
	if !ok || it.Date == nil {
		return
	}
	minutes := pv.DurationMinutes
	e.overrides.SetOverride(it.ID, optimistic.Override{Date: *it.Date, Time: it.Time, DurationMinutes: &minutes})
	appLog.Debug("resize committed", "item", it.ID, "minutes", minutes)

	e.host.OnRequestResize(it.ID, minutes)
	e.dispatch.send([]update{{id: it.ID, patch: model.ItemPatch{DurationMinutes: &minutes}}})
}
