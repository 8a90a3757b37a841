// Package drag implements the gesture state machine behind moving, resizing
// and creating items on the hour grid and on month day cells.
//
// A Session lives from pointer-down to pointer-up (or cancel). It starts
// pending and only turns into a drag once the pointer has travelled past a
// threshold, so a plain click never moves anything.
package drag

import (
	"math"

	"timegrid/internal/model"
	"timegrid/internal/selection"
	"timegrid/internal/timemap"
)

// Mode is the kind of gesture.
type Mode int

const (
	ModeMove Mode = iota
	ModeResize
	ModeCreate
)

func (m Mode) String() string {
	switch m {
	case ModeMove:
		return "move"
	case ModeResize:
		return "resize"
	case ModeCreate:
		return "create"
	default:
		return "unknown"
	}
}

// State is where a session is in its lifecycle.
//
//	move:   pending -> dragging  -> committed | cancelled
//	resize: pending -> resizing  -> committed | cancelled
//	create: pending -> selecting -> committed | cancelled
//
// A pending session that is released becomes committed with a click result.
type State int

const (
	StatePending State = iota
	StateDragging
	StateResizing
	StateSelecting
	StateCommitted
	StateCancelled
)

func (s State) String() string {
	return [...]string{"pending", "dragging", "resizing", "selecting", "committed", "cancelled"}[s]
}

// Lane is the part of a day column the pointer is over.
type Lane int

const (
	LaneGrid Lane = iota
	LaneAllDay
	// LaneDay is a day cell with no time axis. Dropping there changes the
	// date and keeps the time of day.
	LaneDay
)

func (l Lane) String() string {
	switch l {
	case LaneGrid:
		return "grid"
	case LaneAllDay:
		return "all-day"
	case LaneDay:
		return "day"
	default:
		return "unknown"
	}
}

// Drop is a droppable region under the pointer.
type Drop struct {
	Date model.Date
	Lane Lane
}

// Geometry resolves viewport positions against the rendered grid. It is
// supplied by whatever draws the grid.
type Geometry interface {
	// GridTop is the viewport Y of 00:00, scroll offset applied.
	GridTop() float64
	// DropAt returns the droppable region under p, if any.
	DropAt(p selection.Point) (Drop, bool)
	// ColumnRect is where date is drawn: its hour-grid column, or its
	// cell on a month grid.
	ColumnRect(date model.Date) (selection.Rect, bool)
}

// Thresholds are the pointer travel, in pixels, a gesture needs before it
// activates.
type Thresholds struct {
	Move   float64
	Create float64
}

// DefaultThresholds returns the distances used by the week grid.
func DefaultThresholds() Thresholds {
	return Thresholds{Move: 5, Create: 5}
}

// MonthThresholds returns the distances used by the month grid, where day
// cells are small targets for a click.
func MonthThresholds() Thresholds {
	return Thresholds{Move: 8, Create: 5}
}

// Preview is the live destination of a gesture.
type Preview struct {
	Mode  Mode `json:"mode"`
	Valid bool `json:"valid"`

	// Move and create: destination day and lane. A move onto the all-day
	// lane or a day cell has a nil Time.
	Date model.Date       `json:"date"`
	Lane Lane             `json:"lane"`
	Time *model.TimeOfDay `json:"time,omitempty"`

	// Resize: new duration.
	DurationMinutes int `json:"duration_minutes,omitempty"`

	// Create: end of the new item.
	End model.TimeOfDay `json:"end,omitempty"`
}

// ResultKind says what a released session amounts to.
type ResultKind int

const (
	// ResultIgnored: the session had already ended.
	ResultIgnored ResultKind = iota
	// ResultClick: released before the threshold.
	ResultClick
	// ResultNoop: released with no valid target or no change.
	ResultNoop
	// ResultCommit: released on a valid, changed target.
	ResultCommit
)

// Result is the outcome of Release.
type Result struct {
	Kind    ResultKind
	Preview Preview
}

// Session is one gesture.
type Session struct {
	mode      Mode
	state     State
	pointerID int

	start selection.Point

	itemID       string
	subjects     []string
	anchorOffset float64

	initialDuration int
	storedDuration  int

	createDrop   Drop
	createOnGrid bool

	preview Preview

	thresholds Thresholds
	mapper     timemap.Mapper
	geom       Geometry
}

// Factory builds sessions that share thresholds, time mapping and geometry.
type Factory struct {
	Thresholds Thresholds
	Mapper     timemap.Mapper
	Geometry   Geometry
}

func (f Factory) session(mode Mode, pointerID int, p selection.Point) *Session {
	return &Session{
		mode:       mode,
		state:      StatePending,
		pointerID:  pointerID,
		start:      p,
		preview:    Preview{Mode: mode},
		thresholds: f.Thresholds,
		mapper:     f.Mapper,
		geom:       f.Geometry,
	}
}

// Move starts a move of item grabbed at p. itemTop is the viewport Y of the
// item's top edge; the pointer keeps the same offset from it for the whole
// gesture. subjects are the ids travelling with the item.
func (f Factory) Move(pointerID int, p selection.Point, item model.ScheduledItem, itemTop float64, subjects []string) *Session {
	s := f.session(ModeMove, pointerID, p)
	s.itemID = item.ID
	s.anchorOffset = p.Y - itemTop
	s.subjects = append([]string(nil), subjects...)
	if len(s.subjects) == 0 {
		s.subjects = []string{item.ID}
	}
	return s
}

// Resize starts dragging the bottom edge of item.
func (f Factory) Resize(pointerID int, p selection.Point, item model.ScheduledItem) *Session {
	s := f.session(ModeResize, pointerID, p)
	s.itemID = item.ID
	s.subjects = []string{item.ID}
	s.initialDuration = item.LayoutDuration()
	s.storedDuration = item.Duration()
	return s
}

// Create starts drawing a new item on empty grid space at p.
func (f Factory) Create(pointerID int, p selection.Point) *Session {
	s := f.session(ModeCreate, pointerID, p)
	if d, ok := f.Geometry.DropAt(p); ok && d.Lane == LaneGrid {
		s.createDrop, s.createOnGrid = d, true
	}
	return s
}

func (s *Session) Mode() Mode     { return s.mode }
func (s *Session) State() State   { return s.state }
func (s *Session) PointerID() int { return s.pointerID }
func (s *Session) ItemID() string { return s.itemID }

// AnchorOffset is the distance from the grabbed item's top edge to the
// pointer at pointer-down.
func (s *Session) AnchorOffset() float64 {
	return s.anchorOffset
}

// Subjects returns the ids the gesture acts on.
func (s *Session) Subjects() []string {
	return append([]string(nil), s.subjects...)
}

// SetSubjects replaces the ids a move carries. Resize and create sessions
// always act on a single item and ignore it.
func (s *Session) SetSubjects(ids []string) {
	if s.mode != ModeMove || len(ids) == 0 {
		return
	}
	s.subjects = append([]string(nil), ids...)
}

// Active reports whether the session has passed its threshold and not yet
// ended.
func (s *Session) Active() bool {
	switch s.state {
	case StateDragging, StateResizing, StateSelecting:
		return true
	}
	return false
}

// Done reports whether the session has ended.
func (s *Session) Done() bool {
	return s.state == StateCommitted || s.state == StateCancelled
}

// Preview returns the live destination while the session is active.
func (s *Session) Preview() (Preview, bool) {
	if !s.Active() {
		return Preview{}, false
	}
	return s.preview, true
}

// Move feeds a pointer position. It reports whether this call activated the
// session.
func (s *Session) Move(p selection.Point) bool {
	if s.Done() {
		return false
	}
	activated := false
	if s.state == StatePending {
		if distance(s.start, p) < s.threshold() {
			return false
		}
		s.state = activeState(s.mode)
		activated = true
	}
	s.update(p)
	return activated
}

// Release ends the session at p.
func (s *Session) Release(p selection.Point) Result {
	if s.Done() {
		return Result{Kind: ResultIgnored}
	}
	s.Move(p)

	if s.state == StatePending {
		s.state = StateCommitted
		return Result{Kind: ResultClick}
	}

	preview := s.preview
	s.state = StateCommitted
	s.preview = Preview{Mode: s.mode}

	if !preview.Valid {
		return Result{Kind: ResultNoop, Preview: preview}
	}
	if s.mode == ModeResize && preview.DurationMinutes == s.storedDuration {
		return Result{Kind: ResultNoop, Preview: preview}
	}
	return Result{Kind: ResultCommit, Preview: preview}
}

// Cancel aborts the session in any state. It is a no-op once the session
// has ended.
func (s *Session) Cancel() {
	if s.Done() {
		return
	}
	s.state = StateCancelled
	s.preview = Preview{Mode: s.mode}
}

func (s *Session) threshold() float64 {
	if s.mode == ModeCreate {
		return s.thresholds.Create
	}
	return s.thresholds.Move
}

func (s *Session) update(p selection.Point) {
	pv := Preview{Mode: s.mode}
	switch s.mode {
	case ModeMove:
		d, ok := s.geom.DropAt(p)
		if !ok {
			break
		}
		pv.Valid, pv.Date, pv.Lane = true, d.Date, d.Lane
		if d.Lane == LaneGrid {
			top := p.Y - s.anchorOffset - s.geom.GridTop()
			pv.Time = s.mapper.PixelToTime(top).Ptr()
		}

	case ModeResize:
		delta := s.mapper.PixelsToMinutes(p.Y - s.start.Y)
		pv.Valid = true
		pv.DurationMinutes = max(model.MinLayoutMinutes, timemap.Snap(float64(s.initialDuration)+delta))

	case ModeCreate:
		if !s.createOnGrid {
			break
		}
		if r, ok := s.geom.ColumnRect(s.createDrop.Date); ok {
			p.Y = min(max(p.Y, r.Top), r.Bottom)
		}
		top := s.geom.GridTop()
		y0, y1 := s.start.Y-top, p.Y-top
		start := s.mapper.PixelToTime(min(y0, y1))
		end := model.TimeOfDay(timemap.Clamp(timemap.Snap(s.mapper.PixelsToMinutes(max(y0, y1))), 0, model.MinutesPerDay))
		if end <= start {
			end = start + timemap.SnapMinutes
		}
		pv.Valid, pv.Date, pv.Time, pv.End = true, s.createDrop.Date, start.Ptr(), end
	}
	s.preview = pv
}

func activeState(m Mode) State {
	switch m {
	case ModeResize:
		return StateResizing
	case ModeCreate:
		return StateSelecting
	default:
		return StateDragging
	}
}

func distance(a, b selection.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
