// Package engine ties the time grid together: it owns the authoritative
// item list, the optimistic overrides, the selection and the spatial index,
// and turns pointer and key input into drag sessions and update requests.
//
// An Engine is not safe for concurrent use. All calls are expected to come
// from one goroutine (see internal/host); only repository updates run
// elsewhere, and their outcome comes back through Completions.
package engine

import (
	"context"
	"fmt"
	"time"

	"timegrid/internal/drag"
	"timegrid/internal/layout"
	appLog "timegrid/internal/log"
	"timegrid/internal/model"
	"timegrid/internal/optimistic"
	"timegrid/internal/selection"
	"timegrid/internal/timemap"
)

// Repository is the authoritative item store.
type Repository interface {
	FetchItems(ctx context.Context, r model.DateRange) ([]model.ScheduledItem, error)
	UpdateItem(ctx context.Context, id string, patch model.ItemPatch) error
}

// Host receives the outcome of gestures. Calls happen synchronously on the
// engine's goroutine.
type Host interface {
	OnItemClick(id string)
	OnRequestMove(ids []string, date model.Date, t *model.TimeOfDay)
	OnRequestResize(id string, durationMinutes int)
	OnRequestCreate(date model.Date, start, end model.TimeOfDay)
}

// NopHost ignores every callback.
type NopHost struct{}

func (NopHost) OnItemClick(string)                                           {}
func (NopHost) OnRequestMove([]string, model.Date, *model.TimeOfDay)          {}
func (NopHost) OnRequestResize(string, int)                                  {}
func (NopHost) OnRequestCreate(model.Date, model.TimeOfDay, model.TimeOfDay) {}

// Options configures an Engine.
type Options struct {
	// Geometry places day columns and lanes on screen.
	Geometry drag.Geometry
	// HourHeight is the height of one hour of grid, in pixels.
	HourHeight float64
	// Thresholds default to drag.DefaultThresholds.
	Thresholds drag.Thresholds
	// UpdateTimeout bounds each repository update. Zero means no limit.
	UpdateTimeout time.Duration
}

// Engine is the interactive scheduling engine for one grid.
type Engine struct {
	repo Repository
	host Host

	mapper  timemap.Mapper
	factory drag.Factory

	items     []model.ScheduledItem
	overrides *optimistic.Store
	index     *selection.Index
	selected  *selection.Selection
	marquee   selection.Marquee

	grab     drag.Grab
	session  *drag.Session
	modifier bool

	dispatch *dispatcher
}

// New builds an engine over repo. A nil host gets NopHost.
func New(opts Options, repo Repository, host Host) (*Engine, error) {
	if opts.Geometry == nil {
		return nil, fmt.Errorf("engine: geometry is required")
	}
	m, err := timemap.New(opts.HourHeight)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if opts.Thresholds == (drag.Thresholds{}) {
		opts.Thresholds = drag.DefaultThresholds()
	}
	if host == nil {
		host = NopHost{}
	}
	return &Engine{
		repo:      repo,
		host:      host,
		mapper:    m,
		factory:   drag.Factory{Thresholds: opts.Thresholds, Mapper: m, Geometry: opts.Geometry},
		overrides: optimistic.NewStore(),
		index:     selection.NewIndex(),
		selected:  selection.New(),
		dispatch:  newDispatcher(repo, opts.UpdateTimeout),
	}, nil
}

// SetGeometry swaps the grid geometry, e.g. after a scroll or resize of the
// view. A gesture already in flight keeps the geometry it started with.
func (e *Engine) SetGeometry(g drag.Geometry) {
	if g != nil {
		e.factory.Geometry = g
	}
}

func (e *Engine) Mapper() timemap.Mapper {
	return e.mapper
}

// SetItems installs a fresh authoritative item list. Every optimistic
// override and the selection are dropped.
func (e *Engine) SetItems(items []model.ScheduledItem) {
	e.items = append(e.items[:0:0], items...)
	e.overrides.Invalidate()
	e.selected.Clear()
	appLog.Debug("engine items replaced", "count", len(items))
}

// Refresh fetches r from the repository and installs the result. On error
// the current items and overrides are kept.
func (e *Engine) Refresh(ctx context.Context, r model.DateRange) error {
	items, err := e.repo.FetchItems(ctx, r)
	if err != nil {
		return fmt.Errorf("engine: refresh: %w", err)
	}
	e.SetItems(items)
	return nil
}

// Items returns the items as they should be drawn: authoritative values
// with optimistic overrides merged in.
func (e *Engine) Items() []model.ScheduledItem {
	return e.overrides.ApplyAll(e.items)
}

// Item returns the merged view of one item.
func (e *Engine) Item(id string) (model.ScheduledItem, bool) {
	for _, it := range e.items {
		if it.ID == id {
			return e.overrides.Apply(it), true
		}
	}
	return model.ScheduledItem{}, false
}

// Day lays out date from the merged items.
func (e *Engine) Day(date model.Date) layout.Day {
	return layout.ForDay(date, e.Items())
}

// Days lays out every day of r.
func (e *Engine) Days(r model.DateRange) []layout.Day {
	items := e.Items()
	var out []layout.Day
	for _, d := range r.Days() {
		out = append(out, layout.ForDay(d, items))
	}
	return out
}

// Preview returns the live target of the active gesture.
func (e *Engine) Preview() (drag.Preview, bool) {
	if e.session == nil {
		return drag.Preview{}, false
	}
	return e.session.Preview()
}

// Marquee returns the rubber-band rectangle while one is being dragged.
func (e *Engine) Marquee() (selection.Rect, bool) {
	return e.marquee.Rect()
}

// Selection returns the selected ids in sorted order.
func (e *Engine) Selection() []string {
	return e.selected.IDs()
}

// Index is where the drawing side registers item rectangles.
func (e *Engine) Index() *selection.Index {
	return e.index
}

// Override returns the pending override of id, if any.
func (e *Engine) Override(id string) (optimistic.Override, bool) {
	return e.overrides.Get(id)
}

// Busy reports whether a gesture holds the input grab.
func (e *Engine) Busy() bool {
	return e.grab.Held()
}

// Completions delivers one Completion per committed gesture once all of its
// repository updates have returned. It must be drained.
func (e *Engine) Completions() <-chan Completion {
	return e.dispatch.done
}
