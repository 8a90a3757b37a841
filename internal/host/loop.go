// Package host runs the engine: it owns it on a single goroutine, feeds it
// authoritative data on a schedule and after every commit, and turns the
// engine's requests into repository writes.
package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"timegrid/internal/config"
	"timegrid/internal/drag"
	"timegrid/internal/engine"
	appLog "timegrid/internal/log"
	"timegrid/internal/model"
	"timegrid/internal/selection"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("host: loop stopped")

// Options configures a Loop.
type Options struct {
	Grid      config.GridConfig
	Drag      config.DragConfig
	Days      int
	WeekStart time.Weekday
	Location  *time.Location
	// Month shows a month of day cells instead of the week's hour grid.
	Month bool
	// RefreshSpec is a cron spec for periodic refreshes; empty disables them.
	RefreshSpec string
	// Now defaults to time.Now.
	Now func() time.Time
}

// FromConfig derives loop options from the application config.
func FromConfig(c *config.Config) Options {
	return Options{
		Grid:        c.Grid,
		Drag:        c.Drag,
		Days:        c.HorizonDays,
		WeekStart:   c.WeekStartDay(),
		Location:    c.Location(),
		Month:       c.View == "month",
		RefreshSpec: c.RefreshCron,
	}
}

// Loop serializes every engine call onto one goroutine. Everything that
// touches the engine goes through Do.
type Loop struct {
	opts  Options
	repo  Repository
	eng   *engine.Engine
	geom  drag.Columns
	month drag.MonthGrid
	calls chan call

	refresh chan struct{}
	stopped chan struct{}
}

type call struct {
	fn   func(*engine.Engine)
	done chan struct{}
}

// New builds a loop over repo showing the week that contains today.
func New(opts Options, repo Repository) (*Loop, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Days <= 0 {
		opts.Days = 7
	}

	l := &Loop{
		opts:    opts,
		repo:    repo,
		calls:   make(chan call),
		refresh: make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	today := model.DateOf(opts.Now().In(opts.Location))
	l.geom = drag.Columns{
		FirstDate:    model.StartOfWeek(today, opts.WeekStart),
		Days:         opts.Days,
		Left:         opts.Grid.OriginX,
		DayWidth:     opts.Grid.DayWidthPx,
		AllDayTop:    opts.Grid.AllDayTopPx,
		AllDayHeight: opts.Grid.AllDayHeightPx,
		Top:          opts.Grid.OriginY,
		HourHeight:   opts.Grid.HourHeightPx,
	}
	l.month = l.monthGrid(today)

	thresholds := drag.Thresholds{Move: opts.Drag.MoveThresholdPx, Create: opts.Drag.CreateThresholdPx}
	if opts.Month {
		thresholds.Move = opts.Drag.MonthMoveThresholdPx
		if thresholds.Move <= 0 {
			thresholds.Move = drag.MonthThresholds().Move
		}
	}

	eng, err := engine.New(engine.Options{
		Geometry:      l.geometry(),
		HourHeight:    opts.Grid.HourHeightPx,
		Thresholds:    thresholds,
		UpdateTimeout: 30 * time.Second,
	}, repo, l)
	if err != nil {
		return nil, fmt.Errorf("host: %w", err)
	}
	l.eng = eng
	return l, nil
}

func (l *Loop) monthGrid(d model.Date) drag.MonthGrid {
	m := drag.MonthGridFor(d, l.opts.WeekStart)
	m.Left = l.opts.Grid.OriginX
	m.Top = l.opts.Grid.OriginY
	m.DayWidth = l.opts.Grid.DayWidthPx
	m.WeekHeight = l.opts.Grid.WeekHeightPx
	return m
}

func (l *Loop) geometry() drag.Geometry {
	if l.opts.Month {
		return l.month
	}
	return l.geom
}

// Month reports whether the loop shows a month of day cells.
func (l *Loop) Month() bool {
	return l.opts.Month
}

// View is the range of days on screen.
func (l *Loop) View() model.DateRange {
	if l.opts.Month {
		return model.DateRange{Start: l.month.FirstDate, End: l.month.FirstDate.AddDays(l.month.Days() - 1)}
	}
	return model.DateRange{Start: l.geom.FirstDate, End: l.geom.FirstDate.AddDays(l.geom.Days - 1)}
}

// ColumnRect is where date is drawn on screen. Call it from inside Do.
func (l *Loop) ColumnRect(date model.Date) (selection.Rect, bool) {
	return l.geometry().ColumnRect(date)
}

// ScrollTop is how far the hour grid has scrolled. Call it from inside Do.
func (l *Loop) ScrollTop() float64 {
	return l.geom.ScrollTop
}

// Run processes calls, refreshes and commit completions until ctx ends.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.stopped)

	var sched *cron.Cron
	if l.opts.RefreshSpec != "" {
		sched = cron.New(cron.WithLocation(l.opts.Location))
		if _, err := sched.AddFunc(l.opts.RefreshSpec, l.RequestRefresh); err != nil {
			return fmt.Errorf("host: refresh schedule %q: %w", l.opts.RefreshSpec, err)
		}
		sched.Start()
		defer sched.Stop()
	}

	v := l.View()
	appLog.Info("host loop started", "view_start", v.Start, "view_end", v.End, "month", l.opts.Month, "refresh", l.opts.RefreshSpec)
	l.reload(ctx)

	for {
		select {
		case <-ctx.Done():
			appLog.Info("host loop stopping")
			return nil
		case c := <-l.calls:
			c.fn(l.eng)
			close(c.done)
		case <-l.refresh:
			l.reload(ctx)
		case done := <-l.eng.Completions():
			if done.Failed() {
				appLog.Warn("commit finished with failures", "items", len(done.IDs), "failed", len(done.Errs))
			}
			l.reload(ctx)
		}
	}
}

// Do runs fn on the loop goroutine and waits for it.
func (l *Loop) Do(ctx context.Context, fn func(*engine.Engine)) error {
	c := call{fn: fn, done: make(chan struct{})}
	select {
	case l.calls <- c:
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-c.done:
		return nil
	case <-l.stopped:
		return ErrStopped
	}
}

// RequestRefresh schedules an authoritative reload. Requests made while
// one is pending collapse into it.
func (l *Loop) RequestRefresh() {
	select {
	case l.refresh <- struct{}{}:
	default:
	}
}

// ShowDate moves the view to the week, or month, containing d. Call it
// from inside Do.
func (l *Loop) ShowDate(ctx context.Context, d model.Date) {
	l.geom.FirstDate = model.StartOfWeek(d, l.opts.WeekStart)
	l.month = l.monthGrid(d)
	l.eng.SetGeometry(l.geometry())
	l.reload(ctx)
}

// Scroll sets how far the hour grid has scrolled. The month view does not
// scroll. Call it from inside Do.
func (l *Loop) Scroll(top float64) {
	l.geom.ScrollTop = top
	l.eng.SetGeometry(l.geometry())
}

func (l *Loop) reload(ctx context.Context) {
	rng := l.View()
	items, err := l.repo.FetchItems(ctx, rng)
	switch {
	case errors.Is(err, ErrPartial):
		appLog.Warn("refresh without calendar events", "err", err)
	case err != nil:
		appLog.Error("refresh failed", err, "start", rng.Start, "end", rng.End)
		return
	}
	l.eng.SetItems(items)
	appLog.Debug("refreshed", "start", rng.Start, "end", rng.End, "items", len(items))
}

// OnItemClick is called by the engine on a plain click.
func (l *Loop) OnItemClick(id string) {
	appLog.Debug("item clicked", "id", id)
}

// OnRequestMove is called by the engine when a move commits. The engine
// has already dispatched the updates.
func (l *Loop) OnRequestMove(ids []string, date model.Date, t *model.TimeOfDay) {
	at := "all-day"
	if t != nil {
		at = t.String()
	}
	appLog.Info("move requested", "items", len(ids), "date", date, "time", at)
}

// OnRequestResize is called by the engine when a resize commits.
func (l *Loop) OnRequestResize(id string, minutes int) {
	appLog.Info("resize requested", "id", id, "minutes", minutes)
}

// OnRequestCreate stores a new task for the drawn span and refreshes once
// it is written.
func (l *Loop) OnRequestCreate(date model.Date, start, end model.TimeOfDay) {
	it := model.ScheduledItem{
		Kind:            model.KindTask,
		Title:           "New task",
		Date:            &date,
		Time:            start.Ptr(),
		DurationMinutes: int(end - start),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		created, err := l.repo.Tasks.CreateItem(ctx, it)
		if err != nil {
			appLog.Error("create task failed", err, "date", date, "start", start)
			return
		}
		appLog.Info("task created", "id", created.ID, "date", date, "start", start, "end", end)
		l.RequestRefresh()
	}()
}
