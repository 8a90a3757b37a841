package drag

import (
	"time"

	"timegrid/internal/model"
	"timegrid/internal/selection"
)

// Columns is the Geometry of a multi-day view: an all-day lane above an
// hour grid, both split into equally wide day columns.
type Columns struct {
	FirstDate model.Date
	Days      int

	// Left is the viewport X of the first day column.
	Left     float64
	DayWidth float64

	// AllDayTop and AllDayHeight place the all-day lane.
	AllDayTop    float64
	AllDayHeight float64

	// Top is the viewport Y of 00:00 before scrolling; ScrollTop is how far
	// the grid has scrolled.
	Top        float64
	ScrollTop  float64
	HourHeight float64
}

func (c Columns) GridTop() float64 {
	return c.Top - c.ScrollTop
}

// DropAt maps p to a day column and lane. Points left or right of the
// columns, between the lanes or past the end of the day hit nothing.
func (c Columns) DropAt(p selection.Point) (Drop, bool) {
	if c.Days <= 0 || c.DayWidth <= 0 || p.X < c.Left {
		return Drop{}, false
	}
	col := int((p.X - c.Left) / c.DayWidth)
	if col >= c.Days {
		return Drop{}, false
	}
	date := c.FirstDate.AddDays(col)

	if p.Y >= c.AllDayTop && p.Y < c.AllDayTop+c.AllDayHeight {
		return Drop{Date: date, Lane: LaneAllDay}, true
	}
	top := c.GridTop()
	if p.Y >= top && p.Y <= top+24*c.HourHeight {
		return Drop{Date: date, Lane: LaneGrid}, true
	}
	return Drop{}, false
}

// ColumnRect returns the viewport rectangle of the hour grid for date.
func (c Columns) ColumnRect(date model.Date) (selection.Rect, bool) {
	col := c.FirstDate.DaysUntil(date)
	if col < 0 || col >= c.Days {
		return selection.Rect{}, false
	}
	left := c.Left + float64(col)*c.DayWidth
	top := c.GridTop()
	return selection.Rect{Left: left, Top: top, Right: left + c.DayWidth, Bottom: top + 24*c.HourHeight}, true
}

// MonthGrid is the Geometry of a month view: rows of seven day cells, one
// row per week, with no time axis. Every drop lands on LaneDay.
type MonthGrid struct {
	FirstDate model.Date
	Weeks     int

	Left, Top  float64
	DayWidth   float64
	WeekHeight float64
}

// MonthGridFor lays out the weeks covering the month of d, starting on first.
func MonthGridFor(d model.Date, first time.Weekday) MonthGrid {
	start := model.StartOfWeek(model.Date{Year: d.Year, Month: d.Month, Day: 1}, first)
	last := model.Date{Year: d.Year, Month: d.Month, Day: 1}.AddDays(31)
	last = model.Date{Year: last.Year, Month: last.Month, Day: 1}.AddDays(-1)
	return MonthGrid{FirstDate: start, Weeks: start.DaysUntil(last)/7 + 1}
}

// Days is the number of cells on the grid.
func (m MonthGrid) Days() int {
	return 7 * m.Weeks
}

// GridTop has no time axis to offset; it is the top of the first row.
func (m MonthGrid) GridTop() float64 {
	return m.Top
}

func (m MonthGrid) DropAt(p selection.Point) (Drop, bool) {
	if m.Weeks <= 0 || m.DayWidth <= 0 || m.WeekHeight <= 0 || p.X < m.Left || p.Y < m.Top {
		return Drop{}, false
	}
	col := int((p.X - m.Left) / m.DayWidth)
	row := int((p.Y - m.Top) / m.WeekHeight)
	if col >= 7 || row >= m.Weeks {
		return Drop{}, false
	}
	return Drop{Date: m.FirstDate.AddDays(row*7 + col), Lane: LaneDay}, true
}

func (m MonthGrid) ColumnRect(date model.Date) (selection.Rect, bool) {
	i := m.FirstDate.DaysUntil(date)
	if i < 0 || i >= m.Days() {
		return selection.Rect{}, false
	}
	left := m.Left + float64(i%7)*m.DayWidth
	top := m.Top + float64(i/7)*m.WeekHeight
	return selection.Rect{Left: left, Top: top, Right: left + m.DayWidth, Bottom: top + m.WeekHeight}, true
}
