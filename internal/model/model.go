package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidDate = errors.New("model: invalid date")
	ErrInvalidTime = errors.New("model: invalid time of day")
)

const (
	// MinutesPerDay is the length of the hour grid.
	MinutesPerDay = 24 * 60

	// DefaultTaskMinutes is used for tasks that carry no duration.
	DefaultTaskMinutes = 30

	// MinLayoutMinutes is the shortest interval a timed item occupies for
	// layout, hit-testing and resize. The stored duration is left untouched.
	MinLayoutMinutes = 15
)

// Kind discriminates tasks from events.
type Kind string

const (
	KindTask  Kind = "task"
	KindEvent Kind = "event"
)

// Date is a calendar day with no time or zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// MustDate is ParseDate for literals; it panics on malformed input.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	return d.Time(time.UTC).Format(dateLayout)
}

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// AddDays returns d shifted by n days (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

// DaysUntil returns the number of days from d to o.
func (d Date) DaysUntil(o Date) int {
	return int(o.Time(time.UTC).Sub(d.Time(time.UTC)).Hours() / 24)
}

func (d Date) Before(o Date) bool {
	return d.Time(time.UTC).Before(o.Time(time.UTC))
}

func (d Date) After(o Date) bool {
	return o.Before(d)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a count of minutes since midnight.
type TimeOfDay int

// At builds a TimeOfDay from hours and minutes.
func At(h, m int) TimeOfDay {
	return TimeOfDay(h*60 + m)
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" (seconds are dropped).
// "24:00" is accepted as the end of the day.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int
	n, _ := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec)
	if n < 2 || h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && (m != 0 || sec != 0)) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return At(h, m), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Ptr returns a pointer to a copy of t.
func (t TimeOfDay) Ptr() *TimeOfDay {
	return &t
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ScheduledItem is a task or event placed (or placeable) on the grid.
type ScheduledItem struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`

	// Date is nil for unscheduled items.
	Date *Date `json:"date,omitempty"`
	// Time is nil for items in the all-day lane.
	Time *TimeOfDay `json:"time,omitempty"`

	// DurationMinutes is the stored duration; zero means "not set".
	DurationMinutes int `json:"duration_minutes,omitempty"`

	// Location, Color for events; Priority, Status for tasks.
	Location string `json:"location,omitempty"`
	Color    string `json:"color,omitempty"`
	Priority string `json:"priority,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Timed reports whether the item belongs on the hour grid.
func (it ScheduledItem) Timed() bool {
	return it.Date != nil && it.Time != nil
}

// Duration returns the effective duration: the stored value, or
// DefaultTaskMinutes for a task that has none. An event without an end
// has no duration and only takes up MinLayoutMinutes on the grid.
func (it ScheduledItem) Duration() int {
	if it.DurationMinutes > 0 {
		return it.DurationMinutes
	}
	if it.Kind == KindEvent {
		return 0
	}
	return DefaultTaskMinutes
}

// LayoutDuration is Duration floored to MinLayoutMinutes.
func (it ScheduledItem) LayoutDuration() int {
	return max(it.Duration(), MinLayoutMinutes)
}

// Interval returns the [start, end) minutes the item occupies on the grid.
// Untimed items report ok=false.
func (it ScheduledItem) Interval() (start, end int, ok bool) {
	if it.Time == nil {
		return 0, 0, false
	}
	start = int(*it.Time)
	return start, start + it.LayoutDuration(), true
}

// OnDate reports whether the item is anchored to d.
func (it ScheduledItem) OnDate(d Date) bool {
	return it.Date != nil && *it.Date == d
}

// ItemPatch is a partial update sent to an item repository. Nil fields are
// left unchanged. TimeSet distinguishes "clear the time" (TimeSet with a nil
// Time) from "leave the time alone".
type ItemPatch struct {
	Date            *Date
	TimeSet         bool
	Time            *TimeOfDay
	DurationMinutes *int
}

// Empty reports whether the patch changes nothing.
func (p ItemPatch) Empty() bool {
	return p.Date == nil && !p.TimeSet && p.DurationMinutes == nil
}

// Apply returns it with p applied.
func (p ItemPatch) Apply(it ScheduledItem) ScheduledItem {
	if p.Date != nil {
		d := *p.Date
		it.Date = &d
	}
	if p.TimeSet {
		if p.Time == nil {
			it.Time = nil
		} else {
			t := *p.Time
			it.Time = &t
		}
	}
	if p.DurationMinutes != nil {
		it.DurationMinutes = *p.DurationMinutes
	}
	return it
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start Date
	End   Date
}

// Week returns the 7-day range starting at start.
func Week(start Date) DateRange {
	return DateRange{Start: start, End: start.AddDays(6)}
}

func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days lists every day in the range in order.
func (r DateRange) Days() []Date {
	var out []Date
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// StartOfWeek returns the last day on or before d that falls on first.
func StartOfWeek(d Date, first time.Weekday) Date {
	back := (int(d.Time(time.UTC).Weekday()) - int(first) + 7) % 7
	return d.AddDays(-back)
}
