package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-10")
	if err != nil {
		t.Fatal(err)
	}
	if d != (Date{Year: 2025, Month: time.March, Day: 10}) {
		t.Errorf("ParseDate = %+v", d)
	}
	for _, bad := range []string{"", "2025-3-10", "2025-02-30", "tomorrow"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q) err = %v", bad, err)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in   string
		want TimeOfDay
		ok   bool
	}{
		{"09:30", At(9, 30), true},
		{"23:59:59", At(23, 59), true},
		{"00:00", 0, true},
		{"24:00", MinutesPerDay, true},
		{"24:30", 0, false},
		{"24:00:01", 0, false},
		{"25:00", 0, false},
		{"12:60", 0, false},
		{"noon", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestEndOfDayRoundTrips(t *testing.T) {
	end := TimeOfDay(MinutesPerDay)
	b, err := end.MarshalText()
	if err != nil || string(b) != "24:00" {
		t.Fatalf("MarshalText = %s, %v", b, err)
	}
	var got TimeOfDay
	if err := got.UnmarshalText(b); err != nil || got != end {
		t.Errorf("UnmarshalText(%s) = %v, %v", b, got, err)
	}
}

func TestDateArithmetic(t *testing.T) {
	d := MustDate("2025-02-27")
	if got := d.AddDays(2).String(); got != "2025-03-01" {
		t.Errorf("AddDays = %s", got)
	}
	if n := d.DaysUntil(MustDate("2025-03-10")); n != 11 {
		t.Errorf("DaysUntil = %d", n)
	}
	if !d.Before(d.AddDays(1)) || d.After(d) {
		t.Error("ordering")
	}
}

func TestStartOfWeek(t *testing.T) {
	tests := []struct {
		day   string
		first time.Weekday
		want  string
	}{
		{"2025-03-12", time.Monday, "2025-03-10"},
		{"2025-03-10", time.Monday, "2025-03-10"},
		{"2025-03-16", time.Monday, "2025-03-10"},
		{"2025-03-12", time.Sunday, "2025-03-09"},
		{"2025-03-15", time.Sunday, "2025-03-09"},
	}
	for _, tt := range tests {
		if got := StartOfWeek(MustDate(tt.day), tt.first).String(); got != tt.want {
			t.Errorf("StartOfWeek(%s, %s) = %s, want %s", tt.day, tt.first, got, tt.want)
		}
	}
}

func TestDurations(t *testing.T) {
	d := MustDate("2025-03-10")
	nine := At(9, 0)

	it := ScheduledItem{Date: &d, Time: &nine}
	if it.Duration() != DefaultTaskMinutes || it.LayoutDuration() != DefaultTaskMinutes {
		t.Errorf("unset duration = %d/%d", it.Duration(), it.LayoutDuration())
	}

	it.DurationMinutes = 5
	if it.Duration() != 5 || it.LayoutDuration() != MinLayoutMinutes {
		t.Errorf("short duration = %d/%d", it.Duration(), it.LayoutDuration())
	}
	if s, e, ok := it.Interval(); !ok || s != 540 || e != 555 {
		t.Errorf("Interval = %d, %d, %v", s, e, ok)
	}

	ev := ScheduledItem{Kind: KindEvent, Date: &d, Time: &nine}
	if ev.Duration() != 0 || ev.LayoutDuration() != MinLayoutMinutes {
		t.Errorf("event without end = %d/%d", ev.Duration(), ev.LayoutDuration())
	}
	if s, e, ok := ev.Interval(); !ok || s != 540 || e != 540+MinLayoutMinutes {
		t.Errorf("event Interval = %d, %d, %v", s, e, ok)
	}

	it.Time = nil
	if it.Timed() {
		t.Error("all-day item reported as timed")
	}
	if _, _, ok := it.Interval(); ok {
		t.Error("all-day item has an interval")
	}
}

func TestPatchApply(t *testing.T) {
	d := MustDate("2025-03-10")
	nine := At(9, 0)
	it := ScheduledItem{ID: "a", Date: &d, Time: &nine, DurationMinutes: 30}

	if !(ItemPatch{}).Empty() || (ItemPatch{TimeSet: true}).Empty() {
		t.Error("Empty")
	}

	next := d.AddDays(1)
	got := ItemPatch{Date: &next}.Apply(it)
	if got.Date.String() != "2025-03-11" || *got.Time != nine || it.Date.String() != "2025-03-10" {
		t.Errorf("date patch = %+v (original %+v)", got, it)
	}

	got = ItemPatch{TimeSet: true}.Apply(it)
	if got.Time != nil || it.Time == nil {
		t.Error("clearing the time")
	}

	mins := 90
	got = ItemPatch{DurationMinutes: &mins}.Apply(it)
	if got.DurationMinutes != 90 || got.Time == nil {
		t.Errorf("duration patch = %+v", got)
	}
}

func TestDateRangeDays(t *testing.T) {
	r := Week(MustDate("2025-03-10"))
	days := r.Days()
	if len(days) != 7 || days[6].String() != "2025-03-16" {
		t.Errorf("Days = %v", days)
	}
	if !r.Contains(MustDate("2025-03-16")) || r.Contains(MustDate("2025-03-17")) {
		t.Error("Contains")
	}
}

func TestItemJSON(t *testing.T) {
	d := MustDate("2025-03-10")
	it := ScheduledItem{ID: "a", Kind: KindTask, Title: "x", Date: &d, Time: At(9, 5).Ptr()}
	b, err := json.Marshal(it)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":"a","kind":"task","title":"x","date":"2025-03-10","time":"09:05"}`
	if string(b) != want {
		t.Errorf("json = %s", b)
	}
}
