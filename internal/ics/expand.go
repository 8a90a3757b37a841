package ics

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "timegrid/internal/log"
	"timegrid/internal/model"
)

// IDPrefix starts the id of every item produced from a calendar feed.
const IDPrefix = "ics:"

const maxOccurrences = 5000

// window is the half-open interval [start, end) being expanded, in the
// display location.
type window struct {
	start, end time.Time
	loc        *time.Location
}

func windowFor(r model.DateRange, loc *time.Location) window {
	return window{start: r.Start.Time(loc), end: r.End.AddDays(1).Time(loc), loc: loc}
}

// expand turns events into grid items within w. Overrides (RECURRENCE-ID)
// replace the instance they name; EXDATEs drop theirs.
func expand(events []vevent, w window) []model.ScheduledItem {
	base := make(map[string][]vevent)
	overrides := make(map[string][]vevent)
	var order []string
	for _, ev := range events {
		if ev.recurrenceID != nil {
			overrides[ev.uid] = append(overrides[ev.uid], ev)
			continue
		}
		if _, seen := base[ev.uid]; !seen {
			order = append(order, ev.uid)
		}
		base[ev.uid] = append(base[ev.uid], ev)
	}

	var out []model.ScheduledItem
	for _, uid := range order {
		for _, ev := range base[uid] {
			for _, occ := range occurrences(ev, w) {
				inst := ev
				if o, ok := overrideFor(overrides[uid], occ); ok {
					inst, occ = o, o.start
				}
				out = append(out, toItems(inst, occ, inst.duration(), w)...)
			}
		}
	}
	return out
}

// occurrences lists the start times of ev that can touch w.
func occurrences(ev vevent, w window) []time.Time {
	dur := ev.duration()
	if ev.rrule == "" {
		if overlaps(ev.start, ev.start.Add(dur), w) {
			return []time.Time{ev.start}
		}
		return nil
	}

	r, err := rrule.StrToRRule(ev.rrule)
	if err != nil {
		appLog.Warn("ics rrule ignored", "uid", ev.uid, "rrule", ev.rrule, "err", err)
		return nil
	}
	r.DTStart(ev.start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.exDates {
		set.ExDate(ex.In(ev.start.Location()))
	}

	loc := ev.start.Location()
	starts := set.Between(w.start.Add(-dur).In(loc), w.end.In(loc), true)
	if len(starts) > maxOccurrences {
		appLog.Warn("ics occurrences truncated", "uid", ev.uid, "cap", maxOccurrences)
		starts = starts[:maxOccurrences]
	}

	out := starts[:0]
	for _, s := range starts {
		if overlaps(s, s.Add(dur), w) {
			out = append(out, s)
		}
	}
	return out
}

func overrideFor(overrides []vevent, occ time.Time) (vevent, bool) {
	for _, o := range overrides {
		if o.recurrenceID.Equal(occ) {
			return o, true
		}
	}
	return vevent{}, false
}

// duration is DTEND - DTSTART, or one day for all-day events without an
// end. Timed events without an end get zero and are drawn at the minimum
// layout height.
func (ev vevent) duration() time.Duration {
	if !ev.end.IsZero() && ev.end.After(ev.start) {
		return ev.end.Sub(ev.start)
	}
	if ev.allDay {
		return 24 * time.Hour
	}
	return 0
}

// toItems renders one occurrence. All-day events yield one all-day item
// per covered day inside w; timed events yield one item on their start day.
func toItems(ev vevent, start time.Time, dur time.Duration, w window) []model.ScheduledItem {
	item := func(id string, d model.Date) model.ScheduledItem {
		return model.ScheduledItem{
			ID:       id,
			Kind:     model.KindEvent,
			Title:    ev.summary,
			Date:     &d,
			Location: ev.location,
			Color:    ev.source.Color,
		}
	}

	if ev.allDay {
		first := model.DateOf(start)
		last := model.DateOf(start.Add(dur)).AddDays(-1)
		winFirst, winLast := model.DateOf(w.start), model.DateOf(w.end).AddDays(-1)
		var out []model.ScheduledItem
		for d := first; !d.After(last); d = d.AddDays(1) {
			if d.Before(winFirst) || d.After(winLast) {
				continue
			}
			out = append(out, item(itemID(ev, d.String()), d))
		}
		return out
	}

	local := start.In(w.loc)
	it := item(itemID(ev, local.Format(time.RFC3339)), model.DateOf(local))
	it.Time = model.At(local.Hour(), local.Minute()).Ptr()
	it.DurationMinutes = int(dur / time.Minute)
	return []model.ScheduledItem{it}
}

func itemID(ev vevent, instance string) string {
	return IDPrefix + ev.source.ID + "/" + ev.uid + "@" + instance
}

func overlaps(start, end time.Time, w window) bool {
	if !end.After(start) {
		// zero-length events still occupy their start instant
		return !start.Before(w.start) && start.Before(w.end)
	}
	return start.Before(w.end) && w.start.Before(end)
}
