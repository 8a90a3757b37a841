package drag

import (
	"timegrid/internal/model"
	"timegrid/internal/timemap"
)

// Relocation is where one subject of a move lands.
type Relocation struct {
	ItemID string
	Date   model.Date
	Time   *model.TimeOfDay
	// DateOnly marks a day-cell drop: Time is the item's own, unchanged.
	DateOnly bool
}

// Patch returns the repository update for r. A date-only relocation leaves
// the stored time alone.
func (r Relocation) Patch() model.ItemPatch {
	d := r.Date
	p := model.ItemPatch{Date: &d}
	if r.DateOnly {
		return p
	}
	p.TimeSet = true
	if r.Time != nil {
		t := *r.Time
		p.Time = &t
	}
	return p
}

// PlanMove spreads a move of anchor to the preview target over subjects.
// Every subject shifts by the anchor's day and minute delta, which keeps
// the relative offsets of a group. Dropping on the all-day lane clears
// every subject's time; dropping on a day cell keeps it. Shifted times
// clamp to the grid rather than wrapping into a neighbouring day. Subjects
// that end up where they already are get no relocation.
func PlanMove(anchor model.ScheduledItem, subjects []model.ScheduledItem, target Preview) []Relocation {
	if !target.Valid {
		return nil
	}

	dayDelta := 0
	if anchor.Date != nil {
		dayDelta = anchor.Date.DaysUntil(target.Date)
	}

	var out []Relocation
	for _, it := range subjects {
		r := Relocation{ItemID: it.ID, Date: target.Date}
		if it.Date != nil && anchor.Date != nil {
			r.Date = it.Date.AddDays(dayDelta)
		}

		switch {
		case target.Lane == LaneDay:
			r.DateOnly = true
			if it.Time != nil {
				r.Time = it.Time.Ptr()
			}
		case target.Time == nil:
			// all-day lane
		case anchor.Time != nil && it.Time != nil:
			shifted := int(*it.Time) + int(*target.Time) - int(*anchor.Time)
			r.Time = model.TimeOfDay(timemap.Clamp(shifted, 0, timemap.LatestStart)).Ptr()
		default:
			r.Time = target.Time.Ptr()
		}

		if unchanged(it, r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func unchanged(it model.ScheduledItem, r Relocation) bool {
	if it.Date == nil || *it.Date != r.Date {
		return false
	}
	if (it.Time == nil) != (r.Time == nil) {
		return false
	}
	return it.Time == nil || *it.Time == *r.Time
}
