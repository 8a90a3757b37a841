// Package layout places the timed items of one calendar day into side-by-side
// columns so that items whose intervals intersect never share a column.
package layout

import (
	"sort"

	"timegrid/internal/model"
)

// Assignment is the derived placement of one item for one render pass.
type Assignment struct {
	ItemID       string `json:"item_id"`
	Column       int    `json:"column"`
	TotalColumns int    `json:"total_columns"`
}

// span is one timed item reduced to what placement needs.
type span struct {
	id         string
	start, end int
	column     int
}

func overlaps(a, b span) bool {
	return a.start < b.end && b.start < a.end
}

// Compute assigns a column to every timed item in items. Items are expected
// to share one calendar day; items without a time of day are skipped since
// they render in the all-day lane.
//
// Placement is greedy: items sorted by start (longer first on ties) take the
// leftmost column holding nothing they overlap. Every member of a connected
// overlap cluster then reports the same TotalColumns, the widest column
// count anywhere in the cluster, even when two members never touch directly.
//
// The result is in placement order.
func Compute(items []model.ScheduledItem) []Assignment {
	spans := make([]span, 0, len(items))
	for _, it := range items {
		start, end, ok := it.Interval()
		if !ok {
			continue
		}
		spans = append(spans, span{id: it.ID, start: start, end: end})
	}
	if len(spans) == 0 {
		return nil
	}

	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end-spans[i].start > spans[j].end-spans[j].start
	})

	var columns [][]int // indexes into spans
	for i := range spans {
		placed := false
		for c := range columns {
			if fits(spans, columns[c], i) {
				columns[c] = append(columns[c], i)
				spans[i].column = c
				placed = true
				break
			}
		}
		if !placed {
			columns = append(columns, []int{i})
			spans[i].column = len(columns) - 1
		}
	}

	width := clusterWidths(spans)

	out := make([]Assignment, len(spans))
	for i, s := range spans {
		out[i] = Assignment{ItemID: s.id, Column: s.column, TotalColumns: width[i]}
	}
	return out
}

func fits(spans []span, column []int, i int) bool {
	for _, j := range column {
		if overlaps(spans[i], spans[j]) {
			return false
		}
	}
	return true
}

// clusterWidths groups spans into connected overlap components and returns,
// per span, the highest column in its component plus one.
func clusterWidths(spans []span) []int {
	parent := make([]int, len(spans))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	// spans are sorted by start, so once b starts at or after a's end no
	// later span can overlap a either.
	for a := range spans {
		for b := a + 1; b < len(spans) && spans[b].start < spans[a].end; b++ {
			if ra, rb := find(a), find(b); ra != rb {
				parent[rb] = ra
			}
		}
	}

	maxCol := make(map[int]int)
	for i, s := range spans {
		r := find(i)
		if s.column > maxCol[r] {
			maxCol[r] = s.column
		}
	}

	width := make([]int, len(spans))
	for i := range spans {
		width[i] = maxCol[find(i)] + 1
	}
	return width
}

// Day is the layout of one calendar day.
type Day struct {
	Date        model.Date
	AllDay      []model.ScheduledItem
	Timed       []model.ScheduledItem
	Assignments []Assignment
}

// ForDay collects the items anchored to date and lays out the timed ones.
// Timed is ordered to match Assignments.
func ForDay(date model.Date, items []model.ScheduledItem) Day {
	day := Day{Date: date}
	byID := make(map[string]model.ScheduledItem)
	var timed []model.ScheduledItem
	for _, it := range items {
		if !it.OnDate(date) {
			continue
		}
		if it.Time == nil {
			day.AllDay = append(day.AllDay, it)
			continue
		}
		timed = append(timed, it)
		byID[it.ID] = it
	}

	day.Assignments = Compute(timed)
	for _, a := range day.Assignments {
		day.Timed = append(day.Timed, byID[a.ItemID])
	}
	return day
}

// Index returns the assignments keyed by item id.
func Index(assignments []Assignment) map[string]Assignment {
	out := make(map[string]Assignment, len(assignments))
	for _, a := range assignments {
		out[a.ItemID] = a
	}
	return out
}
