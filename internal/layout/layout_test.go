package layout

import (
	"fmt"
	"math/rand"
	"testing"

	"timegrid/internal/model"
)

var day = model.MustDate("2025-03-10")

func timed(id string, h, m, minutes int) model.ScheduledItem {
	d := day
	return model.ScheduledItem{
		ID:              id,
		Kind:            model.KindTask,
		Date:            &d,
		Time:            model.At(h, m).Ptr(),
		DurationMinutes: minutes,
	}
}

func byID(t *testing.T, as []Assignment) map[string]Assignment {
	t.Helper()
	out := Index(as)
	if len(out) != len(as) {
		t.Fatalf("duplicate item ids in %v", as)
	}
	return out
}

func TestComputeTwoOverlapping(t *testing.T) {
	got := byID(t, Compute([]model.ScheduledItem{
		timed("B", 9, 15, 45),
		timed("A", 9, 0, 30),
	}))

	want := map[string]Assignment{
		"A": {ItemID: "A", Column: 0, TotalColumns: 2},
		"B": {ItemID: "B", Column: 1, TotalColumns: 2},
	}
	for id, w := range want {
		if got[id] != w {
			t.Errorf("%s = %+v, want %+v", id, got[id], w)
		}
	}
}

func TestComputeEventWithoutEndTakesMinimumHeight(t *testing.T) {
	ev := timed("E", 9, 0, 0)
	ev.Kind = model.KindEvent
	got := byID(t, Compute([]model.ScheduledItem{ev, timed("T", 9, 20, 30)}))

	if got["E"].TotalColumns != 1 || got["T"].TotalColumns != 1 {
		t.Errorf("E = %+v, T = %+v, want both alone", got["E"], got["T"])
	}
}

func TestComputeChainSharesClusterWidth(t *testing.T) {
	// A and C never touch; B links them.
	got := byID(t, Compute([]model.ScheduledItem{
		timed("A", 9, 0, 30),
		timed("B", 9, 20, 30),
		timed("C", 9, 45, 30),
	}))

	if got["A"].Column != 0 || got["B"].Column != 1 || got["C"].Column != 0 {
		t.Fatalf("columns = A%d B%d C%d, want A0 B1 C0", got["A"].Column, got["B"].Column, got["C"].Column)
	}
	for _, id := range []string{"A", "B", "C"} {
		if got[id].TotalColumns != 2 {
			t.Errorf("%s.TotalColumns = %d, want 2", id, got[id].TotalColumns)
		}
	}
}

func TestComputePropagatesWidthBeyondDirectNeighbours(t *testing.T) {
	// A, B and C pile up three wide. D only touches A, and its direct
	// neighbourhood (A in column 0, D in column 1) is two wide, but it
	// belongs to the three-wide cluster.
	got := byID(t, Compute([]model.ScheduledItem{
		timed("A", 9, 0, 60),
		timed("B", 9, 0, 30),
		timed("C", 9, 15, 30),
		timed("D", 9, 50, 40),
	}))

	if got["C"].Column != 2 {
		t.Fatalf("C.Column = %d, want 2", got["C"].Column)
	}
	if got["D"].Column != 1 {
		t.Fatalf("D.Column = %d, want 1", got["D"].Column)
	}
	for _, id := range []string{"A", "B", "C", "D"} {
		if got[id].TotalColumns != 3 {
			t.Errorf("%s.TotalColumns = %d, want 3", id, got[id].TotalColumns)
		}
	}
}

func TestComputeLongerItemTakesLeftColumnOnTie(t *testing.T) {
	got := byID(t, Compute([]model.ScheduledItem{
		timed("short", 10, 0, 15),
		timed("long", 10, 0, 90),
	}))
	if got["long"].Column != 0 || got["short"].Column != 1 {
		t.Errorf("got %+v", got)
	}
}

func TestComputeIsolatedItems(t *testing.T) {
	got := byID(t, Compute([]model.ScheduledItem{
		timed("A", 8, 0, 30),
		timed("B", 8, 30, 30), // touching end to start is not overlap
		timed("C", 14, 0, 60),
	}))
	for id, a := range got {
		if a.Column != 0 || a.TotalColumns != 1 {
			t.Errorf("%s = %+v, want {0 1}", id, a)
		}
	}
}

func TestComputeFloorsShortEvents(t *testing.T) {
	// A 5-minute event still occupies 15 minutes on the grid.
	ev := timed("ev", 9, 0, 5)
	ev.Kind = model.KindEvent
	got := byID(t, Compute([]model.ScheduledItem{ev, timed("T", 9, 10, 30)}))
	if got["T"].Column != 1 || got["T"].TotalColumns != 2 {
		t.Errorf("T = %+v, want column 1 of 2", got["T"])
	}
}

func TestComputeDefaultsMissingDuration(t *testing.T) {
	got := byID(t, Compute([]model.ScheduledItem{
		timed("A", 9, 0, 0), // defaults to 30 minutes
		timed("B", 9, 25, 30),
	}))
	if got["B"].Column != 1 {
		t.Errorf("B = %+v, want column 1", got["B"])
	}
}

func TestComputeSkipsUntimed(t *testing.T) {
	d := day
	got := Compute([]model.ScheduledItem{
		{ID: "allday", Date: &d},
		timed("A", 9, 0, 30),
	})
	if len(got) != 1 || got[0].ItemID != "A" {
		t.Errorf("got %+v, want only A", got)
	}
	if Compute(nil) != nil {
		t.Error("Compute(nil) should be nil")
	}
}

// TestComputeInvariants checks the overlap and cluster-width properties on
// random days.
func TestComputeInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		var items []model.ScheduledItem
		n := 1 + rng.Intn(12)
		for i := 0; i < n; i++ {
			start := rng.Intn(40) * 15
			items = append(items, timed(fmt.Sprintf("i%d", i), start/60+8, start%60, 15+rng.Intn(8)*15))
		}

		got := byID(t, Compute(items))
		for i := range items {
			for j := range items {
				if i == j {
					continue
				}
				as, ae, _ := items[i].Interval()
				bs, be, _ := items[j].Interval()
				if !(as < be && bs < ae) {
					continue
				}
				a, b := got[items[i].ID], got[items[j].ID]
				if a.Column == b.Column {
					t.Fatalf("round %d: %s and %s overlap in column %d", round, a.ItemID, b.ItemID, a.Column)
				}
				if a.TotalColumns != b.TotalColumns {
					t.Fatalf("round %d: %s and %s overlap with widths %d and %d", round, a.ItemID, b.ItemID, a.TotalColumns, b.TotalColumns)
				}
			}
		}
		for _, a := range got {
			if a.Column < 0 || a.Column >= a.TotalColumns {
				t.Fatalf("round %d: %+v column out of range", round, a)
			}
		}
	}
}

func TestForDay(t *testing.T) {
	d := day
	other := day.AddDays(1)
	items := []model.ScheduledItem{
		timed("A", 9, 0, 30),
		{ID: "allday", Date: &d},
		{ID: "tomorrow", Date: &other, Time: model.At(9, 0).Ptr()},
		{ID: "unscheduled"},
		timed("B", 9, 15, 45),
	}

	got := ForDay(day, items)
	if len(got.AllDay) != 1 || got.AllDay[0].ID != "allday" {
		t.Errorf("AllDay = %+v", got.AllDay)
	}
	if len(got.Timed) != 2 || len(got.Assignments) != 2 {
		t.Fatalf("Timed = %+v, Assignments = %+v", got.Timed, got.Assignments)
	}
	for i, a := range got.Assignments {
		if got.Timed[i].ID != a.ItemID {
			t.Errorf("Timed[%d] = %s, want %s", i, got.Timed[i].ID, a.ItemID)
		}
	}
}
