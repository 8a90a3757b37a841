package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"timegrid/internal/config"
	"timegrid/internal/host"
	"timegrid/internal/model"
)

type memTasks struct {
	mu    sync.Mutex
	items map[string]model.ScheduledItem
}

func (m *memTasks) FetchItems(_ context.Context, r model.DateRange) ([]model.ScheduledItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ScheduledItem
	for _, it := range m.items {
		if it.Date != nil && r.Contains(*it.Date) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memTasks) UpdateItem(_ context.Context, id string, p model.ItemPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id] = p.Apply(m.items[id])
	return nil
}

func (m *memTasks) CreateItem(_ context.Context, it model.ScheduledItem) (model.ScheduledItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = it
	return it, nil
}

func (m *memTasks) get(id string) model.ScheduledItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id]
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *memTasks) {
	t.Helper()
	d := model.MustDate("2025-03-10")
	tasks := &memTasks{items: map[string]model.ScheduledItem{
		"t1": {ID: "t1", Kind: model.KindTask, Title: "write", Date: &d, Time: model.At(9, 0).Ptr(), DurationMinutes: 30},
	}}

	loop, err := host.New(host.Options{
		Grid: config.GridConfig{
			HourHeightPx:   60,
			OriginX:        50,
			OriginY:        50,
			DayWidthPx:     100,
			AllDayHeightPx: 40,
		},
		Drag:      config.DragConfig{MoveThresholdPx: 8, CreateThresholdPx: 5},
		Days:      7,
		WeekStart: time.Monday,
		Location:  time.UTC,
		Now:       func() time.Time { return time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC) },
	}, host.Repository{Tasks: tasks})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return NewServer(cfg, loop), tasks
}

func call(t *testing.T, h http.Handler, method, path, body string, out any) int {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

func pointer(t *testing.T, h http.Handler, phase, body string) gestureResponse {
	t.Helper()
	var g gestureResponse
	if code := call(t, h, http.MethodPost, "/api/pointer/"+phase, body, &g); code != http.StatusOK {
		t.Fatalf("pointer %s = %d", phase, code)
	}
	return g
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "me", Password: "secret"}
	s, _ := newTestServer(t, cfg)
	h := s.Handler()

	if code := call(t, h, http.MethodGet, "/health", "", nil); code != http.StatusOK {
		t.Errorf("health behind auth = %d", code)
	}
	if code := call(t, h, http.MethodGet, "/api/selection", "", nil); code != http.StatusUnauthorized {
		t.Errorf("no credentials = %d", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/selection", nil)
	req.SetBasicAuth("me", "wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/selection", nil)
	req.SetBasicAuth("me", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("good credentials = %d", rec.Code)
	}
}

func TestDays(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	var resp viewResponse
	if code := call(t, h, http.MethodGet, "/api/days", "", &resp); code != http.StatusOK {
		t.Fatalf("days = %d", code)
	}
	if resp.Start.String() != "2025-03-10" || len(resp.Days) != 7 {
		t.Fatalf("view %s with %d days", resp.Start, len(resp.Days))
	}
	monday := resp.Days[0]
	if len(monday.Timed) != 1 || monday.Assignments[0].ItemID != "t1" || monday.Assignments[0].TotalColumns != 1 {
		t.Errorf("monday = %+v", monday)
	}
	if r := monday.Rect; r == nil || r.Left != 50 || r.Right != 150 || r.Bottom-r.Top != 24*60 {
		t.Errorf("monday rect = %+v", r)
	}
	if resp.Month {
		t.Error("week view reported as month")
	}

	if code := call(t, h, http.MethodGet, "/api/days?start=2025-03-19", "", &resp); code != http.StatusOK {
		t.Fatalf("days = %d", code)
	}
	if resp.Start.String() != "2025-03-17" || len(resp.Days[0].Timed) != 0 {
		t.Errorf("next week = %+v", resp)
	}

	if code := call(t, h, http.MethodGet, "/api/days?start=March", "", nil); code != http.StatusBadRequest {
		t.Errorf("bad start = %d", code)
	}
}

func TestPointerDragCommits(t *testing.T) {
	s, tasks := newTestServer(t, nil)
	h := s.Handler()

	g := pointer(t, h, "down", `{"pointer_id":1,"x":80,"y":590,"target":"item","item_id":"t1"}`)
	if !g.Busy {
		t.Fatal("down on item did not start a gesture")
	}
	g = pointer(t, h, "move", `{"pointer_id":1,"x":180,"y":650}`)
	if g.Preview == nil || !g.Preview.Valid || g.Preview.Mode != "move" {
		t.Fatalf("preview = %+v", g.Preview)
	}
	if g.Preview.Date.String() != "2025-03-11" || *g.Preview.Time != model.At(10, 0) || g.Preview.Lane != "grid" {
		t.Errorf("preview target = %s %s", g.Preview.Date, g.Preview.Time)
	}
	g = pointer(t, h, "up", `{"pointer_id":1,"x":180,"y":650}`)
	if g.Busy || g.Preview != nil {
		t.Errorf("after up = %+v", g)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		it := tasks.get("t1")
		if it.Date.String() == "2025-03-11" && *it.Time == model.At(10, 0) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task never moved: %+v", it)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPointerRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	if code := call(t, h, http.MethodPost, "/api/pointer/down", `{"target":"window"}`, nil); code != http.StatusBadRequest {
		t.Errorf("unknown target = %d", code)
	}
	if code := call(t, h, http.MethodPost, "/api/pointer/down", `{`, nil); code != http.StatusBadRequest {
		t.Errorf("malformed body = %d", code)
	}
	if code := call(t, h, http.MethodPost, "/api/pointer/hover", `{}`, nil); code != http.StatusNotFound {
		t.Errorf("unknown phase = %d", code)
	}
}

func TestMarqueeAndEscape(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	if code := call(t, h, http.MethodPut, "/api/items/t1/rect", `{"left":55,"top":590,"right":145,"bottom":620}`, nil); code != http.StatusNoContent {
		t.Fatalf("put rect = %d", code)
	}
	if code := call(t, h, http.MethodPut, "/api/items/t1/rect", `{"left":55,"top":590,"right":10,"bottom":620}`, nil); code != http.StatusBadRequest {
		t.Errorf("inverted rect = %d", code)
	}

	g := pointer(t, h, "down", `{"pointer_id":1,"x":20,"y":570,"target":"canvas"}`)
	g = pointer(t, h, "move", `{"pointer_id":1,"x":100,"y":600}`)
	if g.Marquee == nil || len(g.Selection) != 1 || g.Selection[0] != "t1" {
		t.Fatalf("during marquee = %+v", g)
	}
	g = pointer(t, h, "up", `{"pointer_id":1,"x":100,"y":600}`)
	if g.Marquee != nil {
		t.Error("marquee still drawn after up")
	}

	var sel map[string][]string
	call(t, h, http.MethodGet, "/api/selection", "", &sel)
	if len(sel["ids"]) != 1 {
		t.Errorf("selection = %v", sel)
	}

	g = gestureResponse{}
	call(t, h, http.MethodPost, "/api/keys", `{"key":"Escape"}`, &g)
	if len(g.Selection) != 0 {
		t.Errorf("selection after Escape = %v", g.Selection)
	}

	if code := call(t, h, http.MethodDelete, "/api/items/t1/rect", "", nil); code != http.StatusNoContent {
		t.Errorf("delete rect = %d", code)
	}
}

func TestViewScroll(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	var v viewResponse
	if code := call(t, h, http.MethodPut, "/api/view", `{"scroll_top":120}`, &v); code != http.StatusOK {
		t.Fatalf("view = %d", code)
	}
	if v.ScrollTop != 120 || v.Start.String() != "2025-03-10" {
		t.Errorf("view = %+v", v)
	}
	if code := call(t, h, http.MethodPost, "/api/refresh", "", nil); code != http.StatusAccepted {
		t.Errorf("refresh = %d", code)
	}
}
