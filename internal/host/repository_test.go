package host

import (
	"context"
	"errors"
	"testing"

	"timegrid/internal/ics"
	"timegrid/internal/model"
)

type memTasks struct {
	items   []model.ScheduledItem
	updated []string
}

func (m *memTasks) FetchItems(context.Context, model.DateRange) ([]model.ScheduledItem, error) {
	return m.items, nil
}

func (m *memTasks) UpdateItem(_ context.Context, id string, _ model.ItemPatch) error {
	m.updated = append(m.updated, id)
	return nil
}

func (m *memTasks) CreateItem(_ context.Context, it model.ScheduledItem) (model.ScheduledItem, error) {
	m.items = append(m.items, it)
	return it, nil
}

type brokenEvents struct{}

func (brokenEvents) FetchItems(context.Context, model.DateRange) ([]model.ScheduledItem, error) {
	return nil, errors.New("calendar down")
}

func (brokenEvents) UpdateItem(_ context.Context, id string, _ model.ItemPatch) error {
	return ics.ErrReadOnly
}

func TestRepositoryRoutesUpdates(t *testing.T) {
	tasks := &memTasks{}
	r := Repository{Tasks: tasks, Events: brokenEvents{}}

	if err := r.UpdateItem(context.Background(), "3f2a", model.ItemPatch{}); err != nil {
		t.Fatal(err)
	}
	if err := r.UpdateItem(context.Background(), ics.IDPrefix+"work/x@1", model.ItemPatch{}); !errors.Is(err, ics.ErrReadOnly) {
		t.Errorf("event update err = %v", err)
	}
	if len(tasks.updated) != 1 || tasks.updated[0] != "3f2a" {
		t.Errorf("tasks saw %v", tasks.updated)
	}

	r.Events = nil
	if err := r.UpdateItem(context.Background(), ics.IDPrefix+"work/x@1", model.ItemPatch{}); !errors.Is(err, ics.ErrReadOnly) {
		t.Errorf("event update without calendars err = %v", err)
	}
}

func TestRepositoryKeepsTasksWhenEventsFail(t *testing.T) {
	d := model.MustDate("2025-03-10")
	tasks := &memTasks{items: []model.ScheduledItem{{ID: "t1", Date: &d}}}
	r := Repository{Tasks: tasks, Events: brokenEvents{}}

	items, err := r.FetchItems(context.Background(), model.Week(d))
	if !errors.Is(err, ErrPartial) {
		t.Errorf("err = %v, want ErrPartial", err)
	}
	if len(items) != 1 {
		t.Errorf("items = %v", items)
	}
}
