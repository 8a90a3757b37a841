package host

import (
	"context"
	"errors"
	"fmt"

	"timegrid/internal/engine"
	"timegrid/internal/ics"
	"timegrid/internal/model"
)

// TaskStore is the writable side of the item universe.
type TaskStore interface {
	engine.Repository
	CreateItem(ctx context.Context, it model.ScheduledItem) (model.ScheduledItem, error)
}

// Repository merges tasks with calendar events. Updates are routed by id:
// calendar ids go to Events, everything else to Tasks.
type Repository struct {
	Tasks  TaskStore
	Events engine.Repository
}

func (r Repository) FetchItems(ctx context.Context, rng model.DateRange) ([]model.ScheduledItem, error) {
	items, err := r.Tasks.FetchItems(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("fetch tasks: %w", err)
	}
	if r.Events == nil {
		return items, nil
	}
	events, err := r.Events.FetchItems(ctx, rng)
	if err != nil {
		// Tasks are still worth showing when every calendar is down.
		return items, errors.Join(ErrPartial, err)
	}
	return append(items, events...), nil
}

func (r Repository) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) error {
	if ics.Owns(id) {
		if r.Events == nil {
			return fmt.Errorf("%w: %s", ics.ErrReadOnly, id)
		}
		return r.Events.UpdateItem(ctx, id, patch)
	}
	return r.Tasks.UpdateItem(ctx, id, patch)
}

// ErrPartial marks a fetch that returned tasks but no events.
var ErrPartial = errors.New("host: calendar events unavailable")
