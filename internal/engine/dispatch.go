package engine

import (
	"context"
	"sync"
	"time"

	appLog "timegrid/internal/log"
	"timegrid/internal/model"
)

// Completion reports the repository outcome of one committed gesture.
type Completion struct {
	IDs  []string
	Errs map[string]error
}

// Failed reports whether any update of the batch failed.
func (c Completion) Failed() bool {
	return len(c.Errs) > 0
}

type update struct {
	id    string
	patch model.ItemPatch
}

// dispatcher fires repository updates in the background. Updates of one
// batch run concurrently; they address disjoint ids so their order does not
// matter.
type dispatcher struct {
	repo    Repository
	timeout time.Duration
	done    chan Completion
}

func newDispatcher(repo Repository, timeout time.Duration) *dispatcher {
	return &dispatcher{repo: repo, timeout: timeout, done: make(chan Completion, 16)}
}

func (d *dispatcher) send(batch []update) {
	if len(batch) == 0 {
		return
	}
	go d.run(batch)
}

func (d *dispatcher) run(batch []update) {
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs = make(map[string]error)
	)
	ids := make([]string, len(batch))
	for i, u := range batch {
		ids[i] = u.id
		wg.Add(1)
		go func(u update) {
			defer wg.Done()
			ctx := context.Background()
			if d.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d.timeout)
				defer cancel()
			}
			if err := d.repo.UpdateItem(ctx, u.id, u.patch); err != nil {
				appLog.Error("item update failed", err, "id", u.id)
				mu.Lock()
				errs[u.id] = err
				mu.Unlock()
			}
		}(u)
	}
	wg.Wait()
	d.done <- Completion{IDs: ids, Errs: errs}
}
