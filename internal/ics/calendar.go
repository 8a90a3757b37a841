// Package ics serves events from calendar subscriptions (RFC 5545) as
// read-only grid items, expanding recurrences over the requested days.
package ics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	appLog "timegrid/internal/log"
	"timegrid/internal/model"
)

// ErrReadOnly is returned for any update of a calendar event.
var ErrReadOnly = errors.New("ics: events are read-only")

// Calendar is an item repository over a set of subscriptions.
type Calendar struct {
	fetcher *Fetcher
	sources []Source
	loc     *time.Location
}

// NewCalendar serves sources with times shown in loc (time.Local if nil).
func NewCalendar(sources []Source, loc *time.Location, client *http.Client) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{fetcher: NewFetcher(client), sources: slices.Clone(sources), loc: loc}
}

// Owns reports whether id names a calendar event.
func Owns(id string) bool {
	return strings.HasPrefix(id, IDPrefix)
}

// FetchItems loads every source and returns the events touching r. A
// source that fails is logged and skipped; an error is returned only when
// every source failed.
func (c *Calendar) FetchItems(ctx context.Context, r model.DateRange) ([]model.ScheduledItem, error) {
	w := windowFor(r, c.loc)
	var (
		items []model.ScheduledItem
		errs  []error
	)
	for _, src := range c.sources {
		body, fromCache, err := c.fetcher.Fetch(ctx, src)
		if err != nil {
			appLog.Error("ics source failed", err, "id", src.ID, "url", redactURL(src.URL))
			errs = append(errs, err)
			continue
		}
		events, err := parse(src, body)
		if err != nil {
			appLog.Error("ics source unreadable", err, "id", src.ID)
			errs = append(errs, err)
			continue
		}
		got := expand(events, w)
		appLog.Debug("ics source expanded", "id", src.ID, "items", len(got), "from_cache", fromCache)
		items = append(items, got...)
	}
	if len(c.sources) > 0 && len(errs) == len(c.sources) {
		return nil, errors.Join(errs...)
	}
	return items, nil
}

// UpdateItem always fails: subscriptions cannot be written back.
func (c *Calendar) UpdateItem(_ context.Context, id string, _ model.ItemPatch) error {
	return fmt.Errorf("%w: %s", ErrReadOnly, id)
}
