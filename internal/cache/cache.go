package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	appLog "rcjcal/internal/log"
	"rcjcal/internal/metrics"
	"rcjcal/internal/model"
)

// ErrNotReady is returned by Current until the first refresh succeeds.
var ErrNotReady = errors.New("events cache is not yet populated, please try again shortly")

// Fetcher produces a complete snapshot or fails as a whole.
type Fetcher interface {
	FetchAll(ctx context.Context) (*model.Snapshot, error)
}

// Cache holds the most recent successfully fetched snapshot.
//
// Refresh is the only writer and publishes a fully built snapshot with a
// single pointer swap, so readers never block and never see a mix of old
// and new data. A failed refresh leaves the previous snapshot live.
type Cache struct {
	fetcher Fetcher
	live    atomic.Pointer[model.Snapshot]
}

// New creates an empty cache backed by fetcher.
func New(fetcher Fetcher) *Cache {
	return &Cache{fetcher: fetcher}
}

// Current returns the live snapshot, or ErrNotReady before the first
// successful refresh.
func (c *Cache) Current() (*model.Snapshot, error) {
	snap := c.live.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	return snap, nil
}

// Refresh fetches a new snapshot and publishes it on success.
func (c *Cache) Refresh(ctx context.Context) error {
	start := time.Now()
	snap, err := c.fetcher.FetchAll(ctx)
	metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	if err == nil && snap == nil {
		err = errors.New("fetcher returned no snapshot")
	}
	if err != nil {
		metrics.RefreshTotal.WithLabelValues("failure").Inc()
		_, staleErr := c.Current()
		appLog.Error("error fetching events", err, "serving_stale", staleErr == nil)
		return err
	}

	c.live.Store(snap)

	metrics.RefreshTotal.WithLabelValues("success").Inc()
	metrics.LastRefreshSuccess.SetToCurrentTime()
	for code, evs := range snap.Events {
		metrics.CachedEvents.WithLabelValues(code).Set(float64(len(evs)))
	}
	appLog.Info("events cache refreshed",
		"territories", len(snap.Territories),
		"events", snap.EventCount(),
		"elapsed", time.Since(start),
	)
	return nil
}
