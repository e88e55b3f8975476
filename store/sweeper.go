package store

import (
	"time"
)

// Sweep removal reasons, used as metric labels and audit fields.
const (
	sweepReasonExpired = "expired"
	sweepReasonAged    = "aged_out"
)

// CleanupResult reports what one expiry sweep removed.
type CleanupResult struct {
	Expired int `json:"expired"`
	AgedOut int `json:"aged_out"`
}

// Total returns the number of items removed by the sweep.
func (r CleanupResult) Total() int {
	return r.Expired + r.AgedOut
}

// sweeper periodically runs the store's cleanup pass on a ticker.
type sweeper struct {
	store    *Store
	interval time.Duration
	stopCh   chan struct{}
	done     chan struct{}
}

func newSweeper(s *Store, interval time.Duration) *sweeper {
	return &sweeper{
		store:    s,
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (sw *sweeper) start() {
	go sw.run()
}

func (sw *sweeper) run() {
	defer close(sw.done)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			result := sw.store.RunCleanup()
			if result.Total() > 0 {
				sw.store.logger.Debug("expiry sweep removed items",
					"expired", result.Expired,
					"aged_out", result.AgedOut)
			}
		case <-sw.stopCh:
			return
		}
	}
}

// stop terminates the sweep loop and waits for it to exit.
func (sw *sweeper) stop() {
	close(sw.stopCh)
	<-sw.done
}

// RunCleanup removes items whose expiresAt timestamp has passed, and items
// flagged temporary that are older than the configured max age. Removed
// items are announced as item:deleted events, followed by one
// cleanup:completed summary. Safe to call directly even when automatic
// cleanup is enabled.
func (s *Store) RunCleanup() CleanupResult {
	started := time.Now()
	now := started

	type removal struct {
		item   *Item
		reason string
	}

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return CleanupResult{}
	}

	var removals []removal
	for _, item := range s.items {
		if at, ok := item.expiresAt(); ok && !at.After(now) {
			removals = append(removals, removal{item: item, reason: sweepReasonExpired})
			continue
		}
		if item.isTemporary() && now.Sub(item.CreatedAt) > s.cfg.TemporaryMaxAge {
			removals = append(removals, removal{item: item, reason: sweepReasonAged})
		}
	}

	var result CleanupResult
	for _, r := range removals {
		delete(s.items, r.item.ID)
		if s.cfg.EnableIndexing {
			s.idx.remove(r.item)
		}
		if s.cache != nil {
			_, _ = s.cache.Delete(r.item.ID)
		}
		if r.reason == sweepReasonExpired {
			result.Expired++
		} else {
			result.AgedOut++
		}
	}
	count := len(s.items)

	snapshots := make([]*Item, len(removals))
	for i, r := range removals {
		snapshots[i] = r.item.Clone()
	}
	s.mu.Unlock()

	s.rec.swept(sweepReasonExpired, result.Expired)
	s.rec.swept(sweepReasonAged, result.AgedOut)
	s.rec.sweepDuration(time.Since(started))
	if result.Total() > 0 {
		s.rec.setItems(count)
		s.audit("expiry sweep", "expired", result.Expired, "aged_out", result.AgedOut)
	}

	// A sweep is observationally N individual deletes, batched
	for _, snapshot := range snapshots {
		s.publish(EventItemDeleted, snapshot.ID, snapshot)
	}
	if s.emit != nil {
		s.emit.publish(Event{
			Store:     s.name,
			Type:      EventCleanupCompleted,
			Count:     result.Total(),
			Duration:  time.Since(started),
			Timestamp: time.Now(),
		})
	}
	return result
}
