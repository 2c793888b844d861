// Package groups implements the Group Tracker and per-transport Group
// Coordinators (spec §4.5): cross-zone grouping for transports (Snapcast,
// Sendspin, SlimProto, Sonos, AirPlay) whose grouping mechanics live outside the
// Audio Engine.
package groups

import (
	"sync"
	"time"

	"github.com/ogglobi/audiolox/internal/models"
)

const subBufferSize = 8

// Tracker is the process-wide GroupRecord store. Updates are atomic: each
// mutation replaces the stored record with a Clone() and publishes a
// GroupChangeEvent describing the change, never handing out a record a
// caller could mutate in place. Grounded on the teacher's events.Bus
// (non-blocking, drop-on-full subscriber channels) generalized from a
// single chan models.State topic into a typed chan GroupChangeEvent, per
// the redesign note calling for "event buses via on-function-callbacks".
type Tracker struct {
	mu      sync.RWMutex
	records map[string]models.GroupRecord // keyed by GroupRecord.ID
	subs    map[string]chan models.GroupChangeEvent
}

// NewTracker creates an empty Group Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		records: make(map[string]models.GroupRecord),
		subs:    make(map[string]chan models.GroupChangeEvent),
	}
}

// Subscribe registers an observer (a per-transport Group Coordinator) that
// receives onGroupChanged events. Call Unsubscribe when done.
func (t *Tracker) Subscribe(id string) <-chan models.GroupChangeEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan models.GroupChangeEvent, subBufferSize)
	t.subs[id] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (t *Tracker) Unsubscribe(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, ok := t.subs[id]; ok {
		delete(t.subs, id)
		close(ch)
	}
}

func (t *Tracker) publish(ev models.GroupChangeEvent) {
	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
			// slow coordinator, drop rather than block (events.Bus idiom)
		}
	}
}

// Get returns a deep copy of the group record with the given ID, or false
// if no such group exists.
func (t *Tracker) Get(id string) (models.GroupRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[id]
	if !ok {
		return models.GroupRecord{}, false
	}
	return rec.Clone(), true
}

// GroupForZone returns the group record a zone belongs to (as leader or
// member) for the given backend, or false if the zone is ungrouped there.
func (t *Tracker) GroupForZone(backend string, zoneID int) (models.GroupRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, rec := range t.records {
		if rec.Backend == backend && rec.IsMember(zoneID) {
			return rec.Clone(), true
		}
	}
	return models.GroupRecord{}, false
}

// Upsert creates or replaces a group record, diffing its membership
// against whatever was previously stored under the same ID and publishing
// a GroupEventNew or GroupEventUpdate event with the AddedMembers/
// RemovedMembers populated accordingly.
func (t *Tracker) Upsert(rec models.GroupRecord) {
	t.mu.Lock()
	prev, existed := t.records[rec.ID]
	rec = rec.Clone()
	rec.UpdatedAt = time.Now()
	t.records[rec.ID] = rec
	t.mu.Unlock()

	ev := models.GroupChangeEvent{Record: rec.Clone(), LeaderZone: rec.Leader}
	if !existed {
		ev.Kind = models.GroupEventNew
		for m := range rec.Members {
			ev.AddedMembers = append(ev.AddedMembers, m)
		}
	} else {
		ev.Kind = models.GroupEventUpdate
		ev.AddedMembers, ev.RemovedMembers = diffMembers(prev, rec)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	t.publish(ev)
}

// Remove deletes a group record and publishes a GroupEventRemove event.
func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	rec, existed := t.records[id]
	if !existed {
		t.mu.Unlock()
		return
	}
	delete(t.records, id)
	t.mu.Unlock()

	t.mu.RLock()
	defer t.mu.RUnlock()
	t.publish(models.GroupChangeEvent{Kind: models.GroupEventRemove, LeaderZone: rec.Leader, Record: rec.Clone()})
}

// diffMembers compares two group records' member sets, matching the
// teacher's updateGroupAggregates "recompute by full-scan diff" idiom
// rather than threading incremental add/remove calls through.
func diffMembers(prev, next models.GroupRecord) (added, removed []int) {
	for m := range next.Members {
		if _, ok := prev.Members[m]; !ok {
			added = append(added, m)
		}
	}
	for m := range prev.Members {
		if _, ok := next.Members[m]; !ok {
			removed = append(removed, m)
		}
	}
	return added, removed
}
