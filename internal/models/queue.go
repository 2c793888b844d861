package models

import (
	"strconv"
	"strings"
)

// RepeatMode mirrors the wire-compatible integer encoding used across the
// providers this core interops with.
type RepeatMode int

const (
	RepeatOff RepeatMode = 0
	RepeatAll RepeatMode = 1
	RepeatOne RepeatMode = 3
)

// QueueItem is one entry in a zone's queue (spec §3).
type QueueItem struct {
	Album        string
	Artist       string
	Audiopath    string
	Audiotype    string
	Cover        string
	Duration     float64
	Station      string
	Title        string
	UniqueID     string
	User         string

	// OriginalIndex is the item's position the first time it was ever
	// installed via SetItems, used by unshuffle to restore pre-shuffle
	// order. OriginalIndexSet tracks whether it has been assigned yet,
	// since 0 is itself a valid original index and can't double as its
	// own "unassigned" marker.
	OriginalIndex    int
	OriginalIndexSet bool

	// QIndex is assigned fresh by SetItems and used for qindex-based
	// ordering/restoration; distinct from the item's position in Items
	// only while a shuffle/unshuffle transition is mid-flight.
	QIndex int
}

// QueueState is a zone's queue (spec §3).
type QueueState struct {
	Items        []QueueItem
	Shuffle      bool
	Repeat       RepeatMode
	CurrentIndex int

	// Authority is the driver of queue advancement: "local" or the tag of
	// a remote provider exposing its own queue (spotify, musicassistant,
	// applemusic, deezer, tidal, ...). Set once per rebuild; see
	// DESIGN.md "Queue authority mid-queue transition".
	Authority string

	// lastSnapshotSig is the signature of the last updateQueueFromOutput
	// call accepted, used to de-duplicate identical remote snapshots.
	lastSnapshotSig string
}

// QueueAuthorityLocal is the tag used when the core itself drives queue
// advancement (as opposed to an external provider's remote queue).
const QueueAuthorityLocal = "local"

// Clamp enforces "currentIndex is clamped to the range" (spec §3 invariant).
func (q *QueueState) Clamp() {
	if len(q.Items) == 0 {
		q.CurrentIndex = 0
		return
	}
	if q.CurrentIndex < 0 {
		q.CurrentIndex = 0
	}
	if q.CurrentIndex >= len(q.Items) {
		q.CurrentIndex = len(q.Items) - 1
	}
}

// Current returns the item at CurrentIndex, or nil if the queue is empty.
func (q *QueueState) Current() *QueueItem {
	if len(q.Items) == 0 || q.CurrentIndex < 0 || q.CurrentIndex >= len(q.Items) {
		return nil
	}
	return &q.Items[q.CurrentIndex]
}

// IndexOf returns the index of the first item whose Audiopath or
// UniqueID matches target, or -1.
func (q *QueueState) IndexOf(target string) int {
	for i, it := range q.Items {
		if it.Audiopath == target || it.UniqueID == target {
			return i
		}
	}
	return -1
}

// DeepCopy returns a deep copy of the queue state, mirroring the teacher's
// models.State.DeepCopy discipline for slice-of-struct fields.
func (q QueueState) DeepCopy() QueueState {
	next := q
	next.Items = make([]QueueItem, len(q.Items))
	copy(next.Items, q.Items)
	return next
}

// SetItems installs a fresh item list, assigning a new QIndex to every item
// and preserving (or, if unset, generating) OriginalIndex so the pre-shuffle
// order is always recoverable (spec §4.2 "setItems" guarantee).
func (q *QueueState) SetItems(items []QueueItem) {
	next := make([]QueueItem, len(items))
	copy(next, items)
	for i := range next {
		next[i].QIndex = i
		if !next[i].OriginalIndexSet {
			next[i].OriginalIndex = i
			next[i].OriginalIndexSet = true
		}
	}
	q.Items = next
	q.Clamp()
}

// Signature returns a string identifying this queue's (length,
// ordered-audiopath list, currentIndex) — used to de-duplicate identical
// remote snapshots per spec §4.2.
func (q QueueState) Signature() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(q.Items)))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(q.CurrentIndex))
	for _, it := range q.Items {
		b.WriteByte('|')
		b.WriteString(it.Audiopath)
	}
	return b.String()
}

// UpdateFromOutput implements the updateQueueFromOutput guarantee of spec
// §4.2:
//   - an empty snapshot is ignored entirely;
//   - a single-item snapshot is merged into the existing queue at
//     currentIndex rather than wiping the queue (a remote renderer reporting
//     "now playing" without its full queue should not discard what the core
//     already knows);
//   - a snapshot whose signature matches the last accepted one is skipped.
//
// Returns true if the snapshot was applied.
func (q *QueueState) UpdateFromOutput(items []QueueItem, currentIndex int) bool {
	if len(items) == 0 {
		return false
	}

	if len(items) == 1 {
		if currentIndex < 0 || currentIndex >= len(q.Items) {
			return false
		}
		merged := items[0]
		merged.QIndex = q.Items[currentIndex].QIndex
		merged.OriginalIndex = q.Items[currentIndex].OriginalIndex
		q.Items[currentIndex] = merged
		q.lastSnapshotSig = q.Signature()
		return true
	}

	candidate := QueueState{Items: items, CurrentIndex: currentIndex}
	sig := candidate.Signature()
	if sig == q.lastSnapshotSig {
		return false
	}

	q.SetItems(items)
	q.CurrentIndex = currentIndex
	q.Clamp()
	q.lastSnapshotSig = q.Signature()
	return true
}
