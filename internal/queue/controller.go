// Package queue implements the Queue Controller (spec §4.2): queue
// construction, reordering, mid-stream backfill, and seek-in-queue. It
// operates through a zonerepo.Repository so every mutation is serialized by
// the owning zone's actor — grounded on the teacher's
// internal/controller/groups.go updateGroupAggregates recompute-after-mutate
// idiom and nextGroupID-style token counters, narrowed to one zone's queue.
package queue

import (
	"math/rand/v2"
	"sort"

	"github.com/ogglobi/audiolox/internal/models"
	"github.com/ogglobi/audiolox/internal/zonerepo"
)

// Controller is the Queue Controller for all zones.
type Controller struct {
	repo *zonerepo.Repository
}

// New returns a Controller backed by repo.
func New(repo *zonerepo.Repository) *Controller {
	return &Controller{repo: repo}
}

// GetQueue returns up to limit items starting at start (spec §4.2
// getQueue). limit <= 0 means "to the end".
func (c *Controller) GetQueue(zoneID, start, limit int) ([]models.QueueItem, *models.AppError) {
	zc, err := c.repo.Snapshot(zoneID)
	if err != nil {
		return nil, err
	}
	items := zc.Queue.Items
	if start < 0 {
		start = 0
	}
	if start >= len(items) {
		return []models.QueueItem{}, nil
	}
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	out := make([]models.QueueItem, end-start)
	copy(out, items[start:end])
	return out, nil
}

// SeekInQueue moves CurrentIndex to the item matching target (an audiopath
// or unique id) and clamps it into range.
func (c *Controller) SeekInQueue(zoneID int, target string) (models.QueueState, *models.AppError) {
	zc, err := c.repo.Mutate(zoneID, func(z *models.ZoneContext) error {
		idx := z.Queue.IndexOf(target)
		if idx < 0 {
			return models.ErrNotFound("queue item not found")
		}
		z.Queue.CurrentIndex = idx
		z.Queue.Clamp()
		return nil
	})
	return zc.Queue, err
}

// SetShuffle toggles shuffle. Enabling reshuffles the tail (items strictly
// after CurrentIndex); disabling restores original order via stable sort on
// OriginalIndex (spec §4.2 "Shuffle algorithm").
func (c *Controller) SetShuffle(zoneID int, enable bool) (models.QueueState, *models.AppError) {
	zc, err := c.repo.Mutate(zoneID, func(z *models.ZoneContext) error {
		z.Queue.Shuffle = enable
		if enable {
			shuffleTail(&z.Queue, true)
		} else {
			unshuffle(&z.Queue)
		}
		return nil
	})
	return zc.Queue, err
}

// SetRepeat sets the queue's repeat mode.
func (c *Controller) SetRepeat(zoneID int, mode models.RepeatMode) (models.QueueState, *models.AppError) {
	zc, err := c.repo.Mutate(zoneID, func(z *models.ZoneContext) error {
		z.Queue.Repeat = mode
		return nil
	})
	return zc.Queue, err
}

// UpdateQueueFromOutput applies a queue snapshot reported by a renderer
// with its own remote queue (spec §4.2 updateQueueFromOutput).
func (c *Controller) UpdateQueueFromOutput(zoneID int, items []models.QueueItem, currentIndex int) (models.QueueState, *models.AppError) {
	zc, err := c.repo.Mutate(zoneID, func(z *models.ZoneContext) error {
		z.Queue.UpdateFromOutput(items, currentIndex)
		return nil
	})
	return zc.Queue, err
}

// BuildQueueForUri installs a freshly expanded item list (produced by the
// Content port) as the zone's queue, optionally shuffling it, and bumps
// QueueFillToken so any in-flight background fill from the previous queue
// is invalidated (spec §4.2 "Background fill" / spec §4.1 step 1).
func (c *Controller) BuildQueueForUri(zoneID int, items []models.QueueItem, startIndex int, shuffle bool) (models.QueueState, int64, *models.AppError) {
	var token int64
	zc, err := c.repo.Mutate(zoneID, func(z *models.ZoneContext) error {
		z.Queue.SetItems(items)
		z.Queue.Shuffle = shuffle
		z.Queue.CurrentIndex = startIndex
		z.Queue.Clamp()
		if shuffle {
			shuffleTail(&z.Queue, true)
		}
		z.QueueFillToken++
		token = z.QueueFillToken
		return nil
	})
	return zc.Queue, token, err
}

// FillQueueInBackground appends more items to the tail of the queue if
// token still matches the zone's live QueueFillToken; discards the result
// if the queue was rebuilt in the meantime (spec §4.2 "Background fill").
func (c *Controller) FillQueueInBackground(zoneID int, token int64, more []models.QueueItem) (bool, *models.AppError) {
	applied := false
	_, err := c.repo.Mutate(zoneID, func(z *models.ZoneContext) error {
		if z.QueueFillToken != token {
			return nil
		}
		combined := append(append([]models.QueueItem(nil), z.Queue.Items...), more...)
		cur := z.Queue.CurrentIndex
		z.Queue.SetItems(combined)
		z.Queue.CurrentIndex = cur
		z.Queue.Clamp()
		applied = true
		return nil
	})
	return applied, err
}

// ReorderMode selects a ReorderQueue operation.
type ReorderMode int

const (
	ReorderShuffle ReorderMode = iota
	ReorderUnshuffle
)

// ReorderOptions configures ReorderQueue.
type ReorderOptions struct {
	KeepCurrent     bool
	ShuffleUpcoming bool
}

// ReorderQueue performs an explicit shuffle/unshuffle (spec §4.2
// reorderQueue), independent of the Shuffle flag toggle in SetShuffle.
func (c *Controller) ReorderQueue(zoneID int, mode ReorderMode, opts ReorderOptions) (models.QueueState, *models.AppError) {
	zc, err := c.repo.Mutate(zoneID, func(z *models.ZoneContext) error {
		switch mode {
		case ReorderShuffle:
			shuffleTail(&z.Queue, opts.KeepCurrent && opts.ShuffleUpcoming)
		case ReorderUnshuffle:
			unshuffle(&z.Queue)
		}
		return nil
	})
	return zc.Queue, err
}

// shuffleTail Fisher-Yates shuffles items strictly after CurrentIndex. If
// tailOnly is false, the whole list is shuffled and CurrentIndex reset to 0.
func shuffleTail(q *models.QueueState, tailOnly bool) {
	start := 0
	if tailOnly {
		start = q.CurrentIndex + 1
	} else {
		q.CurrentIndex = 0
	}
	if start >= len(q.Items) {
		return
	}
	tail := q.Items[start:]
	for i := len(tail) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		tail[i], tail[j] = tail[j], tail[i]
	}
	for i := range q.Items {
		q.Items[i].QIndex = i
	}
}

// unshuffle restores original order via a stable sort on OriginalIndex
// (spec §4.2 "Unshuffle restores using stable sort on originalIndex").
func unshuffle(q *models.QueueState) {
	currentID := ""
	if cur := q.Current(); cur != nil {
		currentID = cur.UniqueID
		if currentID == "" {
			currentID = cur.Audiopath
		}
	}

	sort.SliceStable(q.Items, func(i, j int) bool {
		return q.Items[i].OriginalIndex < q.Items[j].OriginalIndex
	})
	for i := range q.Items {
		q.Items[i].QIndex = i
	}

	if currentID != "" {
		if idx := q.IndexOf(currentID); idx >= 0 {
			q.CurrentIndex = idx
		}
	}
	q.Clamp()
}
