package models_test

import (
	"testing"

	"github.com/ogglobi/audiolox/internal/models"
)

func TestQueueStateClamp(t *testing.T) {
	tests := []struct {
		name  string
		items int
		idx   int
		want  int
	}{
		{"empty queue clamps to zero", 0, 5, 0},
		{"negative index clamps to zero", 3, -1, 0},
		{"overflowing index clamps to last", 3, 10, 2},
		{"in-range index unchanged", 3, 1, 1},
	}
	for _, tc := range tests {
		q := models.QueueState{Items: make([]models.QueueItem, tc.items), CurrentIndex: tc.idx}
		q.Clamp()
		if q.CurrentIndex != tc.want {
			t.Errorf("%s: CurrentIndex = %d, want %d", tc.name, q.CurrentIndex, tc.want)
		}
	}
}

func TestQueueStateCurrent(t *testing.T) {
	q := models.QueueState{}
	if q.Current() != nil {
		t.Error("expected nil Current() on empty queue")
	}

	q.Items = []models.QueueItem{{Title: "a"}, {Title: "b"}}
	q.CurrentIndex = 1
	cur := q.Current()
	if cur == nil || cur.Title != "b" {
		t.Errorf("Current() = %+v, want item b", cur)
	}
}

func TestQueueStateIndexOf(t *testing.T) {
	q := models.QueueState{Items: []models.QueueItem{
		{Audiopath: "spotify:track:1", UniqueID: "u1"},
		{Audiopath: "spotify:track:2", UniqueID: "u2"},
	}}
	if i := q.IndexOf("spotify:track:2"); i != 1 {
		t.Errorf("IndexOf by audiopath = %d, want 1", i)
	}
	if i := q.IndexOf("u1"); i != 0 {
		t.Errorf("IndexOf by unique id = %d, want 0", i)
	}
	if i := q.IndexOf("missing"); i != -1 {
		t.Errorf("IndexOf for missing target = %d, want -1", i)
	}
}

func TestQueueStateSetItemsAssignsQIndexAndOriginalIndex(t *testing.T) {
	q := models.QueueState{}
	q.SetItems([]models.QueueItem{
		{Audiopath: "a"},
		{Audiopath: "b"},
		{Audiopath: "c"},
	})
	for i, it := range q.Items {
		if it.QIndex != i {
			t.Errorf("Items[%d].QIndex = %d, want %d", i, it.QIndex, i)
		}
		if it.OriginalIndex != i {
			t.Errorf("Items[%d].OriginalIndex = %d, want %d", i, it.OriginalIndex, i)
		}
	}
}

func TestQueueStateUpdateFromOutputIgnoresEmpty(t *testing.T) {
	q := models.QueueState{}
	q.SetItems([]models.QueueItem{{Audiopath: "a"}})
	applied := q.UpdateFromOutput(nil, 0)
	if applied {
		t.Error("expected empty snapshot to be ignored")
	}
	if len(q.Items) != 1 {
		t.Error("expected existing queue to be untouched")
	}
}

func TestQueueStateUpdateFromOutputMergesSingleItem(t *testing.T) {
	q := models.QueueState{}
	q.SetItems([]models.QueueItem{{Audiopath: "a"}, {Audiopath: "b"}, {Audiopath: "c"}})
	q.CurrentIndex = 1

	applied := q.UpdateFromOutput([]models.QueueItem{{Title: "now playing", Audiopath: "b-updated"}}, 1)
	if !applied {
		t.Fatal("expected single-item snapshot to be applied")
	}
	if len(q.Items) != 3 {
		t.Errorf("expected queue length to stay 3 after merge, got %d", len(q.Items))
	}
	if q.Items[1].Audiopath != "b-updated" {
		t.Errorf("Items[1].Audiopath = %q, want b-updated", q.Items[1].Audiopath)
	}
	if q.Items[0].Audiopath != "a" || q.Items[2].Audiopath != "c" {
		t.Error("expected other items to be unaffected by the merge")
	}
}

func TestQueueStateUpdateFromOutputSkipsDuplicateSignature(t *testing.T) {
	q := models.QueueState{}
	items := []models.QueueItem{{Audiopath: "a"}, {Audiopath: "b"}}
	first := q.UpdateFromOutput(items, 0)
	if !first {
		t.Fatal("expected first snapshot to apply")
	}
	second := q.UpdateFromOutput(items, 0)
	if second {
		t.Error("expected identical snapshot signature to be skipped")
	}
}

func TestQueueStateDeepCopy(t *testing.T) {
	q := models.QueueState{Items: []models.QueueItem{{Title: "original"}}}
	cp := q.DeepCopy()
	cp.Items[0].Title = "modified"

	if q.Items[0].Title == "modified" {
		t.Error("DeepCopy did not isolate Items slice")
	}
}
