package zonerepo

import (
	"sync"

	"github.com/ogglobi/audiolox/internal/models"
)

// Actor serializes all reads and mutations of a single zone behind one
// mutex, giving that zone a total order (spec §5 "per-zone total order")
// without a system-wide lock. Mirrors the teacher's Controller.apply()
// copy-mutate-publish cycle, narrowed from whole-system state to one zone.
type Actor struct {
	mu       sync.Mutex
	zone     models.ZoneContext
	onChange func(models.ZoneContext)
}

func newActor(zc models.ZoneContext, onChange func(models.ZoneContext)) *Actor {
	return &Actor{zone: zc, onChange: onChange}
}

// Do runs fn against a copy-on-write snapshot of the zone. If fn returns an
// error, the zone is left unchanged and the error is returned. On success
// the new zone becomes live and, if set, onChange is invoked with a fresh
// snapshot — synchronously, while still holding the lock, matching
// Controller.apply()'s synchronous bus.Publish call.
func (a *Actor) Do(fn func(*models.ZoneContext) error) (models.ZoneContext, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.cloneLocked()
	if err := fn(&next); err != nil {
		return models.ZoneContext{}, err
	}
	a.zone = next

	snap := a.cloneLocked()
	if a.onChange != nil {
		a.onChange(snap)
	}
	return snap, nil
}

// View returns a consistent snapshot of the zone.
func (a *Actor) View() models.ZoneContext {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cloneLocked()
}

// cloneLocked deep-copies the slice/pointer fields of ZoneContext that
// would otherwise alias the live value (spec §3 "deep copy discipline"),
// while leaving interface-typed Driver references shared — those are live
// object handles, not state to be cloned.
func (a *Actor) cloneLocked() models.ZoneContext {
	cp := a.zone
	cp.Queue = a.zone.Queue.DeepCopy()
	cp.Outputs = append([]models.OutputBinding(nil), a.zone.Outputs...)
	if a.zone.Alert != nil {
		alertCopy := *a.zone.Alert
		alertCopy.Queue = a.zone.Alert.Queue.DeepCopy()
		cp.Alert = &alertCopy
	}
	return cp
}
