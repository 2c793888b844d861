// Package zonerepo is the process-wide indexed zone store. It owns every
// zone's Actor, giving each zone its own single-writer serializer while
// lookups and iteration are served from a read-write index — the
// generalization of the teacher's Controller (one global mutex over
// models.State, findZone doing a linear scan) to the per-zone concurrency
// model required by spec §5.
package zonerepo

import (
	"sort"
	"sync"

	"github.com/ogglobi/audiolox/internal/models"
)

// Repository indexes zone actors by ID.
type Repository struct {
	mu    sync.RWMutex
	zones map[int]*Actor
}

// New returns an empty Repository.
func New() *Repository {
	return &Repository{zones: make(map[int]*Actor)}
}

// Register creates an actor for a new zone and installs it. onChange, if
// non-nil, is invoked synchronously with a fresh snapshot after every
// successful Mutate — wired to the Group Tracker / Notifier by the caller.
func (r *Repository) Register(zc models.ZoneContext, onChange func(models.ZoneContext)) *Actor {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := newActor(zc, onChange)
	r.zones[zc.ID] = a
	return a
}

// Remove drops a zone from the repository (reconfiguration only; zones are
// not removed as part of normal operation).
func (r *Repository) Remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.zones, id)
}

// Actor returns the actor for a zone ID, if registered.
func (r *Repository) Actor(id int) (*Actor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.zones[id]
	return a, ok
}

// Snapshot returns a consistent copy of one zone's state.
func (r *Repository) Snapshot(id int) (models.ZoneContext, *models.AppError) {
	a, ok := r.Actor(id)
	if !ok {
		return models.ZoneContext{}, models.ErrNotFound("zone not found")
	}
	return a.View(), nil
}

// All returns a snapshot of every registered zone, ordered by ID.
func (r *Repository) All() []models.ZoneContext {
	r.mu.RLock()
	actors := make([]*Actor, 0, len(r.zones))
	for _, a := range r.zones {
		actors = append(actors, a)
	}
	r.mu.RUnlock()

	out := make([]models.ZoneContext, 0, len(actors))
	for _, a := range actors {
		out = append(out, a.View())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Mutate runs fn against zone id's actor, translating a not-found lookup
// and any plain error into an *models.AppError for the admin-API boundary,
// same as Controller.SetZone's error-wrapping convention.
func (r *Repository) Mutate(id int, fn func(*models.ZoneContext) error) (models.ZoneContext, *models.AppError) {
	a, ok := r.Actor(id)
	if !ok {
		return models.ZoneContext{}, models.ErrNotFound("zone not found")
	}
	next, err := a.Do(fn)
	if err != nil {
		if appErr, ok := err.(*models.AppError); ok {
			return models.ZoneContext{}, appErr
		}
		return models.ZoneContext{}, models.ErrInternal(err.Error())
	}
	return next, nil
}
