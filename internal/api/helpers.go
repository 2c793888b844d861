// Package api is the thin HTTP admin surface over the Playback Coordinator
// (spec §1: "HTTP admin API, WebSocket notifier, discovery — thin transport
// glue", out of core scope). Built on a chi router + JSON handler idiom,
// covering zones, playback commands, and favorites/recents.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ogglobi/audiolox/internal/config"
	"github.com/ogglobi/audiolox/internal/models"
	"github.com/ogglobi/audiolox/internal/playback"
	"github.com/ogglobi/audiolox/internal/sysinfo"
	"github.com/ogglobi/audiolox/internal/zonerepo"
)

// Handlers holds the dependencies every admin HTTP handler needs.
type Handlers struct {
	repo    *zonerepo.Repository
	coord   *playback.Coordinator
	storage *config.Storage
	hub     *Hub
	info    sysinfo.Info
}

// NewHandlers wires the admin API to the running core.
func NewHandlers(repo *zonerepo.Repository, coord *playback.Coordinator, storage *config.Storage, hub *Hub, info sysinfo.Info) *Handlers {
	return &Handlers{repo: repo, coord: coord, storage: storage, hub: hub, info: info}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error as a JSON response (spec §7 "payload-too-large
// / invalid-json: 4xx to admin; never affects core state"). A
// *models.PlaybackError reaching this boundary means a playback operation
// requested by the admin API failed — reported as a 409 Conflict, since the
// zone itself already transitioned per the Notifier disposition.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	switch e := err.(type) {
	case *models.AppError:
		w.WriteHeader(e.Status)
		_ = json.NewEncoder(w).Encode(e)
	case *models.PlaybackError:
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(models.ErrConflict(e.Error()))
	default:
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(models.ErrInternal(err.Error()))
	}
}

// intParam reads an integer path parameter by name.
func intParam(r *http.Request, name string) (int, error) {
	s := chi.URLParam(r, name)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, models.ErrBadRequest("invalid " + name + " parameter")
	}
	return n, nil
}
