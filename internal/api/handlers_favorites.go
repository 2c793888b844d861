package api

import (
	"encoding/json"
	"net/http"

	"github.com/ogglobi/audiolox/internal/models"
	"github.com/ogglobi/audiolox/internal/ports"
)

func (h *Handlers) getFavorites(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "zid")
	if err != nil {
		writeError(w, err)
		return
	}
	favs, ferr := h.storage.LoadFavorites(id)
	if ferr != nil {
		writeError(w, models.ErrInternal(ferr.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"favorites": favs})
}

func (h *Handlers) setFavorites(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "zid")
	if err != nil {
		writeError(w, err)
		return
	}
	var entries []ports.FavoriteEntry
	if jerr := json.NewDecoder(r.Body).Decode(&entries); jerr != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+jerr.Error()))
		return
	}
	if serr := h.storage.SaveFavorites(id, entries); serr != nil {
		writeError(w, models.ErrInternal(serr.Error()))
		return
	}
	h.hub.FavoritesChanged(id)
	writeJSON(w, http.StatusOK, map[string]interface{}{"favorites": entries})
}

func (h *Handlers) getRecents(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "zid")
	if err != nil {
		writeError(w, err)
		return
	}
	recents, rerr := h.storage.LoadRecents(id)
	if rerr != nil {
		writeError(w, models.ErrInternal(rerr.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"recents": recents})
}
