package api

import (
	"encoding/json"
	"net/http"

	"github.com/ogglobi/audiolox/internal/models"
	"github.com/ogglobi/audiolox/internal/playback"
)

func (h *Handlers) getZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"zones": h.repo.All()})
}

func (h *Handlers) getZone(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "zid")
	if err != nil {
		writeError(w, err)
		return
	}
	zc, appErr := h.repo.Snapshot(id)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, zc)
}

// playRequest is the body of POST /api/zones/{zid}/play (spec §4.1
// playContent(zoneId, uri, type, metadata?)).
type playRequest struct {
	URI      string              `json:"uri"`
	Type     string              `json:"type"`
	SeekMs   int                 `json:"seek_ms"`
	Metadata *models.TrackMetadata `json:"metadata,omitempty"`
}

func (h *Handlers) playZone(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "zid")
	if err != nil {
		writeError(w, err)
		return
	}
	var req playRequest
	if jerr := json.NewDecoder(r.Body).Decode(&req); jerr != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+jerr.Error()))
		return
	}
	if req.URI == "" {
		writeError(w, models.ErrBadRequest("uri is required"))
		return
	}
	opts := playback.PlayOptions{SeekMs: req.SeekMs, Metadata: req.Metadata}
	if perr := h.coord.PlayContent(r.Context(), id, req.URI, req.Type, opts); perr != nil {
		writeError(w, perr)
		return
	}
	zc, appErr := h.repo.Snapshot(id)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, zc.State)
}

// commandRequest is the body of POST /api/zones/{zid}/command (spec §4.1
// handleCommand(zoneId, command, payload?)).
type commandRequest struct {
	Command string `json:"command"`
	Payload string `json:"payload"`
}

func (h *Handlers) commandZone(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "zid")
	if err != nil {
		writeError(w, err)
		return
	}
	var req commandRequest
	if jerr := json.NewDecoder(r.Body).Decode(&req); jerr != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+jerr.Error()))
		return
	}
	if cerr := h.coord.HandleCommand(r.Context(), id, req.Command, req.Payload); cerr != nil {
		writeError(w, cerr)
		return
	}
	zc, appErr := h.repo.Snapshot(id)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, zc.State)
}
