package playback

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/ogglobi/audiolox/internal/inputs"
)

// CoverStore ingests raw CoverArtPayloads from input adapters and exposes
// them behind an internal HTTP URL for renderers that need URL-based art
// (spec §4.6 "Cover delivery"). Grounded on the teacher's in-memory asset
// caches (no disk persistence needed; cover art is re-pushed by the
// adapter on every track change).
type CoverStore struct {
	basePath string

	mu    sync.RWMutex
	blobs map[string]coverBlob
}

type coverBlob struct {
	data []byte
	mime string
}

// NewCoverStore returns a CoverStore serving art under basePath (e.g.
// "/covers/").
func NewCoverStore(basePath string) *CoverStore {
	return &CoverStore{basePath: basePath, blobs: make(map[string]coverBlob)}
}

// Put ingests a payload and returns the URL renderers should fetch it
// from.
func (s *CoverStore) Put(payload inputs.CoverArtPayload) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.blobs[id] = coverBlob{data: payload.Data, mime: payload.MIME}
	s.mu.Unlock()
	return fmt.Sprintf("%s%s", s.basePath, id)
}

// ServeHTTP serves a previously ingested cover by its id suffix.
func (s *CoverStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[len(s.basePath):]
	s.mu.RLock()
	blob, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	if blob.mime != "" {
		w.Header().Set("Content-Type", blob.mime)
	}
	w.Write(blob.data)
}
