package web

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nkoterov/breeze/internal/artifact"
	"github.com/nkoterov/breeze/internal/log"
)

// artifactGetter is the read surface of the artifact store.
type artifactGetter interface {
	Get(ctx context.Context, key string) (data []byte, contentType string, err error)
}

// artifactHandler serves stored captures at /files/{sessionID}/{name}. The
// full path is revalidated against the artifact key grammar, so nothing
// outside the store's namespace is reachable.
type artifactHandler struct {
	store  artifactGetter
	logger log.Logger
}

func (h *artifactHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := path.Join("files", chi.URLParam(r, "sessionID"), chi.URLParam(r, "name"))
	if err := artifact.ValidateKey(key); err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	data, contentType, err := h.store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.logger.Error("artifact fetch failed", "key", key, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=86400")
	_, _ = w.Write(data)
}
