package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/tagvault/backend/apperrors"
	"github.com/tagvault/backend/media"
)

type FetchHandler struct {
	Fetcher *media.Fetcher
	Logger  *zap.Logger
}

// FetchFromURL loads a remote image, validates it, and returns it as a data
// URI plus a derived file name for a later upload.
func (fh *FetchHandler) FetchFromURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteAPIError(w, http.StatusBadRequest, string(apperrors.KindInvalidInput), "Invalid request body.")
		return
	}
	if body.URL == "" {
		WriteAPIError(w, http.StatusBadRequest, string(apperrors.KindInvalidInput), "A valid URL is required.")
		return
	}

	fetched, err := fh.Fetcher.FetchImage(r.Context(), body.URL)
	if err != nil {
		fh.Logger.Warn("remote image load failed", zap.String("url", body.URL), zap.Error(err))
		WritePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fetched)
}
