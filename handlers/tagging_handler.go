package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/tagvault/backend/apperrors"
)

// TagGenerator matches the tagging client used by the endpoint.
type TagGenerator interface {
	GenerateTags(ctx context.Context, dataURI string) ([]string, error)
}

type TaggingHandler struct {
	Tagger TagGenerator
	Logger *zap.Logger
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

// GenerateTags runs a single tag-generation attempt for the given data URI.
func (th *TaggingHandler) GenerateTags(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DataURI string `json:"dataUri"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteAPIError(w, http.StatusBadRequest, string(apperrors.KindInvalidInput), "Invalid request body.")
		return
	}

	tags, err := th.Tagger.GenerateTags(r.Context(), body.DataURI)
	if err != nil {
		th.Logger.Warn("tag generation endpoint failed", zap.Error(err))
		WritePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tagsResponse{Tags: tags})
}
