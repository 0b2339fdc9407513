package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tagvault/backend/apperrors"
	"github.com/tagvault/backend/config"
	"github.com/tagvault/backend/gallery"
	"github.com/tagvault/backend/models"
	"github.com/tagvault/backend/repository"
	"github.com/tagvault/backend/utils"
)

type ImageHandler struct {
	Uploader *gallery.Uploader
	Gallery  *gallery.Store
	Logger   *zap.Logger
}

type imageListResponse struct {
	Images []models.Image `json:"images"`
}

// ListImages returns the gallery, newest first, optionally filtered by the
// "search" query parameter (case-insensitive substring over name and tags).
func (ih *ImageHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	images := gallery.Filter(ih.Gallery.Images(), r.URL.Query().Get("search"))
	writeJSON(w, http.StatusOK, imageListResponse{Images: images})
}

// UploadImage runs the upload pipeline. Local mode posts multipart form data
// with "file" and "name" fields; URL mode posts JSON {name, dataUri} using a
// payload previously loaded through the fetch endpoint.
func (ih *ImageHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	var req gallery.UploadRequest

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		parsed, err := ih.parseMultipartUpload(r)
		if err != nil {
			WritePipelineError(w, err)
			return
		}
		req = *parsed
	case strings.HasPrefix(contentType, "application/json"):
		var body struct {
			Name    string `json:"name"`
			DataURI string `json:"dataUri"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteAPIError(w, http.StatusBadRequest, string(apperrors.KindInvalidInput), "Invalid request body.")
			return
		}
		req = gallery.UploadRequest{
			Name:    body.Name,
			DataURI: body.DataURI,
			Source:  gallery.SourceURL,
		}
	default:
		WriteAPIError(w, http.StatusBadRequest, string(apperrors.KindInvalidInput), "Unsupported content type.")
		return
	}

	record, err := ih.Uploader.Upload(r.Context(), req)
	if err != nil {
		WritePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// DeleteImage removes the stored object and then the metadata record.
func (ih *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "image_id")
	if id == "" {
		WriteAPIError(w, http.StatusBadRequest, string(apperrors.KindInvalidInput), "Image id is required.")
		return
	}

	if err := ih.Uploader.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			WriteAPIError(w, http.StatusNotFound, string(apperrors.KindDeleteFailed), "Image not found.")
			return
		}
		WritePipelineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ih *ImageHandler) parseMultipartUpload(r *http.Request) (*gallery.UploadRequest, error) {
	// one extra byte so an oversized upload is detected rather than truncated
	if err := r.ParseMultipartForm(config.MaxImageBytes + 1); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "Invalid multipart form.", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "Image file is required.", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, config.MaxImageBytes+1))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "Failed to read uploaded file.", err)
	}
	if len(data) > config.MaxImageBytes {
		return nil, apperrors.New(apperrors.KindPayloadTooLarge, "File is too large. Maximum size is 2MB.")
	}

	mime := strings.ToLower(header.Header.Get("Content-Type"))
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	if !utils.IsAcceptedImageMime(mime) {
		return nil, apperrors.New(apperrors.KindUnsupportedType, "Invalid file type. Please select a JPG or PNG image.")
	}

	name := r.FormValue("name")
	if name == "" {
		name = utils.BaseNameWithoutExt(header.Filename)
	}

	return &gallery.UploadRequest{
		Name:             name,
		DataURI:          utils.EncodeDataURI(mime, data),
		OriginalFileName: header.Filename,
		Source:           gallery.SourceLocal,
	}, nil
}
