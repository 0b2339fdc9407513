// Package gallery implements the upload-and-tag pipeline and the live view
// over the image collection.
package gallery

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tagvault/backend/apperrors"
	"github.com/tagvault/backend/config"
	"github.com/tagvault/backend/media"
	"github.com/tagvault/backend/metrics"
	"github.com/tagvault/backend/models"
	"github.com/tagvault/backend/repository"
	"github.com/tagvault/backend/utils"
)

// Upload source modes.
const (
	SourceLocal = "local"
	SourceURL   = "url"
)

// TagGenerator produces descriptive keywords for an image payload.
type TagGenerator interface {
	GenerateTags(ctx context.Context, dataURI string) ([]string, error)
}

// Enqueuer accepts background processing jobs for freshly stored images.
// Enqueue must never block; a full queue drops the job.
type Enqueuer interface {
	Enqueue(imageID, storagePath string)
}

// UploadRequest carries one upload attempt through the pipeline.
type UploadRequest struct {
	Name             string // proposed display name, without extension
	DataURI          string // self-describing base64 payload
	OriginalFileName string // set in local mode; used for the extension
	Source           string // SourceLocal or SourceURL
}

// Uploader coordinates the ordered pipeline: validate, tag, store, persist.
// Steps run strictly sequentially and the first failure aborts the rest.
type Uploader struct {
	tagger   TagGenerator
	store    media.Store
	repo     repository.ImageRepositoryInterface
	gallery  *Store
	enqueuer Enqueuer
	logger   *zap.Logger
}

func NewUploader(tagger TagGenerator, store media.Store, repo repository.ImageRepositoryInterface, gallery *Store, enqueuer Enqueuer, logger *zap.Logger) *Uploader {
	return &Uploader{
		tagger:   tagger,
		store:    store,
		repo:     repo,
		gallery:  gallery,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// Upload runs one attempt end to end. A tagging failure leaves no side
// effects; a failure after the object is stored leaves an orphaned object
// behind, which is tolerated and never reconciled.
func (u *Uploader) Upload(ctx context.Context, req UploadRequest) (*models.Image, error) {
	baseName := utils.SanitizeBaseName(req.Name)
	if baseName == "" {
		return nil, apperrors.New(apperrors.KindInvalidName, "Please enter a name for the image.")
	}

	if strings.TrimSpace(req.DataURI) == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "Image data is required.")
	}
	mime, data, err := utils.ParseDataURI(req.DataURI)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "Image data is required.", err)
	}
	if !utils.IsAcceptedImageMime(mime) {
		return nil, apperrors.New(apperrors.KindUnsupportedType, "Invalid file type. Please select a JPG or PNG image.")
	}
	if len(data) > config.MaxImageBytes {
		return nil, apperrors.New(apperrors.KindPayloadTooLarge, "File is too large. Maximum size is 2MB.")
	}

	tags, err := u.tagger.GenerateTags(ctx, req.DataURI)
	if err != nil {
		metrics.TaggingFailures.Inc()
		metrics.UploadFailures.WithLabelValues("tagging").Inc()
		u.logger.Warn("tag generation failed, aborting upload", zap.String("name", baseName), zap.Error(err))
		return nil, err
	}

	ext := u.extensionFor(req, mime)
	storagePath := fmt.Sprintf("images/%d-%s.%s", time.Now().UnixMilli(), randomSuffix(), ext)

	if err := u.store.Save(ctx, storagePath, bytes.NewReader(data), mime); err != nil {
		metrics.UploadFailures.WithLabelValues("store").Inc()
		u.logger.Error("object store write failed", zap.String("path", storagePath), zap.Error(err))
		return nil, apperrors.Wrap(apperrors.KindUploadFailed, "Image upload failed. Please try again.", err)
	}

	url, err := u.store.PublicURL(storagePath)
	if err != nil {
		// the stored object is orphaned here; no compensating delete
		metrics.UploadFailures.WithLabelValues("url").Inc()
		u.logger.Error("failed to resolve public URL", zap.String("path", storagePath), zap.Error(err))
		return nil, apperrors.Wrap(apperrors.KindUploadFailed, "Image upload failed. Please try again.", err)
	}

	meta := media.ExtractMetadata(data)
	record := &models.Image{
		ID:          uuid.New().String(),
		Name:        baseName + "." + ext,
		URL:         url,
		StoragePath: storagePath,
		Tags:        models.TagList(tags),
		Width:       meta.Width,
		Height:      meta.Height,
		TakenAt:     meta.TakenAt,
		CreatedAt:   time.Now().Unix(),
	}

	if err := u.repo.Create(record); err != nil {
		metrics.UploadFailures.WithLabelValues("persist").Inc()
		u.logger.Error("metadata record write failed, object orphaned",
			zap.String("path", storagePath), zap.Error(err))
		return nil, apperrors.Wrap(apperrors.KindUploadFailed, "Image upload failed. Please try again.", err)
	}

	metrics.UploadsTotal.Inc()
	u.logger.Info("image uploaded",
		zap.String("id", record.ID),
		zap.String("name", record.Name),
		zap.Int("tags", len(record.Tags)))

	if u.gallery != nil {
		u.gallery.Refresh()
	}
	if u.enqueuer != nil {
		u.enqueuer.Enqueue(record.ID, record.StoragePath)
	}
	return record, nil
}

// Delete removes the stored object first and the metadata record second. If
// the object delete fails the record is left untouched; if the record delete
// fails the record dangles over a missing object, which is not reconciled.
func (u *Uploader) Delete(ctx context.Context, id string) error {
	record, err := u.repo.GetByID(id)
	if err != nil {
		return apperrors.Wrap(apperrors.KindDeleteFailed, "Failed to delete image. Please try again.", err)
	}

	if err := u.store.Delete(ctx, record.StoragePath); err != nil {
		u.logger.Error("object delete failed, keeping record",
			zap.String("id", id), zap.String("path", record.StoragePath), zap.Error(err))
		return apperrors.Wrap(apperrors.KindDeleteFailed, "Failed to delete image. Please try again.", err)
	}

	if record.ThumbnailPath != nil {
		if err := u.store.Delete(ctx, *record.ThumbnailPath); err != nil {
			u.logger.Warn("thumbnail delete failed", zap.String("id", id), zap.Error(err))
		}
	}

	if err := u.repo.Delete(id); err != nil {
		u.logger.Error("record delete failed, object already removed",
			zap.String("id", id), zap.Error(err))
		return apperrors.Wrap(apperrors.KindDeleteFailed, "Failed to delete image. Please try again.", err)
	}

	metrics.DeletesTotal.Inc()
	u.logger.Info("image deleted", zap.String("id", id), zap.String("name", record.Name))

	if u.gallery != nil {
		u.gallery.Refresh()
	}
	return nil
}

// extensionFor picks the storage extension: the original file's extension in
// local mode, otherwise one derived from the payload MIME type.
func (u *Uploader) extensionFor(req UploadRequest, mime string) string {
	if req.Source == SourceLocal {
		if ext := utils.ExtOf(req.OriginalFileName); ext != "" {
			return strings.ToLower(ext)
		}
	}
	return utils.ExtensionForMime(mime)
}

// randomSuffix returns a short unique fragment for storage keys.
func randomSuffix() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:7]
}
