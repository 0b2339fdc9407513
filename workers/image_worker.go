// Package workers runs background thumbnail generation for uploaded images.
// Worker failures are logged and never affect the upload that queued them.
package workers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/tagvault/backend/media"
	"github.com/tagvault/backend/repository"
)

type Job struct {
	ImageID     string
	StoragePath string
}

// ImageProcessor is a bounded-queue worker pool generating thumbnails for
// freshly uploaded images.
type ImageProcessor struct {
	jobQueue chan Job
	store    media.Store
	repo     repository.ImageRepositoryInterface
	maxSize  int
	onDone   func() // invoked after a record was updated, e.g. to refresh the gallery
	logger   *zap.Logger
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewImageProcessor(store media.Store, repo repository.ImageRepositoryInterface, maxSize, queueSize, numWorkers int, onDone func(), logger *zap.Logger) *ImageProcessor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	proc := &ImageProcessor{
		jobQueue: make(chan Job, queueSize),
		store:    store,
		repo:     repo,
		maxSize:  maxSize,
		onDone:   onDone,
		logger:   logger,
	}
	proc.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go proc.worker(i)
	}
	logger.Info("started image processing workers",
		zap.Int("workers", numWorkers), zap.Int("queue_size", queueSize))
	return proc
}

// Enqueue queues a thumbnail job without blocking; a full queue drops the job.
func (ip *ImageProcessor) Enqueue(imageID, storagePath string) {
	select {
	case ip.jobQueue <- Job{ImageID: imageID, StoragePath: storagePath}:
	default:
		ip.logger.Warn("thumbnail queue full, dropping job", zap.String("image_id", imageID))
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (ip *ImageProcessor) Stop() {
	ip.stopOnce.Do(func() { close(ip.jobQueue) })
	ip.wg.Wait()
}

func (ip *ImageProcessor) worker(id int) {
	defer ip.wg.Done()
	for job := range ip.jobQueue {
		if err := ip.processThumbnail(job); err != nil {
			ip.logger.Warn("thumbnail generation failed",
				zap.Int("worker", id), zap.String("image_id", job.ImageID), zap.Error(err))
			continue
		}
		if ip.onDone != nil {
			ip.onDone()
		}
	}
}

func (ip *ImageProcessor) processThumbnail(job Job) error {
	reader, err := ip.store.Open(job.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to open original object: %w", err)
	}
	data, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return fmt.Errorf("failed to read original object: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	thumb := imaging.Fit(img, ip.maxSize, ip.maxSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	thumbPath := thumbnailPathFor(job.StoragePath)
	if err := ip.store.Save(context.Background(), thumbPath, &buf, "image/jpeg"); err != nil {
		return fmt.Errorf("failed to store thumbnail: %w", err)
	}

	if err := ip.repo.SetThumbnailPath(job.ImageID, thumbPath); err != nil {
		return fmt.Errorf("failed to record thumbnail path: %w", err)
	}

	ip.logger.Debug("generated thumbnail",
		zap.String("image_id", job.ImageID), zap.String("path", thumbPath))
	return nil
}

// thumbnailPathFor mirrors the original key under thumbnails/ with a .jpg
// extension, e.g. images/x.png -> thumbnails/x.jpg.
func thumbnailPathFor(storagePath string) string {
	name := storagePath
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	return "thumbnails/" + name + ".jpg"
}
