package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tagvault/backend/models"
)

// ErrImageNotFound is returned when a lookup or delete targets a missing record.
var ErrImageNotFound = errors.New("image record not found")

// ImageRepository handles database operations for Image entities
type ImageRepository struct {
	DB *gorm.DB
}

// NewImageRepository creates a new instance of ImageRepository
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{DB: db}
}

func (r *ImageRepository) Create(image *models.Image) error {
	if err := r.DB.Create(image).Error; err != nil {
		return fmt.Errorf("failed to create image record %s: %w", image.ID, err)
	}
	return nil
}

func (r *ImageRepository) GetByID(id string) (*models.Image, error) {
	var image models.Image
	err := r.DB.Where("id = ?", id).First(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to get image by id %s: %w", id, err)
	}
	return &image, nil
}

// ListByCreatedAtDesc returns all records, newest first.
func (r *ImageRepository) ListByCreatedAtDesc() ([]models.Image, error) {
	var images []models.Image
	if err := r.DB.Order("created_at DESC").Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}

func (r *ImageRepository) Delete(id string) error {
	result := r.DB.Where("id = ?", id).Delete(&models.Image{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete image record %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrImageNotFound
	}
	return nil
}

// SetThumbnailPath stores the thumbnail location produced by the background
// worker. Name, URL and StoragePath are deliberately not touchable here.
func (r *ImageRepository) SetThumbnailPath(id, thumbnailPath string) error {
	result := r.DB.Model(&models.Image{}).Where("id = ?", id).Update("thumbnail_path", thumbnailPath)
	if result.Error != nil {
		return fmt.Errorf("failed to set thumbnail path for %s: %w", id, result.Error)
	}
	return nil
}
