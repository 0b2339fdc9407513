package repository

import "github.com/tagvault/backend/models"

// ImageRepositoryInterface defines the operations the metadata store supports:
// create, delete and ordered listing. Records are never updated after creation
// except for fields owned by the background image worker.
type ImageRepositoryInterface interface {
	Create(image *models.Image) error
	GetByID(id string) (*models.Image, error)
	ListByCreatedAtDesc() ([]models.Image, error)
	Delete(id string) error
	SetThumbnailPath(id, thumbnailPath string) error
}
