package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// TagList stores the generated keywords as a JSON array in a single column.
type TagList []string

func (t TagList) Value() (driver.Value, error) {
	if t == nil {
		t = TagList{}
	}
	return json.Marshal(t)
}

func (t *TagList) Scan(value interface{}) error {
	if value == nil {
		*t = TagList{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into TagList", value)
	}
	if len(raw) == 0 {
		*t = TagList{}
		return nil
	}
	return json.Unmarshal(raw, t)
}

// Image represents one gallery entry in the database using GORM.
// It corresponds to the 'images' table.
//
// Name, URL and StoragePath are written once at creation and never updated;
// the only lifecycle operations are create and delete.
type Image struct {
	ID          string  `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"not null" json:"name"`
	URL         string  `gorm:"not null" json:"url"`
	StoragePath string  `gorm:"not null;uniqueIndex" json:"storage_path"`
	Tags        TagList `gorm:"type:text" json:"tags"`

	Width   *int   `gorm:"" json:"width,omitempty"`    // Nullable, decoded at upload
	Height  *int   `gorm:"" json:"height,omitempty"`   // Nullable
	TakenAt *int64 `gorm:"" json:"taken_at,omitempty"` // Nullable, EXIF unix timestamp

	ThumbnailPath *string `gorm:"" json:"thumbnail_path,omitempty"` // Nullable, set by worker

	CreatedAt int64 `gorm:"not null;index" json:"created_at"` // Unix timestamp, server-assigned
}

// TableName explicitly sets the table name for GORM.
func (Image) TableName() string {
	return "images"
}
