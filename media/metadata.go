package media

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
)

// Metadata holds what can be recovered from the image bytes at upload time.
type Metadata struct {
	Width   *int
	Height  *int
	TakenAt *int64 // Unix timestamp from EXIF DateTimeOriginal
}

// ExtractMetadata decodes image dimensions and, for JPEGs carrying EXIF, the
// original capture time. Missing or unparsable EXIF is not an error.
func ExtractMetadata(data []byte) Metadata {
	var meta Metadata

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		w, h := cfg.Width, cfg.Height
		meta.Width = &w
		meta.Height = &h
	}

	exifData, err := exif.Decode(bytes.NewReader(data))
	if err != nil || exifData == nil {
		return meta
	}
	if taken, err := exifData.DateTime(); err == nil {
		ts := taken.Unix()
		meta.TakenAt = &ts
	}
	return meta
}
