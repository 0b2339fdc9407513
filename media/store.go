package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Store defines the object store boundary: save bytes under a path, resolve a
// publicly reachable URL for that path, and delete by path.
type Store interface {
	// Save stores data under the given store-relative path (e.g. "images/x.jpg")
	Save(ctx context.Context, path string, data io.Reader, contentType string) error
	// Open retrieves a reader for a stored object
	Open(path string) (io.ReadCloser, error)
	// Delete removes an object; deleting a missing object is not an error
	Delete(ctx context.Context, path string) error
	// PublicURL returns the resolvable download location for a stored object
	PublicURL(path string) (string, error)
}

// LocalStorage implements the Store interface on the local filesystem. Objects
// are served back through the asset handler mounted under /media/.
type LocalStorage struct {
	basePath      string // absolute root directory
	publicBaseURL string
	logger        *zap.Logger
}

// NewLocalStorage creates a local filesystem store rooted at basePath.
func NewLocalStorage(basePath, publicBaseURL string, logger *zap.Logger) (*LocalStorage, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base storage path '%s': %w", basePath, err)
	}
	if err := os.MkdirAll(absBasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base storage directory '%s': %w", absBasePath, err)
	}
	logger.Info("initialized local media store", zap.String("path", absBasePath))
	return &LocalStorage{
		basePath:      absBasePath,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}, nil
}

func (ls *LocalStorage) Save(ctx context.Context, path string, data io.Reader, contentType string) error {
	fullPath, err := ls.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for '%s': %w", path, err)
	}

	outFile, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file '%s': %w", fullPath, err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, data); err != nil {
		outFile.Close()
		os.Remove(fullPath)
		return fmt.Errorf("failed to write data to '%s': %w", fullPath, err)
	}

	ls.logger.Debug("saved object", zap.String("path", path))
	return nil
}

func (ls *LocalStorage) Open(path string) (io.ReadCloser, error) {
	fullPath, err := ls.fullPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object not found at '%s': %w", path, err)
		}
		return nil, fmt.Errorf("failed to open object '%s': %w", path, err)
	}
	return file, nil
}

func (ls *LocalStorage) Delete(ctx context.Context, path string) error {
	fullPath, err := ls.fullPath(path)
	if err != nil {
		return err
	}
	err = os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object '%s': %w", path, err)
	}
	if err == nil {
		ls.logger.Debug("deleted object", zap.String("path", path))
	}
	return nil
}

func (ls *LocalStorage) PublicURL(path string) (string, error) {
	if _, err := ls.fullPath(path); err != nil {
		return "", err
	}
	return ls.publicBaseURL + "/media/" + filepath.ToSlash(path), nil
}

// fullPath resolves the absolute path and rejects traversal outside the root.
func (ls *LocalStorage) fullPath(relativePath string) (string, error) {
	cleanRelativePath := filepath.Clean(filepath.FromSlash(relativePath))

	fullPath := filepath.Join(ls.basePath, cleanRelativePath)
	absFullPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", relativePath, err)
	}
	if !strings.HasPrefix(absFullPath, ls.basePath+string(os.PathSeparator)) && absFullPath != ls.basePath {
		return "", fmt.Errorf("invalid path: access denied for '%s'", relativePath)
	}
	return absFullPath, nil
}
