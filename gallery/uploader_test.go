package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tagvault/backend/apperrors"
	"github.com/tagvault/backend/config"
	"github.com/tagvault/backend/models"
	"github.com/tagvault/backend/repository"
	"github.com/tagvault/backend/utils"
)

type fakeTagger struct {
	tags  []string
	err   error
	calls int
}

func (f *fakeTagger) GenerateTags(ctx context.Context, dataURI string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tags, nil
}

type fakeStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	saveErr   error
	urlErr    error
	deleteErr error
	deleted   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) Save(ctx context.Context, path string, data io.Reader, contentType string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.objects[path] = b
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) Open(path string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[path]
	if !ok {
		return nil, fmt.Errorf("object not found at '%s'", path)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeStore) Delete(ctx context.Context, path string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	delete(f.objects, path)
	f.deleted = append(f.deleted, path)
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) PublicURL(path string) (string, error) {
	if f.urlErr != nil {
		return "", f.urlErr
	}
	return "http://assets.test/" + path, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type fakeRepo struct {
	mu        sync.Mutex
	records   map[string]models.Image
	listing   []models.Image
	createErr error
	deleteErr error
	listErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: map[string]models.Image{}}
}

func (f *fakeRepo) Create(image *models.Image) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	f.records[image.ID] = *image
	f.mu.Unlock()
	return nil
}

func (f *fakeRepo) GetByID(id string) (*models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, repository.ErrImageNotFound
	}
	return &rec, nil
}

func (f *fakeRepo) ListByCreatedAtDesc() ([]models.Image, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listing != nil {
		out := make([]models.Image, len(f.listing))
		copy(out, f.listing)
		return out, nil
	}
	out := make([]models.Image, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeRepo) Delete(id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return repository.ErrImageNotFound
	}
	delete(f.records, id)
	return nil
}

func (f *fakeRepo) SetThumbnailPath(id, thumbnailPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return repository.ErrImageNotFound
	}
	rec.ThumbnailPath = &thumbnailPath
	f.records[id] = rec
	return nil
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func newTestUploader(tagger TagGenerator, store *fakeStore, repo *fakeRepo) *Uploader {
	return NewUploader(tagger, store, repo, nil, nil, zap.NewNop())
}

func jpegDataURI() string {
	return utils.EncodeDataURI("image/jpeg", []byte("fake jpeg bytes"))
}

func TestUploadRejectsEmptyNameBeforeTagging(t *testing.T) {
	tagger := &fakeTagger{tags: []string{"a"}}
	store := newFakeStore()
	repo := newFakeRepo()
	u := newTestUploader(tagger, store, repo)

	for _, name := range []string{"", "   ", `\/:*?"<>|`} {
		_, err := u.Upload(context.Background(), UploadRequest{
			Name:    name,
			DataURI: jpegDataURI(),
			Source:  SourceURL,
		})
		require.Error(t, err, "name %q", name)
		assert.Equal(t, apperrors.KindInvalidName, apperrors.KindOf(err))
	}
	assert.Equal(t, 0, tagger.calls, "tag generator must not be invoked for an invalid name")
	assert.Equal(t, 0, store.count())
	assert.Equal(t, 0, repo.count())
}

func TestUploadRejectsBadPayloads(t *testing.T) {
	u := newTestUploader(&fakeTagger{}, newFakeStore(), newFakeRepo())

	_, err := u.Upload(context.Background(), UploadRequest{Name: "x", DataURI: "", Source: SourceURL})
	assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))

	_, err = u.Upload(context.Background(), UploadRequest{Name: "x", DataURI: "not-a-data-uri", Source: SourceURL})
	assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))

	gif := utils.EncodeDataURI("image/gif", []byte("gif"))
	_, err = u.Upload(context.Background(), UploadRequest{Name: "x", DataURI: gif, Source: SourceURL})
	assert.Equal(t, apperrors.KindUnsupportedType, apperrors.KindOf(err))

	huge := utils.EncodeDataURI("image/png", bytes.Repeat([]byte("a"), config.MaxImageBytes+1))
	_, err = u.Upload(context.Background(), UploadRequest{Name: "x", DataURI: huge, Source: SourceURL})
	assert.Equal(t, apperrors.KindPayloadTooLarge, apperrors.KindOf(err))
}

func TestUploadTaggingFailureHasNoSideEffects(t *testing.T) {
	tagger := &fakeTagger{err: apperrors.New(apperrors.KindTaggingFailed, "Failed to generate tags. Please try again.")}
	store := newFakeStore()
	repo := newFakeRepo()
	u := newTestUploader(tagger, store, repo)

	_, err := u.Upload(context.Background(), UploadRequest{
		Name: "sunset", DataURI: jpegDataURI(), Source: SourceURL,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTaggingFailed, apperrors.KindOf(err))
	assert.Equal(t, 0, store.count(), "no object may be written after a tagging failure")
	assert.Equal(t, 0, repo.count(), "no record may be written after a tagging failure")
}

func TestUploadStoreFailureWritesNoRecord(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("disk full")
	repo := newFakeRepo()
	u := newTestUploader(&fakeTagger{tags: []string{"a"}}, store, repo)

	_, err := u.Upload(context.Background(), UploadRequest{
		Name: "sunset", DataURI: jpegDataURI(), Source: SourceURL,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindUploadFailed, apperrors.KindOf(err))
	assert.Equal(t, 0, repo.count())
}

func TestUploadRecordFailureLeavesOrphanedObject(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	repo.createErr = errors.New("db locked")
	u := newTestUploader(&fakeTagger{tags: []string{"a"}}, store, repo)

	_, err := u.Upload(context.Background(), UploadRequest{
		Name: "sunset", DataURI: jpegDataURI(), Source: SourceURL,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindUploadFailed, apperrors.KindOf(err))
	assert.Equal(t, 1, store.count(), "object stays orphaned in the store")
	assert.Equal(t, 0, repo.count())
}

func TestUploadSuccessLocalMode(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	u := newTestUploader(&fakeTagger{tags: []string{"sky", "orange", "horizon"}}, store, repo)

	record, err := u.Upload(context.Background(), UploadRequest{
		Name:             "sunset",
		DataURI:          jpegDataURI(),
		OriginalFileName: "sunset.jpg",
		Source:           SourceLocal,
	})
	require.NoError(t, err)

	assert.Equal(t, "sunset.jpg", record.Name)
	assert.Len(t, record.Tags, 3)
	assert.True(t, strings.HasPrefix(record.StoragePath, "images/"))
	assert.True(t, strings.HasSuffix(record.StoragePath, ".jpg"))
	assert.Equal(t, "http://assets.test/"+record.StoragePath, record.URL)
	assert.NotEmpty(t, record.ID)
	assert.NotZero(t, record.CreatedAt)

	assert.Equal(t, 1, store.count())
	assert.Equal(t, 1, repo.count())
	stored, err := repo.GetByID(record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Name, stored.Name)
}

func TestUploadSuccessURLModeDerivesExtensionFromMime(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	u := newTestUploader(&fakeTagger{tags: []string{"beach"}}, store, repo)

	record, err := u.Upload(context.Background(), UploadRequest{
		Name:    "Beach Day",
		DataURI: utils.EncodeDataURI("image/jpeg", []byte("jpeg from the web")),
		Source:  SourceURL,
	})
	require.NoError(t, err)
	assert.Equal(t, "Beach Day.jpg", record.Name)

	record, err = u.Upload(context.Background(), UploadRequest{
		Name:    "diagram",
		DataURI: utils.EncodeDataURI("image/png", []byte("png from the web")),
		Source:  SourceURL,
	})
	require.NoError(t, err)
	assert.Equal(t, "diagram.png", record.Name)
	assert.True(t, strings.HasSuffix(record.StoragePath, ".png"))
}

func TestUploadSanitizesProposedName(t *testing.T) {
	u := newTestUploader(&fakeTagger{tags: nil}, newFakeStore(), newFakeRepo())

	record, err := u.Upload(context.Background(), UploadRequest{
		Name:    `  Beach: Day?  `,
		DataURI: jpegDataURI(),
		Source:  SourceURL,
	})
	require.NoError(t, err)
	assert.Equal(t, "Beach Day.jpg", record.Name)
	assert.Empty(t, record.Tags)
}

func TestUploadStorageKeysAreUnique(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	u := newTestUploader(&fakeTagger{tags: []string{"a"}}, store, repo)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		record, err := u.Upload(context.Background(), UploadRequest{
			Name: "dup", DataURI: jpegDataURI(), Source: SourceURL,
		})
		require.NoError(t, err)
		assert.False(t, seen[record.StoragePath], "storage key collision: %s", record.StoragePath)
		seen[record.StoragePath] = true
	}
}

func TestDeleteRemovesObjectThenRecord(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	u := newTestUploader(&fakeTagger{tags: []string{"a"}}, store, repo)

	record, err := u.Upload(context.Background(), UploadRequest{
		Name: "gone", DataURI: jpegDataURI(), Source: SourceURL,
	})
	require.NoError(t, err)

	require.NoError(t, u.Delete(context.Background(), record.ID))
	assert.Equal(t, 0, store.count())
	assert.Equal(t, 0, repo.count())
	assert.Contains(t, store.deleted, record.StoragePath)
}

func TestDeleteObjectFailureKeepsRecord(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	u := newTestUploader(&fakeTagger{tags: []string{"a"}}, store, repo)

	record, err := u.Upload(context.Background(), UploadRequest{
		Name: "sticky", DataURI: jpegDataURI(), Source: SourceURL,
	})
	require.NoError(t, err)

	store.deleteErr = errors.New("storage offline")
	err = u.Delete(context.Background(), record.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindDeleteFailed, apperrors.KindOf(err))
	assert.Equal(t, 1, repo.count(), "record must survive a failed object delete")
}

func TestDeleteRecordFailureLeavesDanglingRecord(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	u := newTestUploader(&fakeTagger{tags: []string{"a"}}, store, repo)

	record, err := u.Upload(context.Background(), UploadRequest{
		Name: "dangling", DataURI: jpegDataURI(), Source: SourceURL,
	})
	require.NoError(t, err)

	repo.deleteErr = errors.New("db locked")
	err = u.Delete(context.Background(), record.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindDeleteFailed, apperrors.KindOf(err))
	assert.Equal(t, 0, store.count(), "object removal happened before the record delete failed")
	assert.Equal(t, 1, repo.count())
}

func TestDeleteUnknownRecord(t *testing.T) {
	u := newTestUploader(&fakeTagger{}, newFakeStore(), newFakeRepo())
	err := u.Delete(context.Background(), "missing-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrImageNotFound))
	assert.Equal(t, apperrors.KindDeleteFailed, apperrors.KindOf(err))
}
