package gallery

import (
	"sort"
	"strings"
	"sync"

	"github.com/facette/natsort"
	"go.uber.org/zap"

	"github.com/tagvault/backend/models"
	"github.com/tagvault/backend/repository"
)

// Subscription is a cancellable registration on the live image collection.
// Every change to the collection pushes the full recomputed ordered list on
// Snapshots; failures to recompute are reported on Errors.
type Subscription struct {
	snapshots chan []models.Image
	errs      chan error
	done      chan struct{}
	cancel    func()
	once      sync.Once
}

func (s *Subscription) Snapshots() <-chan []models.Image { return s.snapshots }
func (s *Subscription) Errors() <-chan error             { return s.errs }

// Done is closed once the subscription has been cancelled.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Cancel detaches the subscription; nothing is delivered afterwards.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Store keeps an in-memory view of the image collection ordered newest first
// and fans every change out to subscribers.
type Store struct {
	repo   repository.ImageRepositoryInterface
	logger *zap.Logger

	mu     sync.RWMutex
	images []models.Image
	subs   map[int]*Subscription
	nextID int
}

func NewStore(repo repository.ImageRepositoryInterface, logger *zap.Logger) *Store {
	return &Store{
		repo:   repo,
		logger: logger,
		subs:   make(map[int]*Subscription),
	}
}

// Load populates the initial snapshot; called once at startup.
func (s *Store) Load() error {
	images, err := s.repo.ListByCreatedAtDesc()
	if err != nil {
		return err
	}
	orderImages(images)
	s.mu.Lock()
	s.images = images
	s.mu.Unlock()
	return nil
}

// Images returns a copy of the current ordered snapshot.
func (s *Store) Images() []models.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Image, len(s.images))
	copy(out, s.images)
	return out
}

// Subscribe registers a listener. The current snapshot is delivered
// immediately, then the full list again on every subsequent change.
func (s *Store) Subscribe() *Subscription {
	s.mu.Lock()
	id := s.nextID
	s.nextID++

	sub := &Subscription{
		snapshots: make(chan []models.Image, 8),
		errs:      make(chan error, 1),
		done:      make(chan struct{}),
	}
	sub.cancel = func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		close(sub.done)
	}
	s.subs[id] = sub

	current := make([]models.Image, len(s.images))
	copy(current, s.images)
	s.mu.Unlock()

	sub.snapshots <- current
	return sub
}

// Refresh reloads the full list from the repository and pushes it to every
// subscriber. On failure the stale snapshot is kept and the error is
// delivered on each subscriber's error channel.
func (s *Store) Refresh() {
	images, err := s.repo.ListByCreatedAtDesc()
	if err != nil {
		s.logger.Error("failed to refresh gallery snapshot", zap.Error(err))
		s.mu.RLock()
		for _, sub := range s.subs {
			select {
			case sub.errs <- err:
			default:
			}
		}
		s.mu.RUnlock()
		return
	}
	orderImages(images)

	s.mu.Lock()
	s.images = images
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		snapshot := make([]models.Image, len(images))
		copy(snapshot, images)
		select {
		case sub.snapshots <- snapshot:
		default:
			// slow subscriber keeps its backlog; it will catch up on the next push
		}
	}
}

// orderImages sorts newest first, breaking timestamp ties by natural name
// order so lists render deterministically.
func orderImages(images []models.Image) {
	sort.SliceStable(images, func(i, j int) bool {
		if images[i].CreatedAt != images[j].CreatedAt {
			return images[i].CreatedAt > images[j].CreatedAt
		}
		return natsort.Compare(images[i].Name, images[j].Name)
	})
}

// Filter returns the records whose name or any tag contains the query,
// case-insensitively. An empty query passes everything through in the
// original order. The input list is never mutated.
func Filter(images []models.Image, query string) []models.Image {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		out := make([]models.Image, len(images))
		copy(out, images)
		return out
	}

	out := make([]models.Image, 0, len(images))
	for _, img := range images {
		if strings.Contains(strings.ToLower(img.Name), q) {
			out = append(out, img)
			continue
		}
		for _, tag := range img.Tags {
			if strings.Contains(strings.ToLower(tag), q) {
				out = append(out, img)
				break
			}
		}
	}
	return out
}
