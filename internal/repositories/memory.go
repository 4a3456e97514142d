package repositories

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/models"
)

type memoryBatchRepository struct {
	mu      sync.RWMutex
	batches map[uuid.UUID]models.Batch
}

// NewMemoryBatchRepository returns a BatchRepository for STORE_DRIVER=memory.
func NewMemoryBatchRepository() BatchRepository {
	return &memoryBatchRepository{
		batches: make(map[uuid.UUID]models.Batch),
	}
}

// Create implements BatchRepository.
func (r *memoryBatchRepository) Create(batch *models.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now()
	}
	if batch.Status == "" {
		batch.Status = models.BatchQueued
	}
	r.batches[batch.ID] = *batch
	return nil
}

// FindByID implements BatchRepository.
func (r *memoryBatchRepository) FindByID(id uuid.UUID) (*models.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	batch, ok := r.batches[id]
	if !ok {
		return nil, ErrBatchNotFound
	}
	return &batch, nil
}

// UpdateStatus implements BatchRepository.
func (r *memoryBatchRepository) UpdateStatus(id uuid.UUID, status models.BatchStatus, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, ok := r.batches[id]
	if !ok {
		return ErrBatchNotFound
	}
	batch.Status = status
	if errorMsg != "" {
		batch.ErrorMessage = &errorMsg
	}
	r.batches[id] = batch
	return nil
}

// Touch implements BatchRepository.
func (r *memoryBatchRepository) Touch(id uuid.UUID, accessedAt, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, ok := r.batches[id]
	if !ok {
		return ErrBatchNotFound
	}
	batch.LastAccessedAt = accessedAt
	batch.ExpiresAt = expiresAt
	r.batches[id] = batch
	return nil
}

// FindExpired implements BatchRepository.
func (r *memoryBatchRepository) FindExpired(now time.Time, limit int) ([]models.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var expired []models.Batch
	for _, batch := range r.batches {
		if batch.Status != models.BatchQueued && batch.ExpiresAt.Before(now) {
			expired = append(expired, batch)
		}
	}

	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})

	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

// FindStaleQueued implements BatchRepository.
func (r *memoryBatchRepository) FindStaleQueued(createdBefore time.Time, limit int) ([]models.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []models.Batch
	for _, batch := range r.batches {
		if batch.Status == models.BatchQueued && batch.CreatedAt.Before(createdBefore) {
			stale = append(stale, batch)
		}
	}

	sort.Slice(stale, func(i, j int) bool {
		return stale[i].CreatedAt.Before(stale[j].CreatedAt)
	})

	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

// FindOverflow implements BatchRepository.
func (r *memoryBatchRepository) FindOverflow(keep int) ([]models.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var settled []models.Batch
	for _, batch := range r.batches {
		if batch.Status != models.BatchQueued {
			settled = append(settled, batch)
		}
	}

	// newest first
	sort.Slice(settled, func(i, j int) bool {
		return settled[i].CreatedAt.After(settled[j].CreatedAt)
	})

	if keep < 0 {
		keep = 0
	}
	if len(settled) <= keep {
		return nil, nil
	}
	return settled[keep:], nil
}

// Delete implements BatchRepository.
func (r *memoryBatchRepository) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.batches, id)
	return nil
}

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewMemoryUserRepository returns a UserRepository for STORE_DRIVER=memory.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		users: make(map[string]models.User),
	}
}

// Upsert implements UserRepository.
func (r *memoryUserRepository) Upsert(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	r.users[user.Username] = *user
	return nil
}

// FindByUsername implements UserRepository.
func (r *memoryUserRepository) FindByUsername(username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

// Count implements UserRepository.
func (r *memoryUserRepository) Count() (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.users)), nil
}
