package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
)

func stageBatch(t *testing.T, repo repositories.BatchRepository, storage StorageService, status models.BatchStatus, created, expires time.Time) uuid.UUID {
	t.Helper()
	batch := models.Batch{
		ID:             uuid.New(),
		Status:         status,
		CreatedAt:      created,
		LastAccessedAt: created,
		ExpiresAt:      expires,
	}
	require.NoError(t, repo.Create(&batch))
	require.NoError(t, storage.CreateBatchDir(batch.ID.String()))
	return batch.ID
}

func batchExists(root string, id uuid.UUID) bool {
	_, err := os.Stat(filepath.Join(root, id.String()))
	return err == nil
}

func TestJanitorSweepEvictsExpired(t *testing.T) {
	root := t.TempDir()
	repo := repositories.NewMemoryBatchRepository()
	storage := NewStorageService(root)
	now := time.Now()

	expired := stageBatch(t, repo, storage, models.BatchCompleted, now.Add(-2*time.Hour), now.Add(-time.Hour))
	live := stageBatch(t, repo, storage, models.BatchCompleted, now.Add(-time.Minute), now.Add(time.Hour))
	inFlight := stageBatch(t, repo, storage, models.BatchQueued, now.Add(-2*time.Hour), now.Add(-time.Hour))

	janitor := NewJanitor(repo, storage, time.Minute, 0, 3*time.Hour, zap.NewNop())
	assert.Equal(t, 1, janitor.Sweep(now))

	assert.False(t, batchExists(root, expired))
	assert.True(t, batchExists(root, live))
	assert.True(t, batchExists(root, inFlight))

	_, err := repo.FindByID(expired)
	assert.ErrorIs(t, err, repositories.ErrBatchNotFound)
	_, err = repo.FindByID(inFlight)
	assert.NoError(t, err)
}

func TestJanitorSweepEnforcesMaxBatches(t *testing.T) {
	root := t.TempDir()
	repo := repositories.NewMemoryBatchRepository()
	storage := NewStorageService(root)
	now := time.Now()
	later := now.Add(time.Hour)

	oldest := stageBatch(t, repo, storage, models.BatchCompleted, now.Add(-3*time.Minute), later)
	middle := stageBatch(t, repo, storage, models.BatchFailed, now.Add(-2*time.Minute), later)
	newest := stageBatch(t, repo, storage, models.BatchCompleted, now.Add(-time.Minute), later)
	running := stageBatch(t, repo, storage, models.BatchQueued, now.Add(-4*time.Minute), later)

	janitor := NewJanitor(repo, storage, time.Minute, 2, 3*time.Hour, zap.NewNop())
	assert.Equal(t, 1, janitor.Sweep(now))

	assert.False(t, batchExists(root, oldest))
	assert.True(t, batchExists(root, middle))
	assert.True(t, batchExists(root, newest))
	assert.True(t, batchExists(root, running))
}

func TestJanitorSweepCountsExpiredOverflowOnce(t *testing.T) {
	root := t.TempDir()
	repo := repositories.NewMemoryBatchRepository()
	storage := NewStorageService(root)
	now := time.Now()

	stageBatch(t, repo, storage, models.BatchCompleted, now.Add(-2*time.Hour), now.Add(-time.Hour))
	stageBatch(t, repo, storage, models.BatchCompleted, now.Add(-time.Minute), now.Add(time.Hour))

	janitor := NewJanitor(repo, storage, time.Minute, 1, 3*time.Hour, zap.NewNop())
	assert.Equal(t, 1, janitor.Sweep(now))
}

func TestJanitorSweepNotBlockedByQueuedBatches(t *testing.T) {
	root := t.TempDir()
	repo := repositories.NewMemoryBatchRepository()
	storage := NewStorageService(root)
	now := time.Now()

	queued := make([]uuid.UUID, 0, janitorSweepLimit+5)
	for i := 0; i < janitorSweepLimit+5; i++ {
		queued = append(queued, stageBatch(t, repo, storage, models.BatchQueued,
			now.Add(-30*time.Minute), now.Add(-2*time.Hour+time.Duration(i)*time.Second)))
	}
	expired := stageBatch(t, repo, storage, models.BatchCompleted, now.Add(-2*time.Hour), now.Add(-time.Minute))

	janitor := NewJanitor(repo, storage, time.Minute, 0, 3*time.Hour, zap.NewNop())
	assert.Equal(t, 1, janitor.Sweep(now))
	assert.False(t, batchExists(root, expired))

	for _, id := range queued {
		assert.True(t, batchExists(root, id))
	}
	assert.Equal(t, 0, janitor.Sweep(now))
}

func TestJanitorSweepEvictsAbandonedQueuedBatches(t *testing.T) {
	root := t.TempDir()
	repo := repositories.NewMemoryBatchRepository()
	storage := NewStorageService(root)
	now := time.Now()

	abandoned := stageBatch(t, repo, storage, models.BatchQueued, now.Add(-4*time.Hour), now.Add(-3*time.Hour))
	running := stageBatch(t, repo, storage, models.BatchQueued, now.Add(-time.Minute), now.Add(time.Hour))

	janitor := NewJanitor(repo, storage, time.Minute, 0, 3*time.Hour, zap.NewNop())
	assert.Equal(t, 1, janitor.Sweep(now))

	assert.False(t, batchExists(root, abandoned))
	assert.True(t, batchExists(root, running))

	_, err := repo.FindByID(abandoned)
	assert.ErrorIs(t, err, repositories.ErrBatchNotFound)
}

func TestJanitorStartStop(t *testing.T) {
	root := t.TempDir()
	repo := repositories.NewMemoryBatchRepository()
	storage := NewStorageService(root)
	now := time.Now()

	expired := stageBatch(t, repo, storage, models.BatchCompleted, now.Add(-2*time.Hour), now.Add(-time.Hour))

	janitor := NewJanitor(repo, storage, 10*time.Millisecond, 0, 3*time.Hour, zap.NewNop())
	janitor.Start(context.Background())
	defer janitor.Stop()

	assert.Eventually(t, func() bool {
		return !batchExists(root, expired)
	}, 2*time.Second, 10*time.Millisecond)

	janitor.Stop()
}
