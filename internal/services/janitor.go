package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
)

const janitorSweepLimit = 50

// Janitor evicts staged batches that outlived their TTL or exceed the
// retention cap. Batches left queued longer than queuedTimeout are treated
// as abandoned. It only ever removes the directory of the batch it evicts.
type Janitor interface {
	Start(ctx context.Context)
	Stop()
	Sweep(now time.Time) int
}

type janitor struct {
	batchRepo     repositories.BatchRepository
	storage       StorageService
	interval      time.Duration
	maxBatches    int
	queuedTimeout time.Duration
	log           *zap.Logger
	wg            sync.WaitGroup
	stopChan      chan struct{}
	stopOnce      sync.Once
}

func NewJanitor(
	batchRepo repositories.BatchRepository,
	storage StorageService,
	interval time.Duration,
	maxBatches int,
	queuedTimeout time.Duration,
	log *zap.Logger,
) Janitor {
	return &janitor{
		batchRepo:     batchRepo,
		storage:       storage,
		interval:      interval,
		maxBatches:    maxBatches,
		queuedTimeout: queuedTimeout,
		log:           log,
		stopChan:      make(chan struct{}),
	}
}

// Start implements Janitor.
func (j *janitor) Start(ctx context.Context) {
	j.log.Info("🧹 Starting batch janitor",
		zap.Duration("interval", j.interval),
		zap.Int("max_batches", j.maxBatches),
		zap.Duration("queued_timeout", j.queuedTimeout),
	)

	j.wg.Add(1)
	go j.run(ctx)
}

// Stop implements Janitor.
func (j *janitor) Stop() {
	j.stopOnce.Do(func() {
		j.log.Info("🛑 Stopping batch janitor...")
		close(j.stopChan)
		j.wg.Wait()
		j.log.Info("✅ Batch janitor stopped")
	})
}

func (j *janitor) run(ctx context.Context) {
	defer j.wg.Done()
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if evicted := j.Sweep(now); evicted > 0 {
				j.log.Info("🧹 Evicted batches", zap.Int("count", evicted))
			}
		}
	}
}

// Sweep implements Janitor. It returns how many batches were evicted.
func (j *janitor) Sweep(now time.Time) int {
	evicted := 0
	seen := make(map[string]bool)

	expired, err := j.batchRepo.FindExpired(now, janitorSweepLimit)
	if err != nil {
		j.log.Warn("⚠️  Failed to fetch expired batches", zap.Error(err))
	}
	for _, batch := range expired {
		seen[batch.ID.String()] = true
		if j.evict(batch) {
			evicted++
		}
	}

	if j.queuedTimeout > 0 {
		stale, err := j.batchRepo.FindStaleQueued(now.Add(-j.queuedTimeout), janitorSweepLimit)
		if err != nil {
			j.log.Warn("⚠️  Failed to fetch stale queued batches", zap.Error(err))
		}
		for _, batch := range stale {
			j.log.Warn("⚠️  Evicting abandoned batch", zap.String("request_id", batch.ID.String()))
			seen[batch.ID.String()] = true
			if j.evict(batch) {
				evicted++
			}
		}
	}

	if j.maxBatches > 0 {
		overflow, err := j.batchRepo.FindOverflow(j.maxBatches)
		if err != nil {
			j.log.Warn("⚠️  Failed to fetch overflow batches", zap.Error(err))
		}
		for _, batch := range overflow {
			if seen[batch.ID.String()] {
				continue
			}
			if j.evict(batch) {
				evicted++
			}
		}
	}

	return evicted
}

func (j *janitor) evict(batch models.Batch) bool {
	id := batch.ID.String()
	if err := j.storage.DeleteBatch(id); err != nil {
		j.log.Warn("⚠️  Failed to delete batch directory", zap.String("request_id", id), zap.Error(err))
		return false
	}
	if err := j.batchRepo.Delete(batch.ID); err != nil {
		j.log.Warn("⚠️  Failed to delete batch record", zap.String("request_id", id), zap.Error(err))
		return false
	}
	return true
}
