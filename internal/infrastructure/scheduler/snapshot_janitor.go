package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verticore/backend/internal/domain/vertical"
)

// janitorTickerInterval is the interval at which the janitor checks
// whether the daily sweep is due
const janitorTickerInterval = 1 * time.Minute

// SnapshotJanitorConfig holds the daily sweep schedule
type SnapshotJanitorConfig struct {
	Enabled bool
	// Hour (0-23) and Minute (0-59) of the daily sweep
	Hour   int
	Minute int
	// SweepTimeout bounds a single sweep
	SweepTimeout time.Duration
}

// DefaultSnapshotJanitorConfig returns a schedule that sweeps at 3:00 AM
func DefaultSnapshotJanitorConfig() SnapshotJanitorConfig {
	return SnapshotJanitorConfig{
		Enabled:      true,
		Hour:         3,
		Minute:       0,
		SweepTimeout: 5 * time.Minute,
	}
}

// SnapshotJanitor deletes expired rollback snapshots once a day.
// Expired snapshots are already invisible to reads through the expiry
// filter; the sweep only reclaims storage, so a missed run is
// harmless.
type SnapshotJanitor struct {
	config    SnapshotJanitorConfig
	snapshots vertical.SnapshotRepository
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRunAt *time.Time
	nextRunAt *time.Time
}

// NewSnapshotJanitor creates a new snapshot janitor
func NewSnapshotJanitor(config SnapshotJanitorConfig, snapshots vertical.SnapshotRepository, logger *zap.Logger) *SnapshotJanitor {
	if config.SweepTimeout == 0 {
		config.SweepTimeout = 5 * time.Minute
	}
	return &SnapshotJanitor{
		config:    config,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Start starts the janitor loop
func (j *SnapshotJanitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.isRunning || !j.config.Enabled {
		j.mu.Unlock()
		return nil
	}
	j.isRunning = true
	j.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.calculateNextRunTime()

	j.wg.Add(1)
	go j.loop(ctx)

	j.logger.Info("snapshot janitor started",
		zap.Int("hour", j.config.Hour),
		zap.Int("minute", j.config.Minute),
		zap.Timep("next_run_at", j.nextRunAt),
	)
	return nil
}

// Stop stops the janitor and waits for a running sweep
func (j *SnapshotJanitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.isRunning {
		j.mu.Unlock()
		return nil
	}
	j.isRunning = false
	j.mu.Unlock()

	if j.cancel != nil {
		j.cancel()
	}

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		j.logger.Info("snapshot janitor stopped")
		return nil
	case <-ctx.Done():
		j.logger.Warn("snapshot janitor stop timed out")
		return ctx.Err()
	}
}

func (j *SnapshotJanitor) loop(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(janitorTickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if j.shouldRun(now) {
				j.Sweep(ctx)
				j.calculateNextRunTime()
			}
		}
	}
}

func (j *SnapshotJanitor) shouldRun(now time.Time) bool {
	return now.Hour() == j.config.Hour && now.Minute() == j.config.Minute
}

func (j *SnapshotJanitor) calculateNextRunTime() {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), j.config.Hour, j.config.Minute, 0, 0, now.Location())
	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}

	j.mu.Lock()
	j.nextRunAt = &next
	j.mu.Unlock()
}

// Sweep deletes all snapshots past their expiry
func (j *SnapshotJanitor) Sweep(ctx context.Context) {
	now := time.Now()
	j.mu.Lock()
	j.lastRunAt = &now
	j.mu.Unlock()

	sweepCtx, cancel := context.WithTimeout(ctx, j.config.SweepTimeout)
	defer cancel()

	removed, err := j.snapshots.DeleteExpired(sweepCtx, now)
	if err != nil {
		j.logger.Error("snapshot sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		j.logger.Info("expired snapshots removed", zap.Int64("count", removed))
	}
}

// NextRunAt returns the scheduled time of the next sweep
func (j *SnapshotJanitor) NextRunAt() *time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.nextRunAt
}
