package services

import (
	"context"
	"time"

	"cs-instructor-backend/internal/logger"
	"cs-instructor-backend/internal/memory"

	"github.com/go-co-op/gocron"
)

// CompactionScheduler periodically reconciles the vector index with the
// metadata map, removing entries left behind by deletions.
type CompactionScheduler struct {
	scheduler *gocron.Scheduler
	semantic  *memory.SemanticMemory
	interval  time.Duration
}

func NewCompactionScheduler(semantic *memory.SemanticMemory, interval time.Duration) *CompactionScheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &CompactionScheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		semantic:  semantic,
		interval:  interval,
	}
}

// Start schedules the compaction job and runs the scheduler in the
// background.
func (c *CompactionScheduler) Start() error {
	_, err := c.scheduler.Every(c.interval).Tag("index-compaction").Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := c.semantic.Compact(ctx); err != nil {
			logger.Error("index compaction failed", "error", err.Error())
		}
	})
	if err != nil {
		return err
	}

	c.scheduler.StartAsync()
	logger.Info("compaction scheduler started", "interval", c.interval.String())
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (c *CompactionScheduler) Stop() {
	c.scheduler.Stop()
}
