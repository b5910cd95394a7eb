// Package scheduler runs periodic maintenance jobs for the worker.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pdf-rag-platform/internal/logger"
)

// Scheduler manages interval jobs. Each job runs at most once at a time.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
	log       *slog.Logger
}

func New(log *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	s.SingletonModeAll()

	return &Scheduler{scheduler: s, ctx: ctx, cancel: cancel, log: logger.Or(log)}
}

func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.cancel()
}

// Every schedules job under tag. The job's context is cancelled on Stop and
// bounded by the interval.
func (s *Scheduler) Every(tag string, interval time.Duration, job func(context.Context) error) error {
	_, err := s.scheduler.Every(interval).Tag(tag).Do(func() {
		ctx, cancel := context.WithTimeout(s.ctx, interval)
		defer cancel()
		if err := job(ctx); err != nil {
			s.log.Error("scheduled job failed", "job", tag, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", tag, err)
	}
	return nil
}

func (s *Scheduler) Jobs() int {
	return len(s.scheduler.Jobs())
}

// StaleFailer fails documents stuck in a pipeline stage since before cutoff.
type StaleFailer interface {
	FailStale(ctx context.Context, cutoff time.Time) ([]primitive.ObjectID, error)
}

// Invalidator drops cached chunk sets.
type Invalidator interface {
	Invalidate(ctx context.Context, documentID string) error
}

// StaleSweep returns a job that fails documents a crashed worker left
// in flight for longer than staleAfter.
func StaleSweep(docs StaleFailer, cache Invalidator, staleAfter time.Duration, log *slog.Logger) func(context.Context) error {
	log = logger.Or(log)
	return func(ctx context.Context) error {
		failed, err := docs.FailStale(ctx, time.Now().Add(-staleAfter))
		for _, id := range failed {
			log.Warn("failed stale document", "document_id", id.Hex(), "stale_after", staleAfter.String())
			if cache != nil {
				if err := cache.Invalidate(ctx, id.Hex()); err != nil {
					log.Warn("chunk cache invalidation failed", "document_id", id.Hex(), "error", err)
				}
			}
		}
		return err
	}
}
