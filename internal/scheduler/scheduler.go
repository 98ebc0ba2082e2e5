// Package scheduler drives the periodic collection loop. Jobs are wrapped
// with panic containment so one bad cycle never takes the process down.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a periodically-run task. It receives a context that is canceled
// when the scheduler shuts down.
type Job func(ctx context.Context)

// Scheduler runs jobs at fixed intervals.
type Scheduler struct {
	cron *cron.Cron
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Every registers a named job to run at the given interval. The first run
// happens one interval after Run is called, not immediately.
func (s *Scheduler) Every(interval time.Duration, name string, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("interval for %q must be positive, got %s", name, interval)
	}
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[scheduler] job %s panicked: %v", name, r)
			}
		}()
		job(context.Background())
	})
	if err != nil {
		return fmt.Errorf("scheduling %q: %w", name, err)
	}
	return nil
}

// Run starts the scheduler and blocks until ctx is canceled, then waits for
// any in-flight job to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()

	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(30 * time.Second):
		log.Println("[scheduler] shutdown timed out waiting for running jobs")
	}
}
