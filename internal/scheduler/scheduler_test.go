package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRunsJobs(t *testing.T) {
	s := New()
	var runs atomic.Int32
	if err := s.Every(time.Second, "tick", func(context.Context) {
		runs.Add(1)
	}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	if got := runs.Load(); got < 2 {
		t.Errorf("job ran %d times in 2.5s at 1s interval, want >= 2", got)
	}
}

func TestSchedulerContainsPanics(t *testing.T) {
	s := New()
	var after atomic.Bool
	if err := s.Every(time.Second, "boom", func(context.Context) {
		defer after.Store(true)
		panic("cycle exploded")
	}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	s.Run(ctx) // must not crash the test binary

	if !after.Load() {
		t.Error("panicking job never ran")
	}
}

func TestSchedulerRejectsBadInterval(t *testing.T) {
	s := New()
	if err := s.Every(0, "never", func(context.Context) {}); err == nil {
		t.Error("zero interval accepted")
	}
}
