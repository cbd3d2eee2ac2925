package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/smartkitchen/smartkitchen-backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type countingJob struct {
	name string
	err  error
	runs int
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) error {
	c.runs++
	return c.err
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	registry := NewRegistry(&countingJob{name: "ledger-audit", err: errors.New("boom")}, &countingJob{name: "low-stock-scan"})
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     &fakeLock{},
		Interval: 0,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx := context.Background()
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	// The failing audit job must not keep the scan from running.
	for _, job := range jobs {
		counting, ok := job.(*countingJob)
		if !ok {
			t.Fatalf("job type mismatch: %T", job)
		}
		if counting.runs != 1 {
			t.Fatalf("expected %s to run once, ran %d", counting.name, counting.runs)
		}
	}
}
