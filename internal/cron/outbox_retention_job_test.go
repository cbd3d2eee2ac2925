package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/smartkitchen/smartkitchen-backend/pkg/logger"
)

type pruneRecorder struct {
	cutoff      time.Time
	minAttempts int
	calls       int
	err         error
}

func (p *pruneRecorder) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	p.calls++
	p.cutoff = cutoff
	p.minAttempts = minAttemptCount
	if p.err != nil {
		return 0, p.err
	}
	return 3, nil
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newRetentionJob(t *testing.T, repo *pruneRecorder) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:         passthroughTxRunner{},
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job, ok := jobIface.(*outboxRetentionJob)
	if !ok {
		t.Fatalf("expected outboxRetentionJob, got %T", jobIface)
	}
	return job
}

func TestOutboxRetentionJobPrunesBehindCutoff(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	repo := &pruneRecorder{}
	job := newRetentionJob(t, repo)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantCutoff := now.Add(-outboxRetentionDays * 24 * time.Hour)
	if !repo.cutoff.Equal(wantCutoff) {
		t.Fatalf("expected cutoff %s, got %s", wantCutoff, repo.cutoff)
	}
	if repo.minAttempts != outboxMinAttempts {
		t.Fatalf("expected min attempts %d, got %d", outboxMinAttempts, repo.minAttempts)
	}
	if repo.calls != 1 {
		t.Fatalf("expected one prune, got %d", repo.calls)
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	repo := &pruneRecorder{err: errors.New("boom")}
	job := newRetentionJob(t, repo)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
