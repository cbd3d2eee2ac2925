package cron

import (
	"context"
	"testing"
)

type noopJob struct {
	name string
}

func (n *noopJob) Name() string              { return n.name }
func (n *noopJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	audit := &noopJob{name: "ledger-audit"}
	scan := &noopJob{name: "low-stock-scan"}
	registry := NewRegistry(audit, nil, scan)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != audit || jobs[1] != scan {
		t.Fatalf("jobs returned out of order")
	}

	// Mutating the returned slice must not touch the registry.
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}
