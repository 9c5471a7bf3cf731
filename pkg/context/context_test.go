package context_test

import (
	"context"
	"strings"
	"testing"
	"time"

	dcontext "github.com/depot-build/depot/pkg/context"
)

func TestRunID(t *testing.T) {
	ctx := context.Background()
	if dcontext.HasRunID(ctx) {
		t.Fatal("empty context should not carry a run ID")
	}

	ctx = dcontext.WithRunID(ctx, "")
	if !strings.HasPrefix(dcontext.GetRunID(ctx), "run_") {
		t.Errorf("expected generated run ID, got %q", dcontext.GetRunID(ctx))
	}

	ctx = dcontext.WithRunID(context.Background(), "run_fixed")
	if got := dcontext.GetRunID(ctx); got != "run_fixed" {
		t.Errorf("expected run_fixed, got %q", got)
	}
}

func TestGenerateRunID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := dcontext.GenerateRunID()
		if seen[id] {
			t.Fatalf("duplicate run ID %s", id)
		}
		seen[id] = true
	}
}

func TestEnrichContext(t *testing.T) {
	ctx := dcontext.EnrichContext(context.Background(), "build")

	if !dcontext.HasRunID(ctx) {
		t.Error("expected run ID")
	}
	if dcontext.GetCommand(ctx) != "build" {
		t.Errorf("expected command build, got %q", dcontext.GetCommand(ctx))
	}
	if dcontext.GetStartTime(ctx).IsZero() {
		t.Error("expected start time")
	}

	// An existing run ID is kept.
	parent := dcontext.WithRunID(context.Background(), "run_parent")
	if got := dcontext.GetRunID(dcontext.EnrichContext(parent, "test")); got != "run_parent" {
		t.Errorf("expected run_parent, got %q", got)
	}
}

func TestDuration(t *testing.T) {
	if d := dcontext.GetDuration(context.Background()); d != 0 {
		t.Errorf("expected zero duration without start, got %s", d)
	}

	ctx := dcontext.WithStartTime(context.Background(), time.Now().Add(-time.Second))
	if d := dcontext.GetDuration(ctx); d < time.Second {
		t.Errorf("expected at least 1s, got %s", d)
	}
}

func TestTracingFields(t *testing.T) {
	ctx := dcontext.WithRunID(context.Background(), "run_1")
	ctx = dcontext.WithCommand(ctx, "test")
	ctx = dcontext.WithPackage(ctx, "core")

	fields := dcontext.TracingFields(ctx)
	if fields["run_id"] != "run_1" || fields["command"] != "test" || fields["package"] != "core" {
		t.Errorf("unexpected fields: %v", fields)
	}
	if _, ok := fields["duration_ms"]; ok {
		t.Error("duration should be omitted without a start time")
	}
}
