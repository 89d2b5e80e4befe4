package jobs_test

import (
	"context"
	"errors"
	"testing"

	"cdrecon/internal/jobs"
	"cdrecon/internal/testsupport"
)

func testSettings() jobs.Settings {
	return jobs.Settings{
		TimeTolerance:     5,
		DurationTolerance: 5,
		GroupCeiling:      50,
		ReconDate:         "2024-05-01",
	}
}

func TestNewJobAndLookup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "/tmp/a.csv", "/tmp/b.csv", testSettings())
	if job.Status != jobs.StatusPending {
		t.Fatalf("new job status: %s", job.Status)
	}
	if job.Token == "" {
		t.Fatal("new job should carry a token")
	}
	if job.ReconDate != "2024-05-01" {
		t.Fatalf("recon date not persisted: %q", job.ReconDate)
	}

	byID, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	byToken, err := store.GetByToken(ctx, job.Token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if byID.ID != byToken.ID {
		t.Fatal("lookups should return the same job")
	}

	if _, err := store.GetByID(ctx, 9999); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewJobRequiresBothPaths(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.NewJob(context.Background(), "", "/tmp/b.csv", testSettings()); err == nil {
		t.Fatal("expected error for missing carrier A path")
	}
}

func TestClaimNextPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if job, err := store.ClaimNextPending(ctx); err != nil || job != nil {
		t.Fatalf("empty queue claim: job=%v err=%v", job, err)
	}

	first := testsupport.NewJob(t, store, "/tmp/a.csv", "/tmp/b.csv", testSettings())
	testsupport.NewJob(t, store, "/tmp/c.csv", "/tmp/d.csv", testSettings())

	claimed, err := store.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("oldest pending job should be claimed first: %+v", claimed)
	}
	if claimed.Status != jobs.StatusNormalizing {
		t.Fatalf("claimed job status: %s", claimed.Status)
	}
}

func TestTransitionGuardsCurrentStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "/tmp/a.csv", "/tmp/b.csv", testSettings())

	if err := store.Transition(ctx, job.ID, jobs.StatusMatching, jobs.StatusReporting); err == nil {
		t.Fatal("transition from wrong status should fail")
	}
	if err := store.Transition(ctx, job.ID, jobs.StatusPending, jobs.StatusNormalizing); err != nil {
		t.Fatalf("valid transition: %v", err)
	}
	if err := store.Transition(ctx, job.ID, jobs.StatusNormalizing, "bogus"); err == nil {
		t.Fatal("unknown target status should fail")
	}
}

func TestMarkCompletedAndFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "/tmp/a.csv", "/tmp/b.csv", testSettings())
	if err := store.MarkCompleted(ctx, job.ID, `{"matched":1}`, "/tmp/reports"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	completed, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if completed.Status != jobs.StatusCompleted || completed.SummaryJSON == "" || completed.ReportDir == "" {
		t.Fatalf("completed job: %+v", completed)
	}
	if !completed.Status.Terminal() {
		t.Fatal("completed should be terminal")
	}

	other := testsupport.NewJob(t, store, "/tmp/c.csv", "/tmp/d.csv", testSettings())
	if err := store.MarkFailed(ctx, other.ID, "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	failed, err := store.GetByID(ctx, other.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if failed.Status != jobs.StatusFailed || failed.ErrorMessage != "boom" {
		t.Fatalf("failed job: %+v", failed)
	}

	if err := store.MarkFailed(ctx, 9999, "nope"); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.NewJob(t, store, "/tmp/a.csv", "/tmp/b.csv", testSettings())
	b := testsupport.NewJob(t, store, "/tmp/c.csv", "/tmp/d.csv", testSettings())
	if err := store.MarkFailed(ctx, a.ID, "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].ID != b.ID {
		t.Fatalf("expected newest-first listing, got %+v", all)
	}

	failed, err := store.List(ctx, jobs.StatusFailed)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != a.ID {
		t.Fatalf("status filter: %+v", failed)
	}
}

func TestResetStuck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewJob(t, store, "/tmp/a.csv", "/tmp/b.csv", testSettings())
	if _, err := store.ClaimNextPending(ctx); err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}

	reset, err := store.ResetStuck(ctx)
	if err != nil {
		t.Fatalf("ResetStuck: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 job reset, got %d", reset)
	}

	list, err := store.List(ctx, jobs.StatusPending)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("reset job should be pending again")
	}
}

func TestClearAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.NewJob(t, store, "/tmp/a.csv", "/tmp/b.csv", testSettings())
	testsupport.NewJob(t, store, "/tmp/c.csv", "/tmp/d.csv", testSettings())
	if err := store.MarkCompleted(ctx, a.ID, "{}", "/tmp/reports"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[string(jobs.StatusPending)] != 1 || stats[string(jobs.StatusCompleted)] != 1 {
		t.Fatalf("stats: %v", stats)
	}

	removed, err := store.Clear(ctx, true)
	if err != nil {
		t.Fatalf("Clear terminal: %v", err)
	}
	if removed != 1 {
		t.Fatalf("terminal-only clear should remove 1 job, removed %d", removed)
	}

	removed, err = store.Clear(ctx, false)
	if err != nil {
		t.Fatalf("Clear all: %v", err)
	}
	if removed != 1 {
		t.Fatalf("full clear should remove the remaining job, removed %d", removed)
	}
}
