package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cdrecon/internal/engine"
	"cdrecon/internal/jobs"
	"cdrecon/internal/logging"
	"cdrecon/internal/recon"
	"cdrecon/internal/testsupport"
)

func jobsSettings() jobs.Settings {
	return jobs.Settings{
		TimeTolerance:     5,
		DurationTolerance: 5,
		GroupCeiling:      50,
		ReconDate:         "2024-05-01",
	}
}

func waitForTerminal(t *testing.T, store *jobs.Store, id int64, timeout time.Duration) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("job %d did not reach a terminal status within %v", id, timeout)
	return nil
}

func carrierACSV() [][]string {
	return [][]string{
		{"a_number", "b_number", "call_time", "duration"},
		{"0712345678", "0798765432", "08:00:00", "60"},
		{"0712345678", "0798765432", "09:00:00", "120"},
		{"0711111111", "0722222222", "10:00:00", "30"},
	}
}

func carrierBCSV() [][]string {
	return [][]string{
		{"originating_number", "terminating_number", "time_field", "duration"},
		{"0712345678", "0798765432", "08:00:02", "61"},
		{"0798765432", "0712345678", "09:00:01", "119"},
		{"0733333333", "0744444444", "11:00:00", "45"},
	}
}

func TestExecuteEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFormats("csv"))
	dir := t.TempDir()
	pathA := testsupport.WriteCSV(t, dir, "airtel.csv", carrierACSV())
	pathB := testsupport.WriteCSV(t, dir, "mtn.csv", carrierBCSV())

	outcome, err := engine.Execute(context.Background(), cfg, logging.NewNop(), engine.Params{
		CarrierAPath: pathA,
		CarrierBPath: pathB,
		OutputDir:    filepath.Join(dir, "reports"),
		Day:          time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Matching:     recon.Config{MaxTimeDelta: 5, MaxDurationDelta: 5, GroupCeiling: 50},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if outcome.Summary.Matched != 2 {
		t.Fatalf("expected 2 matches, got %d", outcome.Summary.Matched)
	}
	if outcome.Summary.UnmatchedA != 1 || outcome.Summary.UnmatchedB != 1 {
		t.Fatalf("unmatched counts: %d/%d", outcome.Summary.UnmatchedA, outcome.Summary.UnmatchedB)
	}
	if outcome.Summary.CarrierA != "airtel" || outcome.Summary.CarrierB != "mtn" {
		t.Fatalf("carrier labels: %+v", outcome.Summary)
	}

	for _, path := range []string{outcome.Files.Matched, outcome.Files.AOnly, outcome.Files.BOnly, outcome.Files.Summary} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("report file missing: %v", err)
		}
	}

	payload, err := outcome.SummaryJSON()
	if err != nil {
		t.Fatalf("SummaryJSON: %v", err)
	}
	if payload == "" {
		t.Fatal("summary JSON should not be empty")
	}
}

func TestExecuteRejectsMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := engine.Execute(context.Background(), cfg, nil, engine.Params{
		CarrierAPath: filepath.Join(t.TempDir(), "missing.csv"),
		CarrierBPath: filepath.Join(t.TempDir(), "missing.csv"),
		OutputDir:    t.TempDir(),
		Matching:     recon.Config{GroupCeiling: 50},
	})
	if err == nil {
		t.Fatal("expected error for missing input file")
	}
}

func TestParseDay(t *testing.T) {
	day, err := engine.ParseDay("2024-05-01")
	if err != nil {
		t.Fatalf("ParseDay: %v", err)
	}
	if !day.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("parsed day: %v", day)
	}

	day, err = engine.ParseDay("")
	if err != nil || !day.IsZero() {
		t.Fatalf("empty input should yield the zero time: %v %v", day, err)
	}

	if _, err := engine.ParseDay("05/01/2024"); err == nil {
		t.Fatal("expected error for non-ISO date")
	}
}

func TestPipelineProcessesJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFormats("csv"))
	store := testsupport.MustOpenStore(t, cfg)

	dir := t.TempDir()
	pathA := testsupport.WriteCSV(t, dir, "airtel.csv", carrierACSV())
	pathB := testsupport.WriteCSV(t, dir, "mtn.csv", carrierBCSV())

	job := testsupport.NewJob(t, store, pathA, pathB, jobsSettings())

	pipeline := engine.NewPipeline(cfg, store, logging.NewNop())
	if err := pipeline.Start(context.Background()); err != nil {
		t.Fatalf("pipeline start: %v", err)
	}
	defer pipeline.Stop()

	final := waitForTerminal(t, store, job.ID, 30*time.Second)
	if final.Status != jobs.StatusCompleted {
		t.Fatalf("job finished as %s: %s", final.Status, final.ErrorMessage)
	}
	if final.SummaryJSON == "" || final.ReportDir == "" {
		t.Fatalf("completed job missing outputs: %+v", final)
	}
	if _, err := os.Stat(filepath.Join(final.ReportDir, "matched.csv")); err != nil {
		t.Fatalf("matched report missing: %v", err)
	}
}

func TestPipelineMarksBadInputFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job := testsupport.NewJob(t, store,
		filepath.Join(t.TempDir(), "missing_a.csv"),
		filepath.Join(t.TempDir(), "missing_b.csv"),
		jobsSettings())

	pipeline := engine.NewPipeline(cfg, store, logging.NewNop())
	if err := pipeline.Start(context.Background()); err != nil {
		t.Fatalf("pipeline start: %v", err)
	}
	defer pipeline.Stop()

	final := waitForTerminal(t, store, job.ID, 30*time.Second)
	if final.Status != jobs.StatusFailed {
		t.Fatalf("job finished as %s", final.Status)
	}
	if final.ErrorMessage == "" {
		t.Fatal("failed job should record an error message")
	}
}
