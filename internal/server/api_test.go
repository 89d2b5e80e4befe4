package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"cdrecon/internal/config"
	"cdrecon/internal/jobs"
	"cdrecon/internal/logging"
	"cdrecon/internal/server"
	"cdrecon/internal/testsupport"
)

func startDaemon(t *testing.T, cfg *config.Config) (*server.Daemon, string) {
	t.Helper()

	store := testsupport.MustOpenStore(t, cfg)
	daemon, err := server.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	if err := daemon.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(daemon.Stop)

	addr := daemon.Addr()
	if addr == "" {
		t.Fatal("daemon has no API address")
	}
	return daemon, "http://" + addr
}

func carrierUpload(t *testing.T, field, filename string, rows [][]string, writer *multipart.Writer) {
	t.Helper()
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(part, strings.Join(row, ",")); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
}

func submitJob(t *testing.T, baseURL string) string {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	carrierUpload(t, "carrier_a", "airtel.csv", [][]string{
		{"a_number", "b_number", "call_time", "duration"},
		{"0712345678", "0798765432", "08:00:00", "60"},
	}, writer)
	carrierUpload(t, "carrier_b", "mtn.csv", [][]string{
		{"originating_number", "terminating_number", "time_field", "duration"},
		{"0712345678", "0798765432", "08:00:02", "61"},
	}, writer)
	if err := writer.WriteField("date", "2024-05-01"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	resp, err := http.Post(baseURL+"/api/jobs", writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("submit job: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(resp.Body)
		t.Fatalf("submit status %d: %s", resp.StatusCode, payload)
	}

	var submitted struct {
		Job struct {
			Token  string `json:"token"`
			Status string `json:"status"`
		} `json:"job"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode submission: %v", err)
	}
	if submitted.Job.Token == "" || submitted.Job.Status != "pending" {
		t.Fatalf("unexpected submission payload: %+v", submitted.Job)
	}
	return submitted.Job.Token
}

func waitForCompleted(t *testing.T, baseURL, token string) {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/api/jobs/" + token)
		if err != nil {
			t.Fatalf("poll job: %v", err)
		}
		var payload struct {
			Job struct {
				Status       string `json:"status"`
				ErrorMessage string `json:"error_message"`
			} `json:"job"`
		}
		err = json.NewDecoder(resp.Body).Decode(&payload)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode job: %v", err)
		}
		switch payload.Job.Status {
		case "completed":
			return
		case "failed":
			t.Fatalf("job failed: %s", payload.Job.ErrorMessage)
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("job did not complete in time")
}

func TestStatusEndpoint(t *testing.T) {
	_, baseURL := startDaemon(t, testsupport.NewConfig(t))

	resp, err := http.Get(baseURL + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code %d", resp.StatusCode)
	}

	var status struct {
		Running      bool   `json:"running"`
		JobDBPath    string `json:"job_db_path"`
		LockFilePath string `json:"lock_file_path"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.JobDBPath == "" || status.LockFilePath == "" {
		t.Fatalf("unexpected status payload: %+v", status)
	}
}

func TestJobLifecycleOverAPI(t *testing.T) {
	_, baseURL := startDaemon(t, testsupport.NewConfig(t, testsupport.WithFormats("csv")))

	token := submitJob(t, baseURL)
	waitForCompleted(t, baseURL, token)

	resp, err := http.Get(baseURL + "/api/jobs/" + token + "/files/matched")
	if err != nil {
		t.Fatalf("download matched: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status %d", resp.StatusCode)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read matched: %v", err)
	}
	if !strings.Contains(string(payload), "airtel_line") {
		t.Fatalf("matched report should contain the carrier header, got: %s", payload)
	}

	// xlsx is not enabled for this config.
	resp, err = http.Get(baseURL + "/api/jobs/" + token + "/files/workbook")
	if err != nil {
		t.Fatalf("download workbook: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("disabled artifact should 404, got %d", resp.StatusCode)
	}

	resp, err = http.Get(baseURL + "/api/jobs")
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	defer resp.Body.Close()
	var list struct {
		Jobs []struct {
			Status  string          `json:"status"`
			Summary json.RawMessage `json:"summary"`
		} `json:"jobs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].Status != "completed" || len(list.Jobs[0].Summary) == 0 {
		t.Fatalf("unexpected job list: %+v", list.Jobs)
	}
}

func TestFilesUnavailableBeforeCompletion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "/tmp/a.csv", "/tmp/b.csv", jobSettings())

	// Mark it failed so the pipeline leaves it alone.
	if err := store.MarkFailed(context.Background(), job.ID, "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	daemon, err := server.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	if err := daemon.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(daemon.Stop)

	resp, err := http.Get("http://" + daemon.Addr() + "/api/jobs/" + job.Token + "/files/matched")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for unfinished job, got %d", resp.StatusCode)
	}
}

func TestUnknownJobReturnsNotFound(t *testing.T) {
	_, baseURL := startDaemon(t, testsupport.NewConfig(t))

	resp, err := http.Get(baseURL + "/api/jobs/no-such-token")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestBearerTokenAuth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Server.APIToken = "sekrit"
	_, baseURL := startDaemon(t, cfg)

	resp, err := http.Get(baseURL + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token should 401, got %d", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/status", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer sekrit")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authorized request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid token should 200, got %d", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, baseURL := startDaemon(t, testsupport.NewConfig(t))

	req, err := http.NewRequest(http.MethodDelete, baseURL+"/api/jobs", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete jobs: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func jobSettings() jobs.Settings {
	return jobs.Settings{
		TimeTolerance:     5,
		DurationTolerance: 5,
		GroupCeiling:      50,
	}
}
