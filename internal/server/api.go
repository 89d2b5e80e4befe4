package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"cdrecon/internal/config"
	"cdrecon/internal/jobs"
	"cdrecon/internal/logging"
	"cdrecon/internal/report"
)

// maxUploadBytes bounds a single submission's multipart body.
const maxUploadBytes = 256 << 20

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon
	cfg    *config.Config

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Server.Bind)
	if bind == "" {
		return nil, errors.New("server bind address is required")
	}

	srv := &apiServer{
		bind:   bind,
		token:  cfg.Server.APIToken,
		logger: logger,
		daemon: d,
		cfg:    cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/jobs", srv.handleJobs)
	mux.HandleFunc("/api/jobs/", srv.handleJob)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// authorize enforces bearer-token auth when a token is configured.
func (s *apiServer) authorize(w http.ResponseWriter, r *http.Request) bool {
	if s.token == "" {
		return true
	}
	header := r.Header.Get("Authorization")
	presented, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(s.token)) != 1 {
		s.writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
		return false
	}
	return true
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.authorize(w, r) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.listJobs(w, r)
	case http.MethodPost:
		s.submitJob(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) listJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []jobs.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status := jobs.Status(trimmed)
		if !status.Valid() {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", trimmed))
			return
		}
		statuses = append(statuses, status)
	}

	list, err := s.daemon.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]jobPayload, 0, len(list))
	for _, job := range list {
		payload = append(payload, toJobPayload(job))
	}
	s.writeJSON(w, http.StatusOK, jobListResponse{Jobs: payload})
}

// submitJob accepts a multipart form with carrier_a and carrier_b file parts
// plus optional tolerance, group_ceiling, and date overrides. Uploads land in
// a per-submission directory under the jobs dir before the job is queued.
func (s *apiServer) submitJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("parse multipart form: %v", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	settings := jobs.Settings{
		TimeTolerance:     s.cfg.Matching.TimeTolerance,
		DurationTolerance: s.cfg.Matching.DurationTolerance,
		GroupCeiling:      s.cfg.Matching.GroupCeiling,
	}
	if err := applyOverrides(&settings, r); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	uploadDir := filepath.Join(s.cfg.JobsDir(), "uploads", uuid.NewString())
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("create upload directory: %v", err))
		return
	}

	pathA, err := s.saveUpload(r, "carrier_a", uploadDir)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pathB, err := s.saveUpload(r, "carrier_b", uploadDir)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := s.daemon.store.NewJob(r.Context(), pathA, pathB, settings)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log().Info("job submitted",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("token", job.Token),
	)
	s.writeJSON(w, http.StatusCreated, jobResponse{Job: toJobPayload(job)})
}

func applyOverrides(settings *jobs.Settings, r *http.Request) error {
	if value := strings.TrimSpace(r.FormValue("time_tolerance")); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed < 0 {
			return fmt.Errorf("time_tolerance %q must be a non-negative integer", value)
		}
		settings.TimeTolerance = parsed
	}
	if value := strings.TrimSpace(r.FormValue("duration_tolerance")); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed < 0 {
			return fmt.Errorf("duration_tolerance %q must be a non-negative integer", value)
		}
		settings.DurationTolerance = parsed
	}
	if value := strings.TrimSpace(r.FormValue("group_ceiling")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("group_ceiling %q must be a positive integer", value)
		}
		settings.GroupCeiling = parsed
	}
	if value := strings.TrimSpace(r.FormValue("date")); value != "" {
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return fmt.Errorf("date %q must be YYYY-MM-DD", value)
		}
		settings.ReconDate = value
	}
	return nil
}

func (s *apiServer) saveUpload(r *http.Request, field, dir string) (string, error) {
	src, header, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("file part %q is required", field)
	}
	defer src.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = field + ".csv"
	}
	dest := filepath.Join(dir, field+"_"+name)

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("store upload %q: %w", field, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("store upload %q: %w", field, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("store upload %q: %w", field, err)
	}
	return dest, nil
}

// handleJob serves /api/jobs/{id} and /api/jobs/{id}/files/{name}. The id
// segment accepts either the numeric job id or the submission token.
func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.authorize(w, r) {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	job, err := s.lookupJob(r.Context(), segments[0])
	if errors.Is(err, jobs.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch {
	case len(segments) == 1:
		s.writeJSON(w, http.StatusOK, jobResponse{Job: toJobPayload(job)})
	case len(segments) == 3 && segments[1] == "files":
		s.serveJobFile(w, r, job, segments[2])
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) lookupJob(ctx context.Context, key string) (*jobs.Job, error) {
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		return s.daemon.store.GetByID(ctx, id)
	}
	return s.daemon.store.GetByToken(ctx, key)
}

func (s *apiServer) serveJobFile(w http.ResponseWriter, r *http.Request, job *jobs.Job, name string) {
	if job.Status != jobs.StatusCompleted || job.ReportDir == "" {
		s.writeError(w, http.StatusConflict, fmt.Sprintf("job is %s; reports are available once completed", job.Status))
		return
	}

	files := report.ResolveFiles(job.ReportDir, s.cfg.Carriers.A.Name, s.cfg.Carriers.B.Name, s.cfg.Reports.Formats)
	var path string
	switch name {
	case "matched":
		path = files.Matched
	case "a_only":
		path = files.AOnly
	case "b_only":
		path = files.BOnly
	case "summary":
		path = files.Summary
	case "workbook":
		path = files.Workbook
	default:
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown report file %q", name))
		return
	}
	if path == "" {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("report file %q is not enabled", name))
		return
	}
	if _, err := os.Stat(path); err != nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("report file %q is missing", name))
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(path)+"\"")
	http.ServeFile(w, r, path)
}

type jobListResponse struct {
	Jobs []jobPayload `json:"jobs"`
}

type jobResponse struct {
	Job jobPayload `json:"job"`
}

type jobPayload struct {
	ID                int64           `json:"id"`
	Token             string          `json:"token"`
	Status            string          `json:"status"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	TimeTolerance     int64           `json:"time_tolerance"`
	DurationTolerance int64           `json:"duration_tolerance"`
	GroupCeiling      int             `json:"group_ceiling"`
	ReconDate         string          `json:"recon_date,omitempty"`
	Summary           json.RawMessage `json:"summary,omitempty"`
	ReportDir         string          `json:"report_dir,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func toJobPayload(job *jobs.Job) jobPayload {
	payload := jobPayload{
		ID:                job.ID,
		Token:             job.Token,
		Status:            string(job.Status),
		ErrorMessage:      job.ErrorMessage,
		TimeTolerance:     job.TimeTolerance,
		DurationTolerance: job.DurationTolerance,
		GroupCeiling:      job.GroupCeiling,
		ReconDate:         job.ReconDate,
		ReportDir:         job.ReportDir,
		CreatedAt:         job.CreatedAt,
		UpdatedAt:         job.UpdatedAt,
	}
	if job.SummaryJSON != "" {
		payload.Summary = json.RawMessage(job.SummaryJSON)
	}
	return payload
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "api-server")
}
