package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"cdrecon/internal/config"
)

// ErrNotFound is returned when a requested job does not exist.
var ErrNotFound = errors.New("job not found")

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database and verifies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewJob inserts a pending job for the two uploaded carrier files.
func (s *Store) NewJob(ctx context.Context, carrierAPath, carrierBPath string, settings Settings) (*Job, error) {
	if strings.TrimSpace(carrierAPath) == "" || strings.TrimSpace(carrierBPath) == "" {
		return nil, errors.New("both carrier file paths are required")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            token, status, carrier_a_path, carrier_b_path,
            time_tolerance, duration_tolerance, group_ceiling, recon_date,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		StatusPending,
		carrierAPath,
		carrierBPath,
		settings.TimeTolerance,
		settings.DurationTolerance,
		settings.GroupCeiling,
		settings.ReconDate,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

const jobColumns = "id, token, status, carrier_a_path, carrier_b_path, time_tolerance, duration_tolerance, group_ceiling, recon_date, error_message, summary_json, report_dir, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job          Job
		statusStr    string
		errorMessage sql.NullString
		summaryJSON  sql.NullString
		reportDir    sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&job.ID,
		&job.Token,
		&statusStr,
		&job.CarrierAPath,
		&job.CarrierBPath,
		&job.TimeTolerance,
		&job.DurationTolerance,
		&job.GroupCeiling,
		&job.ReconDate,
		&errorMessage,
		&summaryJSON,
		&reportDir,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job.Status = Status(statusStr)
	job.ErrorMessage = errorMessage.String
	job.SummaryJSON = summaryJSON.String
	job.ReportDir = reportDir.String
	job.CreatedAt = parseTimestamp(createdRaw)
	job.UpdatedAt = parseTimestamp(updatedRaw)
	return &job, nil
}

func parseTimestamp(raw string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// GetByID fetches one job.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	return job, nil
}

// GetByToken fetches one job by its submission token.
func (s *Store) GetByToken(ctx context.Context, token string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE token = ?", token)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: token %s", ErrNotFound, token)
	}
	if err != nil {
		return nil, fmt.Errorf("get job by token: %w", err)
	}
	return job, nil
}

// List returns jobs newest first, optionally filtered by statuses.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var result []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		result = append(result, job)
	}
	return result, rows.Err()
}

// ClaimNextPending atomically moves the oldest pending job to normalizing and
// returns it, or nil when the queue is empty.
func (s *Store) ClaimNextPending(ctx context.Context) (*Job, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	row := s.db.QueryRowContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ?
         WHERE id = (SELECT id FROM jobs WHERE status = ? ORDER BY id LIMIT 1)
         RETURNING `+jobColumns,
		StatusNormalizing, timestamp, StatusPending,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim pending job: %w", err)
	}
	return job, nil
}

// Transition moves a job between lifecycle states, guarding against
// concurrent modification by requiring the expected current status.
func (s *Store) Transition(ctx context.Context, id int64, from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("unknown status %q", string(to))
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		string(to), timestamp, id, string(from),
	)
	if err != nil {
		return fmt.Errorf("transition job %d to %s: %w", id, to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition job %d rows affected: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("job %d is not in status %s", id, from)
	}
	return nil
}

// MarkCompleted records the run summary and report directory and finishes the job.
func (s *Store) MarkCompleted(ctx context.Context, id int64, summaryJSON, reportDir string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, summary_json = ?, report_dir = ?, error_message = NULL, updated_at = ? WHERE id = ?",
		StatusCompleted, summaryJSON, reportDir, timestamp, id,
	)
	if err != nil {
		return fmt.Errorf("complete job %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// MarkFailed finishes the job with an error message.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?",
		StatusFailed, message, timestamp, id,
	)
	if err != nil {
		return fmt.Errorf("fail job %d: %w", id, err)
	}
	return requireAffected(res, id)
}

func requireAffected(res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("job %d rows affected: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// ResetStuck returns in-flight jobs to pending. Called on daemon startup so
// work interrupted by a crash or shutdown is retried.
func (s *Store) ResetStuck(ctx context.Context) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	placeholders := make([]string, 0, len(processingStatuses))
	args := []any{string(StatusPending), timestamp}
	for status := range processingStatuses {
		placeholders = append(placeholders, "?")
		args = append(args, string(status))
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, updated_at = ? WHERE status IN ("+strings.Join(placeholders, ", ")+")",
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes jobs. With terminalOnly set, in-flight and pending jobs survive.
func (s *Store) Clear(ctx context.Context, terminalOnly bool) (int64, error) {
	query := "DELETE FROM jobs"
	var args []any
	if terminalOnly {
		query += " WHERE status IN (?, ?)"
		args = append(args, string(StatusCompleted), string(StatusFailed))
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns job counts per status.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM jobs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int, len(allStatuses))
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
