package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cdrecon/internal/cdr"
	"cdrecon/internal/recon"
)

const timeLayout = "2006-01-02 15:04:05"

// Files lists the artifacts one Write call produced, keyed for download
// handlers. Absent formats leave their path empty.
type Files struct {
	Matched  string `json:"matched,omitempty"`
	AOnly    string `json:"a_only,omitempty"`
	BOnly    string `json:"b_only,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Workbook string `json:"workbook,omitempty"`
}

// Writer emits reconciliation artifacts into a target directory.
type Writer struct {
	dir      string
	carrierA string
	carrierB string
	formats  map[string]bool
}

// NewWriter creates a writer for the given directory and carrier labels.
// Formats is any subset of "csv" and "xlsx"; unknown entries are ignored
// because config validation already rejected them.
func NewWriter(dir, carrierA, carrierB string, formats []string) *Writer {
	enabled := make(map[string]bool, len(formats))
	for _, format := range formats {
		enabled[format] = true
	}
	return &Writer{dir: dir, carrierA: carrierA, carrierB: carrierB, formats: enabled}
}

// ResolveFiles reconstructs the artifact paths a prior Write produced in dir,
// so download handlers can locate files without re-running the writer.
func ResolveFiles(dir, carrierA, carrierB string, formats []string) Files {
	enabled := make(map[string]bool, len(formats))
	for _, format := range formats {
		enabled[format] = true
	}
	return resolveFiles(dir, carrierA, carrierB, enabled)
}

func resolveFiles(dir, carrierA, carrierB string, formats map[string]bool) Files {
	var files Files
	if formats["csv"] {
		files.Matched = filepath.Join(dir, "matched.csv")
		files.AOnly = filepath.Join(dir, carrierA+"_only.csv")
		files.BOnly = filepath.Join(dir, carrierB+"_only.csv")
		files.Summary = filepath.Join(dir, "summary.csv")
	}
	if formats["xlsx"] {
		files.Workbook = filepath.Join(dir, "reconciliation.xlsx")
	}
	return files
}

// Write serializes the result and summary into the writer's directory and
// returns the produced file paths.
func (w *Writer) Write(result *recon.Result, summary Summary) (Files, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("create report directory: %w", err)
	}

	files := resolveFiles(w.dir, w.carrierA, w.carrierB, w.formats)
	if w.formats["csv"] {
		if err := w.writeMatchedCSV(files.Matched, result.Matched); err != nil {
			return Files{}, err
		}
		if err := w.writeSideCSV(files.AOnly, result.UnmatchedA); err != nil {
			return Files{}, err
		}
		if err := w.writeSideCSV(files.BOnly, result.UnmatchedB); err != nil {
			return Files{}, err
		}
		if err := w.writeSummaryCSV(files.Summary, summary); err != nil {
			return Files{}, err
		}
	}
	if w.formats["xlsx"] {
		if err := w.writeWorkbook(files.Workbook, result, summary); err != nil {
			return Files{}, err
		}
	}
	return files, nil
}

func matchedHeader(carrierA, carrierB string) []string {
	return []string{
		carrierA + "_line", carrierA + "_origin", carrierA + "_destination", carrierA + "_time", carrierA + "_duration",
		carrierB + "_line", carrierB + "_origin", carrierB + "_destination", carrierB + "_time", carrierB + "_duration",
		"time_delta", "duration_delta",
	}
}

func matchedRow(match recon.Match) []string {
	return []string{
		strconv.Itoa(match.A.Line),
		match.A.Origin,
		match.A.Destination,
		match.A.Timestamp.Format(timeLayout),
		strconv.FormatInt(match.A.Duration, 10),
		strconv.Itoa(match.B.Line),
		match.B.Origin,
		match.B.Destination,
		match.B.Timestamp.Format(timeLayout),
		strconv.FormatInt(match.B.Duration, 10),
		strconv.FormatInt(match.TimeDelta, 10),
		strconv.FormatInt(match.DurationDelta, 10),
	}
}

func sideHeader() []string {
	return []string{"line", "origin", "destination", "time", "duration"}
}

func sideRow(record cdr.Record) []string {
	return []string{
		strconv.Itoa(record.Line),
		record.Origin,
		record.Destination,
		record.Timestamp.Format(timeLayout),
		strconv.FormatInt(record.Duration, 10),
	}
}

func (w *Writer) writeMatchedCSV(path string, matches []recon.Match) error {
	rows := make([][]string, 0, len(matches)+1)
	rows = append(rows, matchedHeader(w.carrierA, w.carrierB))
	for _, match := range matches {
		rows = append(rows, matchedRow(match))
	}
	return writeCSV(path, rows)
}

func (w *Writer) writeSideCSV(path string, records []cdr.Record) error {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, sideHeader())
	for _, record := range records {
		rows = append(rows, sideRow(record))
	}
	return writeCSV(path, rows)
}

func summaryRows(s Summary) [][]string {
	rows := [][]string{
		{"metric", "value"},
		{"carrier_a", s.CarrierA},
		{"carrier_b", s.CarrierB},
		{"records_a", strconv.Itoa(s.RecordsA)},
		{"records_b", strconv.Itoa(s.RecordsB)},
		{"rejected_a", strconv.Itoa(s.RejectedA)},
		{"rejected_b", strconv.Itoa(s.RejectedB)},
		{"duplicates_a", strconv.Itoa(s.DuplicatesA)},
		{"duplicates_b", strconv.Itoa(s.DuplicatesB)},
		{"matched", strconv.Itoa(s.Matched)},
		{"unmatched_a", strconv.Itoa(s.UnmatchedA)},
		{"unmatched_b", strconv.Itoa(s.UnmatchedB)},
		{"match_rate", strconv.FormatFloat(s.MatchRate, 'f', 4, 64)},
		{"duration_seconds_a", strconv.FormatInt(s.DurationSecondsA, 10)},
		{"duration_seconds_b", strconv.FormatInt(s.DurationSecondsB, 10)},
		{"time_tolerance", strconv.FormatInt(s.TimeTolerance, 10)},
		{"duration_tolerance", strconv.FormatInt(s.DurationTolerance, 10)},
		{"generated_at", s.GeneratedAt.Format(time.RFC3339)},
	}
	for _, key := range s.OversizedGroups {
		rows = append(rows, []string{"oversized_group", key})
	}
	return rows
}

func (w *Writer) writeSummaryCSV(path string, summary Summary) error {
	return writeCSV(path, summaryRows(summary))
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		_ = file.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := writer.Error(); err != nil {
		_ = file.Close()
		return fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	return file.Close()
}
