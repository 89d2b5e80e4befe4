package logging_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cdrecon/internal/logging"
)

func TestNewJSONLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	component := logging.NewComponentLogger(logger, "matcher")
	component.Info("run complete",
		logging.Int("matched", 12),
		logging.String(logging.FieldCarrier, "airtel"),
	)
	component.Debug("should be filtered out")

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatal("expected one log line")
	}
	var entry map[string]any
	if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "run complete" || entry["level"] != "info" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry[logging.FieldComponent] != "matcher" || entry[logging.FieldCarrier] != "airtel" {
		t.Fatalf("structured fields missing: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("timestamp key missing: %v", entry)
	}
	if scanner.Scan() {
		t.Fatalf("debug line should be filtered at info level: %s", scanner.Text())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := logging.New(logging.Options{Format: "xml"})
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "xml") {
		t.Fatalf("error should name the rejected format: %v", err)
	}
}

func TestNewConsoleFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      "console",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Warn("tolerance exceeded", logging.Int64("delta", 9))

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(raw)
	if !strings.Contains(line, "WARN") || !strings.Contains(line, "tolerance exceeded") {
		t.Fatalf("console line missing level or message: %q", line)
	}
	if !strings.Contains(line, "delta=9") {
		t.Fatalf("console line missing attrs: %q", line)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("nothing happens", logging.Error(nil))

	component := logging.NewComponentLogger(nil, "x")
	component.Info("also discarded")
}
