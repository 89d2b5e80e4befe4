package normalize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cdrecon/internal/cdr"
)

// Reject records one input row the normalizer refused, with the CSV line it
// came from so users can fix the export.
type Reject struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Output is the result of normalizing one carrier file.
type Output struct {
	Records    []cdr.Record
	Rejects    []Reject
	Duplicates int
}

// ReadFile normalizes a carrier CSV file. The day parameter anchors
// time-of-day values; see Read.
func ReadFile(path string, schema Schema, day time.Time) (*Output, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s export: %w", schema.Carrier, err)
	}
	defer file.Close()
	return Read(file, schema, day)
}

// Read normalizes one carrier CSV stream. Header resolution is
// case-insensitive. Bare time-of-day values (HH:MM:SS) are anchored to the
// date of day in UTC; full timestamps are taken as-is. Exact duplicate rows
// are dropped after the first occurrence. Unusable rows become Rejects;
// only an unreadable stream or a missing column is an error.
func Read(r io.Reader, schema Schema, day time.Time) (*Output, error) {
	if err := schema.validate(); err != nil {
		return nil, err
	}
	if day.IsZero() {
		day = time.Unix(0, 0).UTC()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s export: empty file", schema.Carrier)
		}
		return nil, fmt.Errorf("%s export: read header: %w", schema.Carrier, err)
	}

	columns, err := resolveColumns(header, schema)
	if err != nil {
		return nil, err
	}

	out := &Output{}
	seen := make(map[string]struct{})
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				out.Rejects = append(out.Rejects, Reject{Line: parseErr.Line, Reason: "malformed CSV row"})
				continue
			}
			return nil, fmt.Errorf("%s export: read row: %w", schema.Carrier, err)
		}
		line, _ := reader.FieldPos(0)

		rowKey := strings.Join(row, "\x1f")
		if _, dup := seen[rowKey]; dup {
			out.Duplicates++
			continue
		}
		seen[rowKey] = struct{}{}

		record, reason := normalizeRow(row, columns, schema, day, line)
		if reason != "" {
			out.Rejects = append(out.Rejects, Reject{Line: line, Reason: reason})
			continue
		}
		record.Ordinal = len(out.Records)
		out.Records = append(out.Records, record)
	}
	return out, nil
}

// columnIndexes holds resolved header positions for the schema columns.
type columnIndexes struct {
	origin      int
	destination int
	callTime    int
	duration    int
}

func resolveColumns(header []string, schema Schema) (columnIndexes, error) {
	lookup := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, exists := lookup[key]; !exists {
			lookup[key] = i
		}
	}

	var indexes columnIndexes
	for _, want := range []struct {
		name   string
		target *int
	}{
		{schema.OriginColumn, &indexes.origin},
		{schema.DestinationColumn, &indexes.destination},
		{schema.TimeColumn, &indexes.callTime},
		{schema.DurationColumn, &indexes.duration},
	} {
		idx, ok := lookup[strings.ToLower(want.name)]
		if !ok {
			return indexes, fmt.Errorf("%s export: missing column %q (header: %s)",
				schema.Carrier, want.name, strings.Join(header, ", "))
		}
		*want.target = idx
	}
	return indexes, nil
}

func normalizeRow(row []string, columns columnIndexes, schema Schema, day time.Time, line int) (cdr.Record, string) {
	need := columns.origin
	for _, idx := range []int{columns.destination, columns.callTime, columns.duration} {
		if idx > need {
			need = idx
		}
	}
	if len(row) <= need {
		return cdr.Record{}, fmt.Sprintf("row has %d fields, need at least %d", len(row), need+1)
	}

	origin := canonicalNumber(row[columns.origin], schema.SignificantDigits)
	if origin == "" {
		return cdr.Record{}, fmt.Sprintf("origin number %q has no digits", row[columns.origin])
	}
	destination := canonicalNumber(row[columns.destination], schema.SignificantDigits)
	if destination == "" {
		return cdr.Record{}, fmt.Sprintf("destination number %q has no digits", row[columns.destination])
	}

	timestamp, err := parseCallTime(row[columns.callTime], day)
	if err != nil {
		return cdr.Record{}, err.Error()
	}

	duration, err := parseDuration(row[columns.duration])
	if err != nil {
		return cdr.Record{}, err.Error()
	}

	return cdr.Record{
		Origin:      origin,
		Destination: destination,
		Timestamp:   timestamp,
		Duration:    duration,
		Side:        schema.Side,
		Line:        line,
	}, ""
}
