package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"cdrecon/internal/cdr"
	"cdrecon/internal/config"
	"cdrecon/internal/logging"
	"cdrecon/internal/normalize"
	"cdrecon/internal/recon"
	"cdrecon/internal/report"
)

// Params describes one reconciliation execution.
type Params struct {
	CarrierAPath string
	CarrierBPath string

	// OutputDir receives the report files.
	OutputDir string

	// Day anchors bare time-of-day values in the inputs. Zero means the
	// Unix epoch date, which is fine when both exports carry full
	// timestamps or come from the same day.
	Day time.Time

	Matching recon.Config
}

// Outcome is the complete product of one run.
type Outcome struct {
	Summary  report.Summary
	Files    report.Files
	Result   *recon.Result
	RejectsA []normalize.Reject
	RejectsB []normalize.Reject
}

// SummaryJSON serializes the summary for persistence.
func (o *Outcome) SummaryJSON() (string, error) {
	payload, err := json.Marshal(o.Summary)
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	return string(payload), nil
}

// Execute performs one full reconciliation run: normalize both carrier
// files, match, and emit reports into params.OutputDir.
func Execute(ctx context.Context, cfg *config.Config, logger *slog.Logger, params Params) (*Outcome, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	outA, outB, err := loadRecords(cfg, logger, params)
	if err != nil {
		return nil, err
	}

	result, err := recon.Reconcile(ctx, outA.Records, outB.Records, params.Matching)
	if err != nil {
		return nil, err
	}

	summary := report.BuildSummary(cfg.Carriers.A.Name, cfg.Carriers.B.Name, outA, outB, result, params.Matching)
	writer := report.NewWriter(params.OutputDir, cfg.Carriers.A.Name, cfg.Carriers.B.Name, cfg.Reports.Formats)
	files, err := writer.Write(result, summary)
	if err != nil {
		return nil, err
	}

	logger.Info("reconciliation complete",
		logging.Int("matched", summary.Matched),
		logging.Int("unmatched_a", summary.UnmatchedA),
		logging.Int("unmatched_b", summary.UnmatchedB),
		logging.Float64("match_rate", summary.MatchRate),
		logging.Int("oversized_groups", len(summary.OversizedGroups)),
	)

	return &Outcome{
		Summary:  summary,
		Files:    files,
		Result:   result,
		RejectsA: outA.Rejects,
		RejectsB: outB.Rejects,
	}, nil
}

func loadRecords(cfg *config.Config, logger *slog.Logger, params Params) (*normalize.Output, *normalize.Output, error) {
	schemaA := normalize.SchemaFromConfig(cfg.Carriers.A, cdr.SideA)
	schemaB := normalize.SchemaFromConfig(cfg.Carriers.B, cdr.SideB)

	outA, err := normalize.ReadFile(params.CarrierAPath, schemaA, params.Day)
	if err != nil {
		return nil, nil, err
	}
	logNormalized(logger, schemaA.Carrier, outA)

	outB, err := normalize.ReadFile(params.CarrierBPath, schemaB, params.Day)
	if err != nil {
		return nil, nil, err
	}
	logNormalized(logger, schemaB.Carrier, outB)

	return outA, outB, nil
}

func logNormalized(logger *slog.Logger, carrier string, out *normalize.Output) {
	logger.Info("normalized carrier export",
		logging.String(logging.FieldCarrier, carrier),
		logging.Int("records", len(out.Records)),
		logging.Int("rejected", len(out.Rejects)),
		logging.Int("duplicates", out.Duplicates),
	)
	if len(out.Rejects) > 0 {
		logger.Warn("rows rejected during normalization",
			logging.String(logging.FieldCarrier, carrier),
			logging.Int("rejected", len(out.Rejects)),
			logging.Int("first_line", out.Rejects[0].Line),
			logging.String("first_reason", out.Rejects[0].Reason),
		)
	}
}

// ParseDay parses a YYYY-MM-DD reconciliation date. Empty input returns the
// zero time, leaving time-of-day anchoring at the epoch date.
func ParseDay(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	day, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("reconciliation date %q: expected YYYY-MM-DD", value)
	}
	return day.UTC(), nil
}
