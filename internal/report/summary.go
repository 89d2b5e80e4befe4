package report

import (
	"time"

	"cdrecon/internal/cdr"
	"cdrecon/internal/normalize"
	"cdrecon/internal/recon"
)

// Summary aggregates one reconciliation run for display and serialization.
type Summary struct {
	CarrierA string `json:"carrier_a"`
	CarrierB string `json:"carrier_b"`

	RecordsA    int `json:"records_a"`
	RecordsB    int `json:"records_b"`
	RejectedA   int `json:"rejected_a"`
	RejectedB   int `json:"rejected_b"`
	DuplicatesA int `json:"duplicates_a"`
	DuplicatesB int `json:"duplicates_b"`

	Matched    int     `json:"matched"`
	UnmatchedA int     `json:"unmatched_a"`
	UnmatchedB int     `json:"unmatched_b"`
	MatchRate  float64 `json:"match_rate"`

	DurationSecondsA int64 `json:"duration_seconds_a"`
	DurationSecondsB int64 `json:"duration_seconds_b"`

	TimeTolerance     int64 `json:"time_tolerance"`
	DurationTolerance int64 `json:"duration_tolerance"`

	OversizedGroups []string `json:"oversized_groups,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// BuildSummary derives the run summary from the normalizer outputs and the
// matching result.
func BuildSummary(carrierA, carrierB string, outA, outB *normalize.Output, result *recon.Result, cfg recon.Config) Summary {
	summary := Summary{
		CarrierA:          carrierA,
		CarrierB:          carrierB,
		RecordsA:          len(outA.Records),
		RecordsB:          len(outB.Records),
		RejectedA:         len(outA.Rejects),
		RejectedB:         len(outB.Rejects),
		DuplicatesA:       outA.Duplicates,
		DuplicatesB:       outB.Duplicates,
		Matched:           len(result.Matched),
		UnmatchedA:        len(result.UnmatchedA),
		UnmatchedB:        len(result.UnmatchedB),
		MatchRate:         result.MatchRate(len(outA.Records), len(outB.Records)),
		DurationSecondsA:  totalDuration(outA.Records),
		DurationSecondsB:  totalDuration(outB.Records),
		TimeTolerance:     cfg.MaxTimeDelta,
		DurationTolerance: cfg.MaxDurationDelta,
		GeneratedAt:       time.Now().UTC(),
	}
	for _, warning := range result.Warnings {
		summary.OversizedGroups = append(summary.OversizedGroups, warning.Key.String())
	}
	return summary
}

func totalDuration(records []cdr.Record) int64 {
	var total int64
	for _, record := range records {
		total += record.Duration
	}
	return total
}
