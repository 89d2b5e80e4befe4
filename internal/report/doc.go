// Package report serializes reconciliation results into downloadable files.
//
// The Writer produces the three classic outputs — matched pairs and the two
// carrier-only remainders — as CSV, an optional consolidated XLSX workbook,
// and a summary covering counts, durations, match rate, rejects, and any
// oversized-group precision caveats. File names embed the configured carrier
// labels so downloads from different carrier pairs stay distinguishable.
//
// The matching engine knows nothing about these formats; this package is the
// only place output shape is decided.
package report
