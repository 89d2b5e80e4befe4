// Command cdrecon reconciles call detail records between two telecom
// carriers: it normalizes each carrier's CSV export, pairs calls that agree
// within the configured tolerances, and emits matched/unmatched reports.
package main
