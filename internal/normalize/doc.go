// Package normalize converts carrier-specific CDR exports into the uniform
// record shape the matching engine consumes.
//
// Each carrier ships CSV files with its own column names, number formats, and
// time representations. A Schema captures that layout; Read applies it:
// resolving header columns, reducing phone numbers to their significant
// trailing digits, anchoring time-of-day values to the reconciliation date,
// and rounding fractional durations to whole seconds. Exact duplicate rows
// are dropped, mirroring the dedup step the matching semantics assume.
//
// Rows that cannot be normalized are collected as Rejects with their line
// numbers rather than aborting the file; the matching engine never sees them.
package normalize
