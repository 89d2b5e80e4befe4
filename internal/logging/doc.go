// Package logging builds the slog loggers used across cdrecon.
//
// It offers a console handler with terminal-aware colors for interactive use
// and a compact JSON handler for log files and machine consumption, plus typed
// attribute helpers and the standardized field keys (component, job_id, stage,
// carrier) that keep structured output greppable.
//
// Construct loggers through New or NewFromConfig so level parsing, output
// fan-out, and format selection stay consistent between the CLI and the
// serve-mode daemon.
package logging
