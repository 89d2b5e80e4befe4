// Package server hosts the long-running reconciliation service: a
// single-instance daemon that owns the job store and pipeline, and an HTTP
// API for submitting carrier exports, watching job progress, and downloading
// the produced reports.
package server
