// Package jobs persists reconciliation jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// A job records the two uploaded carrier files, the per-job tolerance
// overrides, and its progress through the pipeline (pending, normalizing,
// matching, reporting, completed, failed) together with the produced summary
// and report directory. The Store manages the database connection, schema
// initialization, status transitions, and stuck-job recovery after an unclean
// shutdown.
//
// The database is transient working state for the serve-mode daemon; the
// matching engine itself remains pure and stateless. Schema changes bump the
// version in schema.go; users clear the database to adopt the new schema.
package jobs
