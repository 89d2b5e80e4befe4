// Package engine composes the normalizer, matching engine, and report
// emitters into complete reconciliation runs.
//
// Execute performs one run in-process for the CLI. Pipeline drives the same
// composition for the serve-mode daemon: it polls the job store, claims
// pending jobs, advances them through the normalizing/matching/reporting
// statuses, and records the summary or failure. One job is in flight at a
// time; parallelism lives inside the matching engine's group workers, not
// across jobs.
package engine
