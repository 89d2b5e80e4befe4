// Package recon implements the CDR matching engine: given two normalized
// record sets it computes a best one-to-one correspondence under configurable
// time and duration tolerances and partitions the input into matched pairs and
// two unmatched remainders.
//
// Records are first indexed by EndpointKey so candidates are only compared
// within the small group of calls between the same two numbers. Each group is
// solved independently: a minimum-cost maximum-cardinality assignment for
// groups within the configured ceiling, a greedy earliest-eligible-pair pass
// for oversized groups (flagged in the result so callers can surface the
// precision caveat). Groups share no state, so the reconciler fans them out to
// a worker pool and re-sorts the merged output by original row order.
//
// Reconcile is a pure function of its inputs: identical records and config
// always produce identical output, including ordering.
package recon
