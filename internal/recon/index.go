package recon

import "cdrecon/internal/cdr"

// group collects the records from both sides that share one EndpointKey.
// Slices preserve input order; one-sided groups are retained so their records
// flow straight to the unmatched output.
type group struct {
	key cdr.EndpointKey
	a   []cdr.Record
	b   []cdr.Record
}

// buildIndex partitions both record sets into endpoint-pair groups in a
// single pass. Groups are ordered by first appearance (side A first) so the
// index itself is deterministic.
func buildIndex(recordsA, recordsB []cdr.Record) []*group {
	byKey := make(map[cdr.EndpointKey]*group, len(recordsA))
	var ordered []*group

	add := func(rec cdr.Record, sideA bool) {
		key := cdr.KeyFor(rec)
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key}
			byKey[key] = g
			ordered = append(ordered, g)
		}
		if sideA {
			g.a = append(g.a, rec)
		} else {
			g.b = append(g.b, rec)
		}
	}

	for _, rec := range recordsA {
		add(rec, true)
	}
	for _, rec := range recordsB {
		add(rec, false)
	}
	return ordered
}
