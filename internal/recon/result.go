package recon

import "cdrecon/internal/cdr"

// Match pairs one side-A record with one side-B record along with the
// absolute deltas that qualified the pair.
type Match struct {
	A             cdr.Record
	B             cdr.Record
	TimeDelta     int64
	DurationDelta int64
}

// Warning flags an endpoint-pair group that exceeded the group ceiling and
// was matched with the greedy fallback instead of the exact assignment.
type Warning struct {
	Key   cdr.EndpointKey
	SizeA int
	SizeB int
}

// Result is the complete outcome of one reconciliation run. Every input
// record appears exactly once: either in one Match or in one unmatched slice.
type Result struct {
	Matched    []Match
	UnmatchedA []cdr.Record
	UnmatchedB []cdr.Record
	Warnings   []Warning
}

// MatchRate returns matched pairs as a fraction of the smaller input side,
// or zero when either side is empty.
func (r Result) MatchRate(totalA, totalB int) float64 {
	smaller := totalA
	if totalB < smaller {
		smaller = totalB
	}
	if smaller == 0 {
		return 0
	}
	return float64(len(r.Matched)) / float64(smaller)
}
