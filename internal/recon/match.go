package recon

import "cdrecon/internal/cdr"

// cost orders candidate pairings lexicographically: total time delta first,
// then total duration delta, then the combined input ordinals so equally
// close pairings prefer earlier rows. Costs are added along augmenting paths
// and subtracted along residual edges, which keeps the lexicographic order
// meaningful throughout the search.
type cost struct {
	time  int64
	dur   int64
	order int64
}

func (c cost) add(o cost) cost {
	return cost{time: c.time + o.time, dur: c.dur + o.dur, order: c.order + o.order}
}

func (c cost) sub(o cost) cost {
	return cost{time: c.time - o.time, dur: c.dur - o.dur, order: c.order - o.order}
}

func (c cost) less(o cost) bool {
	if c.time != o.time {
		return c.time < o.time
	}
	if c.dur != o.dur {
		return c.dur < o.dur
	}
	return c.order < o.order
}

// groupOutcome is the per-group matching result before global aggregation.
type groupOutcome struct {
	matches    []Match
	unmatchedA []cdr.Record
	unmatchedB []cdr.Record
	oversized  bool
}

// timeDelta returns the absolute call-start difference in seconds.
func timeDelta(a, b cdr.Record) int64 {
	d := a.Timestamp.Unix() - b.Timestamp.Unix()
	if d < 0 {
		return -d
	}
	return d
}

// durationDelta returns the absolute duration difference in seconds.
func durationDelta(a, b cdr.Record) int64 {
	d := a.Duration - b.Duration
	if d < 0 {
		return -d
	}
	return d
}

// eligible reports whether the pair satisfies both inclusive tolerances.
func eligible(a, b cdr.Record, cfg Config) bool {
	return timeDelta(a, b) <= cfg.MaxTimeDelta && durationDelta(a, b) <= cfg.MaxDurationDelta
}

// matchGroup resolves one endpoint-pair group. Groups within the ceiling get
// the exact assignment; larger ones use the greedy fallback and are flagged.
func matchGroup(g *group, cfg Config) groupOutcome {
	if len(g.a) == 0 || len(g.b) == 0 {
		return groupOutcome{unmatchedA: g.a, unmatchedB: g.b}
	}

	var matchA []int
	out := groupOutcome{}
	if len(g.a) > cfg.GroupCeiling || len(g.b) > cfg.GroupCeiling {
		matchA = matchGreedy(g, cfg)
		out.oversized = true
	} else {
		matchA = matchExact(g, cfg)
	}

	usedB := make([]bool, len(g.b))
	for i, a := range g.a {
		j := matchA[i]
		if j < 0 {
			out.unmatchedA = append(out.unmatchedA, a)
			continue
		}
		usedB[j] = true
		b := g.b[j]
		out.matches = append(out.matches, Match{
			A:             a,
			B:             b,
			TimeDelta:     timeDelta(a, b),
			DurationDelta: durationDelta(a, b),
		})
	}
	for j, b := range g.b {
		if !usedB[j] {
			out.unmatchedB = append(out.unmatchedB, b)
		}
	}
	return out
}

// matchExact computes a minimum-cost maximum-cardinality assignment between
// the group's sides via successive shortest augmenting paths. Residual edges
// carry negated costs, so path search uses Bellman-Ford style relaxation
// rather than Dijkstra; group sizes are bounded by the ceiling, which keeps
// this cheap. Returns matchA[i] = index into g.b, or -1 when unpaired.
func matchExact(g *group, cfg Config) []int {
	n, m := len(g.a), len(g.b)
	elig := make([][]bool, n)
	pairCost := make([][]cost, n)
	for i, a := range g.a {
		elig[i] = make([]bool, m)
		pairCost[i] = make([]cost, m)
		for j, b := range g.b {
			if !eligible(a, b, cfg) {
				continue
			}
			elig[i][j] = true
			pairCost[i][j] = cost{
				time:  timeDelta(a, b),
				dur:   durationDelta(a, b),
				order: int64(a.Ordinal) + int64(b.Ordinal),
			}
		}
	}

	matchA := make([]int, n)
	matchB := make([]int, m)
	for i := range matchA {
		matchA[i] = -1
	}
	for j := range matchB {
		matchB[j] = -1
	}

	for {
		distA := make([]cost, n)
		distB := make([]cost, m)
		reachA := make([]bool, n)
		reachB := make([]bool, m)
		prevB := make([]int, m)

		for i := range g.a {
			if matchA[i] < 0 {
				reachA[i] = true
			}
		}

		// The residual graph has no negative cycles, so distances settle
		// within one round per node.
		for round := 0; round <= n+m; round++ {
			changed := false
			for i := range g.a {
				if !reachA[i] {
					continue
				}
				for j := range g.b {
					if !elig[i][j] || matchA[i] == j {
						continue
					}
					d := distA[i].add(pairCost[i][j])
					if !reachB[j] || d.less(distB[j]) {
						distB[j] = d
						reachB[j] = true
						prevB[j] = i
						changed = true
					}
				}
			}
			for j := range g.b {
				if !reachB[j] || matchB[j] < 0 {
					continue
				}
				i := matchB[j]
				d := distB[j].sub(pairCost[i][j])
				if !reachA[i] || d.less(distA[i]) {
					distA[i] = d
					reachA[i] = true
					changed = true
				}
			}
			if !changed {
				break
			}
		}

		target := -1
		for j := range g.b {
			if !reachB[j] || matchB[j] >= 0 {
				continue
			}
			if target < 0 || distB[j].less(distB[target]) {
				target = j
			}
		}
		if target < 0 {
			return matchA
		}

		// Flip the augmenting path ending at target.
		for j := target; ; {
			i := prevB[j]
			next := matchA[i]
			matchA[i] = j
			matchB[j] = i
			if next < 0 {
				break
			}
			j = next
		}
	}
}

// matchGreedy pairs each side-A record, in input order, with the closest
// still-unused eligible side-B record. Cheaper than the exact assignment but
// can miss the optimum, which is why oversized groups are flagged.
func matchGreedy(g *group, cfg Config) []int {
	matchA := make([]int, len(g.a))
	usedB := make([]bool, len(g.b))
	for i, a := range g.a {
		matchA[i] = -1
		best := -1
		var bestCost cost
		for j, b := range g.b {
			if usedB[j] || !eligible(a, b, cfg) {
				continue
			}
			c := cost{
				time:  timeDelta(a, b),
				dur:   durationDelta(a, b),
				order: int64(b.Ordinal),
			}
			if best < 0 || c.less(bestCost) {
				best = j
				bestCost = c
			}
		}
		if best >= 0 {
			matchA[i] = best
			usedB[best] = true
		}
	}
	return matchA
}
