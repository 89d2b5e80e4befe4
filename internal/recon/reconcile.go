package recon

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"cdrecon/internal/cdr"
)

// Reconcile drives the candidate index and per-group matcher across both
// record sets and assembles the global result. It validates the config before
// touching any records and honours ctx between groups; a cancelled run
// returns ctx.Err() with no partial result.
func Reconcile(ctx context.Context, recordsA, recordsB []cdr.Record, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	groups := buildIndex(recordsA, recordsB)
	outcomes := make([]groupOutcome, len(groups))

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(groups) {
		workers = len(groups)
	}

	if workers > 1 {
		indexes := make(chan int)
		var wg sync.WaitGroup
		wg.Add(workers)
		for w := 0; w < workers; w++ {
			go func() {
				defer wg.Done()
				for idx := range indexes {
					outcomes[idx] = matchGroup(groups[idx], cfg)
				}
			}()
		}

	dispatch:
		for idx := range groups {
			select {
			case <-ctx.Done():
				break dispatch
			case indexes <- idx:
			}
		}
		close(indexes)
		wg.Wait()
	} else {
		for idx, g := range groups {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			outcomes[idx] = matchGroup(g, cfg)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{}
	for idx, outcome := range outcomes {
		result.Matched = append(result.Matched, outcome.matches...)
		result.UnmatchedA = append(result.UnmatchedA, outcome.unmatchedA...)
		result.UnmatchedB = append(result.UnmatchedB, outcome.unmatchedB...)
		if outcome.oversized {
			g := groups[idx]
			result.Warnings = append(result.Warnings, Warning{Key: g.key, SizeA: len(g.a), SizeB: len(g.b)})
		}
	}

	// Groups finish in arbitrary worker order; re-sort by original row order
	// so repeated runs on identical input emit identical sequences.
	sort.Slice(result.Matched, func(i, j int) bool {
		return result.Matched[i].A.Ordinal < result.Matched[j].A.Ordinal
	})
	sort.Slice(result.UnmatchedA, func(i, j int) bool {
		return result.UnmatchedA[i].Ordinal < result.UnmatchedA[j].Ordinal
	})
	sort.Slice(result.UnmatchedB, func(i, j int) bool {
		return result.UnmatchedB[i].Ordinal < result.UnmatchedB[j].Ordinal
	})
	sort.Slice(result.Warnings, func(i, j int) bool {
		a, b := result.Warnings[i].Key, result.Warnings[j].Key
		if a.Lo != b.Lo {
			return a.Lo < b.Lo
		}
		return a.Hi < b.Hi
	})
	return result, nil
}
