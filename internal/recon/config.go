package recon

import (
	"errors"
	"fmt"
)

// DefaultGroupCeiling bounds the exact per-group assignment. Groups with more
// records than this on either side fall back to the greedy strategy.
const DefaultGroupCeiling = 50

// ErrInvalidConfig is returned when reconciliation settings are unusable.
// Reconcile rejects the configuration before touching any records.
var ErrInvalidConfig = errors.New("invalid reconciliation config")

// Config holds the tolerances and execution settings for one reconciliation
// run. Tolerances are inclusive: a delta equal to the maximum still matches.
type Config struct {
	// MaxTimeDelta is the largest allowed difference between call start
	// instants, in seconds.
	MaxTimeDelta int64

	// MaxDurationDelta is the largest allowed difference between call
	// durations, in seconds.
	MaxDurationDelta int64

	// GroupCeiling is the per-side group size above which the exact
	// assignment gives way to the greedy fallback.
	GroupCeiling int

	// Workers caps concurrent group matching. Zero or negative means one
	// worker per available CPU.
	Workers int
}

// DefaultConfig returns a config with the stock group ceiling and zero
// tolerances. Callers are expected to set the tolerances explicitly.
func DefaultConfig() Config {
	return Config{GroupCeiling: DefaultGroupCeiling}
}

// Validate reports whether the configuration can drive a run.
func (c Config) Validate() error {
	if c.MaxTimeDelta < 0 {
		return fmt.Errorf("%w: max time delta %d is negative", ErrInvalidConfig, c.MaxTimeDelta)
	}
	if c.MaxDurationDelta < 0 {
		return fmt.Errorf("%w: max duration delta %d is negative", ErrInvalidConfig, c.MaxDurationDelta)
	}
	if c.GroupCeiling <= 0 {
		return fmt.Errorf("%w: group ceiling %d must be positive", ErrInvalidConfig, c.GroupCeiling)
	}
	return nil
}
