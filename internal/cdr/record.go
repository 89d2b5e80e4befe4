package cdr

import (
	"fmt"
	"time"
)

// Side identifies which carrier dataset a record came from.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// String returns the single-letter dataset tag.
func (s Side) String() string {
	return string(s)
}

// Valid reports whether the side is one of the two known datasets.
func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

// Record is one normalized call-detail record. Origin and Destination hold
// digits-only endpoint numbers, Timestamp the absolute call start, and
// Duration the call length in whole seconds.
type Record struct {
	Origin      string
	Destination string
	Timestamp   time.Time
	Duration    int64
	Side        Side
	Line        int
	Ordinal     int
}

// Ref identifies the original input row a record was produced from.
type Ref struct {
	Side Side `json:"side"`
	Line int  `json:"line"`
}

// Ref returns the row reference for reporting.
func (r Record) Ref() Ref {
	return Ref{Side: r.Side, Line: r.Line}
}

// String renders the reference as e.g. "A:42".
func (f Ref) String() string {
	return fmt.Sprintf("%s:%d", f.Side, f.Line)
}

// Validate checks the invariants the normalizer guarantees. The matching
// engine assumes these hold and never re-checks them per record.
func (r Record) Validate() error {
	if r.Origin == "" || r.Destination == "" {
		return fmt.Errorf("record %s: empty endpoint number", r.Ref())
	}
	if r.Duration < 0 {
		return fmt.Errorf("record %s: negative duration %d", r.Ref(), r.Duration)
	}
	if !r.Side.Valid() {
		return fmt.Errorf("record line %d: unknown side %q", r.Line, string(r.Side))
	}
	return nil
}

// EndpointKey is the unordered pair of a call's endpoint numbers. Lo is the
// lexicographically smaller number so the key is independent of which party
// the carrier recorded as the originator.
type EndpointKey struct {
	Lo string
	Hi string
}

// KeyFor derives the endpoint key for a record.
func KeyFor(r Record) EndpointKey {
	if r.Origin <= r.Destination {
		return EndpointKey{Lo: r.Origin, Hi: r.Destination}
	}
	return EndpointKey{Lo: r.Destination, Hi: r.Origin}
}

// String renders the key as "lo<->hi" for logs and warnings.
func (k EndpointKey) String() string {
	return k.Lo + "<->" + k.Hi
}
