// Package cdr defines the normalized call-detail-record model shared by the
// normalizer, the matching engine, and the report emitters.
//
// A Record is the fixed-shape output of carrier-specific normalization: both
// endpoint numbers reduced to digits, the call start as an absolute instant,
// and the duration in whole seconds. Carriers disagree about which party is
// the originator, so records are grouped by EndpointKey, the order-independent
// pair of endpoint numbers.
//
// Records are immutable once produced; everything downstream treats them as
// read-only values.
package cdr
