// Package ir provides the directed (lowered) representation of routing
// programs and the dimension schema they are written against.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// directed form the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - DimensionKey and DimensionValue are comparable and usable as map keys
//   - Metadata is provenance only and never participates in equality
//   - NO float types anywhere - amounts are int64 minor units
//   - Context fingerprints are order-independent and canonical
package ir
