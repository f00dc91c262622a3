// Package store provides SQLite-backed storage for merchant connector
// configuration and analyzed routing programs.
//
// The store holds:
//   - Connector accounts: one row per merchant account with a connector
//   - Connector filters: country/currency limits per connector and payment method type
//   - Routing programs: lowered programs keyed by content hash
//
// Store implements routing.ConfigSource, so a routing.GraphCache can build
// knowledge graphs straight from it.
//
// # Deterministic Reads
//
// Every query orders by its natural key with COLLATE BINARY, so the same
// rows always load in the same order and build the same graph.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
