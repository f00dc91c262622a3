// Package testutil provides deterministic stand-ins for the clocks and id
// generators used by the routing cache, so snapshots built in tests have
// reproducible ids, versions and timestamps.
package testutil
