// Package routing bridges live connector configuration into knowledge
// graphs and filters candidate connectors for a payment request.
//
// Graphs are built per CacheKey by BuildGraph, cached as immutable
// Snapshots by GraphCache and read concurrently without locks. A refresh
// replaces the snapshot; it never edits one in place.
//
// FilterChoices checks each candidate with a fresh memo and cycle check,
// drops the ones the graph rejects and keeps the survivors in input order.
package routing
