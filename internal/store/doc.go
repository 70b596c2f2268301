// Package store is the reconciliation core of the sentinel dashboard.
//
// Two unsynchronized sources feed it: periodic fan-out poll snapshots
// (atomic bulk replace) and push channel events (idempotent upsert by alert
// ID). The store guarantees, at every point in time:
//
//   - at most one risk snapshot, never partially merged
//   - an alert set deduplicated by ID across both sources
//   - a bounded behavior-log window and a bounded toast queue
//
// Precedence rules: the poll is authoritative for server-owned alert fields;
// a push event never overwrites an existing alert (so Resolved never
// regresses from a late duplicate); an optimistic local resolve survives
// stale polls until the server confirms it; push-inserted alerts the poll
// has not yet returned are kept rather than evicted.
//
// Views subscribe and recompute derived state from the copies they are
// handed; nothing outside this package mutates shared state.
package store
