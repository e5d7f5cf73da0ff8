// Package storage persists task run history.
//
// It currently supports:
//   - Run record appends (one row per dispatched callback)
//   - Bounded recent-run queries for introspection
//   - Retention pruning driven by the maintenance service
package storage
