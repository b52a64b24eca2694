// Package contact contains the emergency contact domain types.
//
// Contact is the live roster record owned by the roster service. Snapshot is
// the frozen copy embedded into alerts, so that later edits or removals of a
// contact never rewrite alert history.
package contact
