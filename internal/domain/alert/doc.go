// Package alert contains the distress alert domain types.
//
// An Alert is opened Active, carries the frozen list of contacts notified
// for it, and moves to Resolved exactly once, either manually or on timeout.
package alert
