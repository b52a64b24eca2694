// Package session connects detections to notifications.
//
// While listening, every detection is fanned out to the roster in priority
// order and recorded in the alert ledger together with the delivery outcomes.
// Detections received while stopped are refused and leave no trace.
package session
