// Package settings holds the user preferences at runtime.
//
// Store is the settings provider of the alert ledger: it reports the
// auto-resolve timeout current at the moment an alert is opened, so changing
// the timeout never affects alerts already in flight.
package settings
