// Package ledger owns the alerts and drives their lifecycle.
//
// Alerts are opened Active and arm one auto-resolve timer each. The manual
// Resolve and the timer fire share one transition: whichever takes the lock
// first records the terminal state, the other observes it and does nothing.
// Stopping the timer and bumping the alert generation happen in the same
// critical section as the transition, so a resolved alert never receives a
// late timeout.
package ledger
