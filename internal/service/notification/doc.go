// Package notification fans an alert out to the ordered contact list.
//
// The Dispatcher is stateless: it attempts every contact in the given order,
// one at a time, through an injected Sender, bounds each attempt with a
// timeout, and records the outcome per contact. A failed contact never stops
// the sequence and the dispatcher never retries on its own.
package notification
