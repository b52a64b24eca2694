// Package detection feeds classified sound and keyword detections from an
// MQTT topic into the monitoring session.
//
// A detection passes the sensitivity threshold and, for keyword detections,
// the keyword list before it reaches the session. The same label heard again
// within the de-duplication window refreshes the alert it opened instead of
// raising a new one.
package detection
