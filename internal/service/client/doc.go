// Package client implements the echopulse command-line client.
//
// Commands connect to the EchoPulse server, perform one call and render the
// result as a table. Detections submitted from the command line are pushed
// until the server accepts them, so a detection source survives a server
// restart.
package client
