// Command echopulse manages contacts, alerts, monitoring and settings of an EchoPulse server.
package main

import "github.com/oshokin/echopulse/cmd/echopulse/cmd"

func main() {
	cmd.Execute()
}
