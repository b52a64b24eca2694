// Command echopulse-server runs the EchoPulse alert and notification engine.
package main

import "github.com/oshokin/echopulse/cmd/echopulse-server/cmd"

func main() {
	cmd.Execute()
}
