// Package config defines the settings file shared by the EchoPulse binaries
// and provides helpers to load, validate and save it in YAML format.
//
// Besides connection parameters it carries the initial user settings, the
// delivery transport, the optional MQTT detection source and the metrics
// listener.
package config
