// Package settings contains the user settings consumed by the core and by
// detection adapters.
package settings
