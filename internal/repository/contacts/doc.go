// Package contacts persists the emergency contact roster to a JSON file.
package contacts
