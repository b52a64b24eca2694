package settings

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/oshokin/echopulse/internal/domain/failure"
)

// Sensitivity controls how eager a detection source is to report events.
type Sensitivity string

const (
	// SensitivityLow reports only high-confidence detections.
	SensitivityLow Sensitivity = "low"
	// SensitivityMedium is the default.
	SensitivityMedium Sensitivity = "medium"
	// SensitivityHigh reports low-confidence detections as well.
	SensitivityHigh Sensitivity = "high"
)

const (
	// DefaultAutoResolveTimeoutMinutes matches the default of the settings screen.
	DefaultAutoResolveTimeoutMinutes = 30
	// MaxAutoResolveTimeoutMinutes is one day.
	MaxAutoResolveTimeoutMinutes = 24 * 60

	lowConfidenceThreshold    = 90
	mediumConfidenceThreshold = 75
	highConfidenceThreshold   = 60
)

// ParseSensitivity converts string input to a Sensitivity.
func ParseSensitivity(s string) (Sensitivity, bool) {
	switch Sensitivity(strings.ToLower(strings.TrimSpace(s))) {
	case SensitivityLow:
		return SensitivityLow, true
	case SensitivityMedium:
		return SensitivityMedium, true
	case SensitivityHigh:
		return SensitivityHigh, true
	default:
		return SensitivityMedium, false
	}
}

// MinConfidence returns the lowest confidence score a detection source
// forwards at this sensitivity.
func (s Sensitivity) MinConfidence() int {
	switch s {
	case SensitivityLow:
		return lowConfidenceThreshold
	case SensitivityHigh:
		return highConfidenceThreshold
	default:
		return mediumConfidenceThreshold
	}
}

// Settings holds the user preferences.
type Settings struct {
	Sensitivity Sensitivity `yaml:"sensitivity"`
	// AutoResolveTimeoutMinutes is the only field the alert ledger consumes.
	AutoResolveTimeoutMinutes int `yaml:"auto_resolve_timeout_minutes"`
	// NotificationSounds is presentation-only.
	NotificationSounds bool     `yaml:"notification_sounds"`
	DetectKeywords     []string `yaml:"detect_keywords"`
}

// Default returns the settings a fresh installation starts with.
func Default() Settings {
	return Settings{
		Sensitivity:               SensitivityMedium,
		AutoResolveTimeoutMinutes: DefaultAutoResolveTimeoutMinutes,
		NotificationSounds:        true,
		DetectKeywords:            []string{"help", "emergency", "danger"},
	}
}

// AutoResolveTimeout returns the auto-resolve timeout as a duration.
func (s *Settings) AutoResolveTimeout() time.Duration {
	return time.Duration(s.AutoResolveTimeoutMinutes) * time.Minute
}

// HasKeyword reports whether keyword is in the list, ignoring case.
func (s *Settings) HasKeyword(keyword string) bool {
	return slices.ContainsFunc(s.DetectKeywords, func(k string) bool {
		return strings.EqualFold(k, strings.TrimSpace(keyword))
	})
}

// Clone returns a copy that does not share the keyword slice.
func (s *Settings) Clone() Settings {
	cloned := *s
	cloned.DetectKeywords = slices.Clone(s.DetectKeywords)

	return cloned
}

// Validate checks the settings for allowed values.
func (s *Settings) Validate() error {
	if _, ok := ParseSensitivity(string(s.Sensitivity)); !ok {
		return fmt.Errorf("%w: unknown sensitivity %q", failure.ErrValidation, s.Sensitivity)
	}

	if s.AutoResolveTimeoutMinutes < 1 || s.AutoResolveTimeoutMinutes > MaxAutoResolveTimeoutMinutes {
		return fmt.Errorf("%w: auto-resolve timeout must be within 1..%d minutes, got %d",
			failure.ErrValidation, MaxAutoResolveTimeoutMinutes, s.AutoResolveTimeoutMinutes)
	}

	return nil
}
