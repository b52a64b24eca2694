package settings

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oshokin/echopulse/internal/domain/failure"
	domain "github.com/oshokin/echopulse/internal/domain/settings"
	"github.com/oshokin/echopulse/internal/logger"
)

// Saver persists settings after a successful change.
type Saver func(ctx context.Context, s domain.Settings) error

// Update carries optional settings changes. Nil fields are left untouched.
type Update struct {
	Sensitivity               *domain.Sensitivity
	AutoResolveTimeoutMinutes *int
	NotificationSounds        *bool
}

// Store keeps the current settings and serializes changes.
type Store struct {
	// saver is optional; nil keeps the settings in memory only.
	saver    Saver
	settings domain.Settings
	mu       sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithSaver persists every successful change through saver.
func WithSaver(saver Saver) Option {
	return func(s *Store) {
		s.saver = saver
	}
}

// NewStore creates a store seeded with initial, which must be valid.
func NewStore(initial domain.Settings, opts ...Option) (*Store, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		settings: initial.Clone(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.settings.Clone()
}

// AutoResolveTimeout returns the timeout applied to newly opened alerts.
func (s *Store) AutoResolveTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.settings.AutoResolveTimeout()
}

// Update applies the non-nil fields of u.
func (s *Store) Update(ctx context.Context, u Update) (domain.Settings, error) {
	return s.apply(ctx, func(next *domain.Settings) error {
		if u.Sensitivity != nil {
			sensitivity, ok := domain.ParseSensitivity(string(*u.Sensitivity))
			if !ok {
				return fmt.Errorf("%w: unknown sensitivity %q", failure.ErrValidation, *u.Sensitivity)
			}

			next.Sensitivity = sensitivity
		}

		if u.AutoResolveTimeoutMinutes != nil {
			next.AutoResolveTimeoutMinutes = *u.AutoResolveTimeoutMinutes
		}

		if u.NotificationSounds != nil {
			next.NotificationSounds = *u.NotificationSounds
		}

		return nil
	})
}

// AddKeyword appends a detection keyword. Duplicates are compared ignoring case.
func (s *Store) AddKeyword(ctx context.Context, keyword string) (domain.Settings, error) {
	keyword = strings.TrimSpace(keyword)

	return s.apply(ctx, func(next *domain.Settings) error {
		if keyword == "" {
			return fmt.Errorf("%w: keyword is required", failure.ErrValidation)
		}

		if next.HasKeyword(keyword) {
			return fmt.Errorf("%w: keyword %q already exists", failure.ErrValidation, keyword)
		}

		next.DetectKeywords = append(next.DetectKeywords, keyword)

		return nil
	})
}

// RemoveKeyword deletes a detection keyword, ignoring case.
func (s *Store) RemoveKeyword(ctx context.Context, keyword string) (domain.Settings, error) {
	keyword = strings.TrimSpace(keyword)

	return s.apply(ctx, func(next *domain.Settings) error {
		idx := slices.IndexFunc(next.DetectKeywords, func(k string) bool {
			return strings.EqualFold(k, keyword)
		})
		if idx < 0 {
			return fmt.Errorf("%w: keyword %q", failure.ErrNotFound, keyword)
		}

		next.DetectKeywords = slices.Delete(next.DetectKeywords, idx, idx+1)

		return nil
	})
}

// apply mutates a copy, validates and persists it, then publishes it.
func (s *Store) apply(ctx context.Context, mutate func(next *domain.Settings) error) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings.Clone()

	if err := mutate(&next); err != nil {
		return domain.Settings{}, err
	}

	if err := next.Validate(); err != nil {
		return domain.Settings{}, err
	}

	if s.saver != nil {
		if err := s.saver(ctx, next.Clone()); err != nil {
			logger.Errorf(ctx, "Failed to persist settings: %v", err)

			return domain.Settings{}, fmt.Errorf("persist settings: %w", err)
		}
	}

	s.settings = next

	logger.InfoKV(ctx, "Settings updated",
		"sensitivity", next.Sensitivity,
		"auto_resolve_timeout_minutes", next.AutoResolveTimeoutMinutes,
		"notification_sounds", next.NotificationSounds,
		"keywords", len(next.DetectKeywords),
	)

	return next.Clone(), nil
}
