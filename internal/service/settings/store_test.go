package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/echopulse/internal/domain/failure"
	domain "github.com/oshokin/echopulse/internal/domain/settings"
)

var errTestSave = errors.New("test save error")

func ptr[T any](v T) *T {
	return &v
}

// TestNewStore_RejectsInvalidSettings refuses to start from a broken seed.
func TestNewStore_RejectsInvalidSettings(t *testing.T) {
	t.Parallel()

	initial := domain.Default()
	initial.AutoResolveTimeoutMinutes = 0

	store, err := NewStore(initial)
	require.ErrorIs(t, err, failure.ErrValidation)
	require.Nil(t, store)
}

// TestStore_Update applies only the provided fields.
func TestStore_Update(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	store, err := NewStore(domain.Default())
	require.NoError(t, err)
	require.Equal(t, 30*time.Minute, store.AutoResolveTimeout())

	updated, err := store.Update(ctx, Update{AutoResolveTimeoutMinutes: ptr(5)})
	require.NoError(t, err)
	require.Equal(t, 5, updated.AutoResolveTimeoutMinutes)
	require.Equal(t, domain.SensitivityMedium, updated.Sensitivity)
	require.Equal(t, 5*time.Minute, store.AutoResolveTimeout())

	updated, err = store.Update(ctx, Update{
		Sensitivity:        ptr(domain.Sensitivity("HIGH")),
		NotificationSounds: ptr(false),
	})
	require.NoError(t, err)
	require.Equal(t, domain.SensitivityHigh, updated.Sensitivity)
	require.False(t, updated.NotificationSounds)
	require.Equal(t, 5, updated.AutoResolveTimeoutMinutes)

	_, err = store.Update(ctx, Update{AutoResolveTimeoutMinutes: ptr(0)})
	require.ErrorIs(t, err, failure.ErrValidation)

	_, err = store.Update(ctx, Update{AutoResolveTimeoutMinutes: ptr(200_000_000)})
	require.ErrorIs(t, err, failure.ErrValidation)
	require.Equal(t, 5*time.Minute, store.AutoResolveTimeout())

	_, err = store.Update(ctx, Update{Sensitivity: ptr(domain.Sensitivity("extreme"))})
	require.ErrorIs(t, err, failure.ErrValidation)

	require.Equal(t, updated, store.Get())
}

// TestStore_Keywords adds and removes keywords ignoring case.
func TestStore_Keywords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	store, err := NewStore(domain.Default())
	require.NoError(t, err)

	updated, err := store.AddKeyword(ctx, "  fire ")
	require.NoError(t, err)
	require.Equal(t, []string{"help", "emergency", "danger", "fire"}, updated.DetectKeywords)

	_, err = store.AddKeyword(ctx, "HELP")
	require.ErrorIs(t, err, failure.ErrValidation)

	_, err = store.AddKeyword(ctx, " ")
	require.ErrorIs(t, err, failure.ErrValidation)

	updated, err = store.RemoveKeyword(ctx, "Emergency")
	require.NoError(t, err)
	require.Equal(t, []string{"help", "danger", "fire"}, updated.DetectKeywords)

	_, err = store.RemoveKeyword(ctx, "emergency")
	require.ErrorIs(t, err, failure.ErrNotFound)
}

// TestStore_GetReturnsCopy keeps callers from mutating the stored keywords.
func TestStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	store, err := NewStore(domain.Default())
	require.NoError(t, err)

	got := store.Get()
	got.DetectKeywords[0] = "changed"

	require.Equal(t, "help", store.Get().DetectKeywords[0])
}

// TestStore_SaverFailureKeepsPreviousSettings rolls back when persistence fails.
func TestStore_SaverFailureKeepsPreviousSettings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	var (
		saved []domain.Settings
		fail  bool
	)

	store, err := NewStore(domain.Default(), WithSaver(func(_ context.Context, s domain.Settings) error {
		if fail {
			return errTestSave
		}

		saved = append(saved, s)

		return nil
	}))
	require.NoError(t, err)

	_, err = store.Update(ctx, Update{AutoResolveTimeoutMinutes: ptr(10)})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.Equal(t, 10, saved[0].AutoResolveTimeoutMinutes)

	fail = true

	_, err = store.Update(ctx, Update{AutoResolveTimeoutMinutes: ptr(20)})
	require.ErrorIs(t, err, errTestSave)
	require.Equal(t, 10, store.Get().AutoResolveTimeoutMinutes)
}
