package roster

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/echopulse/internal/domain/contact"
	"github.com/oshokin/echopulse/internal/domain/failure"
)

var errTestSave = errors.New("test save error")

// memoryRepository is a minimal in-memory Repository implementation for tests.
type memoryRepository struct {
	// loaded is returned from Load.
	loaded []*contact.Contact
	// loadErr is the error to return from Load.
	loadErr error
	// saveErr is the error to return from Save.
	saveErr error
	// saved stores the last roster passed to Save.
	saved []*contact.Contact
	// saves counts successful Save calls.
	saves int
}

func (m *memoryRepository) Load(context.Context) ([]*contact.Contact, error) {
	return m.loaded, m.loadErr
}

func (m *memoryRepository) Save(_ context.Context, contacts []*contact.Contact) error {
	if m.saveErr != nil {
		return m.saveErr
	}

	m.saved = contacts
	m.saves++

	return nil
}

// sequentialIDs returns an ID generator producing c-1, c-2, ...
func sequentialIDs() func() string {
	var n int

	return func() string {
		n++

		return fmt.Sprintf("c-%d", n)
	}
}

func newTestRoster(t *testing.T, opts ...Option) *Roster {
	t.Helper()

	r, err := New(context.Background(), append([]Option{WithIDGenerator(sequentialIDs())}, opts...)...)
	require.NoError(t, err)

	return r
}

// requireInvariant asserts 0 contacts with no primary, or exactly one primary.
func requireInvariant(t *testing.T, contacts []*contact.Contact) {
	t.Helper()

	primaries := 0

	for _, c := range contacts {
		if c.IsPrimary {
			primaries++
		}
	}

	if len(contacts) == 0 {
		require.Zero(t, primaries)

		return
	}

	require.Equal(t, 1, primaries)
	require.True(t, contacts[0].IsPrimary, "primary must be listed first")
}

// TestAdd_FirstContactIsForcedPrimary checks the first contact becomes primary regardless of the flag.
func TestAdd_FirstContactIsForcedPrimary(t *testing.T) {
	t.Parallel()

	r := newTestRoster(t)

	c, err := r.Add(context.Background(), "Jane Smith", "+1 (555) 123-4567", "Family", false)
	require.NoError(t, err)
	require.True(t, c.IsPrimary)

	second, err := r.Add(context.Background(), "John Doe", "+1 (555) 987-6543", "Friend", false)
	require.NoError(t, err)
	require.False(t, second.IsPrimary)

	requireInvariant(t, r.ListOrdered())
}

// TestAdd_Validation rejects empty name or phone.
func TestAdd_Validation(t *testing.T) {
	t.Parallel()

	r := newTestRoster(t)

	_, err := r.Add(context.Background(), " ", "+1", "Family", false)
	require.ErrorIs(t, err, failure.ErrValidation)

	_, err = r.Add(context.Background(), "Jane", "", "Family", false)
	require.ErrorIs(t, err, failure.ErrValidation)

	require.Zero(t, r.Len())
}

// TestListOrdered_PrimaryFirstThenInsertionOrder follows add(A), add(B, primary), add(C).
func TestListOrdered_PrimaryFirstThenInsertionOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRoster(t)

	_, err := r.Add(ctx, "A", "1", "", false)
	require.NoError(t, err)
	_, err = r.Add(ctx, "B", "2", "", true)
	require.NoError(t, err)
	_, err = r.Add(ctx, "C", "3", "", false)
	require.NoError(t, err)

	ordered := r.ListOrdered()
	require.Len(t, ordered, 3)
	require.Equal(t, []string{"B", "A", "C"}, []string{ordered[0].Name, ordered[1].Name, ordered[2].Name})
	requireInvariant(t, ordered)
}

// TestRemove_PrimaryProtection covers the protected and the lone-primary cases.
func TestRemove_PrimaryProtection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRoster(t)

	primary, err := r.Add(ctx, "Jane", "1", "Family", false)
	require.NoError(t, err)
	other, err := r.Add(ctx, "John", "2", "Friend", false)
	require.NoError(t, err)

	require.ErrorIs(t, r.Remove(ctx, primary.ID), failure.ErrPrimaryContactProtected)
	require.Equal(t, 2, r.Len())

	// Removing a non-primary leaves the primary untouched.
	require.NoError(t, r.Remove(ctx, other.ID))

	got, err := r.Get(primary.ID)
	require.NoError(t, err)
	require.True(t, got.IsPrimary)

	// The lone primary can be removed.
	require.NoError(t, r.Remove(ctx, primary.ID))
	require.Zero(t, r.Len())
	requireInvariant(t, r.ListOrdered())

	require.ErrorIs(t, r.Remove(ctx, primary.ID), failure.ErrNotFound)
}

// TestSetPrimary transfers primary status and reports unknown ids.
func TestSetPrimary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRoster(t)

	_, err := r.Add(ctx, "Jane", "1", "", false)
	require.NoError(t, err)
	john, err := r.Add(ctx, "John", "2", "", false)
	require.NoError(t, err)

	require.NoError(t, r.SetPrimary(ctx, john.ID))

	ordered := r.ListOrdered()
	require.Equal(t, john.ID, ordered[0].ID)
	requireInvariant(t, ordered)

	require.ErrorIs(t, r.SetPrimary(ctx, "missing"), failure.ErrNotFound)
}

// TestUpdate covers field edits, primary transfer, validation and unknown ids.
func TestUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRoster(t)

	jane, err := r.Add(ctx, "Jane", "1", "Family", false)
	require.NoError(t, err)
	john, err := r.Add(ctx, "John", "2", "Friend", false)
	require.NoError(t, err)

	name := "Johnny"
	updated, err := r.Update(ctx, john.ID, contact.Update{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Johnny", updated.Name)
	require.Equal(t, "2", updated.Phone)
	require.False(t, updated.IsPrimary)

	updated, err = r.Update(ctx, john.ID, contact.Update{MakePrimary: true})
	require.NoError(t, err)
	require.True(t, updated.IsPrimary)

	got, err := r.Get(jane.ID)
	require.NoError(t, err)
	require.False(t, got.IsPrimary)

	empty := ""
	_, err = r.Update(ctx, jane.ID, contact.Update{Phone: &empty})
	require.ErrorIs(t, err, failure.ErrValidation)

	_, err = r.Update(ctx, "missing", contact.Update{Name: &name})
	require.ErrorIs(t, err, failure.ErrNotFound)

	requireInvariant(t, r.ListOrdered())
}

// TestListOrdered_ReturnsCopies ensures callers cannot mutate the roster.
func TestListOrdered_ReturnsCopies(t *testing.T) {
	t.Parallel()

	r := newTestRoster(t)

	_, err := r.Add(context.Background(), "Jane", "1", "", false)
	require.NoError(t, err)

	r.ListOrdered()[0].IsPrimary = false

	requireInvariant(t, r.ListOrdered())
}

// TestInvariant_RandomOperations applies random operations and checks the invariant after each one.
func TestInvariant_RandomOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRoster(t)
	rng := rand.New(rand.NewPCG(1, 2)) //nolint:gosec // Deterministic test input.

	pick := func() string {
		contacts := r.ListOrdered()
		if len(contacts) == 0 {
			return "missing"
		}

		return contacts[rng.IntN(len(contacts))].ID
	}

	for i := range 500 {
		switch rng.IntN(4) {
		case 0:
			_, _ = r.Add(ctx, fmt.Sprintf("n%d", i), "1", "", rng.IntN(2) == 0)
		case 1:
			_ = r.Remove(ctx, pick())
		case 2:
			_ = r.SetPrimary(ctx, pick())
		case 3:
			_, _ = r.Update(ctx, pick(), contact.Update{MakePrimary: rng.IntN(2) == 0})
		}

		requireInvariant(t, r.ListOrdered())
	}
}

// TestConcurrentMutations runs writers and readers in parallel; readers never see two primaries.
func TestConcurrentMutations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, err := New(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup

	for i := range 8 {
		wg.Go(func() {
			for j := range 50 {
				c, err := r.Add(ctx, fmt.Sprintf("w%d-%d", i, j), "1", "", j%3 == 0)
				if err == nil && j%5 == 0 {
					_ = r.SetPrimary(ctx, c.ID)
				}
			}
		})
	}

	errs := make(chan error, 4)

	for range 4 {
		wg.Go(func() {
			for range 200 {
				primaries := 0

				for _, c := range r.ListOrdered() {
					if c.IsPrimary {
						primaries++
					}
				}

				if primaries > 1 {
					errs <- fmt.Errorf("observed %d primaries", primaries)

					return
				}
			}
		})
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, 400, r.Len())
	requireInvariant(t, r.ListOrdered())
}

// TestRepository_LoadSaveAndRollback verifies loading, persistence and rollback on save failure.
func TestRepository_LoadSaveAndRollback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := &memoryRepository{
		loaded: []*contact.Contact{
			{ID: "x", Name: "Jane", Phone: "1", IsPrimary: true},
		},
	}

	r := newTestRoster(t, WithRepository(repo))
	require.Equal(t, 1, r.Len())

	_, err := r.Add(ctx, "John", "2", "", true)
	require.NoError(t, err)
	require.Equal(t, 1, repo.saves)
	require.Len(t, repo.saved, 2)

	repo.saveErr = errTestSave

	_, err = r.Add(ctx, "Jim", "3", "", false)
	require.ErrorIs(t, err, errTestSave)
	require.Equal(t, 2, r.Len())

	require.Error(t, r.SetPrimary(ctx, "x"))
	require.Equal(t, "John", r.ListOrdered()[0].Name)
}

// TestNew_LoadErrors keeps an empty roster on a missing snapshot and fails on other errors.
func TestNew_LoadErrors(t *testing.T) {
	t.Parallel()

	r, err := New(context.Background(), WithRepository(&memoryRepository{loadErr: ErrNoSnapshot}))
	require.NoError(t, err)
	require.Zero(t, r.Len())

	r, err = New(context.Background(), WithRepository(&memoryRepository{loadErr: errTestSave}))
	require.Error(t, err)
	require.Nil(t, r)
}

// TestNew_RepairsLoadedRoster fixes stored rosters with zero or several primaries.
func TestNew_RepairsLoadedRoster(t *testing.T) {
	t.Parallel()

	noPrimary := &memoryRepository{loaded: []*contact.Contact{
		{ID: "a", Name: "A", Phone: "1"},
		{ID: "b", Name: "B", Phone: "2"},
	}}

	r := newTestRoster(t, WithRepository(noPrimary))
	ordered := r.ListOrdered()
	requireInvariant(t, ordered)
	require.Equal(t, "a", ordered[0].ID)

	twoPrimaries := &memoryRepository{loaded: []*contact.Contact{
		{ID: "a", Name: "A", Phone: "1"},
		{ID: "b", Name: "B", Phone: "2", IsPrimary: true},
		{ID: "c", Name: "C", Phone: "3", IsPrimary: true},
	}}

	r = newTestRoster(t, WithRepository(twoPrimaries))
	ordered = r.ListOrdered()
	requireInvariant(t, ordered)
	require.Equal(t, "b", ordered[0].ID)
}
