package roster

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/oshokin/echopulse/internal/domain/contact"
	"github.com/oshokin/echopulse/internal/domain/failure"
	"github.com/oshokin/echopulse/internal/logger"
)

// Repository persists the roster between restarts.
type Repository interface {
	Load(ctx context.Context) ([]*contact.Contact, error)
	Save(ctx context.Context, contacts []*contact.Contact) error
}

// ErrNoSnapshot is returned by a Repository that has nothing stored yet.
var ErrNoSnapshot = errors.New("roster snapshot not found")

// errInvariantBroken signals a bug: a mutation produced an invalid roster.
var errInvariantBroken = errors.New("roster must have exactly one primary contact")

// Roster is the set of emergency contacts with exactly one primary when non-empty.
type Roster struct {
	// repo is optional; nil keeps the roster in memory only.
	repo Repository
	// contacts is kept in insertion order and replaced as a whole on mutation.
	contacts []*contact.Contact
	// newID generates contact identifiers.
	newID func() string
	mu    sync.RWMutex
}

// Option configures a Roster.
type Option func(*Roster)

// WithRepository persists every successful mutation through repo.
func WithRepository(repo Repository) Option {
	return func(r *Roster) {
		r.repo = repo
	}
}

// WithIDGenerator overrides the UUID generator, mostly for tests.
func WithIDGenerator(newID func() string) Option {
	return func(r *Roster) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// New creates a roster and loads the stored snapshot, if a repository is configured.
func New(ctx context.Context, opts ...Option) (*Roster, error) {
	r := &Roster{
		newID: uuid.NewString,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.repo == nil {
		return r, nil
	}

	loaded, err := r.repo.Load(ctx)
	switch {
	case err == nil:
		r.contacts = repair(ctx, loaded)
	case errors.Is(err, ErrNoSnapshot):
		// Start empty.
	default:
		return nil, fmt.Errorf("load roster: %w", err)
	}

	return r, nil
}

// Add inserts a new contact. The first contact of an empty roster is always primary;
// otherwise requestedPrimary moves primary status to the new contact.
func (r *Roster) Add(
	ctx context.Context,
	name, phone, relationship string,
	requestedPrimary bool,
) (*contact.Contact, error) {
	name, phone, relationship = strings.TrimSpace(name), strings.TrimSpace(phone), strings.TrimSpace(relationship)

	if err := validate(name, phone); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	added := &contact.Contact{
		ID:           r.newID(),
		Name:         name,
		Phone:        phone,
		Relationship: relationship,
		IsPrimary:    requestedPrimary || len(r.contacts) == 0,
	}

	next := cloneAll(r.contacts)
	if added.IsPrimary {
		clearPrimary(next)
	}

	next = append(next, added)

	if err := r.commit(ctx, next); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Contact added", "contact_id", added.ID, "is_primary", added.IsPrimary)

	return added.Clone(), nil
}

// Update changes the descriptive fields of a contact and, when requested,
// transfers primary status to it. It never demotes the current primary.
func (r *Roster) Update(ctx context.Context, id string, upd contact.Update) (*contact.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := cloneAll(r.contacts)

	idx := indexOf(next, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: contact %q", failure.ErrNotFound, id)
	}

	target := next[idx]
	if upd.Name != nil {
		target.Name = strings.TrimSpace(*upd.Name)
	}

	if upd.Phone != nil {
		target.Phone = strings.TrimSpace(*upd.Phone)
	}

	if upd.Relationship != nil {
		target.Relationship = strings.TrimSpace(*upd.Relationship)
	}

	if err := validate(target.Name, target.Phone); err != nil {
		return nil, err
	}

	if upd.MakePrimary {
		clearPrimary(next)
		target.IsPrimary = true
	}

	if err := r.commit(ctx, next); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Contact updated", "contact_id", id, "is_primary", target.IsPrimary)

	return target.Clone(), nil
}

// Remove deletes a contact. The primary contact can only be removed when it is the last one.
func (r *Roster) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := indexOf(r.contacts, id)
	if idx < 0 {
		return fmt.Errorf("%w: contact %q", failure.ErrNotFound, id)
	}

	if r.contacts[idx].IsPrimary && len(r.contacts) > 1 {
		return fmt.Errorf("%w: assign another primary before removing %q",
			failure.ErrPrimaryContactProtected, r.contacts[idx].Name)
	}

	next := slices.Delete(cloneAll(r.contacts), idx, idx+1)

	if err := r.commit(ctx, next); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Contact removed", "contact_id", id, "remaining", len(next))

	return nil
}

// SetPrimary makes the contact the only primary one.
func (r *Roster) SetPrimary(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := cloneAll(r.contacts)

	idx := indexOf(next, id)
	if idx < 0 {
		return fmt.Errorf("%w: contact %q", failure.ErrNotFound, id)
	}

	clearPrimary(next)
	next[idx].IsPrimary = true

	if err := r.commit(ctx, next); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Primary contact updated", "contact_id", id)

	return nil
}

// ListOrdered returns copies of all contacts, the primary first and the rest in insertion order.
// This is the order notifications are sent in.
func (r *Roster) ListOrdered() []*contact.Contact {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ordered := make([]*contact.Contact, 0, len(r.contacts))

	for _, c := range r.contacts {
		if c.IsPrimary {
			ordered = append(ordered, c.Clone())
		}
	}

	for _, c := range r.contacts {
		if !c.IsPrimary {
			ordered = append(ordered, c.Clone())
		}
	}

	return ordered
}

// Get returns a copy of the contact with the given id.
func (r *Roster) Get(id string) (*contact.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := indexOf(r.contacts, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: contact %q", failure.ErrNotFound, id)
	}

	return r.contacts[idx].Clone(), nil
}

// Len returns the number of contacts.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.contacts)
}

// commit checks the invariant, persists and publishes the next state.
// Callers must hold the write lock.
func (r *Roster) commit(ctx context.Context, next []*contact.Contact) error {
	if !holdsInvariant(next) {
		return errInvariantBroken
	}

	if r.repo != nil {
		if err := r.repo.Save(ctx, next); err != nil {
			logger.ErrorKV(ctx, "Failed to persist roster", "error", err)

			return fmt.Errorf("persist roster: %w", err)
		}
	}

	r.contacts = next

	return nil
}

func validate(name, phone string) error {
	if name == "" {
		return fmt.Errorf("%w: contact name is required", failure.ErrValidation)
	}

	if phone == "" {
		return fmt.Errorf("%w: contact phone is required", failure.ErrValidation)
	}

	return nil
}

// holdsInvariant reports whether the roster is empty or has exactly one primary.
func holdsInvariant(contacts []*contact.Contact) bool {
	primaries := 0

	for _, c := range contacts {
		if c.IsPrimary {
			primaries++
		}
	}

	if len(contacts) == 0 {
		return primaries == 0
	}

	return primaries == 1
}

// repair restores the invariant on a loaded snapshot: the first primary wins,
// and the first contact is promoted when none is primary.
func repair(ctx context.Context, loaded []*contact.Contact) []*contact.Contact {
	contacts := cloneAll(loaded)
	if holdsInvariant(contacts) {
		return contacts
	}

	logger.WarnKV(ctx, "Stored roster breaks the primary invariant, repairing", "contacts", len(contacts))

	seen := false

	for _, c := range contacts {
		if c.IsPrimary && !seen {
			seen = true

			continue
		}

		c.IsPrimary = false
	}

	if !seen && len(contacts) > 0 {
		contacts[0].IsPrimary = true
	}

	return contacts
}

func clearPrimary(contacts []*contact.Contact) {
	for _, c := range contacts {
		c.IsPrimary = false
	}
}

func indexOf(contacts []*contact.Contact, id string) int {
	return slices.IndexFunc(contacts, func(c *contact.Contact) bool {
		return c.ID == id
	})
}

func cloneAll(contacts []*contact.Contact) []*contact.Contact {
	cloned := make([]*contact.Contact, 0, len(contacts)+1)
	for _, c := range contacts {
		cloned = append(cloned, c.Clone())
	}

	return cloned
}
