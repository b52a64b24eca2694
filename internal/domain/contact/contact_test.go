package contact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestContactClone verifies that Clone returns a copy and handles nil safely.
func TestContactClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Contact)(nil).Clone())

	c := &Contact{
		ID:           "c-1",
		Name:         "Jane Smith",
		Phone:        "+1 (555) 123-4567",
		Relationship: "Family",
		IsPrimary:    true,
	}

	cloned := c.Clone()

	require.Equal(t, c, cloned)
	require.NotSame(t, c, cloned)
}

// TestContactSnapshot ensures the snapshot is detached from later edits.
func TestContactSnapshot(t *testing.T) {
	t.Parallel()

	c := &Contact{
		ID:           "c-1",
		Name:         "Jane Smith",
		Phone:        "+1 (555) 123-4567",
		Relationship: "Family",
	}

	snapshot := c.Snapshot()
	c.Name = "Jane Doe"

	require.Equal(t, "Jane Smith", snapshot.Name)
	require.Equal(t, c.ID, snapshot.ID)
	require.Equal(t, c.Phone, snapshot.Phone)
}
