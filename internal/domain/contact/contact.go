package contact

// Contact is a person notified when a distress alert is raised.
type Contact struct {
	// ID is the stable identifier, unique within the roster.
	ID string
	// Name is the display name.
	Name string
	// Phone is the number the delivery transport reaches the contact at.
	Phone string
	// Relationship is a free-form description (family, neighbor, doctor...).
	Relationship string
	// IsPrimary marks the contact notified first.
	IsPrimary bool
}

// Clone returns a copy of the contact.
func (c *Contact) Clone() *Contact {
	if c == nil {
		return nil
	}

	cloned := *c

	return &cloned
}

// Snapshot freezes the descriptive fields of the contact as they are right now.
func (c *Contact) Snapshot() Snapshot {
	return Snapshot{
		ID:           c.ID,
		Name:         c.Name,
		Phone:        c.Phone,
		Relationship: c.Relationship,
	}
}

// Snapshot is an immutable copy of a contact taken at notification time.
type Snapshot struct {
	ID           string
	Name         string
	Phone        string
	Relationship string
}

// Update lists the contact fields to change. Nil fields are left untouched.
type Update struct {
	Name         *string
	Phone        *string
	Relationship *string
	// MakePrimary transfers primary status to the contact.
	// Passing false never demotes the current primary.
	MakePrimary bool
}
