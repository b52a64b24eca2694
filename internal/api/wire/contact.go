package wire

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/echopulse/internal/domain/contact"
)

// ContactFields encodes a contact.
func ContactFields(c *contact.Contact) map[string]any {
	return map[string]any{
		"id":           c.ID,
		"name":         c.Name,
		"phone":        c.Phone,
		"relationship": c.Relationship,
		"is_primary":   c.IsPrimary,
	}
}

// ToContact decodes a contact.
func ToContact(s *structpb.Struct) *contact.Contact {
	return &contact.Contact{
		ID:           String(s, "id"),
		Name:         String(s, "name"),
		Phone:        String(s, "phone"),
		Relationship: String(s, "relationship"),
		IsPrimary:    Bool(s, "is_primary"),
	}
}

// Contact encodes a single contact message.
func Contact(c *contact.Contact) (*structpb.Struct, error) {
	return Message(ContactFields(c))
}

// Contacts encodes an ordered contact list as {"contacts": [...]}.
func Contacts(contacts []*contact.Contact) (*structpb.Struct, error) {
	items := make([]any, 0, len(contacts))
	for _, c := range contacts {
		items = append(items, ContactFields(c))
	}

	return Message(map[string]any{"contacts": items})
}

// ToContacts decodes the list produced by Contacts.
func ToContacts(s *structpb.Struct) []*contact.Contact {
	items := Structs(s, "contacts")
	result := make([]*contact.Contact, 0, len(items))

	for _, item := range items {
		result = append(result, ToContact(item))
	}

	return result
}

// ToContactUpdate decodes an update request. Absent fields stay nil.
func ToContactUpdate(s *structpb.Struct) contact.Update {
	return contact.Update{
		Name:         OptionalString(s, "name"),
		Phone:        OptionalString(s, "phone"),
		Relationship: OptionalString(s, "relationship"),
		MakePrimary:  Bool(s, "make_primary"),
	}
}

// ContactUpdateFields encodes an update request, leaving nil fields out.
func ContactUpdateFields(id string, upd contact.Update) map[string]any {
	fields := map[string]any{
		"id":           id,
		"make_primary": upd.MakePrimary,
	}

	if upd.Name != nil {
		fields["name"] = *upd.Name
	}

	if upd.Phone != nil {
		fields["phone"] = *upd.Phone
	}

	if upd.Relationship != nil {
		fields["relationship"] = *upd.Relationship
	}

	return fields
}
