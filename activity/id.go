// Package activity provides the correlation identifiers attached to bind
// activities and an in-process tracker that mints and closes them.
package activity

import "github.com/google/uuid"

// ID is an opaque 128-bit activity identifier. IDs can only be compared for
// equality.
type ID uuid.UUID

// Null is the all-zero ID. It stands for "no activity".
var Null ID

// IsNull returns true if the ID is the Null ID.
func (id ID) IsNull() bool {
	return id == Null
}

// String returns the canonical textual form of the ID.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(data []byte) error {
	u := uuid.UUID{}

	err := u.UnmarshalText(data)
	if err != nil {
		return err
	}

	*id = ID(u)

	return nil
}

// Parse decodes an ID from its textual form. The empty string decodes to
// Null.
func Parse(s string) (ID, error) {
	if s == "" {
		return Null, nil
	}

	u, err := uuid.Parse(s)
	if err != nil {
		return Null, err
	}

	return ID(u), nil
}

// MustParse is like Parse but panics if the string cannot be parsed.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return id
}
