// Package domain defines typed identifiers shared across the module.
//
// Distinct UUID wrapper types keep type ids and record ids from being
// swapped at call sites; the compiler enforces what a naked uuid.UUID
// could not.
package domain

import (
	"github.com/google/uuid"

	dErrors "masters/pkg/domain-errors"
)

// TypeID identifies a master type definition.
type TypeID uuid.UUID

// RecordID identifies a single master data record.
type RecordID uuid.UUID

// NewTypeID generates a fresh random TypeID.
func NewTypeID() TypeID { return TypeID(uuid.New()) }

// NewRecordID generates a fresh random RecordID.
func NewRecordID() RecordID { return RecordID(uuid.New()) }

func (id TypeID) String() string { return uuid.UUID(id).String() }

func (id TypeID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the id as its canonical UUID string, so JSON
// payloads and cache entries stay human-readable.
func (id TypeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *TypeID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = TypeID(u)
	return nil
}

func (id RecordID) String() string { return uuid.UUID(id).String() }

func (id RecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id RecordID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *RecordID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = RecordID(u)
	return nil
}

// ParseTypeID parses a textual type id. IDs must be valid, non-nil UUIDs.
func ParseTypeID(s string) (TypeID, error) {
	u, err := parse(s)
	if err != nil {
		return TypeID{}, err
	}
	return TypeID(u), nil
}

// ParseRecordID parses a textual record id. IDs must be valid, non-nil UUIDs.
func ParseRecordID(s string) (RecordID, error) {
	u, err := parse(s)
	if err != nil {
		return RecordID{}, err
	}
	return RecordID(u), nil
}

func parse(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id must not be the nil UUID")
	}
	return u, nil
}
