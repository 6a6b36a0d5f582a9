package inventory

import "errors"

// Domain errors for the inventory package.
var (
	// ErrNotFound is returned when no record matches a key or name.
	ErrNotFound = errors.New("inventory: device not found")

	// ErrNameTaken is returned when a name already belongs to another address.
	ErrNameTaken = errors.New("inventory: name already used by another device")

	// ErrInvalidRecord is returned when a record fails address or type validation.
	ErrInvalidRecord = errors.New("inventory: invalid record")
)
