package entity

import "errors"

var (
	// ErrUnknownType is returned when an entity declares an unrecognised type.
	ErrUnknownType = errors.New("entity: unknown type")

	// ErrMissingStateRule is returned when an entity lacks the mandatory
	// primary "state" match rule required by spec §4.3 step 4.
	ErrMissingStateRule = errors.New("entity: missing mandatory state rule")

	// ErrDuplicateID is returned when two entities on the same port share an ID.
	ErrDuplicateID = errors.New("entity: duplicate id within port")
)
