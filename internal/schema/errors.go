package schema

import "errors"

// Sentinel errors for schema construction and encoding. Match/Extract
// themselves never return errors — an out-of-range or failing match simply
// yields false/nil, per spec §3 invariants ("out-of-range => no match").
var (
	// ErrInvalidDecode is returned when a Schema names an unrecognised decode kind.
	ErrInvalidDecode = errors.New("schema: invalid decode kind")

	// ErrInvalidEndian is returned when a Schema names an unrecognised endianness.
	ErrInvalidEndian = errors.New("schema: invalid endian")

	// ErrValueOutOfRange is returned when BuildCommandBody cannot represent
	// the supplied value in the schema's declared length/encoding.
	ErrValueOutOfRange = errors.New("schema: value out of range for encoding")

	// ErrNoValueOffset is returned when BuildCommandBody is called on a
	// Schema with an empty Data template.
	ErrNoValueOffset = errors.New("schema: no value_offset configured")
)
