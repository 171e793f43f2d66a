// Package schema implements the declarative Schema match/extract/encode
// engine described in spec §3/§4.3: the non-CEL half of an entity's
// state_*/command_* fields.
//
// A Schema never widens its mask, never reads past the bytes it declares,
// and treats any out-of-range access as "no match" / "null extract" rather
// than a panic or error — callers (internal/entity) fall through to the
// next candidate schema or CEL expression on a non-match.
package schema
