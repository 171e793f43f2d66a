// Package entity defines the declarative entity catalog: the discriminated
// union of device types a port engine exposes, each carrying a family of
// state_* / command_* fields that are either a schema.Schema or a sandboxed
// CEL expression, plus the per-type state normalization rules (climate
// modes, valve motion, fan percentage, position clamping) applied after
// raw extraction.
package entity
