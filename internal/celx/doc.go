// Package celx is the sandboxed CEL expression executor used wherever spec
// §3 allows a state_*/command_* field to be a CEL expression instead of a
// schema.Schema. It exposes only the bindings spec §4.2 names (data, state,
// states, x, xstr, trigger, timestamp, id(...).command_<name>(...)) and
// compiles each distinct expression text once, caching the program for
// repeated evaluation.
package celx
