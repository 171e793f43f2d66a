// Package state implements the per-port state manager from spec §4.4: it
// merges parser updates into a per-entity snapshot, computes the diff,
// deduplicates unchanged publishes, and emits a retained MQTT publish plus
// a state:changed event bus message on every genuine change.
package state
