// Package discovery implements the Home Assistant MQTT Discovery manager
// from spec §4.6: per-entity-type config payloads, deferred publish until
// an entity's first state change (or discovery_always/discovery_linked_id
// overrides), and the clear-then-republish rename flow.
package discovery
