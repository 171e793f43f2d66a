// Package port wires one RS-485/TCP bus connection to its declarative
// entity catalog, per spec §3's "Ownership/lifecycle": a port engine
// exclusively owns its open transport, its framer, its State, and its
// Command manager. It is the component that turns a byte stream into
// MQTT state publishes and MQTT command-topic messages into bus packets,
// gluing together internal/transport, internal/framer, internal/schema,
// internal/celx, internal/entity, internal/state, internal/command,
// internal/discovery, and internal/automation.
//
// Supervisor owns N port Engines plus the shared MQTT client and runs a
// restart-with-backoff loop (dial, run, wait-for-exit, backoff, retry)
// that supervises each transport connection, per spec §7's port status model (idle/starting/started/stopped/error/
// reconnecting) and error propagation rule ("errors never cross the
// port boundary").
package port
