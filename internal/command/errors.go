package command

import "errors"

// Failure taxonomy per spec §4.5.
var (
	// ErrTransport wraps a write failure from the underlying transport.
	ErrTransport = errors.New("command: transport write failed")

	// ErrAckTimeout is returned when a single attempt (no retries configured)
	// never saw a matching ACK packet within tx_timeout.
	ErrAckTimeout = errors.New("command: ack wait timed out")

	// ErrMaxRetriesExceeded is returned when every retry attempt failed or
	// timed out.
	ErrMaxRetriesExceeded = errors.New("command: max retries exceeded")

	// ErrBadPacket is the sentinel callers should wrap around a packet
	// construction failure (e.g. schema.BuildCommandBody or a CEL command
	// evaluation error) before it ever reaches Manager.Send.
	ErrBadPacket = errors.New("command: cannot construct packet")
)
