package port

import "errors"

var (
	// ErrUnknownEntity is returned by DispatchCommand when no entity with
	// the given ID exists in this port's catalog.
	ErrUnknownEntity = errors.New("port: unknown entity")

	// ErrUnknownCommand is returned by DispatchCommand when the target
	// entity has no command_<name> rule for the requested command.
	ErrUnknownCommand = errors.New("port: unknown command")

	// ErrBadCommandValue is returned when a command value can't be
	// interpreted against the entity's command rule (schema or CEL).
	ErrBadCommandValue = errors.New("port: bad command value")

	// ErrUnroutableTopic names an inbound MQTT message whose topic doesn't
	// match this port's "<prefix>/<portId>/..." command shape. Nothing in
	// this package returns it: handleMQTTMessage ignores such messages.
	ErrUnroutableTopic = errors.New("port: unroutable command topic")
)
