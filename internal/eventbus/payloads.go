package eventbus

import "github.com/nerrad567/homenet-bridge/internal/entity"

// StateChangedPayload is published on TopicStateChanged by a port's
// state.Manager (via a thin adapter satisfying state.EventBus), per
// spec §3: "state:changed {portId, entityId, state, oldState, changes}".
type StateChangedPayload struct {
	PortID   string
	EntityID string
	State    entity.State
	OldState entity.State
	Changes  entity.State
}

// RawDataPayload is published on TopicRawData for every framed packet,
// independent of entity matching — a diagnostic tap.
type RawDataPayload struct {
	PortID     string
	PayloadHex string
}

// RawDataIntervalPayload is published on TopicRawDataInterval, adding the
// inter-packet arrival gap to RawDataPayload (spec §9 "Packet-interval
// raw tap").
type RawDataIntervalPayload struct {
	PortID     string
	PayloadHex string
	IntervalMS int64
}

// PacketPayload is published on TopicPacket: the framer-local event
// carrying one matched (or unmatched) packet body.
type PacketPayload struct {
	PortID string
	Body   []byte
}

// MQTTMessagePayload is published on TopicMQTTMessage for every inbound
// command-topic MQTT message, independent of which entity it targets.
type MQTTMessagePayload struct {
	Topic   string
	Payload []byte
}

// CommandPacketPayload is published on TopicCommandPacket whenever the
// command manager writes a packet to the bus.
type CommandPacketPayload struct {
	PortID   string
	EntityID string
	Packet   []byte
}

// EntityRenamedPayload is published on TopicEntityRenamed, consumed by
// discovery.Manager.OnRename.
type EntityRenamedPayload struct {
	PortID   string
	EntityID string
	OldName  string
	NewName  string
}

// AutomationGuardPayload is published on TopicAutomationGuard after every
// guard evaluation, for observability.
type AutomationGuardPayload struct {
	AutomationID string
	Expression   string
	Passed       bool
}

// AutomationActionPayload is published on TopicAutomationAction for every
// executed automation action.
type AutomationActionPayload struct {
	AutomationID string
	ActionType   string
}

// ScriptActionPayload is published on TopicScriptAction for every
// executed script action.
type ScriptActionPayload struct {
	ScriptID   string
	ActionType string
}
