package port

import (
	"strconv"
	"strings"

	"github.com/nerrad567/homenet-bridge/internal/entity"
)

// keywordCommands maps a generic "<prefix>/<portId>/<entityId>/set"
// payload to the command_<name> rule it invokes, per spec §6: "Entity
// generic command ... payload ON/OFF/OPEN/CLOSE/STOP/LOCK/UNLOCK/PRESS or
// literal value".
var keywordCommands = map[string]string{
	"ON":     "on",
	"OFF":    "off",
	"OPEN":   "open",
	"CLOSE":  "close",
	"STOP":   "stop",
	"LOCK":   "lock",
	"UNLOCK": "unlock",
	"PRESS":  "press",
}

// literalValueCommand names the command_<name> rule a generic /set
// topic's literal (non-keyword) payload is routed to, keyed by entity
// type, since the generic topic carries no attribute name of its own.
var literalValueCommand = map[entity.Type]string{
	entity.TypeNumber: "set_value",
	entity.TypeSelect: "select_option",
	entity.TypeText:   "set_text",
}

// parseCommandTopic splits an inbound MQTT topic against
// "<prefix>/<portId>/<entityId>[/<attr>]/set", returning the entity ID
// and attribute (empty for the generic command topic). ok is false for
// any topic not shaped this way (e.g. a foreign prefix, or the bridge's
// own state/discovery topics it never subscribes to).
func parseCommandTopic(prefix, portID, topic string) (entityID, attr string, ok bool) {
	parts := strings.Split(topic, "/")
	base := strings.Split(prefix, "/")
	base = append(base, portID)

	if len(parts) < len(base)+2 {
		return "", "", false
	}
	for i, seg := range base {
		if parts[i] != seg {
			return "", "", false
		}
	}
	rest := parts[len(base):]
	if rest[len(rest)-1] != "set" {
		return "", "", false
	}
	rest = rest[:len(rest)-1]

	switch len(rest) {
	case 1:
		return rest[0], "", true
	case 2:
		return rest[0], rest[1], true
	default:
		return "", "", false
	}
}

// resolveGenericCommand decodes a generic /set topic's payload into a
// command name and value per the keyword table, falling back to
// ent's type-specific literal-value command for any other payload.
func resolveGenericCommand(ent *entity.Entity, payload string) (command string, value any, hasValue bool) {
	if name, ok := keywordCommands[strings.ToUpper(strings.TrimSpace(payload))]; ok {
		return name, nil, false
	}
	name, ok := literalValueCommand[ent.Type]
	if !ok {
		name = "set_value"
	}
	return name, parseCommandValue(payload), true
}

// parseCommandValue converts a raw MQTT command payload to the most
// specific Go value it can: a float64 for numeric text, otherwise the
// trimmed string unchanged.
func parseCommandValue(payload string) any {
	trimmed := strings.TrimSpace(payload)
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return trimmed
}
