package celx

// CommandIntent is the opaque value produced by id(entityId).command_name(value)
// per spec §4.2's design note: "the evaluator ... returns an opaque
// command-intent value that the action executor recognizes and routes
// through the command manager." Callers (internal/automation) type-assert
// an evaluation result against this shape before dispatching it.
type CommandIntent struct {
	EntityID string
	Command  string
	Value    any
	HasValue bool
}

// intentKey marks the map produced by a command_<name> call so AsIntent can
// distinguish it from an ordinary map-valued CEL result.
const intentKey = "__homenet_command_intent__"

func newIntentMap(entityID, command string, value any, hasValue bool) map[string]any {
	return map[string]any{
		intentKey:   true,
		"entity_id": entityID,
		"command":   command,
		"value":     value,
		"has_value": hasValue,
	}
}

// AsIntent reports whether v is a command-intent value and, if so, decodes it.
func AsIntent(v any) (CommandIntent, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return CommandIntent{}, false
	}
	if marker, ok := m[intentKey].(bool); !ok || !marker {
		return CommandIntent{}, false
	}
	entityID, _ := m["entity_id"].(string)
	command, _ := m["command"].(string)
	hasValue, _ := m["has_value"].(bool)
	return CommandIntent{
		EntityID: entityID,
		Command:  command,
		Value:    m["value"],
		HasValue: hasValue,
	}, true
}

// PacketResult is the command-construction counterpart from spec §4.2:
// "a returned byte-array is interpreted as a command packet body; a
// returned object {packet, ack} is a command with an explicit expected
// ACK Schema." Command-building CEL expressions (command_<name> on an
// entity, as opposed to automation action CEL) return one of these shapes.
type PacketResult struct {
	Packet   []byte
	AckMatch []byte // raw bytes of an ack-matching schema window, if present
	HasAck   bool
}

// AsPacketResult decodes a command-building CEL expression's evaluated
// result per spec §4.2: a bare list of byte values is the packet body with
// no explicit ack; a map with "packet" (and optional "ack") keys carries
// both.
func AsPacketResult(v any) (PacketResult, bool) {
	if m, ok := v.(map[string]any); ok {
		packet, ok := toByteSlice(m["packet"])
		if !ok {
			return PacketResult{}, false
		}
		ack, hasAck := toByteSlice(m["ack"])
		return PacketResult{Packet: packet, AckMatch: ack, HasAck: hasAck}, true
	}
	if packet, ok := toByteSlice(v); ok {
		return PacketResult{Packet: packet}, true
	}
	return PacketResult{}, false
}

// toByteSlice converts a CEL list-of-int evaluation result to []byte.
// cel-go's native conversion for a ListType(IntType) literal yields either
// []byte directly or a []any of integer-like elements, depending on how
// the value was constructed; both are handled.
func toByteSlice(v any) ([]byte, bool) {
	switch vv := v.(type) {
	case nil:
		return nil, false
	case []byte:
		return vv, true
	case []any:
		out := make([]byte, len(vv))
		for i, elem := range vv {
			b, ok := toByteVal(elem)
			if !ok {
				return nil, false
			}
			out[i] = b
		}
		return out, true
	case []int64:
		out := make([]byte, len(vv))
		for i, n := range vv {
			out[i] = byte(n)
		}
		return out, true
	default:
		return nil, false
	}
}

func toByteVal(v any) (byte, bool) {
	switch n := v.(type) {
	case int64:
		return byte(n), true
	case int:
		return byte(n), true
	case float64:
		return byte(n), true
	default:
		return 0, false
	}
}
