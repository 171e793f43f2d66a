package port

import (
	"github.com/nerrad567/homenet-bridge/internal/automation"
	"github.com/nerrad567/homenet-bridge/internal/entity"
	"github.com/nerrad567/homenet-bridge/internal/transport"
)

// Config describes one configured port, per spec §2.1's Ports config
// section (serial/tcp transport, packet_defaults, devices, entities) plus
// the automations/scripts that run against it.
type Config struct {
	// ID is the port's identifier, used in every MQTT topic this port
	// publishes or subscribes to (<prefix>/<portId>/...).
	ID string

	// TopicPrefix is the bridge-wide configured MQTT topic prefix (spec
	// §6), e.g. "homenet".
	TopicPrefix string

	Transport transport.Config
	Defaults  entity.ProtocolDefaults

	Entities []*entity.Entity
	Devices  []*entity.Device

	Automations []automation.AutomationConfig
	Scripts     []automation.ScriptConfig

	// ReconnectBackoffMin/Max bound the supervisor's exponential backoff
	// between transport reconnect attempts (spec §7: "TransportError ...
	// port enters reconnecting; exponential backoff up to cap"). Zero
	// values fall back to defaultReconnectBackoffMin/Max.
	ReconnectBackoffMin int // milliseconds
	ReconnectBackoffMax int // milliseconds
}

// devicesByID indexes cfg.Devices by ID for discovery.Manager and the
// command/state pipeline.
func (cfg Config) devicesByID() map[string]*entity.Device {
	out := make(map[string]*entity.Device, len(cfg.Devices))
	for _, d := range cfg.Devices {
		out[d.ID] = d
	}
	return out
}

// commandNames collects every "command_<name>" rule key present across
// cfg's entities, unioned with celx.DefaultCommandNames so a vendor- or
// deployment-specific command name still gets a CEL function binding
// (see celx.BuildEnv's doc comment).
func (cfg Config) commandNames(defaults []string) []string {
	seen := make(map[string]bool, len(defaults))
	out := make([]string, 0, len(defaults))
	for _, n := range defaults {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	const prefix = "command_"
	for _, e := range cfg.Entities {
		for key := range e.Rules {
			if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
				continue
			}
			name := key[len(prefix):]
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}
