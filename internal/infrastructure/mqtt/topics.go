package mqtt

import "fmt"

// bridgeStatusTopic returns the retained availability topic every Home
// Assistant discovery payload's "availability" block points at
// (discovery.PublishBridgeOnline, discovery/manager.go topicsFor). The MQTT
// client uses the same topic for its Last Will, so an unexpected
// disconnect flips it to "offline" without any other package's help.
//
// Per-port and per-entity topics ("<prefix>/<portId>/<entityId>/state",
// ".../set", "homeassistant/<component>/.../config", ...) are built by the
// state, discovery, and command packages directly against the entities
// and ports they own; this package only needs the one bridge-wide topic.
func bridgeStatusTopic(topicPrefix string) string {
	return fmt.Sprintf("%s/bridge/status", topicPrefix)
}
