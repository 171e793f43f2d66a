// Package mqtt provides MQTT client connectivity for the homenet-bridge.
//
// This package manages:
//   - Connection to the configured broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for bridge availability
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the bridge's only external interface: every port's state,
// discovery, command, and automation managers publish and subscribe
// through one shared *Client, under the "<prefix>/<portId>/<entityId>/..."
// and "homeassistant/..." topic trees built by those packages themselves.
//
//	RS-485/TCP homenet bus <-> port.Engine <-> MQTT Broker <-> Home Assistant
//
// # Availability
//
//   - Connect's Last Will publishes "offline" to "<prefix>/bridge/status"
//     (retained) if the client disconnects unexpectedly.
//   - On every successful connect the client republishes "online" to the
//     same topic, so subscribers see the bridge come back after a restart
//     or network blip.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Bridge.MQTTPrefix)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	sup, _ := cfg.ToSupervisorConfig()
//	port.NewSupervisor(sup, port.Deps{MQTT: client, Subscriber: client, Bus: bus, Log: logger})
package mqtt
