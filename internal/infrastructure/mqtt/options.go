package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/homenet-bridge/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// buildClientOptions creates paho MQTT options from the bridge's config.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - Client ID for identification
//   - Authentication credentials (if provided)
//   - Auto-reconnect with exponential backoff
//   - TLS configuration (if enabled)
//   - Clean session mode
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	// Broker URL. cfg.Broker.URL (set verbatim via MQTT_URL) takes
	// precedence over Host/Port/TLS per config.Load's documented precedence.
	brokerURL := cfg.Broker.URL
	if brokerURL == "" {
		scheme := "tcp"
		if cfg.Broker.TLS {
			scheme = "ssl"
		}
		brokerURL = fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
	}
	opts.AddBroker(brokerURL)

	// Client identification
	opts.SetClientID(cfg.Broker.ClientID)

	// Authentication (if credentials provided)
	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// Clean session - start fresh on connect (no persistent session on broker)
	opts.SetCleanSession(true)

	// Auto-reconnect with exponential backoff
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	// Connection timeout. cfg.ConnectTimeoutMS (MQTT_CONNECT_TIMEOUT_MS)
	// overrides the package default when set.
	opts.SetConnectTimeout(connectTimeoutFor(cfg))

	// Keepalive - broker sends PINGs to detect dead connections
	opts.SetKeepAlive(defaultKeepAlive)

	// TLS configuration if enabled
	if cfg.Broker.TLS {
		tlsConfig := &tls.Config{
			MinVersion: tlsMinVersion,
		}
		opts.SetTLSConfig(tlsConfig)
	}

	return opts
}

// connectTimeoutFor resolves the initial-connect timeout: cfg.ConnectTimeoutMS
// (MQTT_CONNECT_TIMEOUT_MS) when set, else defaultConnectTimeout.
func connectTimeoutFor(cfg config.MQTTConfig) time.Duration {
	if cfg.ConnectTimeoutMS > 0 {
		return time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond
	}
	return defaultConnectTimeout
}

// configureLWT sets up Last Will and Testament for bridge availability.
//
// The LWT message is published by the broker if the client disconnects
// unexpectedly (crash, network failure, etc.), matching the
// "payload_not_available" Home Assistant's discovery payloads expect on
// "<topicPrefix>/bridge/status" by default (discovery/payload.go).
//
// QoS: 1 (guaranteed delivery)
// Retained: true (new subscribers see last status)
func configureLWT(opts *pahomqtt.ClientOptions, topicPrefix string) {
	opts.SetWill(bridgeStatusTopic(topicPrefix), "offline", 1, true)
}
