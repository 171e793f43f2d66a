package config

import (
	"fmt"
	"time"

	"github.com/nerrad567/homenet-bridge/internal/automation"
	"github.com/nerrad567/homenet-bridge/internal/checksum"
	"github.com/nerrad567/homenet-bridge/internal/entity"
	"github.com/nerrad567/homenet-bridge/internal/port"
	"github.com/nerrad567/homenet-bridge/internal/transport"
)

// validParities enumerates the serial parity values Validate accepts; stop
// bits are checked separately in Validate (1 or 2).
var validParities = map[string]bool{"none": true, "even": true, "odd": true, "mark": true, "space": true}

// PortConfig describes one configured RS-485/TCP port, per spec §2.1's
// Ports section.
type PortConfig struct {
	ID        string `yaml:"id"`
	Transport string `yaml:"transport"` // "serial" or "tcp"

	// Serial fields.
	Path     string `yaml:"path"`
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"`
	StopBits int    `yaml:"stop_bits"`

	// TCP fields.
	Address string `yaml:"address"`

	DialTimeoutMS       int `yaml:"dial_timeout_ms"`
	ReconnectBackoffMin int `yaml:"reconnect_backoff_min_ms"`
	ReconnectBackoffMax int `yaml:"reconnect_backoff_max_ms"`

	PacketDefaults ProtocolDefaultsConfig `yaml:"packet_defaults"`

	Devices  []*entity.Device `yaml:"devices"`
	Entities []EntityConfig   `yaml:"entities"`
}

// ProtocolDefaultsConfig mirrors entity.ProtocolDefaults with millisecond
// integer fields in place of time.Duration, matching the teacher's
// seconds-as-int convention for YAML-facing timeout fields (config.go's
// APITimeoutConfig, converted via GetReadTimeout()-style helpers).
type ProtocolDefaultsConfig struct {
	RXLength    int            `yaml:"rx_length"`
	RXHeader    []byte         `yaml:"rx_header"`
	RXFooter    []byte         `yaml:"rx_footer"`
	RXChecksum  checksum.Mode  `yaml:"rx_checksum"`
	RXChecksum2 checksum.Mode2 `yaml:"rx_checksum2"`

	TXLength    int            `yaml:"tx_length"`
	TXHeader    []byte         `yaml:"tx_header"`
	TXFooter    []byte         `yaml:"tx_footer"`
	TXChecksum  checksum.Mode  `yaml:"tx_checksum"`
	TXChecksum2 checksum.Mode2 `yaml:"tx_checksum2"`

	TXDelayMS    int `yaml:"tx_delay_ms"`
	TXTimeoutMS  int `yaml:"tx_timeout_ms"`
	TXRetryCount int `yaml:"tx_retry_count"`
}

// toDomain converts a port's packet_defaults block, the base every entity's
// PacketParameters merges onto. An omitted rx/tx_checksum here means "no
// checksum byte", so it's normalized to checksum.ModeNone/Mode2None: the
// YAML zero value is "", which is not ModeNone, and Mode.Len()/Compute/
// Verify only special-case "none".
func (d ProtocolDefaultsConfig) toDomain() entity.ProtocolDefaults {
	pd := d.toRaw()
	pd.RXChecksum = checksumModeOrNone(pd.RXChecksum)
	pd.RXChecksum2 = checksumMode2OrNone(pd.RXChecksum2)
	pd.TXChecksum = checksumModeOrNone(pd.TXChecksum)
	pd.TXChecksum2 = checksumMode2OrNone(pd.TXChecksum2)
	return pd
}

// toOverride converts an entity's packet_parameters block without
// normalizing an omitted rx/tx_checksum to "none": unlike the port-level
// defaults, this value feeds entity.ProtocolDefaults.Merge, which reads an
// empty Mode/Mode2 as "not overridden, inherit the port default"
// (protocol.go). Normalizing here would make any PacketParameters block
// that sets one field (say tx_delay_ms) silently force rx/tx checksum to
// none for that entity too.
func (d ProtocolDefaultsConfig) toOverride() entity.ProtocolDefaults {
	return d.toRaw()
}

func (d ProtocolDefaultsConfig) toRaw() entity.ProtocolDefaults {
	return entity.ProtocolDefaults{
		RXLength:     d.RXLength,
		RXHeader:     d.RXHeader,
		RXFooter:     d.RXFooter,
		RXChecksum:   d.RXChecksum,
		RXChecksum2:  d.RXChecksum2,
		TXLength:     d.TXLength,
		TXHeader:     d.TXHeader,
		TXFooter:     d.TXFooter,
		TXChecksum:   d.TXChecksum,
		TXChecksum2:  d.TXChecksum2,
		TXDelay:      time.Duration(d.TXDelayMS) * time.Millisecond,
		TXTimeout:    time.Duration(d.TXTimeoutMS) * time.Millisecond,
		TXRetryCount: d.TXRetryCount,
	}
}

// checksumModeOrNone maps an omitted (empty-string) rx/tx_checksum field to
// checksum.ModeNone.
func checksumModeOrNone(m checksum.Mode) checksum.Mode {
	if m == "" {
		return checksum.ModeNone
	}
	return m
}

// checksumMode2OrNone is checksumModeOrNone for the two-byte checksum2 field.
func checksumMode2OrNone(m checksum.Mode2) checksum.Mode2 {
	if m == "" {
		return checksum.Mode2None
	}
	return m
}

// EntityConfig mirrors entity.Entity for YAML decoding. PacketParameters
// needs its own millisecond-based mirror (ProtocolDefaultsConfig); every
// other field decodes directly into the domain sub-types, since none of
// them carry a unit mismatch.
type EntityConfig struct {
	ID   string      `yaml:"id"`
	Type entity.Type `yaml:"type"`
	Name string      `yaml:"name"`

	DeviceID          string `yaml:"device_id"`
	Area              string `yaml:"area"`
	UniqueID          string `yaml:"unique_id"`
	DiscoveryAlways   bool   `yaml:"discovery_always"`
	DiscoveryLinkedID string `yaml:"discovery_linked_id"`
	Optimistic        bool   `yaml:"optimistic"`
	Internal          bool   `yaml:"internal"`

	PacketParameters *ProtocolDefaultsConfig `yaml:"packet_parameters"`

	Light        *entity.LightConfig        `yaml:"light"`
	Fan          *entity.FanConfig          `yaml:"fan"`
	Climate      *entity.ClimateConfig      `yaml:"climate"`
	Valve        *entity.ValveConfig        `yaml:"valve"`
	Number       *entity.NumberConfig       `yaml:"number"`
	Select       *entity.SelectConfig       `yaml:"select"`
	Sensor       *entity.SensorConfig       `yaml:"sensor"`
	BinarySensor *entity.BinarySensorConfig `yaml:"binary_sensor"`
	Text         *entity.TextConfig         `yaml:"text"`

	// Rules captures every state_*/command_* field not matched above
	// (spec §3's "state"/"state_<property>"/"command_<name>" keys), each
	// one either a Schema mapping or a "!lambda"/"!homenet_logic" CEL
	// expression (entity.Rule.UnmarshalYAML).
	Rules map[string]entity.Rule `yaml:",inline"`
}

func (ec EntityConfig) toDomain() *entity.Entity {
	var pp *entity.ProtocolDefaults
	if ec.PacketParameters != nil {
		d := ec.PacketParameters.toOverride()
		pp = &d
	}
	return &entity.Entity{
		ID:                ec.ID,
		Type:              ec.Type,
		Name:              ec.Name,
		DeviceID:          ec.DeviceID,
		Area:              ec.Area,
		UniqueID:          ec.UniqueID,
		DiscoveryAlways:   ec.DiscoveryAlways,
		DiscoveryLinkedID: ec.DiscoveryLinkedID,
		Optimistic:        ec.Optimistic,
		Internal:          ec.Internal,
		PacketParameters:  pp,
		Rules:             ec.Rules,
		Light:             ec.Light,
		Fan:               ec.Fan,
		Climate:           ec.Climate,
		Valve:             ec.Valve,
		Number:            ec.Number,
		Select:            ec.Select,
		Sensor:            ec.Sensor,
		BinarySensor:      ec.BinarySensor,
		Text:              ec.Text,
	}
}

func (p PortConfig) validate() error {
	switch p.Transport {
	case transport.KindSerial:
		if p.Path == "" {
			return fmt.Errorf("transport serial requires path")
		}
		if p.DataBits != 0 && (p.DataBits < 5 || p.DataBits > 8) {
			return fmt.Errorf("data_bits %d out of range 5..8", p.DataBits)
		}
		if p.Parity != "" && !validParities[p.Parity] {
			return fmt.Errorf("parity %q not one of none/even/odd/mark/space", p.Parity)
		}
		switch p.StopBits {
		case 0, 1, 2:
		default:
			return fmt.Errorf("stop_bits %d not one of 1 or 2", p.StopBits)
		}
	case transport.KindTCP:
		if p.Address == "" {
			return fmt.Errorf("transport tcp requires address")
		}
	default:
		return fmt.Errorf("transport must be %q or %q, got %q", transport.KindSerial, transport.KindTCP, p.Transport)
	}

	d := p.PacketDefaults
	if d.RXChecksum != "" && !checksum.ValidMode(string(d.RXChecksum)) {
		return fmt.Errorf("packet_defaults.rx_checksum %q is not a recognised checksum mode", d.RXChecksum)
	}
	if d.TXChecksum != "" && !checksum.ValidMode(string(d.TXChecksum)) {
		return fmt.Errorf("packet_defaults.tx_checksum %q is not a recognised checksum mode", d.TXChecksum)
	}
	if d.RXChecksum2 != "" && !checksum.ValidMode2(string(d.RXChecksum2)) {
		return fmt.Errorf("packet_defaults.rx_checksum2 %q is not a recognised checksum mode", d.RXChecksum2)
	}
	if d.TXChecksum2 != "" && !checksum.ValidMode2(string(d.TXChecksum2)) {
		return fmt.Errorf("packet_defaults.tx_checksum2 %q is not a recognised checksum mode", d.TXChecksum2)
	}

	entityIDs := make(map[string]bool, len(p.Entities))
	for _, e := range p.Entities {
		if e.ID == "" {
			return fmt.Errorf("entity with empty id")
		}
		if entityIDs[e.ID] {
			return fmt.Errorf("entity id %q duplicated within port", e.ID)
		}
		entityIDs[e.ID] = true
		if !e.Type.Valid() {
			return fmt.Errorf("entity %q has unrecognised type %q", e.ID, e.Type)
		}
	}
	return nil
}

func (p PortConfig) toTransportConfig() transport.Config {
	return transport.Config{
		Kind:        p.Transport,
		Path:        p.Path,
		BaudRate:    p.BaudRate,
		DataBits:    p.DataBits,
		Parity:      p.Parity,
		StopBits:    p.StopBits,
		Address:     p.Address,
		DialTimeout: time.Duration(p.DialTimeoutMS) * time.Millisecond,
	}
}

func (p PortConfig) toPortConfig(topicPrefix string, automations []automation.AutomationConfig, scripts []automation.ScriptConfig) port.Config {
	entities := make([]*entity.Entity, 0, len(p.Entities))
	for _, ec := range p.Entities {
		entities = append(entities, ec.toDomain())
	}
	return port.Config{
		ID:                  p.ID,
		TopicPrefix:         topicPrefix,
		Transport:           p.toTransportConfig(),
		Defaults:            p.PacketDefaults.toDomain(),
		Entities:            entities,
		Devices:             p.Devices,
		Automations:         automations,
		Scripts:             scripts,
		ReconnectBackoffMin: p.ReconnectBackoffMin,
		ReconnectBackoffMax: p.ReconnectBackoffMax,
	}
}

// ToSupervisorConfig converts the loaded Config into the port.SupervisorConfig
// the bridge entry point feeds to port.NewSupervisor. Every port receives
// the same bridge-wide automations/scripts library (spec §4.7: automations
// address entities by ID, which are unique across the whole bridge).
func (c *Config) ToSupervisorConfig() (port.SupervisorConfig, error) {
	ports := make([]port.Config, 0, len(c.Ports))
	for _, p := range c.Ports {
		ports = append(ports, p.toPortConfig(c.Bridge.MQTTPrefix, c.Automation.Automations, c.Automation.Scripts))
	}
	return port.SupervisorConfig{
		TopicPrefix:       c.Bridge.MQTTPrefix,
		Ports:             ports,
		SerialWaitTimeout: c.SerialPathWaitTimeout(),
	}, nil
}

// SerialPathWaitTimeout returns the configured SERIAL_PATH_WAIT_TIMEOUT_MS
// override (spec §6), or zero if unset (the supervisor then falls back to
// its own default).
func (c *Config) SerialPathWaitTimeout() time.Duration {
	if c.serialPathWaitTimeoutMS <= 0 {
		return 0
	}
	return time.Duration(c.serialPathWaitTimeoutMS) * time.Millisecond
}
