package entity

// Type discriminates the entity kinds recognised by the bridge (spec §3).
type Type string

// Recognised entity types.
const (
	TypeLight        Type = "light"
	TypeSwitch       Type = "switch"
	TypeFan          Type = "fan"
	TypeClimate      Type = "climate"
	TypeValve        Type = "valve"
	TypeButton       Type = "button"
	TypeSensor       Type = "sensor"
	TypeBinarySensor Type = "binary_sensor"
	TypeLock         Type = "lock"
	TypeNumber       Type = "number"
	TypeSelect       Type = "select"
	TypeText         Type = "text"
	TypeTextSensor   Type = "text_sensor"
)

// AllTypes returns every recognised entity type, for validation and
// catalog enumeration.
func AllTypes() []Type {
	return []Type{
		TypeLight, TypeSwitch, TypeFan, TypeClimate, TypeValve, TypeButton,
		TypeSensor, TypeBinarySensor, TypeLock, TypeNumber, TypeSelect,
		TypeText, TypeTextSensor,
	}
}

// Valid reports whether t is a recognised entity type.
func (t Type) Valid() bool {
	for _, v := range AllTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// Device groups one or more entities under a single Home Assistant device
// card, mirroring the teacher's manufacturer/model metadata grouping but
// scoped to discovery rather than persistence.
type Device struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Manufacturer string `yaml:"manufacturer"`
	Model        string `yaml:"model"`
	SWVersion    string `yaml:"sw_version"`
	ViaDeviceID  string `yaml:"via_device_id"`
}

// LightConfig carries light-specific discovery/normalization knobs.
type LightConfig struct {
	Brightness bool `yaml:"brightness"`
	RGB        bool `yaml:"rgb"`
	ColorTemp  bool `yaml:"color_temp"`
	MinMireds  int  `yaml:"min_mireds"`
	MaxMireds  int  `yaml:"max_mireds"`
}

// FanConfig carries fan-specific discovery/normalization knobs.
type FanConfig struct {
	Percentage  bool     `yaml:"percentage"`
	Oscillation bool     `yaml:"oscillation"`
	Direction   bool     `yaml:"direction"`
	Presets     []string `yaml:"presets"`
	SpeedSteps  int      `yaml:"speed_steps"`
}

// ClimateConfig carries climate-specific discovery/normalization knobs.
type ClimateConfig struct {
	Modes     []string `yaml:"modes"`
	FanModes  []string `yaml:"fan_modes"`
	MinTemp   float64  `yaml:"min_temp"`
	MaxTemp   float64  `yaml:"max_temp"`
	TempStep  float64  `yaml:"temp_step"`
	Precision float64  `yaml:"precision"`
}

// ValveConfig carries valve-specific discovery/normalization knobs.
type ValveConfig struct {
	ReportsPosition bool   `yaml:"reports_position"`
	DeviceClass     string `yaml:"device_class"`
}

// NumberConfig carries number-entity bounds.
type NumberConfig struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Step float64 `yaml:"step"`
	Unit string  `yaml:"unit"`
}

// SelectConfig carries the enumerated option list for a select entity.
type SelectConfig struct {
	Options []string `yaml:"options"`
}

// SensorConfig carries sensor discovery metadata.
type SensorConfig struct {
	Unit        string `yaml:"unit"`
	DeviceClass string `yaml:"device_class"`
	StateClass  string `yaml:"state_class"`
}

// BinarySensorConfig carries binary_sensor discovery metadata.
type BinarySensorConfig struct {
	DeviceClass string `yaml:"device_class"`
}

// TextConfig carries text-entity constraints.
type TextConfig struct {
	Pattern string `yaml:"pattern"`
	Mode    string `yaml:"mode"`
	MinLen  int    `yaml:"min_len"`
	MaxLen  int    `yaml:"max_len"`
}

// Entity is the declarative, discriminated device record from spec §3.
// Type selects which of the optional *Config fields and which state_*/
// command_* Rules keys are meaningful; everything else is common.
type Entity struct {
	ID   string
	Type Type
	Name string

	DeviceID          string
	Area              string
	UniqueID          string
	DiscoveryAlways   bool
	DiscoveryLinkedID string
	Optimistic        bool
	Internal          bool

	PacketParameters *ProtocolDefaults

	// Rules holds every state_*/command_* field keyed by its config name,
	// e.g. "state", "state_on", "state_off", "state_brightness",
	// "command_on", "command_off", "command_brightness".
	Rules map[string]Rule

	Light        *LightConfig
	Fan          *FanConfig
	Climate      *ClimateConfig
	Valve        *ValveConfig
	Number       *NumberConfig
	Select       *SelectConfig
	Sensor       *SensorConfig
	BinarySensor *BinarySensorConfig
	Text         *TextConfig
}

// Rule looks up a named state_*/command_* rule, reporting whether it's set.
func (e *Entity) Rule(name string) (Rule, bool) {
	if e.Rules == nil {
		return Rule{}, false
	}
	r, ok := e.Rules[name]
	return r, ok
}

// EffectiveUniqueID returns UniqueID if set, otherwise derives it per
// spec §4.6: "uniqueId = homenet_<portId>_<id>".
func (e *Entity) EffectiveUniqueID(portID string) string {
	if e.UniqueID != "" {
		return e.UniqueID
	}
	return "homenet_" + portID + "_" + e.ID
}
