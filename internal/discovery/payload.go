package discovery

import (
	"fmt"

	"github.com/nerrad567/homenet-bridge/internal/entity"
)

// availabilityEntry mirrors HA's "availability" discovery block.
type availabilityEntry struct {
	Topic string `json:"topic"`
}

// deviceBlock mirrors HA's "device" discovery grouping.
type deviceBlock struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

// topics bundles the MQTT topic strings a payload builder needs, per
// spec §6's topic scheme.
type topics struct {
	state        string
	set          string
	attrSet      func(attr string) string
	availability string
}

// buildPayload dispatches to the per-type template builder and stamps the
// common fields every Home Assistant discovery payload needs, per
// spec §4.6 step 2.
func buildPayload(e *entity.Entity, dev *entity.Device, uniqueID string, t topics) map[string]any {
	p := typePayload(e, t)

	p["unique_id"] = uniqueID
	p["object_id"] = slug(pick(e.Name, e.ID))
	p["name"] = pick(e.Name, e.ID)
	p["availability"] = []availabilityEntry{{Topic: t.availability}}

	p["device"] = deviceFor(e, dev, uniqueID)

	return p
}

// pick returns name if non-empty, else fallback.
func pick(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

// deviceFor builds the HA "device" grouping: a shared Device if the
// entity references one, else a synthetic per-entity device so HA still
// gets a device card.
func deviceFor(e *entity.Entity, dev *entity.Device, uniqueID string) deviceBlock {
	if dev != nil {
		return deviceBlock{
			Identifiers:  []string{dev.ID},
			Name:         dev.Name,
			Manufacturer: dev.Manufacturer,
			Model:        dev.Model,
			SWVersion:    dev.SWVersion,
			ViaDevice:    dev.ViaDeviceID,
		}
	}
	return deviceBlock{
		Identifiers: []string{uniqueID},
		Name:        pick(e.Name, e.ID),
	}
}

// typePayload builds the per-entity-type template fields (state_topic,
// command_topic(s), and type-specific knobs), per spec §4.6 step 2's
// "per-entity-type template pack".
func typePayload(e *entity.Entity, t topics) map[string]any {
	switch e.Type {
	case entity.TypeLight:
		return lightPayload(e, t)
	case entity.TypeSwitch:
		return map[string]any{
			"state_topic":    t.state,
			"command_topic":  t.set,
			"value_template": "{{ value_json.on and 'ON' or 'OFF' }}",
			"payload_on":     "ON",
			"payload_off":    "OFF",
		}
	case entity.TypeFan:
		return fanPayload(e, t)
	case entity.TypeClimate:
		return climatePayload(e, t)
	case entity.TypeValve:
		return valvePayload(e, t)
	case entity.TypeButton:
		return map[string]any{
			"command_topic": t.set,
			"payload_press": "PRESS",
		}
	case entity.TypeSensor:
		return sensorPayload(e, t)
	case entity.TypeBinarySensor:
		p := map[string]any{
			"state_topic":    t.state,
			"value_template": "{{ value_json.on and 'ON' or 'OFF' }}",
		}
		if e.BinarySensor != nil && e.BinarySensor.DeviceClass != "" {
			p["device_class"] = e.BinarySensor.DeviceClass
		}
		return p
	case entity.TypeLock:
		return map[string]any{
			"state_topic":    t.state,
			"command_topic":  t.set,
			"value_template": "{{ value_json.locked and 'LOCKED' or 'UNLOCKED' }}",
			"payload_lock":   "LOCK",
			"payload_unlock": "UNLOCK",
		}
	case entity.TypeNumber:
		return numberPayload(e, t)
	case entity.TypeSelect:
		p := map[string]any{
			"state_topic":    t.state,
			"command_topic":  t.attrSet("option"),
			"value_template": "{{ value_json.option }}",
		}
		if e.Select != nil {
			p["options"] = e.Select.Options
		}
		return p
	case entity.TypeText:
		p := map[string]any{
			"state_topic":    t.state,
			"command_topic":  t.attrSet("text"),
			"value_template": "{{ value_json.text }}",
		}
		if e.Text != nil {
			if e.Text.Pattern != "" {
				p["pattern"] = e.Text.Pattern
			}
			if e.Text.Mode != "" {
				p["mode"] = e.Text.Mode
			}
			if e.Text.MinLen > 0 {
				p["min"] = e.Text.MinLen
			}
			if e.Text.MaxLen > 0 {
				p["max"] = e.Text.MaxLen
			}
		}
		return p
	case entity.TypeTextSensor:
		return map[string]any{
			"state_topic":    t.state,
			"value_template": "{{ value_json.text }}",
		}
	default:
		return map[string]any{"state_topic": t.state}
	}
}

func lightPayload(e *entity.Entity, t topics) map[string]any {
	p := map[string]any{
		"schema":         "json",
		"state_topic":    t.state,
		"command_topic":  t.set,
		"value_template": "{{ value_json }}",
	}
	modes := []string{"onoff"}
	if e.Light != nil {
		if e.Light.Brightness {
			p["brightness"] = true
			modes = append(modes, "brightness")
		}
		if e.Light.RGB {
			modes = append(modes, "rgb")
		}
		if e.Light.ColorTemp {
			p["color_temp"] = true
			if e.Light.MinMireds > 0 {
				p["min_mireds"] = e.Light.MinMireds
			}
			if e.Light.MaxMireds > 0 {
				p["max_mireds"] = e.Light.MaxMireds
			}
			modes = append(modes, "color_temp")
		}
	}
	p["supported_color_modes"] = modes
	return p
}

func fanPayload(e *entity.Entity, t topics) map[string]any {
	p := map[string]any{
		"state_topic":    t.state,
		"command_topic":  t.set,
		"value_template": "{{ value_json.on and 'ON' or 'OFF' }}",
	}
	if e.Fan != nil {
		if e.Fan.Percentage {
			p["percentage_state_topic"] = t.state
			p["percentage_command_topic"] = t.attrSet("percentage")
			p["percentage_value_template"] = "{{ value_json.percentage }}"
		}
		if len(e.Fan.Presets) > 0 {
			p["preset_modes"] = e.Fan.Presets
			p["preset_mode_state_topic"] = t.state
			p["preset_mode_command_topic"] = t.attrSet("preset")
			p["preset_mode_value_template"] = "{{ value_json.preset }}"
		}
		if e.Fan.Oscillation {
			p["oscillation_state_topic"] = t.state
			p["oscillation_command_topic"] = t.attrSet("oscillation")
			p["oscillation_value_template"] = "{{ value_json.oscillating and 'oscillate_on' or 'oscillate_off' }}"
		}
		if e.Fan.Direction {
			p["direction_state_topic"] = t.state
			p["direction_command_topic"] = t.attrSet("direction")
			p["direction_value_template"] = "{{ value_json.direction }}"
		}
		if e.Fan.SpeedSteps > 0 {
			p["speed_range_max"] = e.Fan.SpeedSteps
		}
	}
	return p
}

func climatePayload(e *entity.Entity, t topics) map[string]any {
	p := map[string]any{
		"current_temperature_topic":    t.state,
		"current_temperature_template": "{{ value_json.current_temperature }}",
		"temperature_state_topic":      t.state,
		"temperature_state_template":   "{{ value_json.target_temperature }}",
		"temperature_command_topic":    t.attrSet("temperature"),
		"mode_state_topic":             t.state,
		"mode_state_template":          "{{ value_json.mode }}",
		"mode_command_topic":           t.attrSet("mode"),
	}
	if e.Climate != nil {
		if len(e.Climate.Modes) > 0 {
			p["modes"] = e.Climate.Modes
		}
		if len(e.Climate.FanModes) > 0 {
			p["fan_modes"] = e.Climate.FanModes
			p["fan_mode_state_topic"] = t.state
			p["fan_mode_state_template"] = "{{ value_json.fan_mode }}"
			p["fan_mode_command_topic"] = t.attrSet("fan_mode")
		}
		if e.Climate.MinTemp != 0 {
			p["min_temp"] = e.Climate.MinTemp
		}
		if e.Climate.MaxTemp != 0 {
			p["max_temp"] = e.Climate.MaxTemp
		}
		if e.Climate.TempStep != 0 {
			p["temp_step"] = e.Climate.TempStep
		}
		if e.Climate.Precision != 0 {
			p["precision"] = e.Climate.Precision
		}
	}
	return p
}

func valvePayload(e *entity.Entity, t topics) map[string]any {
	p := map[string]any{
		"state_topic":    t.state,
		"value_template": "{{ value_json.state }}",
		"payload_open":   "OPEN",
		"payload_close":  "CLOSE",
		"state_open":     "open",
		"state_closed":   "closed",
		"state_opening":  "opening",
		"state_closing":  "closing",
	}
	if e.Valve != nil {
		if e.Valve.DeviceClass != "" {
			p["device_class"] = e.Valve.DeviceClass
		}
		if e.Valve.ReportsPosition {
			p["reports_position"] = true
			p["position_topic"] = t.state
			p["position_template"] = "{{ value_json.position }}"
			p["set_position_topic"] = t.attrSet("position")
		} else {
			p["command_topic"] = t.set
		}
	} else {
		p["command_topic"] = t.set
	}
	return p
}

func sensorPayload(e *entity.Entity, t topics) map[string]any {
	p := map[string]any{
		"state_topic":    t.state,
		"value_template": "{{ value_json.value }}",
	}
	if e.Sensor != nil {
		if e.Sensor.Unit != "" {
			p["unit_of_measurement"] = e.Sensor.Unit
		}
		if e.Sensor.DeviceClass != "" {
			p["device_class"] = e.Sensor.DeviceClass
		}
		if e.Sensor.StateClass != "" {
			p["state_class"] = e.Sensor.StateClass
		}
	}
	return p
}

func numberPayload(e *entity.Entity, t topics) map[string]any {
	p := map[string]any{
		"state_topic":    t.state,
		"command_topic":  t.set,
		"value_template": "{{ value_json.value }}",
	}
	if e.Number != nil {
		p["min"] = e.Number.Min
		p["max"] = e.Number.Max
		if e.Number.Step != 0 {
			p["step"] = e.Number.Step
		}
		if e.Number.Unit != "" {
			p["unit_of_measurement"] = e.Number.Unit
		}
	}
	return p
}

// discoveryTopic builds "homeassistant/<type>/<uniqueId>/config" per
// spec §4.6 step 3.
func discoveryTopic(entityType entity.Type, uniqueID string) string {
	return fmt.Sprintf("homeassistant/%s/%s/config", entityType, uniqueID)
}
