package entity

// minPosition and maxPosition bound valve/fan/cover percentage values per
// spec §4.3 step 6 ("position clamp 0..100").
const (
	minPosition = 0.0
	maxPosition = 100.0
)

// ClampPosition bounds v to [0, 100].
func ClampPosition(v float64) float64 {
	if v < minPosition {
		return minPosition
	}
	if v > maxPosition {
		return maxPosition
	}
	return v
}

// Normalize applies e's type-specific post-extraction rules to updates,
// per spec §4.3 step 6: "Apply type-specific normalization (climate modes,
// valve open/closed/opening/closing, fan oscillating/direction/percentage,
// position clamp 0..100, etc.)". prev is the entity's state before this
// update, used to derive valve motion direction from a position delta.
func (e *Entity) Normalize(prev State, updates State) {
	switch e.Type {
	case TypeValve:
		normalizeValve(prev, updates)
	case TypeFan:
		normalizeFan(updates)
	case TypeClimate:
		normalizeClimate(e.Climate, updates)
	case TypeLight:
		normalizeLight(updates)
	}
}

func normalizeValve(prev State, updates State) {
	pos, ok := floatValue(updates["position"])
	if !ok {
		return
	}
	pos = ClampPosition(pos)
	updates["position"] = pos

	if _, hasState := updates["state"]; hasState {
		return
	}

	prevPos, hadPrev := floatValue(prev["position"])
	switch {
	case pos <= minPosition:
		updates["state"] = "closed"
	case pos >= maxPosition:
		updates["state"] = "open"
	case hadPrev && pos > prevPos:
		updates["state"] = "opening"
	case hadPrev && pos < prevPos:
		updates["state"] = "closing"
	default:
		updates["state"] = "open"
	}
}

func normalizeFan(updates State) {
	if pct, ok := floatValue(updates["percentage"]); ok {
		updates["percentage"] = ClampPosition(pct)
	}
	if osc, ok := updates["oscillating"].(bool); ok {
		updates["oscillating"] = osc
	}
	if dir, ok := updates["direction"].(string); ok {
		switch dir {
		case "forward", "reverse":
		default:
			delete(updates, "direction")
		}
	}
}

func normalizeClimate(cfg *ClimateConfig, updates State) {
	mode, ok := updates["mode"].(string)
	if !ok || cfg == nil || len(cfg.Modes) == 0 {
		return
	}
	for _, m := range cfg.Modes {
		if m == mode {
			return
		}
	}
	// Unrecognised mode: drop rather than surface an invalid HA mode.
	delete(updates, "mode")
}

func normalizeLight(updates State) {
	if b, ok := floatValue(updates["brightness"]); ok {
		if b < 0 {
			updates["brightness"] = 0.0
		} else if b > 255 {
			updates["brightness"] = 255.0
		} else {
			updates["brightness"] = b
		}
	}
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
