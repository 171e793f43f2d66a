package celx

// Vars is the per-evaluation binding set named in spec §4.2. Every binding
// is always present in the activation; a nil State or States is bound as
// an empty map, so has(state.x) then evaluates false rather than erroring.
type Vars struct {
	Data      []byte
	State     map[string]any
	States    map[string]map[string]any
	X         any
	XStr      string
	Trigger   any
	Timestamp int64
}

// toActivation converts Vars to the map[string]any shape cel.Program.Eval
// accepts directly as an activation.
func (v Vars) toActivation() map[string]any {
	data := make([]int64, len(v.Data))
	for i, b := range v.Data {
		data[i] = int64(b)
	}

	state := v.State
	if state == nil {
		state = map[string]any{}
	}
	states := make(map[string]any, len(v.States))
	for id, s := range v.States {
		states[id] = s
	}

	return map[string]any{
		"data":      data,
		"state":     state,
		"states":    states,
		"x":         v.X,
		"xstr":      v.XStr,
		"trigger":   v.Trigger,
		"timestamp": v.Timestamp,
	}
}
