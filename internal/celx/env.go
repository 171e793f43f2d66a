package celx

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// DefaultCommandNames lists the command_<name> identifiers that appear
// across the entity type family described in spec §4.6's per-type
// discovery template pack (light brightness/rgb/color_temp, fan
// percentage/preset, climate modes, valve open/close/position, lock/
// number/select/text). Config loading unions this list with any
// additional command_<name> keys it discovers in the YAML entity catalog,
// so a vendor-specific command name still gets a function binding.
func DefaultCommandNames() []string {
	return []string{
		"on", "off", "toggle",
		"brightness", "color_temp", "rgb",
		"percentage", "preset", "oscillate", "direction",
		"mode", "fan_mode", "swing_mode", "temperature", "target_temperature",
		"open", "close", "stop", "position",
		"lock", "unlock",
		"set_value", "select_option", "set_text", "press",
	}
}

// BuildEnv constructs the sandboxed CEL environment with spec §4.2's
// bindings. commandNames is the full set of command_<name> identifiers
// that id(entityId).command_<name>(...) may reference; an expression
// calling an unregistered command name fails to compile, which is the
// desired sandbox behaviour (no arbitrary host dispatch).
func BuildEnv(commandNames []string) (*cel.Env, error) {
	opts := []cel.EnvOption{
		cel.Variable("data", cel.ListType(cel.IntType)),
		cel.Variable("state", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("states", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("x", cel.DynType),
		cel.Variable("xstr", cel.StringType),
		cel.Variable("trigger", cel.DynType),
		cel.Variable("timestamp", cel.IntType),

		// id(entityId) is the identity function over entity IDs; it exists
		// so expressions read as `id('light1').command_on()` rather than
		// `'light1'.command_on()`, matching the source's proxy-handle idiom
		// without needing a custom opaque type.
		cel.Function("id",
			cel.Overload("id_string", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(v ref.Val) ref.Val { return v })),
		),
	}

	for _, name := range commandNames {
		opts = append(opts, commandFunction(name))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("celx: build environment: %w", err)
	}
	return env, nil
}

// commandFunction registers the zero-arg and one-arg member overloads for
// command_<name>, bound on a string receiver (the entity ID returned by
// id(...)). Both overloads produce a CommandIntent-shaped map, adapted to
// a CEL value via the default type adapter, per spec §4.2's design note
// on routing id(...).command_<name>(value?) through the command manager.
func commandFunction(name string) cel.EnvOption {
	fnName := "command_" + name
	zeroArgID := "homenet_" + fnName + "_zero"
	oneArgID := "homenet_" + fnName + "_one"

	return cel.Function(fnName,
		cel.MemberOverload(zeroArgID, []*cel.Type{cel.StringType}, cel.DynType,
			cel.UnaryBinding(func(recv ref.Val) ref.Val {
				entityID, ok := recv.Value().(string)
				if !ok {
					return types.NewErr("command receiver is not a string entity id")
				}
				return types.DefaultTypeAdapter.NativeToValue(newIntentMap(entityID, name, nil, false))
			}),
		),
		cel.MemberOverload(oneArgID, []*cel.Type{cel.StringType, cel.DynType}, cel.DynType,
			cel.BinaryBinding(func(recv, arg ref.Val) ref.Val {
				entityID, ok := recv.Value().(string)
				if !ok {
					return types.NewErr("command receiver is not a string entity id")
				}
				return types.DefaultTypeAdapter.NativeToValue(newIntentMap(entityID, name, arg.Value(), true))
			}),
		),
	)
}
