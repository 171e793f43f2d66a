package automation

import "github.com/nerrad567/homenet-bridge/internal/schema"

// TriggerType discriminates how an automation is fired (spec §4.7).
type TriggerType string

const (
	TriggerPacket   TriggerType = "packet"
	TriggerState    TriggerType = "state"
	TriggerSchedule TriggerType = "schedule"
	TriggerStartup  TriggerType = "startup"
)

// MatchOp is a state trigger's comparison operator.
type MatchOp string

const (
	MatchEq      MatchOp = "eq"
	MatchGt      MatchOp = "gt"
	MatchGte     MatchOp = "gte"
	MatchLt      MatchOp = "lt"
	MatchLte     MatchOp = "lte"
	MatchRegex   MatchOp = "regex"
	MatchLiteral MatchOp = "literal"
)

// StateTriggerConfig fires when entityID's property satisfies Match
// against Value, optionally debounced.
type StateTriggerConfig struct {
	EntityID   string  `yaml:"entity_id"`
	Property   string  `yaml:"property"`
	Match      MatchOp `yaml:"match"`
	Value      any     `yaml:"value"`
	DebounceMS int     `yaml:"debounce_ms"`
}

// PacketTriggerConfig fires when a raw packet matches Schema, independent
// of entity parsing.
type PacketTriggerConfig struct {
	Schema schema.Schema `yaml:"schema"`
}

// ScheduleTriggerConfig fires on a fixed interval (EveryMS) or a cron
// expression (Cron), local-time interpreted. Exactly one should be set.
type ScheduleTriggerConfig struct {
	EveryMS int    `yaml:"every_ms"`
	Cron    string `yaml:"cron"`
}

// TriggerConfig is one of an automation's trigger declarations, plus its
// own (optional) CEL guard, AND-combined with the automation-level guard.
type TriggerConfig struct {
	Type     TriggerType            `yaml:"type"`
	Packet   *PacketTriggerConfig   `yaml:"packet"`
	State    *StateTriggerConfig    `yaml:"state"`
	Schedule *ScheduleTriggerConfig `yaml:"schedule"`
	Guard    string                 `yaml:"guard"`
}

// ActionType discriminates the action grammar (spec §4.7).
type ActionType string

const (
	ActionCommand    ActionType = "command"
	ActionPublish    ActionType = "publish"
	ActionLog        ActionType = "log"
	ActionDelay      ActionType = "delay"
	ActionWaitUntil  ActionType = "wait_until"
	ActionIf         ActionType = "if"
	ActionScript     ActionType = "script"
	ActionSendPacket ActionType = "send_packet"
)

// LogLevel is the action:log severity.
type LogLevel string

const (
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// ActionConfig is one step of an automation's or script's action
// sequence. Only the fields relevant to Type are populated; see the
// action table in spec §4.7.
type ActionConfig struct {
	Type ActionType `yaml:"type"`

	// command: Target is a CEL expression of the form
	// "id(ENTITY).command_NAME(value)" or "id(ENTITY).command_NAME()".
	Target string `yaml:"target"`

	// publish
	Topic   string `yaml:"topic"`
	Payload any    `yaml:"payload"`
	Retain  bool   `yaml:"retain"`

	// log
	Level   LogLevel `yaml:"level"`
	Message string   `yaml:"message"`

	// delay: one of Milliseconds or Duration ("2s", "500ms") is set.
	Milliseconds int    `yaml:"milliseconds"`
	Duration     string `yaml:"duration"`

	// wait_until
	Condition     string `yaml:"condition"`
	CheckInterval string `yaml:"check_interval"` // duration string, default 200ms
	Timeout       string `yaml:"timeout"`        // duration string, default 60s

	// if
	Then []ActionConfig `yaml:"then"`
	Else []ActionConfig `yaml:"else"`

	// script: inline CEL block (action:script) OR ScriptID referencing a
	// ScriptConfig (invoked via action:script with ScriptID set instead
	// of an inline Script body).
	Script   string `yaml:"script"`
	ScriptID string `yaml:"script_id"`

	// send_packet
	Data         []byte `yaml:"data"`
	AutoChecksum bool   `yaml:"auto_checksum"`
}

// Mode selects how concurrent trigger fires for the same automation are
// handled (spec §4.7 "Execution modes").
type Mode string

const (
	// ModeSingle skips a new run if one is already in progress. Default.
	ModeSingle Mode = "single"

	// ModeRestart aborts the in-flight run (cancelling its context, which
	// unblocks any delay/wait_until) and starts a new one.
	ModeRestart Mode = "restart"

	// ModeParallel starts a new, independent run per trigger fire.
	ModeParallel Mode = "parallel"
)

// AutomationConfig is one user-defined automation (spec §4.7).
type AutomationConfig struct {
	ID       string          `yaml:"id"`
	Triggers []TriggerConfig `yaml:"triggers"`
	Guard    string          `yaml:"guard"`
	Then     []ActionConfig  `yaml:"then"`
	Else     []ActionConfig  `yaml:"else"`
	Mode     Mode            `yaml:"mode"`
}

// EffectiveMode returns Mode, defaulting to ModeSingle per spec.
func (a AutomationConfig) EffectiveMode() Mode {
	if a.Mode == "" {
		return ModeSingle
	}
	return a.Mode
}

// ScriptConfig is a standalone, triggerless action sequence invoked via
// action:script{script_id} (spec §4.7 "Scripts").
type ScriptConfig struct {
	ID      string         `yaml:"id"`
	Actions []ActionConfig `yaml:"actions"`
}
