package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, automation.ErrUnknownActionType) {
//	    // handle
//	}
//
// Engine does not return ErrUnknownTriggerType, ErrMissingSchedule or
// ErrInvalidCron: it ignores triggers of an unknown type, and scheduleAll
// logs a schedule trigger with no every_ms/cron or an unparsable cron
// expression and skips it.
var (
	// ErrUnknownTriggerType is returned when an AutomationConfig names a
	// trigger type outside {packet, state, schedule, startup}.
	ErrUnknownTriggerType = errors.New("automation: unknown trigger type")

	// ErrUnknownActionType is returned when an ActionConfig names a type
	// outside the action grammar.
	ErrUnknownActionType = errors.New("automation: unknown action type")

	// ErrMissingSchedule is returned when a schedule trigger has neither
	// EveryMS nor Cron set.
	ErrMissingSchedule = errors.New("automation: schedule trigger needs every_ms or cron")

	// ErrInvalidCron is returned when a cron trigger's expression fails
	// to parse.
	ErrInvalidCron = errors.New("automation: invalid cron expression")

	// ErrUnknownScript is returned when an action of type "script"
	// references a script ID not present in the loaded ScriptConfig set.
	ErrUnknownScript = errors.New("automation: unknown script id")
)
