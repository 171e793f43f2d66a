package eventbus

// Topic names, per spec §3 "Event bus topics".
const (
	TopicStateChanged     = "state:changed"
	TopicRawData          = "raw-data"
	TopicRawDataInterval  = "raw-data-with-interval"
	TopicPacket           = "packet"
	TopicMQTTMessage      = "mqtt-message"
	TopicCommandPacket    = "command-packet"
	TopicEntityRenamed    = "entity:renamed"
	TopicCoreStarted      = "core:started"
	TopicCoreStopped      = "core:stopped"
	TopicAutomationGuard  = "automation:guard"
	TopicAutomationAction = "automation:action"
	TopicScriptAction     = "script:action"
)

// Policy selects how a topic behaves when a subscriber's queue is full.
type Policy int

const (
	// PolicyBlock delivers every event, blocking the publisher if a
	// subscriber's queue is full. Used for topics that must be lossless.
	PolicyBlock Policy = iota

	// PolicyDropOldest discards the subscriber's oldest queued event to
	// make room, never blocking the publisher. Used for debug/tap topics
	// where recency matters more than completeness.
	PolicyDropOldest
)

// defaultPolicies maps the well-known topics to their spec-mandated
// backpressure policy (spec §9: "blocks for state:changed (which must be
// lossless)" vs "drops oldest for debug streams"). Unlisted topics
// default to PolicyBlock: control-flow events (entity:renamed,
// automation:*, script:action, core:*) must not be silently dropped.
var defaultPolicies = map[string]Policy{
	TopicStateChanged:     PolicyBlock,
	TopicEntityRenamed:    PolicyBlock,
	TopicCoreStarted:      PolicyBlock,
	TopicCoreStopped:      PolicyBlock,
	TopicAutomationGuard:  PolicyBlock,
	TopicAutomationAction: PolicyBlock,
	TopicScriptAction:     PolicyBlock,
	TopicPacket:           PolicyBlock,
	TopicCommandPacket:    PolicyBlock,
	TopicRawData:          PolicyDropOldest,
	TopicRawDataInterval:  PolicyDropOldest,
	TopicMQTTMessage:      PolicyDropOldest,
}

// policyFor returns topic's configured policy, defaulting to PolicyBlock
// for any topic not in defaultPolicies.
func policyFor(topic string) Policy {
	if p, ok := defaultPolicies[topic]; ok {
		return p
	}
	return PolicyBlock
}
