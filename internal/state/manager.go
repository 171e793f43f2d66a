package state

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nerrad567/homenet-bridge/internal/entity"
)

// Publisher is the narrow MQTT dependency the state manager needs: a
// retained publish. Satisfied by *mqtt.Client in production and a
// hand-written fake in tests.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// ChangedEvent is emitted on the process-wide event bus per spec §3's
// event bus topics: "state:changed {portId, entityId, state, oldState, changes}".
type ChangedEvent struct {
	PortID   string
	EntityID string
	State    entity.State
	OldState entity.State
	Changes  entity.State
}

// EventBus is the narrow event-fanout dependency the state manager needs.
type EventBus interface {
	EmitStateChanged(ChangedEvent)
}

// Manager owns one port's entity state snapshots, per spec §3
// "Ownership/lifecycle": "A port engine exclusively owns its ... State".
type Manager struct {
	portID      string
	topicPrefix string
	pub         Publisher
	bus         EventBus

	mu            sync.Mutex
	snapshots     map[string]entity.State
	lastPublished map[string]string
}

// New constructs a Manager for one port. topicPrefix is the bridge's
// configured MQTT topic prefix (spec §4.4: "<prefix>/<portId>/<entityId>/state").
func New(portID, topicPrefix string, pub Publisher, bus EventBus) *Manager {
	return &Manager{
		portID:        portID,
		topicPrefix:   topicPrefix,
		pub:           pub,
		bus:           bus,
		snapshots:     make(map[string]entity.State),
		lastPublished: make(map[string]string),
	}
}

// Apply merges updates into entityID's snapshot and publishes/emits if the
// result is a genuine change, per spec §4.4 steps 1-5.
func (m *Manager) Apply(entityID string, updates entity.State) error {
	if len(updates) == 0 {
		return nil
	}

	m.mu.Lock()
	prev := m.snapshots[entityID]
	next := prev.Merge(updates)
	changes := entity.Diff(prev, next, updates)

	payload, err := json.Marshal(next)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("state: marshal entity %q: %w", entityID, err)
	}

	if len(changes) == 0 && m.lastPublished[entityID] == string(payload) {
		m.mu.Unlock()
		return nil
	}

	m.snapshots[entityID] = next
	m.lastPublished[entityID] = string(payload)
	m.mu.Unlock()

	topic := fmt.Sprintf("%s/%s/%s/state", m.topicPrefix, m.portID, entityID)
	if err := m.pub.Publish(topic, payload, true); err != nil {
		return fmt.Errorf("state: publish entity %q: %w", entityID, err)
	}

	if m.bus != nil {
		m.bus.EmitStateChanged(ChangedEvent{
			PortID:   m.portID,
			EntityID: entityID,
			State:    next,
			OldState: prev,
			Changes:  changes,
		})
	}
	return nil
}

// Snapshot returns entityID's current state (or nil if never set), for
// automation/discovery components that need a read-only view of state.
func (m *Manager) Snapshot(entityID string) entity.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[entityID].Clone()
}

// All returns a snapshot of every entity's state, keyed by entityId, for
// CEL's `states` binding (spec §4.2).
func (m *Manager) All() map[string]entity.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]entity.State, len(m.snapshots))
	for id, s := range m.snapshots {
		out[id] = s.Clone()
	}
	return out
}
