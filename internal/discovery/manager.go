package discovery

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/homenet-bridge/internal/entity"
)

// defaultRenameDelay is the spec §4.6 "wait ~2 s" gap between clearing a
// renamed entity's discovery topic and republishing it.
const defaultRenameDelay = 2 * time.Second

// Publisher is the narrow MQTT dependency the discovery manager needs.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// Manager publishes and maintains Home Assistant MQTT Discovery config
// payloads for one port's entities, per spec §4.6.
type Manager struct {
	portID      string
	topicPrefix string
	pub         Publisher
	catalog     *entity.Catalog
	devices     map[string]*entity.Device

	// RenameDelay overrides defaultRenameDelay; zero-value Manager uses
	// the default via renameDelay().
	RenameDelay time.Duration

	mu        sync.Mutex
	published map[string]bool
}

// NewManager constructs a discovery Manager for one port.
func NewManager(portID, topicPrefix string, pub Publisher, catalog *entity.Catalog, devices map[string]*entity.Device) *Manager {
	return &Manager{
		portID:      portID,
		topicPrefix: topicPrefix,
		pub:         pub,
		catalog:     catalog,
		devices:     devices,
		published:   make(map[string]bool),
	}
}

func (m *Manager) renameDelay() time.Duration {
	if m.RenameDelay > 0 {
		return m.RenameDelay
	}
	return defaultRenameDelay
}

// Start publishes every entity marked discovery_always immediately, per
// spec §4.6 "Deferred publish": "discovery_always: true publishes
// immediately."
func (m *Manager) Start() error {
	for _, e := range m.catalog.All() {
		if e.Internal {
			continue
		}
		if e.DiscoveryAlways {
			if err := m.publish(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// OnStateChanged is called for every state:changed event on this port. It
// publishes entityID's own discovery payload if this is its first state
// change (the default deferred-publish trigger), and publishes any
// entity whose discovery_linked_id points at entityID, per spec §4.6.
func (m *Manager) OnStateChanged(entityID string) error {
	e, ok := m.catalog.Get(entityID)
	if !ok || e.Internal {
		return nil
	}

	if !m.isPublished(entityID) {
		if err := m.publish(e); err != nil {
			return err
		}
	}

	for _, linked := range m.catalog.All() {
		if linked.Internal || linked.ID == entityID {
			continue
		}
		if linked.DiscoveryLinkedID == entityID && !m.isPublished(linked.ID) {
			if err := m.publish(linked); err != nil {
				return err
			}
		}
	}
	return nil
}

// OnRename implements spec §4.6's rename flow: publish an empty retained
// payload to clear the old discovery entry, wait renameDelay, then
// republish with the entity's current (already-renamed) name/object_id.
// The entity's unique_id is unaffected by rename, so HA associates the
// republished entry with the original device rather than creating a
// duplicate.
func (m *Manager) OnRename(entityID string) error {
	e, ok := m.catalog.Get(entityID)
	if !ok || e.Internal {
		return nil
	}

	uniqueID := e.EffectiveUniqueID(m.portID)
	topic := discoveryTopic(e.Type, uniqueID)

	if err := m.pub.Publish(topic, nil, true); err != nil {
		return fmt.Errorf("discovery: clear %q for rename: %w", entityID, err)
	}

	time.Sleep(m.renameDelay())

	if !m.isPublished(entityID) {
		return nil
	}
	return m.publish(e)
}

// publish marshals and publishes e's discovery payload, recording it as
// published so later OnStateChanged calls don't re-publish it.
func (m *Manager) publish(e *entity.Entity) error {
	uniqueID := e.EffectiveUniqueID(m.portID)
	top := m.topicsFor(e.ID)

	var dev *entity.Device
	if e.DeviceID != "" {
		dev = m.devices[e.DeviceID]
	}

	payload := buildPayload(e, dev, uniqueID, top)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("discovery: marshal %q: %w", e.ID, err)
	}

	if err := m.pub.Publish(discoveryTopic(e.Type, uniqueID), body, true); err != nil {
		return fmt.Errorf("discovery: publish %q: %w", e.ID, err)
	}

	m.mu.Lock()
	m.published[e.ID] = true
	m.mu.Unlock()
	return nil
}

func (m *Manager) isPublished(entityID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.published[entityID]
}

// topicsFor builds the MQTT topic set for entityID per spec §6.
func (m *Manager) topicsFor(entityID string) topics {
	base := fmt.Sprintf("%s/%s/%s", m.topicPrefix, m.portID, entityID)
	return topics{
		state: base + "/state",
		set:   base + "/set",
		attrSet: func(attr string) string {
			return base + "/" + attr + "/set"
		},
		availability: m.topicPrefix + "/bridge/status",
	}
}

// PublishBridgeOnline publishes the retained bridge availability topic,
// per spec §4.6 "At startup, register a bridge/status retained topic
// with payload online." Called once by the supervisor, not per port.
func PublishBridgeOnline(pub Publisher, topicPrefix string) error {
	return pub.Publish(topicPrefix+"/bridge/status", []byte("online"), true)
}
