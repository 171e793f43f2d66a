package port

import (
	"log/slog"

	"github.com/nerrad567/homenet-bridge/internal/discovery"
	"github.com/nerrad567/homenet-bridge/internal/eventbus"
	"github.com/nerrad567/homenet-bridge/internal/state"
)

// busEventBus adapts the process-wide eventbus.Bus, plus this port's
// discovery.Manager, to state.EventBus. A single state.Manager.Apply call
// both fans state:changed out to every subscriber (automation's state
// triggers, diagnostics) and drives discovery's deferred first-publish
// and rename-linked-entity logic, per spec §4.6.
type busEventBus struct {
	bus   *eventbus.Bus
	disco *discovery.Manager
	log   *slog.Logger
}

func newBusEventBus(bus *eventbus.Bus, disco *discovery.Manager, log *slog.Logger) *busEventBus {
	return &busEventBus{bus: bus, disco: disco, log: log}
}

// EmitStateChanged implements state.EventBus.
func (b *busEventBus) EmitStateChanged(ev state.ChangedEvent) {
	b.bus.Publish(eventbus.TopicStateChanged, eventbus.StateChangedPayload{
		PortID:   ev.PortID,
		EntityID: ev.EntityID,
		State:    ev.State,
		OldState: ev.OldState,
		Changes:  ev.Changes,
	})

	if b.disco == nil {
		return
	}
	if err := b.disco.OnStateChanged(ev.EntityID); err != nil && b.log != nil {
		b.log.Warn("port: discovery on state change failed", "entity", ev.EntityID, "error", err)
	}
}
