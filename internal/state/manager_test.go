package state

import (
	"testing"

	"github.com/nerrad567/homenet-bridge/internal/entity"
)

type fakePublisher struct {
	calls []publishCall
}

type publishCall struct {
	topic    string
	payload  string
	retained bool
}

func (f *fakePublisher) Publish(topic string, payload []byte, retained bool) error {
	f.calls = append(f.calls, publishCall{topic: topic, payload: string(payload), retained: retained})
	return nil
}

type fakeBus struct {
	events []ChangedEvent
}

func (f *fakeBus) EmitStateChanged(e ChangedEvent) {
	f.events = append(f.events, e)
}

func TestManager_Apply_PublishesOnChange(t *testing.T) {
	pub := &fakePublisher{}
	bus := &fakeBus{}
	m := New("port1", "homenet", pub, bus)

	if err := m.Apply("light1", entity.State{"on": true}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if len(pub.calls) != 1 {
		t.Fatalf("got %d publish calls, want 1", len(pub.calls))
	}
	if pub.calls[0].topic != "homenet/port1/light1/state" {
		t.Fatalf("topic = %q, want homenet/port1/light1/state", pub.calls[0].topic)
	}
	if !pub.calls[0].retained {
		t.Fatal("publish should be retained")
	}
	if len(bus.events) != 1 {
		t.Fatalf("got %d bus events, want 1", len(bus.events))
	}
}

func TestManager_Apply_DedupsUnchangedUpdate(t *testing.T) {
	pub := &fakePublisher{}
	bus := &fakeBus{}
	m := New("port1", "homenet", pub, bus)

	if err := m.Apply("light1", entity.State{"on": true}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if err := m.Apply("light1", entity.State{"on": true}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if len(pub.calls) != 1 {
		t.Fatalf("got %d publish calls, want 1 (second update is a dup)", len(pub.calls))
	}
	if len(bus.events) != 1 {
		t.Fatalf("got %d bus events, want 1", len(bus.events))
	}
}

func TestManager_Apply_PublishesOnGenuineChange(t *testing.T) {
	pub := &fakePublisher{}
	bus := &fakeBus{}
	m := New("port1", "homenet", pub, bus)

	_ = m.Apply("light1", entity.State{"on": true, "brightness": 100.0})
	_ = m.Apply("light1", entity.State{"brightness": 150.0})

	if len(pub.calls) != 2 {
		t.Fatalf("got %d publish calls, want 2", len(pub.calls))
	}
	if len(bus.events) != 2 {
		t.Fatalf("got %d bus events, want 2", len(bus.events))
	}
	changes := bus.events[1].Changes
	if changes["brightness"] != 150.0 {
		t.Fatalf("changes[brightness] = %v, want 150.0", changes["brightness"])
	}
	if _, ok := changes["on"]; ok {
		t.Fatal("changes should not include unchanged key 'on'")
	}
}

func TestManager_Apply_EmptyUpdatesNoOp(t *testing.T) {
	pub := &fakePublisher{}
	m := New("port1", "homenet", pub, nil)
	if err := m.Apply("light1", entity.State{}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(pub.calls) != 0 {
		t.Fatalf("got %d publish calls, want 0 for empty updates", len(pub.calls))
	}
}

func TestManager_Snapshot_And_All(t *testing.T) {
	pub := &fakePublisher{}
	m := New("port1", "homenet", pub, nil)
	_ = m.Apply("light1", entity.State{"on": true})

	snap := m.Snapshot("light1")
	if snap["on"] != true {
		t.Fatalf("Snapshot() = %v, want on=true", snap)
	}

	all := m.All()
	if len(all) != 1 {
		t.Fatalf("All() returned %d entities, want 1", len(all))
	}
}
