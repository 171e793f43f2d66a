package entity

import (
	"reflect"
	"testing"
)

func TestState_MergeAndDiff(t *testing.T) {
	prev := State{"on": true, "brightness": 100.0}
	updates := State{"brightness": 150.0, "mode": "white"}

	next := prev.Merge(updates)
	want := State{"on": true, "brightness": 150.0, "mode": "white"}
	if !reflect.DeepEqual(next, want) {
		t.Fatalf("Merge() = %v, want %v", next, want)
	}

	changes := Diff(prev, next, updates)
	wantChanges := State{"brightness": 150.0, "mode": "white"}
	if !reflect.DeepEqual(changes, wantChanges) {
		t.Fatalf("Diff() = %v, want %v", changes, wantChanges)
	}
}

func TestState_Diff_NoChange(t *testing.T) {
	prev := State{"on": true}
	updates := State{"on": true}
	next := prev.Merge(updates)
	changes := Diff(prev, next, updates)
	if len(changes) != 0 {
		t.Fatalf("Diff() = %v, want empty", changes)
	}
}

func TestEntity_Normalize_ValvePosition(t *testing.T) {
	e := &Entity{Type: TypeValve}
	prev := State{"position": 20.0}
	updates := State{"position": 55.0}
	e.Normalize(prev, updates)
	if updates["state"] != "opening" {
		t.Fatalf("state = %v, want opening", updates["state"])
	}
}

func TestEntity_Normalize_ValveClosed(t *testing.T) {
	e := &Entity{Type: TypeValve}
	updates := State{"position": -5.0}
	e.Normalize(State{}, updates)
	if updates["position"] != 0.0 {
		t.Fatalf("position = %v, want clamped 0", updates["position"])
	}
	if updates["state"] != "closed" {
		t.Fatalf("state = %v, want closed", updates["state"])
	}
}

func TestEntity_Normalize_FanPercentageClamp(t *testing.T) {
	e := &Entity{Type: TypeFan}
	updates := State{"percentage": 120.0, "direction": "sideways"}
	e.Normalize(State{}, updates)
	if updates["percentage"] != 100.0 {
		t.Fatalf("percentage = %v, want clamped 100", updates["percentage"])
	}
	if _, ok := updates["direction"]; ok {
		t.Fatal("invalid direction value should have been dropped")
	}
}

func TestEntity_Normalize_ClimateUnknownMode(t *testing.T) {
	e := &Entity{Type: TypeClimate, Climate: &ClimateConfig{Modes: []string{"heat", "cool", "off"}}}
	updates := State{"mode": "turbo"}
	e.Normalize(State{}, updates)
	if _, ok := updates["mode"]; ok {
		t.Fatal("unrecognised climate mode should have been dropped")
	}
}

func TestCatalog_DuplicateID(t *testing.T) {
	entities := []*Entity{
		{ID: "light1", Type: TypeLight, Rules: map[string]Rule{"state": FromCEL("x")}},
		{ID: "light1", Type: TypeSwitch, Rules: map[string]Rule{"state": FromCEL("x")}},
	}
	if _, err := NewCatalog(entities); err == nil {
		t.Fatal("NewCatalog() error = nil, want duplicate id error")
	}
}

func TestCatalog_MissingStateRule(t *testing.T) {
	entities := []*Entity{{ID: "light1", Type: TypeLight}}
	if _, err := NewCatalog(entities); err == nil {
		t.Fatal("NewCatalog() error = nil, want missing state rule error")
	}
}

func TestCatalog_ButtonExemptFromStateRule(t *testing.T) {
	entities := []*Entity{{ID: "btn1", Type: TypeButton}}
	if _, err := NewCatalog(entities); err != nil {
		t.Fatalf("NewCatalog() error = %v, want nil", err)
	}
}

func TestEntity_EffectiveUniqueID(t *testing.T) {
	e := &Entity{ID: "light1"}
	if got := e.EffectiveUniqueID("port1"); got != "homenet_port1_light1" {
		t.Fatalf("EffectiveUniqueID() = %q, want homenet_port1_light1", got)
	}
	e.UniqueID = "custom"
	if got := e.EffectiveUniqueID("port1"); got != "custom" {
		t.Fatalf("EffectiveUniqueID() = %q, want custom", got)
	}
}

func TestProtocolDefaults_Merge(t *testing.T) {
	base := ProtocolDefaults{RXLength: 10, TXRetryCount: 3}
	override := &ProtocolDefaults{RXLength: 20}
	merged := base.Merge(override)
	if merged.RXLength != 20 {
		t.Fatalf("RXLength = %d, want 20", merged.RXLength)
	}
	if merged.TXRetryCount != 3 {
		t.Fatalf("TXRetryCount = %d, want 3 (unchanged)", merged.TXRetryCount)
	}
}
