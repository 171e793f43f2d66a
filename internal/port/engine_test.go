package port

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/homenet-bridge/internal/checksum"
	"github.com/nerrad567/homenet-bridge/internal/entity"
	"github.com/nerrad567/homenet-bridge/internal/eventbus"
	"github.com/nerrad567/homenet-bridge/internal/schema"
	"github.com/nerrad567/homenet-bridge/internal/transport"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall
}

type publishCall struct {
	topic    string
	payload  []byte
	retained bool
}

func (f *fakePublisher) Publish(topic string, payload []byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, publishCall{topic: topic, payload: append([]byte(nil), payload...), retained: retained})
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeTransport serves a fixed queue of read chunks, then blocks until ctx
// is cancelled, mimicking a bus that goes quiet after its seed packets.
type fakeTransport struct {
	mu     sync.Mutex
	chunks [][]byte
	writes [][]byte
	closed bool
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) ReadContext(ctx context.Context, buf []byte) (int, error) {
	f.mu.Lock()
	if len(f.chunks) > 0 {
		chunk := f.chunks[0]
		f.chunks = f.chunks[1:]
		f.mu.Unlock()
		return copy(buf, chunk), nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return 0, ctx.Err()
}

func (f *fakeTransport) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

var _ transport.Transport = (*fakeTransport)(nil)

func switchEntity(id string) *entity.Entity {
	return &entity.Entity{
		ID:   id,
		Type: entity.TypeSwitch,
		Rules: map[string]entity.Rule{
			"state": entity.FromSchema(schema.Schema{
				Offset:  0,
				Length:  1,
				Mapping: map[byte]string{0x01: "ON", 0x00: "OFF"},
			}),
			"command_on": entity.FromSchema(schema.Schema{
				Data:        []byte{0x30, 0x00},
				ValueOffset: 1,
				ValueEncode: schema.ValueEncode{Length: 1},
			}),
		},
	}
}

func newTestEngine(t *testing.T, entities []*entity.Entity, pub *fakePublisher) *Engine {
	t.Helper()
	cfg := Config{
		ID:          "port1",
		TopicPrefix: "homenet",
		Defaults:    entity.ProtocolDefaults{RXLength: 1, RXChecksum: checksum.ModeNone, RXChecksum2: checksum.Mode2None},
		Entities:    entities,
	}
	e, err := NewEngine(cfg, Deps{MQTT: pub, Bus: eventbus.New(), Log: testLogger()})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func TestEngine_MatchAndApply_SchemaGateSetsState(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, []*entity.Entity{switchEntity("switch1")}, pub)

	e.matchAndApply([]byte{0x01}, time.Now())

	snap := e.Snapshot("switch1")
	if snap["state"] != "ON" {
		t.Fatalf("state = %v, want ON", snap["state"])
	}
}

// TestEngine_MatchAndApply_StateOnOffPair exercises seed scenario #1
// (Ezville light ON parse): a state_on schema rule's byte pattern must
// actually match before "state" flips to ON, and the matched bytes are
// never leaked into the state bag under the raw "on" key.
func TestEngine_MatchAndApply_StateOnOffPair(t *testing.T) {
	pub := &fakePublisher{}
	light := &entity.Entity{
		ID:   "light_1",
		Type: entity.TypeLight,
		Rules: map[string]entity.Rule{
			"state": entity.FromSchema(schema.Schema{Offset: 0, Data: []byte{0x30}}),
			"state_on": entity.FromSchema(schema.Schema{
				Offset: 0,
				Data:   []byte{0x30, 0x01},
				Mask:   []byte{0xFF, 0x01},
			}),
			"state_off": entity.FromSchema(schema.Schema{
				Offset: 0,
				Data:   []byte{0x30, 0x00},
				Mask:   []byte{0xFF, 0x01},
			}),
		},
	}
	e := newTestEngine(t, []*entity.Entity{light}, pub)

	// Header/footer/checksum already stripped: body = 30 01 00 25.
	e.matchAndApply([]byte{0x30, 0x01, 0x00, 0x25}, time.Now())

	snap := e.Snapshot("light_1")
	if snap["state"] != "ON" {
		t.Fatalf("state = %v, want ON", snap["state"])
	}
	if _, leaked := snap["on"]; leaked {
		t.Fatalf("state_on must not extract a raw value into the state bag, got %v", snap)
	}

	// A body whose first byte doesn't match the "state" gate at all must
	// leave the light unreported, not fall through to state_on's extractor.
	pub2 := &fakePublisher{}
	e2 := newTestEngine(t, []*entity.Entity{light}, pub2)
	e2.matchAndApply([]byte{0x40, 0x01, 0x00, 0x25}, time.Now())
	if _, ok := e2.Snapshot("light_1")["state"]; ok {
		t.Fatalf("state must stay unset when the gate doesn't match, got %v", e2.Snapshot("light_1"))
	}
}

func TestEngine_MatchAndApply_ValvePositionNormalizes(t *testing.T) {
	pub := &fakePublisher{}
	valve := &entity.Entity{
		ID:   "valve1",
		Type: entity.TypeValve,
		Rules: map[string]entity.Rule{
			// Offset is deliberately out of range: Matches ignores it (Data is
			// empty, so the gate matches unconditionally) but Extract fails,
			// so the gate contributes no "state" key and normalizeValve
			// derives "state" from the position delta instead.
			"state": entity.FromSchema(schema.Schema{Offset: 10}),
			"state_position": entity.FromSchema(schema.Schema{Offset: 0, Length: 1}),
		},
	}
	e := newTestEngine(t, []*entity.Entity{valve}, pub)

	e.matchAndApply([]byte{55}, time.Now())

	snap := e.Snapshot("valve1")
	if snap["position"] != 55.0 {
		t.Fatalf("position = %v, want 55", snap["position"])
	}
	if snap["state"] != "open" {
		t.Fatalf("state = %v, want open (no prior position, not 0/100, defaults open)", snap["state"])
	}
}

func TestEngine_MatchAndApply_ButtonsHaveNoStateRule(t *testing.T) {
	pub := &fakePublisher{}
	btn := &entity.Entity{ID: "btn1", Type: entity.TypeButton}
	e := newTestEngine(t, []*entity.Entity{btn}, pub)

	e.matchAndApply([]byte{0x01}, time.Now())

	if pub.count() != 0 {
		t.Fatalf("got %d publishes, want 0 (button entities carry no state rule)", pub.count())
	}
}

func TestEngine_DispatchCommand_UnknownEntity(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, []*entity.Entity{switchEntity("switch1")}, pub)

	if err := e.DispatchCommand(context.Background(), "nope", "on", nil, false); err == nil {
		t.Fatal("DispatchCommand() error = nil, want ErrUnknownEntity")
	}
}

func TestEngine_DispatchCommand_UnknownCommand(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, []*entity.Entity{switchEntity("switch1")}, pub)

	if err := e.DispatchCommand(context.Background(), "switch1", "blink", nil, false); err == nil {
		t.Fatal("DispatchCommand() error = nil, want ErrUnknownCommand")
	}
}

func TestEngine_DispatchCommand_SchemaBuildsFramedPacket(t *testing.T) {
	pub := &fakePublisher{}
	ent := switchEntity("switch1")
	e := newTestEngine(t, []*entity.Entity{ent}, pub)
	e.cfg.Defaults.TXHeader = []byte{0xAA}
	e.cfg.Defaults.TXFooter = []byte{0x0D}
	e.cfg.Defaults.TXChecksum = checksum.ModeAdd

	tr := &fakeTransport{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := e.Attach(ctx, tr); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	defer e.Detach()

	if err := e.DispatchCommand(context.Background(), "switch1", "on", nil, false); err != nil {
		t.Fatalf("DispatchCommand() error = %v", err)
	}

	if tr.writeCount() != 1 {
		t.Fatalf("writeCount() = %d, want 1", tr.writeCount())
	}
	got := tr.writes[0]
	body := []byte{0x30, 0x01} // command_on body with value_offset=1 set to 1 (zero-arg -> true -> 1)
	wantCS := checksum.Compute(checksum.ModeAdd, e.cfg.Defaults.TXHeader, body)
	want := append(append(append([]byte{}, e.cfg.Defaults.TXHeader...), body...), wantCS)
	want = append(want, e.cfg.Defaults.TXFooter...)
	if string(got) != string(want) {
		t.Fatalf("written packet = % x, want % x", got, want)
	}
}

func TestEngine_DispatchCommand_OptimisticSynthesizesState(t *testing.T) {
	pub := &fakePublisher{}
	ent := switchEntity("switch1")
	ent.Optimistic = true
	e := newTestEngine(t, []*entity.Entity{ent}, pub)

	tr := &fakeTransport{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := e.Attach(ctx, tr); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	defer e.Detach()

	if err := e.DispatchCommand(context.Background(), "switch1", "on", nil, false); err != nil {
		t.Fatalf("DispatchCommand() error = %v", err)
	}

	snap := e.Snapshot("switch1")
	if snap["state"] != "ON" {
		t.Fatalf("state = %v, want ON (optimistic)", snap["state"])
	}
}

func TestEngine_ApplyOptimistic_FanPercentageClamps(t *testing.T) {
	pub := &fakePublisher{}
	fan := &entity.Entity{
		ID:   "fan1",
		Type: entity.TypeFan,
		Rules: map[string]entity.Rule{
			"state": entity.FromSchema(schema.Schema{}),
		},
	}
	e := newTestEngine(t, []*entity.Entity{fan}, pub)

	e.applyOptimistic(fan, "percentage", 120.0, true)

	snap := e.Snapshot("fan1")
	if snap["percentage"] != 100.0 {
		t.Fatalf("percentage = %v, want clamped 100", snap["percentage"])
	}
}

func TestEngine_ReadLoop_FeedsMatchAndApply(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, []*entity.Entity{switchEntity("switch1")}, pub)

	tr := &fakeTransport{chunks: [][]byte{{0x01}}}
	ctx, cancel := context.WithCancel(context.Background())
	if err := e.Attach(ctx, tr); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	deadline := time.After(time.Second)
	for {
		if e.Snapshot("switch1")["state"] == "ON" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for read loop to apply state")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	e.Detach()
}

func TestFramePacket_WrapsHeaderChecksumFooter(t *testing.T) {
	d := entity.ProtocolDefaults{
		TXHeader:   []byte{0xAA},
		TXFooter:   []byte{0x0D, 0x0A},
		TXChecksum: checksum.ModeXOR,
	}
	body := []byte{0x01, 0x02, 0x03}
	got := framePacket(body, d)

	cs := checksum.Compute(checksum.ModeXOR, d.TXHeader, body)
	want := append(append(append([]byte{}, d.TXHeader...), body...), cs)
	want = append(want, d.TXFooter...)
	if string(got) != string(want) {
		t.Fatalf("framePacket() = % x, want % x", got, want)
	}
}

func TestFramePacket_EmptyBodyPassesThrough(t *testing.T) {
	d := entity.ProtocolDefaults{TXHeader: []byte{0xAA}}
	if got := framePacket(nil, d); len(got) != 0 {
		t.Fatalf("framePacket(nil) = % x, want empty", got)
	}
}
