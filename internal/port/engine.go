package port

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nerrad567/homenet-bridge/internal/automation"
	"github.com/nerrad567/homenet-bridge/internal/celx"
	"github.com/nerrad567/homenet-bridge/internal/checksum"
	"github.com/nerrad567/homenet-bridge/internal/command"
	"github.com/nerrad567/homenet-bridge/internal/discovery"
	"github.com/nerrad567/homenet-bridge/internal/entity"
	"github.com/nerrad567/homenet-bridge/internal/eventbus"
	"github.com/nerrad567/homenet-bridge/internal/framer"
	"github.com/nerrad567/homenet-bridge/internal/schema"
	"github.com/nerrad567/homenet-bridge/internal/state"
	"github.com/nerrad567/homenet-bridge/internal/transport"
)

// readBufferSize bounds a single Transport.ReadContext call, generous
// enough for these protocols' short packets with room for several queued
// back-to-back frames.
const readBufferSize = 4096

// Publisher is the narrow MQTT dependency every port collaborator
// (state, discovery, automation) needs: a retained/non-retained publish.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// Subscriber lets the engine receive inbound MQTT command-topic messages.
// handler is invoked once per message with the message's exact topic, so
// two wildcard subscriptions (<entity>/set and <entity>/<attr>/set) serve
// every entity/attribute combination.
type Subscriber interface {
	Subscribe(topic string, handler func(topic string, payload []byte)) error
}

// Deps bundles the collaborators shared across every port on the bridge:
// one MQTT client and one process-wide event bus.
type Deps struct {
	MQTT       Publisher
	Subscriber Subscriber
	Bus        *eventbus.Bus
	Log        *slog.Logger
}

// portWriter adapts a swappable transport.Transport to command.Writer,
// so the command.Manager built at NewEngine time keeps working across a
// supervisor-driven reconnect that replaces the underlying transport.
type portWriter struct {
	mu sync.RWMutex
	tr transport.Transport
}

func (w *portWriter) set(tr transport.Transport) {
	w.mu.Lock()
	w.tr = tr
	w.mu.Unlock()
}

func (w *portWriter) Write(p []byte) (int, error) {
	w.mu.RLock()
	tr := w.tr
	w.mu.RUnlock()
	if tr == nil {
		return 0, fmt.Errorf("port: write with no open transport")
	}
	return tr.Write(p)
}

// Engine owns one port's transport, framer, entity catalog, and the
// state/command/discovery/automation managers built over them, per spec
// §3 "Ownership/lifecycle". It implements automation.CommandDispatcher,
// automation.PacketSender, and automation.StateReader so the automation
// Engine can be constructed directly over it with no adapter types.
type Engine struct {
	id          string
	topicPrefix string
	cfg         Config

	catalog *entity.Catalog
	devices map[string]*entity.Device
	framer  *framer.Framer

	writer    *portWriter
	tr        transport.Transport
	trMu      sync.RWMutex
	stateMgr  *state.Manager
	cmdMgr    *command.Manager
	discoMgr  *discovery.Manager
	autoEng   *automation.Engine
	cel       *celx.Executor
	bus       *eventbus.Bus
	mqtt      Publisher
	sub       Subscriber
	log       *slog.Logger
	status    *statusBox
	unsubCmds func()

	intervalMu   sync.Mutex
	lastPacketAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine builds an Engine for cfg. It does not open the transport or
// start any goroutine; call Start for that.
func NewEngine(cfg Config, deps Deps) (*Engine, error) {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	catalog, err := entity.NewCatalog(cfg.Entities)
	if err != nil {
		return nil, fmt.Errorf("port %q: %w", cfg.ID, err)
	}
	devices := cfg.devicesByID()

	probes := framer.BuildProbes(cfg.Entities, cfg.Defaults)
	fr := framer.New(cfg.Defaults, probes)

	discoMgr := discovery.NewManager(cfg.ID, cfg.TopicPrefix, deps.MQTT, catalog, devices)
	bus := newBusEventBus(deps.Bus, discoMgr, log)
	stateMgr := state.New(cfg.ID, cfg.TopicPrefix, deps.MQTT, bus)

	writer := &portWriter{}
	cmdMgr := command.NewManager(writer, log)

	env, err := celx.BuildEnv(cfg.commandNames(celx.DefaultCommandNames()))
	if err != nil {
		return nil, fmt.Errorf("port %q: %w", cfg.ID, err)
	}
	cel := celx.NewExecutor(env, log)

	e := &Engine{
		id:          cfg.ID,
		topicPrefix: cfg.TopicPrefix,
		cfg:         cfg,
		catalog:     catalog,
		devices:     devices,
		framer:      fr,
		writer:      writer,
		stateMgr:    stateMgr,
		cmdMgr:      cmdMgr,
		discoMgr:    discoMgr,
		cel:         cel,
		bus:         deps.Bus,
		mqtt:        deps.MQTT,
		sub:         deps.Subscriber,
		log:         log,
		status:      newStatusBox(),
	}

	e.autoEng = automation.NewEngine(cfg.Automations, cfg.Scripts, automation.Deps{
		Dispatcher: e,
		Packets:    e,
		Publisher:  deps.MQTT,
		States:     e,
		Bus:        deps.Bus,
		CEL:        cel,
		Log:        log,
	})

	return e, nil
}

// Status reports the engine's current lifecycle state and, if non-nil,
// the cause of its last error.
func (e *Engine) Status() (Status, Cause) {
	return e.status.get()
}

// Attach opens tr as this port's transport and starts the read loop,
// discovery's always-on publishes, and the automation engine. Attach is
// called by Supervisor once per (re)connect; it does not dial tr itself.
func (e *Engine) Attach(ctx context.Context, tr transport.Transport) error {
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.status.set(StatusStarting, Cause{})

	e.trMu.Lock()
	e.tr = tr
	e.trMu.Unlock()
	e.writer.set(tr)

	if err := e.discoMgr.Start(); err != nil {
		e.log.Warn("port: discovery start", "port", e.id, "error", err)
	}

	if e.sub != nil {
		cancel, err := e.subscribeCommands()
		if err != nil {
			return fmt.Errorf("port %q: subscribe commands: %w", e.id, err)
		}
		e.unsubCmds = cancel
	}

	e.autoEng.Start(e.ctx)

	e.wg.Add(1)
	go e.readLoop()

	e.status.set(StatusStarted, Cause{})
	return nil
}

// WaitDisconnected blocks until the read loop started by Attach has
// exited, either because its context was cancelled or the transport
// failed. Called by Supervisor between Attach and Detach so it knows
// when to close/redial the transport.
func (e *Engine) WaitDisconnected() {
	e.wg.Wait()
}

// Detach stops the read loop and automation engine without tearing down
// accumulated state (catalog, discovery's published set, state snapshots
// survive a reconnect). The command-topic subscriptions stay registered
// with the MQTT client, since Subscriber has no unsubscribe, so commands
// arriving while detached still reach handleMQTTMessage. The caller
// (Supervisor) closes/replaces the transport separately.
func (e *Engine) Detach() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.autoEng.Stop()
	if e.unsubCmds != nil {
		e.unsubCmds()
		e.unsubCmds = nil
	}
}

func (e *Engine) subscribeCommands() (func(), error) {
	base := e.topicPrefix + "/" + e.id
	for _, topic := range []string{base + "/+/set", base + "/+/+/set"} {
		if err := e.sub.Subscribe(topic, e.handleMQTTMessage); err != nil {
			return nil, err
		}
	}
	return func() {}, nil
}

// handleMQTTMessage routes one inbound MQTT command-topic message to the
// target entity's command rule, per spec §6.
func (e *Engine) handleMQTTMessage(topic string, payload []byte) {
	if e.bus != nil {
		e.bus.Publish(eventbus.TopicMQTTMessage, eventbus.MQTTMessagePayload{Topic: topic, Payload: payload})
	}

	entityID, attr, ok := parseCommandTopic(e.topicPrefix, e.id, topic)
	if !ok {
		return
	}
	ent, ok := e.catalog.Get(entityID)
	if !ok {
		e.log.Debug("port: command for unknown entity", "port", e.id, "entity", entityID)
		return
	}

	var cmdName string
	var value any
	var hasValue bool
	if attr == "" {
		cmdName, value, hasValue = resolveGenericCommand(ent, string(payload))
	} else {
		cmdName = attr
		value = parseCommandValue(string(payload))
		hasValue = true
	}

	ctx := e.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := e.DispatchCommand(ctx, entityID, cmdName, value, hasValue); err != nil {
		e.log.Warn("port: dispatch command failed", "port", e.id, "entity", entityID, "command", cmdName, "error", err)
	}
}

// readLoop pumps bytes off the transport into the framer and processes
// every packet it yields, until ctx is cancelled or the transport fails.
func (e *Engine) readLoop() {
	defer e.wg.Done()

	buf := make([]byte, readBufferSize)
	for {
		e.trMu.RLock()
		tr := e.tr
		e.trMu.RUnlock()

		n, err := tr.ReadContext(e.ctx, buf)
		if err != nil {
			if e.ctx.Err() != nil {
				return
			}
			e.status.set(StatusReconnecting, Cause{
				Source: SourceSerial, Code: "read_error", Message: err.Error(),
				Severity: SeverityWarn, Retryable: true,
			})
			return
		}
		if n == 0 {
			continue
		}

		for _, pkt := range e.framer.Feed(buf[:n]) {
			e.handlePacket(pkt.Body)
		}
	}
}

// handlePacket fans a framed packet body out to diagnostics, the command
// manager's ACK correlation, and the entity-matching/state pipeline.
func (e *Engine) handlePacket(body []byte) {
	now := time.Now()

	if e.bus != nil {
		e.bus.Publish(eventbus.TopicPacket, eventbus.PacketPayload{PortID: e.id, Body: body})
		e.bus.Publish(eventbus.TopicRawData, eventbus.RawDataPayload{PortID: e.id, PayloadHex: hex.EncodeToString(body)})

		e.intervalMu.Lock()
		var intervalMS int64
		if !e.lastPacketAt.IsZero() {
			intervalMS = now.Sub(e.lastPacketAt).Milliseconds()
		}
		e.lastPacketAt = now
		e.intervalMu.Unlock()
		e.bus.Publish(eventbus.TopicRawDataInterval, eventbus.RawDataIntervalPayload{
			PortID: e.id, PayloadHex: hex.EncodeToString(body), IntervalMS: intervalMS,
		})
	}

	e.cmdMgr.NotifyPacket(body)
	e.matchAndApply(body, now)
}

// matchAndApply implements spec §4.3's parse pipeline: for every entity
// whose "state" rule matches body, gate-and-extract every state_<property>
// rule (state_on/state_off report "state" directly on a match, everything
// else extracts only once its own pattern matches), normalize the result,
// and apply it to the state manager.
func (e *Engine) matchAndApply(body []byte, now time.Time) {
	for _, ent := range e.catalog.All() {
		gate, ok := ent.Rule("state")
		if !ok {
			continue // button entities carry no "state" rule
		}

		prev := e.stateMgr.Snapshot(ent.ID)
		vars := celx.Vars{Data: body, State: prev, States: e.statesAsAny(), Timestamp: now.Unix()}

		if !e.ruleMatches(gate, body, vars) {
			continue
		}

		updates := entity.State{}
		if val, ok := e.extractRule(gate, body, vars); ok {
			updates["state"] = val
		}
		for key, rule := range ent.Rules {
			const prefix = "state_"
			if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
				continue
			}
			property := key[len(prefix):]

			// state_on/state_off is a match-only pair per spec §4.3 step 5:
			// a successful match reports the entity's on/off state directly,
			// it does not extract a value from the matched bytes.
			if property == "on" || property == "off" {
				if !e.ruleMatches(rule, body, vars) {
					continue
				}
				if property == "on" {
					updates["state"] = "ON"
				} else {
					updates["state"] = "OFF"
				}
				continue
			}

			// A schema state_<property> rule only extracts once its own
			// byte pattern matches; CEL extractors self-gate by returning
			// null when the expression doesn't apply.
			if !rule.IsCEL() && !rule.Schema.Matches(body) {
				continue
			}
			val, ok := e.extractRule(rule, body, vars)
			if !ok {
				continue
			}
			updates[property] = val
		}

		if len(updates) == 0 {
			continue
		}

		ent.Normalize(prev, updates)
		if err := e.stateMgr.Apply(ent.ID, updates); err != nil {
			e.log.Warn("port: apply state failed", "port", e.id, "entity", ent.ID, "error", err)
		}
	}
}

// ruleMatches evaluates rule as a byte-level match (Schema) or a CEL
// guard, per spec §3's Schema|CelExpression discriminated rule value.
// A rule that errors (schema out-of-range, CEL throw) is a MatchError
// per spec §7, logged at debug and treated as no match.
func (e *Engine) ruleMatches(rule entity.Rule, body []byte, vars celx.Vars) bool {
	switch {
	case rule.IsCEL():
		return e.cel.EvaluateGuard(rule.CEL, vars)
	default:
		return rule.Schema.Matches(body)
	}
}

// extractRule evaluates rule as a value extractor.
func (e *Engine) extractRule(rule entity.Rule, body []byte, vars celx.Vars) (any, bool) {
	switch {
	case rule.IsCEL():
		return e.cel.EvaluateExtractor(rule.CEL, vars)
	default:
		return rule.Schema.Extract(body)
	}
}

// statesAsAny converts the state manager's per-entity snapshots
// (map[string]entity.State) to the map[string]map[string]any shape
// celx.Vars and automation.StateReader expect.
func (e *Engine) statesAsAny() map[string]map[string]any {
	all := e.stateMgr.All()
	out := make(map[string]map[string]any, len(all))
	for id, s := range all {
		out[id] = s
	}
	return out
}

// Snapshot implements automation.StateReader.
func (e *Engine) Snapshot(entityID string) map[string]any {
	return e.stateMgr.Snapshot(entityID)
}

// All implements automation.StateReader.
func (e *Engine) All() map[string]map[string]any {
	return e.statesAsAny()
}

// SendRaw implements automation.PacketSender (action:send_packet): it
// writes data through the command manager with no ACK expectation,
// optionally applying the port's configured TX checksum/header/footer
// via autoChecksum.
func (e *Engine) SendRaw(ctx context.Context, data []byte, autoChecksum bool) error {
	packet := data
	if autoChecksum {
		packet = framePacket(data, e.cfg.Defaults)
	}
	_, err := e.cmdMgr.Send(ctx, packet, command.Options{
		TXDelay:   e.cfg.Defaults.TXDelay,
		TXTimeout: e.cfg.Defaults.TXTimeout,
	})
	return err
}

// DispatchCommand implements automation.CommandDispatcher, and is also
// the entry point for inbound MQTT command-topic messages. It resolves
// entityID's command_<command> rule to packet bytes (via schema encoding
// or a CEL command expression), sends them through the command manager
// with the entity's merged protocol defaults, and — for Optimistic
// entities — synthesizes the resulting state directly rather than
// waiting for a bus echo to drive matchAndApply.
func (e *Engine) DispatchCommand(ctx context.Context, entityID, cmdName string, value any, hasValue bool) error {
	ent, ok := e.catalog.Get(entityID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, entityID)
	}
	ruleKey := "command_" + cmdName
	rule, ok := ent.Rule(ruleKey)
	if !ok {
		return fmt.Errorf("%w: %q on entity %q", ErrUnknownCommand, ruleKey, entityID)
	}

	defaults := e.cfg.Defaults.Merge(ent.PacketParameters)

	packet, ackMatch, err := e.buildCommand(rule, value, hasValue, defaults)
	if err != nil {
		return fmt.Errorf("port: build command %q for %q: %w", ruleKey, entityID, err)
	}

	opts := command.Options{
		AckMatch:     ackMatch,
		TXDelay:      defaults.TXDelay,
		TXTimeout:    defaults.TXTimeout,
		TXRetryCount: defaults.TXRetryCount,
	}

	if _, err := e.cmdMgr.Send(ctx, packet, opts); err != nil {
		return fmt.Errorf("port: send command %q for %q: %w", ruleKey, entityID, err)
	}

	if ent.Optimistic {
		e.applyOptimistic(ent, cmdName, value, hasValue)
	}
	return nil
}

// buildCommand turns a command_<name> rule plus its invocation value
// into packet bytes and an optional ACK-matching schema, per spec §4.3's
// command construction and the CEL counterpart described in spec §4.2's
// design note.
func (e *Engine) buildCommand(rule entity.Rule, value any, hasValue bool, defaults entity.ProtocolDefaults) ([]byte, *schema.Schema, error) {
	if rule.IsCEL() {
		vars := celx.Vars{X: value, Timestamp: time.Now().Unix()}
		if s, ok := value.(string); ok {
			vars.XStr = s
		}
		out, err := e.cel.Evaluate(rule.CEL, vars)
		if err != nil {
			return nil, nil, err
		}
		pr, ok := celx.AsPacketResult(out)
		if !ok {
			return nil, nil, fmt.Errorf("%w: command expression did not return a packet", ErrBadCommandValue)
		}
		if !pr.HasAck {
			return framePacket(pr.Packet, defaults), nil, nil
		}
		ack := &schema.Schema{Data: pr.AckMatch}
		return framePacket(pr.Packet, defaults), ack, nil
	}

	v := value
	if !hasValue {
		v = true // zero-arg commands (on/off/press) still write a 0/1 flag
	}
	body, err := rule.Schema.BuildCommandBody(v)
	if err != nil {
		return nil, nil, err
	}
	return framePacket(body, defaults), nil, nil
}

// applyOptimistic synthesizes the state update an Optimistic entity's
// command implies, without waiting for the bus to echo it back, per spec
// §4.4's optimistic-entity handling.
func (e *Engine) applyOptimistic(ent *entity.Entity, cmdName string, value any, hasValue bool) {
	updates := entity.State{}
	switch cmdName {
	case "on":
		updates["state"] = "ON"
	case "off":
		updates["state"] = "OFF"
	case "open":
		updates["state"] = "open"
	case "close":
		updates["state"] = "closed"
	case "lock":
		updates["state"] = "LOCKED"
	case "unlock":
		updates["state"] = "UNLOCKED"
	default:
		if hasValue {
			updates[cmdName] = value
		}
	}
	if len(updates) == 0 {
		return
	}
	prev := e.stateMgr.Snapshot(ent.ID)
	ent.Normalize(prev, updates)
	if err := e.stateMgr.Apply(ent.ID, updates); err != nil {
		e.log.Warn("port: optimistic apply failed", "port", e.id, "entity", ent.ID, "error", err)
	}
}

// framePacket wraps body with d's TX header/footer/checksum, per spec
// §4.1's framing rules applied symmetrically to outbound packets.
func framePacket(body []byte, d entity.ProtocolDefaults) []byte {
	if len(body) == 0 {
		return body
	}
	out := make([]byte, 0, len(d.TXHeader)+len(body)+len(d.TXFooter)+2)
	out = append(out, d.TXHeader...)
	out = append(out, body...)
	if d.TXChecksum != checksum.ModeNone {
		out = append(out, checksum.Compute(d.TXChecksum, d.TXHeader, body))
	}
	if d.TXChecksum2 != checksum.Mode2None {
		out = append(out, checksum.Compute2(d.TXChecksum2, d.TXHeader, body)...)
	}
	out = append(out, d.TXFooter...)
	return out
}
