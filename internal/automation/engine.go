package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/nerrad567/homenet-bridge/internal/celx"
	"github.com/nerrad567/homenet-bridge/internal/eventbus"
)

// workerPoolSize bounds concurrent automation runs, per spec §6's
// "bounded worker pool for automation action execution" — generalized
// from the teacher's per-group sync.WaitGroup fan-out (executeGroup) to a
// fixed-size buffered-semaphore pool shared across every automation and
// trigger fire.
const workerPoolSize = 8

// defaultWaitCheckInterval and defaultWaitTimeout are action:wait_until's
// spec-mandated defaults.
const (
	defaultWaitCheckInterval = 200 * time.Millisecond
	defaultWaitTimeout       = 60 * time.Second
)

// CommandDispatcher lets action:command trigger an entity command without
// the automation engine knowing about entities, schemas, or the command
// manager — mirroring the teacher's narrow DeviceRegistry/MQTTClient
// collaborator interfaces.
type CommandDispatcher interface {
	DispatchCommand(ctx context.Context, entityID, command string, value any, hasValue bool) error
}

// PacketSender lets action:send_packet write a raw packet through the
// owning port, optionally applying its checksum defaults.
type PacketSender interface {
	SendRaw(ctx context.Context, data []byte, autoChecksum bool) error
}

// Publisher is the narrow MQTT dependency for action:publish.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// StateReader exposes per-port state snapshots for state triggers and for
// CEL's state/states guard bindings. The shapes match celx.Vars directly
// so the engine never needs to know about internal/entity.
type StateReader interface {
	Snapshot(entityID string) map[string]any
	All() map[string]map[string]any
}

// Bus is the narrow event-bus dependency: packet and state-changed
// triggers subscribe to it.
type Bus interface {
	Subscribe(topic string, bufSize int) (<-chan eventbus.Event, func())
}

// runTracker holds one automation's in-flight-run bookkeeping for
// single/restart mode.
type runTracker struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// Engine wires triggers (event bus subscriptions, a cron scheduler, and
// per-interval tickers) to guarded, moded action runs.
//
// Grounded on the teacher's Engine (engine.go): ActivateScene generalizes
// to runGuardedCtx, groupActions/executeGroup generalizes to the
// sequential executeActions loop — spec's action grammar has no
// per-action parallel flag, so the teacher's parallel sub-grouping
// collapses to straight sequential execution; cross-automation
// parallelism now comes from mode=parallel plus the worker pool instead.
//
// Thread Safety: Engine is safe for concurrent use; each automation's run
// state is guarded by its own runTracker mutex.
type Engine struct {
	dispatcher CommandDispatcher
	packets    PacketSender
	publisher  Publisher
	states     StateReader
	bus        Bus
	cel        *celx.Executor
	log        *slog.Logger

	automations []AutomationConfig
	scripts     map[string]ScriptConfig

	cron      *cron.Cron
	workerSem chan struct{}

	runnersMu sync.Mutex
	runners   map[string]*runTracker

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Deps bundles Engine's collaborators.
type Deps struct {
	Dispatcher CommandDispatcher
	Packets    PacketSender
	Publisher  Publisher
	States     StateReader
	Bus        Bus
	CEL        *celx.Executor
	Log        *slog.Logger
}

// NewEngine constructs an Engine for one port's automations and scripts.
func NewEngine(automations []AutomationConfig, scripts []ScriptConfig, deps Deps) *Engine {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	scriptMap := make(map[string]ScriptConfig, len(scripts))
	for _, s := range scripts {
		scriptMap[s.ID] = s
	}
	return &Engine{
		dispatcher:  deps.Dispatcher,
		packets:     deps.Packets,
		publisher:   deps.Publisher,
		states:      deps.States,
		bus:         deps.Bus,
		cel:         deps.CEL,
		log:         log,
		automations: automations,
		scripts:     scriptMap,
		cron:        cron.New(),
		workerSem:   make(chan struct{}, workerPoolSize),
		runners:     make(map[string]*runTracker),
	}
}

// Start subscribes triggers, starts the cron scheduler and interval
// tickers, and fires every startup trigger once.
func (e *Engine) Start(ctx context.Context) {
	e.baseCtx, e.cancel = context.WithCancel(ctx)

	packetCh, packetCancel := e.bus.Subscribe(eventbus.TopicPacket, 64)
	stateCh, stateCancel := e.bus.Subscribe(eventbus.TopicStateChanged, 64)

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		defer packetCancel()
		e.watchPackets(packetCh)
	}()
	go func() {
		defer e.wg.Done()
		defer stateCancel()
		e.watchStateChanges(stateCh)
	}()

	e.scheduleAll()
	e.cron.Start()

	for _, auto := range e.automations {
		for _, trig := range auto.Triggers {
			if trig.Type == TriggerStartup {
				e.fire(auto, trig, celx.Vars{Timestamp: time.Now().Unix()})
			}
		}
	}
}

// Stop cancels every in-flight run and stops the scheduler.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	stopped := e.cron.Stop()
	<-stopped.Done()
	e.wg.Wait()
}

// watchPackets dispatches every bus packet event to packet triggers whose
// schema matches.
func (e *Engine) watchPackets(ch <-chan eventbus.Event) {
	for ev := range ch {
		p, ok := ev.Payload.(eventbus.PacketPayload)
		if !ok {
			continue
		}
		for _, auto := range e.automations {
			for _, trig := range auto.Triggers {
				if trig.Type != TriggerPacket || trig.Packet == nil {
					continue
				}
				if trig.Packet.Schema.Matches(p.Body) {
					e.fire(auto, trig, celx.Vars{Data: p.Body, Timestamp: time.Now().Unix()})
				}
			}
		}
	}
}

// watchStateChanges dispatches every bus state-changed event to state
// triggers whose match predicate and debounce window are satisfied.
func (e *Engine) watchStateChanges(ch <-chan eventbus.Event) {
	debounced := make(map[*TriggerConfig]time.Time)
	for ev := range ch {
		p, ok := ev.Payload.(eventbus.StateChangedPayload)
		if !ok {
			continue
		}
		for ai := range e.automations {
			auto := e.automations[ai]
			for ti := range auto.Triggers {
				trig := auto.Triggers[ti]
				if trig.Type != TriggerState || trig.State == nil {
					continue
				}
				st := trig.State
				if st.EntityID != p.EntityID {
					continue
				}
				if _, changed := p.Changes[st.Property]; !changed {
					continue
				}
				if !matchValue(p.State[st.Property], st.Match, st.Value) {
					continue
				}
				if st.DebounceMS > 0 {
					key := &auto.Triggers[ti]
					if last, ok := debounced[key]; ok && time.Since(last) < time.Duration(st.DebounceMS)*time.Millisecond {
						continue
					}
					debounced[&auto.Triggers[ti]] = time.Now()
				}
				e.fire(auto, trig, celx.Vars{
					State:     p.State,
					States:    e.states.All(),
					Trigger:   p,
					Timestamp: time.Now().Unix(),
				})
			}
		}
	}
}

// matchValue applies a state trigger's comparison operator.
func matchValue(actual any, op MatchOp, want any) bool {
	switch op {
	case MatchEq, MatchLiteral:
		return fmt.Sprint(actual) == fmt.Sprint(want)
	case MatchRegex:
		pattern, ok := want.(string)
		if !ok {
			return false
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(fmt.Sprint(actual))
	case MatchGt, MatchGte, MatchLt, MatchLte:
		a, aok := toFloat(actual)
		w, wok := toFloat(want)
		if !aok || !wok {
			return false
		}
		switch op {
		case MatchGt:
			return a > w
		case MatchGte:
			return a >= w
		case MatchLt:
			return a < w
		case MatchLte:
			return a <= w
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// scheduleAll wires every schedule trigger to the cron scheduler or a
// dedicated interval ticker goroutine.
func (e *Engine) scheduleAll() {
	for _, auto := range e.automations {
		for _, trig := range auto.Triggers {
			if trig.Type != TriggerSchedule || trig.Schedule == nil {
				continue
			}
			auto, trig := auto, trig
			switch {
			case trig.Schedule.Cron != "":
				_, err := e.cron.AddFunc(trig.Schedule.Cron, func() {
					e.fire(auto, trig, celx.Vars{Timestamp: time.Now().Unix()})
				})
				if err != nil {
					e.log.Error("automation: invalid cron expression", "automation", auto.ID, "cron", trig.Schedule.Cron, "error", err)
				}
			case trig.Schedule.EveryMS > 0:
				e.wg.Add(1)
				go e.runInterval(auto, trig)
			default:
				e.log.Error("automation: schedule trigger missing every_ms/cron", "automation", auto.ID)
			}
		}
	}
}

func (e *Engine) runInterval(auto AutomationConfig, trig TriggerConfig) {
	defer e.wg.Done()
	ticker := time.NewTicker(time.Duration(trig.Schedule.EveryMS) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-e.baseCtx.Done():
			return
		case <-ticker.C:
			e.fire(auto, trig, celx.Vars{Timestamp: time.Now().Unix()})
		}
	}
}

// fire evaluates trig's guard, then dispatches a run according to auto's
// execution mode, per spec §4.7.
func (e *Engine) fire(auto AutomationConfig, trig TriggerConfig, vars celx.Vars) {
	// The trigger guard is AND-combined with the automation guard: a false
	// trigger guard selects the Else branch just as a false automation
	// guard does. auto is a copy, so overriding its Guard is local.
	if trig.Guard != "" && !e.cel.EvaluateGuard(trig.Guard, vars) {
		auto.Guard = "false"
	}

	select {
	case e.workerSem <- struct{}{}:
	case <-e.baseCtx.Done():
		return
	}

	switch auto.EffectiveMode() {
	case ModeParallel:
		go e.runGuardedCtx(e.baseCtx, auto, vars)
	case ModeRestart:
		tracker := e.trackerFor(auto.ID)
		tracker.mu.Lock()
		if tracker.cancel != nil {
			tracker.cancel()
		}
		runCtx, cancel := context.WithCancel(e.baseCtx)
		tracker.cancel = cancel
		tracker.running = true
		tracker.mu.Unlock()
		go func() {
			e.runGuardedCtx(runCtx, auto, vars)
			tracker.mu.Lock()
			tracker.running = false
			tracker.mu.Unlock()
		}()
	default: // ModeSingle
		tracker := e.trackerFor(auto.ID)
		tracker.mu.Lock()
		if tracker.running {
			tracker.mu.Unlock()
			<-e.workerSem
			e.log.Debug("automation: skipped, already running", "automation", auto.ID)
			return
		}
		runCtx, cancel := context.WithCancel(e.baseCtx)
		tracker.cancel = cancel
		tracker.running = true
		tracker.mu.Unlock()
		go func() {
			e.runGuardedCtx(runCtx, auto, vars)
			tracker.mu.Lock()
			tracker.running = false
			tracker.mu.Unlock()
		}()
	}
}

func (e *Engine) trackerFor(id string) *runTracker {
	e.runnersMu.Lock()
	defer e.runnersMu.Unlock()
	t, ok := e.runners[id]
	if !ok {
		t = &runTracker{}
		e.runners[id] = t
	}
	return t
}

func (e *Engine) runGuardedCtx(ctx context.Context, auto AutomationConfig, vars celx.Vars) {
	defer func() { <-e.workerSem }()

	runID := uuid.NewString()
	passed := auto.Guard == "" || e.cel.EvaluateGuard(auto.Guard, vars)

	e.log.Info("automation run started", "automation", auto.ID, "run_id", runID, "guard_passed", passed)

	actions := auto.Then
	if !passed {
		actions = auto.Else
	}
	if err := e.executeActions(ctx, actions, vars); err != nil {
		e.log.Error("automation run failed", "automation", auto.ID, "run_id", runID, "error", err)
		return
	}
	e.log.Info("automation run completed", "automation", auto.ID, "run_id", runID)
}

// executeActions runs actions strictly in declared order, per spec §4.7
// ("actions run sequentially within one automation run"); ctx is checked
// at every suspension point.
func (e *Engine) executeActions(ctx context.Context, actions []ActionConfig, vars celx.Vars) error {
	for i, a := range actions {
		select {
		case <-ctx.Done():
			return fmt.Errorf("automation: aborted before action %d: %w", i, ctx.Err())
		default:
		}
		if err := e.executeAction(ctx, a, vars); err != nil {
			return fmt.Errorf("action %d (%s): %w", i, a.Type, err)
		}
	}
	return nil
}

func (e *Engine) executeAction(ctx context.Context, a ActionConfig, vars celx.Vars) error {
	switch a.Type {
	case ActionCommand:
		return e.execCommand(ctx, a, vars)
	case ActionPublish:
		return e.execPublish(a)
	case ActionLog:
		e.execLog(a)
		return nil
	case ActionDelay:
		return e.execDelay(ctx, a)
	case ActionWaitUntil:
		return e.execWaitUntil(ctx, a, vars)
	case ActionIf:
		return e.execIf(ctx, a, vars)
	case ActionScript:
		return e.execScript(ctx, a, vars)
	case ActionSendPacket:
		return e.execSendPacket(ctx, a)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownActionType, a.Type)
	}
}

func (e *Engine) execCommand(ctx context.Context, a ActionConfig, vars celx.Vars) error {
	result, err := e.cel.Evaluate(a.Target, vars)
	if err != nil {
		return fmt.Errorf("evaluate command target: %w", err)
	}
	intent, ok := celx.AsIntent(result)
	if !ok {
		return fmt.Errorf("command target %q did not produce a command intent", a.Target)
	}
	return e.dispatcher.DispatchCommand(ctx, intent.EntityID, intent.Command, intent.Value, intent.HasValue)
}

func (e *Engine) execPublish(a ActionConfig) error {
	var body []byte
	switch v := a.Payload.(type) {
	case nil:
		body = nil
	case string:
		body = []byte(v)
	case []byte:
		body = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal publish payload: %w", err)
		}
		body = b
	}
	return e.publisher.Publish(a.Topic, body, a.Retain)
}

func (e *Engine) execLog(a ActionConfig) {
	level := a.Level
	if level == "" {
		level = LogInfo
	}
	switch level {
	case LogWarn:
		e.log.Warn(a.Message)
	case LogError:
		e.log.Error(a.Message)
	default:
		e.log.Info(a.Message)
	}
}

func (e *Engine) execDelay(ctx context.Context, a ActionConfig) error {
	d, err := delayDuration(a)
	if err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func delayDuration(a ActionConfig) (time.Duration, error) {
	if a.Duration != "" {
		return time.ParseDuration(a.Duration)
	}
	return time.Duration(a.Milliseconds) * time.Millisecond, nil
}

func (e *Engine) execWaitUntil(ctx context.Context, a ActionConfig, vars celx.Vars) error {
	checkEvery := defaultWaitCheckInterval
	if a.CheckInterval != "" {
		d, err := time.ParseDuration(a.CheckInterval)
		if err != nil {
			return fmt.Errorf("wait_until check_interval: %w", err)
		}
		checkEvery = d
	}
	timeout := defaultWaitTimeout
	if a.Timeout != "" {
		d, err := time.ParseDuration(a.Timeout)
		if err != nil {
			return fmt.Errorf("wait_until timeout: %w", err)
		}
		timeout = d
	}

	if e.cel.EvaluateGuard(a.Condition, vars) {
		return nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(checkEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if e.cel.EvaluateGuard(a.Condition, vars) {
				return nil
			}
		case <-deadline.C:
			return fmt.Errorf("wait_until: condition %q not satisfied within %s", a.Condition, timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) execIf(ctx context.Context, a ActionConfig, vars celx.Vars) error {
	if e.cel.EvaluateGuard(a.Condition, vars) {
		return e.executeActions(ctx, a.Then, vars)
	}
	return e.executeActions(ctx, a.Else, vars)
}

func (e *Engine) execScript(ctx context.Context, a ActionConfig, vars celx.Vars) error {
	if a.ScriptID != "" {
		script, ok := e.scripts[a.ScriptID]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownScript, a.ScriptID)
		}
		return e.executeActions(ctx, script.Actions, vars)
	}
	_, err := e.cel.Evaluate(a.Script, vars)
	return err
}

func (e *Engine) execSendPacket(ctx context.Context, a ActionConfig) error {
	return e.packets.SendRaw(ctx, a.Data, a.AutoChecksum)
}
