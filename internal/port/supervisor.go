package port

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nerrad567/homenet-bridge/internal/discovery"
	"github.com/nerrad567/homenet-bridge/internal/eventbus"
	"github.com/nerrad567/homenet-bridge/internal/transport"
)

// Default reconnect backoff bounds and serial device-presence wait, per
// spec §7 ("exponential backoff up to cap") and §6's environment
// variable SERIAL_PATH_WAIT_TIMEOUT_MS (default 15s, applied here unless
// SupervisorConfig overrides it).
const (
	defaultReconnectBackoffMin = time.Second
	defaultReconnectBackoffMax = 30 * time.Second
	defaultSerialWaitTimeout   = 15 * time.Second
)

// SupervisorConfig bundles every port this bridge instance runs plus the
// bridge-wide topic prefix used for the availability topic.
type SupervisorConfig struct {
	TopicPrefix         string
	Ports               []Config
	ReconnectBackoffMin time.Duration
	ReconnectBackoffMax time.Duration
	SerialWaitTimeout   time.Duration
}

// portRunner pairs a built Engine with the port Config it was built from,
// so the reconnect loop can re-derive transport.Config on every attempt.
type portRunner struct {
	cfg    Config
	engine *Engine
}

// Supervisor owns every port Engine plus the shared MQTT client, and
// drives each port's connect/reconnect loop independently. Each loop is a
// restart-with-backoff state machine (dial, run, wait-for-exit, backoff,
// retry) that supervises a transport connection, per spec §3's "transport, not subprocess" port lifecycle and §7's per-port
// status/cause model. Per spec §7 "Propagation", one port's failure
// never stops another's loop.
type Supervisor struct {
	cfg  SupervisorConfig
	mqtt Publisher
	bus  *eventbus.Bus
	log  *slog.Logger

	runners []*portRunner
	wg      sync.WaitGroup
}

// NewSupervisor builds one Engine per cfg.Ports, wiring deps.MQTT/deps.Bus
// into each, but opens no transport and starts no goroutine.
func NewSupervisor(cfg SupervisorConfig, deps Deps) (*Supervisor, error) {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	runners := make([]*portRunner, 0, len(cfg.Ports))
	for _, portCfg := range cfg.Ports {
		eng, err := NewEngine(portCfg, deps)
		if err != nil {
			return nil, err
		}
		runners = append(runners, &portRunner{cfg: portCfg, engine: eng})
	}

	return &Supervisor{
		cfg:     cfg,
		mqtt:    deps.MQTT,
		bus:     deps.Bus,
		log:     log,
		runners: runners,
	}, nil
}

// Start publishes the bridge's retained availability topic, fires
// core:started, and launches every port's independent reconnect loop.
// It returns immediately; the loops run until ctx is cancelled.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := discovery.PublishBridgeOnline(s.mqtt, s.cfg.TopicPrefix); err != nil {
		s.log.Warn("supervisor: publish bridge online failed", "error", err)
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.TopicCoreStarted, nil)
	}

	for _, r := range s.runners {
		s.wg.Add(1)
		go s.runPort(ctx, r)
	}
	return nil
}

// Stop blocks until every port's loop has unwound (ctx passed to Start
// must already be cancelled by the caller) and fires core:stopped.
func (s *Supervisor) Stop() {
	s.wg.Wait()
	if s.bus != nil {
		s.bus.Publish(eventbus.TopicCoreStopped, nil)
	}
}

// Statuses reports every port's current lifecycle status, for a
// supervisor-level health endpoint.
func (s *Supervisor) Statuses() map[string]Status {
	out := make(map[string]Status, len(s.runners))
	for _, r := range s.runners {
		st, _ := r.engine.Status()
		out[r.cfg.ID] = st
	}
	return out
}

func (s *Supervisor) serialWaitTimeout() time.Duration {
	if s.cfg.SerialWaitTimeout > 0 {
		return s.cfg.SerialWaitTimeout
	}
	return defaultSerialWaitTimeout
}

func (s *Supervisor) backoffBounds(portCfg Config) (time.Duration, time.Duration) {
	min := s.cfg.ReconnectBackoffMin
	if min <= 0 {
		min = defaultReconnectBackoffMin
	}
	if portCfg.ReconnectBackoffMin > 0 {
		min = time.Duration(portCfg.ReconnectBackoffMin) * time.Millisecond
	}
	max := s.cfg.ReconnectBackoffMax
	if max <= 0 {
		max = defaultReconnectBackoffMax
	}
	if portCfg.ReconnectBackoffMax > 0 {
		max = time.Duration(portCfg.ReconnectBackoffMax) * time.Millisecond
	}
	return min, max
}

// runPort is one port's connect/run/reconnect loop, per spec §7:
// "TransportError (open/read/write): retriable; port enters
// reconnecting; exponential backoff up to cap."
func (s *Supervisor) runPort(ctx context.Context, r *portRunner) {
	defer s.wg.Done()

	min, max := s.backoffBounds(r.cfg)
	backoff := min

	for ctx.Err() == nil {
		if r.cfg.Transport.Kind == transport.KindSerial {
			if err := transport.WaitForPath(ctx, r.cfg.Transport.Path, s.serialWaitTimeout()); err != nil {
				if ctx.Err() != nil {
					return
				}
				r.engine.status.set(StatusError, Cause{
					Source: SourceSerial, Code: "path_wait_timeout",
					Message: err.Error(), Severity: SeverityError, Retryable: true,
				})
				if !sleepBackoff(ctx, &backoff, max) {
					return
				}
				continue
			}
		}

		tr, err := transport.Dial(ctx, r.cfg.Transport)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.engine.status.set(StatusReconnecting, Cause{
				Source: SourceSerial, Code: "dial_failed",
				Message: err.Error(), Severity: SeverityWarn, Retryable: true,
			})
			if !sleepBackoff(ctx, &backoff, max) {
				return
			}
			continue
		}

		if err := r.engine.Attach(ctx, tr); err != nil {
			tr.Close()
			r.engine.status.set(StatusError, Cause{
				Source: SourceCore, Code: "attach_failed",
				Message: err.Error(), Severity: SeverityError, Retryable: true,
			})
			if !sleepBackoff(ctx, &backoff, max) {
				return
			}
			continue
		}

		backoff = min
		r.engine.WaitDisconnected()
		tr.Close()
		r.engine.Detach()

		if ctx.Err() != nil {
			return
		}
		if !sleepBackoff(ctx, &backoff, max) {
			return
		}
	}
}

// sleepBackoff blocks for *backoff (or until ctx is cancelled, returning
// false), then doubles *backoff up to max.
func sleepBackoff(ctx context.Context, backoff *time.Duration, max time.Duration) bool {
	timer := time.NewTimer(*backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	*backoff *= 2
	if *backoff > max {
		*backoff = max
	}
	return true
}
