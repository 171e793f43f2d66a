package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nerrad567/homenet-bridge/internal/schema"
)

// Writer is the narrow transport dependency a Manager needs: a single
// blocking write. Satisfied by *transport.serialTransport/tcpTransport
// (via a thin adapter) in production and a hand-written fake in tests.
type Writer interface {
	Write(p []byte) (int, error)
}

// Options configures one Send call, sourced from the target entity's
// ProtocolDefaults plus an optional ack-matching schema (spec §4.5).
type Options struct {
	// AckMatch, if non-nil, is evaluated against every packet the port
	// engine hands to NotifyPacket until one matches, or TXTimeout elapses.
	AckMatch *schema.Schema

	// TXDelay is the minimum gap enforced since the last write on this
	// port (tx-gap pacing, spec §4.5 step 1).
	TXDelay time.Duration

	// TXTimeout bounds how long Send waits for a matching ACK.
	TXTimeout time.Duration

	// TXRetryCount is the number of additional attempts after the first,
	// each repeating write+ack-wait, per spec §4.5 step 4.
	TXRetryCount int
}

// Result reports what actually happened during a Send call, for callers
// that want to distinguish "sent but unacked" from "never sent".
type Result struct {
	Sent     bool
	Acked    bool
	Attempts int
}

// ackWaiter is a one-shot subscriber waiting for a packet body matching
// Match. Done is closed exactly once, by NotifyPacket or by Send's own
// timeout cleanup, whichever happens first.
type ackWaiter struct {
	match *schema.Schema
	done  chan struct{}
	once  sync.Once
}

// fire closes done if it hasn't been already. Safe to call concurrently
// from NotifyPacket and from Send's timeout path.
func (w *ackWaiter) fire() {
	w.once.Do(func() { close(w.done) })
}

// Manager serializes command transmission for one port: every Send call
// holds txMu for its full duration, enforcing spec §3's "single active
// transmission per port" and the tx_delay gap between writes. It is
// deliberately unaware of entity/state — callers translate entity
// commands into packet bytes (via schema.BuildCommandBody or a CEL
// command expression) before calling Send.
type Manager struct {
	writer Writer
	log    *slog.Logger

	txMu     sync.Mutex
	lastSent time.Time

	waitersMu sync.Mutex
	waiters   []*ackWaiter
}

// NewManager constructs a Manager that writes through w.
func NewManager(w Writer, log *slog.Logger) *Manager {
	return &Manager{
		writer: w,
		log:    log,
	}
}

// Send transmits packet, optionally waiting for an ACK and retrying on
// failure, per spec §4.5. An empty packet is treated as a virtual
// command (e.g. a button press with no bus side effect, or a purely
// optimistic entity) and succeeds immediately without touching the
// transport.
func (m *Manager) Send(ctx context.Context, packet []byte, opts Options) (Result, error) {
	if len(packet) == 0 {
		return Result{Sent: true, Acked: true, Attempts: 0}, nil
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	attempts := opts.TXRetryCount + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			m.log.Debug("command: retrying", "attempt", attempt+1, "of", attempts)
		}

		m.waitGap(opts.TXDelay)

		var waiter *ackWaiter
		if opts.AckMatch != nil {
			waiter = m.registerWaiter(opts.AckMatch)
		}

		if _, err := m.writer.Write(packet); err != nil {
			m.lastSent = time.Now()
			if waiter != nil {
				m.removeWaiter(waiter)
			}
			lastErr = fmt.Errorf("%w: %v", ErrTransport, err)
			continue
		}
		m.lastSent = time.Now()

		if waiter == nil {
			return Result{Sent: true, Acked: false, Attempts: attempt + 1}, nil
		}

		acked := m.waitAck(ctx, waiter, opts.TXTimeout)
		if acked {
			return Result{Sent: true, Acked: true, Attempts: attempt + 1}, nil
		}
		lastErr = ErrAckTimeout
	}

	if errors.Is(lastErr, ErrAckTimeout) && opts.TXRetryCount == 0 {
		return Result{Sent: true, Acked: false, Attempts: attempts}, ErrAckTimeout
	}
	return Result{Sent: true, Acked: false, Attempts: attempts}, fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

// waitGap blocks until at least delay has elapsed since the last write on
// this port, per spec §4.5 step 1. No-op on the first send.
func (m *Manager) waitGap(delay time.Duration) {
	if delay <= 0 || m.lastSent.IsZero() {
		return
	}
	elapsed := time.Since(m.lastSent)
	if elapsed < delay {
		time.Sleep(delay - elapsed)
	}
}

// registerWaiter adds a one-shot ACK subscriber to the waiter list.
func (m *Manager) registerWaiter(match *schema.Schema) *ackWaiter {
	w := &ackWaiter{match: match, done: make(chan struct{})}
	m.waitersMu.Lock()
	m.waiters = append(m.waiters, w)
	m.waitersMu.Unlock()
	return w
}

// removeWaiter drops w from the waiter list without firing it.
func (m *Manager) removeWaiter(w *ackWaiter) {
	m.waitersMu.Lock()
	defer m.waitersMu.Unlock()
	for i, cand := range m.waiters {
		if cand == w {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			return
		}
	}
}

// waitAck blocks until w fires (a matching packet arrived) or timeout
// elapses, then unregisters w either way.
func (m *Manager) waitAck(ctx context.Context, w *ackWaiter, timeout time.Duration) bool {
	defer m.removeWaiter(w)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.done:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// NotifyPacket is called by the port engine for every framed packet read
// off the bus. It fires the first pending waiter whose schema matches
// body, per spec §4.5's ACK-correlation model (first match wins; a
// packet that matches no waiter is a no-op here).
func (m *Manager) NotifyPacket(body []byte) {
	m.waitersMu.Lock()
	var fired *ackWaiter
	for i, w := range m.waiters {
		if w.match.Matches(body) {
			fired = w
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			break
		}
	}
	m.waitersMu.Unlock()

	if fired != nil {
		fired.fire()
	}
}
