package port

import "sync"

// Status is a port engine's lifecycle state, per spec §7 "Propagation":
// "A port engine reports status ∈ {idle, starting, started, stopped,
// error, reconnecting}".
type Status string

const (
	StatusIdle         Status = "idle"
	StatusStarting     Status = "starting"
	StatusStarted      Status = "started"
	StatusStopped      Status = "stopped"
	StatusError        Status = "error"
	StatusReconnecting Status = "reconnecting"
)

// CauseSource names which collaborator produced a Cause, per spec §7.
type CauseSource string

const (
	SourceSerial  CauseSource = "serial"
	SourceMQTT    CauseSource = "mqtt"
	SourceCore    CauseSource = "core"
	SourceService CauseSource = "service"
)

// Severity grades a Cause for the supervisor's aggregate view.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Cause is the structured error context a port reports alongside Status,
// per spec §7: "a structured cause {source, code, message, severity,
// retryable}".
type Cause struct {
	Source    CauseSource
	Code      string
	Message   string
	Severity  Severity
	Retryable bool
}

// statusBox is a small mutex-guarded (Status, Cause) pair, shared by
// Engine and Supervisor so the latter can read the former's status
// without reaching into its internals.
type statusBox struct {
	mu     sync.RWMutex
	status Status
	cause  Cause
}

func newStatusBox() *statusBox {
	return &statusBox{status: StatusIdle}
}

func (b *statusBox) set(s Status, c Cause) {
	b.mu.Lock()
	b.status = s
	b.cause = c
	b.mu.Unlock()
}

func (b *statusBox) get() (Status, Cause) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status, b.cause
}
