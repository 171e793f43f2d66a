package transport

import (
	"context"
	"io"
	"time"
)

// Transport is the duplex byte connection a port engine owns exclusively
// (spec §3 "Ownership/lifecycle": "A port engine exclusively owns ... its
// open transport"). ReadContext and Write must be safe to call from
// separate goroutines (one reader, one writer), matching the framer's
// single-writer requirement upstream of it.
type Transport interface {
	io.Writer
	io.Closer

	// ReadContext blocks until data is available, ctx is cancelled, or the
	// underlying connection fails. It never returns (0, nil).
	ReadContext(ctx context.Context, buf []byte) (int, error)
}

// Config names a port's transport connection per spec §2.1's Ports config
// ("transport (serial|tcp)").
type Config struct {
	Kind string // "serial" or "tcp"

	// Serial fields.
	Path     string
	BaudRate int
	DataBits int
	Parity   string
	StopBits int

	// TCP fields.
	Address string

	// DialTimeout bounds the initial connect attempt.
	DialTimeout time.Duration
}

const (
	// KindSerial selects an RS-485/USB-serial transport.
	KindSerial = "serial"
	// KindTCP selects a raw TCP transport (serial-over-IP gateways).
	KindTCP = "tcp"
)

const defaultDialTimeout = 10 * time.Second

// Dial opens a Transport per cfg.Kind, mirroring the source connector's
// dual-scheme dispatch (there: unix vs tcp; here: serial vs tcp).
func Dial(ctx context.Context, cfg Config) (Transport, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	switch cfg.Kind {
	case KindSerial:
		return dialSerial(ctx, cfg)
	case KindTCP:
		return dialTCP(ctx, cfg)
	default:
		return nil, &UnsupportedKindError{Kind: cfg.Kind}
	}
}
